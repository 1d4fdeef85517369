package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/burrow/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runRoot(t *testing.T, args ...string) error {
	t.Helper()
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	return rootCmd.Execute()
}

func TestRegistryMigrate_MissingSource(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "missing.json")
	dst := filepath.Join(dir, "burrow.db")

	err := runRoot(t, "registry", "migrate", "--from-path", missing, "--to-path", dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")

	for _, path := range []string{missing, dst} {
		_, statErr := os.Stat(path)
		assert.True(t, os.IsNotExist(statErr), "%s must not be created", path)
	}
}

func TestRegistryMigrate_FileToBolt(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, registry.DefaultFile)
	dst := filepath.Join(dir, registry.DefaultBoltFile)
	require.NoError(t, os.WriteFile(src, []byte(`{"a":{},"b":{}}`), 0600))

	require.NoError(t, runRoot(t, "registry", "migrate", "--from-path", src, "--to-path", dst))

	store, err := registry.Open(registry.BackendBolt, dst)
	require.NoError(t, err)
	defer store.Close()
	names, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, registry.Names(names))
}
