package log

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DebugLevel},
		{"DEBUG", DebugLevel},
		{"warn", WarnLevel},
		{"warning", WarnLevel},
		{"error", ErrorLevel},
		{"info", InfoLevel},
		{"", InfoLevel},
		{"bogus", InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestInit_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: DebugLevel, JSONOutput: true, Output: &buf})

	logger := WithCluster("manager", "test-cluster")
	logger.Info().Str("task_name", "alpha").Msg("task created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "manager", entry["component"])
	assert.Equal(t, "test-cluster", entry["cluster"])
	assert.Equal(t, "alpha", entry["task_name"])
	assert.Equal(t, "task created", entry["message"])
}

func TestInit_LevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: WarnLevel, JSONOutput: true, Output: &buf})

	Logger.Debug().Msg("hidden")
	mgr := WithComponent("manager")
	mgr.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	Logger.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")

	Init(Config{Level: InfoLevel, JSONOutput: true, Output: &bytes.Buffer{}})
}

func TestInit_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "burrow.log")
	Init(Config{Level: InfoLevel, JSONOutput: true, File: path})
	t.Cleanup(func() { Init(Config{Output: &bytes.Buffer{}}) })

	serveLogger := WithComponent("serve")
	serveLogger.Info().Msg("API server listening")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component":"serve"`)
}

func TestRotatingFileDefaults(t *testing.T) {
	w := RotatingFile("/tmp/x.log", 0, 0)
	assert.Equal(t, 100, w.MaxSize)
	assert.Equal(t, 5, w.MaxBackups)
	assert.True(t, w.Compress)
}
