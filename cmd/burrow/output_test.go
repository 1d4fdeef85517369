package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/cuemby/burrow/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func str(s string) *string { return &s }

func sampleViews() []types.TaskView {
	return []types.TaskView{
		{IP: str("54.1.2.3"), Name: str("a"), Status: "RUNNING", TaskARN: str("arn:1"), Type: str("FARGATE")},
		{Name: str("b"), Status: "STOPPED"},
	}
}

func TestPrintViews_Table(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printViews(&buf, sampleViews(), formatTable))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, []string{"NAME", "STATUS", "IP", "TYPE", "TASK", "ARN"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"a", "RUNNING", "54.1.2.3", "FARGATE", "arn:1"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"b", "STOPPED", "-", "-", "-"}, strings.Fields(lines[2]))
}

func TestPrintViews_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printViews(&buf, sampleViews(), formatJSON))

	var out []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "a", out[0]["name"])
	assert.Contains(t, out[1], "ip")
	assert.Nil(t, out[1]["ip"])
}

func TestPrintViews_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printViews(&buf, sampleViews(), formatYAML))

	var out []map[string]interface{}
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &out))
	require.Len(t, out, 2)
	assert.Equal(t, "RUNNING", out[0]["status"])
	assert.Equal(t, "arn:1", out[0]["task_arn"])
	assert.Nil(t, out[1]["task_arn"])
}

func TestPrintViews_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, printViews(&buf, sampleViews(), "xml"))
	assert.Empty(t, buf.String())
}
