package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/explain"
)

func TestExplainCommand_Text(t *testing.T) {
	script, manifest := ancestryFixtures(t)

	stdout, _, err := executeCommand(t, "explain", script, "--manifest", manifest)
	require.NoError(t, err)

	assert.Contains(t, stdout, "stratum")
	assert.Contains(t, stdout, "load_stored")
	assert.Contains(t, stdout, ":mutations")
	assert.Contains(t, stdout, "stored_prefix_join")
}

func TestExplainCommand_JSON(t *testing.T) {
	script, manifest := ancestryFixtures(t)

	stdout, _, err := executeCommand(t, "explain", script, "--manifest", manifest, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)
	rows, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.NotEmpty(t, rows)
}

func TestExplainCommand_WritesOutputFile(t *testing.T) {
	script, manifest := ancestryFixtures(t)
	outPath := filepath.Join(t.TempDir(), "plan.json")

	_, _, err := executeCommand(t, "explain", script, "--manifest", manifest, "--output", outPath)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var rows []explain.Row
	require.NoError(t, json.Unmarshal(data, &rows))
	assert.NotEmpty(t, rows)
	assert.Equal(t, "out", rows[0].Op)
}

func TestExplainCommand_CompileErrorPropagates(t *testing.T) {
	script := writeFixture(t, "script.cue", ancestryScript)

	stdout, _, err := executeCommand(t, "explain", script)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "E204")
}
