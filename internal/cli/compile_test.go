package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ancestryManifest = `
relations:
  - name: mutations
    keys:
      - name: id
        type: Uuid
  - name: has_added
    keys:
      - name: mutation_id
        type: Uuid
      - name: node_id
        type: Uuid
  - name: has_target
    keys:
      - name: mutation_id
        type: Uuid
      - name: node_id
        type: Uuid
`

func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFixture(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// ancestryScript is shared with loader_test.go.
func ancestryFixtures(t *testing.T) (script, manifest string) {
	t.Helper()
	return writeFixture(t, "script.cue", ancestryScript), writeFixture(t, "relations.yaml", ancestryManifest)
}

func TestCompileCommand_Text(t *testing.T) {
	script, manifest := ancestryFixtures(t)

	stdout, _, err := executeCommand(t, "compile", script, "--manifest", manifest)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Compiled 2 stratum(s), 2 rule set(s), 2 clause(s)")
}

func TestCompileCommand_JSON(t *testing.T) {
	script, manifest := ancestryFixtures(t)

	stdout, _, err := executeCommand(t, "compile", script, "--manifest", manifest, "--format", "json")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), data["strata"])
	assert.Equal(t, float64(3), data["relations"])
}

func TestCompileCommand_VerboseLogsToStderr(t *testing.T) {
	script, manifest := ancestryFixtures(t)

	stdout, stderr, err := executeCommand(t, "compile", script, "--manifest", manifest, "--verbose", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Declared 3 relation(s)")
	assert.NotContains(t, stdout, "Declared")
}

func TestCompileCommand_MissingRelationFails(t *testing.T) {
	script := writeFixture(t, "script.cue", ancestryScript)

	stdout, _, err := executeCommand(t, "compile", script)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, stdout, "E204")
}

func TestCompileCommand_MissingScriptFails(t *testing.T) {
	_, _, err := executeCommand(t, "compile", filepath.Join(t.TempDir(), "nope.cue"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCompileCommand_CatalogRelations(t *testing.T) {
	script, manifest := ancestryFixtures(t)
	db := filepath.Join(t.TempDir(), "catalog.db")

	_, _, err := executeCommand(t, "relations", "apply", manifest, "--db", db)
	require.NoError(t, err)

	stdout, _, err := executeCommand(t, "compile", script, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, stdout, "✓ Compiled")
}

func TestCompileCommand_InvalidFormatRejected(t *testing.T) {
	_, _, err := executeCommand(t, "compile", "whatever.cue", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}
