package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/compile"
)

const sampleManifest = `
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
    values:
      - name: note
        type: String
        nullable: true
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "relations.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, sampleManifest))
	require.NoError(t, err)
	require.Len(t, m.Relations, 2)

	assert.Equal(t, 1, m.Relations[0].Arity())
	assert.Equal(t, 3, m.Relations[1].Arity())
	assert.Equal(t, "note", m.Relations[1].Values[0].Name)
}

func TestLoadManifest_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "duplicate relation",
			content: `
relations:
  - name: twice
    keys: [{name: a}]
  - name: twice
    keys: [{name: a}]
`,
		},
		{
			name: "no keys",
			content: `
relations:
  - name: keyless
    values: [{name: a}]
`,
		},
		{
			name: "unknown column type",
			content: `
relations:
  - name: odd
    keys: [{name: a, type: Complex}]
`,
		},
		{
			name: "empty column name",
			content: `
relations:
  - name: anon
    keys: [{type: Int}]
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadManifest(writeManifest(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestManifest_Declare(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, sampleManifest))
	require.NoError(t, err)

	comp := compile.NewCompiler()
	require.NoError(t, m.Declare(comp))

	handle, err := comp.GetRelation("has_added")
	require.NoError(t, err)
	assert.Equal(t, 3, handle.Arity)
	require.Len(t, handle.Keys, 2)
	assert.Equal(t, compile.TypeUUID, handle.Keys[0].Typing.Type)

	// Declaring the same manifest twice conflicts in the registry.
	require.Error(t, m.Declare(comp))
}

func TestManifest_Store(t *testing.T) {
	m, err := LoadManifest(writeManifest(t, sampleManifest))
	require.NoError(t, err)

	cat := openTestCatalog(t)
	ctx := context.Background()
	require.NoError(t, m.Store(ctx, cat))

	records, err := cat.ListRelations(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "has_added", records[0].Name)
	assert.Equal(t, 3, records[0].Arity)
}
