package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/stratum/internal/compile"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat, err := Open(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cat.Close() })
	return cat
}

func TestCatalog_PutGetRoundTrip(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	keys := []compile.ColumnDef{{Name: "id", Typing: compile.NullableColType{Type: compile.TypeUUID}}}
	nonKeys := []compile.ColumnDef{{Name: "label", Typing: compile.NullableColType{Type: compile.TypeString, Nullable: true}}}

	id, err := cat.PutRelation(ctx, "mutations", 2, keys, nonKeys)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	rec, err := cat.GetRelation(ctx, "mutations")
	require.NoError(t, err)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "mutations", rec.Name)
	assert.Equal(t, 2, rec.Arity)
	require.Len(t, rec.Keys, 1)
	assert.Equal(t, compile.TypeUUID, rec.Keys[0].Typing.Type)
	require.Len(t, rec.NonKeys, 1)
	assert.True(t, rec.NonKeys[0].Typing.Nullable)
	assert.NotEmpty(t, rec.CreatedAt)
}

func TestCatalog_GetMissing(t *testing.T) {
	cat := openTestCatalog(t)

	_, err := cat.GetRelation(context.Background(), "absent")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCatalog_DuplicateNameRejected(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	_, err := cat.PutRelation(ctx, "dup", 1, nil, nil)
	require.NoError(t, err)
	_, err = cat.PutRelation(ctx, "dup", 2, nil, nil)
	require.Error(t, err)
}

func TestCatalog_ListOrderedByName(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	for _, name := range []string{"zulu", "alpha", "mike"} {
		_, err := cat.PutRelation(ctx, name, 1, nil, nil)
		require.NoError(t, err)
	}

	records, err := cat.ListRelations(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "alpha", records[0].Name)
	assert.Equal(t, "mike", records[1].Name)
	assert.Equal(t, "zulu", records[2].Name)
}

func TestCatalog_Delete(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	_, err := cat.PutRelation(ctx, "gone", 1, nil, nil)
	require.NoError(t, err)
	require.NoError(t, cat.DeleteRelation(ctx, "gone"))

	_, err = cat.GetRelation(ctx, "gone")
	require.ErrorIs(t, err, ErrNotFound)
	require.ErrorIs(t, cat.DeleteRelation(ctx, "gone"), ErrNotFound)
}

func TestCatalog_LoadIntoCompiler(t *testing.T) {
	cat := openTestCatalog(t)
	ctx := context.Background()

	_, err := cat.PutRelation(ctx, "has_added", 2, nil, nil)
	require.NoError(t, err)
	_, err = cat.PutRelation(ctx, "mutations", 1, nil, nil)
	require.NoError(t, err)

	comp := compile.NewCompiler()
	n, err := cat.LoadInto(ctx, comp)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	handle, err := comp.GetRelation("has_added")
	require.NoError(t, err)
	assert.Equal(t, 2, handle.Arity)
}

func TestCatalog_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.db")
	ctx := context.Background()

	cat, err := Open(path)
	require.NoError(t, err)
	_, err = cat.PutRelation(ctx, "persistent", 3, nil, nil)
	require.NoError(t, err)
	require.NoError(t, cat.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.GetRelation(ctx, "persistent")
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Arity)
}
