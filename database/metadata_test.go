package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.sqlite"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestCollectionMetadata_Create(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)

	exists, err := cmd.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, cmd.Create(ctx))

	exists, err = cmd.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCollectionMetadata_CreateIdempotent(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)

	require.NoError(t, cmd.Create(ctx))
	require.NoError(t, cmd.Create(ctx))

	exists, err := cmd.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCollectionMetadata_CollectionExistsNoTable(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)

	exists, err := cmd.CollectionExists(ctx, "foo")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCollectionMetadata_CollectionExistsNoMetadata(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)
	require.NoError(t, cmd.Create(ctx))

	exists, err := cmd.CollectionExists(ctx, "foo")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCollectionMetadata_CollectionExistsWithMetadata(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)
	require.NoError(t, cmd.Create(ctx))
	require.NoError(t, cmd.CreateCollection(ctx, "foo", Metadata{"bar": "baz"}))

	exists, err := cmd.CollectionExists(ctx, "foo")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCollectionMetadata_CollectionExistsCached(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)
	require.NoError(t, cmd.Create(ctx))

	// Seed the cache; no row exists in the table.
	cmd.cacheSet("foo", true)

	exists, err := cmd.CollectionExists(ctx, "foo")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCollectionMetadata_GetMetadataNoTable(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)

	_, err := cmd.GetMetadata(ctx, "foo")
	assert.ErrorIs(t, err, ErrCollectionMissing)
}

func TestCollectionMetadata_GetMetadataMissingCollection(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)
	require.NoError(t, cmd.Create(ctx))

	_, err := cmd.GetMetadata(ctx, "foo")
	assert.ErrorIs(t, err, ErrCollectionMissing)

	// The miss lands in the existence cache.
	cached, ok := cmd.cacheGet("foo")
	assert.True(t, ok)
	assert.False(t, cached)
}

func TestCollectionMetadata_GetMetadata(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)
	require.NoError(t, cmd.Create(ctx))
	require.NoError(t, cmd.CreateCollection(ctx, "foo", Metadata{"bar": "baz"}))

	md, err := cmd.GetMetadata(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, Metadata{"bar": "baz"}, md)
}

func TestCollectionMetadata_GetMetadataUpdatesExistenceCache(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)
	require.NoError(t, cmd.Create(ctx))
	require.NoError(t, cmd.CreateCollection(ctx, "foo", Metadata{"bar": "baz"}))

	// Reset to a stale negative entry; GetMetadata fixes it up.
	cmd.cacheSet("foo", false)
	_, err := cmd.GetMetadata(ctx, "foo")
	require.NoError(t, err)

	cached, ok := cmd.cacheGet("foo")
	assert.True(t, ok)
	assert.True(t, cached)
}

func TestCollectionMetadata_GetAllMetadata(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)
	require.NoError(t, cmd.Create(ctx))
	require.NoError(t, cmd.CreateCollection(ctx, "foo", Metadata{"a": float64(1)}))
	require.NoError(t, cmd.CreateCollection(ctx, "bar", Metadata{"b": float64(2)}))

	all, err := cmd.GetAllMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Metadata{
		"foo": {"a": float64(1)},
		"bar": {"b": float64(2)},
	}, all)
}

func TestCollectionMetadata_GetAllMetadataSkipsNull(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)
	require.NoError(t, cmd.Create(ctx))
	require.NoError(t, cmd.CreateCollection(ctx, "foo", Metadata{"a": float64(1)}))

	_, err := db.ExecContext(ctx,
		"INSERT INTO "+cmd.TableName()+" (name, metadata) VALUES ('bar', NULL)")
	require.NoError(t, err)

	all, err := cmd.GetAllMetadata(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]Metadata{"foo": {"a": float64(1)}}, all)
}

func TestCollectionMetadata_SetMetadata(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)
	require.NoError(t, cmd.Create(ctx))
	require.NoError(t, cmd.CreateCollection(ctx, "foo", nil))

	md, err := cmd.GetMetadata(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, md)

	require.NoError(t, cmd.SetMetadata(ctx, "foo", Metadata{"bar": "baz"}))
	md, err = cmd.GetMetadata(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, Metadata{"bar": "baz"}, md)
}

func TestCollectionMetadata_CreateCollectionNoTable(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	cmd := NewCollectionMetadata("MyTables", db)

	// CreateCollection bootstraps the registry table itself.
	require.NoError(t, cmd.CreateCollection(ctx, "foo", nil))

	md, err := cmd.GetMetadata(ctx, "foo")
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, md)
}
