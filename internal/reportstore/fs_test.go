package reportstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/DatLens/internal/errs"
)

func newTestStore(t *testing.T) *FSStore {
	t.Helper()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestKey(t *testing.T) {
	assert.Equal(t, "source_schema_mysql_rental.json", Key("mysql", "rental"))
	assert.Equal(t, "source_schema_sqlserver_shop.json", Key("sqlserver", "shop"))
}

func TestFSStore_PutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	report := []byte(`{"metadata":{"database":"rental","engine":"mysql"}}`)
	key := Key("mysql", "rental")

	require.NoError(t, store.Put(ctx, key, report))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, report, got)
}

func TestFSStore_PutOverwrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := Key("mysql", "rental")

	require.NoError(t, store.Put(ctx, key, []byte(`{"v":1}`)))
	require.NoError(t, store.Put(ctx, key, []byte(`{"v":2}`)))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte(`{"v":2}`), got)
}

func TestFSStore_GetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), Key("mysql", "nope"))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestFSStore_List(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, Key("sqlserver", "shop"), []byte(`{}`)))
	require.NoError(t, store.Put(ctx, Key("mysql", "rental"), []byte(`{"a":1}`)))

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	// Sorted by key.
	assert.Equal(t, Key("mysql", "rental"), infos[0].Key)
	assert.Equal(t, Key("sqlserver", "shop"), infos[1].Key)
	assert.Equal(t, int64(7), infos[0].Size)
	assert.False(t, infos[0].StoredAt.IsZero())
}

func TestFSStore_ListIgnoresNonReports(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "notes.txt", []byte("x")))
	require.NoError(t, store.Put(ctx, Key("mysql", "rental"), []byte(`{}`)))

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, Key("mysql", "rental"), infos[0].Key)
}

func TestFSStore_RejectsPathKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{"", "..", "a/b.json", `a\b.json`} {
		err := store.Put(ctx, key, []byte(`{}`))
		assert.True(t, errs.IsInvalidInput(err), "key %q must be rejected", key)
	}
}

func TestFSStore_Ping(t *testing.T) {
	store := newTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}
