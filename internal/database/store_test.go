package database

import (
	"context"
	"database/sql"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	db, err := NewDB(filepath.Join(t.TempDir(), "modmail.db"))
	require.NoError(t, err)
	t.Cleanup(func() { CloseDB(db) })

	return NewStore(db, nil)
}

func TestStoreLookupMissingBinding(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	byUser, err := store.GetBindingByUser(ctx, 1001)
	require.NoError(t, err)
	assert.Nil(t, byUser)

	byThread, err := store.GetBindingByThread(ctx, 55)
	require.NoError(t, err)
	assert.Nil(t, byThread)
}

func TestStoreSaveAndLookupBothWays(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBinding(ctx, &Binding{UserID: 1001, ThreadID: 55}))

	byUser, err := store.GetBindingByUser(ctx, 1001)
	require.NoError(t, err)
	require.NotNil(t, byUser)
	assert.Equal(t, 55, byUser.ThreadID)
	assert.True(t, byUser.CreatedAt.Valid)

	byThread, err := store.GetBindingByThread(ctx, 55)
	require.NoError(t, err)
	require.NotNil(t, byThread)
	assert.Equal(t, int64(1001), byThread.UserID)
}

func TestStoreSaveReplacesExistingUserRow(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveBinding(ctx, &Binding{UserID: 1001, ThreadID: 55}))
	require.NoError(t, store.SaveBinding(ctx, &Binding{UserID: 1001, ThreadID: 56}))

	count, err := store.CountBindings(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	byUser, err := store.GetBindingByUser(ctx, 1001)
	require.NoError(t, err)
	require.NotNil(t, byUser)
	assert.Equal(t, 56, byUser.ThreadID)

	orphan, err := store.GetBindingByThread(ctx, 55)
	require.NoError(t, err)
	assert.Nil(t, orphan)
}

func TestStoreThreadLookupPrefersNewestRow(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	s := store.(*sqlxStore)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return base }
	require.NoError(t, store.SaveBinding(ctx, &Binding{UserID: 1, ThreadID: 77}))
	s.now = func() time.Time { return base.Add(time.Minute) }
	require.NoError(t, store.SaveBinding(ctx, &Binding{UserID: 2, ThreadID: 77}))

	owner, err := store.GetBindingByThread(ctx, 77)
	require.NoError(t, err)
	require.NotNil(t, owner)
	assert.Equal(t, int64(2), owner.UserID)
}

func TestStoreRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		binding *Binding
	}{
		{name: "nil binding", binding: nil},
		{name: "zero user", binding: &Binding{ThreadID: 5}},
		{name: "zero thread", binding: &Binding{UserID: 5}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, store.SaveBinding(ctx, tt.binding))
		})
	}

	_, err := store.GetBindingByUser(ctx, 0)
	assert.Error(t, err)
	_, err = store.GetBindingByThread(ctx, 0)
	assert.Error(t, err)
}

func TestStoreListBindings(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		require.NoError(t, store.SaveBinding(ctx, &Binding{UserID: int64(i), ThreadID: 100 + i}))
	}

	all, err := store.ListBindings(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := store.ListBindings(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestStoreSurvivesReopen(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "modmail.db")
	ctx := context.Background()

	db, err := NewDB(path)
	require.NoError(t, err)
	require.NoError(t, NewStore(db, nil).SaveBinding(ctx, &Binding{UserID: 1001, ThreadID: 55}))
	CloseDB(db)

	db, err = NewDB(path)
	require.NoError(t, err)
	defer CloseDB(db)

	binding, err := NewStore(db, nil).GetBindingByUser(ctx, 1001)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, 55, binding.ThreadID)
}

func TestMigrationsAdoptLegacyTable(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "legacy.db")
	ctx := context.Background()

	legacy, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = legacy.Exec(`CREATE TABLE IF NOT EXISTS user_topics (user_id INTEGER PRIMARY KEY, topic_id INTEGER)`)
	require.NoError(t, err)
	_, err = legacy.Exec(`INSERT INTO user_topics (user_id, topic_id) VALUES (42, 9)`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	db, err := NewDB(path)
	require.NoError(t, err)
	defer CloseDB(db)

	binding, err := NewStore(db, nil).GetBindingByThread(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, binding)
	assert.Equal(t, int64(42), binding.UserID)
	assert.False(t, binding.CreatedAt.Valid)
}

func TestRunSQLMaintenance(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	require.NoError(t, store.RunSQLMaintenance(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, store.RunSQLMaintenance(ctx), context.Canceled)
}

func TestNewDBRejectsEmptyPath(t *testing.T) {
	t.Parallel()
	_, err := NewDB("  ")
	assert.Error(t, err)
}

func TestBuildDSN(t *testing.T) {
	t.Parallel()

	dsn := BuildDSN("data/modmail.db")
	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.Equal(t, "data/modmail.db", u.Opaque)
	assert.ElementsMatch(t, []string{"busy_timeout(5000)", "journal_mode(WAL)"}, u.Query()["_pragma"])
	assert.Equal(t, "sqlite", u.Query().Get("_time_format"))

	custom := "file:x.db?_pragma=foreign_keys(1)"
	assert.Equal(t, custom, BuildDSN(custom))
}

func TestExtractDBNameFromPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "storage.db", want: "storage.db"},
		{in: "file:storage.db", want: "storage.db"},
		{in: "file:storage.db?_pragma=busy_timeout(5000)", want: "storage.db"},
		{in: "file:my%20db.db", want: "my db.db"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExtractDBNameFromPath(tt.in), tt.in)
	}
}
