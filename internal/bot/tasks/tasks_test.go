package tasks

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	maintenanceErr error
	maintenanceRun int
	count          int
	countErr       error
}

func (f *fakeStore) RunSQLMaintenance(context.Context) error {
	f.maintenanceRun++
	return f.maintenanceErr
}

func (f *fakeStore) CountBindings(context.Context) (int, error) {
	return f.count, f.countErr
}

func testDeps(store Store) TaskDeps {
	return TaskDeps{Logger: slog.New(slog.NewTextHandler(io.Discard, nil)), Store: store}
}

func TestRegisterAllTasks(t *testing.T) {
	t.Parallel()
	tasks := RegisterAllTasks(testDeps(&fakeStore{}))

	assert.Len(t, tasks, 2)
	assert.Contains(t, tasks, SQLMaintenance)
	assert.Contains(t, tasks, BindingStats)
}

func TestSQLMaintenanceTask(t *testing.T) {
	t.Parallel()
	store := &fakeStore{}
	task := newSQLMaintenanceTask(testDeps(store))

	require.NoError(t, task(context.Background()))
	assert.Equal(t, 1, store.maintenanceRun)
}

func TestSQLMaintenanceTaskFailure(t *testing.T) {
	t.Parallel()
	cause := errors.New("database is locked")
	task := newSQLMaintenanceTask(testDeps(&fakeStore{maintenanceErr: cause}))

	err := task(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, cause)
}

func TestBindingStatsTask(t *testing.T) {
	t.Parallel()
	task := newBindingStatsTask(testDeps(&fakeStore{count: 3}))
	assert.NoError(t, task(context.Background()))

	cause := errors.New("no such table")
	failing := newBindingStatsTask(testDeps(&fakeStore{countErr: cause}))
	assert.ErrorIs(t, failing(context.Background()), cause)
}
