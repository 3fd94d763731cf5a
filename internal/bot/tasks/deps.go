// Package tasks implements the scheduled maintenance jobs of modmail.
package tasks

import (
	"context"
	"log/slog"
)

// Store is the part of the binding store the tasks use.
type Store interface {
	RunSQLMaintenance(ctx context.Context) error
	CountBindings(ctx context.Context) (int, error)
}

// TaskDeps contains all dependencies required by scheduled tasks.
type TaskDeps struct {
	Logger *slog.Logger
	Store  Store
}
