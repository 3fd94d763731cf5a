package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the binding persistence operations.
// Every call goes to the database; nothing is cached.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// GetBindingByUser returns the binding for a user. Returns nil, nil if not found.
	GetBindingByUser(ctx context.Context, userID int64) (*Binding, error)

	// GetBindingByThread returns the binding owning a thread. Returns nil, nil if not found.
	GetBindingByThread(ctx context.Context, threadID int) (*Binding, error)

	// SaveBinding inserts the binding or replaces the existing row for the same user.
	SaveBinding(ctx context.Context, binding *Binding) error

	// CountBindings returns the number of stored bindings.
	CountBindings(ctx context.Context) (int, error)

	// ListBindings returns up to limit bindings, newest first.
	ListBindings(ctx context.Context, limit int) ([]Binding, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewStore creates a new Store implementation backed by sqlx.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlxStore) GetBindingByUser(ctx context.Context, userID int64) (*Binding, error) {
	if userID == 0 {
		return nil, errors.New("user_id cannot be zero")
	}

	var binding Binding
	err := s.db.GetContext(ctx, &binding,
		`SELECT user_id, topic_id, created_at FROM user_topics WHERE user_id = ?`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.DebugContext(ctx, "No binding found for user", "user_id", userID)
		return nil, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error fetching binding by user", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to get binding for user %d: %w", userID, err)
	}

	return &binding, nil
}

func (s *sqlxStore) GetBindingByThread(ctx context.Context, threadID int) (*Binding, error) {
	if threadID == 0 {
		return nil, errors.New("thread_id cannot be zero")
	}

	// More than one row can point at a thread after a first-contact race;
	// the most recently written one owns it.
	var binding Binding
	err := s.db.GetContext(ctx, &binding, `
		SELECT user_id, topic_id, created_at
		FROM user_topics
		WHERE topic_id = ?
		ORDER BY created_at DESC
		LIMIT 1;
	`, threadID)
	if errors.Is(err, sql.ErrNoRows) {
		s.logger.DebugContext(ctx, "No binding found for thread", "thread_id", threadID)
		return nil, nil
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "Error fetching binding by thread", "thread_id", threadID, "error", err)
		return nil, fmt.Errorf("failed to get binding for thread %d: %w", threadID, err)
	}

	return &binding, nil
}

func (s *sqlxStore) SaveBinding(ctx context.Context, binding *Binding) error {
	if binding == nil {
		return errors.New("cannot save nil binding")
	}
	if binding.UserID == 0 {
		return errors.New("binding must have a non-zero user_id")
	}
	if binding.ThreadID == 0 {
		return errors.New("binding must have a non-zero thread_id")
	}

	binding.CreatedAt = sql.NullTime{Time: s.now(), Valid: true}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to begin transaction for saving binding",
			"user_id", binding.UserID, "error", err)
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				s.logger.WarnContext(ctx, "Error rolling back transaction", "error", rollbackErr)
			}
		}
	}()

	result, err := tx.NamedExecContext(ctx, `
		INSERT OR REPLACE INTO user_topics (user_id, topic_id, created_at)
		VALUES (:user_id, :topic_id, :created_at);
	`, binding)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving binding",
			"user_id", binding.UserID, "thread_id", binding.ThreadID, "error", err)
		return fmt.Errorf("failed to save binding (user %d, thread %d): %w", binding.UserID, binding.ThreadID, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected != 1 {
		s.logger.WarnContext(ctx, "Unexpected number of rows affected when saving binding",
			"user_id", binding.UserID, "affected", affected)
	}

	if err := tx.Commit(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to commit transaction", "user_id", binding.UserID, "error", err)
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	tx = nil

	s.logger.DebugContext(ctx, "Binding saved successfully",
		"user_id", binding.UserID, "thread_id", binding.ThreadID)
	return nil
}

func (s *sqlxStore) CountBindings(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM user_topics`); err != nil {
		s.logger.ErrorContext(ctx, "Error counting bindings", "error", err)
		return 0, fmt.Errorf("failed to count bindings: %w", err)
	}
	return count, nil
}

func (s *sqlxStore) ListBindings(ctx context.Context, limit int) ([]Binding, error) {
	if limit <= 0 {
		limit = 50
	} else if limit > 1000 {
		limit = 1000
	}

	var bindings []Binding
	err := s.db.SelectContext(ctx, &bindings, `
		SELECT user_id, topic_id, created_at
		FROM user_topics
		ORDER BY created_at DESC, user_id ASC
		LIMIT ?;
	`, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing bindings", "error", err)
		return nil, fmt.Errorf("failed to list bindings: %w", err)
	}
	return bindings, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM cannot run inside a transaction.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)
	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)
	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
