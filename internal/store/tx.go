package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// DBTX is the subset of *sql.DB and *sql.Tx the repositories need.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repositories groups repositories bound to the same DBTX.
type Repositories struct {
	Categories *CategoryRepository
	Notes      *NoteRepository
	Tasks      *TaskRepository
	Users      *UserRepository
}

// New binds every repository to db.
func New(db DBTX) Repositories {
	return Repositories{
		Categories: NewCategoryRepository(db),
		Notes:      NewNoteRepository(db),
		Tasks:      NewTaskRepository(db),
		Users:      NewUserRepository(db),
	}
}

// WithTx runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
func WithTx(ctx context.Context, db *sql.DB, fn func(Repositories) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(New(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", mapError(err))
	}
	return nil
}
