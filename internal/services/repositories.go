package services

import (
	"context"
	"database/sql"

	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

// CategoryRepository defines persistence operations for categories.
type CategoryRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.Category, int, error)
	All(ctx context.Context) ([]types.Category, error)
	Get(ctx context.Context, id int) (types.Category, error)
	GetForUpdate(ctx context.Context, id int) (types.Category, error)
	Create(ctx context.Context, category types.Category) (types.Category, error)
	Update(ctx context.Context, category types.Category) (types.Category, error)
	Delete(ctx context.Context, id int) error
}

// EntryRepository defines persistence operations for notes and tasks.
type EntryRepository[T types.Entry] interface {
	ListByAuthor(ctx context.Context, authorID, offset, limit int) ([]T, int, error)
	Get(ctx context.Context, id int) (T, error)
	Create(ctx context.Context, entry T) (T, error)
	Update(ctx context.Context, entry T) (T, error)
	Delete(ctx context.Context, id int) error
	CountByCategory(ctx context.Context, categoryID int) (int, error)
	DeleteByAuthor(ctx context.Context, authorID int) (int64, error)
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	List(ctx context.Context, offset, limit int) ([]types.User, int, error)
	GetByID(ctx context.Context, id int) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
	Update(ctx context.Context, user types.User) (types.User, error)
	Delete(ctx context.Context, id int) error
}

// Repositories groups the repositories of one unit of work.
type Repositories struct {
	Categories CategoryRepository
	Notes      EntryRepository[types.Note]
	Tasks      EntryRepository[types.Task]
	Users      UserRepository
}

// Transactor runs fn against repositories that share one transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type Transactor interface {
	InTx(ctx context.Context, fn func(Repositories) error) error
}

// FromStore exposes store repositories through the service interfaces.
func FromStore(repos store.Repositories) Repositories {
	return Repositories{
		Categories: repos.Categories,
		Notes:      repos.Notes,
		Tasks:      repos.Tasks,
		Users:      repos.Users,
	}
}

// SQLTransactor runs units of work in database transactions.
type SQLTransactor struct {
	db *sql.DB
}

func NewSQLTransactor(db *sql.DB) *SQLTransactor {
	return &SQLTransactor{db: db}
}

func (t *SQLTransactor) InTx(ctx context.Context, fn func(Repositories) error) error {
	return store.WithTx(ctx, t.db, func(repos store.Repositories) error {
		return fn(FromStore(repos))
	})
}
