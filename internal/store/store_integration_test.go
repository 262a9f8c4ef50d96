//go:build integration

package store_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/notekeeper/apiserver/internal/db"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/internal/testutil"
	"github.com/notekeeper/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var conn *sql.DB

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	cfg, terminate, err := testutil.StartPostgres(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres: %v\n", err)
		os.Exit(1)
	}

	conn, err = db.Open(ctx, cfg)
	if err != nil {
		terminate()
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()

	_ = conn.Close()
	terminate()
	os.Exit(code)
}

type seed struct {
	repos    store.Repositories
	author   types.User
	category types.Category
}

func newSeed(t *testing.T) seed {
	t.Helper()
	testutil.ResetTables(t, conn)
	ctx := context.Background()
	repos := store.New(conn)

	author, err := repos.Users.Create(ctx, types.User{
		Email:        "alice@example.com",
		Roles:        []types.Role{types.RoleUser},
		PasswordHash: "$argon2id$placeholder",
	})
	require.NoError(t, err)

	category, err := repos.Categories.Create(ctx, types.Category{Title: "General", Slug: "general"})
	require.NoError(t, err)

	return seed{repos: repos, author: author, category: category}
}

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)

	got, err := s.repos.Users.GetByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, s.author.ID, got.ID)
	assert.Equal(t, []types.Role{types.RoleUser}, got.Roles)

	got.Roles = []types.Role{types.RoleAdmin, types.RoleUser}
	_, err = s.repos.Users.Update(ctx, got)
	require.NoError(t, err)
	reloaded, err := s.repos.Users.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsAdmin())

	_, err = s.repos.Users.Create(ctx, types.User{Email: "Alice@Example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.repos.Users.GetByID(ctx, 9999)
	assert.ErrorIs(t, err, store.ErrNotFound)

	users, total, err := s.repos.Users.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, users, 1)
}

func TestCategoryRepository(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)

	_, err := s.repos.Categories.Create(ctx, types.Category{Title: "general!", Slug: "general"})
	assert.ErrorIs(t, err, store.ErrConflict)

	other, err := s.repos.Categories.Create(ctx, types.Category{Title: "Archive", Slug: "archive"})
	require.NoError(t, err)

	all, err := s.repos.Categories.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Archive", all[0].Title)

	page, total, err := s.repos.Categories.List(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, other.ID, page[0].ID)

	require.NoError(t, s.repos.Categories.Delete(ctx, other.ID))
	assert.ErrorIs(t, s.repos.Categories.Delete(ctx, other.ID), store.ErrNotFound)
}

func TestReferencedRowsCannotBeDeleted(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)

	_, err := s.repos.Tasks.Create(ctx, types.Task{Title: "t", CategoryID: s.category.ID, AuthorID: s.author.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, s.repos.Categories.Delete(ctx, s.category.ID), store.ErrReferenced)
	assert.ErrorIs(t, s.repos.Users.Delete(ctx, s.author.ID), store.ErrReferenced)

	_, err = s.repos.Notes.Create(ctx, types.Note{Title: "n", CategoryID: 9999, AuthorID: s.author.ID})
	assert.ErrorIs(t, err, store.ErrReferenced)
}

func TestEntryRepository(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)

	var ids []int
	for i := 0; i < 3; i++ {
		note, err := s.repos.Notes.Create(ctx, types.Note{
			Title:      fmt.Sprintf("note %d", i),
			CategoryID: s.category.ID,
			AuthorID:   s.author.ID,
		})
		require.NoError(t, err)
		ids = append(ids, note.ID)
	}

	first, err := s.repos.Notes.Get(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "General", first.CategoryTitle)

	first.Title = "note 0, edited"
	_, err = s.repos.Notes.Update(ctx, first)
	require.NoError(t, err)

	notes, total, err := s.repos.Notes.ListByAuthor(ctx, s.author.ID, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, notes, 2)
	assert.Equal(t, ids[0], notes[0].ID)
	assert.Equal(t, ids[2], notes[1].ID)

	count, err := s.repos.Notes.CountByCategory(ctx, s.category.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	deleted, err := s.repos.Notes.DeleteByAuthor(ctx, s.author.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	_, err = s.repos.Notes.Get(ctx, ids[0])
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)
	boom := errors.New("boom")

	err := store.WithTx(ctx, conn, func(repos store.Repositories) error {
		if _, err := repos.Categories.Create(ctx, types.Category{Title: "Temp", Slug: "temp"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	all, err := s.repos.Categories.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestServicesOverPostgres(t *testing.T) {
	ctx := context.Background()
	s := newSeed(t)
	repos := services.FromStore(s.repos)
	tx := services.NewSQLTransactor(conn)
	categories := services.NewCategoryService(repos, tx, nil)
	notes := services.NewNoteService(repos, nil)
	users := services.NewUserService(repos, tx, nil)

	milk, err := notes.Save(ctx, types.Note{Title: "Milk", CategoryID: s.category.ID, AuthorID: s.author.ID})
	require.NoError(t, err)

	assert.ErrorIs(t, categories.DeleteIfUnused(ctx, s.category.ID), services.ErrCategoryInUse)

	summary, err := users.DeleteWithDependents(ctx, s.author)
	require.NoError(t, err)
	assert.Equal(t, types.DeletionSummary{Notes: 1}, summary)

	_, found, err := notes.FindByID(ctx, milk.ID)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, categories.DeleteIfUnused(ctx, s.category.ID))
}

func TestPruneSessions(t *testing.T) {
	ctx := context.Background()
	testutil.ResetTables(t, conn)

	_, err := conn.ExecContext(ctx, `
		INSERT INTO sessions (token, data, expiry) VALUES
			('expired', '\x00', NOW() - INTERVAL '1 hour'),
			('live', '\x00', NOW() + INTERVAL '1 hour')`)
	require.NoError(t, err)

	pruned, err := store.PruneSessions(ctx, conn)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pruned)
}
