package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteListingIsAuthorScopedNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	general := f.category(t, "General")

	for i := 0; i < 11; i++ {
		f.note(t, alice, general, "alice note")
		f.mem.Touch(time.Minute)
	}
	f.note(t, bob, general, "bob note")
	latest := f.note(t, alice, general, "latest")

	page, err := f.notes.ListPaginated(ctx, 1, alice)
	require.NoError(t, err)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, types.DefaultPageSize)
	assert.Equal(t, latest.ID, page.Items[0].ID)
	for i, note := range page.Items {
		assert.Equal(t, alice.ID, note.AuthorID)
		if i > 0 {
			assert.False(t, note.UpdatedAt.After(page.Items[i-1].UpdatedAt))
		}
	}

	bobs, err := f.notes.ListPaginated(ctx, 1, bob)
	require.NoError(t, err)
	require.Len(t, bobs.Items, 1)
	assert.Equal(t, "bob note", bobs.Items[0].Title)
}

func TestEditedNoteMovesToTop(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.user(t, "alice@example.com")
	general := f.category(t, "General")

	older := f.note(t, alice, general, "older")
	f.note(t, alice, general, "newer")

	older.Title = "older, edited"
	_, err := f.notes.Save(ctx, older)
	require.NoError(t, err)

	page, err := f.notes.ListPaginated(ctx, 1, alice)
	require.NoError(t, err)
	assert.Equal(t, "older, edited", page.Items[0].Title)
	assert.Equal(t, "General", page.Items[0].CategoryTitle)
}

func TestEntrySaveRequiresCategory(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.user(t, "alice@example.com")

	_, err := f.notes.Save(ctx, types.Note{Title: "orphan", AuthorID: alice.ID, CategoryID: 42})
	assert.ErrorIs(t, err, services.ErrUnknownCategory)

	_, err = f.tasks.Save(ctx, types.Task{Title: "orphan", AuthorID: alice.ID, CategoryID: 42})
	assert.ErrorIs(t, err, services.ErrUnknownCategory)

	_, _, notes, tasks := f.mem.Counts()
	assert.Zero(t, notes+tasks)
}

func TestTaskLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.user(t, "alice@example.com")
	home := f.category(t, "Home")

	task := f.task(t, alice, home, "Water plants")
	got, found, err := f.tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Water plants", got.Title)
	assert.Equal(t, "Home", got.CategoryTitle)

	require.NoError(t, f.tasks.Delete(ctx, got))
	_, found, err = f.tasks.FindByID(ctx, task.ID)
	require.NoError(t, err)
	assert.False(t, found)

	last, ok := f.events.Last()
	require.True(t, ok)
	assert.Equal(t, types.EventTaskDeleted, last.Kind)
	assert.Equal(t, alice.ID, last.OwnerID)
}
