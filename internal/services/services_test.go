package services_test

import (
	"context"
	"testing"

	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/internal/testutil"
	"github.com/notekeeper/apiserver/types"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	mem        *testutil.Memory
	events     *testutil.Recorder
	categories *services.CategoryService
	notes      *services.NoteService
	tasks      *services.TaskService
	users      *services.UserService
}

func newFixture() *fixture {
	mem := testutil.NewMemory()
	events := &testutil.Recorder{}
	repos := mem.Repositories()
	return &fixture{
		mem:        mem,
		events:     events,
		categories: services.NewCategoryService(repos, mem, events),
		notes:      services.NewNoteService(repos, events),
		tasks:      services.NewTaskService(repos, events),
		users:      services.NewUserService(repos, mem, events),
	}
}

func (f *fixture) user(t *testing.T, email string) types.User {
	t.Helper()
	user, err := f.users.Register(context.Background(), types.User{Email: email}, "secret-password")
	require.NoError(t, err)
	return user
}

func (f *fixture) category(t *testing.T, title string) types.Category {
	t.Helper()
	category, err := f.categories.Save(context.Background(), types.Category{Title: title})
	require.NoError(t, err)
	return category
}

func (f *fixture) note(t *testing.T, author types.User, category types.Category, title string) types.Note {
	t.Helper()
	note, err := f.notes.Save(context.Background(), types.Note{
		Title:      title,
		Content:    title + " body",
		CategoryID: category.ID,
		AuthorID:   author.ID,
	})
	require.NoError(t, err)
	return note
}

func (f *fixture) task(t *testing.T, author types.User, category types.Category, title string) types.Task {
	t.Helper()
	task, err := f.tasks.Save(context.Background(), types.Task{
		Title:      title,
		CategoryID: category.ID,
		AuthorID:   author.ID,
	})
	require.NoError(t, err)
	return task
}
