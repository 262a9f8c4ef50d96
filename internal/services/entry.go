package services

import (
	"context"
	"errors"

	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

type entryEvents struct {
	created types.EventKind
	updated types.EventKind
	deleted types.EventKind
}

// EntryService encapsulates the use-cases notes and tasks share.
type EntryService[T types.Entry] struct {
	entries    EntryRepository[T]
	categories CategoryRepository
	events     Publisher
	kinds      entryEvents
}

// NoteService and TaskService are the two kinds of owned entries.
type (
	NoteService = EntryService[types.Note]
	TaskService = EntryService[types.Task]
)

func NewNoteService(repos Repositories, events Publisher) *NoteService {
	return &NoteService{
		entries:    repos.Notes,
		categories: repos.Categories,
		events:     orDiscard(events),
		kinds: entryEvents{
			created: types.EventNoteCreated,
			updated: types.EventNoteUpdated,
			deleted: types.EventNoteDeleted,
		},
	}
}

func NewTaskService(repos Repositories, events Publisher) *TaskService {
	return &TaskService{
		entries:    repos.Tasks,
		categories: repos.Categories,
		events:     orDiscard(events),
		kinds: entryEvents{
			created: types.EventTaskCreated,
			updated: types.EventTaskUpdated,
			deleted: types.EventTaskDeleted,
		},
	}
}

// ListPaginated returns one page of the author's entries, most recently
// updated first.
func (s *EntryService[T]) ListPaginated(ctx context.Context, page int, author types.User) (types.Page[T], error) {
	page = max(page, 1)
	limit := types.DefaultPageSize
	entries, total, err := s.entries.ListByAuthor(ctx, author.ID, types.Offset(page, limit), limit)
	if err != nil {
		return types.Page[T]{}, err
	}
	return types.NewPage(entries, page, limit, total), nil
}

// FindByID looks the entry up. A missing entry is reported through the
// boolean, not as an error.
func (s *EntryService[T]) FindByID(ctx context.Context, id int) (T, bool, error) {
	entry, err := s.entries.Get(ctx, id)
	if err != nil {
		var zero T
		if errors.Is(err, store.ErrNotFound) {
			return zero, false, nil
		}
		return zero, false, err
	}
	return entry, true, nil
}

// Save creates the entry when it has no ID and updates it otherwise. The
// referenced category must exist.
func (s *EntryService[T]) Save(ctx context.Context, entry T) (T, error) {
	var zero T
	if _, err := s.categories.Get(ctx, entry.CategoryRef()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return zero, ErrUnknownCategory
		}
		return zero, err
	}

	creating := entry.EntryID() == 0
	var saved T
	var err error
	if creating {
		saved, err = s.entries.Create(ctx, entry)
	} else {
		saved, err = s.entries.Update(ctx, entry)
	}
	if err != nil {
		// The category may vanish between the check and the write.
		if errors.Is(err, store.ErrReferenced) {
			return zero, ErrUnknownCategory
		}
		return zero, err
	}

	kind := s.kinds.updated
	if creating {
		kind = s.kinds.created
	}
	notify(ctx, s.events, types.Event{Kind: kind, SubjectID: saved.EntryID(), OwnerID: saved.OwnerID()})
	return saved, nil
}

func (s *EntryService[T]) Delete(ctx context.Context, entry T) error {
	if err := s.entries.Delete(ctx, entry.EntryID()); err != nil {
		return err
	}
	notify(ctx, s.events, types.Event{Kind: s.kinds.deleted, SubjectID: entry.EntryID(), OwnerID: entry.OwnerID()})
	return nil
}
