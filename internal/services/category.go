package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

// maxSlugAttempts bounds how many numbered suffixes Save tries when the
// slug of a title is already taken.
const maxSlugAttempts = 20

// CategoryService encapsulates category use-cases.
type CategoryService struct {
	repos  Repositories
	tx     Transactor
	events Publisher
}

func NewCategoryService(repos Repositories, tx Transactor, events Publisher) *CategoryService {
	return &CategoryService{repos: repos, tx: tx, events: orDiscard(events)}
}

// ListPaginated returns one page of categories, most recently updated first.
func (s *CategoryService) ListPaginated(ctx context.Context, page int) (types.Page[types.Category], error) {
	page = max(page, 1)
	limit := types.DefaultPageSize
	categories, total, err := s.repos.Categories.List(ctx, types.Offset(page, limit), limit)
	if err != nil {
		return types.Page[types.Category]{}, err
	}
	return types.NewPage(categories, page, limit, total), nil
}

// All returns every category ordered by title.
func (s *CategoryService) All(ctx context.Context) ([]types.Category, error) {
	return s.repos.Categories.All(ctx)
}

// FindByID looks the category up. A missing category is reported through
// the boolean, not as an error.
func (s *CategoryService) FindByID(ctx context.Context, id int) (types.Category, bool, error) {
	category, err := s.repos.Categories.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Category{}, false, nil
		}
		return types.Category{}, false, err
	}
	return category, true, nil
}

func (s *CategoryService) Exists(ctx context.Context, id int) (bool, error) {
	_, found, err := s.FindByID(ctx, id)
	return found, err
}

// Save creates the category when it has no ID and updates it otherwise.
// The slug is derived from the title; a numbered suffix is appended when
// another category already uses it.
func (s *CategoryService) Save(ctx context.Context, category types.Category) (types.Category, error) {
	category.Title = strings.TrimSpace(category.Title)
	base := Slugify(category.Title)
	if base == "" {
		base = "category"
	}

	creating := category.ID == 0
	var err error
	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		category.Slug = base
		if attempt > 1 {
			category.Slug = fmt.Sprintf("%s-%d", base, attempt)
		}

		var saved types.Category
		if creating {
			saved, err = s.repos.Categories.Create(ctx, category)
		} else {
			saved, err = s.repos.Categories.Update(ctx, category)
		}
		if err == nil {
			kind := types.EventCategoryUpdated
			if creating {
				kind = types.EventCategoryCreated
			}
			notify(ctx, s.events, types.Event{Kind: kind, SubjectID: saved.ID})
			return saved, nil
		}
		if !errors.Is(err, store.ErrConflict) {
			return types.Category{}, err
		}
	}
	return types.Category{}, fmt.Errorf("no free slug for %q: %w", category.Title, err)
}

// Delete removes the category without checking whether it is in use. The
// foreign keys still refuse to orphan notes or tasks.
func (s *CategoryService) Delete(ctx context.Context, category types.Category) error {
	if err := s.repos.Categories.Delete(ctx, category.ID); err != nil {
		if errors.Is(err, store.ErrReferenced) {
			return ErrCategoryInUse
		}
		return err
	}
	notify(ctx, s.events, types.Event{Kind: types.EventCategoryDeleted, SubjectID: category.ID})
	return nil
}

// CanBeDeleted reports whether no note and no task references the category.
func (s *CategoryService) CanBeDeleted(ctx context.Context, id int) (bool, error) {
	var unused bool
	err := s.tx.InTx(ctx, func(repos Repositories) error {
		var err error
		unused, err = unreferenced(ctx, repos, id)
		return err
	})
	return unused, err
}

// DeleteIfUnused deletes the category unless a note or task references it,
// in which case ErrCategoryInUse is returned and nothing changes. The
// category row stays locked between the check and the delete.
func (s *CategoryService) DeleteIfUnused(ctx context.Context, id int) error {
	err := s.tx.InTx(ctx, func(repos Repositories) error {
		if _, err := repos.Categories.GetForUpdate(ctx, id); err != nil {
			return err
		}
		unused, err := unreferenced(ctx, repos, id)
		if err != nil {
			return err
		}
		if !unused {
			return ErrCategoryInUse
		}
		return repos.Categories.Delete(ctx, id)
	})
	if err != nil {
		if errors.Is(err, store.ErrReferenced) {
			return ErrCategoryInUse
		}
		return err
	}
	notify(ctx, s.events, types.Event{Kind: types.EventCategoryDeleted, SubjectID: id})
	return nil
}

func unreferenced(ctx context.Context, repos Repositories, categoryID int) (bool, error) {
	notes, err := repos.Notes.CountByCategory(ctx, categoryID)
	if err != nil {
		return false, fmt.Errorf("count notes: %w", err)
	}
	tasks, err := repos.Tasks.CountByCategory(ctx, categoryID)
	if err != nil {
		return false, fmt.Errorf("count tasks: %w", err)
	}
	return notes == 0 && tasks == 0, nil
}
