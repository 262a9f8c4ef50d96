// Package testutil provides an in-memory persistence layer for unit tests.
// It mirrors the database constraints the services depend on: unique
// emails and slugs, and foreign keys that refuse to orphan notes or tasks.
package testutil

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

// Memory holds every table and implements services.Transactor. A failed
// unit of work restores the tables to their state before it began.
type Memory struct {
	mu     sync.Mutex
	nextID int
	clock  time.Time
	faults map[string]error

	categories map[int]types.Category
	notes      map[int]types.Note
	tasks      map[int]types.Task
	users      map[int]types.User
}

func NewMemory() *Memory {
	return &Memory{
		clock:      time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		faults:     make(map[string]error),
		categories: make(map[int]types.Category),
		notes:      make(map[int]types.Note),
		tasks:      make(map[int]types.Task),
		users:      make(map[int]types.User),
	}
}

// Repositories returns repositories operating on m outside any transaction.
func (m *Memory) Repositories() services.Repositories {
	return services.Repositories{
		Categories: &memCategories{m: m},
		Notes: &memEntries[types.Note]{
			m:    m,
			name: "notes",
			rows: func() map[int]types.Note { return m.notes },
			meta: func(n types.Note, id int, created, updated time.Time, categoryTitle string) types.Note {
				n.ID, n.CreatedAt, n.UpdatedAt, n.CategoryTitle = id, created, updated, categoryTitle
				return n
			},
			created: func(n types.Note) time.Time { return n.CreatedAt },
			updated: func(n types.Note) time.Time { return n.UpdatedAt },
		},
		Tasks: &memEntries[types.Task]{
			m:    m,
			name: "tasks",
			rows: func() map[int]types.Task { return m.tasks },
			meta: func(t types.Task, id int, created, updated time.Time, categoryTitle string) types.Task {
				t.ID, t.CreatedAt, t.UpdatedAt, t.CategoryTitle = id, created, updated, categoryTitle
				return t
			},
			created: func(t types.Task) time.Time { return t.CreatedAt },
			updated: func(t types.Task) time.Time { return t.UpdatedAt },
		},
		Users: &memUsers{m: m},
	}
}

// InTx runs fn and rolls every table back when it returns an error.
func (m *Memory) InTx(ctx context.Context, fn func(services.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	snap := m.snapshot()
	if err := fn(m.Repositories()); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

// FailOn makes the named operation, such as "tasks.DeleteByAuthor", return
// err until cleared with a nil err.
func (m *Memory) FailOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.faults, op)
		return
	}
	m.faults[op] = err
}

// Counts reports the number of rows per table.
func (m *Memory) Counts() (categories, notes, tasks, users int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.categories), len(m.notes), len(m.tasks), len(m.users)
}

// Touch moves the clock forward so later writes sort after earlier ones.
func (m *Memory) Touch(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clock = m.clock.Add(d)
}

type snapshot struct {
	nextID     int
	categories map[int]types.Category
	notes      map[int]types.Note
	tasks      map[int]types.Task
	users      map[int]types.User
}

func (m *Memory) snapshot() snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return snapshot{
		nextID:     m.nextID,
		categories: maps.Clone(m.categories),
		notes:      maps.Clone(m.notes),
		tasks:      maps.Clone(m.tasks),
		users:      cloneUsers(m.users),
	}
}

func (m *Memory) restore(s snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.categories = s.categories
	m.notes = s.notes
	m.tasks = s.tasks
	m.users = s.users
}

// fault and tick expect m.mu to be held.
func (m *Memory) fault(op string) error {
	return m.faults[op]
}

func (m *Memory) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *Memory) newID() int {
	m.nextID++
	return m.nextID
}

func (m *Memory) referenced(categoryID int) bool {
	for _, n := range m.notes {
		if n.CategoryID == categoryID {
			return true
		}
	}
	for _, t := range m.tasks {
		if t.CategoryID == categoryID {
			return true
		}
	}
	return false
}

func (m *Memory) owns(userID int) bool {
	for _, n := range m.notes {
		if n.AuthorID == userID {
			return true
		}
	}
	for _, t := range m.tasks {
		if t.AuthorID == userID {
			return true
		}
	}
	return false
}

func cloneUsers(in map[int]types.User) map[int]types.User {
	out := make(map[int]types.User, len(in))
	for id, u := range in {
		u.Roles = slices.Clone(u.Roles)
		out[id] = u
	}
	return out
}

func page[T any](rows []T, offset, limit int) []T {
	offset = max(offset, 0)
	if offset >= len(rows) || limit <= 0 {
		return []T{}
	}
	end := offset + min(limit, len(rows)-offset)
	return rows[offset:end]
}

type memCategories struct {
	m *Memory
}

func (r *memCategories) List(_ context.Context, offset, limit int) ([]types.Category, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fault("categories.List"); err != nil {
		return nil, 0, err
	}
	rows := slices.Collect(maps.Values(r.m.categories))
	slices.SortFunc(rows, func(a, b types.Category) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return b.ID - a.ID
	})
	return page(rows, offset, limit), len(rows), nil
}

func (r *memCategories) All(_ context.Context) ([]types.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rows := slices.Collect(maps.Values(r.m.categories))
	slices.SortFunc(rows, func(a, b types.Category) int {
		if c := strings.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return a.ID - b.ID
	})
	return rows, nil
}

func (r *memCategories) Get(_ context.Context, id int) (types.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fault("categories.Get"); err != nil {
		return types.Category{}, err
	}
	category, ok := r.m.categories[id]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	return category, nil
}

func (r *memCategories) GetForUpdate(ctx context.Context, id int) (types.Category, error) {
	return r.Get(ctx, id)
}

func (r *memCategories) Create(_ context.Context, category types.Category) (types.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.slugTaken(category.Slug, 0) {
		return types.Category{}, store.ErrConflict
	}
	category.ID = r.m.newID()
	category.CreatedAt = r.m.tick()
	category.UpdatedAt = category.CreatedAt
	r.m.categories[category.ID] = category
	return category, nil
}

func (r *memCategories) Update(_ context.Context, category types.Category) (types.Category, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	existing, ok := r.m.categories[category.ID]
	if !ok {
		return types.Category{}, store.ErrNotFound
	}
	if r.slugTaken(category.Slug, category.ID) {
		return types.Category{}, store.ErrConflict
	}
	category.CreatedAt = existing.CreatedAt
	category.UpdatedAt = r.m.tick()
	r.m.categories[category.ID] = category
	return category, nil
}

func (r *memCategories) Delete(_ context.Context, id int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fault("categories.Delete"); err != nil {
		return err
	}
	if _, ok := r.m.categories[id]; !ok {
		return store.ErrNotFound
	}
	if r.m.referenced(id) {
		return store.ErrReferenced
	}
	delete(r.m.categories, id)
	return nil
}

func (r *memCategories) slugTaken(slug string, exceptID int) bool {
	for id, c := range r.m.categories {
		if id != exceptID && c.Slug == slug {
			return true
		}
	}
	return false
}

type memEntries[T types.Entry] struct {
	m       *Memory
	name    string
	rows    func() map[int]T
	meta    func(entry T, id int, created, updated time.Time, categoryTitle string) T
	created func(T) time.Time
	updated func(T) time.Time
}

func (r *memEntries[T]) ListByAuthor(_ context.Context, authorID, offset, limit int) ([]T, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fault(r.name + ".ListByAuthor"); err != nil {
		return nil, 0, err
	}
	var rows []T
	for _, entry := range r.rows() {
		if entry.OwnerID() == authorID {
			rows = append(rows, entry)
		}
	}
	slices.SortFunc(rows, func(a, b T) int {
		if c := r.updated(b).Compare(r.updated(a)); c != 0 {
			return c
		}
		return b.EntryID() - a.EntryID()
	})
	return page(rows, offset, limit), len(rows), nil
}

func (r *memEntries[T]) Get(_ context.Context, id int) (T, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	entry, ok := r.rows()[id]
	if !ok {
		var zero T
		return zero, store.ErrNotFound
	}
	return entry, nil
}

func (r *memEntries[T]) Create(_ context.Context, entry T) (T, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var zero T
	if err := r.m.fault(r.name + ".Create"); err != nil {
		return zero, err
	}
	category, ok := r.m.categories[entry.CategoryRef()]
	if !ok {
		return zero, store.ErrReferenced
	}
	if _, ok := r.m.users[entry.OwnerID()]; !ok {
		return zero, store.ErrReferenced
	}
	now := r.m.tick()
	entry = r.meta(entry, r.m.newID(), now, now, category.Title)
	r.rows()[entry.EntryID()] = entry
	return entry, nil
}

func (r *memEntries[T]) Update(_ context.Context, entry T) (T, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var zero T
	existing, ok := r.rows()[entry.EntryID()]
	if !ok {
		return zero, store.ErrNotFound
	}
	category, ok := r.m.categories[entry.CategoryRef()]
	if !ok {
		return zero, store.ErrReferenced
	}
	entry = r.meta(entry, existing.EntryID(), r.created(existing), r.m.tick(), category.Title)
	r.rows()[entry.EntryID()] = entry
	return entry, nil
}

func (r *memEntries[T]) Delete(_ context.Context, id int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fault(r.name + ".Delete"); err != nil {
		return err
	}
	if _, ok := r.rows()[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.rows(), id)
	return nil
}

func (r *memEntries[T]) CountByCategory(_ context.Context, categoryID int) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fault(r.name + ".CountByCategory"); err != nil {
		return 0, err
	}
	count := 0
	for _, entry := range r.rows() {
		if entry.CategoryRef() == categoryID {
			count++
		}
	}
	return count, nil
}

func (r *memEntries[T]) DeleteByAuthor(_ context.Context, authorID int) (int64, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fault(r.name + ".DeleteByAuthor"); err != nil {
		return 0, err
	}
	var deleted int64
	for id, entry := range r.rows() {
		if entry.OwnerID() == authorID {
			delete(r.rows(), id)
			deleted++
		}
	}
	return deleted, nil
}

type memUsers struct {
	m *Memory
}

func (r *memUsers) List(_ context.Context, offset, limit int) ([]types.User, int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	rows := slices.Collect(maps.Values(r.m.users))
	slices.SortFunc(rows, func(a, b types.User) int { return b.ID - a.ID })
	return page(rows, offset, limit), len(rows), nil
}

func (r *memUsers) GetByID(_ context.Context, id int) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	user, ok := r.m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, user := range r.m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.emailTaken(user.Email, 0) {
		return types.User{}, store.ErrConflict
	}
	user.ID = r.m.newID()
	user.CreatedAt = r.m.tick()
	user.UpdatedAt = user.CreatedAt
	user.Roles = slices.Clone(user.Roles)
	r.m.users[user.ID] = user
	return user, nil
}

func (r *memUsers) Update(_ context.Context, user types.User) (types.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fault("users.Update"); err != nil {
		return types.User{}, err
	}
	existing, ok := r.m.users[user.ID]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return types.User{}, store.ErrConflict
	}
	user.CreatedAt = existing.CreatedAt
	user.UpdatedAt = r.m.tick()
	user.Roles = slices.Clone(user.Roles)
	r.m.users[user.ID] = user
	return user, nil
}

func (r *memUsers) Delete(_ context.Context, id int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if err := r.m.fault("users.Delete"); err != nil {
		return err
	}
	if _, ok := r.m.users[id]; !ok {
		return store.ErrNotFound
	}
	if r.m.owns(id) {
		return store.ErrReferenced
	}
	delete(r.m.users, id)
	return nil
}

func (r *memUsers) emailTaken(email string, exceptID int) bool {
	for id, u := range r.m.users {
		if id != exceptID && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
