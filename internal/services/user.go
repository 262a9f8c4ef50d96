package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/store"
	"github.com/notekeeper/apiserver/types"
)

// UserService encapsulates user use-cases.
type UserService struct {
	repos  Repositories
	tx     Transactor
	events Publisher
}

func NewUserService(repos Repositories, tx Transactor, events Publisher) *UserService {
	return &UserService{repos: repos, tx: tx, events: orDiscard(events)}
}

// unknownUserHash is verified against when no account matches the email.
var unknownUserHash = mustHash("notekeeper-unknown-user")

func mustHash(password string) string {
	hash, err := auth.HashPassword(password)
	if err != nil {
		panic(err)
	}
	return hash
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ListPaginated returns one page of users, newest first.
func (s *UserService) ListPaginated(ctx context.Context, page int) (types.Page[types.User], error) {
	page = max(page, 1)
	limit := types.DefaultPageSize
	users, total, err := s.repos.Users.List(ctx, types.Offset(page, limit), limit)
	if err != nil {
		return types.Page[types.User]{}, err
	}
	return types.NewPage(users, page, limit, total), nil
}

func (s *UserService) FindByID(ctx context.Context, id int) (types.User, bool, error) {
	return found(s.repos.Users.GetByID(ctx, id))
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (types.User, bool, error) {
	return found(s.repos.Users.GetByEmail(ctx, NormalizeEmail(email)))
}

// Register creates an account holding ROLE_USER only. The plain password is
// hashed before anything is stored.
func (s *UserService) Register(ctx context.Context, user types.User, plainPassword string) (types.User, error) {
	hash, err := auth.HashPassword(plainPassword)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user.ID = 0
	user.Email = NormalizeEmail(user.Email)
	user.Roles = []types.Role{types.RoleUser}
	user.PasswordHash = hash

	created, err := s.repos.Users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, err
	}
	notify(ctx, s.events, types.Event{Kind: types.EventUserRegistered, SubjectID: created.ID})
	return created, nil
}

// Save persists role or email changes. ROLE_USER is always kept.
func (s *UserService) Save(ctx context.Context, user types.User) (types.User, error) {
	user.Email = NormalizeEmail(user.Email)
	user.Roles = types.NormalizeRoles(user.Roles)

	var saved types.User
	var err error
	if user.ID == 0 {
		saved, err = s.repos.Users.Create(ctx, user)
	} else {
		saved, err = s.repos.Users.Update(ctx, user)
	}
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrEmailTaken
		}
		return types.User{}, err
	}
	notify(ctx, s.events, types.Event{Kind: types.EventUserUpdated, SubjectID: saved.ID})
	return saved, nil
}

// Update saves edited account fields and, when newPassword is not empty, the
// hash of newPassword in the same write.
func (s *UserService) Update(ctx context.Context, user types.User, newPassword string) (types.User, error) {
	if newPassword != "" {
		hash, err := auth.HashPassword(newPassword)
		if err != nil {
			return types.User{}, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}
	return s.Save(ctx, user)
}

// ChangePassword replaces the stored hash with one of plainPassword.
func (s *UserService) ChangePassword(ctx context.Context, user types.User, plainPassword string) (types.User, error) {
	hash, err := auth.HashPassword(plainPassword)
	if err != nil {
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	return s.Save(ctx, user)
}

// Authenticate returns the user owning email when plainPassword matches.
// Hashes made with another algorithm or outdated parameters are replaced
// on the way.
func (s *UserService) Authenticate(ctx context.Context, email, plainPassword string) (types.User, error) {
	user, ok, err := s.FindByEmail(ctx, email)
	if err != nil {
		return types.User{}, err
	}
	if !ok {
		// Burn the same verification cost so unknown emails are not faster.
		_, _ = auth.CheckPassword(plainPassword, unknownUserHash)
		return types.User{}, ErrInvalidCredentials
	}

	match, err := auth.CheckPassword(plainPassword, user.PasswordHash)
	if err != nil && !errors.Is(err, auth.ErrUnsupportedHash) {
		return types.User{}, fmt.Errorf("check password: %w", err)
	}
	if !match {
		return types.User{}, ErrInvalidCredentials
	}

	if auth.NeedsRehash(user.PasswordHash) {
		upgraded, err := s.upgradePassword(ctx, user, plainPassword)
		if err != nil {
			slog.WarnContext(ctx, "password hash upgrade failed", "user_id", user.ID, "error", err)
			return user, nil
		}
		return upgraded, nil
	}
	return user, nil
}

func (s *UserService) upgradePassword(ctx context.Context, user types.User, plainPassword string) (types.User, error) {
	hash, err := auth.HashPassword(plainPassword)
	if err != nil {
		return types.User{}, err
	}
	user.PasswordHash = hash
	return s.repos.Users.Update(ctx, user)
}

// DeleteWithDependents removes the user's notes, then tasks, then the user,
// all in one transaction. If any step fails nothing is removed.
func (s *UserService) DeleteWithDependents(ctx context.Context, user types.User) (types.DeletionSummary, error) {
	var summary types.DeletionSummary
	err := s.tx.InTx(ctx, func(repos Repositories) error {
		notes, err := repos.Notes.DeleteByAuthor(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("delete notes: %w", err)
		}
		tasks, err := repos.Tasks.DeleteByAuthor(ctx, user.ID)
		if err != nil {
			return fmt.Errorf("delete tasks: %w", err)
		}
		if err := repos.Users.Delete(ctx, user.ID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		summary = types.DeletionSummary{Notes: notes, Tasks: tasks}
		return nil
	})
	if err != nil {
		return types.DeletionSummary{}, err
	}

	notify(ctx, s.events, types.Event{Kind: types.EventUserDeleted, SubjectID: user.ID, Deleted: &summary})
	return summary, nil
}

func found(user types.User, err error) (types.User, bool, error) {
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.User{}, false, nil
		}
		return types.User{}, false, err
	}
	return user, true, nil
}
