package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterHashesPassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	user, err := f.users.Register(ctx, types.User{Email: " Carol@Example.com "}, "p@55w0rd")
	require.NoError(t, err)

	assert.Equal(t, "carol@example.com", user.Email)
	assert.Equal(t, []types.Role{types.RoleUser}, user.Roles)
	assert.NotEqual(t, "p@55w0rd", user.PasswordHash)

	stored, found, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, found)
	ok, err := auth.CheckPassword("p@55w0rd", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRegisterIgnoresRequestedRoles(t *testing.T) {
	f := newFixture()

	user, err := f.users.Register(context.Background(), types.User{
		Email: "mallory@example.com",
		Roles: []types.Role{types.RoleAdmin},
	}, "secret-password")
	require.NoError(t, err)
	assert.False(t, user.IsAdmin())
}

func TestRegisterDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.user(t, "dave@example.com")

	_, err := f.users.Register(ctx, types.User{Email: "DAVE@example.com"}, "another-password")
	assert.ErrorIs(t, err, services.ErrEmailTaken)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	registered := f.user(t, "erin@example.com")

	user, err := f.users.Authenticate(ctx, "ERIN@example.com", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = f.users.Authenticate(ctx, "erin@example.com", "wrong")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)

	_, err = f.users.Authenticate(ctx, "nobody@example.com", "secret-password")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
}

func TestAuthenticateUpgradesLegacyHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := f.user(t, "frank@example.com")

	legacy, err := bcrypt.GenerateFromPassword([]byte("old-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	user.PasswordHash = string(legacy)
	_, err = f.users.Save(ctx, user)
	require.NoError(t, err)

	authenticated, err := f.users.Authenticate(ctx, "frank@example.com", "old-secret")
	require.NoError(t, err)
	assert.False(t, auth.NeedsRehash(authenticated.PasswordHash))

	stored, _, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, auth.NeedsRehash(stored.PasswordHash))
	ok, err := auth.CheckPassword("old-secret", stored.PasswordHash)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticateSurvivesFailedUpgrade(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := f.user(t, "grace@example.com")

	legacy, err := bcrypt.GenerateFromPassword([]byte("old-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	user.PasswordHash = string(legacy)
	_, err = f.users.Save(ctx, user)
	require.NoError(t, err)

	f.mem.FailOn("users.Update", errors.New("read-only replica"))
	authenticated, err := f.users.Authenticate(ctx, "grace@example.com", "old-secret")
	require.NoError(t, err)
	assert.Equal(t, user.ID, authenticated.ID)
}

func TestSaveKeepsRoleUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := f.user(t, "heidi@example.com")

	user.Roles = []types.Role{types.RoleAdmin}
	saved, err := f.users.Save(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []types.Role{types.RoleAdmin, types.RoleUser}, saved.Roles)
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := f.user(t, "ivan@example.com")

	_, err := f.users.ChangePassword(ctx, user, "brand-new-secret")
	require.NoError(t, err)

	_, err = f.users.Authenticate(ctx, "ivan@example.com", "secret-password")
	assert.ErrorIs(t, err, services.ErrInvalidCredentials)
	_, err = f.users.Authenticate(ctx, "ivan@example.com", "brand-new-secret")
	assert.NoError(t, err)
}

func TestUpdateChangesPasswordWithAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := f.user(t, "judy@example.com")

	user.Email = "judith@example.com"
	user.Roles = []types.Role{types.RoleUser, types.RoleAdmin}
	updated, err := f.users.Update(ctx, user, "judith's new secret")
	require.NoError(t, err)
	assert.True(t, updated.IsAdmin())

	_, err = f.users.Authenticate(ctx, "judith@example.com", "judith's new secret")
	assert.NoError(t, err)
}

func TestUpdateFailureLeavesAccountUntouched(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	user := f.user(t, "bob@example.com")

	edited := user
	edited.Email = "robert@example.com"
	edited.Roles = []types.Role{types.RoleUser, types.RoleAdmin}
	f.mem.FailOn("users.Update", errors.New("boom"))
	_, err := f.users.Update(ctx, edited, "new password 123")
	require.Error(t, err)
	f.mem.FailOn("users.Update", nil)

	stored, found, err := f.users.FindByID(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "bob@example.com", stored.Email)
	assert.False(t, stored.IsAdmin())
	assert.Equal(t, user.PasswordHash, stored.PasswordHash)
}

func TestDeleteWithDependentsRemovesEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")
	general := f.category(t, "General")

	for i := 0; i < 3; i++ {
		f.note(t, alice, general, "note")
	}
	for i := 0; i < 2; i++ {
		f.task(t, alice, general, "task")
	}
	bobsNote := f.note(t, bob, general, "bob's")

	summary, err := f.users.DeleteWithDependents(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, types.DeletionSummary{Notes: 3, Tasks: 2}, summary)
	assert.Equal(t, int64(6), summary.Total())

	_, found, err := f.users.FindByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.False(t, found)

	notes, err := f.notes.ListPaginated(ctx, 1, alice)
	require.NoError(t, err)
	assert.Zero(t, notes.Total)
	tasks, err := f.tasks.ListPaginated(ctx, 1, alice)
	require.NoError(t, err)
	assert.Zero(t, tasks.Total)

	_, found, err = f.notes.FindByID(ctx, bobsNote.ID)
	require.NoError(t, err)
	assert.True(t, found, "other users' notes are untouched")

	last, ok := f.events.Last()
	require.True(t, ok)
	assert.Equal(t, types.EventUserDeleted, last.Kind)
	require.NotNil(t, last.Deleted)
	assert.Equal(t, int64(3), last.Deleted.Notes)
}

func TestDeleteWithDependentsRollsBackOnFailure(t *testing.T) {
	for _, op := range []string{"tasks.DeleteByAuthor", "users.Delete"} {
		t.Run(op, func(t *testing.T) {
			ctx := context.Background()
			f := newFixture()
			alice := f.user(t, "alice@example.com")
			general := f.category(t, "General")
			f.note(t, alice, general, "note")
			f.task(t, alice, general, "task")

			f.mem.FailOn(op, errors.New("disk full"))
			_, err := f.users.DeleteWithDependents(ctx, alice)
			require.Error(t, err)

			_, found, err := f.users.FindByID(ctx, alice.ID)
			require.NoError(t, err)
			assert.True(t, found)

			_, notes, tasks, _ := f.mem.Counts()
			assert.Equal(t, 1, notes)
			assert.Equal(t, 1, tasks)
			assert.NotContains(t, f.events.Kinds(), types.EventUserDeleted)
		})
	}
}

func TestListUsersNewestFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	first := f.user(t, "first@example.com")
	second := f.user(t, "second@example.com")

	page, err := f.users.ListPaginated(ctx, 1)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.Equal(t, second.ID, page.Items[0].ID)
	assert.Equal(t, first.ID, page.Items[1].ID)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture()
	f.events.Err = errors.New("broker unreachable")

	_, err := f.categories.Save(context.Background(), types.Category{Title: "Resilient"})
	assert.NoError(t, err)
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Hello World":       "hello-world",
		"  many   spaces  ": "many-spaces",
		"Ça va? Très bien!": "ca-va-tres-bien",
		"---":               "",
		"a--b":              "a-b",
	}
	for in, want := range tests {
		assert.Equal(t, want, services.Slugify(in), in)
	}
}
