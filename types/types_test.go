package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPage(t *testing.T) {
	page := NewPage[int](nil, 1, DefaultPageSize, 0)
	assert.NotNil(t, page.Items)
	assert.Equal(t, 0, page.TotalPages)

	page = NewPage([]int{1, 2}, 3, 10, 21)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 3, page.Page)
}

func TestOffset(t *testing.T) {
	assert.Equal(t, 0, Offset(1, 10))
	assert.Equal(t, 20, Offset(3, 10))
	assert.Equal(t, 0, Offset(0, 10))
	assert.Equal(t, (MaxPage-1)*DefaultPageSize, Offset(MaxPage, DefaultPageSize))
	assert.Equal(t, math.MaxInt, Offset(math.MaxInt, DefaultPageSize))
}

func TestNormalizeRoles(t *testing.T) {
	assert.Equal(t, []Role{RoleUser}, NormalizeRoles(nil))
	assert.Equal(t, []Role{RoleAdmin, RoleUser}, NormalizeRoles([]Role{RoleAdmin, RoleAdmin, "ROLE_ROOT"}))
}

func TestUserIsAdmin(t *testing.T) {
	assert.False(t, User{Roles: []Role{RoleUser}}.IsAdmin())
	assert.True(t, User{Roles: []Role{RoleUser, RoleAdmin}}.IsAdmin())
}

func TestDeletionSummaryTotal(t *testing.T) {
	assert.Equal(t, int64(6), DeletionSummary{Notes: 3, Tasks: 2}.Total())
}
