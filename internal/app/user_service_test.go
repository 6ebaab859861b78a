package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffqa/internal/model"
)

func TestToggleAdmin(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t)
	ann := h.register(t, "ann@example.com")
	ctx := context.Background()

	updated, err := h.users.ToggleAdmin(ctx, admin, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, updated.Role)

	updated, err = h.users.ToggleAdmin(ctx, admin, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleEmployee, updated.Role)

	reloaded, err := h.userRepo.GetByID(ctx, ann.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoleEmployee, reloaded.Role)
}

func TestToggleAdminGuards(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t)
	ann := h.register(t, "ann@example.com")
	ctx := context.Background()

	_, err := h.users.ToggleAdmin(ctx, ann, admin.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = h.users.ToggleAdmin(ctx, admin, admin.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = h.users.ToggleAdmin(ctx, admin, 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	promoted, err := h.users.ToggleAdmin(ctx, admin, ann.ID)
	require.NoError(t, err)
	_, err = h.users.ToggleAdmin(ctx, promoted, admin.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestListUsersAndProfile(t *testing.T) {
	h := newHarness(t)
	admin := h.admin(t)
	ann := h.register(t, "ann@example.com")
	ctx := context.Background()

	_, err := h.chat.Ask(ctx, ann, "Where is the office?")
	require.NoError(t, err)

	users, err := h.users.ListUsers(ctx, admin)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, ann.ID, users[0].User.ID)
	assert.Equal(t, int64(1), users[0].QuestionCount)
	assert.True(t, users[1].PrimaryAdmin)

	_, err = h.users.ListUsers(ctx, ann)
	assert.ErrorIs(t, err, ErrForbidden)

	profile, err := h.users.Profile(ctx, ann)
	require.NoError(t, err)
	assert.Equal(t, int64(1), profile.QuestionCount)
}
