package service

import (
	"context"
	"strconv"
	"testing"

	"roombook/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUsers(t *testing.T, defaultRole string) (*UserService, *bookingEnv) {
	t.Helper()
	env := setupBooking(t)
	logger := zerolog.Nop()
	return NewUserService(env.db, defaultRole, &logger), env
}

func TestUserService_RegisterUsesDefaultRole(t *testing.T) {
	svc, _ := setupUsers(t, "")
	ctx := context.Background()

	user, err := svc.Register(ctx, " New.Prof@School.Test ", "New Prof")
	require.NoError(t, err)
	assert.Equal(t, "new.prof@school.test", user.Email)
	assert.Equal(t, models.RoleProfessor, user.Role)

	adminSvc, _ := setupUsers(t, models.RoleAdmin)
	admin, err := adminSvc.Register(ctx, "boss@school.test", "Boss")
	require.NoError(t, err)
	assert.True(t, admin.IsAdmin())
}

func TestUserService_CreateUserValidation(t *testing.T) {
	svc, env := setupUsers(t, "")
	ctx := context.Background()

	tests := []struct {
		name string
		user models.User
	}{
		{"bad email", models.User{Email: "not-an-email", Name: "X"}},
		{"display name form", models.User{Email: "Bob <bob@school.test>", Name: "Bob"}},
		{"missing name", models.User{Email: "noname@school.test", Name: "  "}},
		{"unknown role", models.User{Email: "r@school.test", Name: "R", Role: "STUDENT"}},
		{"duplicate", models.User{Email: env.owner.Email, Name: "Dup"}},
		{"duplicate different case", models.User{Email: "OWNER@school.test", Name: "Dup"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateUser(ctx, tt.user)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestUserService_FindUser(t *testing.T) {
	svc, env := setupUsers(t, "")
	ctx := context.Background()

	byID, err := svc.FindUser(ctx, strconv.FormatInt(env.other.ID, 10))
	require.NoError(t, err)
	assert.Equal(t, env.other.Email, byID.Email)

	byEmail, err := svc.FindUser(ctx, "Admin@School.test")
	require.NoError(t, err)
	assert.Equal(t, env.admin.ID, byEmail.ID)

	_, err = svc.FindUser(ctx, "nobody@school.test")
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "user", nf.Resource)

	users, err := svc.GetAllUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 3)
}

func TestUserService_DeleteUser(t *testing.T) {
	svc, env := setupUsers(t, "")
	ctx := context.Background()

	_, err := env.svc.Create(ctx, env.request(env.slot, "2025-06-02", 10), requesterOf(env.owner))
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteUser(ctx, env.owner.ID), ErrInUse)
	require.NoError(t, svc.DeleteUser(ctx, env.other.ID))
	assert.ErrorIs(t, svc.DeleteUser(ctx, env.other.ID), ErrNotFound)
}

func TestUserService_Requester(t *testing.T) {
	svc, env := setupUsers(t, "")

	r := svc.Requester(env.owner, false)
	assert.Equal(t, env.owner.ID, r.UserID)
	assert.False(t, r.IsAdmin)

	assert.True(t, svc.Requester(env.owner, true).IsAdmin)
	assert.True(t, svc.Requester(env.admin, false).IsAdmin)
}
