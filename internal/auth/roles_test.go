package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lws803/soul/internal/domain/types"
)

func TestSetRolesRevokesSessions(t *testing.T) {
	env := newTestEnv(false)
	svc := NewRolesService(env.memberships, env.tokens)
	ctx := context.Background()

	login, err := env.svc.LoginWithPlatform(ctx, env.activeUser(), fixturePlatformID)
	require.NoError(t, err)

	require.NoError(t, svc.SetRoles(ctx, 101, []types.UserRole{types.RoleAdmin, types.RoleMember}))

	membership, err := env.memberships.GetByID(ctx, 101)
	require.NoError(t, err)
	assert.Equal(t, []types.UserRole{types.RoleAdmin, types.RoleMember}, membership.Roles)

	// El refresh token previo al cambio quedó revocado.
	pid := fixturePlatformID
	_, err = env.svc.Refresh(ctx, login.RefreshToken, &pid)
	require.ErrorIs(t, err, ErrRefreshTokenRevoked)
}

func TestSetRolesRefusesLastAdminDemotion(t *testing.T) {
	env := newTestEnv(false)
	svc := NewRolesService(env.memberships, env.tokens)
	ctx := context.Background()

	// La membresía 100 es el único admin del hub.
	err := svc.SetRoles(ctx, 100, []types.UserRole{types.RoleMember})
	require.ErrorIs(t, err, ErrLastAdmin)

	// Con un segundo admin la degradación pasa.
	require.NoError(t, env.memberships.UpdateRoles(ctx, 101, nil))
	env.memberships.byID[102] = &types.PlatformUser{ID: 102, UserID: 11, PlatformID: fixtureHubID,
		Roles: []types.UserRole{types.RoleAdmin}}
	require.NoError(t, svc.SetRoles(ctx, 100, []types.UserRole{types.RoleMember}))
}

func TestSetRolesValidation(t *testing.T) {
	env := newTestEnv(false)
	svc := NewRolesService(env.memberships, env.tokens)
	ctx := context.Background()

	require.ErrorIs(t, svc.SetRoles(ctx, 101, []types.UserRole{"superuser"}), ErrInvalidRole)
	require.ErrorIs(t, svc.SetRoles(ctx, 999, []types.UserRole{types.RoleMember}), ErrPlatformUserNotFound)
}
