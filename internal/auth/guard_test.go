package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lws803/soul/internal/domain/types"
	"github.com/lws803/soul/internal/token"
)

func scopedClaims(userID, platformID int64, roles ...types.UserRole) *token.AccessClaims {
	return &token.AccessClaims{
		UserID:     userID,
		TokenType:  token.TypeAccess,
		PlatformID: &platformID,
		Roles:      roles,
	}
}

func TestGuardSamePlatform(t *testing.T) {
	env := newTestEnv(false)
	guard := NewGuard(env.memberships, fixtureHubID)
	ctx := context.Background()

	claims := scopedClaims(10, fixturePlatformID, types.RoleMember)

	require.NoError(t, guard.Check(ctx, claims, fixturePlatformID))
	require.NoError(t, guard.Check(ctx, claims, fixturePlatformID, types.RoleMember))
	require.ErrorIs(t, guard.Check(ctx, claims, fixturePlatformID, types.RoleAdmin), ErrNoPermission)
}

func TestGuardUnscopedToken(t *testing.T) {
	env := newTestEnv(false)
	guard := NewGuard(env.memberships, fixtureHubID)

	claims := &token.AccessClaims{UserID: 10, TokenType: token.TypeAccess}
	require.ErrorIs(t, guard.Check(context.Background(), claims, fixturePlatformID), ErrNoPermission)
}

func TestGuardForeignPlatform(t *testing.T) {
	env := newTestEnv(false)
	guard := NewGuard(env.memberships, fixtureHubID)

	// Token de la plataforma 2 sobre el hub: ni con roles embebidos.
	claims := scopedClaims(10, fixturePlatformID, types.RoleAdmin)
	require.ErrorIs(t, guard.Check(context.Background(), claims, fixtureHubID), ErrNoPermission)
}

func TestGuardHubIndirection(t *testing.T) {
	env := newTestEnv(false)
	guard := NewGuard(env.memberships, fixtureHubID)
	ctx := context.Background()

	// El token del hub lleva roles del hub (admin), pero sobre la
	// plataforma destino valen los roles vivos de esa membresía (member).
	claims := scopedClaims(10, fixtureHubID, types.RoleAdmin)

	require.NoError(t, guard.Check(ctx, claims, fixturePlatformID, types.RoleMember))
	require.ErrorIs(t, guard.Check(ctx, claims, fixturePlatformID, types.RoleAdmin), ErrNoPermission)

	// Promoción en el destino: el mismo token del hub ahora alcanza.
	require.NoError(t, env.memberships.UpdateRoles(ctx, 101, []types.UserRole{types.RoleAdmin}))
	require.NoError(t, guard.Check(ctx, claims, fixturePlatformID, types.RoleAdmin))
}

func TestGuardHubIndirectionWithoutMembership(t *testing.T) {
	env := newTestEnv(false)
	guard := NewGuard(env.memberships, fixtureHubID)

	// Usuario 11 no tiene membresía en la plataforma destino.
	claims := scopedClaims(11, fixtureHubID, types.RoleAdmin)
	require.ErrorIs(t, guard.Check(context.Background(), claims, fixturePlatformID), ErrNoPermission)
}

func TestGuardBannedRole(t *testing.T) {
	env := newTestEnv(false)
	guard := NewGuard(env.memberships, fixtureHubID)

	claims := scopedClaims(10, fixturePlatformID, types.RoleBanned, types.RoleMember)
	require.ErrorIs(t, guard.Check(context.Background(), claims, fixturePlatformID, types.RoleMember), ErrNoPermission)
}
