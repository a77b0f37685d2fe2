package auth

import (
	"context"

	"github.com/lws803/soul/internal/domain/repository"
	"github.com/lws803/soul/internal/domain/types"
	"github.com/lws803/soul/internal/observability/logger"
	"github.com/lws803/soul/internal/token"
)

// Guard decide si un access token autoriza una operación sobre una
// plataforma destino.
type Guard struct {
	platformUsers repository.PlatformUserRepository

	// hubPlatformID identifica la plataforma hub. Un token emitido por el
	// hub no congela roles de otras plataformas: los roles del destino se
	// resuelven en vivo contra la membresía.
	hubPlatformID int64
}

// NewGuard crea el guard de autorización.
func NewGuard(platformUsers repository.PlatformUserRepository, hubPlatformID int64) *Guard {
	return &Guard{platformUsers: platformUsers, hubPlatformID: hubPlatformID}
}

// Check valida que el token tenga alguno de los roles requeridos sobre la
// plataforma destino. Con required vacío alcanza con la membresía.
//
// Reglas:
//   - token scoped al destino: se usan los roles embebidos en el token.
//   - token scoped al hub: indirection, se consulta la membresía viva del
//     usuario en el destino y se evalúan esos roles.
//   - cualquier otro scope (incluido sin plataforma): ErrNoPermission.
func (g *Guard) Check(ctx context.Context, claims *token.AccessClaims, targetPlatformID int64, required ...types.UserRole) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.guard"),
		logger.Op("Check"),
		logger.UserID(claims.UserID),
		logger.PlatformID(targetPlatformID),
	)

	if claims.PlatformID == nil {
		return ErrNoPermission
	}

	roles := claims.Roles
	if *claims.PlatformID != targetPlatformID {
		if *claims.PlatformID != g.hubPlatformID {
			log.Info("token scoped to another platform")
			return ErrNoPermission
		}
		membership, err := g.platformUsers.GetByUserAndPlatform(ctx, claims.UserID, targetPlatformID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrNoPermission
			}
			return err
		}
		roles = membership.Roles
	}

	if types.HasRole(roles, types.RoleBanned) {
		return ErrNoPermission
	}
	if len(required) == 0 {
		return nil
	}
	if !types.RolesIntersect(roles, required) {
		log.Info("missing required role")
		return ErrNoPermission
	}
	return nil
}
