package auth

import (
	"context"

	"github.com/lws803/soul/internal/domain/repository"
	"github.com/lws803/soul/internal/domain/types"
	"github.com/lws803/soul/internal/observability/logger"
)

// RolesService administra los roles de las membresías. Separado del flow
// engine: acá no se emiten tokens, sólo se cambian roles y se revocan
// las sesiones afectadas.
type RolesService struct {
	platformUsers repository.PlatformUserRepository
	tokens        repository.RefreshTokenRepository
}

// NewRolesService crea el servicio de roles.
func NewRolesService(platformUsers repository.PlatformUserRepository, tokens repository.RefreshTokenRepository) *RolesService {
	return &RolesService{platformUsers: platformUsers, tokens: tokens}
}

// SetRoles reemplaza los roles de una membresía.
//
// Invariantes:
//   - una plataforma no puede quedarse sin admins: quitarle admin al último
//     admin retorna ErrLastAdmin.
//   - cambiar roles revoca las sesiones de esa membresía, para que ningún
//     refresh token siga acuñando access tokens con los roles viejos.
func (s *RolesService) SetRoles(ctx context.Context, platformUserID int64, roles []types.UserRole) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.roles"),
		logger.Op("SetRoles"),
		logger.PlatformUserID(platformUserID),
	)

	for _, r := range roles {
		if !r.IsValid() {
			return ErrInvalidRole
		}
	}

	membership, err := s.platformUsers.GetByID(ctx, platformUserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return ErrPlatformUserNotFound
		}
		return err
	}

	// Degradar de admin sólo si queda otro admin en la plataforma.
	if types.HasRole(membership.Roles, types.RoleAdmin) && !types.HasRole(roles, types.RoleAdmin) {
		admins, err := s.platformUsers.ListByPlatformAndRole(ctx, membership.PlatformID, types.RoleAdmin)
		if err != nil {
			return err
		}
		if len(admins) <= 1 {
			log.Info("refused to demote last admin", logger.PlatformID(membership.PlatformID))
			return ErrLastAdmin
		}
	}

	if err := s.platformUsers.UpdateRoles(ctx, platformUserID, roles); err != nil {
		if repository.IsNotFound(err) {
			return ErrPlatformUserNotFound
		}
		return err
	}

	sel := repository.RefreshTokenSelector{UserID: membership.UserID, PlatformUserID: &membership.ID}
	n, err := s.tokens.RevokeBySelector(ctx, sel)
	if err != nil {
		return err
	}

	log.Info("roles updated", logger.Count(n))
	return nil
}
