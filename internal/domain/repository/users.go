package repository

import (
	"context"

	"github.com/lws803/soul/internal/domain/types"
)

// UserRepository expone lecturas sobre usuarios. El core de auth nunca
// escribe usuarios.
type UserRepository interface {
	// GetByID busca un usuario por id. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*types.User, error)

	// GetByEmail busca un usuario por email (normalizado a minúsculas).
	// Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*types.User, error)
}

// PlatformRepository expone lecturas sobre plataformas registradas.
type PlatformRepository interface {
	// GetByID busca una plataforma por id. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*types.Platform, error)
}

// PlatformUserRepository maneja las membresías usuario-plataforma.
type PlatformUserRepository interface {
	// GetByID busca una membresía por id. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*types.PlatformUser, error)

	// GetByUserAndPlatform busca la membresía de un usuario en una
	// plataforma. Retorna ErrNotFound si el usuario no se unió.
	GetByUserAndPlatform(ctx context.Context, userID, platformID int64) (*types.PlatformUser, error)

	// ListByPlatformAndRole lista las membresías de una plataforma que
	// tienen el rol dado.
	ListByPlatformAndRole(ctx context.Context, platformID int64, role types.UserRole) ([]types.PlatformUser, error)

	// UpdateRoles reemplaza los roles de una membresía.
	UpdateRoles(ctx context.Context, id int64, roles []types.UserRole) error
}
