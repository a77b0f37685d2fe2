package repository

import (
	"context"
	"time"

	"github.com/lws803/soul/internal/domain/types"
)

// RefreshToken representa un refresh token persistido.
//
// PlatformUserID nil significa sesión directa (sin plataforma). Una fila por
// sesión: el login borra la fila anterior del mismo scope antes de crear la
// nueva, así que por usuario hay a lo sumo una sesión directa y una por
// membresía.
type RefreshToken struct {
	ID             int64
	UserID         int64
	PlatformUserID *int64
	IsRevoked      bool
	Expires        time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Resueltos por GetByID (eager).
	User         *types.User
	PlatformUser *types.PlatformUser
}

// CreateRefreshTokenInput contiene los datos para crear un refresh token.
type CreateRefreshTokenInput struct {
	UserID         int64
	PlatformUserID *int64
	TTL            time.Duration
}

// RefreshTokenSelector selecciona filas por (usuario, membresía).
// PlatformUserID nil selecciona sólo las filas sin plataforma.
type RefreshTokenSelector struct {
	UserID         int64
	PlatformUserID *int64
}

// RefreshTokenRepository define la persistencia de refresh tokens.
type RefreshTokenRepository interface {
	// Create inserta una fila nueva con is_revoked=false y
	// expires = now + ttl.
	Create(ctx context.Context, input CreateRefreshTokenInput) (*RefreshToken, error)

	// GetByID busca un token por id resolviendo el usuario dueño y la
	// membresía (si aplica). Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id int64) (*RefreshToken, error)

	// RevokeByID marca is_revoked=true sólo si la fila no estaba revocada.
	// Retorna true si esta llamada fue la que revocó (control del race de
	// rotación concurrente).
	RevokeByID(ctx context.Context, id int64) (bool, error)

	// RevokeBySelector marca is_revoked=true para todas las filas del
	// selector. Retorna cuántas filas cambiaron. Idempotente.
	RevokeBySelector(ctx context.Context, sel RefreshTokenSelector) (int64, error)

	// DeleteBySelector borra las filas del selector. Usado por el login
	// para garantizar sesión única por scope.
	DeleteBySelector(ctx context.Context, sel RefreshTokenSelector) (int64, error)

	// DeleteExpiredOrRevoked borra filas con expires <= now o revocadas.
	// Seguro de correr concurrente con logins: el filtro es por condición,
	// no por snapshot.
	DeleteExpiredOrRevoked(ctx context.Context) (int64, error)
}
