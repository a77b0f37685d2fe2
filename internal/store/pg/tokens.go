package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lws803/soul/internal/domain/repository"
	"github.com/lws803/soul/internal/domain/types"
)

type tokenRepo struct{ pool *pgxpool.Pool }

// Verificar que implementa la interfaz
var _ repository.RefreshTokenRepository = (*tokenRepo)(nil)

// Create inserta un refresh token nuevo.
func (r *tokenRepo) Create(ctx context.Context, input repository.CreateRefreshTokenInput) (*repository.RefreshToken, error) {
	const q = `
INSERT INTO refresh_tokens (user_id, platform_user_id, is_revoked, expires, created_at, updated_at)
VALUES ($1, $2, false, $3, now(), now())
RETURNING id, user_id, platform_user_id, is_revoked, expires, created_at, updated_at`

	expires := time.Now().UTC().Add(input.TTL)
	var rt repository.RefreshToken
	err := r.pool.QueryRow(ctx, q, input.UserID, input.PlatformUserID, expires).Scan(
		&rt.ID, &rt.UserID, &rt.PlatformUserID, &rt.IsRevoked, &rt.Expires, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("pg: create refresh token: %w", err)
	}
	return &rt, nil
}

// GetByID busca un token por id, resolviendo usuario y membresía (eager).
func (r *tokenRepo) GetByID(ctx context.Context, id int64) (*repository.RefreshToken, error) {
	const q = `
SELECT t.id, t.user_id, t.platform_user_id, t.is_revoked, t.expires, t.created_at, t.updated_at,
       u.id, u.email, u.username, u.password_hash, u.is_active,
       pu.id, pu.user_id, pu.platform_id, pu.roles
FROM refresh_tokens t
JOIN users u ON u.id = t.user_id
LEFT JOIN platform_users pu ON pu.id = t.platform_user_id
WHERE t.id = $1
LIMIT 1`

	var (
		rt repository.RefreshToken
		u  types.User

		puID         *int64
		puUserID     *int64
		puPlatformID *int64
		puRoles      []string
	)

	err := r.pool.QueryRow(ctx, q, id).Scan(
		&rt.ID, &rt.UserID, &rt.PlatformUserID, &rt.IsRevoked, &rt.Expires, &rt.CreatedAt, &rt.UpdatedAt,
		&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsActive,
		&puID, &puUserID, &puPlatformID, &puRoles,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: get refresh token: %w", err)
	}

	rt.User = &u
	if puID != nil {
		rt.PlatformUser = &types.PlatformUser{
			ID:         *puID,
			UserID:     *puUserID,
			PlatformID: *puPlatformID,
			Roles:      toUserRoles(puRoles),
		}
	}
	return &rt, nil
}

// RevokeByID revoca condicionalmente: sólo gana quien encuentra la fila
// sin revocar. Cierra el race de dos refresh concurrentes con rotación.
func (r *tokenRepo) RevokeByID(ctx context.Context, id int64) (bool, error) {
	const q = `
UPDATE refresh_tokens SET is_revoked = true, updated_at = now()
WHERE id = $1 AND is_revoked = false`

	tag, err := r.pool.Exec(ctx, q, id)
	if err != nil {
		return false, fmt.Errorf("pg: revoke refresh token: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RevokeBySelector revoca todas las filas del (usuario, membresía).
// PlatformUserID nil selecciona sólo filas sin plataforma.
func (r *tokenRepo) RevokeBySelector(ctx context.Context, sel repository.RefreshTokenSelector) (int64, error) {
	q, args := selectorClause(
		`UPDATE refresh_tokens SET is_revoked = true, updated_at = now() WHERE is_revoked = false AND `, sel)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("pg: revoke by selector: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteBySelector borra las filas del (usuario, membresía).
func (r *tokenRepo) DeleteBySelector(ctx context.Context, sel repository.RefreshTokenSelector) (int64, error) {
	q, args := selectorClause(`DELETE FROM refresh_tokens WHERE `, sel)
	tag, err := r.pool.Exec(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("pg: delete by selector: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteExpiredOrRevoked borra vencidos y revocados. El filtro es por
// condición, así que es seguro correrlo concurrente con logins.
func (r *tokenRepo) DeleteExpiredOrRevoked(ctx context.Context) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE expires <= now() OR is_revoked = true`
	tag, err := r.pool.Exec(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("pg: sweep refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

func selectorClause(prefix string, sel repository.RefreshTokenSelector) (string, []any) {
	if sel.PlatformUserID == nil {
		return prefix + `user_id = $1 AND platform_user_id IS NULL`, []any{sel.UserID}
	}
	return prefix + `user_id = $1 AND platform_user_id = $2`, []any{sel.UserID, *sel.PlatformUserID}
}

func toUserRoles(raw []string) []types.UserRole {
	if len(raw) == 0 {
		return nil
	}
	out := make([]types.UserRole, 0, len(raw))
	for _, r := range raw {
		out = append(out, types.UserRole(r))
	}
	return out
}
