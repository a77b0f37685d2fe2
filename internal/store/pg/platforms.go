package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lws803/soul/internal/domain/repository"
	"github.com/lws803/soul/internal/domain/types"
)

type platformRepo struct{ pool *pgxpool.Pool }

var _ repository.PlatformRepository = (*platformRepo)(nil)

// GetByID busca una plataforma por id.
func (r *platformRepo) GetByID(ctx context.Context, id int64) (*types.Platform, error) {
	const q = `
SELECT id, name, name_handle, redirect_uris, homepage_url
FROM platforms WHERE id = $1 LIMIT 1`

	var p types.Platform
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Name, &p.NameHandle, &p.RedirectURIs, &p.HomepageURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: get platform: %w", err)
	}
	return &p, nil
}

type platformUserRepo struct{ pool *pgxpool.Pool }

var _ repository.PlatformUserRepository = (*platformUserRepo)(nil)

const platformUserColumns = `id, user_id, platform_id, roles`

func scanPlatformUser(row pgx.Row) (*types.PlatformUser, error) {
	var pu types.PlatformUser
	var roles []string
	if err := row.Scan(&pu.ID, &pu.UserID, &pu.PlatformID, &roles); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: scan platform user: %w", err)
	}
	pu.Roles = toUserRoles(roles)
	return &pu, nil
}

// GetByID busca una membresía por id.
func (r *platformUserRepo) GetByID(ctx context.Context, id int64) (*types.PlatformUser, error) {
	const q = `SELECT ` + platformUserColumns + ` FROM platform_users WHERE id = $1 LIMIT 1`
	return scanPlatformUser(r.pool.QueryRow(ctx, q, id))
}

// GetByUserAndPlatform busca la membresía de un usuario en una plataforma.
func (r *platformUserRepo) GetByUserAndPlatform(ctx context.Context, userID, platformID int64) (*types.PlatformUser, error) {
	const q = `SELECT ` + platformUserColumns + ` FROM platform_users
WHERE user_id = $1 AND platform_id = $2 LIMIT 1`
	return scanPlatformUser(r.pool.QueryRow(ctx, q, userID, platformID))
}

// ListByPlatformAndRole lista membresías de una plataforma con el rol dado.
func (r *platformUserRepo) ListByPlatformAndRole(ctx context.Context, platformID int64, role types.UserRole) ([]types.PlatformUser, error) {
	const q = `SELECT ` + platformUserColumns + ` FROM platform_users
WHERE platform_id = $1 AND $2 = ANY(roles)
ORDER BY id`

	rows, err := r.pool.Query(ctx, q, platformID, string(role))
	if err != nil {
		return nil, fmt.Errorf("pg: list platform users: %w", err)
	}
	defer rows.Close()

	var out []types.PlatformUser
	for rows.Next() {
		var pu types.PlatformUser
		var roles []string
		if err := rows.Scan(&pu.ID, &pu.UserID, &pu.PlatformID, &roles); err != nil {
			return nil, fmt.Errorf("pg: scan platform user: %w", err)
		}
		pu.Roles = toUserRoles(roles)
		out = append(out, pu)
	}
	return out, rows.Err()
}

// UpdateRoles reemplaza los roles de una membresía.
func (r *platformUserRepo) UpdateRoles(ctx context.Context, id int64, roles []types.UserRole) error {
	raw := make([]string, 0, len(roles))
	for _, ro := range roles {
		raw = append(raw, string(ro))
	}

	const q = `UPDATE platform_users SET roles = $2, updated_at = now() WHERE id = $1`
	tag, err := r.pool.Exec(ctx, q, id, raw)
	if err != nil {
		return fmt.Errorf("pg: update roles: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
