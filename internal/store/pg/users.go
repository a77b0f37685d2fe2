package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lws803/soul/internal/domain/repository"
	"github.com/lws803/soul/internal/domain/types"
)

type userRepo struct{ pool *pgxpool.Pool }

var _ repository.UserRepository = (*userRepo)(nil)

const userColumns = `id, email, username, password_hash, is_active`

func scanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	if err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("pg: scan user: %w", err)
	}
	return &u, nil
}

// GetByID busca un usuario por id.
func (r *userRepo) GetByID(ctx context.Context, id int64) (*types.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, q, id))
}

// GetByEmail busca un usuario por email (case-insensitive).
func (r *userRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	const q = `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1 LIMIT 1`
	return scanUser(r.pool.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(email))))
}
