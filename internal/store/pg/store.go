// Package pg implementa los repositorios del dominio sobre PostgreSQL (pgx).
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lws803/soul/internal/domain/repository"
)

// Store agrupa el pool y expone los repositorios.
type Store struct {
	pool *pgxpool.Pool
}

// Options tuning opcional del pool.
type Options struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime string
}

// New crea un Store conectado al DSN dado.
func New(ctx context.Context, dsn string, opts Options) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}

	if opts.MaxOpenConns > 0 {
		pcfg.MaxConns = int32(opts.MaxOpenConns)
	}
	// Mapear MaxIdleConns → MinConns (pgxpool)
	if opts.MaxIdleConns > 0 {
		pcfg.MinConns = int32(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime != "" {
		if d, err := time.ParseDuration(opts.ConnMaxLifetime); err == nil {
			pcfg.MaxConnLifetime = d
			pcfg.MaxConnIdleTime = d
		}
	}
	if pcfg.MaxConns == 0 {
		pcfg.MaxConns = 10
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Users retorna el repositorio de usuarios.
func (s *Store) Users() repository.UserRepository { return &userRepo{pool: s.pool} }

// Platforms retorna el repositorio de plataformas.
func (s *Store) Platforms() repository.PlatformRepository { return &platformRepo{pool: s.pool} }

// PlatformUsers retorna el repositorio de membresías.
func (s *Store) PlatformUsers() repository.PlatformUserRepository {
	return &platformUserRepo{pool: s.pool}
}

// RefreshTokens retorna el repositorio de refresh tokens.
func (s *Store) RefreshTokens() repository.RefreshTokenRepository {
	return &tokenRepo{pool: s.pool}
}

// Pool expone el pool interno (migraciones/health checks).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

// Ping verifica la conexión.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close cierra el pool subyacente (idempotente).
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}
