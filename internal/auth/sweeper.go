package auth

import (
	"context"
	"time"

	"github.com/lws803/soul/internal/domain/repository"
	"github.com/lws803/soul/internal/metrics"
	"github.com/lws803/soul/internal/observability/logger"
)

// Sweeper borra periódicamente las filas de refresh tokens vencidas o
// revocadas. La validez ya la garantizan los chequeos del refresh, el sweep
// sólo evita que la tabla crezca sin límite.
type Sweeper struct {
	tokens   repository.RefreshTokenRepository
	interval time.Duration
}

// NewSweeper crea el sweeper con el intervalo configurado.
func NewSweeper(tokens repository.RefreshTokenRepository, interval time.Duration) *Sweeper {
	return &Sweeper{tokens: tokens, interval: interval}
}

// Run ejecuta el ciclo de sweep hasta que el contexto se cancele.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				// Un sweep fallido no tumba el proceso, se reintenta
				// en el próximo tick.
				logger.From(ctx).Warn("token sweep failed",
					logger.Component("auth.sweeper"), logger.Err(err))
			}
		}
	}
}

// RunOnce hace una pasada de sweep.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	n, err := s.tokens.DeleteExpiredOrRevoked(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.From(ctx).Info("swept refresh tokens",
			logger.Component("auth.sweeper"), logger.Count(n))
		metrics.TokensSwept.Add(float64(n))
	}
	return nil
}
