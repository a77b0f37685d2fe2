package auth

import (
	"context"
	"time"

	"github.com/lws803/soul/internal/cache"
	tokens "github.com/lws803/soul/internal/security/token"
)

// pkceNamespace separa los challenges de otros usos del mismo cache.
const pkceNamespace = "pkce:"

// ChallengeCache guarda los PKCE challenges entre la emisión del code y el
// exchange. Las entradas son single-use: Take borra siempre, incluso si la
// verificación posterior falla, para impedir replay de un challenge viejo.
type ChallengeCache struct {
	cache cache.Client
	ttl   time.Duration
}

// NewChallengeCache crea el cache de challenges con el TTL configurado.
func NewChallengeCache(c cache.Client, ttl time.Duration) *ChallengeCache {
	return &ChallengeCache{cache: c, ttl: ttl}
}

// NewKey genera una lookup key opaca fresca para un challenge.
func (p *ChallengeCache) NewKey() (string, error) {
	return tokens.GenerateOpaqueToken(32)
}

// Put guarda el challenge bajo la key.
func (p *ChallengeCache) Put(ctx context.Context, key, challenge string) error {
	return p.cache.Set(ctx, pkceNamespace+key, challenge, p.ttl)
}

// Take obtiene el challenge y borra la entrada incondicionalmente.
// Retorna ok=false si no existe (expirado o ya consumido).
func (p *ChallengeCache) Take(ctx context.Context, key string) (string, bool, error) {
	challenge, err := p.cache.Get(ctx, pkceNamespace+key)
	if err != nil {
		if cache.IsNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	if err := p.cache.Delete(ctx, pkceNamespace+key); err != nil {
		return "", false, err
	}
	return challenge, true, nil
}
