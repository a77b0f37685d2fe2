package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lws803/soul/internal/auth"
	"github.com/lws803/soul/internal/observability/logger"
	"github.com/lws803/soul/internal/token"
)

type claimsKey struct{}

// ClaimsFrom extrae los access claims que dejó el middleware de bearer.
func ClaimsFrom(ctx context.Context) (*token.AccessClaims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*token.AccessClaims)
	return claims, ok
}

// statusRecorder captura el status final para el log de acceso.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// WithRequestID asigna un request id y propaga un logger scoped al contexto.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get("X-Request-ID")
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)

		log := logger.With(logger.RequestID(rid))
		next.ServeHTTP(w, r.WithContext(logger.ToContext(r.Context(), log)))
	})
}

// WithAccessLog loguea cada request con método, path, status y duración.
func WithAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.From(r.Context()).Info("request",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Status(rec.status),
			logger.Duration(time.Since(start)),
		)
	})
}

// WithRecover convierte panics en 500 sin tumbar el server.
func WithRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logger.From(r.Context()).Error("panic recovered",
					logger.Path(r.URL.Path), logger.String("panic", toString(rec)))
				WriteError(w, errInternal)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if err, ok := v.(error); ok {
		return err.Error()
	}
	return "unknown panic"
}

// BearerAuth verifica el access token y deja los claims en el contexto.
// Rechaza tokens firmados pero con otro discriminador (refresh, client).
func BearerAuth(codec *token.Codec) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			const prefix = "Bearer "
			if !strings.HasPrefix(raw, prefix) {
				WriteError(w, errUnauthorized)
				return
			}

			claims, err := codec.VerifyAccess(strings.TrimSpace(raw[len(prefix):]))
			if err != nil || claims.TokenType != token.TypeAccess {
				WriteError(w, errUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(claims.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles exige que el token autorice los roles dados sobre la
// plataforma que resuelve resolvePlatform (por ejemplo del path).
func RequireRoles(guard *auth.Guard, resolvePlatform func(*http.Request) (int64, error), required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFrom(r.Context())
			if !ok {
				WriteError(w, errUnauthorized)
				return
			}
			platformID, err := resolvePlatform(r)
			if err != nil {
				WriteError(w, errBadRequest.WithDetail("invalid platform id"))
				return
			}
			if err := guard.Check(r.Context(), claims, platformID, toRoles(required)...); err != nil {
				writeAuthError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
