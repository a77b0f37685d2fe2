package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lws803/soul/internal/auth"
	"github.com/lws803/soul/internal/domain/types"
	"github.com/lws803/soul/internal/token"
)

// RouterDeps son las dependencias del router.
type RouterDeps struct {
	Controller *AuthController
	Guard      *auth.Guard
	Codec      *token.Codec

	// Healthcheck de dependencias (DB, cache). Nil se reporta ok.
	Ping func(r *http.Request) error
}

// NewRouter arma el router con la cadena de middlewares estándar.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(WithRequestID)
	r.Use(WithRecover)
	r.Use(WithAccessLog)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", deps.Controller.Login)
		r.Post("/verify", deps.Controller.Verify)
		r.Post("/refresh", deps.Controller.Refresh)

		// El code y el logout requieren identidad ya autenticada.
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(deps.Codec))
			r.Post("/code", deps.Controller.Code)
			r.Post("/logout", deps.Controller.Logout)
		})
	})

	r.Route("/platforms/{platformID}/users/{platformUserID}", func(r chi.Router) {
		r.Use(BearerAuth(deps.Codec))
		r.Use(RequireRoles(deps.Guard, platformFromPath, string(types.RoleAdmin)))
		r.Put("/roles", deps.Controller.SetRoles)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if deps.Ping != nil {
			if err := deps.Ping(req); err != nil {
				WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
