package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lws803/soul/internal/auth"
	"github.com/lws803/soul/internal/observability/logger"
)

// AppError es el error estándar de la API. El Code es estable de cara al
// cliente, el Message puede cambiar entre versiones.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
}

func (e *AppError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// WithDetail retorna una copia del error con detalle adicional.
func (e *AppError) WithDetail(detail string) *AppError {
	cp := *e
	cp.Detail = detail
	return &cp
}

var (
	errInvalidJSON          = &AppError{Code: "INVALID_JSON", Message: "Invalid JSON body", HTTPStatus: http.StatusBadRequest}
	errBadRequest           = &AppError{Code: "BAD_REQUEST", Message: "Bad request", HTTPStatus: http.StatusBadRequest}
	errUnauthorized         = &AppError{Code: "UNAUTHORIZED", Message: "Missing or invalid bearer token", HTTPStatus: http.StatusUnauthorized}
	errInternal             = &AppError{Code: "INTERNAL", Message: "Internal server error", HTTPStatus: http.StatusInternalServerError}
	errUnauthorizedUser     = &AppError{Code: "UNAUTHORIZED_USER", Message: "Invalid credentials", HTTPStatus: http.StatusUnauthorized}
	errUserNotVerified      = &AppError{Code: "USER_NOT_VERIFIED", Message: "User is not verified", HTTPStatus: http.StatusUnauthorized}
	errInvalidToken         = &AppError{Code: "INVALID_TOKEN", Message: "Invalid token", HTTPStatus: http.StatusUnauthorized}
	errInvalidCallback      = &AppError{Code: "INVALID_CALLBACK", Message: "Callback not registered for platform", HTTPStatus: http.StatusBadRequest}
	errInvalidCode          = &AppError{Code: "INVALID_CODE", Message: "Invalid or expired authorization code", HTTPStatus: http.StatusBadRequest}
	errPKCENotMatch         = &AppError{Code: "PKCE_NOT_MATCH", Message: "Code verifier does not match challenge", HTTPStatus: http.StatusUnauthorized}
	errNoPermission         = &AppError{Code: "NO_PERMISSION", Message: "Insufficient permissions", HTTPStatus: http.StatusForbidden}
	errPlatformUserNotFound = &AppError{Code: "PLATFORM_USER_NOT_FOUND", Message: "User has not joined this platform", HTTPStatus: http.StatusNotFound}
	errAdminRequired        = &AppError{Code: "ADMIN_REQUIRED", Message: "Platform requires at least one admin", HTTPStatus: http.StatusBadRequest}
	errInvalidRole          = &AppError{Code: "INVALID_ROLE", Message: "Unknown role", HTTPStatus: http.StatusBadRequest}
)

// mapAuthError traduce los errores de dominio del engine al AppError de la
// API. Cualquier error no mapeado es una falla de infraestructura: 500
// genérico, el detalle queda sólo en los logs.
func mapAuthError(err error) *AppError {
	switch {
	case errors.Is(err, auth.ErrUnauthorizedUser):
		return errUnauthorizedUser
	case errors.Is(err, auth.ErrUserNotVerified):
		return errUserNotVerified
	case errors.Is(err, auth.ErrPlatformUserNotFound):
		return errPlatformUserNotFound
	case errors.Is(err, auth.ErrInvalidCallback):
		return errInvalidCallback
	case errors.Is(err, auth.ErrInvalidCode):
		return errInvalidCode
	case errors.Is(err, auth.ErrPKCENotMatch):
		return errPKCENotMatch
	case errors.Is(err, auth.ErrNoPermission):
		return errNoPermission
	case errors.Is(err, auth.ErrLastAdmin):
		return errAdminRequired
	case errors.Is(err, auth.ErrInvalidRole):
		return errInvalidRole
	case errors.Is(err, auth.ErrInvalidToken):
		// La familia INVALID_TOKEN lleva el motivo en el mensaje.
		return errInvalidToken.WithDetail(err.Error())
	default:
		return errInternal
	}
}

// WriteError responde el error como JSON con su status.
func WriteError(w http.ResponseWriter, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = errInternal
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(appErr)
}

// writeAuthError loguea y responde un error salido del engine.
func writeAuthError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := mapAuthError(err)
	log := logger.From(r.Context()).With(logger.Layer("http"))
	if appErr == errInternal {
		log.Error("request failed", logger.Err(err))
	} else {
		log.Debug("request rejected", logger.String("code", appErr.Code), logger.Err(err))
	}
	WriteError(w, appErr)
}
