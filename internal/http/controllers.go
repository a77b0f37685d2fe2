package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lws803/soul/internal/auth"
	"github.com/lws803/soul/internal/domain/types"
	"github.com/lws803/soul/internal/http/dto"
	"github.com/lws803/soul/internal/observability/logger"
)

// AuthController expone el flow engine por HTTP.
type AuthController struct {
	verifier *auth.CredentialVerifier
	service  *auth.Service
	roles    *auth.RolesService
}

// NewAuthController crea el controller de auth.
func NewAuthController(verifier *auth.CredentialVerifier, service *auth.Service, roles *auth.RolesService) *AuthController {
	return &AuthController{verifier: verifier, service: service, roles: roles}
}

// Login maneja POST /auth/login.
func (c *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		WriteError(w, errBadRequest.WithDetail("email and password are required"))
		return
	}

	user, ok, err := c.verifier.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	if !ok {
		WriteError(w, errUnauthorizedUser)
		return
	}

	if req.PlatformID != nil {
		result, err := c.service.LoginWithPlatform(r.Context(), user, *req.PlatformID)
		if err != nil {
			writeAuthError(w, r, err)
			return
		}
		WriteJSON(w, http.StatusOK, dto.TokenResponse{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			ExpiresIn:    result.ExpiresIn,
			PlatformID:   &result.PlatformID,
			Roles:        result.Roles,
		})
		return
	}

	result, err := c.service.Login(r.Context(), user)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
	})
}

// Code maneja POST /auth/code: con bearer del host, emite un authorization
// code para la plataforma.
func (c *AuthController) Code(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		WriteError(w, errUnauthorized)
		return
	}

	var req dto.CodeRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	switch {
	case req.PlatformID == 0 || req.Callback == "":
		WriteError(w, errBadRequest.WithDetail("platformId and callback are required"))
		return
	case req.CodeChallenge == "":
		WriteError(w, errBadRequest.WithDetail("codeChallenge is required"))
		return
	}

	result, err := c.service.FindCodeForPlatformAndCallback(r.Context(), auth.CodeRequest{
		UserID:        claims.UserID,
		PlatformID:    req.PlatformID,
		Callback:      req.Callback,
		State:         req.State,
		CodeChallenge: req.CodeChallenge,
	})
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dto.CodeResponse{Code: result.Code, State: result.State})
}

// Verify maneja POST /auth/verify: canjea code + verifier por tokens.
func (c *AuthController) Verify(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.Code == "" || req.Callback == "" || req.CodeVerifier == "" {
		WriteError(w, errBadRequest.WithDetail("code, callback and codeVerifier are required"))
		return
	}

	result, err := c.service.ExchangeCodeForToken(r.Context(), auth.ExchangeRequest{
		Code:         req.Code,
		Callback:     req.Callback,
		CodeVerifier: req.CodeVerifier,
	})
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
		PlatformID:   &result.PlatformID,
		Roles:        result.Roles,
	})
}

// Refresh maneja POST /auth/refresh.
func (c *AuthController) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if req.RefreshToken == "" {
		WriteError(w, errBadRequest.WithDetail("refreshToken is required"))
		return
	}

	result, err := c.service.Refresh(r.Context(), req.RefreshToken, req.PlatformID)
	if err != nil {
		writeAuthError(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, dto.TokenResponse{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
		PlatformID:   result.PlatformID,
		Roles:        result.Roles,
	})
}

// Logout maneja POST /auth/logout. Requiere bearer.
func (c *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		WriteError(w, errUnauthorized)
		return
	}

	var req dto.LogoutRequest
	if r.ContentLength > 0 {
		if !ReadJSON(w, r, &req) {
			return
		}
	}

	if err := c.service.Logout(r.Context(), claims.UserID, req.PlatformID); err != nil {
		writeAuthError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetRoles maneja PUT /platforms/{platformID}/users/{platformUserID}/roles.
// El guard de admin ya corrió como middleware.
func (c *AuthController) SetRoles(w http.ResponseWriter, r *http.Request) {
	platformUserID, err := strconv.ParseInt(chi.URLParam(r, "platformUserID"), 10, 64)
	if err != nil {
		WriteError(w, errBadRequest.WithDetail("invalid platform user id"))
		return
	}

	var req dto.SetRolesRequest
	if !ReadJSON(w, r, &req) {
		return
	}
	if len(req.Roles) == 0 {
		WriteError(w, errBadRequest.WithDetail("roles must not be empty"))
		return
	}

	if err := c.roles.SetRoles(r.Context(), platformUserID, req.Roles); err != nil {
		writeAuthError(w, r, err)
		return
	}
	logger.From(r.Context()).Info("roles changed", logger.PlatformUserID(platformUserID))
	w.WriteHeader(http.StatusNoContent)
}

func toRoles(names []string) []types.UserRole {
	roles := make([]types.UserRole, 0, len(names))
	for _, n := range names {
		roles = append(roles, types.UserRole(n))
	}
	return roles
}

// platformFromPath saca el platform id del path param.
func platformFromPath(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "platformID"), 10, 64)
}
