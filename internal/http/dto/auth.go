// Package dto define los requests y responses de la API de auth.
package dto

import "github.com/lws803/soul/internal/domain/types"

// LoginRequest: POST /auth/login. PlatformID opcional: con plataforma el
// login es delegado, sin plataforma emite tokens del host.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	PlatformID *int64 `json:"platformId,omitempty"`
}

// TokenResponse es el par de tokens emitido por login, exchange y refresh.
// RefreshToken viene vacío en refresh sin rotación.
type TokenResponse struct {
	AccessToken  string           `json:"accessToken"`
	RefreshToken string           `json:"refreshToken,omitempty"`
	ExpiresIn    int64            `json:"expiresIn"`
	PlatformID   *int64           `json:"platformId,omitempty"`
	Roles        []types.UserRole `json:"roles,omitempty"`
}

// CodeRequest: POST /auth/code. Requiere bearer: el usuario ya se autenticó
// contra el host y pide un authorization code para la plataforma.
type CodeRequest struct {
	PlatformID    int64  `json:"platformId"`
	Callback      string `json:"callback"`
	State         string `json:"state"`
	CodeChallenge string `json:"codeChallenge"`
}

// CodeResponse devuelve el code y el state espejado del request.
type CodeResponse struct {
	Code  string `json:"code"`
	State string `json:"state"`
}

// VerifyRequest: POST /auth/verify. Canjea el code por tokens.
type VerifyRequest struct {
	Code         string `json:"code"`
	Callback     string `json:"callback"`
	CodeVerifier string `json:"codeVerifier"`
}

// RefreshRequest: POST /auth/refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	PlatformID   *int64 `json:"platformId,omitempty"`
}

// LogoutRequest: POST /auth/logout. PlatformID nil cierra la sesión directa.
type LogoutRequest struct {
	PlatformID *int64 `json:"platformId,omitempty"`
}

// SetRolesRequest: PUT /platforms/{platformID}/users/{userID}/roles.
type SetRolesRequest struct {
	Roles []types.UserRole `json:"roles"`
}
