// Package token implementa el codec de tokens firmados del core de auth.
//
// Hay cuatro variantes de claims, discriminadas por el campo tokenType (o por
// la forma del claim set en el caso del authorization code). El discriminador
// SIEMPRE debe re-chequearse después de verificar: un refresh token firmado
// válido no es un access token.
package token

import (
	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/lws803/soul/internal/domain/types"
)

// Type discrimina la clase de token.
type Type string

const (
	TypeAccess  Type = "access"
	TypeRefresh Type = "refresh"
	TypeClient  Type = "client"
)

// AccessClaims son los claims de un access token.
// PlatformID y Roles sólo están presentes en logins delegados (scoped).
type AccessClaims struct {
	UserID     int64            `json:"userId"`
	TokenType  Type             `json:"tokenType"`
	PlatformID *int64           `json:"platformId,omitempty"`
	Roles      []types.UserRole `json:"roles,omitempty"`
	jwtv5.RegisteredClaims
}

// RefreshClaims son los claims de un refresh token. TokenID referencia la
// fila persistida en refresh_tokens.
type RefreshClaims struct {
	UserID     int64            `json:"userId"`
	TokenType  Type             `json:"tokenType"`
	TokenID    int64            `json:"tokenId"`
	PlatformID *int64           `json:"platformId,omitempty"`
	Roles      []types.UserRole `json:"roles,omitempty"`
	jwtv5.RegisteredClaims
}

// CodeClaims son los claims de un authorization code de corta vida.
// CodeChallengeKey es la lookup key opaca del PKCE challenge cacheado;
// el challenge en sí nunca viaja dentro del code.
type CodeClaims struct {
	UserID           int64  `json:"userId"`
	PlatformID       int64  `json:"platformId"`
	RedirectURI      string `json:"redirectUri"`
	CodeChallengeKey string `json:"codeChallengeKey"`
	State            string `json:"state,omitempty"`
	jwtv5.RegisteredClaims
}

// ClientClaims son los claims de un token de client-credentials para
// autenticación máquina-a-máquina de una plataforma.
type ClientClaims struct {
	TokenType  Type  `json:"tokenType"`
	PlatformID int64 `json:"platformId"`
	jwtv5.RegisteredClaims
}
