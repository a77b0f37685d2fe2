package auth

import (
	"errors"
	"fmt"
)

// Errores de dominio del core de auth. Son condiciones esperadas sobre las
// que los callers hacen branch (por ejemplo PlatformUserNotFound dispara el
// flujo de "unirse a la plataforma"), no fallas de infraestructura.
var (
	ErrUnauthorizedUser     = errors.New("auth: invalid credentials")
	ErrUserNotVerified      = errors.New("auth: user not verified")
	ErrPlatformUserNotFound = errors.New("auth: platform user not found")
	ErrInvalidCallback      = errors.New("auth: callback not registered for platform")
	ErrInvalidCode          = errors.New("auth: invalid or expired authorization code")
	ErrPKCENotMatch         = errors.New("auth: code verifier does not match challenge")
	ErrNoPermission         = errors.New("auth: no permission")
	ErrLastAdmin            = errors.New("auth: platform requires at least one admin")
	ErrInvalidRole          = errors.New("auth: invalid role")
)

// ErrInvalidToken es la raíz de todas las fallas de refresh token. Las
// variantes llevan un mensaje específico pero matchean con errors.Is.
var ErrInvalidToken = errors.New("auth: invalid token")

func invalidToken(reason string) error {
	return fmt.Errorf("%w: %s", ErrInvalidToken, reason)
}

var (
	ErrAccessTokenUsed       = invalidToken("access token used in place of refresh token")
	ErrRefreshTokenExpired   = invalidToken("refresh token expired")
	ErrRefreshTokenMalformed = invalidToken("refresh token malformed")
	ErrRefreshTokenNotFound  = invalidToken("refresh token not found")
	ErrRefreshTokenRevoked   = invalidToken("refresh token revoked")
	ErrTokenPlatformMismatch = invalidToken("invalid token for platform")
)

// errTokenScopedToPlatform señala que el caller no pidió plataforma pero el
// token está scoped: el mensaje nombra la plataforma real del token.
func errTokenScopedToPlatform(platformID int64) error {
	return fmt.Errorf("%w: refresh token is scoped to platform %d", ErrInvalidToken, platformID)
}
