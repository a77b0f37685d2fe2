package token

import (
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Errores del codec. Toda falla de verificación colapsa a una de estas dos:
// expirado, o cualquier otra (firma, estructura, método).
var (
	ErrTokenExpired   = errors.New("token: expired")
	ErrTokenMalformed = errors.New("token: malformed or invalid signature")
)

// Codec firma y verifica tokens con un secreto simétrico (HS256).
type Codec struct {
	secret []byte
}

// NewCodec crea un codec con el signing secret del servidor.
func NewCodec(secret string) *Codec {
	return &Codec{secret: []byte(secret)}
}

// Sign firma los claims y devuelve el token compacto.
func (c *Codec) Sign(claims jwtv5.Claims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	tk.Header["typ"] = "JWT"
	signed, err := tk.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("token: sign: %w", err)
	}
	return signed, nil
}

// Stamp setea iat/nbf/exp para un TTL dado, devolviendo los RegisteredClaims
// listos para embeber. Unidad única en todo el core: time.Duration.
func Stamp(ttl time.Duration) jwtv5.RegisteredClaims {
	now := time.Now().UTC()
	return jwtv5.RegisteredClaims{
		IssuedAt:  jwtv5.NewNumericDate(now),
		NotBefore: jwtv5.NewNumericDate(now),
		ExpiresAt: jwtv5.NewNumericDate(now.Add(ttl)),
	}
}

// verify parsea el token en claims, validando firma y expiración.
func (c *Codec) verify(tokenStr string, claims jwtv5.Claims) error {
	parsed, err := jwtv5.ParseWithClaims(tokenStr, claims,
		func(t *jwtv5.Token) (any, error) { return c.secret, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenMalformed
	}
	if !parsed.Valid {
		return ErrTokenMalformed
	}
	return nil
}

// VerifyAccess verifica firma y expiración y devuelve AccessClaims.
// No valida el discriminador: el caller debe chequear TokenType.
func (c *Codec) VerifyAccess(tokenStr string) (*AccessClaims, error) {
	var claims AccessClaims
	if err := c.verify(tokenStr, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// VerifyRefresh verifica firma y expiración y devuelve RefreshClaims.
// No valida el discriminador: el caller debe chequear TokenType.
func (c *Codec) VerifyRefresh(tokenStr string) (*RefreshClaims, error) {
	var claims RefreshClaims
	if err := c.verify(tokenStr, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// VerifyCode verifica firma y expiración y devuelve CodeClaims.
func (c *Codec) VerifyCode(tokenStr string) (*CodeClaims, error) {
	var claims CodeClaims
	if err := c.verify(tokenStr, &claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// VerifyClient verifica firma y expiración y devuelve ClientClaims.
func (c *Codec) VerifyClient(tokenStr string) (*ClientClaims, error) {
	var claims ClientClaims
	if err := c.verify(tokenStr, &claims); err != nil {
		return nil, err
	}
	if claims.TokenType != TypeClient {
		return nil, ErrTokenMalformed
	}
	return &claims, nil
}
