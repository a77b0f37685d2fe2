// Package auth implementa el core de autenticación: login directo, login
// delegado por plataforma (authorization code + PKCE), refresh y revocación.
package auth

import (
	"context"
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/lws803/soul/internal/domain/repository"
	"github.com/lws803/soul/internal/domain/types"
	"github.com/lws803/soul/internal/metrics"
	"github.com/lws803/soul/internal/observability/logger"
	tokens "github.com/lws803/soul/internal/security/token"
	"github.com/lws803/soul/internal/token"
)

// Config son los parámetros del flow engine, read-only después del arranque.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	CodeTTL    time.Duration

	// RotateRefreshTokens: cada refresh revoca el token presentado y emite
	// uno nuevo. Off por defecto: el mismo refresh token se reusa hasta
	// su propio vencimiento.
	RotateRefreshTokens bool

	// HostURL es la audience de los access tokens sin plataforma, y el
	// fallback cuando la plataforma no registró homepage.
	HostURL string
}

// Deps son las dependencias del engine, inyectadas explícitamente para poder
// sustituirlas por fakes en tests.
type Deps struct {
	Users         repository.UserRepository
	Platforms     repository.PlatformRepository
	PlatformUsers repository.PlatformUserRepository
	Tokens        repository.RefreshTokenRepository
	Codec         *token.Codec
	PKCE          *ChallengeCache
	Config        Config
}

// Service es el flow engine de autorización.
type Service struct {
	deps Deps
}

// NewService crea el engine.
func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// LoginResult es el resultado de un login directo (sin plataforma).
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// PlatformLoginResult es el resultado de un login delegado.
type PlatformLoginResult struct {
	AccessToken  string
	RefreshToken string
	PlatformID   int64
	Roles        []types.UserRole
	ExpiresIn    int64
}

// CodeResult es el resultado de la emisión de un authorization code.
type CodeResult struct {
	Code  string
	State string
}

// CodeRequest son los parámetros de la emisión de un authorization code.
type CodeRequest struct {
	UserID        int64
	PlatformID    int64
	Callback      string
	State         string
	CodeChallenge string
}

// ExchangeRequest son los parámetros del exchange code→tokens.
type ExchangeRequest struct {
	Code         string
	Callback     string
	CodeVerifier string
}

// RefreshResult es el resultado de un refresh. RefreshToken viene vacío si
// la rotación está deshabilitada (el token presentado sigue siendo válido).
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
	PlatformID   *int64
	Roles        []types.UserRole
	ExpiresIn    int64
}

// Login emite el par de tokens de un login directo. El caller ya verificó
// credenciales (CredentialVerifier).
//
// Las sesiones directas son única-activa por usuario: las filas previas sin
// plataforma se borran antes de emitir la nueva.
func (s *Service) Login(ctx context.Context, user *types.User) (*LoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.flow"),
		logger.Op("Login"),
		logger.UserID(user.ID),
	)

	// Limpieza antes de validar: una sesión vieja de un usuario ahora
	// inactivo tampoco debe sobrevivir.
	if _, err := s.deps.Tokens.DeleteBySelector(ctx, repository.RefreshTokenSelector{UserID: user.ID}); err != nil {
		metrics.Logins.WithLabelValues("direct", "error").Inc()
		return nil, err
	}

	if !user.IsActive {
		log.Info("inactive user attempted login")
		metrics.Logins.WithLabelValues("direct", "denied").Inc()
		return nil, ErrUserNotVerified
	}

	accessToken, exp, err := s.signAccess(user.ID, s.deps.Config.HostURL, nil, nil)
	if err != nil {
		metrics.Logins.WithLabelValues("direct", "error").Inc()
		return nil, err
	}

	refreshToken, err := s.createRefresh(ctx, user.ID, nil, nil, nil)
	if err != nil {
		metrics.Logins.WithLabelValues("direct", "error").Inc()
		return nil, err
	}

	log.Info("login successful")
	metrics.Logins.WithLabelValues("direct", "ok").Inc()

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(time.Until(exp).Seconds()),
	}, nil
}

// LoginWithPlatform emite el par de tokens de un login delegado a una
// plataforma. Requiere membresía previa: si el usuario nunca se unió,
// retorna ErrPlatformUserNotFound y el caller redirige al flujo de alta.
func (s *Service) LoginWithPlatform(ctx context.Context, user *types.User, platformID int64) (*PlatformLoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.flow"),
		logger.Op("LoginWithPlatform"),
		logger.UserID(user.ID),
		logger.PlatformID(platformID),
	)

	membership, err := s.deps.PlatformUsers.GetByUserAndPlatform(ctx, user.ID, platformID)
	if err != nil {
		if repository.IsNotFound(err) {
			log.Info("user has not joined platform")
			metrics.Logins.WithLabelValues("platform", "denied").Inc()
			return nil, ErrPlatformUserNotFound
		}
		metrics.Logins.WithLabelValues("platform", "error").Inc()
		return nil, err
	}

	platform, err := s.deps.Platforms.GetByID(ctx, platformID)
	if err != nil {
		metrics.Logins.WithLabelValues("platform", "error").Inc()
		return nil, err
	}

	if !user.IsActive {
		log.Info("inactive user attempted platform login")
		metrics.Logins.WithLabelValues("platform", "denied").Inc()
		return nil, ErrUserNotVerified
	}

	// Una sesión activa por (usuario, membresía): la fila previa se borra.
	sel := repository.RefreshTokenSelector{UserID: user.ID, PlatformUserID: &membership.ID}
	if _, err := s.deps.Tokens.DeleteBySelector(ctx, sel); err != nil {
		metrics.Logins.WithLabelValues("platform", "error").Inc()
		return nil, err
	}

	result, err := s.issuePlatformTokens(ctx, user, membership, platform)
	if err != nil {
		metrics.Logins.WithLabelValues("platform", "error").Inc()
		return nil, err
	}

	log.Info("platform login successful", logger.PlatformUserID(membership.ID))
	metrics.Logins.WithLabelValues("platform", "ok").Inc()
	return result, nil
}

// FindCodeForPlatformAndCallback emite un authorization code de corta vida
// ligado al callback y al PKCE challenge.
func (s *Service) FindCodeForPlatformAndCallback(ctx context.Context, in CodeRequest) (*CodeResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.flow"),
		logger.Op("FindCodeForPlatformAndCallback"),
		logger.UserID(in.UserID),
		logger.PlatformID(in.PlatformID),
	)

	platform, err := s.deps.Platforms.GetByID(ctx, in.PlatformID)
	if err != nil {
		if repository.IsNotFound(err) {
			// Sin plataforma no hay allow-list contra la cual validar.
			return nil, ErrInvalidCallback
		}
		return nil, err
	}

	if !isRegisteredCallback(platform, in.Callback) {
		log.Info("callback not in redirect allow-list", logger.String("callback", in.Callback))
		return nil, ErrInvalidCallback
	}

	user, err := s.deps.Users.GetByID(ctx, in.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrUnauthorizedUser
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrUserNotVerified
	}

	key, err := s.deps.PKCE.NewKey()
	if err != nil {
		return nil, err
	}

	code, err := s.deps.Codec.Sign(token.CodeClaims{
		UserID:           in.UserID,
		PlatformID:       in.PlatformID,
		RedirectURI:      in.Callback,
		CodeChallengeKey: key,
		State:            in.State,
		RegisteredClaims: token.Stamp(s.deps.Config.CodeTTL),
	})
	if err != nil {
		return nil, err
	}

	if err := s.deps.PKCE.Put(ctx, key, in.CodeChallenge); err != nil {
		return nil, err
	}

	log.Info("authorization code issued")
	metrics.CodesIssued.Inc()
	return &CodeResult{Code: code, State: in.State}, nil
}

// ExchangeCodeForToken canjea un authorization code por el par de tokens,
// verificando callback y PKCE. El usuario ya se considera autenticado desde
// la emisión del code: no se re-chequean credenciales.
func (s *Service) ExchangeCodeForToken(ctx context.Context, in ExchangeRequest) (*PlatformLoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.flow"),
		logger.Op("ExchangeCodeForToken"),
	)

	// Expirado y malformado colapsan al mismo error de cara al cliente.
	claims, err := s.deps.Codec.VerifyCode(in.Code)
	if err != nil {
		log.Info("authorization code rejected", logger.Err(err))
		metrics.Logins.WithLabelValues("exchange", "denied").Inc()
		return nil, ErrInvalidCode
	}

	if in.Callback != claims.RedirectURI {
		log.Info("callback mismatch on exchange")
		metrics.Logins.WithLabelValues("exchange", "denied").Inc()
		return nil, ErrInvalidCallback
	}

	// Single-use: el challenge se consume acá, pase lo que pase después.
	challenge, ok, err := s.deps.PKCE.Take(ctx, claims.CodeChallengeKey)
	if err != nil {
		metrics.Logins.WithLabelValues("exchange", "error").Inc()
		return nil, err
	}
	if !ok || !tokens.VerifyS256(in.CodeVerifier, challenge) {
		log.Info("PKCE verification failed")
		metrics.Logins.WithLabelValues("exchange", "denied").Inc()
		return nil, ErrPKCENotMatch
	}

	user, err := s.deps.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.Logins.WithLabelValues("exchange", "denied").Inc()
			return nil, ErrInvalidCode
		}
		metrics.Logins.WithLabelValues("exchange", "error").Inc()
		return nil, err
	}
	if !user.IsActive {
		metrics.Logins.WithLabelValues("exchange", "denied").Inc()
		return nil, ErrUserNotVerified
	}

	membership, err := s.deps.PlatformUsers.GetByUserAndPlatform(ctx, claims.UserID, claims.PlatformID)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.Logins.WithLabelValues("exchange", "denied").Inc()
			return nil, ErrPlatformUserNotFound
		}
		metrics.Logins.WithLabelValues("exchange", "error").Inc()
		return nil, err
	}

	platform, err := s.deps.Platforms.GetByID(ctx, claims.PlatformID)
	if err != nil {
		metrics.Logins.WithLabelValues("exchange", "error").Inc()
		return nil, err
	}

	sel := repository.RefreshTokenSelector{UserID: user.ID, PlatformUserID: &membership.ID}
	if _, err := s.deps.Tokens.DeleteBySelector(ctx, sel); err != nil {
		metrics.Logins.WithLabelValues("exchange", "error").Inc()
		return nil, err
	}

	result, err := s.issuePlatformTokens(ctx, user, membership, platform)
	if err != nil {
		metrics.Logins.WithLabelValues("exchange", "error").Inc()
		return nil, err
	}

	log.Info("code exchange successful", logger.UserID(user.ID), logger.PlatformID(claims.PlatformID))
	metrics.Logins.WithLabelValues("exchange", "ok").Inc()
	return result, nil
}

// Refresh emite un access token nuevo a partir de un refresh token válido.
// platformID nil = refresh de una sesión directa; el scope del token debe
// coincidir exactamente con lo pedido.
func (s *Service) Refresh(ctx context.Context, refreshToken string, platformID *int64) (*RefreshResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.flow"),
		logger.Op("Refresh"),
	)

	claims, err := s.deps.Codec.VerifyRefresh(refreshToken)
	if err != nil {
		metrics.Refreshes.WithLabelValues("denied").Inc()
		if errors.Is(err, token.ErrTokenExpired) {
			return nil, ErrRefreshTokenExpired
		}
		return nil, ErrRefreshTokenMalformed
	}

	// El discriminador manda: un access token firmado válido no sirve acá.
	if claims.TokenType != token.TypeRefresh {
		log.Info("wrong token kind presented for refresh")
		metrics.Refreshes.WithLabelValues("denied").Inc()
		return nil, ErrAccessTokenUsed
	}

	row, err := s.deps.Tokens.GetByID(ctx, claims.TokenID)
	if err != nil {
		if repository.IsNotFound(err) {
			metrics.Refreshes.WithLabelValues("denied").Inc()
			return nil, ErrRefreshTokenNotFound
		}
		metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, err
	}

	log = log.With(logger.UserID(row.UserID), logger.TokenID(row.ID))

	if row.IsRevoked {
		// Un token revocado presentado de vuelta huele a robo: se
		// invalida el linaje completo de ese (usuario, membresía).
		log.Warn("revoked refresh token presented, revoking lineage")
		sel := repository.RefreshTokenSelector{UserID: row.UserID, PlatformUserID: row.PlatformUserID}
		if _, err := s.deps.Tokens.RevokeBySelector(ctx, sel); err != nil {
			metrics.Refreshes.WithLabelValues("error").Inc()
			return nil, err
		}
		metrics.Refreshes.WithLabelValues("denied").Inc()
		return nil, ErrRefreshTokenRevoked
	}

	user := row.User
	if user == nil {
		metrics.Refreshes.WithLabelValues("denied").Inc()
		return nil, ErrRefreshTokenMalformed
	}
	if !user.IsActive {
		metrics.Refreshes.WithLabelValues("denied").Inc()
		return nil, ErrUserNotVerified
	}

	// Chequeo de scope: lo pedido y lo embebido deben coincidir.
	switch {
	case platformID != nil && (claims.PlatformID == nil || *claims.PlatformID != *platformID):
		metrics.Refreshes.WithLabelValues("denied").Inc()
		return nil, ErrTokenPlatformMismatch
	case platformID == nil && claims.PlatformID != nil:
		metrics.Refreshes.WithLabelValues("denied").Inc()
		return nil, errTokenScopedToPlatform(*claims.PlatformID)
	}

	// Roles vivos de la membresía, no los congelados en el token.
	var (
		aud   = s.deps.Config.HostURL
		roles []types.UserRole
	)
	if row.PlatformUser != nil {
		roles = row.PlatformUser.Roles
		platform, err := s.deps.Platforms.GetByID(ctx, row.PlatformUser.PlatformID)
		if err != nil {
			metrics.Refreshes.WithLabelValues("error").Inc()
			return nil, err
		}
		aud = audienceFor(platform, s.deps.Config.HostURL)
	}

	accessToken, exp, err := s.signAccess(user.ID, aud, claims.PlatformID, roles)
	if err != nil {
		metrics.Refreshes.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &RefreshResult{
		AccessToken: accessToken,
		PlatformID:  claims.PlatformID,
		Roles:       roles,
		ExpiresIn:   int64(time.Until(exp).Seconds()),
	}

	if s.deps.Config.RotateRefreshTokens {
		// Revocación condicional: de dos refresh concurrentes con el
		// mismo token, sólo uno gana; el otro cae al camino de revocado.
		won, err := s.deps.Tokens.RevokeByID(ctx, row.ID)
		if err != nil {
			metrics.Refreshes.WithLabelValues("error").Inc()
			return nil, err
		}
		if !won {
			metrics.Refreshes.WithLabelValues("denied").Inc()
			return nil, ErrRefreshTokenRevoked
		}

		newRefresh, err := s.createRefresh(ctx, user.ID, row.PlatformUserID, claims.PlatformID, roles)
		if err != nil {
			metrics.Refreshes.WithLabelValues("error").Inc()
			return nil, err
		}
		result.RefreshToken = newRefresh
	}

	log.Info("refresh successful")
	metrics.Refreshes.WithLabelValues("ok").Inc()
	return result, nil
}

// Logout revoca la sesión del usuario: la directa si platformID es nil, o la
// de esa plataforma. Idempotente.
func (s *Service) Logout(ctx context.Context, userID int64, platformID *int64) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.flow"),
		logger.Op("Logout"),
		logger.UserID(userID),
	)

	sel := repository.RefreshTokenSelector{UserID: userID}
	if platformID != nil {
		membership, err := s.deps.PlatformUsers.GetByUserAndPlatform(ctx, userID, *platformID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrPlatformUserNotFound
			}
			return err
		}
		sel.PlatformUserID = &membership.ID
	}

	n, err := s.deps.Tokens.RevokeBySelector(ctx, sel)
	if err != nil {
		return err
	}
	log.Info("logout", logger.Count(n))
	return nil
}

// IssueClientToken emite un token de client-credentials para una plataforma.
func (s *Service) IssueClientToken(ctx context.Context, platformID int64) (string, error) {
	platform, err := s.deps.Platforms.GetByID(ctx, platformID)
	if err != nil {
		if repository.IsNotFound(err) {
			return "", ErrUnauthorizedUser
		}
		return "", err
	}

	claims := token.ClientClaims{
		TokenType:        token.TypeClient,
		PlatformID:       platform.ID,
		RegisteredClaims: token.Stamp(s.deps.Config.AccessTTL),
	}
	claims.Audience = jwtv5.ClaimStrings{audienceFor(platform, s.deps.Config.HostURL)}
	return s.deps.Codec.Sign(claims)
}

// helpers internos

func (s *Service) issuePlatformTokens(ctx context.Context, user *types.User, membership *types.PlatformUser, platform *types.Platform) (*PlatformLoginResult, error) {
	aud := audienceFor(platform, s.deps.Config.HostURL)

	accessToken, exp, err := s.signAccess(user.ID, aud, &platform.ID, membership.Roles)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.createRefresh(ctx, user.ID, &membership.ID, &platform.ID, membership.Roles)
	if err != nil {
		return nil, err
	}

	return &PlatformLoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		PlatformID:   platform.ID,
		Roles:        membership.Roles,
		ExpiresIn:    int64(time.Until(exp).Seconds()),
	}, nil
}

func (s *Service) signAccess(userID int64, aud string, platformID *int64, roles []types.UserRole) (string, time.Time, error) {
	claims := token.AccessClaims{
		UserID:           userID,
		TokenType:        token.TypeAccess,
		PlatformID:       platformID,
		Roles:            roles,
		RegisteredClaims: token.Stamp(s.deps.Config.AccessTTL),
	}
	claims.Audience = jwtv5.ClaimStrings{aud}

	signed, err := s.deps.Codec.Sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, claims.ExpiresAt.Time, nil
}

func (s *Service) createRefresh(ctx context.Context, userID int64, platformUserID, platformID *int64, roles []types.UserRole) (string, error) {
	row, err := s.deps.Tokens.Create(ctx, repository.CreateRefreshTokenInput{
		UserID:         userID,
		PlatformUserID: platformUserID,
		TTL:            s.deps.Config.RefreshTTL,
	})
	if err != nil {
		return "", err
	}

	return s.deps.Codec.Sign(token.RefreshClaims{
		UserID:           userID,
		TokenType:        token.TypeRefresh,
		TokenID:          row.ID,
		PlatformID:       platformID,
		Roles:            roles,
		RegisteredClaims: token.Stamp(s.deps.Config.RefreshTTL),
	})
}

func isRegisteredCallback(platform *types.Platform, callback string) bool {
	for _, uri := range platform.RedirectURIs {
		if uri == callback {
			return true
		}
	}
	return false
}

func audienceFor(platform *types.Platform, fallback string) string {
	if platform.HomepageURL != nil && *platform.HomepageURL != "" {
		return *platform.HomepageURL
	}
	return fallback
}
