package auth

import (
	"context"

	"github.com/lws803/soul/internal/domain/repository"
	"github.com/lws803/soul/internal/domain/types"
	"github.com/lws803/soul/internal/observability/logger"
	"github.com/lws803/soul/internal/security/password"
)

// dummyHash se compara cuando el email no existe, para que "no existe" y
// "password incorrecto" tarden lo mismo.
var dummyHash, _ = password.Hash(password.Default, "soul-dummy-password")

// CredentialVerifier chequea email+password contra los usuarios almacenados.
type CredentialVerifier struct {
	users repository.UserRepository
}

// NewCredentialVerifier crea un verificador de credenciales.
func NewCredentialVerifier(users repository.UserRepository) *CredentialVerifier {
	return &CredentialVerifier{users: users}
}

// Verify busca el usuario por email y compara el password en tiempo
// constante. "No existe" y "password incorrecto" colapsan al mismo
// resultado (ok=false); sólo fallas de infraestructura retornan error.
func (v *CredentialVerifier) Verify(ctx context.Context, email, secret string) (*types.User, bool, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("auth.verifier"))

	user, err := v.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			password.Verify(secret, dummyHash)
			log.Debug("user not found")
			return nil, false, nil
		}
		return nil, false, err
	}

	if !password.Verify(secret, user.PasswordHash) {
		log.Debug("password check failed", logger.UserID(user.ID))
		return nil, false, nil
	}
	return user, true, nil
}
