// Package auth contiene la verificación de credenciales y el handshake de login.
package auth

import (
	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/flood"
	"github.com/dropDatabas3/humanid/internal/http/services/mfa"
)

// Deps contiene las dependencias para crear los services auth.
type Deps struct {
	Users                repository.UserRepository
	Flood                *flood.Guard
	Validator            mfa.Validator
	PasswordMaxAgeMonths int
	AfterLoginPath       string
}

// Services agrupa los services del dominio auth.
type Services struct {
	Verifier Verifier
	Login    LoginService
}

// NewServices crea el agregador de services auth.
func NewServices(d Deps) Services {
	v := NewVerifier(VerifierDeps{
		Users:                d.Users,
		Flood:                d.Flood,
		PasswordMaxAgeMonths: d.PasswordMaxAgeMonths,
	})
	return Services{
		Verifier: v,
		Login: NewLoginService(LoginDeps{
			Verifier:       v,
			Validator:      d.Validator,
			Users:          d.Users,
			AfterLoginPath: d.AfterLoginPath,
		}),
	}
}
