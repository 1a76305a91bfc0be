// Package mfa contiene el segundo factor: validación TOTP/backup codes,
// trusted devices y los endpoints /totp.
package mfa

import (
	"time"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/email"
	"github.com/dropDatabas3/humanid/internal/flood"
	"github.com/dropDatabas3/humanid/internal/security/password"
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
)

// Deps contiene las dependencias para crear los services mfa.
type Deps struct {
	Users    repository.UserRepository
	Flood    *flood.Guard
	Mailer   email.Mailer
	Box      *secretbox.Box
	Hasher   password.Hasher
	Issuer   string
	TrustTTL time.Duration
}

// Services agrupa los services del dominio mfa.
type Services struct {
	Validator Validator
	TOTP      TOTPService
}

// NewServices crea el agregador de services mfa.
func NewServices(d Deps) Services {
	v := NewValidator(ValidatorDeps{
		Users:    d.Users,
		Flood:    d.Flood,
		Box:      d.Box,
		TrustTTL: d.TrustTTL,
	})
	return Services{
		Validator: v,
		TOTP: NewTOTPService(TOTPDeps{
			Users:     d.Users,
			Validator: v,
			Mailer:    d.Mailer,
			Box:       d.Box,
			Hasher:    d.Hasher,
			Issuer:    d.Issuer,
		}),
	}
}
