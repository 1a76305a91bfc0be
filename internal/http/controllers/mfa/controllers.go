package mfa

import (
	svc "github.com/dropDatabas3/humanid/internal/http/services/mfa"
	"github.com/dropDatabas3/humanid/internal/session"
)

// Controllers agrupa los controllers del dominio mfa.
type Controllers struct {
	TOTP *TOTPController
}

// NewControllers crea el agregador de controllers mfa.
func NewControllers(s svc.Services, sessions *session.Manager) *Controllers {
	return &Controllers{TOTP: NewTOTPController(s.TOTP, sessions)}
}
