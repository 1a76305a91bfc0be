// Package auth contiene los controllers de login y logout.
package auth

import (
	svc "github.com/dropDatabas3/humanid/internal/http/services/auth"
	"github.com/dropDatabas3/humanid/internal/session"
)

// Controllers agrupa los controllers del dominio auth.
type Controllers struct {
	Login *LoginController
}

// NewControllers crea el agregador de controllers auth.
func NewControllers(s svc.Services, sessions *session.Manager, loginPath string) *Controllers {
	return &Controllers{
		Login: NewLoginController(s.Login, sessions, loginPath),
	}
}
