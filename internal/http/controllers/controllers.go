// Package controllers agrupa todos los controllers HTTP.
// Este es el "composition root" de controllers.
//
// Flujo de inicialización (cmd/humanid):
//
//	svcs := services.New(deps)             ← services con dependencias externas
//	ctrls := controllers.New(svcs, deps)   ← controllers con services
//	h := router.New(router.Deps{...})      ← rutas con controllers
package controllers

import (
	"github.com/dropDatabas3/humanid/internal/http/controllers/apikey"
	"github.com/dropDatabas3/humanid/internal/http/controllers/auth"
	"github.com/dropDatabas3/humanid/internal/http/controllers/health"
	"github.com/dropDatabas3/humanid/internal/http/controllers/mfa"
	"github.com/dropDatabas3/humanid/internal/http/controllers/oauth"
	"github.com/dropDatabas3/humanid/internal/http/controllers/oidc"
	"github.com/dropDatabas3/humanid/internal/http/services"
	"github.com/dropDatabas3/humanid/internal/security/bewit"
	"github.com/dropDatabas3/humanid/internal/session"
)

// Deps son las dependencias HTTP que no viven en los services.
type Deps struct {
	Sessions  *session.Manager
	Bewit     *bewit.Signer
	LoginPath string // UI de login para las redirecciones con ?alert=
}

// Controllers agrupa todos los controllers por dominio.
type Controllers struct {
	Auth    *auth.Controllers
	MFA     *mfa.Controllers
	OAuth   *oauth.Controllers
	OIDC    *oidc.Controllers
	APIKeys *apikey.Controllers
	Health  *health.Controllers
}

// New crea el agregador de controllers.
func New(s *services.Services, d Deps) *Controllers {
	return &Controllers{
		Auth:    auth.NewControllers(s.Auth, d.Sessions, d.LoginPath),
		MFA:     mfa.NewControllers(s.MFA, d.Sessions),
		OAuth:   oauth.NewControllers(s.OAuth, d.Sessions),
		OIDC:    oidc.NewControllers(s.OIDC),
		APIKeys: apikey.NewControllers(s.APIKeys, d.Bewit),
		Health:  health.NewControllers(s.Health),
	}
}
