// Package services agrupa todos los services HTTP.
// Este es el "composition root" de services.
//
// Cada dominio vive en internal/http/services/{dominio}/ con:
//   - {nombre}_service.go  → implementación del service
//   - services.go          → Deps, Services y NewServices del dominio
//
// Uso en cmd/humanid:
//
//	svcs := services.New(services.Deps{Store: st, Flood: guard, JWT: jwtSvc, ...})
//	// svcs.Auth.Login, svcs.OAuth.Grants, svcs.APIKeys, etc.
package services

import (
	"time"

	"github.com/dropDatabas3/humanid/internal/cache"
	"github.com/dropDatabas3/humanid/internal/email"
	"github.com/dropDatabas3/humanid/internal/flood"
	"github.com/dropDatabas3/humanid/internal/http/services/apikey"
	"github.com/dropDatabas3/humanid/internal/http/services/auth"
	"github.com/dropDatabas3/humanid/internal/http/services/health"
	"github.com/dropDatabas3/humanid/internal/http/services/mfa"
	"github.com/dropDatabas3/humanid/internal/http/services/oauth"
	"github.com/dropDatabas3/humanid/internal/http/services/oidc"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/security/password"
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
	"github.com/dropDatabas3/humanid/internal/store"
)

// Deps contiene las dependencias base para crear los services.
type Deps struct {
	// ─── Infraestructura ───
	Store       store.Store
	Flood       *flood.Guard
	JWT         *jwt.Service
	Mailer      email.Mailer
	Box         *secretbox.Box // sella secretos TOTP; nil = texto plano
	ClientCache cache.Client   // nil = sin cache de clients

	// ─── Configuración ───
	Issuer               string // iss de los ID tokens
	BaseURL              string // base pública para discovery
	TOTPIssuer           string
	TrustTTL             time.Duration
	PasswordMaxAgeMonths int
	BcryptCost           int
	ClientCacheTTL       time.Duration
	TokenTTL             oauth.TTLConfig
	LoginURL             string
	AfterLoginPath       string

	// ─── Health Check ───
	HealthDeps health.Deps
}

// Services agrupa todos los sub-services por dominio.
type Services struct {
	Auth    auth.Services  // Credential Verifier y login
	MFA     mfa.Services   // TOTP Validator y enrolamiento
	OAuth   oauth.Services // Token Issuer y Grant Engine
	OIDC    oidc.Services  // discovery, jwks
	APIKeys apikey.Service
	Health  health.Services
}

// New crea el agregador de services con todas las dependencias inyectadas.
// Este es el único lugar donde se instancian los services.
func New(d Deps) *Services {
	users := d.Store.Users()
	m := mfa.NewServices(mfa.Deps{
		Users:    users,
		Flood:    d.Flood,
		Mailer:   d.Mailer,
		Box:      d.Box,
		Hasher:   password.NewHasher(d.BcryptCost),
		Issuer:   d.TOTPIssuer,
		TrustTTL: d.TrustTTL,
	})
	a := auth.NewServices(auth.Deps{
		Users:                users,
		Flood:                d.Flood,
		Validator:            m.Validator,
		PasswordMaxAgeMonths: d.PasswordMaxAgeMonths,
		AfterLoginPath:       d.AfterLoginPath,
	})

	return &Services{
		Auth: a,
		MFA:  m,
		OAuth: oauth.NewServices(oauth.Deps{
			Tokens:      d.Store.Tokens(),
			Clients:     d.Store.Clients(),
			Users:       users,
			JWT:         d.JWT,
			ClientCache: d.ClientCache,
			ClientTTL:   d.ClientCacheTTL,
			TTL:         d.TokenTTL,
			LoginURL:    d.LoginURL,
		}),
		OIDC: oidc.NewServices(oidc.Deps{
			Issuer:  d.Issuer,
			BaseURL: d.BaseURL,
			Keys:    d.JWT,
		}),
		APIKeys: apikey.NewService(apikey.Deps{
			Verifier:  a.Verifier,
			Validator: m.Validator,
			JWT:       d.JWT,
			Keys:      d.Store.APIKeys(),
			Mailer:    d.Mailer,
		}),
		Health: health.NewServices(d.HealthDeps),
	}
}
