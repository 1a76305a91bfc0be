// Package router arma el handler HTTP: chi + cadenas de middlewares por grupo
// de rutas.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/humanid/internal/http/controllers"
	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	mw "github.com/dropDatabas3/humanid/internal/http/middlewares"
	"github.com/dropDatabas3/humanid/internal/rate"
	"github.com/dropDatabas3/humanid/internal/security/bewit"
	"github.com/dropDatabas3/humanid/internal/session"
)

// Deps contiene todo lo necesario para registrar las rutas.
type Deps struct {
	Controllers *controllers.Controllers

	// Autenticación
	Sessions  *session.Manager
	JWT       mw.JWTVerifier
	Blacklist mw.BlacklistChecker
	Tokens    mw.AccessTokenLookup
	Bewit     *bewit.Signer

	// Opcionales
	RateLimiter   rate.Limiter // nil = sin rate limiting
	RateWhitelist []string
	Metrics       http.Handler // nil = /metrics no se sirve en este mux
}

// New registra todas las rutas y devuelve el handler raíz.
//
// Cadena: Recover → RequestID → Metrics → SecurityHeaders → [NoStore] →
// [RateLimit] → Logging → [RequireAuth].
func New(d Deps) http.Handler {
	c := d.Controllers
	r := chi.NewRouter()

	r.Use(mw.WithRecover(), mw.WithRequestID(), mw.WithMetrics(), mw.WithSecurityHeaders())
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	rateLimited := mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.RateLimiter, KeyFunc: mw.DefaultRateKey, Whitelist: d.RateWhitelist})
	sessionOrBearer := mw.RequireAuth(
		mw.SessionAuth{Sessions: d.Sessions},
		mw.BearerAuth{JWT: d.JWT, Blacklist: d.Blacklist, Tokens: d.Tokens},
	)
	anyCredential := mw.RequireAuth(
		mw.SessionAuth{Sessions: d.Sessions},
		mw.BearerAuth{JWT: d.JWT, Blacklist: d.Blacklist, Tokens: d.Tokens},
		mw.BewitAuth{Signer: d.Bewit},
	)

	// ─── Públicas ───
	r.Group(func(r chi.Router) {
		r.Use(mw.WithLogging())
		r.Get("/healthz", c.Health.Health.Healthz)
		if d.Metrics != nil {
			r.Handle("/metrics", d.Metrics)
		}
		r.With(mw.WithCacheControl("public, max-age=600")).Group(func(r chi.Router) {
			r.Get("/.well-known/openid-configuration", c.OIDC.Discovery.Discovery)
			r.Get("/oauth/jwks", c.OIDC.JWKS.JWKS)
		})
	})

	// ─── Credenciales (rate limited) ───
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), rateLimited, mw.WithLogging())
		r.Post("/login", c.Auth.Login.Login)
		r.Post("/oauth/access_token", c.OAuth.Token.Token)
		r.Post("/api/v3/jsonwebtoken", c.APIKeys.APIKeys.Issue)
	})

	// ─── Navegador / OAuth ───
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.WithLogging())
		r.Get("/logout", c.Auth.Login.Logout)
		r.Post("/logout", c.Auth.Login.Logout)
		r.Get("/oauth/authorize", c.OAuth.Authorize.Authorize)
		r.Post("/oauth/authorize", c.OAuth.Authorize.Decide)
		r.Get("/oauth/userinfo", c.OAuth.UserInfo.UserInfo)
		r.Post("/oauth/userinfo", c.OAuth.UserInfo.UserInfo)
	})

	// ─── Autenticadas ───
	r.Group(func(r chi.Router) {
		r.Use(mw.WithNoStore(), mw.WithLogging())

		r.With(anyCredential).Get("/api/v3/jsonwebtoken", c.APIKeys.APIKeys.List)

		r.Group(func(r chi.Router) {
			r.Use(sessionOrBearer)
			r.Delete("/api/v3/jsonwebtoken", c.APIKeys.APIKeys.Blacklist)
			r.Post("/api/v3/bewit", c.APIKeys.Bewit.Sign)

			r.Post("/totp/config", c.MFA.TOTP.Config)
			r.Post("/totp", c.MFA.TOTP.Enable)
			r.Delete("/totp", c.MFA.TOTP.Disable)
			r.Post("/totp/codes", c.MFA.TOTP.Codes)
			r.Post("/totp/device", c.MFA.TOTP.TrustDevice)
			r.Delete("/totp/device/{id}", c.MFA.TOTP.RemoveDevice)
		})
	})

	return r
}
