// Package oauth contains controllers for the OAuth2/OIDC endpoints.
package oauth

import (
	"net/http"

	dto "github.com/dropDatabas3/humanid/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/helpers"
	svc "github.com/dropDatabas3/humanid/internal/http/services/oauth"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/session"
)

// AuthorizeController handles /oauth/authorize.
type AuthorizeController struct {
	grants   *svc.GrantEngine
	sessions *session.Manager
}

// NewAuthorizeController creates the controller.
func NewAuthorizeController(g *svc.GrantEngine, sessions *session.Manager) *AuthorizeController {
	return &AuthorizeController{grants: g, sessions: sessions}
}

// Authorize handles GET /oauth/authorize.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthorizeController.Authorize"))

	w.Header().Add("Vary", "Cookie")
	req := svc.AuthorizeRequestFromValues(r.URL.Query())
	log.Debug("authorize request",
		logger.ClientID(req.ClientID),
		logger.String("response_type", req.ResponseType),
		logger.String("prompt", req.Prompt))

	res, err := c.grants.Authorize(ctx, c.sessions.Load(r), req)
	c.respond(w, r, req, res, err)
}

// Decide handles POST /oauth/authorize (consent decision).
func (c *AuthorizeController) Decide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := helpers.ReadParams(w, r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	req := svc.AuthorizeRequestFromValues(params)
	res, err := c.grants.Decide(ctx, c.sessions.Load(r), req, params.Get("decision"))
	c.respond(w, r, req, res, err)
}

// respond: errores previos a validar el redirect van como JSON; el resto
// es siempre una redirección (login, client o error OAuth).
func (c *AuthorizeController) respond(w http.ResponseWriter, r *http.Request, req svc.AuthorizeRequest, res *svc.AuthResult, err error) {
	if err != nil {
		appErr := helpers.DomainError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.From(r.Context()).Error("authorize failed", logger.Layer("controller"), logger.Err(err))
		}
		httperrors.WriteError(w, appErr)
		return
	}

	if res.Consent != nil {
		params := map[string]string{}
		for k, v := range req.Values() {
			params[k] = v[0]
		}
		helpers.WriteJSON(w, http.StatusOK, dto.ConsentResponse{
			Status:     "consent_required",
			ClientID:   res.Consent.ClientID,
			ClientName: res.Consent.ClientName,
			Scope:      res.Consent.Scope,
			Params:     params,
		})
		return
	}

	logger.From(r.Context()).Debug("authorize redirect",
		logger.Layer("controller"), logger.String("state", res.State.String()))
	http.Redirect(w, r, res.RedirectURL, http.StatusFound)
}
