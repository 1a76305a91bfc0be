package oauth

import (
	"errors"
	"net/http"
	"net/url"

	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/helpers"
	svc "github.com/dropDatabas3/humanid/internal/http/services/oauth"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// TokenController handles POST /oauth/access_token.
type TokenController struct {
	grants *svc.GrantEngine
}

// NewTokenController creates the controller.
func NewTokenController(g *svc.GrantEngine) *TokenController {
	return &TokenController{grants: g}
}

// Token exchanges an authorization code or a refresh token. Client
// credentials come from HTTP Basic or from the form body.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokenController.Token"))

	params, err := helpers.ReadParams(w, r)
	if err != nil {
		httperrors.WriteOAuthError(w, httperrors.ErrInvalidRequest.WithCause(err))
		return
	}

	clientID, clientSecret, basic := clientCredentials(r)
	if !basic {
		clientID, clientSecret = params.Get("client_id"), params.Get("client_secret")
	}

	res, err := c.grants.Exchange(ctx, svc.TokenRequest{
		GrantType:    params.Get("grant_type"),
		Code:         params.Get("code"),
		RedirectURI:  params.Get("redirect_uri"),
		RefreshToken: params.Get("refresh_token"),
		ClientID:     clientID,
		ClientSecret: clientSecret,
	})
	if err != nil {
		appErr := helpers.DomainError(err)
		// en el token endpoint un client desconocido es un fallo de autenticación
		if errors.Is(err, svc.ErrClientNotFound) {
			appErr = httperrors.ErrInvalidClient.WithCause(err)
		}
		if appErr.Code == httperrors.ErrInvalidClient.Code && basic {
			w.Header().Set("WWW-Authenticate", `Basic realm="humanid"`)
		}
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			log.Error("token exchange failed", logger.Err(err))
		} else {
			log.Info("token exchange rejected", logger.ClientID(clientID), logger.Err(err))
		}
		httperrors.WriteOAuthError(w, appErr)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	helpers.WriteJSON(w, http.StatusOK, res)
}

// clientCredentials lee HTTP Basic (RFC 6749 §2.3.1: id y secreto
// form-urlencoded).
func clientCredentials(r *http.Request) (id, secret string, ok bool) {
	id, secret, ok = r.BasicAuth()
	if !ok {
		return "", "", false
	}
	if v, err := url.QueryUnescape(id); err == nil {
		id = v
	}
	if v, err := url.QueryUnescape(secret); err == nil {
		secret = v
	}
	return id, secret, true
}
