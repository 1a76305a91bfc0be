// Package oidc contiene los controllers de discovery y JWKS.
package oidc

import (
	"net/http"

	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/helpers"
	svc "github.com/dropDatabas3/humanid/internal/http/services/oidc"
)

// Controllers agrupa los controllers del dominio OIDC.
type Controllers struct {
	Discovery *DiscoveryController
	JWKS      *JWKSController
}

// NewControllers crea el agregador de controllers OIDC.
func NewControllers(s svc.Services) *Controllers {
	return &Controllers{
		Discovery: &DiscoveryController{service: s.Discovery},
		JWKS:      &JWKSController{service: s.JWKS},
	}
}

// DiscoveryController maneja GET /.well-known/openid-configuration.
type DiscoveryController struct {
	service svc.DiscoveryService
}

func (c *DiscoveryController) Discovery(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, c.service.Discovery())
}

// JWKSController maneja GET /oauth/jwks.
type JWKSController struct {
	service svc.JWKSService
}

func (c *JWKSController) JWKS(w http.ResponseWriter, r *http.Request) {
	set, err := c.service.JWKS(r.Context())
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrServiceUnavailable.WithCause(err))
		return
	}
	helpers.WriteJSON(w, http.StatusOK, set)
}
