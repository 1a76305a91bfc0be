package oauth

import (
	"net/http"

	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/helpers"
	"github.com/dropDatabas3/humanid/internal/http/middlewares"
	svc "github.com/dropDatabas3/humanid/internal/http/services/oauth"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// UserInfoController handles GET|POST /oauth/userinfo.
type UserInfoController struct {
	grants *svc.GrantEngine
}

// NewUserInfoController creates the controller.
func NewUserInfoController(g *svc.GrantEngine) *UserInfoController {
	return &UserInfoController{grants: g}
}

// UserInfo devuelve los claims habilitados por el scope del access token.
func (c *UserInfoController) UserInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token := middlewares.BearerToken(r)
	if token == "" {
		w.Header().Set("WWW-Authenticate", `Bearer realm="humanid"`)
		httperrors.WriteOAuthError(w, httperrors.ErrUnauthorized)
		return
	}

	claims, err := c.grants.UserInfo(ctx, token)
	if err != nil {
		appErr := helpers.DomainError(err)
		if appErr.HTTPStatus == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Bearer realm="humanid", error="invalid_token"`)
		} else {
			logger.From(ctx).Error("userinfo failed", logger.Layer("controller"), logger.Err(err))
		}
		httperrors.WriteOAuthError(w, appErr)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	helpers.WriteJSON(w, http.StatusOK, claims)
}
