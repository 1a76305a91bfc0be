package apikey

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/humanid/internal/http/dto/apikey"
	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/helpers"
	"github.com/dropDatabas3/humanid/internal/http/middlewares"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/security/bewit"
)

// BewitController maneja POST /api/v3/bewit.
type BewitController struct {
	signer *bewit.Signer
}

// NewBewitController crea el controller.
func NewBewitController(signer *bewit.Signer) *BewitController {
	return &BewitController{signer: signer}
}

// Sign devuelve la URL pedida con un bewit del usuario autenticado.
func (c *BewitController) Sign(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := helpers.ReadParams(w, r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	req := dto.BewitRequest{URL: strings.TrimSpace(params.Get("url"))}
	if req.URL == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("url is required"))
		return
	}

	userID := middlewares.GetUserID(ctx)
	signed, exp, err := c.signer.SignURL(userID, req.URL)
	if err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("invalid url").WithCause(err))
		return
	}
	logger.From(ctx).Info("bewit issued", logger.Layer("controller"), logger.UserID(userID))
	helpers.WriteJSON(w, http.StatusOK, dto.BewitResponse{URL: signed, ExpiresAt: exp})
}
