// Package apikey contiene los controllers de /api/v3/jsonwebtoken y /api/v3/bewit.
package apikey

import (
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/humanid/internal/http/dto/apikey"
	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/helpers"
	"github.com/dropDatabas3/humanid/internal/http/middlewares"
	svc "github.com/dropDatabas3/humanid/internal/http/services/apikey"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// TOTPHeader carries the one-time code or backup code.
const TOTPHeader = "X-HID-TOTP"

// APIKeyController maneja /api/v3/jsonwebtoken.
type APIKeyController struct {
	service svc.Service
}

// NewAPIKeyController crea el controller.
func NewAPIKeyController(s svc.Service) *APIKeyController {
	return &APIKeyController{service: s}
}

// Issue maneja POST /api/v3/jsonwebtoken.
func (c *APIKeyController) Issue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := helpers.ReadParams(w, r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	req := dto.IssueRequest{Email: params.Get("email"), Password: params.Get("password")}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("email and password are required"))
		return
	}

	issued, err := c.service.Issue(ctx, req.Email, req.Password, strings.TrimSpace(r.Header.Get(TOTPHeader)))
	if err != nil {
		writeErr(r, w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.IssueResponse{ID: issued.Key.ID, Token: issued.Token})
}

// List maneja GET /api/v3/jsonwebtoken.
func (c *APIKeyController) List(w http.ResponseWriter, r *http.Request) {
	keys, err := c.service.List(r.Context(), middlewares.GetUserID(r.Context()))
	if err != nil {
		writeErr(r, w, err)
		return
	}
	out := make([]dto.KeyView, 0, len(keys))
	for _, k := range keys {
		out = append(out, dto.KeyView{ID: k.ID, Blacklisted: k.Blacklisted, CreatedAt: k.CreatedAt})
	}
	helpers.WriteJSON(w, http.StatusOK, out)
}

// Blacklist maneja DELETE /api/v3/jsonwebtoken.
func (c *APIKeyController) Blacklist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params, err := helpers.ReadParams(w, r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}
	token := strings.TrimSpace(params.Get("token"))
	if token == "" {
		httperrors.WriteError(w, httperrors.ErrMissingFields.WithDetail("token is required"))
		return
	}
	if err := c.service.Blacklist(ctx, middlewares.GetUserID(ctx), token); err != nil {
		writeErr(r, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(r *http.Request, w http.ResponseWriter, err error) {
	appErr := helpers.DomainError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("api key request failed", logger.Layer("controller"), logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}
