// Package mfa contiene los controllers de /totp.
package mfa

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dto "github.com/dropDatabas3/humanid/internal/http/dto/mfa"
	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/helpers"
	"github.com/dropDatabas3/humanid/internal/http/middlewares"
	svc "github.com/dropDatabas3/humanid/internal/http/services/mfa"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/session"
)

// TOTPHeader carries the code confirming each step.
const TOTPHeader = "X-HID-TOTP"

// TOTPController handles TOTP enrollment and trusted devices.
type TOTPController struct {
	service  svc.TOTPService
	sessions *session.Manager
}

// NewTOTPController crea el controller.
func NewTOTPController(s svc.TOTPService, sessions *session.Manager) *TOTPController {
	return &TOTPController{service: s, sessions: sessions}
}

func code(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(TOTPHeader))
}

// Config maneja POST /totp/config.
func (c *TOTPController) Config(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	res, err := c.service.Configure(ctx, middlewares.GetUserID(ctx))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.ConfigResponse{Secret: res.Secret, URL: res.URL})
}

// Enable maneja POST /totp.
func (c *TOTPController) Enable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := c.service.Enable(ctx, middlewares.GetUserID(ctx), code(r)); err != nil {
		writeErr(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.StatusResponse{Enabled: true})
}

// Disable maneja DELETE /totp.
func (c *TOTPController) Disable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := c.service.Disable(ctx, middlewares.GetUserID(ctx), code(r)); err != nil {
		writeErr(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.StatusResponse{Enabled: false})
}

// Codes maneja POST /totp/codes.
func (c *TOTPController) Codes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	codes, err := c.service.RegenerateCodes(ctx, middlewares.GetUserID(ctx), code(r))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, dto.CodesResponse{Codes: codes})
}

// TrustDevice maneja POST /totp/device y entrega la cookie x-hid-totp-trust.
func (c *TOTPController) TrustDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	secret, err := c.service.TrustDevice(ctx, middlewares.GetUserID(ctx), code(r), r.UserAgent())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	c.sessions.SetTrustCookie(w, secret)
	w.WriteHeader(http.StatusNoContent)
}

// RemoveDevice maneja DELETE /totp/device/{id}.
func (c *TOTPController) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if err := c.service.RemoveDevice(ctx, middlewares.GetUserID(ctx), code(r), id); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	appErr := helpers.DomainError(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		logger.From(r.Context()).Error("totp request failed", logger.Layer("controller"), logger.Err(err))
	}
	httperrors.WriteError(w, appErr)
}
