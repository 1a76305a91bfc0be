package auth

import (
	"net/http"
	"net/url"
	"strings"

	dto "github.com/dropDatabas3/humanid/internal/http/dto/auth"
	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/helpers"
	svc "github.com/dropDatabas3/humanid/internal/http/services/auth"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/session"
)

// TOTPHeader carries the one-time code or backup code.
const TOTPHeader = "X-HID-TOTP"

// LoginController handles POST /login and /logout.
type LoginController struct {
	service  svc.LoginService
	sessions *session.Manager
	// loginPath es la UI de login a la que vuelve el navegador con ?alert=.
	loginPath string
}

// NewLoginController crea el controller.
func NewLoginController(s svc.LoginService, sessions *session.Manager, loginPath string) *LoginController {
	if loginPath == "" {
		loginPath = "/login"
	}
	return &LoginController{service: s, sessions: sessions, loginPath: loginPath}
}

// Login maneja POST /login (form o JSON).
func (c *LoginController) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LoginController.Login"))
	asJSON := helpers.IsJSON(r)

	params, err := helpers.ReadParams(w, r)
	if err != nil {
		httperrors.WriteError(w, err)
		return
	}

	code := strings.TrimSpace(params.Get("x-hid-totp"))
	if code == "" {
		code = strings.TrimSpace(r.Header.Get(TOTPHeader))
	}
	oauthParams := url.Values{}
	for _, k := range svc.OAuthParams {
		if v := params.Get(k); v != "" {
			oauthParams.Set(k, v)
		}
	}

	in := svc.LoginRequest{
		Email:          params.Get("email"),
		Password:       params.Get("password"),
		TOTPCode:       code,
		RememberDevice: helpers.Bool(params.Get("x-hid-totp-trust")),
		UserAgent:      r.UserAgent(),
		TrustSecret:    session.TrustCookie(r),
		OAuth:          oauthParams,
	}

	res, err := c.service.Login(ctx, c.sessions.Load(r), in)
	if res != nil && res.Session != nil {
		if serr := c.sessions.Save(w, res.Session); serr != nil {
			log.Error("session save failed", logger.Err(serr))
			httperrors.WriteError(w, httperrors.ErrInternalServerError.WithCause(serr))
			return
		}
	}
	if err != nil {
		appErr := helpers.DomainError(err)
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			log.Error("login failed", logger.Err(err))
		} else {
			log.Info("login rejected", logger.String("code", appErr.Code))
		}
		if asJSON {
			httperrors.WriteError(w, appErr)
			return
		}
		step := ""
		if res != nil && res.Step == svc.StepTOTP {
			step = string(svc.StepTOTP)
		}
		c.backToLogin(w, r, oauthParams, appErr.Code, step)
		return
	}

	if res.TrustSecret != "" {
		c.sessions.SetTrustCookie(w, res.TrustSecret)
	}

	if asJSON {
		helpers.WriteJSON(w, http.StatusOK, dto.LoginResponse{Step: string(res.Step), Redirect: res.RedirectTo})
		return
	}
	if res.Step == svc.StepTOTP {
		c.backToLogin(w, r, oauthParams, "", string(svc.StepTOTP))
		return
	}
	http.Redirect(w, r, res.RedirectTo, http.StatusFound)
}

// backToLogin redirige a la UI de login conservando los parámetros OAuth.
func (c *LoginController) backToLogin(w http.ResponseWriter, r *http.Request, oauthParams url.Values, alert, step string) {
	q := url.Values{}
	for k, v := range oauthParams {
		q[k] = v
	}
	if alert != "" {
		q.Set("alert", alert)
	}
	if step != "" {
		q.Set("step", step)
	}
	target := c.loginPath
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Logout maneja GET|POST /logout.
func (c *LoginController) Logout(w http.ResponseWriter, r *http.Request) {
	c.service.Logout(r.Context(), c.sessions.Load(r))
	c.sessions.Destroy(w)

	if helpers.IsJSON(r) || strings.Contains(r.Header.Get("Accept"), "application/json") {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	target := c.loginPath
	if next := r.URL.Query().Get("redirect"); isLocalPath(next) {
		target = next
	}
	http.Redirect(w, r, target, http.StatusFound)
}

// isLocalPath acepta solo paths relativos al sitio ("/x", no "//host").
func isLocalPath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}

