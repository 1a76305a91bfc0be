package auth

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/dropDatabas3/humanid/internal/audit"
	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/http/services/mfa"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/session"
)

// OAuthParams are the authorize parameters carried through the login UI.
var OAuthParams = []string{"response_type", "client_id", "redirect_uri", "scope", "state", "nonce", "prompt"}

// LoginStep tells the caller what the browser must do next.
type LoginStep string

const (
	// StepTOTP: password accepted, a second factor is still required.
	StepTOTP LoginStep = "totp"
	// StepDone: the session is fully authenticated.
	StepDone LoginStep = "done"
)

// LoginRequest is one submission of the login form or JSON payload.
type LoginRequest struct {
	Email    string
	Password string
	// TOTPCode viene del campo x-hid-totp o del header X-HID-TOTP.
	TOTPCode       string
	RememberDevice bool
	UserAgent      string
	// TrustSecret es el valor de la cookie x-hid-totp-trust.
	TrustSecret string
	// OAuth son los parámetros de /oauth/authorize a re-enviar al terminar.
	OAuth url.Values
}

// LoginResult carries the session to persist and where to send the browser.
type LoginResult struct {
	Session    *session.Session
	Step       LoginStep
	RedirectTo string
	// TrustSecret no vacío = setear la cookie de trusted device.
	TrustSecret string
}

// LoginService drives the two-part login handshake of POST /login.
type LoginService interface {
	// Login runs the password step when a password is supplied (or there is
	// no session yet) and then the TOTP step when the session requires it.
	// When the TOTP step fails the result still carries the
	// password-verified session so the browser can retry the code.
	Login(ctx context.Context, current *session.Session, in LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context, current *session.Session)
}

// LoginDeps contiene las dependencias del login service.
type LoginDeps struct {
	Verifier  Verifier
	Validator mfa.Validator
	Users     repository.UserRepository
	// AfterLoginPath es el destino sin flujo OAuth pendiente ("/user").
	AfterLoginPath string
	AuthorizePath  string
	Now            func() time.Time
}

type loginService struct {
	deps LoginDeps
}

// NewLoginService crea el login service.
func NewLoginService(deps LoginDeps) LoginService {
	if deps.AfterLoginPath == "" {
		deps.AfterLoginPath = "/user"
	}
	if deps.AuthorizePath == "" {
		deps.AuthorizePath = "/oauth/authorize"
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &loginService{deps: deps}
}

func (s *loginService) Login(ctx context.Context, current *session.Session, in LoginRequest) (*LoginResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("auth.login"),
		logger.Op("Login"),
	)

	sess := current
	if in.Password != "" || sess.State() == session.Unauthenticated {
		user, err := s.deps.Verifier.Verify(ctx, in.Email, in.Password)
		if err != nil {
			return nil, err
		}
		sess = &session.Session{
			UserID:            user.ID,
			TOTPRequired:      user.TOTPEnabled,
			TOTPPassed:        !user.TOTPEnabled,
			PendingTrustGrant: user.TOTPEnabled && in.RememberDevice,
			AuthTime:          s.deps.Now(),
		}
		if user.TOTPEnabled && s.deps.Validator.IsTrustedDevice(user, in.UserAgent, in.TrustSecret) {
			log.Info("totp skipped for trusted device", logger.UserID(user.ID))
			sess.TOTPPassed = true
			sess.PendingTrustGrant = false
		}
	}
	log = log.With(logger.UserID(sess.UserID))

	res := &LoginResult{Session: sess}
	if sess.State() == session.TOTPPending {
		if in.TOTPCode == "" {
			res.Step = StepTOTP
			return res, nil
		}
		user, err := s.deps.Users.GetByID(ctx, sess.UserID)
		if err != nil {
			return nil, fmt.Errorf("load user: %w", err)
		}
		user, err = s.deps.Validator.Validate(ctx, user, in.TOTPCode)
		if err != nil {
			res.Step = StepTOTP
			return res, err
		}
		sess.TOTPPassed = true

		if sess.PendingTrustGrant {
			secret, _, err := s.deps.Validator.SaveTrustedDevice(ctx, user, in.UserAgent)
			if err != nil {
				return nil, err
			}
			res.TrustSecret = secret
			sess.PendingTrustGrant = false
		}
	}

	res.Step = StepDone
	res.RedirectTo = s.redirectTarget(in.OAuth)
	log.Info("login completed", logger.String("redirect", res.RedirectTo))
	audit.Log(ctx, audit.LoginSucceeded, logger.UserID(sess.UserID))
	return res, nil
}

// redirectTarget vuelve a /oauth/authorize si había un flujo OAuth pendiente.
func (s *loginService) redirectTarget(params url.Values) string {
	if params.Get("client_id") == "" {
		return s.deps.AfterLoginPath
	}
	q := url.Values{}
	for _, k := range OAuthParams {
		v := params.Get(k)
		// prompt=login ya quedó satisfecho con este login
		if v == "" || (k == "prompt" && v == "login") {
			continue
		}
		q.Set(k, v)
	}
	return s.deps.AuthorizePath + "?" + q.Encode()
}

func (s *loginService) Logout(ctx context.Context, current *session.Session) {
	if current == nil {
		return
	}
	logger.From(ctx).Info("logout",
		logger.Layer("service"), logger.Op("Logout"), logger.UserID(current.UserID))
}
