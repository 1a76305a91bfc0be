package oauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/dropDatabas3/humanid/internal/audit"
	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/session"
	"github.com/dropDatabas3/humanid/internal/validation"
)

// IDTokenSigner firma ID tokens (implementado por jwt.Service).
type IDTokenSigner interface {
	GenerateIDToken(client *repository.Client, user *repository.User, scope, nonce string, authTime time.Time) (string, error)
	Subject(clientID string, user *repository.User) string
}

// GrantDeps contiene las dependencias del GrantEngine.
type GrantDeps struct {
	Tokens  *TokenIssuer
	Clients ClientLookup
	Users   repository.UserRepository
	JWT     IDTokenSigner
	// LoginURL es la UI de login; recibe los parámetros OAuth en la query.
	LoginURL string
	Now      func() time.Time
}

// GrantEngine runs the authorize, decision and token legs of the OAuth2
// state machine. It holds no per-request state.
type GrantEngine struct {
	deps GrantDeps
}

// NewGrantEngine crea el engine.
func NewGrantEngine(deps GrantDeps) *GrantEngine {
	if deps.LoginURL == "" {
		deps.LoginURL = "/login"
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &GrantEngine{deps: deps}
}

// validated es un AuthorizeRequest con enums, client y redirect ya validados.
type validated struct {
	req    AuthorizeRequest
	rt     ResponseType
	prompt Prompt
	client *repository.Client
}

// validate checks enums, then the client, then the redirect URI. Errors
// here are never redirected to the client.
func (e *GrantEngine) validate(ctx context.Context, req AuthorizeRequest) (*validated, error) {
	rt, err := ParseResponseType(req.ResponseType)
	if err != nil {
		return nil, err
	}
	prompt, err := ParsePrompt(req.Prompt)
	if err != nil {
		return nil, err
	}
	if req.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", ErrInvalidRequest)
	}
	if !validation.ValidScope(req.Scope) {
		return nil, fmt.Errorf("%w: malformed scope", ErrInvalidRequest)
	}
	client, err := e.deps.Clients.GetByID(ctx, req.ClientID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	if !client.AllowsRedirect(req.RedirectURI) {
		return nil, ErrInvalidRedirect
	}
	return &validated{req: req, rt: rt, prompt: prompt, client: client}, nil
}

// Authorize handles GET /oauth/authorize.
func (e *GrantEngine) Authorize(ctx context.Context, sess *session.Session, req AuthorizeRequest) (*AuthResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.grant"),
		logger.Op("Authorize"),
		logger.ClientID(req.ClientID),
	)

	v, err := e.validate(ctx, req)
	if err != nil {
		log.Debug("authorize request rejected", logger.Err(err))
		return nil, err
	}
	if v.rt.IssuesIDToken() && req.Nonce == "" {
		return e.errorRedirect(v, StateUnauthenticated, "invalid_request", "nonce is required for id_token"), nil
	}

	if !sess.Authenticated() || v.prompt == PromptLogin {
		if v.prompt == PromptNone {
			return e.errorRedirect(v, stateOf(sess), "login_required", ""), nil
		}
		return e.loginRedirect(sess, req), nil
	}

	user, err := e.deps.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return e.loginRedirect(nil, req), nil
		}
		return nil, err
	}

	if user.HasAuthorizedClient(v.client.ID) && v.prompt != PromptConsent {
		log.Debug("client already authorized, auto-approving", logger.UserID(user.ID))
		return e.issue(ctx, v, user, sess.AuthTime)
	}
	if v.prompt == PromptNone {
		return e.errorRedirect(v, StateConsentPending, "interaction_required", ""), nil
	}
	return &AuthResult{
		State:   StateConsentPending,
		Consent: &ConsentPrompt{ClientID: v.client.ID, ClientName: v.client.Name, Scope: req.Scope},
	}, nil
}

// Decide handles POST /oauth/authorize with the user's consent decision.
func (e *GrantEngine) Decide(ctx context.Context, sess *session.Session, req AuthorizeRequest, decision string) (*AuthResult, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.grant"),
		logger.Op("Decide"),
		logger.ClientID(req.ClientID),
	)

	d, err := ParseDecision(decision)
	if err != nil {
		return nil, err
	}
	v, err := e.validate(ctx, req)
	if err != nil {
		return nil, err
	}
	if !sess.Authenticated() {
		return nil, ErrLoginRequired
	}
	if v.rt.IssuesIDToken() && req.Nonce == "" {
		return e.errorRedirect(v, StateConsentPending, "invalid_request", "nonce is required for id_token"), nil
	}

	if d == DecisionDeny {
		log.Info("authorization denied", logger.UserID(sess.UserID))
		audit.Log(ctx, audit.AuthorizationDenied, logger.UserID(sess.UserID), logger.ClientID(req.ClientID))
		return e.errorRedirect(v, StateConsentPending, "access_denied", ""), nil
	}

	user, err := e.authorizeClient(ctx, sess.UserID, v.client.ID)
	if err != nil {
		return nil, err
	}
	log.Info("authorization approved", logger.UserID(user.ID))
	audit.Log(ctx, audit.AuthorizationGranted, logger.UserID(user.ID), logger.ClientID(req.ClientID))
	return e.issue(ctx, v, user, sess.AuthTime)
}

// authorizeClient agrega clientID a la lista del usuario (idempotente). Ante
// un save concurrente se relee y reintenta.
func (e *GrantEngine) authorizeClient(ctx context.Context, userID, clientID string) (*repository.User, error) {
	const attempts = 3
	var lastErr error
	for range attempts {
		user, err := e.deps.Users.GetByID(ctx, userID)
		if err != nil {
			if repository.IsNotFound(err) {
				return nil, ErrLoginRequired
			}
			return nil, err
		}
		if user.HasAuthorizedClient(clientID) {
			return user, nil
		}
		user.AuthorizedClients = append(slices.Clone(user.AuthorizedClients), clientID)
		user.UpdatedAt = e.deps.Now()
		lastErr = e.deps.Users.Save(ctx, user)
		if lastErr == nil {
			return user, nil
		}
		if !repository.IsConflict(lastErr) {
			return nil, lastErr
		}
	}
	return nil, lastErr
}

// issue emite lo que corresponde al response_type y arma la redirección.
func (e *GrantEngine) issue(ctx context.Context, v *validated, user *repository.User, authTime time.Time) (*AuthResult, error) {
	p := TokenParams{
		ClientID:    v.client.ID,
		UserID:      user.ID,
		Scope:       v.req.Scope,
		Nonce:       v.req.Nonce,
		RedirectURI: v.req.RedirectURI,
		AuthTime:    authTime,
	}
	params := url.Values{}
	state := StateTokensIssued

	if v.rt.IssuesCode() {
		code, err := e.deps.Tokens.Create(ctx, repository.TokenCode, p)
		if err != nil {
			return nil, err
		}
		params.Set("code", code.Token)
		state = StateCodeIssued
	}
	if v.rt.IssuesAccessToken() {
		at, err := e.deps.Tokens.Create(ctx, repository.TokenAccess, p)
		if err != nil {
			return nil, err
		}
		params.Set("access_token", at.Token)
		params.Set("token_type", "Bearer")
		params.Set("expires_in", strconv.FormatInt(int64(e.deps.Tokens.TTL(repository.TokenAccess).Seconds()), 10))
		if v.req.Scope != "" {
			params.Set("scope", v.req.Scope)
		}
	}
	if v.rt.IssuesIDToken() {
		idt, err := e.deps.JWT.GenerateIDToken(v.client, user, v.req.Scope, v.req.Nonce, authTime)
		if err != nil {
			return nil, fmt.Errorf("sign id_token: %w", err)
		}
		params.Set("id_token", idt)
	}
	if v.req.State != "" {
		params.Set("state", v.req.State)
	}

	logger.From(ctx).Info("authorization issued",
		logger.Layer("service"), logger.ClientID(v.client.ID), logger.UserID(user.ID), logger.String("response_type", string(v.rt)))
	return &AuthResult{State: state, RedirectURL: appendParams(v.req.RedirectURI, params, v.rt.Implicit())}, nil
}

func (e *GrantEngine) errorRedirect(v *validated, state GrantState, code, desc string) *AuthResult {
	params := url.Values{"error": {code}}
	if desc != "" {
		params.Set("error_description", desc)
	}
	if v.req.State != "" {
		params.Set("state", v.req.State)
	}
	return &AuthResult{State: state, RedirectURL: appendParams(v.req.RedirectURI, params, v.rt.Implicit())}
}

func (e *GrantEngine) loginRedirect(sess *session.Session, req AuthorizeRequest) *AuthResult {
	return &AuthResult{State: stateOf(sess), RedirectURL: appendParams(e.deps.LoginURL, req.Values(), false)}
}

// appendParams agrega params a la query de base o, para flujos implícitos,
// como fragmento.
func appendParams(base string, params url.Values, fragment bool) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if fragment {
		u.Fragment = ""
		u.RawFragment = ""
		return u.String() + "#" + params.Encode()
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// =================================================================================
// TOKEN LEG
// =================================================================================

// Exchange handles POST /oauth/access_token.
func (e *GrantEngine) Exchange(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("oauth.grant"),
		logger.Op("Exchange"),
		logger.ClientID(req.ClientID),
		logger.GrantType(req.GrantType),
	)

	gt, err := ParseGrantType(req.GrantType)
	if err != nil {
		return nil, err
	}
	client, err := e.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		log.Debug("client authentication failed", logger.Err(err))
		return nil, err
	}

	switch gt {
	case GrantAuthorizationCode:
		return e.exchangeCode(ctx, client, req)
	default:
		return e.refresh(ctx, client, req)
	}
}

func (e *GrantEngine) authenticateClient(ctx context.Context, id, secret string) (*repository.Client, error) {
	if id == "" {
		return nil, ErrInvalidClient
	}
	client, err := e.deps.Clients.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrClientNotFound
		}
		return nil, fmt.Errorf("lookup client: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(client.Secret), []byte(secret)) != 1 {
		return nil, ErrInvalidClient
	}
	return client, nil
}

func (e *GrantEngine) exchangeCode(ctx context.Context, client *repository.Client, req TokenRequest) (*TokenResponse, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("exchangeCode"), logger.ClientID(client.ID))

	code, err := e.deps.Tokens.Lookup(ctx, repository.TokenCode, req.Code)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: unknown code", ErrInvalidGrant)
		}
		return nil, err
	}
	switch {
	case e.deps.Tokens.Expired(code):
		if err := e.deps.Tokens.Revoke(ctx, code.Token); err != nil {
			log.Debug("expired code cleanup failed", logger.Err(err))
		}
		return nil, fmt.Errorf("%w: code expired", ErrInvalidGrant)
	case code.ClientID != client.ID:
		log.Warn("authorization code presented by another client", logger.String("owner", code.ClientID))
		return nil, fmt.Errorf("%w: code issued to another client", ErrInvalidGrant)
	case code.RedirectURI != "" && code.RedirectURI != req.RedirectURI:
		return nil, fmt.Errorf("%w: redirect_uri mismatch", ErrInvalidGrant)
	}

	user, err := e.deps.Users.GetByID(ctx, code.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: user no longer exists", ErrInvalidGrant)
		}
		return nil, err
	}

	p := paramsOf(code)
	access, err := e.deps.Tokens.Mint(repository.TokenAccess, p)
	if err != nil {
		return nil, err
	}
	refresh, err := e.deps.Tokens.Mint(repository.TokenRefresh, p)
	if err != nil {
		return nil, err
	}
	idToken, err := e.deps.JWT.GenerateIDToken(client, user, code.Scope, code.Nonce, code.AuthTime)
	if err != nil {
		return nil, fmt.Errorf("sign id_token: %w", err)
	}

	if _, err := e.deps.Tokens.Exchange(ctx, code.Token, client.ID, access, refresh); err != nil {
		log.Info("code exchange lost", logger.Err(err))
		return nil, err
	}

	log.Info("authorization code exchanged", logger.UserID(user.ID))
	audit.Log(ctx, audit.CodeExchanged, logger.UserID(user.ID), logger.ClientID(client.ID))
	return &TokenResponse{
		AccessToken:  access.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(e.deps.Tokens.TTL(repository.TokenAccess).Seconds()),
		RefreshToken: refresh.Token,
		IDToken:      idToken,
		Scope:        code.Scope,
	}, nil
}

func (e *GrantEngine) refresh(ctx context.Context, client *repository.Client, req TokenRequest) (*TokenResponse, error) {
	rt, err := e.deps.Tokens.Lookup(ctx, repository.TokenRefresh, req.RefreshToken)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: unknown refresh token", ErrInvalidGrant)
		}
		return nil, err
	}
	if e.deps.Tokens.Expired(rt) {
		return nil, fmt.Errorf("%w: refresh token expired", ErrInvalidGrant)
	}
	if rt.ClientID != client.ID {
		return nil, fmt.Errorf("%w: refresh token issued to another client", ErrInvalidGrant)
	}

	access, err := e.deps.Tokens.Create(ctx, repository.TokenAccess, paramsOf(rt))
	if err != nil {
		return nil, err
	}
	logger.From(ctx).Info("access token refreshed",
		logger.Layer("service"), logger.Op("refresh"), logger.ClientID(client.ID), logger.UserID(rt.UserID))
	return &TokenResponse{
		AccessToken: access.Token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(e.deps.Tokens.TTL(repository.TokenAccess).Seconds()),
		Scope:       rt.Scope,
	}, nil
}

// UserInfo handles GET /oauth/userinfo for an opaque access token.
func (e *GrantEngine) UserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	at, err := e.deps.Tokens.Lookup(ctx, repository.TokenAccess, accessToken)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if e.deps.Tokens.Expired(at) {
		return nil, ErrInvalidToken
	}
	user, err := e.deps.Users.GetByID(ctx, at.UserID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	claims := jwt.UserClaims(user, at.Scope)
	claims["sub"] = e.deps.JWT.Subject(at.ClientID, user)
	return claims, nil
}
