package oauth

import (
	"net/url"

	"github.com/dropDatabas3/humanid/internal/session"
)

// GrantState is the position of a browser in the grant state machine.
type GrantState int

const (
	StateUnauthenticated GrantState = iota
	StatePasswordVerified
	StateTOTPPending
	StateAuthenticated
	StateConsentPending
	StateCodeIssued
	StateTokensIssued
)

func (s GrantState) String() string {
	switch s {
	case StatePasswordVerified:
		return "password_verified"
	case StateTOTPPending:
		return "totp_pending"
	case StateAuthenticated:
		return "authenticated"
	case StateConsentPending:
		return "consent_pending"
	case StateCodeIssued:
		return "code_issued"
	case StateTokensIssued:
		return "tokens_issued"
	default:
		return "unauthenticated"
	}
}

// stateOf traduce la etapa de la sesión al estado del grant.
func stateOf(s *session.Session) GrantState {
	switch s.State() {
	case session.PasswordVerified:
		return StatePasswordVerified
	case session.TOTPPending:
		return StateTOTPPending
	case session.Authenticated:
		return StateAuthenticated
	default:
		return StateUnauthenticated
	}
}

// AuthorizeRequest carries the parameters of /oauth/authorize.
type AuthorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
	Nonce        string
	Prompt       string
}

// AuthorizeRequestFromValues lee los parámetros de query o formulario.
func AuthorizeRequestFromValues(v url.Values) AuthorizeRequest {
	return AuthorizeRequest{
		ResponseType: v.Get("response_type"),
		ClientID:     v.Get("client_id"),
		RedirectURI:  v.Get("redirect_uri"),
		Scope:        v.Get("scope"),
		State:        v.Get("state"),
		Nonce:        v.Get("nonce"),
		Prompt:       v.Get("prompt"),
	}
}

// Values devuelve los parámetros no vacíos (para re-enviarlos al login).
func (r AuthorizeRequest) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("response_type", r.ResponseType)
	set("client_id", r.ClientID)
	set("redirect_uri", r.RedirectURI)
	set("scope", r.Scope)
	set("state", r.State)
	set("nonce", r.Nonce)
	set("prompt", r.Prompt)
	return v
}

// ConsentPrompt describes what the consent screen must show.
type ConsentPrompt struct {
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name"`
	Scope      string `json:"scope"`
}

// AuthResult is the outcome of the authorize and decision legs. Exactly one
// of RedirectURL or Consent is set.
type AuthResult struct {
	State       GrantState
	RedirectURL string
	Consent     *ConsentPrompt
}

// TokenRequest is a POST /oauth/access_token call with the client
// credentials already extracted (basic or post).
type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	RefreshToken string
	ClientID     string
	ClientSecret string
}

// TokenResponse is the RFC 6749 §5.1 success body.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	IDToken      string `json:"id_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}
