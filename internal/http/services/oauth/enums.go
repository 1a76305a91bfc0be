package oauth

import (
	"fmt"
	"slices"
	"strings"
)

// ResponseType is the negotiated response_type of an authorize request.
type ResponseType string

const (
	ResponseCode         ResponseType = "code"
	ResponseToken        ResponseType = "token"
	ResponseIDToken      ResponseType = "id_token"
	ResponseIDTokenToken ResponseType = "id_token token"
)

// ParseResponseType accepts the four supported values. Word order is not
// significant ("token id_token" == "id_token token").
func ParseResponseType(s string) (ResponseType, error) {
	words := strings.Fields(s)
	slices.Sort(words)
	switch rt := ResponseType(strings.Join(words, " ")); rt {
	case ResponseCode, ResponseToken, ResponseIDToken, ResponseIDTokenToken:
		return rt, nil
	}
	return "", fmt.Errorf("%w: unsupported response_type %q", ErrInvalidRequest, s)
}

func (r ResponseType) IssuesCode() bool { return r == ResponseCode }

func (r ResponseType) IssuesAccessToken() bool {
	return r == ResponseToken || r == ResponseIDTokenToken
}

func (r ResponseType) IssuesIDToken() bool {
	return r == ResponseIDToken || r == ResponseIDTokenToken
}

// Implicit flows return their parameters in the URL fragment.
func (r ResponseType) Implicit() bool { return r != ResponseCode }

// Prompt is the OIDC prompt parameter.
type Prompt string

const (
	PromptDefault       Prompt = ""
	PromptNone          Prompt = "none"
	PromptLogin         Prompt = "login"
	PromptConsent       Prompt = "consent"
	PromptSelectAccount Prompt = "select_account"
)

func ParsePrompt(s string) (Prompt, error) {
	switch p := Prompt(strings.TrimSpace(s)); p {
	case PromptDefault, PromptNone, PromptLogin, PromptConsent, PromptSelectAccount:
		return p, nil
	}
	return "", fmt.Errorf("%w: unsupported prompt %q", ErrInvalidRequest, s)
}

// GrantType is the grant_type of a token request.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
)

func ParseGrantType(s string) (GrantType, error) {
	switch g := GrantType(s); g {
	case GrantAuthorizationCode, GrantRefreshToken:
		return g, nil
	}
	return "", fmt.Errorf("%w: unsupported grant_type %q", ErrInvalidRequest, s)
}

// Decision is the user's answer on the consent screen.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionDeny    Decision = "deny"
)

func ParseDecision(s string) (Decision, error) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case DecisionApprove, DecisionDeny:
		return d, nil
	}
	return "", fmt.Errorf("%w: unsupported decision %q", ErrInvalidRequest, s)
}
