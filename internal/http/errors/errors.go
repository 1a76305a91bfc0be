package errors

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// WriteError escribe la respuesta JSON {code, message, detail} para err.
func WriteError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(appErr.HTTPStatus)

	_ = json.NewEncoder(w).Encode(errorResponse{
		Code:    appErr.Code,
		Message: appErr.Message,
		Detail:  appErr.Detail,
	})
}

// =================================================================================
// VOCABULARIO OAUTH2 (RFC 6749 §5.2 / §4.1.2.1)
// =================================================================================

type oauthResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// OAuthCode traduce un AppError al código de error OAuth2 equivalente.
func OAuthCode(appErr *AppError) string {
	switch appErr.Code {
	case "invalid_request", "invalid_client", "invalid_grant", "unauthorized_client",
		"unsupported_grant_type", "invalid_scope", "access_denied", "unsupported_response_type",
		"server_error", "temporarily_unavailable", "login_required", "interaction_required":
		return appErr.Code
	case ErrInvalidRedirect.Code:
		return "invalid_request"
	case ErrServiceUnavailable.Code, ErrRateLimited.Code, ErrRateLimitExceeded.Code:
		return "temporarily_unavailable"
	case ErrSignatureInvalid.Code, ErrTokenExpired.Code, ErrUnauthorized.Code:
		return "invalid_token"
	}
	if appErr.HTTPStatus >= 500 {
		return "server_error"
	}
	return "invalid_request"
}

// WriteOAuthError escribe {error, error_description} con el status del AppError.
func WriteOAuthError(w http.ResponseWriter, err error) {
	appErr := FromError(err)

	if appErr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(appErr.RetryAfter.Seconds())))
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(appErr.HTTPStatus)

	desc := appErr.Message
	if appErr.Detail != "" {
		desc = appErr.Detail
	}
	_ = json.NewEncoder(w).Encode(oauthResponse{Error: OAuthCode(appErr), ErrorDescription: desc})
}

// OAuthErrorParams arma los parámetros de error para una redirección al cliente.
func OAuthErrorParams(code, description, state string) url.Values {
	v := url.Values{}
	v.Set("error", code)
	if description != "" {
		v.Set("error_description", description)
	}
	if state != "" {
		v.Set("state", state)
	}
	return v
}
