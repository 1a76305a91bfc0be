package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// AppError define la estructura estándar para errores de la API.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Detail     string `json:"detail,omitempty"`
	HTTPStatus int    `json:"-"`
	// RetryAfter se expone como header Retry-After cuando es > 0.
	RetryAfter time.Duration `json:"-"`
	Err        error         `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// New crea un nuevo AppError.
func New(status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status}
}

// Wrap crea un AppError envolviendo un error existente.
func Wrap(err error, status int, code, message string) *AppError {
	return &AppError{Code: code, Message: message, HTTPStatus: status, Err: err}
}

// FromError convierte cualquier error en AppError. Lo que no es AppError
// termina como error interno conservando la causa.
func FromError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternalServerError.WithCause(err)
}

// WithDetail devuelve una COPIA con el detalle agregado.
func (e *AppError) WithDetail(detail string) *AppError {
	c := *e
	c.Detail = detail
	return &c
}

// WithRetryAfter devuelve una COPIA con otro hint de Retry-After.
func (e *AppError) WithRetryAfter(d time.Duration) *AppError {
	c := *e
	c.RetryAfter = d
	return &c
}

// WithCause devuelve una COPIA con la causa agregada.
func (e *AppError) WithCause(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// =================================================================================
// ERRORES PREDEFINIDOS
// =================================================================================

// 400 Bad Request
var (
	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "The request is malformed or missing parameters.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidJSON = &AppError{
		Code:       "INVALID_JSON",
		Message:    "The request body is not valid JSON.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrMissingFields = &AppError{
		Code:       "MISSING_FIELDS",
		Message:    "Required fields are missing.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidRequest = &AppError{
		Code:       "invalid_request",
		Message:    "The request has an invalid or unsupported parameter.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrTOTPNotConfigured = &AppError{
		Code:       "TOTP_NOT_CONFIGURED",
		Message:    "Two-factor authentication is not configured for this account.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrTOTPAlreadyEnabled = &AppError{
		Code:       "TOTP_ALREADY_ENABLED",
		Message:    "Two-factor authentication is already enabled.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrTOTPDisabled = &AppError{
		Code:       "TOTP_DISABLED",
		Message:    "Two-factor authentication is not enabled.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidGrant = &AppError{
		Code:       "invalid_grant",
		Message:    "The authorization grant is invalid, expired or was issued to another client.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrInvalidRedirect = &AppError{
		Code:       "INVALID_REDIRECT_URI",
		Message:    "The redirect_uri is not registered for this client.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrClientNotFound = &AppError{
		Code:       "invalid_client",
		Message:    "Unknown client.",
		HTTPStatus: http.StatusBadRequest,
	}

	ErrWeakPassword = &AppError{
		Code:       "WEAK_PASSWORD",
		Message:    "The password does not meet the password policy.",
		HTTPStatus: http.StatusBadRequest,
	}
)

// 401 Unauthorized
var (
	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Authentication is required.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidCredentials = &AppError{
		Code:       "INVALID_CREDENTIALS",
		Message:    "Invalid email or password.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrMissingTOTPToken = &AppError{
		Code:       "MISSING_TOTP_TOKEN",
		Message:    "A two-factor code is required.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidTOTPToken = &AppError{
		Code:       "INVALID_TOTP_TOKEN",
		Message:    "The two-factor code is invalid.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidBackupCode = &AppError{
		Code:       "INVALID_BACKUP_CODE",
		Message:    "The backup code is invalid.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrSignatureInvalid = &AppError{
		Code:       "SIGNATURE_INVALID",
		Message:    "The token signature is invalid.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrTokenExpired = &AppError{
		Code:       "TOKEN_EXPIRED",
		Message:    "The token has expired.",
		HTTPStatus: http.StatusUnauthorized,
	}

	ErrInvalidClient = &AppError{
		Code:       "invalid_client",
		Message:    "Client authentication failed.",
		HTTPStatus: http.StatusUnauthorized,
	}
)

// 403 Forbidden
var (
	ErrForbidden = &AppError{
		Code:       "FORBIDDEN",
		Message:    "You are not allowed to perform this action.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrEmailUnverified = &AppError{
		Code:       "EMAIL_UNVERIFIED",
		Message:    "The email address has not been verified.",
		HTTPStatus: http.StatusForbidden,
	}

	ErrPasswordExpired = &AppError{
		Code:       "PASSWORD_EXPIRED",
		Message:    "The password has expired and must be reset.",
		HTTPStatus: http.StatusForbidden,
	}
)

// 404 / 405 / 409
var (
	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "The requested resource was not found.",
		HTTPStatus: http.StatusNotFound,
	}

	ErrMethodNotAllowed = &AppError{
		Code:       "METHOD_NOT_ALLOWED",
		Message:    "The HTTP method is not allowed for this resource.",
		HTTPStatus: http.StatusMethodNotAllowed,
	}

	ErrConflict = &AppError{
		Code:       "CONFLICT",
		Message:    "The resource was modified concurrently, retry the request.",
		HTTPStatus: http.StatusConflict,
	}
)

// 429 Too Many Requests
var (
	ErrRateLimited = &AppError{
		Code:       "RATE_LIMITED",
		Message:    "Too many failed attempts, try again later.",
		HTTPStatus: http.StatusTooManyRequests,
		RetryAfter: 5 * time.Minute,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests.",
		HTTPStatus: http.StatusTooManyRequests,
	}
)

// 5xx
var (
	ErrInternalServerError = &AppError{
		Code:       "INTERNAL_SERVER_ERROR",
		Message:    "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError,
	}

	ErrServiceUnavailable = &AppError{
		Code:       "SERVICE_UNAVAILABLE",
		Message:    "The service is temporarily unavailable.",
		HTTPStatus: http.StatusServiceUnavailable,
	}

	ErrTemporarilyUnavailable = &AppError{
		Code:       "temporarily_unavailable",
		Message:    "The server could not issue a token, retry the request.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
)
