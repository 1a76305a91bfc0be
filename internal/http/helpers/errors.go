package helpers

import (
	"errors"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/flood"
	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/services/apikey"
	"github.com/dropDatabas3/humanid/internal/http/services/auth"
	"github.com/dropDatabas3/humanid/internal/http/services/mfa"
	"github.com/dropDatabas3/humanid/internal/http/services/oauth"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/security/password"
)

// domainErrors mapea cada sentinel de dominio a su AppError. El orden
// importa solo para errores que envuelven a otros.
var domainErrors = []struct {
	err error
	app *httperrors.AppError
}{
	{flood.ErrRateLimited, httperrors.ErrRateLimited},

	{auth.ErrInvalidCredentials, httperrors.ErrInvalidCredentials},
	{auth.ErrEmailUnverified, httperrors.ErrEmailUnverified},
	{auth.ErrPasswordExpired, httperrors.ErrPasswordExpired},

	{mfa.ErrTOTPNotConfigured, httperrors.ErrTOTPNotConfigured},
	{mfa.ErrMissingTOTPToken, httperrors.ErrMissingTOTPToken},
	{mfa.ErrInvalidTOTPToken, httperrors.ErrInvalidTOTPToken},
	{mfa.ErrInvalidBackupCode, httperrors.ErrInvalidBackupCode},
	{mfa.ErrTOTPAlreadyEnabled, httperrors.ErrTOTPAlreadyEnabled},
	{mfa.ErrTOTPDisabled, httperrors.ErrTOTPDisabled},
	{mfa.ErrDeviceNotFound, httperrors.ErrNotFound},

	{oauth.ErrInvalidRequest, httperrors.ErrInvalidRequest},
	{oauth.ErrInvalidGrant, httperrors.ErrInvalidGrant},
	{oauth.ErrInvalidRedirect, httperrors.ErrInvalidRedirect},
	{oauth.ErrClientNotFound, httperrors.ErrClientNotFound},
	{oauth.ErrInvalidClient, httperrors.ErrInvalidClient},
	{oauth.ErrInvalidToken, httperrors.ErrUnauthorized},
	{oauth.ErrLoginRequired, httperrors.ErrUnauthorized},
	{oauth.ErrTokenCollision, httperrors.ErrTemporarilyUnavailable},

	{apikey.ErrForbidden, httperrors.ErrForbidden},
	{jwt.ErrSignatureInvalid, httperrors.ErrSignatureInvalid},
	{jwt.ErrTokenExpired, httperrors.ErrTokenExpired},
	{jwt.ErrNoKey, httperrors.ErrServiceUnavailable},
	{password.ErrEmpty, httperrors.ErrMissingFields},

	{repository.ErrNotFound, httperrors.ErrNotFound},
	{repository.ErrConflict, httperrors.ErrConflict},
	{repository.ErrInvalidInput, httperrors.ErrBadRequest},
	{repository.ErrUnavailable, httperrors.ErrServiceUnavailable},
}

// DomainError traduce un error de service a su AppError. Un AppError pasa
// tal cual; lo desconocido es 500.
func DomainError(err error) *httperrors.AppError {
	if err == nil {
		return nil
	}
	var appErr *httperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	var locked *flood.LockedError
	if errors.As(err, &locked) {
		return httperrors.ErrRateLimited.WithRetryAfter(locked.RetryAfter).WithCause(err)
	}
	for _, m := range domainErrors {
		if errors.Is(err, m.err) {
			return m.app.WithCause(err)
		}
	}
	return httperrors.ErrInternalServerError.WithCause(err)
}
