package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteError_RateLimitedSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, ErrRateLimited)

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "300", rec.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "RATE_LIMITED", body["code"])
}

func TestWriteError_UnknownErrorIsInternal(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteError(rec, fmt.Errorf("boom"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestFromError_UnwrapsWrapped(t *testing.T) {
	err := fmt.Errorf("ctx: %w", ErrInvalidGrant)
	require.Equal(t, "invalid_grant", FromError(err).Code)
}

func TestWithDetail_DoesNotMutateBase(t *testing.T) {
	d := ErrBadRequest.WithDetail("x")
	require.Equal(t, "x", d.Detail)
	require.Empty(t, ErrBadRequest.Detail)
}

func TestWriteOAuthError(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteOAuthError(rec, ErrInvalidClient)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "invalid_client", body["error"])
	require.NotEmpty(t, body["error_description"])
}

func TestOAuthCode(t *testing.T) {
	require.Equal(t, "invalid_request", OAuthCode(ErrInvalidRedirect))
	require.Equal(t, "temporarily_unavailable", OAuthCode(ErrServiceUnavailable))
	require.Equal(t, "temporarily_unavailable", OAuthCode(ErrTemporarilyUnavailable))
	require.Equal(t, "server_error", OAuthCode(ErrInternalServerError))
}
