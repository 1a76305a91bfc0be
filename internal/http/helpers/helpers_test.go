package helpers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/flood"
	httperrors "github.com/dropDatabas3/humanid/internal/http/errors"
	"github.com/dropDatabas3/humanid/internal/http/services/mfa"
	"github.com/dropDatabas3/humanid/internal/http/services/oauth"
)

func TestDomainError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{flood.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{fmt.Errorf("%w: code expired", oauth.ErrInvalidGrant), http.StatusBadRequest, "invalid_grant"},
		{mfa.ErrMissingTOTPToken, http.StatusUnauthorized, httperrors.ErrMissingTOTPToken.Code},
		{fmt.Errorf("load user: %w", repository.ErrUnavailable), http.StatusServiceUnavailable, httperrors.ErrServiceUnavailable.Code},
		{oauth.ErrTokenCollision, http.StatusServiceUnavailable, "temporarily_unavailable"},
		{fmt.Errorf("boom"), http.StatusInternalServerError, httperrors.ErrInternalServerError.Code},
	}
	for _, tc := range cases {
		got := DomainError(tc.err)
		require.Equal(t, tc.status, got.HTTPStatus, tc.err.Error())
		require.Equal(t, tc.code, got.Code, tc.err.Error())
	}
	require.Nil(t, DomainError(nil))
	require.Same(t, httperrors.ErrForbidden, DomainError(httperrors.ErrForbidden))
}

func TestDomainError_LockoutRetryAfterFollowsWindow(t *testing.T) {
	err := fmt.Errorf("verify: %w", &flood.LockedError{RetryAfter: 2 * time.Minute})
	got := DomainError(err)
	require.Equal(t, http.StatusTooManyRequests, got.HTTPStatus)
	require.Equal(t, 2*time.Minute, got.RetryAfter)

	rec := httptest.NewRecorder()
	httperrors.WriteError(rec, got)
	require.Equal(t, "120", rec.Header().Get("Retry-After"))
	// el catálogo no se modifica
	require.Equal(t, 5*time.Minute, httperrors.ErrRateLimited.RetryAfter)
}

func TestReadParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.org","remember":true,"n":3}`))
	req.Header.Set("Content-Type", "application/json")
	v, err := ReadParams(httptest.NewRecorder(), req)
	require.NoError(t, err)
	require.Equal(t, "a@b.org", v.Get("email"))
	require.True(t, Bool(v.Get("remember")))
	require.Equal(t, "3", v.Get("n"))

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("email=a%40b.org&remember=on"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	v, err = ReadParams(httptest.NewRecorder(), req)
	require.NoError(t, err)
	require.Equal(t, "a@b.org", v.Get("email"))
	require.True(t, Bool(v.Get("remember")))

	req = httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":["x"]}`))
	req.Header.Set("Content-Type", "application/json")
	_, err = ReadParams(httptest.NewRecorder(), req)
	require.Error(t, err)
}
