package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", "/"},
		{"/", "/"},
		{"/oauth/authorize?x=1", "/oauth/authorize"},
		{"/totp/device/3f2a9c1e-8b7d-4c2a-9e1f-0a1b2c3d4e5f", "/totp/device/:param"},
		{"/totp/device/42", "/totp/device/:param"},
		{"/api/v3/jsonwebtoken", "/api/v3/jsonwebtoken"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, NormalizePath(tc.in), tc.in)
	}
}

func TestRegisterAndServe(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := Register(Config{Registry: reg})
	require.NoError(t, err)

	// el segundo registro sobre el mismo registry no falla
	_, err = Register(Config{Registry: reg})
	require.NoError(t, err)

	RecordLogin("ok")
	RecordTokenIssued("code")

	api := WithMetrics(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	api.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	require.True(t, strings.Contains(body, "login_attempts_total"))
	require.Contains(t, body, `http_requests_total{method="GET",path="/healthz",status="418"}`)
}
