package middlewares

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/rate"
	"github.com/dropDatabas3/humanid/internal/security/bewit"
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
	"github.com/dropDatabas3/humanid/internal/session"
	"github.com/dropDatabas3/humanid/internal/store/memory"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mk := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { order = append(order, "h") }), mk("a"), nil, mk("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"a", "b", "h"}, order)
}

func TestRequestID_PropagatesOrGenerates(t *testing.T) {
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { seen = GetRequestID(r.Context()) }), WithRequestID())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, "abc", seen)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Len(t, seen, 32)
}

func TestRecover(t *testing.T) {
	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }), WithRecover())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }),
		WithRateLimit(RateLimitConfig{Limiter: rate.NewMemoryLimiter(1, time.Minute), Whitelist: []string{"/healthz"}}))

	do := func(path string) int {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}
	require.Equal(t, http.StatusNoContent, do("/login"))
	require.Equal(t, http.StatusTooManyRequests, do("/login"))
	require.Equal(t, http.StatusNoContent, do("/healthz"))
	require.Equal(t, http.StatusNoContent, do("/healthz"))
}

// ---- auth ----

type tokenLookup struct{ repo repository.OAuthTokenRepository }

func (l tokenLookup) Lookup(ctx context.Context, typ repository.TokenType, token string) (*repository.OAuthToken, error) {
	return l.repo.Get(ctx, typ, token)
}

type blacklist map[string]bool

func (b blacklist) IsBlacklisted(_ context.Context, token string) (bool, error) { return b[token], nil }

type authFixture struct {
	sessions *session.Manager
	jwt      *jwt.Service
	bewit    *bewit.Signer
	store    *memory.Store
	revoked  blacklist
	handler  http.Handler
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	box, err := secretbox.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	priv, err := jwt.GenerateKey()
	require.NoError(t, err)

	f := &authFixture{
		sessions: session.NewManager(box, session.Config{}),
		jwt:      jwt.NewService(jwt.NewStaticKeystore(jwt.NewKey(priv), nil), jwt.Config{Issuer: "https://id.test"}),
		bewit:    bewit.NewSigner([]byte("bewit-key"), time.Minute),
		store:    memory.New(),
		revoked:  blacklist{},
	}
	f.handler = Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := GetPrincipal(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(p.UserID + "|" + p.Method + "|" + p.ClientID))
	}), RequireAuth(
		SessionAuth{Sessions: f.sessions},
		BearerAuth{JWT: f.jwt, Blacklist: f.revoked, Tokens: tokenLookup{f.store.Tokens()}},
		BewitAuth{Signer: f.bewit},
	))
	return f
}

func (f *authFixture) serve(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func TestRequireAuth_NoCredentials(t *testing.T) {
	f := newAuthFixture(t)
	rec := f.serve(httptest.NewRequest(http.MethodGet, "/api/v3/jsonwebtoken", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestRequireAuth_Session(t *testing.T) {
	f := newAuthFixture(t)

	save := func(s *session.Session) *http.Request {
		rec := httptest.NewRecorder()
		require.NoError(t, f.sessions.Save(rec, s))
		req := httptest.NewRequest(http.MethodGet, "/totp/config", nil)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
		return req
	}

	rec := f.serve(save(&session.Session{UserID: "u1", TOTPPassed: true}))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u1|session|", rec.Body.String())

	// TOTP pendiente no cuenta como autenticado
	rec = f.serve(save(&session.Session{UserID: "u1", TOTPRequired: true}))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_BearerJWT(t *testing.T) {
	f := newAuthFixture(t)
	tok, err := f.jwt.IssueAPIKey("u2")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/v3/jsonwebtoken", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec := f.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u2|bearer_jwt|", rec.Body.String())

	f.revoked[tok] = true
	rec = f.serve(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_BearerJWTBadSignature(t *testing.T) {
	f := newAuthFixture(t)
	tok, err := f.jwt.IssueAPIKey("u2")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tok[:len(tok)-4]+"AAAA")
	rec := f.serve(req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "SIGNATURE_INVALID")
}

func TestRequireAuth_BearerOpaque(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	now := time.Now()
	require.NoError(t, f.store.Tokens().Create(ctx, &repository.OAuthToken{
		Type: repository.TokenAccess, Token: "live", ClientID: "c1", UserID: "u3", Scope: "openid", ExpiresAt: now.Add(time.Hour),
	}))
	require.NoError(t, f.store.Tokens().Create(ctx, &repository.OAuthToken{
		Type: repository.TokenAccess, Token: "dead", ClientID: "c1", UserID: "u3", ExpiresAt: now.Add(-time.Second),
	}))

	req := httptest.NewRequest(http.MethodGet, "/oauth/userinfo", nil)
	req.Header.Set("Authorization", "Bearer live")
	rec := f.serve(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u3|bearer_token|c1", rec.Body.String())

	req.Header.Set("Authorization", "Bearer dead")
	require.Equal(t, http.StatusUnauthorized, f.serve(req).Code)

	req.Header.Set("Authorization", "Bearer unknown")
	require.Equal(t, http.StatusUnauthorized, f.serve(req).Code)
}

func TestRequireAuth_Bewit(t *testing.T) {
	f := newAuthFixture(t)
	signed, _, err := f.bewit.SignURL("u4", "https://id.test/api/v3/jsonwebtoken?page=2")
	require.NoError(t, err)

	rec := f.serve(httptest.NewRequest(http.MethodGet, signed, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "u4|bewit|", rec.Body.String())

	// otro path con el mismo bewit
	other := strings.Replace(signed, "page=2", "page=3", 1)
	require.Equal(t, http.StatusUnauthorized, f.serve(httptest.NewRequest(http.MethodGet, other, nil)).Code)

	// solo GET
	require.Equal(t, http.StatusUnauthorized, f.serve(httptest.NewRequest(http.MethodPost, signed, nil)).Code)
}
