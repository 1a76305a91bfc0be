package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/email"
	"github.com/dropDatabas3/humanid/internal/flood"
	"github.com/dropDatabas3/humanid/internal/http/controllers"
	"github.com/dropDatabas3/humanid/internal/http/services"
	"github.com/dropDatabas3/humanid/internal/http/services/health"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/rate"
	"github.com/dropDatabas3/humanid/internal/security/bewit"
	"github.com/dropDatabas3/humanid/internal/security/password"
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
	"github.com/dropDatabas3/humanid/internal/session"
	"github.com/dropDatabas3/humanid/internal/store/memory"
)

const (
	testPassword = "correct horse battery 9"
	redirectURI  = "https://app.example.org/cb"
)

func newServer(t *testing.T, limiter rate.Limiter) *httptest.Server {
	t.Helper()
	st := memory.New()
	ctx := context.Background()

	hash, err := password.Hasher{Cost: bcrypt.MinCost}.Hash(testPassword)
	require.NoError(t, err)
	require.NoError(t, st.Users().Create(ctx, &repository.User{
		ID: "u1", Email: "ana@example.org", Name: "Ana", EmailVerified: true, PasswordHash: hash,
	}))
	require.NoError(t, st.Clients().Create(ctx, &repository.Client{
		ID: "x", Secret: "x-secret", Name: "App X", RedirectURI: redirectURI,
	}))

	priv, err := jwt.GenerateKey()
	require.NoError(t, err)
	jwtSvc := jwt.NewService(jwt.NewStaticKeystore(jwt.NewKey(priv), nil), jwt.Config{Issuer: "https://id.test"})

	box, err := secretbox.New([]byte(strings.Repeat("k", 32)))
	require.NoError(t, err)
	sessions := session.NewManager(box, session.Config{})
	signer := bewit.NewSigner([]byte("bewit-key"), time.Minute)

	svcs := services.New(services.Deps{
		Store:      st,
		Flood:      flood.New(st.Flood(), flood.Config{}),
		JWT:        jwtSvc,
		Mailer:     email.NewMailer(nil),
		Issuer:     "https://id.test",
		BcryptCost: bcrypt.MinCost,
		HealthDeps: health.Deps{Version: "test", StoreCheck: st.Ping, JWT: jwtSvc},
	})
	ctrls := controllers.New(svcs, controllers.Deps{Sessions: sessions, Bewit: signer})

	srv := httptest.NewServer(New(Deps{
		Controllers: ctrls,
		Sessions:    sessions,
		JWT:         jwtSvc,
		Blacklist:   svcs.APIKeys,
		Tokens:      svcs.OAuth.Issuer,
		Bewit:       signer,
		RateLimiter: limiter,
	}))
	t.Cleanup(srv.Close)
	return srv
}

// browser no sigue redirecciones y guarda cookies.
func browser(t *testing.T) *http.Client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar:           jar,
		CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
	}
}

func decode(t *testing.T, res *http.Response, v any) {
	t.Helper()
	defer res.Body.Close()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

func TestAuthorizationCodeFlow(t *testing.T) {
	srv := newServer(t, nil)
	c := browser(t)

	authz := url.Values{
		"response_type": {"code"},
		"client_id":     {"x"},
		"redirect_uri":  {redirectURI},
		"scope":         {"openid email profile"},
		"state":         {"s1"},
		"nonce":         {"n1"},
	}

	// sin sesión: al login con los parámetros OAuth
	res, err := c.Get(srv.URL + "/oauth/authorize?" + authz.Encode())
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusFound, res.StatusCode)
	loc, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "/login", loc.Path)
	require.Equal(t, "x", loc.Query().Get("client_id"))

	// login JSON
	body := map[string]string{"email": "ana@example.org", "password": testPassword}
	for k := range authz {
		body[k] = authz.Get(k)
	}
	raw, _ := json.Marshal(body)
	res, err = c.Post(srv.URL+"/login", "application/json", strings.NewReader(string(raw)))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "no-store", res.Header.Get("Cache-Control"))
	var login struct {
		Step     string `json:"step"`
		Redirect string `json:"redirect"`
	}
	decode(t, res, &login)
	require.Equal(t, "done", login.Step)
	require.True(t, strings.HasPrefix(login.Redirect, "/oauth/authorize?"))

	// primera vez: consentimiento
	res, err = c.Get(srv.URL + login.Redirect)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var consent struct {
		Status     string            `json:"status"`
		ClientName string            `json:"client_name"`
		Params     map[string]string `json:"params"`
	}
	decode(t, res, &consent)
	require.Equal(t, "consent_required", consent.Status)
	require.Equal(t, "App X", consent.ClientName)

	form := url.Values{"decision": {"approve"}}
	for k, v := range consent.Params {
		form.Set(k, v)
	}
	res, err = c.PostForm(srv.URL+"/oauth/authorize", form)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusFound, res.StatusCode)
	cb, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "s1", cb.Query().Get("state"))
	code := cb.Query().Get("code")
	require.NotEmpty(t, code)

	// canje con basic auth
	exchange := func() *http.Response {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/oauth/access_token", strings.NewReader(url.Values{
			"grant_type":   {"authorization_code"},
			"code":         {code},
			"redirect_uri": {redirectURI},
		}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.SetBasicAuth("x", "x-secret")
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return res
	}
	res = exchange()
	require.Equal(t, http.StatusOK, res.StatusCode)
	var tok struct {
		AccessToken  string `json:"access_token"`
		TokenType    string `json:"token_type"`
		RefreshToken string `json:"refresh_token"`
		IDToken      string `json:"id_token"`
	}
	decode(t, res, &tok)
	require.Equal(t, "Bearer", tok.TokenType)
	require.NotEmpty(t, tok.AccessToken)
	require.NotEmpty(t, tok.RefreshToken)
	require.NotEmpty(t, tok.IDToken)

	// el code es de un solo uso
	res = exchange()
	var oerr struct {
		Error string `json:"error"`
	}
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
	decode(t, res, &oerr)
	require.Equal(t, "invalid_grant", oerr.Error)

	// userinfo
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/oauth/userinfo", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var info map[string]any
	decode(t, res, &info)
	require.Equal(t, "u1", info["sub"])
	require.Equal(t, "ana@example.org", info["email"])

	// el access token también autentica la API
	req, _ = http.NewRequest(http.MethodGet, srv.URL+"/api/v3/jsonwebtoken", nil)
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	res, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestUserInfo_RejectsUnknownToken(t *testing.T) {
	srv := newServer(t, nil)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/oauth/userinfo", nil)
	req.Header.Set("Authorization", "Bearer nope")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
	require.Contains(t, res.Header.Get("WWW-Authenticate"), "invalid_token")
}

func TestAPIKeyLifecycle(t *testing.T) {
	srv := newServer(t, nil)

	raw, _ := json.Marshal(map[string]string{"email": "ana@example.org", "password": testPassword})
	res, err := http.Post(srv.URL+"/api/v3/jsonwebtoken", "application/json", strings.NewReader(string(raw)))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var issued struct {
		Token string `json:"token"`
	}
	decode(t, res, &issued)
	require.NotEmpty(t, issued.Token)

	call := func(method, path, body string) *http.Response {
		req, _ := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
		req.Header.Set("Authorization", "Bearer "+issued.Token)
		if body != "" {
			req.Header.Set("Content-Type", "application/json")
		}
		res, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		return res
	}

	res = call(http.MethodGet, "/api/v3/jsonwebtoken", "")
	var keys []map[string]any
	require.Equal(t, http.StatusOK, res.StatusCode)
	decode(t, res, &keys)
	require.Len(t, keys, 1)

	// bewit para el listado, usable sin Authorization
	res = call(http.MethodPost, "/api/v3/bewit", `{"url":"/api/v3/jsonwebtoken"}`)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var signed struct {
		URL string `json:"url"`
	}
	decode(t, res, &signed)
	res, err = http.Get(srv.URL + signed.URL)
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)

	// revocar la propia key la deja inutilizable
	tokenBody, _ := json.Marshal(map[string]string{"token": issued.Token})
	res = call(http.MethodDelete, "/api/v3/jsonwebtoken", string(tokenBody))
	res.Body.Close()
	require.Equal(t, http.StatusNoContent, res.StatusCode)

	res = call(http.MethodGet, "/api/v3/jsonwebtoken", "")
	res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestPublicEndpoints(t *testing.T) {
	srv := newServer(t, nil)

	res, err := http.Get(srv.URL + "/.well-known/openid-configuration")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "public, max-age=600", res.Header.Get("Cache-Control"))
	var meta struct {
		Issuer  string `json:"issuer"`
		JWKSURI string `json:"jwks_uri"`
	}
	decode(t, res, &meta)
	require.Equal(t, "https://id.test", meta.Issuer)
	require.Equal(t, "https://id.test/oauth/jwks", meta.JWKSURI)

	res, err = http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "test", res.Header.Get("X-Service-Version"))
	require.NotEmpty(t, res.Header.Get("X-Request-ID"))

	res, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res, err = http.Get(srv.URL + "/api/v3/jsonwebtoken")
	require.NoError(t, err)
	res.Body.Close()
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)
}

func TestLogin_RateLimited(t *testing.T) {
	srv := newServer(t, rate.NewMemoryLimiter(2, time.Hour))
	c := browser(t)

	statuses := make([]int, 0, 3)
	for range 3 {
		res, err := c.PostForm(srv.URL+"/login", url.Values{"email": {"ana@example.org"}, "password": {"nope"}})
		require.NoError(t, err)
		res.Body.Close()
		statuses = append(statuses, res.StatusCode)
	}
	// el form vuelve al login con ?alert=
	require.Equal(t, []int{http.StatusSeeOther, http.StatusSeeOther, http.StatusTooManyRequests}, statuses)
}
