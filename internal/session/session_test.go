package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/humanid/internal/security/secretbox"
)

func newManager(t *testing.T, now *time.Time) *Manager {
	t.Helper()
	box, err := secretbox.New([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	return NewManager(box, Config{TTL: time.Hour}).WithClock(func() time.Time { return *now })
}

func roundTrip(t *testing.T, m *Manager, s *Session) *http.Request {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, m.Save(rec, s))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestSaveLoad(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := newManager(t, &now)

	req := roundTrip(t, m, &Session{UserID: "u1", TOTPRequired: true, AuthTime: now})
	got := m.Load(req)
	require.NotNil(t, got)
	require.Equal(t, "u1", got.UserID)
	require.Equal(t, TOTPPending, got.State())

	got.TOTPPassed = true
	req = roundTrip(t, m, got)
	require.Equal(t, Authenticated, m.Load(req).State())
}

func TestLoad_IdleExpiry(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	m := newManager(t, &now)
	req := roundTrip(t, m, &Session{UserID: "u1", TOTPPassed: true})

	now = now.Add(59 * time.Minute)
	require.NotNil(t, m.Load(req))
	now = now.Add(2 * time.Minute)
	require.Nil(t, m.Load(req))
}

func TestLoad_Tampered(t *testing.T) {
	now := time.Now()
	m := newManager(t, &now)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "garbage|garbage"})
	require.Nil(t, m.Load(req))
	require.Equal(t, Unauthenticated, m.Load(req).State())
}

func TestDestroyAndTrustCookie(t *testing.T) {
	now := time.Now()
	m := newManager(t, &now)
	rec := httptest.NewRecorder()
	m.Destroy(rec)
	m.SetTrustCookie(rec, "s3cret")

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 2)
	require.Equal(t, DefaultCookieName, cookies[0].Name)
	require.Equal(t, -1, cookies[0].MaxAge)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookies[1])
	require.Equal(t, "s3cret", TrustCookie(req))
}

func TestState(t *testing.T) {
	var nilSession *Session
	require.Equal(t, Unauthenticated, nilSession.State())
	require.Equal(t, PasswordVerified, (&Session{UserID: "u"}).State())
	require.Equal(t, "totp_pending", (&Session{UserID: "u", TOTPRequired: true}).State().String())
}
