package auth

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/flood"
	"github.com/dropDatabas3/humanid/internal/http/services/mfa"
	"github.com/dropDatabas3/humanid/internal/security/password"
	"github.com/dropDatabas3/humanid/internal/security/totp"
	"github.com/dropDatabas3/humanid/internal/session"
	"github.com/dropDatabas3/humanid/internal/store/memory"
)

const (
	testPassword = "correct horse battery 9"
	testSecret   = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
)

type fixture struct {
	store    *memory.Store
	guard    *flood.Guard
	verifier Verifier
	login    LoginService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), now: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }
	f.guard = flood.New(f.store.Flood(), flood.Config{}).WithClock(clock)
	f.verifier = NewVerifier(VerifierDeps{Users: f.store.Users(), Flood: f.guard, Now: clock})
	validator := mfa.NewValidator(mfa.ValidatorDeps{Users: f.store.Users(), Flood: f.guard, Now: clock})
	f.login = NewLoginService(LoginDeps{Verifier: f.verifier, Validator: validator, Users: f.store.Users(), Now: clock})
	return f
}

func (f *fixture) addUser(t *testing.T, u repository.User) {
	t.Helper()
	hash, err := password.Hasher{Cost: bcrypt.MinCost}.Hash(testPassword)
	require.NoError(t, err)
	u.PasswordHash = hash
	require.NoError(t, f.store.Users().Create(context.Background(), &u))
}

func TestVerify_Success(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, repository.User{ID: "u1", Email: "ana@example.org", EmailVerified: true})

	u, err := f.verifier.Verify(context.Background(), "  ANA@Example.org ", testPassword)
	require.NoError(t, err)
	require.Equal(t, "u1", u.ID)
}

func TestVerify_PolicyFailures(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, repository.User{ID: "u1", Email: "unverified@example.org"})
	f.addUser(t, repository.User{ID: "u2", Email: "old@example.org", EmailVerified: true, LastPasswordReset: f.now.AddDate(0, -7, 0)})
	ctx := context.Background()

	_, err := f.verifier.Verify(ctx, "unverified@example.org", testPassword)
	require.ErrorIs(t, err, ErrEmailUnverified)

	_, err = f.verifier.Verify(ctx, "old@example.org", testPassword)
	require.ErrorIs(t, err, ErrPasswordExpired)

	_, err = f.verifier.Verify(ctx, "nobody@example.org", testPassword)
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

// 4 fallos previos en los últimos 3 minutos: el 5to sigue siendo
// InvalidCredentials y el 6to queda bloqueado aunque la contraseña sea correcta.
func TestVerify_LockoutOnSixthAttempt(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, repository.User{ID: "u1", Email: "ana@example.org", EmailVerified: true})
	ctx := context.Background()

	start := f.now
	for i := 0; i < 4; i++ {
		f.now = start.Add(time.Duration(i) * 45 * time.Second)
		_, err := f.verifier.Verify(ctx, "ana@example.org", "wrong")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	}

	f.now = start.Add(3 * time.Minute)
	_, err := f.verifier.Verify(ctx, "ana@example.org", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.verifier.Verify(ctx, "ana@example.org", testPassword)
	require.ErrorIs(t, err, flood.ErrRateLimited)

	n, err := f.store.Flood().CountSince(ctx, repository.FloodLogin, "ana@example.org", start.Add(-time.Minute))
	require.NoError(t, err)
	require.Equal(t, 5, n, "the rejected attempt is not recorded")
}

func TestLogin_WithoutTOTPRedirectsToAuthorize(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, repository.User{ID: "u1", Email: "ana@example.org", EmailVerified: true})

	params := url.Values{"client_id": {"x"}, "response_type": {"code"}, "state": {"s1"}, "prompt": {"login"}}
	res, err := f.login.Login(context.Background(), nil, LoginRequest{Email: "ana@example.org", Password: testPassword, OAuth: params})
	require.NoError(t, err)
	require.Equal(t, StepDone, res.Step)
	require.True(t, res.Session.Authenticated())

	u, err := url.Parse(res.RedirectTo)
	require.NoError(t, err)
	require.Equal(t, "/oauth/authorize", u.Path)
	require.Equal(t, "x", u.Query().Get("client_id"))
	require.Equal(t, "s1", u.Query().Get("state"))
	require.Empty(t, u.Query().Get("prompt"))

	res, err = f.login.Login(context.Background(), nil, LoginRequest{Email: "ana@example.org", Password: testPassword})
	require.NoError(t, err)
	require.Equal(t, "/user", res.RedirectTo)
}

func TestLogin_TOTPHandshakeAndTrustedDevice(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, repository.User{ID: "u1", Email: "ana@example.org", EmailVerified: true, TOTPEnabled: true, TOTPSecret: testSecret})
	ctx := context.Background()
	const ua = "Mozilla/5.0"

	// paso 1: contraseña
	res, err := f.login.Login(ctx, nil, LoginRequest{Email: "ana@example.org", Password: testPassword, RememberDevice: true, UserAgent: ua})
	require.NoError(t, err)
	require.Equal(t, StepTOTP, res.Step)
	require.Equal(t, session.TOTPPending, res.Session.State())
	require.True(t, res.Session.PendingTrustGrant)

	// código incorrecto: la sesión sigue pendiente
	pending := res.Session
	res, err = f.login.Login(ctx, pending, LoginRequest{TOTPCode: "000000", UserAgent: ua})
	require.ErrorIs(t, err, mfa.ErrInvalidTOTPToken)
	require.Equal(t, session.TOTPPending, res.Session.State())

	// paso 2: TOTP correcto, se concreta el trusted device
	code, err := totp.Code(testSecret, f.now)
	require.NoError(t, err)
	res, err = f.login.Login(ctx, pending, LoginRequest{TOTPCode: code, UserAgent: ua})
	require.NoError(t, err)
	require.Equal(t, StepDone, res.Step)
	require.True(t, res.Session.Authenticated())
	require.False(t, res.Session.PendingTrustGrant)
	require.NotEmpty(t, res.TrustSecret)

	// login siguiente desde el mismo dispositivo: sin TOTP
	next, err := f.login.Login(ctx, nil, LoginRequest{Email: "ana@example.org", Password: testPassword, UserAgent: ua, TrustSecret: res.TrustSecret})
	require.NoError(t, err)
	require.Equal(t, StepDone, next.Step)
	require.True(t, next.Session.Authenticated())

	// pasados 30 días el secreto ya no alcanza
	f.now = f.now.Add(31 * 24 * time.Hour)
	late, err := f.login.Login(ctx, nil, LoginRequest{Email: "ana@example.org", Password: testPassword, UserAgent: ua, TrustSecret: res.TrustSecret})
	require.NoError(t, err)
	require.Equal(t, StepTOTP, late.Step)
}

func TestLogin_PasswordAndCodeInOneRequest(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, repository.User{ID: "u1", Email: "ana@example.org", EmailVerified: true, TOTPEnabled: true, TOTPSecret: testSecret})

	code, err := totp.Code(testSecret, f.now)
	require.NoError(t, err)
	res, err := f.login.Login(context.Background(), nil, LoginRequest{Email: "ana@example.org", Password: testPassword, TOTPCode: code})
	require.NoError(t, err)
	require.Equal(t, StepDone, res.Step)
	require.Empty(t, res.TrustSecret)
}
