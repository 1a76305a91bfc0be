package apikey

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/email"
	"github.com/dropDatabas3/humanid/internal/flood"
	"github.com/dropDatabas3/humanid/internal/http/services/auth"
	"github.com/dropDatabas3/humanid/internal/http/services/mfa"
	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/security/password"
	"github.com/dropDatabas3/humanid/internal/security/totp"
	"github.com/dropDatabas3/humanid/internal/store/memory"
)

const (
	testPassword = "correct horse battery 9"
	testSecret   = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"
)

type recordingMailer struct{ kinds []email.Kind }

func (m *recordingMailer) Send(_ context.Context, kind email.Kind, _ string) error {
	m.kinds = append(m.kinds, kind)
	return nil
}

type fixture struct {
	store  *memory.Store
	svc    Service
	jwt    *jwt.Service
	mailer *recordingMailer
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New(), mailer: &recordingMailer{}, now: time.Date(2024, 5, 5, 10, 0, 0, 0, time.UTC)}
	clock := func() time.Time { return f.now }

	priv, err := jwt.GenerateKey()
	require.NoError(t, err)
	f.jwt = jwt.NewService(jwt.NewStaticKeystore(jwt.NewKey(priv), nil), jwt.Config{Issuer: "https://id.test"}).WithClock(clock)

	guard := flood.New(f.store.Flood(), flood.Config{}).WithClock(clock)
	f.svc = NewService(Deps{
		Verifier:  auth.NewVerifier(auth.VerifierDeps{Users: f.store.Users(), Flood: guard, Now: clock}),
		Validator: mfa.NewValidator(mfa.ValidatorDeps{Users: f.store.Users(), Flood: guard, Now: clock}),
		JWT:       f.jwt,
		Keys:      f.store.APIKeys(),
		Mailer:    f.mailer,
		Now:       clock,
	})

	hash, err := password.Hasher{Cost: bcrypt.MinCost}.Hash(testPassword)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, f.store.Users().Create(ctx, &repository.User{ID: "u1", Email: "ana@example.org", EmailVerified: true, PasswordHash: hash}))
	require.NoError(t, f.store.Users().Create(ctx, &repository.User{ID: "u2", Email: "bob@example.org", EmailVerified: true, PasswordHash: hash, TOTPEnabled: true, TOTPSecret: testSecret}))
	return f
}

func TestIssue_ListAndBlacklist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Issue(ctx, "ana@example.org", testPassword, "")
	require.NoError(t, err)
	second, err := f.svc.Issue(ctx, "ana@example.org", testPassword, "")
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	claims, err := f.jwt.Verify(first.Token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims["id"])

	keys, err := f.svc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, keys, 2)

	revoked, err := f.svc.IsBlacklisted(ctx, first.Token)
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, f.svc.Blacklist(ctx, "u1", first.Token))
	revoked, err = f.svc.IsBlacklisted(ctx, first.Token)
	require.NoError(t, err)
	require.True(t, revoked)

	// idempotente
	require.NoError(t, f.svc.Blacklist(ctx, "u1", first.Token))
	require.Equal(t, []email.Kind{email.KindAPIKeyCreated, email.KindAPIKeyCreated}, f.mailer.kinds)
}

func TestBlacklist_OwnershipAndSignature(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	issued, err := f.svc.Issue(ctx, "ana@example.org", testPassword, "")
	require.NoError(t, err)

	require.ErrorIs(t, f.svc.Blacklist(ctx, "u2", issued.Token), ErrForbidden)
	require.ErrorIs(t, f.svc.Blacklist(ctx, "u1", issued.Token[:len(issued.Token)-4]+"AAAA"), jwt.ErrSignatureInvalid)

	// token válido sin registro previo: queda revocado igual
	untracked, err := f.jwt.IssueAPIKey("u1")
	require.NoError(t, err)
	require.NoError(t, f.svc.Blacklist(ctx, "u1", untracked))
	revoked, err := f.svc.IsBlacklisted(ctx, untracked)
	require.NoError(t, err)
	require.True(t, revoked)
}

func TestIssue_RequiresTOTPWhenEnabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Issue(ctx, "bob@example.org", testPassword, "")
	require.ErrorIs(t, err, mfa.ErrMissingTOTPToken)

	code, err := totp.Code(testSecret, f.now)
	require.NoError(t, err)
	issued, err := f.svc.Issue(ctx, "bob@example.org", testPassword, code)
	require.NoError(t, err)
	require.Equal(t, "u2", issued.Key.UserID)
}

func TestIssue_BadCredentials(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Issue(context.Background(), "ana@example.org", "nope", "")
	require.ErrorIs(t, err, auth.ErrInvalidCredentials)
	require.Empty(t, f.mailer.kinds)
}
