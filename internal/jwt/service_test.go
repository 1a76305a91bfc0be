package jwt

import (
	"crypto/rsa"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

var (
	keysOnce sync.Once
	keyA     *rsa.PrivateKey
	keyB     *rsa.PrivateKey
)

func testKeys(t *testing.T) (*rsa.PrivateKey, *rsa.PrivateKey) {
	t.Helper()
	keysOnce.Do(func() {
		var err error
		keyA, err = GenerateKey()
		require.NoError(t, err)
		keyB, err = GenerateKey()
		require.NoError(t, err)
	})
	return keyA, keyB
}

func TestVerify_LegacyFallbackAfterRotation(t *testing.T) {
	oldKey, newKey := testKeys(t)

	before := NewService(NewStaticKeystore(NewKey(oldKey), nil), Config{Issuer: "https://id.example.org"})
	tok, err := before.IssueAPIKey("u1")
	require.NoError(t, err)

	// rotación: la vieja pasa a legacy
	after := NewService(NewStaticKeystore(NewKey(newKey), NewKey(oldKey)), Config{Issuer: "https://id.example.org"})
	claims, err := after.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "u1", claims["id"])

	// sin legacy la firma no valida
	noLegacy := NewService(NewStaticKeystore(NewKey(newKey), nil), Config{})
	_, err = noLegacy.Verify(tok)
	require.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = after.Verify("not.a.jwt")
	require.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestVerify_LegacyWhenCurrentUnavailable(t *testing.T) {
	oldKey, newKey := testKeys(t)

	tok, err := NewService(NewStaticKeystore(NewKey(oldKey), nil), Config{}).IssueAPIKey("u1")
	require.NoError(t, err)

	// sin clave actual: JWKS publica la legacy y Verify tiene que aceptarla
	s := NewService(NewStaticKeystore(nil, NewKey(oldKey)), Config{})
	jwk, err := s.PublicKeyAsJWK()
	require.NoError(t, err)
	require.Equal(t, KID(&oldKey.PublicKey), jwk.Kid)

	claims, err := s.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "u1", claims["id"])

	other, err := NewService(NewStaticKeystore(NewKey(newKey), nil), Config{}).IssueAPIKey("u1")
	require.NoError(t, err)
	_, err = s.Verify(other)
	require.ErrorIs(t, err, ErrSignatureInvalid)

	_, err = NewService(NewStaticKeystore(nil, nil), Config{}).Verify(tok)
	require.ErrorIs(t, err, ErrNoKey)
}

func TestVerify_Expired(t *testing.T) {
	k, _ := testKeys(t)
	now := time.Unix(1_700_000_000, 0)
	s := NewService(NewStaticKeystore(NewKey(k), nil), Config{APIKeyTTL: time.Hour}).
		WithClock(func() time.Time { return now })

	tok, err := s.IssueAPIKey("u1")
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	_, err = s.Verify(tok)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestIssue_KidHeader(t *testing.T) {
	k, _ := testKeys(t)
	s := NewService(NewStaticKeystore(NewKey(k), nil), Config{})
	tok, err := s.Issue(jwtv5.MapClaims{"id": "u1"})
	require.NoError(t, err)

	parsed, _, err := jwtv5.NewParser().ParseUnverified(tok, jwtv5.MapClaims{})
	require.NoError(t, err)
	require.Equal(t, KID(&k.PublicKey), parsed.Header["kid"])
	require.Equal(t, "RS256", parsed.Header["alg"])
}

func TestGenerateIDToken_ScopeGatedClaims(t *testing.T) {
	k, _ := testKeys(t)
	now := time.Unix(1_700_000_000, 0)
	s := NewService(NewStaticKeystore(NewKey(k), nil), Config{
		Issuer:           "https://id.example.org",
		IDTokenTTL:       time.Hour,
		LegacySubClients: []string{"legacy-app"},
	}).WithClock(func() time.Time { return now })

	user := &repository.User{ID: "u1", Email: "ana@example.org", EmailVerified: true, Name: "Ana", GivenName: "Ana", FamilyName: "Pérez"}
	client := &repository.Client{ID: "x"}
	authTime := now.Add(-time.Minute)

	tok, err := s.GenerateIDToken(client, user, "openid", "n-1", authTime)
	require.NoError(t, err)
	claims, err := s.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "https://id.example.org", claims["iss"])
	require.Equal(t, "u1", claims["sub"])
	require.Equal(t, "x", claims["aud"])
	require.Equal(t, "n-1", claims["nonce"])
	require.EqualValues(t, authTime.Unix(), claims["auth_time"])
	require.NotContains(t, claims, "email")
	require.NotContains(t, claims, "name")

	tok, err = s.GenerateIDToken(client, user, "openid email profile", "", authTime)
	require.NoError(t, err)
	claims, err = s.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "ana@example.org", claims["email"])
	require.Equal(t, true, claims["email_verified"])
	require.Equal(t, "Pérez", claims["family_name"])
	require.NotContains(t, claims, "nonce")

	// tabla de clients legacy: sub = email
	tok, err = s.GenerateIDToken(&repository.Client{ID: "legacy-app"}, user, "openid", "", authTime)
	require.NoError(t, err)
	claims, err = s.Verify(tok)
	require.NoError(t, err)
	require.Equal(t, "ana@example.org", claims["sub"])
}

func TestJWKS_CurrentAndLegacy(t *testing.T) {
	a, b := testKeys(t)
	s := NewService(NewStaticKeystore(NewKey(a), NewKey(b)), Config{})
	set, err := s.JWKS()
	require.NoError(t, err)
	require.Len(t, set.Keys, 2)
	require.Equal(t, KID(&a.PublicKey), set.Keys[0].Kid)
	require.Equal(t, "RSA", set.Keys[0].Kty)
	require.Equal(t, "AQAB", set.Keys[0].E)

	// legacy igual a la actual no se duplica
	same := NewService(NewStaticKeystore(NewKey(a), NewKey(a)), Config{})
	set, err = same.JWKS()
	require.NoError(t, err)
	require.Len(t, set.Keys, 1)
}

func TestPublicKeyAsJWK_FallsBackToLegacy(t *testing.T) {
	_, b := testKeys(t)
	dir := t.TempDir()
	pemBytes, err := EncodePrivateKeyPEM(b)
	require.NoError(t, err)
	legacyPath := filepath.Join(dir, "legacy.pem")
	require.NoError(t, os.WriteFile(legacyPath, pemBytes, 0o600))

	ks := NewKeystore(KeystoreConfig{CurrentPath: filepath.Join(dir, "missing.pem"), LegacyPath: legacyPath})
	s := NewService(ks, Config{})
	jwk, err := s.PublicKeyAsJWK()
	require.NoError(t, err)
	require.Equal(t, KID(&b.PublicKey), jwk.Kid)

	_, err = s.IssueAPIKey("u1")
	require.Error(t, err)
}

func TestKeystore_DevEphemeralIsStable(t *testing.T) {
	ks := NewKeystore(KeystoreConfig{Dev: true})
	var wg sync.WaitGroup
	kids := make([]string, 8)
	for i := range kids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			k, err := ks.Current()
			if err == nil {
				kids[i] = k.KID
			}
		}(i)
	}
	wg.Wait()
	for _, kid := range kids {
		require.Equal(t, kids[0], kid)
		require.NotEmpty(t, kid)
	}
	_, err := ks.Legacy()
	require.ErrorIs(t, err, ErrNoKey)
}
