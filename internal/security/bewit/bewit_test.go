package bewit

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestIssueVerify(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	s := NewSigner([]byte("k"), time.Minute).WithClock(func() time.Time { return now })

	signed, _, err := s.SignURL("u1", "https://id.example.org/api/v3/jsonwebtoken?limit=5")
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	b := u.Query().Get("bewit")
	require.NotEmpty(t, b)

	uid, err := s.Verify(b, CanonicalPath(u))
	require.NoError(t, err)
	require.Equal(t, "u1", uid)

	_, err = s.Verify(b, "/api/v3/jsonwebtoken?limit=6")
	require.ErrorIs(t, err, ErrInvalid)

	now = now.Add(2 * time.Minute)
	_, err = s.Verify(b, CanonicalPath(u))
	require.ErrorIs(t, err, ErrExpired)

	_, err = s.Verify("%%%", "/")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestVerify_OtherKey(t *testing.T) {
	a := NewSigner([]byte("a"), time.Minute)
	b := NewSigner([]byte("b"), time.Minute)
	tok, _ := a.Issue("u1", "/x")
	_, err := b.Verify(tok, "/x")
	require.ErrorIs(t, err, ErrInvalid)
}
