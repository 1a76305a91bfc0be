package secretbox

import (
	"encoding/base64"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testKey(seed byte) []byte {
	raw := make([]byte, 32)
	for i := range raw {
		raw[i] = seed + byte(i)
	}
	return raw
}

func TestSealOpen_RoundTrip(t *testing.T) {
	t.Parallel()
	box, err := New(testKey(1))
	require.NoError(t, err)

	msg := "hola mundo ✓ secreto"
	ct, err := box.SealString(msg)
	require.NoError(t, err)
	require.NotContains(t, ct, msg)

	pt, err := box.OpenString(ct)
	require.NoError(t, err)
	require.Equal(t, msg, pt)
}

func TestOpen_DetectsTamper(t *testing.T) {
	t.Parallel()
	box, err := New(testKey(200))
	require.NoError(t, err)

	ct, err := box.SealString("top secret")
	require.NoError(t, err)
	parts := strings.Split(ct, "|")
	require.Len(t, parts, 2)

	bs, err := base64.StdEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	bs[0] ^= 0x01
	corrupted := parts[0] + "|" + base64.StdEncoding.EncodeToString(bs)

	_, err = box.Open(corrupted)
	require.Error(t, err)

	_, err = box.Open("sin-separador")
	require.ErrorIs(t, err, ErrMalformed)
}

func TestOpen_WrongKey(t *testing.T) {
	t.Parallel()
	a, _ := New(testKey(1))
	b, _ := New(testKey(2))
	ct, err := a.SealString("x")
	require.NoError(t, err)
	_, err = b.Open(ct)
	require.Error(t, err)
}

func TestParseKey_Formats(t *testing.T) {
	t.Parallel()
	raw := testKey(7)

	for _, in := range []string{
		base64.StdEncoding.EncodeToString(raw),
		base64.RawStdEncoding.EncodeToString(raw),
		hex.EncodeToString(raw),
	} {
		k, err := ParseKey(in)
		require.NoError(t, err)
		require.Equal(t, raw, k)
	}

	_, err := ParseKey("corta")
	require.Error(t, err)
	_, err = New([]byte("corta"))
	require.Error(t, err)
}
