// Package bewit firma URLs de corta vida (HMAC-SHA256 sobre usuario, expiración y path).
//
// Formato: base64url(userID \ exp \ mac \ ext), compatible en espíritu con Hawk.
package bewit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMalformed = errors.New("bewit: malformed")
	ErrExpired   = errors.New("bewit: expired")
	ErrInvalid   = errors.New("bewit: invalid signature")
)

// Signer emite y valida bewits con una clave compartida.
type Signer struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// NewSigner crea un Signer; ttl <= 0 usa 5 minutos.
func NewSigner(key []byte, ttl time.Duration) *Signer {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Signer{key: key, ttl: ttl, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

func (s *Signer) mac(userID string, exp int64, path string) string {
	m := hmac.New(sha256.New, s.key)
	fmt.Fprintf(m, "hid.bewit.1\n%s\n%d\nGET\n%s\n", userID, exp, path)
	return base64.StdEncoding.EncodeToString(m.Sum(nil))
}

// Issue devuelve el bewit para que userID haga GET sobre path.
func (s *Signer) Issue(userID, path string) (string, time.Time) {
	exp := s.now().Add(s.ttl).Truncate(time.Second)
	raw := strings.Join([]string{userID, strconv.FormatInt(exp.Unix(), 10), s.mac(userID, exp.Unix(), path), ""}, `\`)
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), exp
}

// SignURL agrega ?bewit= a rawURL.
func (s *Signer) SignURL(userID, rawURL string) (string, time.Time, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", time.Time{}, err
	}
	b, exp := s.Issue(userID, CanonicalPath(u))
	q := u.Query()
	q.Set("bewit", b)
	u.RawQuery = q.Encode()
	return u.String(), exp, nil
}

// Verify valida un bewit para path y devuelve el userID.
func (s *Signer) Verify(bewit, path string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(bewit)
	if err != nil {
		return "", ErrMalformed
	}
	parts := strings.Split(string(raw), `\`)
	if len(parts) != 4 || parts[0] == "" {
		return "", ErrMalformed
	}
	exp, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", ErrMalformed
	}
	if !hmac.Equal([]byte(parts[2]), []byte(s.mac(parts[0], exp, path))) {
		return "", ErrInvalid
	}
	if s.now().Unix() >= exp {
		return "", ErrExpired
	}
	return parts[0], nil
}

// CanonicalPath es path + query sin el parámetro bewit.
func CanonicalPath(u *url.URL) string {
	q := u.Query()
	q.Del("bewit")
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	if enc := q.Encode(); enc != "" {
		p += "?" + enc
	}
	return p
}
