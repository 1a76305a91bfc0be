// Package totp implementa RFC 6238 (HMAC-SHA1, paso de 30s, 6 dígitos) y los
// códigos de respaldo de un solo uso.
package totp

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"encoding/base32"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	Digits = 6
	Period = 30 * time.Second
	// Skew es la tolerancia de reloj en pasos (±1 paso = ±30s).
	Skew = 1
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// ErrInvalidSecret indica un secreto base32 ilegible.
var ErrInvalidSecret = errors.New("totp: invalid secret")

// GenerateSecret retorna 20 bytes aleatorios en base32 sin padding.
func GenerateSecret() (string, error) {
	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return b32.EncodeToString(raw), nil
}

// OTPAuthURL construye otpauth:// para QR.
func OTPAuthURL(issuer, accountName, secret string) string {
	label := url.PathEscape(fmt.Sprintf("%s:%s", issuer, accountName))
	q := url.Values{}
	q.Set("secret", secret)
	q.Set("issuer", issuer)
	q.Set("algorithm", "SHA1")
	q.Set("digits", "6")
	q.Set("period", "30")
	return fmt.Sprintf("otpauth://totp/%s?%s", label, q.Encode())
}

func decodeSecret(secret string) ([]byte, error) {
	s := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(secret), " ", ""))
	s = strings.TrimRight(s, "=")
	raw, err := b32.DecodeString(s)
	if err != nil || len(raw) == 0 {
		return nil, ErrInvalidSecret
	}
	return raw, nil
}

// Code calcula el código vigente en t.
func Code(secret string, t time.Time) (string, error) {
	raw, err := decodeSecret(secret)
	if err != nil {
		return "", err
	}
	return hotp(raw, t.Unix()/int64(Period/time.Second)), nil
}

// Verify valida code en la ventana [t-Skew, t+Skew].
func Verify(secret, code string, t time.Time) bool {
	code = strings.TrimSpace(code)
	if len(code) != Digits {
		return false
	}
	raw, err := decodeSecret(secret)
	if err != nil {
		return false
	}
	counter := t.Unix() / int64(Period/time.Second)
	ok := false
	for c := counter - Skew; c <= counter+Skew; c++ {
		// comparar todas las ventanas sin cortar temprano
		if hmac.Equal([]byte(hotp(raw, c)), []byte(code)) {
			ok = true
		}
	}
	return ok
}

// hotp es HOTP(K, C) de RFC 4226.
func hotp(key []byte, counter int64) string {
	var msg [8]byte
	for i := 7; i >= 0; i-- {
		msg[i] = byte(counter & 0xff)
		counter >>= 8
	}
	m := hmac.New(sha1.New, key)
	_, _ = m.Write(msg[:])
	sum := m.Sum(nil)
	offset := int(sum[len(sum)-1] & 0x0f)
	bin := (int(sum[offset])&0x7f)<<24 | int(sum[offset+1])<<16 | int(sum[offset+2])<<8 | int(sum[offset+3])
	return fmt.Sprintf("%06d", bin%1_000_000)
}

// GenerateBackupCodes genera n códigos de respaldo de 10 caracteres hex.
// Nunca tienen 6 caracteres, así que no se confunden con un código TOTP.
func GenerateBackupCodes(n int) ([]string, error) {
	codes := make([]string, 0, n)
	for i := 0; i < n; i++ {
		b := make([]byte, 5)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		codes = append(codes, hex.EncodeToString(b))
	}
	return codes, nil
}
