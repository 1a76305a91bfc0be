package mfa

import (
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
)

// secretCodec sella el secreto TOTP antes de persistirlo. Sin Box el secreto
// se guarda en claro (solo entornos locales).
type secretCodec struct {
	box *secretbox.Box
}

func (c secretCodec) seal(secret string) (string, error) {
	if c.box == nil {
		return secret, nil
	}
	return c.box.SealString(secret)
}

func (c secretCodec) open(stored string) (string, error) {
	if c.box == nil || stored == "" {
		return stored, nil
	}
	return c.box.OpenString(stored)
}
