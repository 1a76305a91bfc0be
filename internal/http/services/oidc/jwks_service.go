package oidc

import (
	"context"

	"github.com/dropDatabas3/humanid/internal/jwt"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// KeySource expone las claves públicas (implementado por jwt.Service).
type KeySource interface {
	JWKS() (jwt.JWKS, error)
}

// JWKSService publica las claves de firma de ID tokens.
type JWKSService interface {
	// JWKS devuelve la clave actual y la legacy, si existe.
	JWKS(ctx context.Context) (jwt.JWKS, error)
}

type jwksService struct {
	keys KeySource
}

// NewJWKSService crea el service.
func NewJWKSService(keys KeySource) JWKSService {
	return &jwksService{keys: keys}
}

func (s *jwksService) JWKS(ctx context.Context) (jwt.JWKS, error) {
	set, err := s.keys.JWKS()
	if err != nil {
		logger.From(ctx).Error("jwks unavailable",
			logger.Layer("service"), logger.Component("oidc.jwks"), logger.Err(err))
		return jwt.JWKS{}, err
	}
	return set, nil
}
