// Package apikey emite, lista y revoca los JWT de API de larga duración.
package apikey

import (
	"context"
	"errors"
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/dropDatabas3/humanid/internal/audit"
	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/email"
	"github.com/dropDatabas3/humanid/internal/http/services/auth"
	"github.com/dropDatabas3/humanid/internal/http/services/mfa"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	tokens "github.com/dropDatabas3/humanid/internal/security/token"
)

// ErrForbidden: el token pertenece a otro usuario.
var ErrForbidden = errors.New("apikey: token belongs to another user")

// Signer emite y verifica los JWT de API (implementado por jwt.Service).
type Signer interface {
	IssueAPIKey(userID string) (string, error)
	Verify(token string) (jwtv5.MapClaims, error)
}

// Issued es una API key recién emitida. Token solo se devuelve esta vez.
type Issued struct {
	Token string
	Key   repository.APIKey
}

// Service manages long-lived API JWTs.
type Service interface {
	// Issue authenticates with email and password (plus the TOTP code when
	// the account has TOTP enabled) and returns a new API JWT.
	Issue(ctx context.Context, email, password, totpCode string) (*Issued, error)
	// List returns the keys issued to userID, newest first.
	List(ctx context.Context, userID string) ([]repository.APIKey, error)
	// Blacklist revokes token. Only its owner may revoke it.
	Blacklist(ctx context.Context, principalUserID, token string) error
	// IsBlacklisted reports whether token was revoked.
	IsBlacklisted(ctx context.Context, token string) (bool, error)
}

// Deps contiene las dependencias del service.
type Deps struct {
	Verifier  auth.Verifier
	Validator mfa.Validator
	JWT       Signer
	Keys      repository.APIKeyRepository
	Mailer    email.Mailer
	Now       func() time.Time
}

type service struct {
	deps Deps
}

// NewService crea el service de API keys.
func NewService(deps Deps) Service {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &service{deps: deps}
}

func (s *service) Issue(ctx context.Context, emailAddr, password, totpCode string) (*Issued, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("apikey"),
		logger.Op("Issue"),
	)

	user, err := s.deps.Verifier.Verify(ctx, emailAddr, password)
	if err != nil {
		return nil, err
	}
	if user.TOTPEnabled {
		validated, err := s.deps.Validator.Validate(ctx, user, totpCode)
		if err != nil {
			log.Debug("totp step failed", logger.UserID(user.ID), logger.Err(err))
			return nil, err
		}
		user = validated
	}

	token, err := s.deps.JWT.IssueAPIKey(user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign api key: %w", err)
	}
	key := repository.APIKey{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: tokens.SHA256Hex(token),
		CreatedAt: s.deps.Now(),
	}
	if err := s.deps.Keys.Create(ctx, &key); err != nil {
		return nil, err
	}

	log.Info("api key issued", logger.UserID(user.ID), logger.ID(key.ID))
	audit.Log(ctx, audit.APIKeyIssued, logger.UserID(user.ID), logger.ID(key.ID))
	if err := s.deps.Mailer.Send(ctx, email.KindAPIKeyCreated, user.Email); err != nil {
		log.Warn("notification mail failed", logger.Err(err))
	}
	return &Issued{Token: token, Key: key}, nil
}

func (s *service) List(ctx context.Context, userID string) ([]repository.APIKey, error) {
	return s.deps.Keys.ListByUser(ctx, userID)
}

func (s *service) Blacklist(ctx context.Context, principalUserID, token string) error {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("apikey"),
		logger.Op("Blacklist"),
		logger.UserID(principalUserID),
	)

	claims, err := s.deps.JWT.Verify(token)
	if err != nil {
		return err
	}
	if owner, _ := claims["id"].(string); owner != principalUserID {
		log.Warn("blacklist attempt on foreign token", logger.String("owner", owner))
		return ErrForbidden
	}

	hash := tokens.SHA256Hex(token)
	key, err := s.deps.Keys.GetByHash(ctx, hash)
	switch {
	case err == nil:
		if key.Blacklisted {
			return nil
		}
		err = s.deps.Keys.Blacklist(ctx, key.ID)
	case repository.IsNotFound(err):
		// tokens emitidos antes del registro de keys: se guardan ya revocados
		err = s.deps.Keys.Create(ctx, &repository.APIKey{
			ID:          uuid.NewString(),
			UserID:      principalUserID,
			TokenHash:   hash,
			Blacklisted: true,
			CreatedAt:   s.deps.Now(),
		})
	}
	if err != nil {
		return err
	}
	log.Info("api key blacklisted")
	audit.Log(ctx, audit.APIKeyBlacklisted, logger.UserID(principalUserID))
	return nil
}

func (s *service) IsBlacklisted(ctx context.Context, token string) (bool, error) {
	key, err := s.deps.Keys.GetByHash(ctx, tokens.SHA256Hex(token))
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return key.Blacklisted, nil
}
