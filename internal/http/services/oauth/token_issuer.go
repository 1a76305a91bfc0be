package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/metrics"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	tokens "github.com/dropDatabas3/humanid/internal/security/token"
)

// Default token lifetimes.
const (
	DefaultCodeTTL    = 10 * time.Minute
	DefaultAccessTTL  = time.Hour
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// TTLConfig define la vida de cada tipo de token.
type TTLConfig struct {
	Code    time.Duration
	Access  time.Duration
	Refresh time.Duration
}

// TokenParams are the grant attributes copied into every issued token.
type TokenParams struct {
	ClientID    string
	UserID      string
	Scope       string
	Nonce       string
	RedirectURI string
	AuthTime    time.Time
}

func paramsOf(t *repository.OAuthToken) TokenParams {
	return TokenParams{
		ClientID:    t.ClientID,
		UserID:      t.UserID,
		Scope:       t.Scope,
		Nonce:       t.Nonce,
		RedirectURI: t.RedirectURI,
		AuthTime:    t.AuthTime,
	}
}

// TokenIssuer mints and persists opaque OAuth tokens. Expiry is enforced
// lazily by callers via IsExpired; PurgeExpired is the entry point for the
// external sweep.
type TokenIssuer struct {
	repo repository.OAuthTokenRepository
	ttl  TTLConfig
	now  func() time.Time
}

// NewTokenIssuer crea el issuer; TTLs en cero usan los defaults.
func NewTokenIssuer(repo repository.OAuthTokenRepository, ttl TTLConfig) *TokenIssuer {
	if ttl.Code <= 0 {
		ttl.Code = DefaultCodeTTL
	}
	if ttl.Access <= 0 {
		ttl.Access = DefaultAccessTTL
	}
	if ttl.Refresh <= 0 {
		ttl.Refresh = DefaultRefreshTTL
	}
	return &TokenIssuer{repo: repo, ttl: ttl, now: time.Now}
}

// WithClock reemplaza el reloj (tests).
func (ti *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	ti.now = now
	return ti
}

// TTL devuelve la vida configurada para typ.
func (ti *TokenIssuer) TTL(typ repository.TokenType) time.Duration {
	switch typ {
	case repository.TokenCode:
		return ti.ttl.Code
	case repository.TokenRefresh:
		return ti.ttl.Refresh
	default:
		return ti.ttl.Access
	}
}

// Mint builds a new token without persisting it.
func (ti *TokenIssuer) Mint(typ repository.TokenType, p TokenParams) (*repository.OAuthToken, error) {
	value, err := tokens.NewOpaque()
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	now := ti.now()
	return &repository.OAuthToken{
		Type:        typ,
		Token:       value,
		ClientID:    p.ClientID,
		UserID:      p.UserID,
		Scope:       p.Scope,
		Nonce:       p.Nonce,
		RedirectURI: p.RedirectURI,
		AuthTime:    p.AuthTime,
		ExpiresAt:   now.Add(ti.TTL(typ)),
		CreatedAt:   now,
	}, nil
}

// Create mints and persists a token. A duplicate value is reported as
// ErrTokenCollision and never overwrites the existing row.
func (ti *TokenIssuer) Create(ctx context.Context, typ repository.TokenType, p TokenParams) (*repository.OAuthToken, error) {
	t, err := ti.Mint(typ, p)
	if err != nil {
		return nil, err
	}
	if err := ti.repo.Create(ctx, t); err != nil {
		if repository.IsConflict(err) {
			logger.From(ctx).Warn("opaque token collision", logger.Layer("service"), logger.TokenType(string(typ)))
			return nil, ErrTokenCollision
		}
		return nil, err
	}
	metrics.RecordTokenIssued(string(typ))
	return t, nil
}

// Lookup returns the token of the given type or repository.ErrNotFound.
func (ti *TokenIssuer) Lookup(ctx context.Context, typ repository.TokenType, token string) (*repository.OAuthToken, error) {
	if token == "" {
		return nil, repository.ErrNotFound
	}
	return ti.repo.Get(ctx, typ, token)
}

// IsExpired reports whether t is past its expiry at now.
func IsExpired(t *repository.OAuthToken, now time.Time) bool {
	return t.Expired(now)
}

// Expired es IsExpired con el reloj del issuer.
func (ti *TokenIssuer) Expired(t *repository.OAuthToken) bool {
	return IsExpired(t, ti.now())
}

// Revoke deletes a token. Deleting an unknown token is not an error.
func (ti *TokenIssuer) Revoke(ctx context.Context, token string) error {
	return ti.repo.Delete(ctx, token)
}

// Exchange atomically consumes code for clientID and persists issued. A
// missing, consumed or foreign code yields ErrInvalidGrant.
func (ti *TokenIssuer) Exchange(ctx context.Context, code, clientID string, issued ...*repository.OAuthToken) (*repository.OAuthToken, error) {
	consumed, err := ti.repo.ExchangeCode(ctx, code, clientID, issued...)
	switch {
	case err == nil:
	case repository.IsNotFound(err):
		return nil, ErrInvalidGrant
	case repository.IsConflict(err):
		return nil, ErrTokenCollision
	default:
		return nil, err
	}
	for _, t := range issued {
		metrics.RecordTokenIssued(string(t.Type))
	}
	return consumed, nil
}

// PurgeExpired deletes every token past its expiry.
func (ti *TokenIssuer) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := ti.repo.PurgeExpired(ctx, ti.now())
	if err != nil {
		return 0, err
	}
	logger.From(ctx).Info("expired tokens purged", logger.Layer("service"), logger.Op("PurgeExpired"), logger.Any("count", n))
	return n, nil
}
