package repository

import (
	"context"
	"time"
)

// TokenType es el tipo de token opaco OAuth.
type TokenType string

const (
	TokenCode    TokenType = "code"
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// OAuthToken es un token opaco persistido (code, access o refresh).
type OAuthToken struct {
	Type        TokenType
	Token       string
	ClientID    string
	UserID      string
	Scope       string
	Nonce       string
	RedirectURI string
	AuthTime    time.Time
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// Expired indica si el token venció en el instante now.
func (t *OAuthToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// OAuthTokenRepository persiste tokens opacos.
type OAuthTokenRepository interface {
	// Create inserta un token. Si el valor ya existe retorna ErrConflict
	// y no toca el registro existente.
	Create(ctx context.Context, t *OAuthToken) error

	// Get busca un token por tipo y valor.
	// Retorna ErrNotFound si no existe.
	Get(ctx context.Context, typ TokenType, token string) (*OAuthToken, error)

	// ExchangeCode consume un authorization code de forma atómica:
	// borra el code solo si pertenece a clientID e inserta los tokens emitidos
	// en la misma transacción. Si el code no existe (o ya fue consumido, o es
	// de otro client) retorna ErrNotFound y no inserta nada.
	ExchangeCode(ctx context.Context, code, clientID string, issued ...*OAuthToken) (*OAuthToken, error)

	// Delete elimina un token por valor (revocación). Idempotente.
	Delete(ctx context.Context, token string) error

	// PurgeExpired elimina tokens con expires_at <= now. Retorna cuántos borró.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
