package repository

import (
	"context"
	"time"
)

// APIKey registra un JWT de API emitido. Solo se guarda el hash del token.
type APIKey struct {
	ID          string
	UserID      string
	TokenHash   string
	Blacklisted bool
	CreatedAt   time.Time
}

// APIKeyRepository persiste API keys emitidas.
type APIKeyRepository interface {
	// Create registra una key. TokenHash duplicado retorna ErrConflict.
	Create(ctx context.Context, k *APIKey) error

	// ListByUser lista las keys del usuario, más recientes primero.
	ListByUser(ctx context.Context, userID string) ([]APIKey, error)

	// GetByHash busca una key por hash del token.
	// Retorna ErrNotFound si no existe.
	GetByHash(ctx context.Context, tokenHash string) (*APIKey, error)

	// Blacklist marca la key como revocada.
	// Retorna ErrNotFound si no existe.
	Blacklist(ctx context.Context, id string) error
}
