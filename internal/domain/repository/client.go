package repository

import (
	"context"
	"slices"
	"time"
)

// Client representa un cliente OAuth2. Es inmutable durante un grant.
type Client struct {
	ID           string
	Secret       string
	Name         string
	RedirectURI  string
	RedirectURIs []string
	CreatedAt    time.Time
}

// AllowsRedirect valida redirect_uri por igualdad exacta contra la URI
// principal o la lista permitida. Sin normalización.
func (c *Client) AllowsRedirect(uri string) bool {
	if uri == "" {
		return false
	}
	return uri == c.RedirectURI || slices.Contains(c.RedirectURIs, uri)
}

// ClientRepository define el lookup de clientes OAuth.
type ClientRepository interface {
	// GetByID busca un client por su client_id.
	// Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, id string) (*Client, error)

	// Create registra un client. ID duplicado retorna ErrConflict.
	Create(ctx context.Context, c *Client) error
}
