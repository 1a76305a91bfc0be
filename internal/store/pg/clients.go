package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

type clientRepo struct{ pool *pgxpool.Pool }

func (r *clientRepo) GetByID(ctx context.Context, id string) (*repository.Client, error) {
	const query = `
		SELECT id, secret, name, redirect_uri, redirect_uris, created_at
		FROM oauth_client WHERE id = $1
	`
	var c repository.Client
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Secret, &c.Name, &c.RedirectURI, &c.RedirectURIs, &c.CreatedAt)
	if err != nil {
		return nil, mapErr("get client", err)
	}
	return &c, nil
}

func (r *clientRepo) Create(ctx context.Context, c *repository.Client) error {
	const query = `
		INSERT INTO oauth_client (id, secret, name, redirect_uri, redirect_uris)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query, c.ID, c.Secret, c.Name, c.RedirectURI, nonNil(c.RedirectURIs)).Scan(&c.CreatedAt)
	return mapErr("create client", err)
}
