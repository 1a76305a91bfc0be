package pg

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

type apiKeyRepo struct{ pool *pgxpool.Pool }

func (r *apiKeyRepo) Create(ctx context.Context, k *repository.APIKey) error {
	const query = `
		INSERT INTO api_key (id, user_id, token_hash, blacklisted)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query, k.ID, k.UserID, k.TokenHash, k.Blacklisted).Scan(&k.CreatedAt)
	return mapErr("create api key", err)
}

func (r *apiKeyRepo) ListByUser(ctx context.Context, userID string) ([]repository.APIKey, error) {
	const query = `
		SELECT id, user_id, token_hash, blacklisted, created_at
		FROM api_key WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, mapErr("list api keys", err)
	}
	defer rows.Close()

	var out []repository.APIKey
	for rows.Next() {
		var k repository.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.TokenHash, &k.Blacklisted, &k.CreatedAt); err != nil {
			return nil, mapErr("scan api key", err)
		}
		out = append(out, k)
	}
	return out, mapErr("list api keys", rows.Err())
}

func (r *apiKeyRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.APIKey, error) {
	const query = `SELECT id, user_id, token_hash, blacklisted, created_at FROM api_key WHERE token_hash = $1`
	var k repository.APIKey
	err := r.pool.QueryRow(ctx, query, tokenHash).Scan(&k.ID, &k.UserID, &k.TokenHash, &k.Blacklisted, &k.CreatedAt)
	if err != nil {
		return nil, mapErr("get api key", err)
	}
	return &k, nil
}

func (r *apiKeyRepo) Blacklist(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE api_key SET blacklisted = TRUE WHERE id = $1`, id)
	if err != nil {
		return mapErr("blacklist api key", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
