package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

type tokenRepo struct{ pool *pgxpool.Pool }

const tokenColumns = `token, type, client_id, user_id, scope, nonce, redirect_uri, auth_time, expires_at, created_at`

const insertToken = `
	INSERT INTO oauth_token (token, type, client_id, user_id, scope, nonce, redirect_uri, auth_time, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	RETURNING created_at
`

func scanToken(row pgx.Row) (*repository.OAuthToken, error) {
	var (
		t        repository.OAuthToken
		typ      string
		authTime *time.Time
	)
	if err := row.Scan(&t.Token, &typ, &t.ClientID, &t.UserID, &t.Scope, &t.Nonce, &t.RedirectURI, &authTime, &t.ExpiresAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	t.Type = repository.TokenType(typ)
	if authTime != nil {
		t.AuthTime = *authTime
	}
	return &t, nil
}

func tokenArgs(t *repository.OAuthToken) []any {
	return []any{t.Token, string(t.Type), t.ClientID, t.UserID, t.Scope, t.Nonce, t.RedirectURI, nullTime(t.AuthTime), t.ExpiresAt}
}

// Create nunca pisa un token existente: la PK devuelve 23505 y se mapea a ErrConflict.
func (r *tokenRepo) Create(ctx context.Context, t *repository.OAuthToken) error {
	err := r.pool.QueryRow(ctx, insertToken, tokenArgs(t)...).Scan(&t.CreatedAt)
	return mapErr("create token", err)
}

func (r *tokenRepo) Get(ctx context.Context, typ repository.TokenType, token string) (*repository.OAuthToken, error) {
	t, err := scanToken(r.pool.QueryRow(ctx,
		`SELECT `+tokenColumns+` FROM oauth_token WHERE token = $1 AND type = $2`, token, string(typ)))
	if err != nil {
		return nil, mapErr("get token", err)
	}
	return t, nil
}

// ExchangeCode: DELETE condicional del code + inserts en una sola transacción.
// Dos exchanges concurrentes del mismo code se serializan en el lock de fila;
// el segundo no encuentra fila y recibe ErrNotFound.
func (r *tokenRepo) ExchangeCode(ctx context.Context, code, clientID string, issued ...*repository.OAuthToken) (*repository.OAuthToken, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, mapErr("begin exchange", err)
	}
	defer tx.Rollback(ctx)

	consumed, err := scanToken(tx.QueryRow(ctx, `
		DELETE FROM oauth_token
		WHERE token = $1 AND type = 'code' AND client_id = $2
		RETURNING `+tokenColumns, code, clientID))
	if err != nil {
		return nil, mapErr("consume code", err)
	}

	if len(issued) > 0 {
		b := &pgx.Batch{}
		for _, t := range issued {
			b.Queue(insertToken, tokenArgs(t)...)
		}
		br := tx.SendBatch(ctx, b)
		for _, t := range issued {
			if err := br.QueryRow().Scan(&t.CreatedAt); err != nil {
				br.Close()
				return nil, mapErr("insert issued token", err)
			}
		}
		if err := br.Close(); err != nil {
			return nil, mapErr("insert issued token", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapErr("commit exchange", err)
	}
	return consumed, nil
}

func (r *tokenRepo) Delete(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM oauth_token WHERE token = $1`, token)
	return mapErr("delete token", err)
}

func (r *tokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM oauth_token WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, mapErr("purge tokens", err)
	}
	return tag.RowsAffected(), nil
}
