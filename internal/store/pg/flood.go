package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

type floodRepo struct{ pool *pgxpool.Pool }

func (r *floodRepo) Append(ctx context.Context, e repository.FloodEntry) error {
	const query = `INSERT INTO flood_entry (type, identifier, created_at) VALUES ($1, $2, $3)`
	_, err := r.pool.Exec(ctx, query, string(e.Type), e.Identifier, e.CreatedAt)
	return mapErr("append flood", err)
}

func (r *floodRepo) CountSince(ctx context.Context, typ repository.FloodType, identifier string, since time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM flood_entry WHERE type = $1 AND identifier = $2 AND created_at >= $3`
	var n int
	if err := r.pool.QueryRow(ctx, query, string(typ), identifier, since).Scan(&n); err != nil {
		return 0, mapErr("count flood", err)
	}
	return n, nil
}

func (r *floodRepo) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM flood_entry WHERE created_at < $1`, before)
	if err != nil {
		return 0, mapErr("purge flood", err)
	}
	return tag.RowsAffected(), nil
}
