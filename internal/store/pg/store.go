// Package pg implementa los repositorios de dominio sobre PostgreSQL (pgx).
package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

// PoolConfig ajusta el pool de conexiones.
type PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// Store implementa los repositorios con un pgxpool compartido.
type Store struct{ pool *pgxpool.Pool }

// New abre el pool y verifica conectividad.
func New(ctx context.Context, dsn string, cfg PoolConfig) (*Store, error) {
	pcfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("pg: parse dsn: %w", err)
	}
	pcfg.MaxConns = 10
	pcfg.MinConns = 2
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		pcfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w: %v", repository.ErrUnavailable, err)
	}
	return &Store{pool: pool}, nil
}

// NewFromPool envuelve un pool existente.
func NewFromPool(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Pool expone el pool interno (métricas y migraciones).
func (s *Store) Pool() *pgxpool.Pool {
	if s == nil {
		return nil
	}
	return s.pool
}

func (s *Store) Users() repository.UserRepository        { return &userRepo{pool: s.pool} }
func (s *Store) Clients() repository.ClientRepository    { return &clientRepo{pool: s.pool} }
func (s *Store) Tokens() repository.OAuthTokenRepository { return &tokenRepo{pool: s.pool} }
func (s *Store) Flood() repository.FloodRepository       { return &floodRepo{pool: s.pool} }
func (s *Store) APIKeys() repository.APIKeyRepository    { return &apiKeyRepo{pool: s.pool} }

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrUnavailable, err)
	}
	return nil
}

// Close cierra el pool subyacente.
func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

const uniqueViolation = "23505"

// mapErr traduce errores de pgx a errores de dominio.
// Todo lo que no sea una respuesta del servidor se considera indisponibilidad.
func mapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == uniqueViolation {
			return repository.ErrConflict
		}
		return fmt.Errorf("pg: %s: %w", op, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("pg: %s: %w", op, err)
	}
	return fmt.Errorf("pg: %s: %w: %v", op, repository.ErrUnavailable, err)
}
