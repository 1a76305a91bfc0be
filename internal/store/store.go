// Package store abre el backend de persistencia configurado y expone los
// repositorios de dominio.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/store/memory"
	"github.com/dropDatabas3/humanid/internal/store/pg"
)

// Store agrupa los repositorios de un backend.
type Store interface {
	Users() repository.UserRepository
	Clients() repository.ClientRepository
	Tokens() repository.OAuthTokenRepository
	Flood() repository.FloodRepository
	APIKeys() repository.APIKeyRepository

	// Ping verifica que el backend responde (usado por /healthz).
	Ping(ctx context.Context) error
	Close()
}

// Config define el driver y la conexión.
type Config struct {
	Driver string // "postgres" | "memory"
	DSN    string
	Pool   pg.PoolConfig
}

// Open abre el Store según el driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "postgres", "pg", "postgresql":
		return pg.New(ctx, cfg.DSN, cfg.Pool)
	case "memory", "":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("store: unsupported driver: %s", cfg.Driver)
	}
}

// PoolOf devuelve el pgxpool si el Store es Postgres (para métricas y migraciones).
func PoolOf(s Store) *pgxpool.Pool {
	if p, ok := s.(*pg.Store); ok {
		return p.Pool()
	}
	return nil
}
