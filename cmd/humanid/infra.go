package main

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/humanid/internal/config"
	"github.com/dropDatabas3/humanid/internal/flood"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
	"github.com/dropDatabas3/humanid/internal/security/secretbox"
	"github.com/dropDatabas3/humanid/internal/store"
	"github.com/dropDatabas3/humanid/internal/store/pg"
)

// infra son las conexiones compartidas por serve y las tareas de operación.
type infra struct {
	Store store.Store
	Redis redis.UniversalClient // nil si no hay Redis configurado
	Flood *flood.Guard
}

func (i *infra) Close() {
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	i.Store.Close()
}

func openInfra(ctx context.Context, cfg *config.Config) (*infra, error) {
	st, err := store.Open(ctx, store.Config{
		Driver: cfg.Storage.Driver,
		DSN:    cfg.Storage.DSN,
		Pool: pg.PoolConfig{
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			MinConns:        cfg.Storage.Postgres.MinConns,
			MaxConnLifetime: cfg.Storage.Postgres.ConnMaxLifetime,
		},
	})
	if err != nil {
		return nil, err
	}
	in := &infra{Store: st}

	if cfg.Cache.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			DB:       cfg.Cache.Redis.DB,
			Password: cfg.Cache.Redis.Password,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			st.Close()
			_ = rdb.Close()
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		in.Redis = rdb
	}

	floodStore := st.Flood()
	if strings.EqualFold(cfg.Flood.Store, "redis") {
		floodStore = flood.NewRedisStore(in.Redis, cfg.Cache.Redis.Prefix+"flood:", cfg.Flood.Window)
	}
	in.Flood = flood.New(floodStore, flood.Config{Window: cfg.Flood.Window, Threshold: cfg.Flood.Threshold})
	return in, nil
}

// boxOrEphemeral abre el secretbox de key; en dev, sin key, genera una
// efímera (las sesiones no sobreviven al reinicio).
func boxOrEphemeral(key, name string) (*secretbox.Box, error) {
	if key != "" {
		return secretbox.NewFromString(key)
	}
	logger.L().Warn("no key configured, using an ephemeral one", logger.Component(name))
	return secretbox.New(randomKey())
}

func randomKey() []byte {
	k := make([]byte, 32)
	_, _ = rand.Read(k)
	return k
}
