package oauth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/humanid/internal/cache"
	"github.com/dropDatabas3/humanid/internal/domain/repository"
	"github.com/dropDatabas3/humanid/internal/observability/logger"
)

// ClientLookup resuelve clientes OAuth por client_id.
type ClientLookup interface {
	GetByID(ctx context.Context, id string) (*repository.Client, error)
}

// cachedClients guarda registros de clientes (inmutables durante un grant)
// con TTL corto. Sesiones y tokens nunca se cachean.
type cachedClients struct {
	repo  repository.ClientRepository
	cache cache.Client
	ttl   time.Duration
}

// NewCachedClients envuelve repo con c. c nil devuelve repo tal cual.
func NewCachedClients(repo repository.ClientRepository, c cache.Client, ttl time.Duration) ClientLookup {
	if c == nil {
		return repo
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &cachedClients{repo: repo, cache: c, ttl: ttl}
}

func (cc *cachedClients) GetByID(ctx context.Context, id string) (*repository.Client, error) {
	key := "client:" + id
	if raw, err := cc.cache.Get(ctx, key); err == nil {
		var c repository.Client
		if json.Unmarshal(raw, &c) == nil {
			return &c, nil
		}
	} else if !cache.IsNotFound(err) {
		logger.From(ctx).Debug("client cache get failed", logger.Layer("service"), logger.Key(key), logger.Err(err))
	}

	c, err := cc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(c); err == nil {
		if err := cc.cache.Set(ctx, key, raw, cc.ttl); err != nil {
			logger.From(ctx).Debug("client cache set failed", logger.Layer("service"), logger.Key(key), logger.Err(err))
		}
	}
	return c, nil
}
