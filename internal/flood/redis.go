package flood

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

// RedisStore implementa repository.FloodRepository con un sorted set por
// (type, identifier); el score es created_at en milisegundos.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

var _ repository.FloodRepository = (*RedisStore)(nil)

// NewRedisStore crea el backend Redis. ttl acota la vida de cada key
// (normalmente el doble de la ventana) para que Redis limpie solo.
func NewRedisStore(client redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "hid:flood:"
	}
	if ttl <= 0 {
		ttl = 2 * DefaultWindow
	}
	return &RedisStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) key(typ repository.FloodType, identifier string) string {
	return s.prefix + string(typ) + ":" + identifier
}

func (s *RedisStore) Append(ctx context.Context, e repository.FloodEntry) error {
	k := s.key(e.Type, e.Identifier)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, k, redis.Z{Score: float64(e.CreatedAt.UnixMilli()), Member: uuid.NewString()})
	pipe.Expire(ctx, k, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis flood append: %w", err)
	}
	return nil
}

func (s *RedisStore) CountSince(ctx context.Context, typ repository.FloodType, identifier string, since time.Time) (int, error) {
	n, err := s.client.ZCount(ctx, s.key(typ, identifier), strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("redis flood count: %w", err)
	}
	return int(n), nil
}

func (s *RedisStore) PurgeBefore(ctx context.Context, before time.Time) (int64, error) {
	var (
		total  int64
		cursor uint64
	)
	maxScore := "(" + strconv.FormatInt(before.UnixMilli(), 10)
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 200).Result()
		if err != nil {
			return total, fmt.Errorf("redis flood scan: %w", err)
		}
		for _, k := range keys {
			if !strings.HasPrefix(k, s.prefix) {
				continue
			}
			n, err := s.client.ZRemRangeByScore(ctx, k, "-inf", maxScore).Result()
			if err != nil {
				return total, fmt.Errorf("redis flood purge: %w", err)
			}
			total += n
		}
		if next == 0 {
			return total, nil
		}
		cursor = next
	}
}
