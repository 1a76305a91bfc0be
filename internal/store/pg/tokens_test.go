package pg

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
	migrations "github.com/dropDatabas3/humanid/migrations/postgres"
)

// openTestStore abre el Postgres de STORAGE_DSN con el esquema migrado.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("STORAGE_DSN")
	if dsn == "" {
		t.Skip("STORAGE_DSN no configurado")
	}
	ctx := context.Background()
	st, err := New(ctx, dsn, PoolConfig{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(st.Close)

	_, err = NewMigrator(migrations.FS, migrations.Dir).Run(ctx, st.Pool())
	require.NoError(t, err)
	return st
}

func newToken(typ repository.TokenType, clientID string, now time.Time) *repository.OAuthToken {
	return &repository.OAuthToken{
		Type:        typ,
		Token:       uuid.NewString(),
		ClientID:    clientID,
		UserID:      "u-" + uuid.NewString(),
		Scope:       "openid email",
		Nonce:       "n1",
		RedirectURI: "https://app.example.org/cb",
		AuthTime:    now,
		ExpiresAt:   now.Add(10 * time.Minute),
	}
}

func TestTokens_ExchangeCodeConsumesAndPersists(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := st.Tokens()
	now := time.Now().UTC().Truncate(time.Second)

	code := newToken(repository.TokenCode, "x", now)
	require.NoError(t, repo.Create(ctx, code))

	access := newToken(repository.TokenAccess, "x", now)
	refresh := newToken(repository.TokenRefresh, "x", now)

	// otro cliente: no consume nada
	_, err := repo.ExchangeCode(ctx, code.Token, "y", access, refresh)
	require.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.Get(ctx, repository.TokenAccess, access.Token)
	require.ErrorIs(t, err, repository.ErrNotFound)

	consumed, err := repo.ExchangeCode(ctx, code.Token, "x", access, refresh)
	require.NoError(t, err)
	require.Equal(t, code.UserID, consumed.UserID)
	require.Equal(t, "n1", consumed.Nonce)
	require.False(t, access.CreatedAt.IsZero())

	got, err := repo.Get(ctx, repository.TokenRefresh, refresh.Token)
	require.NoError(t, err)
	require.Equal(t, code.UserID, got.UserID)

	_, err = repo.Get(ctx, repository.TokenCode, code.Token)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.ExchangeCode(ctx, code.Token, "x", newToken(repository.TokenAccess, "x", now))
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokens_ExchangeCodeRollsBackOnInsertFailure(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := st.Tokens()
	now := time.Now().UTC()

	code := newToken(repository.TokenCode, "x", now)
	require.NoError(t, repo.Create(ctx, code))
	taken := newToken(repository.TokenAccess, "x", now)
	require.NoError(t, repo.Create(ctx, taken))

	// el refresh colisiona con un token existente: el code no se consume
	dup := newToken(repository.TokenRefresh, "x", now)
	dup.Token = taken.Token
	fresh := newToken(repository.TokenAccess, "x", now)
	_, err := repo.ExchangeCode(ctx, code.Token, "x", fresh, dup)
	require.ErrorIs(t, err, repository.ErrConflict)

	_, err = repo.Get(ctx, repository.TokenCode, code.Token)
	require.NoError(t, err)
	_, err = repo.Get(ctx, repository.TokenAccess, fresh.Token)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokens_ExchangeCodeConcurrentReplay(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	repo := st.Tokens()
	now := time.Now().UTC()

	code := newToken(repository.TokenCode, "x", now)
	require.NoError(t, repo.Create(ctx, code))

	var (
		wg       sync.WaitGroup
		ok       atomic.Int32
		notFound atomic.Int32
	)
	for range 6 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ExchangeCode(ctx, code.Token, "x", newToken(repository.TokenAccess, "x", now))
			switch {
			case err == nil:
				ok.Add(1)
			case repository.IsNotFound(err):
				notFound.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), ok.Load())
	require.Equal(t, int32(5), notFound.Load())
}
