package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/humanid/internal/domain/repository"
)

func TestUsers_OptimisticSave(t *testing.T) {
	ctx := context.Background()
	s := New()
	users := s.Users()

	require.NoError(t, users.Create(ctx, &repository.User{ID: "u1", Email: "Ana@Example.org", PasswordHash: "h"}))
	require.ErrorIs(t, users.Create(ctx, &repository.User{ID: "u2", Email: "ana@example.org"}), repository.ErrConflict)

	a, err := users.GetByEmail(ctx, "ana@example.org")
	require.NoError(t, err)
	b, err := users.GetByID(ctx, "u1")
	require.NoError(t, err)

	a.AuthorizedClients = append(a.AuthorizedClients, "x")
	require.NoError(t, users.Save(ctx, a))
	require.EqualValues(t, 2, a.Version)

	// b quedó con la versión vieja
	b.TOTPEnabled = true
	require.ErrorIs(t, users.Save(ctx, b), repository.ErrConflict)

	got, _ := users.GetByID(ctx, "u1")
	require.Equal(t, []string{"x"}, got.AuthorizedClients)
	require.False(t, got.TOTPEnabled)

	// las copias devueltas no comparten slices con el store
	got.AuthorizedClients[0] = "mutated"
	again, _ := users.GetByID(ctx, "u1")
	require.Equal(t, "x", again.AuthorizedClients[0])

	_, err = users.GetByID(ctx, "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokens_CreateNeverOverwrites(t *testing.T) {
	ctx := context.Background()
	tokens := New().Tokens()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, tokens.Create(ctx, &repository.OAuthToken{Type: repository.TokenAccess, Token: "t", ClientID: "a", ExpiresAt: exp}))
	err := tokens.Create(ctx, &repository.OAuthToken{Type: repository.TokenAccess, Token: "t", ClientID: "b", ExpiresAt: exp})
	require.ErrorIs(t, err, repository.ErrConflict)

	got, err := tokens.Get(ctx, repository.TokenAccess, "t")
	require.NoError(t, err)
	require.Equal(t, "a", got.ClientID)

	_, err = tokens.Get(ctx, repository.TokenRefresh, "t")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokens_ExchangeCodeOnce(t *testing.T) {
	ctx := context.Background()
	tokens := New().Tokens()
	exp := time.Now().Add(time.Minute)
	require.NoError(t, tokens.Create(ctx, &repository.OAuthToken{Type: repository.TokenCode, Token: "abc123", ClientID: "x", UserID: "u1", ExpiresAt: exp}))

	// otro client no consume el code
	_, err := tokens.ExchangeCode(ctx, "abc123", "y")
	require.ErrorIs(t, err, repository.ErrNotFound)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			access := &repository.OAuthToken{Type: repository.TokenAccess, Token: "acc-" + string(rune('a'+i)), ClientID: "x", ExpiresAt: exp}
			if _, err := tokens.ExchangeCode(ctx, "abc123", "x", access); err == nil {
				wins.Add(1)
			}
		}(i)
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())

	_, err = tokens.Get(ctx, repository.TokenCode, "abc123")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTokens_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	tokens := New().Tokens()
	now := time.Now()
	require.NoError(t, tokens.Create(ctx, &repository.OAuthToken{Type: repository.TokenAccess, Token: "old", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, tokens.Create(ctx, &repository.OAuthToken{Type: repository.TokenAccess, Token: "new", ExpiresAt: now.Add(time.Hour)}))

	n, err := tokens.PurgeExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, err = tokens.Get(ctx, repository.TokenAccess, "new")
	require.NoError(t, err)
}

func TestAPIKeys(t *testing.T) {
	ctx := context.Background()
	keys := New().APIKeys()
	t0 := time.Now()
	require.NoError(t, keys.Create(ctx, &repository.APIKey{ID: "k1", UserID: "u1", TokenHash: "h1", CreatedAt: t0}))
	require.NoError(t, keys.Create(ctx, &repository.APIKey{ID: "k2", UserID: "u1", TokenHash: "h2", CreatedAt: t0.Add(time.Second)}))
	require.ErrorIs(t, keys.Create(ctx, &repository.APIKey{ID: "k3", UserID: "u1", TokenHash: "h1"}), repository.ErrConflict)

	list, err := keys.ListByUser(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, "k2", list[0].ID)

	require.NoError(t, keys.Blacklist(ctx, "k1"))
	k, err := keys.GetByHash(ctx, "h1")
	require.NoError(t, err)
	require.True(t, k.Blacklisted)
	require.ErrorIs(t, keys.Blacklist(ctx, "zz"), repository.ErrNotFound)
}
