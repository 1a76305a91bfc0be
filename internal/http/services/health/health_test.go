package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/humanid/internal/jwt"
)

func newJWT(t *testing.T) *jwt.Service {
	t.Helper()
	priv, err := jwt.GenerateKey()
	require.NoError(t, err)
	return jwt.NewService(jwt.NewStaticKeystore(jwt.NewKey(priv), nil), jwt.Config{})
}

func TestCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("connection refused") }
	ctx := context.Background()

	res := NewHealthService(Deps{StoreCheck: ok, JWT: newJWT(t), Version: "1.2.3"}).Check(ctx)
	require.Equal(t, "ready", res.Status)
	require.Equal(t, "disabled", res.Components["redis"].Status)
	require.NotEmpty(t, res.ActiveKeyID)

	res = NewHealthService(Deps{StoreCheck: ok, RedisCheck: down, JWT: newJWT(t)}).Check(ctx)
	require.Equal(t, "degraded", res.Status)

	res = NewHealthService(Deps{StoreCheck: down, JWT: newJWT(t)}).Check(ctx)
	require.Equal(t, "unavailable", res.Status)
	require.Equal(t, "error", res.Components["store"].Status)

	res = NewHealthService(Deps{StoreCheck: ok}).Check(ctx)
	require.Equal(t, "unavailable", res.Status)
}
