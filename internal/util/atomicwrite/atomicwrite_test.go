package atomicwrite

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "current.pem")

	require.NoError(t, WriteFile(path, []byte("one"), 0o600, false))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "one", string(got))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.ErrorIs(t, WriteFile(path, []byte("two"), 0o600, false), ErrExists)
	got, _ = os.ReadFile(path)
	require.Equal(t, "one", string(got))

	require.NoError(t, WriteFile(path, []byte("two"), 0o600, true))
	got, _ = os.ReadFile(path)
	require.Equal(t, "two", string(got))

	// no quedan temporales
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
}
