package pg

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"

	migrations "github.com/dropDatabas3/humanid/migrations/postgres"
)

func TestParseMigrations_Order(t *testing.T) {
	fsys := fstest.MapFS{
		"sql/0002_more.sql": {Data: []byte("SELECT 2;")},
		"sql/0001_init.sql": {Data: []byte("SELECT 1;")},
		"sql/README.md":     {Data: []byte("ignored")},
		"sql/10_later.sql":  {Data: []byte("SELECT 10;")},
	}
	migs, err := NewMigrator(fsys, "sql").ParseMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 3)
	require.Equal(t, 1, migs[0].Version)
	require.Equal(t, "init", migs[0].Name)
	require.Equal(t, 10, migs[2].Version)
}

func TestEmbeddedMigrations(t *testing.T) {
	migs, err := NewMigrator(migrations.FS, migrations.Dir).ParseMigrations()
	require.NoError(t, err)
	require.NotEmpty(t, migs)
	require.Contains(t, migs[0].SQL, "CREATE TABLE IF NOT EXISTS oauth_token")
}
