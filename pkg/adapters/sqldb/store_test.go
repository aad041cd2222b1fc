package sqldb_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/funnel/pkg/adapters/sqldb"
	"github.com/aretw0/funnel/pkg/domain"
	"github.com/aretw0/funnel/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) *sqldb.Store {
	t.Helper()
	store, err := sqldb.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_Contract(t *testing.T) {
	ports.RunSessionStoreContract(t, openSQLite(t))
}

func TestSQLiteStore_FileDSN(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "nested", "funnel.db")

	store, err := sqldb.Open(ctx, dsn)
	require.NoError(t, err)
	id, err := store.Create(ctx, domain.UTM{Medium: "cpc"})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := sqldb.Open(ctx, dsn)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "cpc", rec.UTM.Medium)
	assert.Equal(t, 1, rec.CurrentStep)
	assert.Empty(t, rec.Answers)
}

func TestSQLiteStore_EmptyUpdate(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()

	id, err := store.Create(ctx, domain.UTM{})
	require.NoError(t, err)

	assert.NoError(t, store.Update(ctx, id, domain.SessionUpdate{}))
	assert.ErrorIs(t, store.Update(ctx, "missing", domain.SessionUpdate{}), domain.ErrSessionNotFound)
}

func TestSQLiteStore_NestedAnswers(t *testing.T) {
	store := openSQLite(t)
	ctx := context.Background()

	id, err := store.Create(ctx, domain.UTM{})
	require.NoError(t, err)

	answers := domain.Answers{
		"target-zones": domain.List("arms", "legs"),
		"weight":       domain.Fields(map[string]string{"weight": "80", "unit": "metric"}),
	}
	require.NoError(t, store.Update(ctx, id, domain.SessionUpdate{Answers: answers.Plain()}))

	rec, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []any{"arms", "legs"}, rec.Answers["target-zones"])
	assert.Equal(t, map[string]any{"weight": "80", "unit": "metric"}, rec.Answers["weight"])
}

func TestDetectDriver(t *testing.T) {
	assert.Equal(t, sqldb.DriverPostgres, sqldb.DetectDriver("postgres://u:p@localhost/db"))
	assert.Equal(t, sqldb.DriverPostgres, sqldb.DetectDriver("host=localhost dbname=funnel"))
	assert.Equal(t, sqldb.DriverSQLite, sqldb.DetectDriver("/var/lib/funnel.db"))
	assert.Equal(t, sqldb.DriverSQLite, sqldb.DetectDriver(":memory:"))
}

func TestPostgresStore_Contract(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}
	store, err := sqldb.Open(context.Background(), dsn)
	if err != nil {
		t.Skipf("Postgres not available: %v", err)
	}
	defer store.Close()

	ports.RunSessionStoreContract(t, store)
}
