package customobject

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestSQLite(t *testing.T) *SQLStore {
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "objects.db"))
	require.NoError(t, err)

	store := NewSQLiteStore(db)
	require.NoError(t, store.RunMigrations("./migrations/sqlite"))
	t.Cleanup(func() { store.Close() })

	return store
}

func setupTestPostgres(t *testing.T) (*SQLStore, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations/postgres",
	}

	db, err := OpenPostgres(creds)
	require.NoError(t, err)

	store := NewPostgresStore(db)
	require.NoError(t, store.RunMigrations(creds.MigrationsDirPath))

	cleanup := func() {
		store.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, cleanup
}

// testStoreContract checks the behaviour every Store must share.
func testStoreContract(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		obj, err := store.Get(ctx, "abandoned-cart", "configuration")
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, obj)
	})

	t.Run("upsert overwrites and bumps version", func(t *testing.T) {
		first := domain.AbandonedCartRecord{CartID: "cart-1", CustomerEmail: "a@x.com", CartTotal: "10.00", CurrencyCode: "USD"}
		second := domain.AbandonedCartRecord{CartID: "cart-1", CustomerEmail: "b@x.com", CartTotal: "25.50", CurrencyCode: "EUR"}

		require.NoError(t, store.Upsert(ctx, AbandonedCartsContainer, "cart-1", first))
		require.NoError(t, store.Upsert(ctx, AbandonedCartsContainer, "cart-1", second))

		obj, err := store.Get(ctx, AbandonedCartsContainer, "cart-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), obj.Version)
		assert.JSONEq(t, `{"cartId":"cart-1","customerEmail":"b@x.com","cartTotal":"25.50","currencyCode":"EUR","abandonmentDate":"0001-01-01T00:00:00Z"}`, string(obj.Value))
		assert.False(t, obj.CreatedAt.IsZero())
	})

	t.Run("list pages within container", func(t *testing.T) {
		for i := 2; i <= 5; i++ {
			key := fmt.Sprintf("cart-%d", i)
			require.NoError(t, store.Upsert(ctx, AbandonedCartsContainer, key, domain.AbandonedCartRecord{CartID: key}))
		}
		require.NoError(t, store.Upsert(ctx, "abandoned-cart", "configuration", map[string]any{"abandonAfterHours": 12}))

		objects, total, err := store.List(ctx, AbandonedCartsContainer, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, 5, total)
		require.Len(t, objects, 2)
		assert.Equal(t, "cart-2", objects[0].Key)
		assert.Equal(t, "cart-3", objects[1].Key)
	})
}

func TestSQLiteStore_Contract(t *testing.T) {
	testStoreContract(t, setupTestSQLite(t))
}

func TestPostgresStore_Contract(t *testing.T) {
	store, cleanup := setupTestPostgres(t)
	defer cleanup()

	testStoreContract(t, store)
}

func TestSQLiteStore_MigrationsAreIdempotent(t *testing.T) {
	store := setupTestSQLite(t)

	assert.NoError(t, store.RunMigrations("./migrations/sqlite"))
}
