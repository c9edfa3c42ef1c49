package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestDB(t *testing.T) (*mongo.Database, func()) {
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	cleanup := func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return db, cleanup
}

func seedCarts(t *testing.T, db *mongo.Database, n int) {
	ctx := context.Background()
	docs := make([]interface{}, 0, n)
	base := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		docs = append(docs, domain.CartSnapshot{
			ID:             fmt.Sprintf("cart-%03d", i),
			CustomerEmail:  fmt.Sprintf("user%d@example.com", i),
			LastModifiedAt: base.Add(-time.Duration(i) * time.Hour),
			TotalPrice:     &domain.Money{CentAmount: int64(i * 100), CurrencyCode: "EUR"},
		})
	}
	_, err := db.Collection("carts").InsertMany(ctx, docs)
	require.NoError(t, err)
}

func TestFetchPage_Empty(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	page, err := NewMongoCartSource(db).FetchPage(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Empty(t, page.Carts)
	assert.Equal(t, 0, page.Total)
}

func TestFetchPage_PagesInIDOrder(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()
	seedCarts(t, db, 5)

	source := NewMongoCartSource(db)
	ctx := context.Background()

	first, err := source.FetchPage(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, first.Total)
	require.Len(t, first.Carts, 2)
	assert.Equal(t, "cart-000", first.Carts[0].ID)
	assert.Equal(t, "cart-001", first.Carts[1].ID)

	last, err := source.FetchPage(ctx, 4, 2)
	require.NoError(t, err)
	require.Len(t, last.Carts, 1)
	assert.Equal(t, "cart-004", last.Carts[0].ID)
	assert.Equal(t, "user4@example.com", last.Carts[0].CustomerEmail)
	require.NotNil(t, last.Carts[0].TotalPrice)
	assert.Equal(t, int64(400), last.Carts[0].TotalPrice.CentAmount)
	assert.Equal(t, "EUR", last.Carts[0].TotalPrice.CurrencyCode)

	beyond, err := source.FetchPage(ctx, 10, 2)
	require.NoError(t, err)
	assert.Empty(t, beyond.Carts)
}

func TestFetchPage_InvalidArguments(t *testing.T) {
	source := &mongoCartSource{}

	_, err := source.FetchPage(context.Background(), -1, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)

	_, err = source.FetchPage(context.Background(), 0, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)
}
