package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrInvalidPage = errors.New("invalid page request")

type mongoCartSource struct {
	collection *mongo.Collection
}

func NewMongoCartSource(db *mongo.Database) CartSource {
	return &mongoCartSource{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartSource) FetchPage(ctx context.Context, offset, limit int) (domain.CartPage, error) {
	if offset < 0 || limit <= 0 {
		return domain.CartPage{}, fmt.Errorf("%w: offset=%d limit=%d", ErrInvalidPage, offset, limit)
	}

	total, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return domain.CartPage{}, fmt.Errorf("failed to count carts: %w", err)
	}

	// stable order keeps offsets meaningful across pages
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit)).
		SetProjection(bson.M{
			"customer_email":   1,
			"last_modified_at": 1,
			"total_price":      1,
		})

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return domain.CartPage{}, fmt.Errorf("failed to fetch carts: %w", err)
	}
	defer cursor.Close(ctx)

	carts := make([]domain.CartSnapshot, 0, limit)
	if err := cursor.All(ctx, &carts); err != nil {
		return domain.CartPage{}, fmt.Errorf("failed to decode carts: %w", err)
	}

	return domain.CartPage{Carts: carts, Total: int(total)}, nil
}
