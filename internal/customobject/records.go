package customobject

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
)

const AbandonedCartsContainer = "abandoned-carts"

var ErrRecordNotFound = errors.New("abandoned cart record not found")

// AbandonedCarts stores one record per cart, keyed by cart id, so a cart
// processed by several runs keeps only its latest snapshot.
type AbandonedCarts struct {
	store Store
}

func NewAbandonedCarts(store Store) *AbandonedCarts {
	return &AbandonedCarts{store: store}
}

func (a *AbandonedCarts) Upsert(ctx context.Context, record domain.AbandonedCartRecord) error {
	if record.CartID == "" {
		return errors.New("abandoned cart record has no cart id")
	}
	return a.store.Upsert(ctx, AbandonedCartsContainer, record.CartID, record)
}

func (a *AbandonedCarts) Get(ctx context.Context, cartID string) (*domain.AbandonedCartRecord, error) {
	obj, err := a.store.Get(ctx, AbandonedCartsContainer, cartID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	var record domain.AbandonedCartRecord
	if err := json.Unmarshal(obj.Value, &record); err != nil {
		return nil, fmt.Errorf("unmarshal abandoned cart %s failed: %w", cartID, err)
	}
	return &record, nil
}

func (a *AbandonedCarts) List(ctx context.Context, offset, limit int) (domain.RecordPage, error) {
	objects, total, err := a.store.List(ctx, AbandonedCartsContainer, offset, limit)
	if err != nil {
		return domain.RecordPage{}, err
	}

	page := domain.RecordPage{
		Results: make([]domain.AbandonedCartRecord, 0, len(objects)),
		Total:   total,
	}
	for _, obj := range objects {
		var record domain.AbandonedCartRecord
		if err := json.Unmarshal(obj.Value, &record); err != nil {
			return domain.RecordPage{}, fmt.Errorf("unmarshal abandoned cart %s failed: %w", obj.Key, err)
		}
		page.Results = append(page.Results, record)
	}

	return page, nil
}
