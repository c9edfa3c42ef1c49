package repository

import (
	"context"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
)

// CartSource pages through the cart collection.
// Every call reads the live collection; nothing is cached between pages.
type CartSource interface {
	FetchPage(ctx context.Context, offset, limit int) (domain.CartPage, error)
}
