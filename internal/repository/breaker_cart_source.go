package repository

import (
	"context"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/fjod/go_cart/abandoned-cart-service/pkg/circuitbreaker"
)

type breakerCartSource struct {
	next    CartSource
	breaker *circuitbreaker.Breaker[domain.CartPage]
}

// WithCircuitBreaker makes page fetches fail fast with circuitbreaker.ErrOpen
// while the cart store keeps failing.
func WithCircuitBreaker(next CartSource, breaker *circuitbreaker.Breaker[domain.CartPage]) CartSource {
	return &breakerCartSource{next: next, breaker: breaker}
}

func (b *breakerCartSource) FetchPage(ctx context.Context, offset, limit int) (domain.CartPage, error) {
	return b.breaker.Execute(func() (domain.CartPage, error) {
		return b.next.FetchPage(ctx, offset, limit)
	})
}
