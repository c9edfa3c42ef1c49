package repository

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/fjod/go_cart/abandoned-cart-service/pkg/circuitbreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	calls int
	page  domain.CartPage
	err   error
}

func (s *stubSource) FetchPage(context.Context, int, int) (domain.CartPage, error) {
	s.calls++
	return s.page, s.err
}

func newBreaker() *circuitbreaker.Breaker[domain.CartPage] {
	settings := circuitbreaker.Settings{Name: "carts", FailureThreshold: 2, OpenTimeout: time.Minute, HalfOpenRequests: 1}
	return circuitbreaker.New[domain.CartPage](settings, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBreakerCartSource_ReturnsPage(t *testing.T) {
	stub := &stubSource{page: domain.CartPage{Carts: []domain.CartSnapshot{{ID: "cart-1"}}, Total: 1}}
	source := WithCircuitBreaker(stub, newBreaker())

	page, err := source.FetchPage(context.Background(), 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, "cart-1", page.Carts[0].ID)
}

func TestBreakerCartSource_FailsFastWhenOpen(t *testing.T) {
	stub := &stubSource{err: errors.New("no reachable servers")}
	source := WithCircuitBreaker(stub, newBreaker())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := source.FetchPage(ctx, 0, 100)
		require.Error(t, err)
	}

	_, err := source.FetchPage(ctx, 0, 100)
	assert.ErrorIs(t, err, circuitbreaker.ErrOpen)
	assert.Equal(t, 2, stub.calls)
}
