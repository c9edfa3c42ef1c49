package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
)

type mockConfiguration struct {
	cfg   domain.Configuration
	panic bool
}

func (m *mockConfiguration) Fetch(context.Context) domain.Configuration {
	if m.panic {
		panic("configuration store exploded")
	}
	return m.cfg
}

// mockCartSource serves carts in pages. total overrides the reported total
// when non-zero, failAt makes the fetch at that offset fail.
type mockCartSource struct {
	m         sync.Mutex
	carts     []domain.CartSnapshot
	total     int
	failAt    int
	failErr   error
	requested []int
}

func (m *mockCartSource) FetchPage(_ context.Context, offset, limit int) (domain.CartPage, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.requested = append(m.requested, offset)

	if m.failErr != nil && offset == m.failAt {
		return domain.CartPage{}, m.failErr
	}

	total := len(m.carts)
	if m.total != 0 {
		total = m.total
	}
	if offset >= len(m.carts) {
		return domain.CartPage{Total: total}, nil
	}
	end := min(offset+limit, len(m.carts))
	return domain.CartPage{Carts: m.carts[offset:end], Total: total}, nil
}

type mockRecordWriter struct {
	m       sync.Mutex
	records map[string]domain.AbandonedCartRecord
	failFor map[string]bool
	panicOn string
}

func newMockRecordWriter() *mockRecordWriter {
	return &mockRecordWriter{records: map[string]domain.AbandonedCartRecord{}, failFor: map[string]bool{}}
}

func (m *mockRecordWriter) Upsert(_ context.Context, record domain.AbandonedCartRecord) error {
	m.m.Lock()
	defer m.m.Unlock()
	if record.CartID == m.panicOn {
		panic("nil map in store driver")
	}
	if m.failFor[record.CartID] {
		return fmt.Errorf("failed to upsert custom object abandoned-carts/%s: %w", record.CartID, errors.New("write conflict"))
	}
	m.records[record.CartID] = record
	return nil
}

type mockPublisher struct {
	m         sync.Mutex
	published []string
	runIDs    map[string]bool
	err       error
}

func (m *mockPublisher) PublishRecorded(_ context.Context, runID string, record domain.AbandonedCartRecord) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.runIDs == nil {
		m.runIDs = map[string]bool{}
	}
	m.runIDs[runID] = true
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, record.CartID)
	return nil
}

func abandonedCart(id string, now time.Time) domain.CartSnapshot {
	return domain.CartSnapshot{
		ID:             id,
		CustomerEmail:  id + "@example.com",
		LastModifiedAt: now.Add(-48 * time.Hour),
		TotalPrice:     &domain.Money{CentAmount: 2500, CurrencyCode: "EUR"},
	}
}

func abandonedCarts(n int, now time.Time) []domain.CartSnapshot {
	carts := make([]domain.CartSnapshot, 0, n)
	for i := 0; i < n; i++ {
		carts = append(carts, abandonedCart(fmt.Sprintf("cart-%04d", i), now))
	}
	return carts
}
