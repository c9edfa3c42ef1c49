package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/customobject"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/runstore"
)

type mockProcessor struct {
	calls           atomic.Int32
	release         chan struct{}
	started         chan struct{}
	ctxErr          error
	waitForDeadline bool
}

func (m *mockProcessor) Process(ctx context.Context) domain.ProcessingReport {
	n := m.calls.Add(1)
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	if m.waitForDeadline {
		<-ctx.Done()
		return domain.ProcessingReport{
			RunID:   "run-timeout",
			Success: false,
			Error:   ctx.Err().Error(),
		}
	}
	m.ctxErr = ctx.Err()
	return domain.ProcessingReport{
		RunID:          "run-" + string(rune('0'+n)),
		Success:        true,
		TotalProcessed: 2,
		TotalCreated:   1,
		StartedAt:      time.Date(2026, 4, 2, 9, 0, 0, 0, time.UTC),
	}
}

// mockRunStore rejects saves on a finished context the way go-redis does.
type mockRunStore struct {
	m          sync.Mutex
	saved      []domain.ProcessingReport
	saveErr    error
	saveCtxErr error
	loadErr    error
}

func (m *mockRunStore) Save(ctx context.Context, report domain.ProcessingReport) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if err := ctx.Err(); err != nil {
		m.saveCtxErr = err
		return err
	}
	m.saved = append(m.saved, report)
	return nil
}

func (m *mockRunStore) Latest(context.Context) (*domain.ProcessingReport, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if len(m.saved) == 0 {
		return nil, runstore.ErrNoRuns
	}
	latest := m.saved[len(m.saved)-1]
	return &latest, nil
}

func (m *mockRunStore) Recent(_ context.Context, n int) ([]domain.ProcessingReport, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	out := make([]domain.ProcessingReport, 0, n)
	for i := len(m.saved) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, m.saved[i])
	}
	return out, nil
}

type mockSettings struct {
	m       sync.Mutex
	doc     *domain.ConfigurationDocument
	admin   domain.ServiceAdministration
	saveErr error
}

func (m *mockSettings) Document(context.Context) (domain.ConfigurationDocument, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.doc == nil {
		return domain.ConfigurationDocument{}, customobject.ErrNotFound
	}
	return *m.doc, nil
}

func (m *mockSettings) SaveDocument(_ context.Context, doc domain.ConfigurationDocument) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.doc = &doc
	return nil
}

func (m *mockSettings) Administration(context.Context) (domain.ServiceAdministration, error) {
	m.m.Lock()
	defer m.m.Unlock()
	return m.admin, nil
}

func (m *mockSettings) SaveAdministration(_ context.Context, admin domain.ServiceAdministration) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.admin = admin
	return nil
}

type mockRecords struct {
	records map[string]domain.AbandonedCartRecord
	err     error
	offset  int
	limit   int
}

func (m *mockRecords) Get(_ context.Context, cartID string) (*domain.AbandonedCartRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	record, ok := m.records[cartID]
	if !ok {
		return nil, customobject.ErrRecordNotFound
	}
	return &record, nil
}

func (m *mockRecords) List(_ context.Context, offset, limit int) (domain.RecordPage, error) {
	m.offset, m.limit = offset, limit
	if m.err != nil {
		return domain.RecordPage{}, m.err
	}
	page := domain.RecordPage{Total: len(m.records)}
	for _, record := range m.records {
		page.Results = append(page.Results, record)
	}
	return page, nil
}

var errStore = errors.New("connection refused")
