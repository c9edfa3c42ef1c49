package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/customobject"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/runstore"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/settings"
	"golang.org/x/sync/singleflight"
)

const (
	processKey        = "process"
	DefaultRunTimeout = 10 * time.Minute
	saveTimeout       = 5 * time.Second
	MaxRecordsLimit   = 500
	MaxRecentRuns     = 50
)

var ErrInvalidPage = errors.New("invalid page parameters")

type Processor interface {
	Process(ctx context.Context) domain.ProcessingReport
}

type RunStore interface {
	Save(ctx context.Context, report domain.ProcessingReport) error
	Latest(ctx context.Context) (*domain.ProcessingReport, error)
	Recent(ctx context.Context, n int) ([]domain.ProcessingReport, error)
}

type Settings interface {
	Document(ctx context.Context) (domain.ConfigurationDocument, error)
	SaveDocument(ctx context.Context, doc domain.ConfigurationDocument) error
	Administration(ctx context.Context) (domain.ServiceAdministration, error)
	SaveAdministration(ctx context.Context, admin domain.ServiceAdministration) error
}

type Records interface {
	Get(ctx context.Context, cartID string) (*domain.AbandonedCartRecord, error)
	List(ctx context.Context, offset, limit int) (domain.RecordPage, error)
}

type Deps struct {
	Processor  Processor
	Runs       RunStore
	Settings   Settings
	Records    Records
	Logger     *slog.Logger
	RunTimeout time.Duration
}

type AbandonedCartService struct {
	processor  Processor
	runs       RunStore
	settings   Settings
	records    Records
	logger     *slog.Logger
	runTimeout time.Duration
	sfg        singleflight.Group // one processing run at a time
}

func NewAbandonedCartService(deps Deps) *AbandonedCartService {
	s := &AbandonedCartService{
		processor:  deps.Processor,
		runs:       deps.Runs,
		settings:   deps.Settings,
		records:    deps.Records,
		logger:     deps.Logger,
		runTimeout: deps.RunTimeout,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.runTimeout <= 0 {
		s.runTimeout = DefaultRunTimeout
	}
	return s
}

// RunNow starts a manual run, or joins the one already in flight. The run
// is detached from ctx so a client that hangs up does not abort the batch.
func (s *AbandonedCartService) RunNow(ctx context.Context) domain.ProcessingReport {
	return s.run(ctx, domain.TriggerManual)
}

func (s *AbandonedCartService) RunScheduled(ctx context.Context) domain.ProcessingReport {
	return s.run(ctx, domain.TriggerScheduled)
}

func (s *AbandonedCartService) run(ctx context.Context, trigger domain.RunTrigger) domain.ProcessingReport {
	v, _, shared := s.sfg.Do(processKey, func() (interface{}, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.runTimeout)
		defer cancel()

		report := s.processor.Process(runCtx)
		report.Trigger = trigger

		// a run that used up its deadline must still be recorded
		saveCtx, cancelSave := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		defer cancelSave()
		if err := s.runs.Save(saveCtx, report); err != nil {
			s.logger.WarnContext(ctx, "failed to save processing report", "run_id", report.RunID, "error", err)
		}
		return report, nil
	})
	if shared {
		s.logger.InfoContext(ctx, "joined in-flight processing run", "trigger", string(trigger))
	}
	return v.(domain.ProcessingReport)
}

func (s *AbandonedCartService) LatestRun(ctx context.Context) (*domain.ProcessingReport, error) {
	report, err := s.runs.Latest(ctx)
	if err != nil {
		if errors.Is(err, runstore.ErrNoRuns) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load latest run: %w", err)
	}
	return report, nil
}

func (s *AbandonedCartService) RecentRuns(ctx context.Context, n int) ([]domain.ProcessingReport, error) {
	if n <= 0 || n > MaxRecentRuns {
		n = MaxRecentRuns
	}
	reports, err := s.runs.Recent(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent runs: %w", err)
	}
	return reports, nil
}

// LastRunStarted reports when the most recent run started, whatever
// triggered it, so a restarted scheduler keeps its cadence. A scheduled tick
// that joined a manual run is saved under the manual trigger, so filtering by
// trigger would miss it.
func (s *AbandonedCartService) LastRunStarted(ctx context.Context) (time.Time, bool, error) {
	report, err := s.runs.Latest(ctx)
	if errors.Is(err, runstore.ErrNoRuns) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to load latest run: %w", err)
	}
	return report.StartedAt, true, nil
}

func (s *AbandonedCartService) ListRecords(ctx context.Context, offset, limit int) (domain.RecordPage, error) {
	if offset < 0 || limit < 1 || limit > MaxRecordsLimit {
		return domain.RecordPage{}, fmt.Errorf("%w: offset %d, limit %d", ErrInvalidPage, offset, limit)
	}
	page, err := s.records.List(ctx, offset, limit)
	if err != nil {
		return domain.RecordPage{}, fmt.Errorf("failed to list abandoned cart records: %w", err)
	}
	return page, nil
}

func (s *AbandonedCartService) GetRecord(ctx context.Context, cartID string) (*domain.AbandonedCartRecord, error) {
	record, err := s.records.Get(ctx, cartID)
	if err != nil {
		if errors.Is(err, customobject.ErrRecordNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get abandoned cart record %s: %w", cartID, err)
	}
	return record, nil
}

// Configuration returns the stored document together with the thresholds a
// run would use right now. A missing document yields an empty one.
func (s *AbandonedCartService) Configuration(ctx context.Context) (domain.ConfigurationDocument, domain.Configuration, error) {
	doc, err := s.settings.Document(ctx)
	if err != nil && !errors.Is(err, customobject.ErrNotFound) {
		return domain.ConfigurationDocument{}, domain.Configuration{}, fmt.Errorf("failed to load configuration: %w", err)
	}
	return doc, settings.Resolve(doc), nil
}

func (s *AbandonedCartService) SaveConfiguration(ctx context.Context, doc domain.ConfigurationDocument) error {
	if err := s.settings.SaveDocument(ctx, doc); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "configuration updated")
	return nil
}

func (s *AbandonedCartService) Administration(ctx context.Context) (domain.ServiceAdministration, error) {
	return s.settings.Administration(ctx)
}

func (s *AbandonedCartService) SaveAdministration(ctx context.Context, admin domain.ServiceAdministration) error {
	if err := s.settings.SaveAdministration(ctx, admin); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "service administration updated", "service_activated", admin.ServiceActivated)
	return nil
}
