// Package processor runs the abandoned cart batch: it pages through the cart
// collection, classifies every cart and upserts one record per abandoned
// cart, tallying the outcome into a single report.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/classifier"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultPageSize = 100
	maxFailures     = 100
)

type ConfigurationFetcher interface {
	Fetch(ctx context.Context) domain.Configuration
}

type CartSource interface {
	FetchPage(ctx context.Context, offset, limit int) (domain.CartPage, error)
}

type RecordWriter interface {
	Upsert(ctx context.Context, record domain.AbandonedCartRecord) error
}

type RecordPublisher interface {
	PublishRecorded(ctx context.Context, runID string, record domain.AbandonedCartRecord) error
}

type Deps struct {
	Configuration ConfigurationFetcher
	Carts         CartSource
	Records       RecordWriter
	Publisher     RecordPublisher
	Logger        *slog.Logger
	Clock         func() time.Time
	PageSize      int
}

type Processor struct {
	configuration ConfigurationFetcher
	carts         CartSource
	records       RecordWriter
	publisher     RecordPublisher
	logger        *slog.Logger
	clock         func() time.Time
	pageSize      int
	tracer        trace.Tracer
}

func New(deps Deps) *Processor {
	p := &Processor{
		configuration: deps.Configuration,
		carts:         deps.Carts,
		records:       deps.Records,
		publisher:     deps.Publisher,
		logger:        deps.Logger,
		clock:         deps.Clock,
		pageSize:      deps.PageSize,
		tracer:        otel.Tracer("github.com/fjod/go_cart/abandoned-cart-service/internal/processor"),
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if p.pageSize <= 0 {
		p.pageSize = DefaultPageSize
	}
	return p
}

// run holds the tallies of one invocation.
type run struct {
	report domain.ProcessingReport
	now    time.Time
}

// Process runs one full pass over the cart collection. It always returns a
// report: per-cart failures are tallied and the batch continues, while a
// failing page fetch ends the run with Success false.
func (p *Processor) Process(ctx context.Context) (report domain.ProcessingReport) {
	r := &run{
		report: domain.ProcessingReport{
			RunID:     uuid.NewString(),
			Skipped:   map[domain.SkipReason]int{},
			StartedAt: p.clock().UTC(),
		},
	}

	ctx, span := p.tracer.Start(ctx, "process abandoned carts",
		trace.WithAttributes(attribute.String("run.id", r.report.RunID)))
	defer span.End()

	logger := p.logger.With("run_id", r.report.RunID)

	defer func() {
		if rec := recover(); rec != nil {
			logger.ErrorContext(ctx, "abandoned cart processing crashed", "panic", rec)
			r.fail(fmt.Errorf("unexpected error: %v", rec))
			r.report.Message = "Failed to process abandoned carts: unexpected internal error"
		}
		r.report.FinishedAt = p.clock().UTC()
		span.SetAttributes(
			attribute.Int("carts.processed", r.report.TotalProcessed),
			attribute.Int("carts.created", r.report.TotalCreated),
		)
		if !r.report.Success {
			span.SetStatus(codes.Error, r.report.Error)
		}
		report = r.report
	}()

	logger.InfoContext(ctx, "starting abandoned cart processing")

	cfg := p.configuration.Fetch(ctx)
	r.report.ConfigurationUsed = cfg
	logger.InfoContext(ctx, "using configuration",
		"abandon_after_hours", cfg.AbandonAfterHours,
		"ignore_carts_older_than_days", cfg.IgnoreCartsOlderThanDays)

	// one reference time per run so every cart is judged against the same clock
	r.now = p.clock()

	if err := p.processPages(ctx, logger, cfg, r); err != nil {
		logger.ErrorContext(ctx, "abandoned cart processing failed",
			"error", err,
			"processed", r.report.TotalProcessed,
			"created", r.report.TotalCreated)
		r.fail(err)
		return
	}

	r.report.Success = true
	r.report.Message = fmt.Sprintf(
		"Successfully processed %d carts and created %d abandoned cart records. Used configuration: abandon after %d hours, ignore carts older than %d days.",
		r.report.TotalProcessed, r.report.TotalCreated, cfg.AbandonAfterHours, cfg.IgnoreCartsOlderThanDays)
	logger.InfoContext(ctx, "abandoned cart processing completed",
		"processed", r.report.TotalProcessed,
		"created", r.report.TotalCreated,
		"skipped", r.report.TotalSkipped,
		"failed", r.report.TotalFailed)
	return
}

func (p *Processor) processPages(ctx context.Context, logger *slog.Logger, cfg domain.Configuration, r *run) error {
	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("processing interrupted at offset %d: %w", offset, err)
		}

		logger.DebugContext(ctx, "fetching carts batch", "offset", offset, "limit", p.pageSize)
		page, err := p.carts.FetchPage(ctx, offset, p.pageSize)
		if err != nil {
			return fmt.Errorf("fetch carts at offset %d: %w", offset, err)
		}
		logger.InfoContext(ctx, "fetched carts batch", "offset", offset, "count", len(page.Carts), "total", page.Total)

		if len(page.Carts) == 0 {
			return nil
		}

		for _, cart := range page.Carts {
			r.report.TotalProcessed++
			p.processCart(ctx, logger, cfg, r, cart)
		}

		offset += p.pageSize
		// both exits are needed: a source whose total drifts between pages
		// must not keep the loop alive
		if offset >= page.Total {
			return nil
		}
	}
}

// processCart handles one cart. Nothing that goes wrong here may escape and
// end the batch.
func (p *Processor) processCart(ctx context.Context, logger *slog.Logger, cfg domain.Configuration, r *run, cart domain.CartSnapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			r.recordFailure(cart.ID, fmt.Errorf("panic: %v", rec))
			logger.ErrorContext(ctx, "error processing cart", "cart_id", cart.ID, "panic", rec)
		}
	}()

	decision, err := classifier.Classify(cart, cfg, r.now)
	if err != nil {
		r.recordFailure(cart.ID, err)
		logger.ErrorContext(ctx, "error processing cart", "cart_id", cart.ID, "error", err)
		return
	}

	if !decision.Accept {
		r.report.TotalSkipped++
		r.report.Skipped[decision.Reason]++
		logger.DebugContext(ctx, "cart skipped", "cart_id", cart.ID, "reason", string(decision.Reason))
		return
	}

	if err := p.records.Upsert(ctx, decision.Record); err != nil {
		r.recordFailure(cart.ID, err)
		logger.ErrorContext(ctx, "error processing cart", "cart_id", cart.ID, "error", err)
		return
	}
	r.report.TotalCreated++
	logger.InfoContext(ctx, "created abandoned cart record", "cart_id", cart.ID)

	if p.publisher == nil {
		return
	}
	if err := p.publisher.PublishRecorded(ctx, r.report.RunID, decision.Record); err != nil {
		logger.WarnContext(ctx, "failed to publish recorded event", "cart_id", cart.ID, "error", err)
	}
}

func (r *run) recordFailure(cartID string, err error) {
	r.report.TotalFailed++
	if len(r.report.Failures) >= maxFailures {
		return
	}
	r.report.Failures = append(r.report.Failures, domain.CartFailure{CartID: cartID, Reason: err.Error()})
}

func (r *run) fail(err error) {
	r.report.Success = false
	r.report.Error = err.Error()
	r.report.Message = fmt.Sprintf("Failed to process abandoned carts: %s", err.Error())
}
