package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/customobject"
	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
)

const (
	Container         = "abandoned-cart"
	ConfigurationKey  = "configuration"
	AdministrationKey = "service-administration"
)

var ErrInvalidConfiguration = errors.New("invalid configuration")

// Provider reads and writes the documents that tune the abandoned cart
// pipeline. Nothing is cached: every call goes to the store.
type Provider struct {
	store  customobject.Store
	logger *slog.Logger
}

func NewProvider(store customobject.Store, logger *slog.Logger) *Provider {
	return &Provider{store: store, logger: logger}
}

// Fetch returns the thresholds for a processing run. A missing document or
// a failing store is treated as "no override configured".
func (p *Provider) Fetch(ctx context.Context) domain.Configuration {
	doc, err := p.Document(ctx)
	if err != nil {
		p.logger.WarnContext(ctx, "configuration not found, using defaults", "error", err)
		return domain.DefaultConfiguration()
	}
	return Resolve(doc)
}

func Resolve(doc domain.ConfigurationDocument) domain.Configuration {
	return domain.Configuration{
		AbandonAfterHours:        ParseIntOrDefault(doc.AbandonAfterHours, domain.DefaultAbandonAfterHours),
		IgnoreCartsOlderThanDays: ParseIntOrDefault(doc.IgnoreCartsOlderThan, domain.DefaultIgnoreCartsOlderThanDays),
	}
}

func (p *Provider) Document(ctx context.Context) (domain.ConfigurationDocument, error) {
	var doc domain.ConfigurationDocument
	if err := p.load(ctx, ConfigurationKey, &doc); err != nil {
		return domain.ConfigurationDocument{}, err
	}
	return doc, nil
}

func (p *Provider) SaveDocument(ctx context.Context, doc domain.ConfigurationDocument) error {
	if err := validateThreshold("abandonAfterHours", doc.AbandonAfterHours); err != nil {
		return err
	}
	if err := validateThreshold("ignoreCartsOlderThan", doc.IgnoreCartsOlderThan); err != nil {
		return err
	}
	return p.store.Upsert(ctx, Container, ConfigurationKey, doc)
}

// Administration returns the scheduling document, or the inactive default
// when none has been saved yet.
func (p *Provider) Administration(ctx context.Context) (domain.ServiceAdministration, error) {
	var admin domain.ServiceAdministration
	err := p.load(ctx, AdministrationKey, &admin)
	if errors.Is(err, customobject.ErrNotFound) {
		return domain.ServiceAdministration{}, nil
	}
	if err != nil {
		return domain.ServiceAdministration{}, err
	}
	return admin, nil
}

func (p *Provider) SaveAdministration(ctx context.Context, admin domain.ServiceAdministration) error {
	if err := validateThreshold("runEveryHours", admin.RunEveryHours); err != nil {
		return err
	}
	return p.store.Upsert(ctx, Container, AdministrationKey, admin)
}

func RunEveryHours(admin domain.ServiceAdministration) int {
	return ParseIntOrDefault(admin.RunEveryHours, domain.DefaultRunEveryHours)
}

func (p *Provider) load(ctx context.Context, key string, dst any) error {
	obj, err := p.store.Get(ctx, Container, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(obj.Value, dst); err != nil {
		return fmt.Errorf("unmarshal %s/%s failed: %w", Container, key, err)
	}
	return nil
}

// validateThreshold accepts an absent value; present values must be positive
// whole numbers given as a number or a numeric string. Reads stay lenient,
// writes do not.
func validateThreshold(field string, v any) error {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return nil
		}
		if n, err := strconv.Atoi(t); err == nil && n >= 1 {
			return nil
		}
	case float64:
		if t >= 1 && t == math.Trunc(t) {
			return nil
		}
	case int:
		if t >= 1 {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be a positive integer", ErrInvalidConfiguration, field)
}
