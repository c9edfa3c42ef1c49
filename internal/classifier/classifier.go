// Package classifier decides whether a cart snapshot counts as abandoned.
package classifier

import (
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/abandoned-cart-service/internal/domain"
)

var ErrInvalidCart = errors.New("invalid cart snapshot")

type Decision struct {
	Accept bool
	Reason domain.SkipReason
	Record domain.AbandonedCartRecord
}

func skip(reason domain.SkipReason) Decision {
	return Decision{Reason: reason}
}

// Classify applies the abandonment rules in order; the first match wins.
// A cart still inside the abandonment window is skipped as too recent even
// when it also has no email.
func Classify(cart domain.CartSnapshot, cfg domain.Configuration, now time.Time) (Decision, error) {
	if cart.ID == "" {
		return Decision{}, fmt.Errorf("%w: missing id", ErrInvalidCart)
	}
	if cart.LastModifiedAt.IsZero() {
		return Decision{}, fmt.Errorf("%w: cart %s has no last modification time", ErrInvalidCart, cart.ID)
	}

	age := now.Sub(cart.LastModifiedAt)
	hoursSinceLastModified := age.Hours()
	daysSinceLastModified := age.Hours() / 24

	if hoursSinceLastModified < float64(cfg.AbandonAfterHours) {
		return skip(domain.SkipTooRecent), nil
	}
	if daysSinceLastModified > float64(cfg.IgnoreCartsOlderThanDays) {
		return skip(domain.SkipTooOld), nil
	}
	if cart.CustomerEmail == "" {
		return skip(domain.SkipNoEmail), nil
	}

	return Decision{
		Accept: true,
		Record: domain.AbandonedCartRecord{
			CartID:          cart.ID,
			CustomerEmail:   cart.CustomerEmail,
			CartTotal:       FormatCentAmount(cart.TotalPrice),
			CurrencyCode:    currencyCode(cart.TotalPrice),
			AbandonmentDate: cart.LastModifiedAt,
		},
	}, nil
}

// FormatCentAmount renders centAmount/100 with two fraction digits, "0.00"
// when no price is known.
func FormatCentAmount(price *domain.Money) string {
	if price == nil || price.CentAmount == 0 {
		return "0.00"
	}

	cents := price.CentAmount
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func currencyCode(price *domain.Money) string {
	if price == nil || price.CurrencyCode == "" {
		return domain.DefaultCurrencyCode
	}
	return price.CurrencyCode
}
