package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemPricing carries the base prices of a rentable item, as stored on the
// item record. HT is the pre-tax amount, TTC the tax-inclusive amount.
type ItemPricing struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	ItemType       string          `json:"item_type" db:"item_type"`
	PricePerDayHT  decimal.Decimal `json:"price_per_day_ht" db:"price_per_day_ht"`
	PricePerDayTTC decimal.Decimal `json:"price_per_day_ttc" db:"price_per_day_ttc"`
	PriceHT        decimal.Decimal `json:"price_ht" db:"price_ht"`
	PriceTTC       decimal.Decimal `json:"price_ttc" db:"price_ttc"`
}

// RentalPeriod describes the requested rental window. DurationDays is
// derived, never user-supplied.
type RentalPeriod struct {
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	DurationDays int       `json:"duration_days"`
}

// DurationDays computes the rental length in whole days, rounding any
// partial day up. A non-positive result means the window is invalid.
func DurationDays(start, end time.Time) int {
	d := end.Sub(start)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) > 0 {
		days++
	}
	return days
}

// NewRentalPeriod builds a RentalPeriod with its derived duration
func NewRentalPeriod(start, end time.Time) RentalPeriod {
	return RentalPeriod{
		StartDate:    start,
		EndDate:      end,
		DurationDays: DurationDays(start, end),
	}
}

// BusinessDefaults are organization-wide fallbacks applied when a rule's
// config omits a value
type BusinessDefaults struct {
	DefaultTaxRate *decimal.Decimal `json:"default_tax_rate,omitempty" db:"default_tax_rate"`
	Currency       string           `json:"currency,omitempty" db:"currency"`
}

// Overrides are caller-supplied values that take precedence over computed
// ones. Percentage wins when both discount fields are given.
type Overrides struct {
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
}

// PricingContext is the full input to a price calculation. Rule is nil when
// no rule matched; the engine then falls back to the item's own prices.
type PricingContext struct {
	Item      ItemPricing       `json:"item"`
	Rental    RentalPeriod      `json:"rental"`
	Rule      *PricingRule      `json:"pricing_rule,omitempty"`
	Defaults  *BusinessDefaults `json:"business_rules,omitempty"`
	Overrides *Overrides        `json:"overrides,omitempty"`
}
