package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BreakdownLine is a single per-day entry of a price breakdown
type BreakdownLine struct {
	Day      int             `json:"day"`
	Date     time.Time       `json:"date"`
	PriceHT  decimal.Decimal `json:"price_ht"`
	PriceTTC decimal.Decimal `json:"price_ttc"`
}

// PriceCalculationResult is the immutable output of a price calculation.
// All monetary fields are rounded to 2 decimal places; the breakdown lines
// sum exactly to the final totals.
type PriceCalculationResult struct {
	StrategyUsed       Strategy        `json:"strategy_used"`
	BasePriceHT        decimal.Decimal `json:"base_price_ht"`
	BasePriceTTC       decimal.Decimal `json:"base_price_ttc"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	FinalPriceHT       decimal.Decimal `json:"final_price_ht"`
	FinalPriceTTC      decimal.Decimal `json:"final_price_ttc"`
	TaxAmount          decimal.Decimal `json:"tax_amount"`
	TaxRate            decimal.Decimal `json:"tax_rate"`
	DurationDays       int             `json:"duration_days"`
	Currency           string          `json:"currency"`
	Breakdown          []BreakdownLine `json:"breakdown"`
}
