package engine

import (
	"github.com/shopspring/decimal"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
)

var hundred = decimal.NewFromInt(100)

// Calculator computes a price breakdown from a pricing context. It is
// stateless and safe for concurrent use.
type Calculator struct{}

// NewCalculator creates a new Calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate resolves the strategy of the context's rule (or the item-default
// fallback when no rule is set), applies discount overrides and tax, and
// returns the rounded result with its per-day breakdown. The input is never
// mutated.
func (c *Calculator) Calculate(pctx domain.PricingContext) (*domain.PriceCalculationResult, error) {
	if pctx.Rental.DurationDays < 1 {
		return nil, domain.NewInvalidDurationError(pctx.Rental.DurationDays)
	}

	strategy, baseHT, taxRate, err := c.resolveBase(pctx)
	if err != nil {
		return nil, err
	}

	discountAmount, discountPercentage := resolveDiscount(baseHT, pctx.Overrides)
	finalHT := baseHT.Sub(discountAmount)

	// Round the HT totals first, then derive TTC from the rounded values so
	// the tax identity holds exactly on the output.
	baseHT = baseHT.Round(2)
	finalHT = finalHT.Round(2)
	baseTax := baseHT.Mul(taxRate).Div(hundred).Round(2)
	taxAmount := finalHT.Mul(taxRate).Div(hundred).Round(2)
	finalTTC := finalHT.Add(taxAmount)

	currency := "EUR"
	if pctx.Defaults != nil && pctx.Defaults.Currency != "" {
		currency = pctx.Defaults.Currency
	}

	return &domain.PriceCalculationResult{
		StrategyUsed:       strategy,
		BasePriceHT:        baseHT,
		BasePriceTTC:       baseHT.Add(baseTax),
		DiscountAmount:     discountAmount.Round(2),
		DiscountPercentage: discountPercentage.Round(2),
		FinalPriceHT:       finalHT,
		FinalPriceTTC:      finalTTC,
		TaxAmount:          taxAmount,
		TaxRate:            taxRate,
		DurationDays:       pctx.Rental.DurationDays,
		Currency:           currency,
		Breakdown:          buildBreakdown(finalHT, finalTTC, pctx.Rental),
	}, nil
}

// resolveBase dispatches on the strategy and returns the pre-discount HT
// amount together with the effective tax rate.
func (c *Calculator) resolveBase(pctx domain.PricingContext) (domain.Strategy, decimal.Decimal, decimal.Decimal, error) {
	days := decimal.NewFromInt(int64(pctx.Rental.DurationDays))

	if pctx.Rule == nil {
		baseHT, taxRate := itemDefaultBase(pctx, days)
		return domain.StrategyItemDefault, baseHT, taxRate, nil
	}

	rule := pctx.Rule
	switch rule.Strategy {
	case domain.StrategyPerDay:
		cfg := rule.Config.PerDay
		if cfg == nil {
			return "", decimal.Zero, decimal.Zero, domain.NewIncompleteConfigurationError(rule.Strategy, "per_day")
		}
		rate := pctx.Item.PricePerDayHT
		if cfg.PricePerDay != nil {
			rate = *cfg.PricePerDay
		}
		return rule.Strategy, rate.Mul(days), resolveTaxRate(cfg.TaxRate, pctx.Defaults), nil

	case domain.StrategyFlatRate:
		cfg := rule.Config.FlatRate
		if cfg == nil {
			return "", decimal.Zero, decimal.Zero, domain.NewIncompleteConfigurationError(rule.Strategy, "flat_price")
		}
		return rule.Strategy, cfg.FlatPrice, resolveTaxRate(cfg.TaxRate, pctx.Defaults), nil

	case domain.StrategyFixedPrice:
		cfg := rule.Config.FixedPrice
		if cfg == nil {
			return "", decimal.Zero, decimal.Zero, domain.NewIncompleteConfigurationError(rule.Strategy, "price")
		}
		return rule.Strategy, cfg.Price, resolveTaxRate(cfg.TaxRate, pctx.Defaults), nil

	case domain.StrategyTiered:
		cfg := rule.Config.Tiered
		if cfg == nil || len(cfg.Tiers) == 0 {
			return "", decimal.Zero, decimal.Zero, domain.NewIncompleteConfigurationError(rule.Strategy, "tiers")
		}
		for _, tier := range cfg.Tiers {
			if pctx.Rental.DurationDays >= tier.MinDays && pctx.Rental.DurationDays <= tier.MaxDays {
				return rule.Strategy, tier.PricePerDay.Mul(days), resolveTaxRate(cfg.TaxRate, pctx.Defaults), nil
			}
		}
		return "", decimal.Zero, decimal.Zero, domain.NewNoMatchingTierError(pctx.Rental.DurationDays)

	default:
		return "", decimal.Zero, decimal.Zero, domain.NewUnknownStrategyError(string(rule.Strategy))
	}
}

// itemDefaultBase prices from the item record itself. A positive per-day
// price takes per-day semantics; otherwise the item's fixed price is used as
// a flat total. The tax rate is inferred from the item's HT/TTC ratio when
// both amounts are present.
func itemDefaultBase(pctx domain.PricingContext, days decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	item := pctx.Item
	if item.PricePerDayHT.IsPositive() {
		taxRate := inferTaxRate(item.PricePerDayHT, item.PricePerDayTTC, pctx.Defaults)
		return item.PricePerDayHT.Mul(days), taxRate
	}
	taxRate := inferTaxRate(item.PriceHT, item.PriceTTC, pctx.Defaults)
	return item.PriceHT, taxRate
}

// inferTaxRate derives a tax rate from an HT/TTC pair, falling back to the
// organization default, then zero.
func inferTaxRate(ht, ttc decimal.Decimal, defaults *domain.BusinessDefaults) decimal.Decimal {
	if ht.IsPositive() && ttc.IsPositive() {
		return ttc.Div(ht).Sub(decimal.NewFromInt(1)).Mul(hundred)
	}
	return resolveTaxRate(nil, defaults)
}

// resolveTaxRate picks the rule's configured rate, then the organization
// default, then zero.
func resolveTaxRate(configured *decimal.Decimal, defaults *domain.BusinessDefaults) decimal.Decimal {
	if configured != nil {
		return *configured
	}
	if defaults != nil && defaults.DefaultTaxRate != nil {
		return *defaults.DefaultTaxRate
	}
	return decimal.Zero
}

// resolveDiscount turns the override fields into an absolute amount and its
// equivalent percentage of the base. Percentage takes precedence when both
// are supplied.
func resolveDiscount(baseHT decimal.Decimal, overrides *domain.Overrides) (decimal.Decimal, decimal.Decimal) {
	if overrides == nil {
		return decimal.Zero, decimal.Zero
	}
	if overrides.DiscountPercentage != nil {
		pct := *overrides.DiscountPercentage
		return baseHT.Mul(pct).Div(hundred), pct
	}
	if overrides.DiscountAmount != nil {
		amount := *overrides.DiscountAmount
		if baseHT.IsPositive() {
			return amount, amount.Div(baseHT).Mul(hundred)
		}
		return amount, decimal.Zero
	}
	return decimal.Zero, decimal.Zero
}

// buildBreakdown distributes the final totals evenly across the rental days.
// Each line rounds independently; the last line absorbs the rounding
// remainder so the lines sum exactly to the recorded totals.
func buildBreakdown(finalHT, finalTTC decimal.Decimal, rental domain.RentalPeriod) []domain.BreakdownLine {
	days := rental.DurationDays
	daysDec := decimal.NewFromInt(int64(days))
	shareHT := finalHT.Div(daysDec).Round(2)
	shareTTC := finalTTC.Div(daysDec).Round(2)

	lines := make([]domain.BreakdownLine, days)
	var sumHT, sumTTC decimal.Decimal
	for i := 0; i < days; i++ {
		line := domain.BreakdownLine{
			Day:      i + 1,
			Date:     rental.StartDate.AddDate(0, 0, i),
			PriceHT:  shareHT,
			PriceTTC: shareTTC,
		}
		if i == days-1 {
			line.PriceHT = finalHT.Sub(sumHT)
			line.PriceTTC = finalTTC.Sub(sumTTC)
		}
		sumHT = sumHT.Add(line.PriceHT)
		sumTTC = sumTTC.Add(line.PriceTTC)
		lines[i] = line
	}
	return lines
}
