package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Strategy identifies the computation method a pricing rule uses
type Strategy string

const (
	StrategyPerDay     Strategy = "per_day"
	StrategyFlatRate   Strategy = "flat_rate"
	StrategyFixedPrice Strategy = "fixed_price"
	StrategyTiered     Strategy = "tiered"

	// StrategyItemDefault is the implicit fallback applied when no rule
	// matched; it prices from the item's own per-day amounts.
	StrategyItemDefault Strategy = "item_default"
)

// IsValid reports whether the strategy is one of the storable values.
// StrategyItemDefault is engine-internal and never stored on a rule.
func (s Strategy) IsValid() bool {
	switch s {
	case StrategyPerDay, StrategyFlatRate, StrategyFixedPrice, StrategyTiered:
		return true
	default:
		return false
	}
}

// PricingRule is a stored pricing policy, scoped to an organization or global
type PricingRule struct {
	ID             uuid.UUID         `json:"id" db:"id"`
	Name           string            `json:"name" db:"name"`
	OrganizationID *uuid.UUID        `json:"organization_id,omitempty" db:"organization_id"`
	ServiceTypeID  *uuid.UUID        `json:"service_type_id,omitempty" db:"service_type_id"`
	Strategy       Strategy          `json:"strategy" db:"strategy"`
	Config         CalculationConfig `json:"calculation_config" db:"calculation_config"`
	AppliesTo      *AppliesTo        `json:"applies_to,omitempty" db:"applies_to"`
	Priority       int               `json:"priority" db:"priority"`
	IsActive       bool              `json:"is_active" db:"is_active"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// IsGlobal reports whether the rule applies to every organization
func (r *PricingRule) IsGlobal() bool {
	return r.OrganizationID == nil
}

// Matches reports whether the rule's predicate accepts the criteria.
// A rule without an applies_to predicate is a catch-all.
func (r *PricingRule) Matches(c RuleCriteria) bool {
	if r.AppliesTo == nil {
		return true
	}
	return r.AppliesTo.Matches(c)
}

// AppliesTo is the optional matching predicate of a rule; absent fields
// are unconstrained
type AppliesTo struct {
	ItemTypes       []string `json:"item_types,omitempty"`
	MinDurationDays *int     `json:"min_duration_days,omitempty"`
	MaxDurationDays *int     `json:"max_duration_days,omitempty"`
}

// Matches evaluates the predicate against the given criteria
func (a *AppliesTo) Matches(c RuleCriteria) bool {
	if len(a.ItemTypes) > 0 {
		if c.ItemType == "" {
			return false
		}
		found := false
		for _, t := range a.ItemTypes {
			if t == c.ItemType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if a.MinDurationDays != nil && c.DurationDays < *a.MinDurationDays {
		return false
	}
	if a.MaxDurationDays != nil && c.DurationDays > *a.MaxDurationDays {
		return false
	}
	return true
}

// RuleCriteria is the input to rule selection
type RuleCriteria struct {
	ItemType     string `json:"item_type,omitempty"`
	DurationDays int    `json:"duration_days"`
}

// CalculationConfig carries the strategy-specific parameters of a rule.
// Exactly one variant is set, matching the rule's strategy.
type CalculationConfig struct {
	PerDay     *PerDayConfig     `json:"per_day,omitempty"`
	FlatRate   *FlatRateConfig   `json:"flat_rate,omitempty"`
	FixedPrice *FixedPriceConfig `json:"fixed_price,omitempty"`
	Tiered     *TieredConfig     `json:"tiered,omitempty"`
}

// PerDayConfig prices a rental as rate x duration. PricePerDay defaults to
// the item's own per-day price when omitted.
type PerDayConfig struct {
	PricePerDay *decimal.Decimal `json:"price_per_day,omitempty"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
}

// FlatRateConfig prices a rental at a flat amount regardless of duration
type FlatRateConfig struct {
	FlatPrice decimal.Decimal  `json:"flat_price"`
	TaxRate   *decimal.Decimal `json:"tax_rate,omitempty"`
}

// FixedPriceConfig prices a rental at a single absolute price
type FixedPriceConfig struct {
	Price   decimal.Decimal  `json:"price"`
	TaxRate *decimal.Decimal `json:"tax_rate,omitempty"`
}

// TieredConfig selects a per-day rate from duration brackets
type TieredConfig struct {
	Tiers   []Tier           `json:"tiers"`
	TaxRate *decimal.Decimal `json:"tax_rate,omitempty"`
}

// Tier is a single duration bracket of a tiered config; bounds are inclusive
type Tier struct {
	MinDays     int             `json:"min_days"`
	MaxDays     int             `json:"max_days"`
	PricePerDay decimal.Decimal `json:"price_per_day"`
}

// Validate checks that the rule's config carries the variant its strategy
// requires. Called at the write boundary so malformed rules never reach
// storage, and again by the engine as a last line of defense.
func (r *PricingRule) Validate() error {
	switch r.Strategy {
	case StrategyPerDay:
		if r.Config.PerDay == nil {
			return NewIncompleteConfigurationError(r.Strategy, "per_day")
		}
	case StrategyFlatRate:
		if r.Config.FlatRate == nil {
			return NewIncompleteConfigurationError(r.Strategy, "flat_price")
		}
	case StrategyFixedPrice:
		if r.Config.FixedPrice == nil {
			return NewIncompleteConfigurationError(r.Strategy, "price")
		}
	case StrategyTiered:
		if r.Config.Tiered == nil || len(r.Config.Tiered.Tiers) == 0 {
			return NewIncompleteConfigurationError(r.Strategy, "tiers")
		}
		for _, tier := range r.Config.Tiered.Tiers {
			if tier.MinDays < 1 || tier.MaxDays < tier.MinDays {
				return NewIncompleteConfigurationError(r.Strategy, "tiers")
			}
		}
	default:
		return NewUnknownStrategyError(string(r.Strategy))
	}
	return nil
}

// rawCalculationConfig mirrors the flat JSON blob rules are stored with
type rawCalculationConfig struct {
	PricePerDay *decimal.Decimal `json:"price_per_day,omitempty"`
	FlatPrice   *decimal.Decimal `json:"flat_price,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Tiers       []Tier           `json:"tiers,omitempty"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
}

// FlatJSON serializes the config back to the flat blob representation rules
// are stored with
func (c CalculationConfig) FlatJSON() ([]byte, error) {
	var raw rawCalculationConfig
	switch {
	case c.PerDay != nil:
		raw.PricePerDay = c.PerDay.PricePerDay
		raw.TaxRate = c.PerDay.TaxRate
	case c.FlatRate != nil:
		price := c.FlatRate.FlatPrice
		raw.FlatPrice = &price
		raw.TaxRate = c.FlatRate.TaxRate
	case c.FixedPrice != nil:
		price := c.FixedPrice.Price
		raw.Price = &price
		raw.TaxRate = c.FixedPrice.TaxRate
	case c.Tiered != nil:
		raw.Tiers = c.Tiered.Tiers
		raw.TaxRate = c.Tiered.TaxRate
	}
	return json.Marshal(raw)
}

// ParseCalculationConfig validates a stored config blob against its strategy
// and returns the typed variant. Rules persist their config as a flat JSON
// object; validation happens here, at the load boundary, so the calculation
// path only ever sees well-formed variants.
func ParseCalculationConfig(strategy Strategy, data []byte) (CalculationConfig, error) {
	var raw rawCalculationConfig
	if len(data) > 0 {
		if err := json.Unmarshal(data, &raw); err != nil {
			return CalculationConfig{}, NewIncompleteConfigurationError(strategy, "calculation_config")
		}
	}

	switch strategy {
	case StrategyPerDay:
		return CalculationConfig{PerDay: &PerDayConfig{
			PricePerDay: raw.PricePerDay,
			TaxRate:     raw.TaxRate,
		}}, nil
	case StrategyFlatRate:
		if raw.FlatPrice == nil {
			return CalculationConfig{}, NewIncompleteConfigurationError(strategy, "flat_price")
		}
		return CalculationConfig{FlatRate: &FlatRateConfig{
			FlatPrice: *raw.FlatPrice,
			TaxRate:   raw.TaxRate,
		}}, nil
	case StrategyFixedPrice:
		if raw.Price == nil {
			return CalculationConfig{}, NewIncompleteConfigurationError(strategy, "price")
		}
		return CalculationConfig{FixedPrice: &FixedPriceConfig{
			Price:   *raw.Price,
			TaxRate: raw.TaxRate,
		}}, nil
	case StrategyTiered:
		if len(raw.Tiers) == 0 {
			return CalculationConfig{}, NewIncompleteConfigurationError(strategy, "tiers")
		}
		for _, tier := range raw.Tiers {
			if tier.MinDays < 1 || tier.MaxDays < tier.MinDays {
				return CalculationConfig{}, NewIncompleteConfigurationError(strategy, "tiers")
			}
		}
		return CalculationConfig{Tiered: &TieredConfig{
			Tiers:   raw.Tiers,
			TaxRate: raw.TaxRate,
		}}, nil
	default:
		return CalculationConfig{}, NewUnknownStrategyError(string(strategy))
	}
}
