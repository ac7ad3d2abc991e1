package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
)

// RuleRepository provides access to stored pricing rules
type RuleRepository interface {
	// GetByID retrieves a rule by id
	GetByID(ctx context.Context, id uuid.UUID) (domain.PricingRule, error)

	// List retrieves all rules visible to an organization (its own plus
	// global ones), including inactive rules, for management views
	List(ctx context.Context, orgID uuid.UUID) ([]domain.PricingRule, error)

	// ListActive retrieves the active rules visible to an organization,
	// ordered by descending priority then by name. Rule selection relies
	// on this ordering for its deterministic tie-break.
	ListActive(ctx context.Context, orgID uuid.UUID) ([]domain.PricingRule, error)

	// Upsert creates or updates a rule
	Upsert(ctx context.Context, rule domain.PricingRule) (domain.PricingRule, error)

	// Delete removes a rule by id
	Delete(ctx context.Context, id uuid.UUID) error
}

// ItemRepository provides the pricing fields of rentable items
type ItemRepository interface {
	// GetPricing retrieves the base prices of an item
	GetPricing(ctx context.Context, id uuid.UUID) (domain.ItemPricing, error)
}

// DefaultsRepository provides organization-wide business defaults
type DefaultsRepository interface {
	// GetByOrganization retrieves an organization's defaults, or nil when
	// none are configured
	GetByOrganization(ctx context.Context, orgID uuid.UUID) (*domain.BusinessDefaults, error)
}

// Store bundles the repositories behind a single backend
type Store interface {
	Rules() RuleRepository
	Items() ItemRepository
	Defaults() DefaultsRepository
	Close() error
}
