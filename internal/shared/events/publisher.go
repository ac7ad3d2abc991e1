package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
)

// QuoteCalculatedEvent is emitted after every successful price calculation
type QuoteCalculatedEvent struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	ItemID         string          `json:"item_id"`
	RuleID         string          `json:"rule_id,omitempty"`
	StrategyUsed   domain.Strategy `json:"strategy_used"`
	FinalPriceHT   decimal.Decimal `json:"final_price_ht"`
	FinalPriceTTC  decimal.Decimal `json:"final_price_ttc"`
	Currency       string          `json:"currency"`
	DurationDays   int             `json:"duration_days"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// NewQuoteCalculatedEvent builds an event from a calculation result
func NewQuoteCalculatedEvent(orgID, itemID, ruleID string, result *domain.PriceCalculationResult) *QuoteCalculatedEvent {
	return &QuoteCalculatedEvent{
		ID:             uuid.NewString(),
		OrganizationID: orgID,
		ItemID:         itemID,
		RuleID:         ruleID,
		StrategyUsed:   result.StrategyUsed,
		FinalPriceHT:   result.FinalPriceHT,
		FinalPriceTTC:  result.FinalPriceTTC,
		Currency:       result.Currency,
		DurationDays:   result.DurationDays,
		OccurredAt:     time.Now().UTC(),
	}
}

// QuotePublisher publishes quote events to the broker
type QuotePublisher interface {
	PublishQuoteCalculated(ctx context.Context, event *QuoteCalculatedEvent) error
	Close() error
}

// NopPublisher discards all events; used when no broker is configured
type NopPublisher struct{}

// PublishQuoteCalculated discards the event
func (NopPublisher) PublishQuoteCalculated(ctx context.Context, event *QuoteCalculatedEvent) error {
	return nil
}

// Close is a no-op
func (NopPublisher) Close() error { return nil }
