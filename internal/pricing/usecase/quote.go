package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/engine"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/repo"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/cache"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/events"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/log"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/metrics"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/retry"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/tracing"
)

const (
	ruleCacheTTL         = 2 * time.Minute
	ruleCacheNegativeTTL = 10 * time.Second
)

// QuoteRequest describes a price quote request after transport validation
type QuoteRequest struct {
	OrganizationID     uuid.UUID
	ItemID             uuid.UUID
	StartDate          time.Time
	EndDate            time.Time
	RuleID             *uuid.UUID
	DiscountPercentage *decimal.Decimal
	DiscountAmount     *decimal.Decimal
}

// QuoteUseCase computes price quotes: it resolves the item, the applicable
// rule and the organization defaults, and runs the calculation engine
type QuoteUseCase struct {
	rules      repo.RuleRepository
	items      repo.ItemRepository
	defaults   repo.DefaultsRepository
	calculator *engine.Calculator
	cache      *cache.Cache
	publisher  events.QuotePublisher
	retryCfg   retry.Config
}

// NewQuoteUseCase creates a new quote use case. Cache may be nil; publisher
// defaults to a no-op when nil.
func NewQuoteUseCase(store repo.Store, c *cache.Cache, publisher events.QuotePublisher) *QuoteUseCase {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &QuoteUseCase{
		rules:      store.Rules(),
		items:      store.Items(),
		defaults:   store.Defaults(),
		calculator: engine.NewCalculator(),
		cache:      c,
		publisher:  publisher,
		retryCfg:   retry.DefaultConfig(),
	}
}

// Quote computes a price for the requested rental
func (uc *QuoteUseCase) Quote(ctx context.Context, req QuoteRequest) (*domain.PriceCalculationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "pricing.quote")
	defer span.End()

	start := time.Now()

	rental := domain.NewRentalPeriod(req.StartDate, req.EndDate)
	if rental.DurationDays < 1 {
		metrics.QuotesTotal.WithLabelValues("none", "invalid_duration").Inc()
		return nil, domain.NewInvalidDurationError(rental.DurationDays)
	}

	item, err := uc.items.GetPricing(ctx, req.ItemID)
	if err != nil {
		metrics.QuotesTotal.WithLabelValues("none", "item_not_found").Inc()
		return nil, err
	}

	defaults, err := uc.defaults.GetByOrganization(ctx, req.OrganizationID)
	if err != nil {
		log.Warn(ctx, "Failed to load organization defaults, continuing without",
			zap.Error(err))
		defaults = nil
	}

	rule, err := uc.resolveRule(ctx, req, item, rental.DurationDays)
	if err != nil {
		metrics.QuotesTotal.WithLabelValues("none", "rule_error").Inc()
		return nil, err
	}

	pctx := domain.PricingContext{
		Item:     item,
		Rental:   rental,
		Rule:     rule,
		Defaults: defaults,
	}
	if req.DiscountPercentage != nil || req.DiscountAmount != nil {
		pctx.Overrides = &domain.Overrides{
			DiscountPercentage: req.DiscountPercentage,
			DiscountAmount:     req.DiscountAmount,
		}
	}

	result, err := uc.calculator.Calculate(pctx)
	if err != nil {
		metrics.QuotesTotal.WithLabelValues("none", "calculation_error").Inc()
		log.Error(ctx, "Price calculation failed",
			zap.String("item_id", req.ItemID.String()),
			zap.Error(err))
		return nil, err
	}

	strategy := string(result.StrategyUsed)
	span.SetAttributes(
		attribute.String("pricing.strategy", strategy),
		attribute.Int("pricing.duration_days", result.DurationDays),
	)
	metrics.QuotesTotal.WithLabelValues(strategy, "ok").Inc()
	metrics.QuoteDuration.WithLabelValues(strategy).Observe(time.Since(start).Seconds())
	metrics.QuoteAmount.WithLabelValues(strategy, result.Currency).Observe(result.FinalPriceHT.InexactFloat64())

	uc.publishQuote(ctx, req, rule, result)

	log.Info(ctx, "Quote computed",
		zap.String("item_id", req.ItemID.String()),
		zap.String("strategy", strategy),
		zap.String("final_price_ht", result.FinalPriceHT.String()),
		zap.Int("duration_days", result.DurationDays))

	return result, nil
}

// resolveRule returns the explicitly requested rule, or selects the best
// match from the organization's active rules
func (uc *QuoteUseCase) resolveRule(ctx context.Context, req QuoteRequest, item domain.ItemPricing, durationDays int) (*domain.PricingRule, error) {
	if req.RuleID != nil {
		rule, err := uc.rules.GetByID(ctx, *req.RuleID)
		if err != nil {
			return nil, err
		}
		return &rule, nil
	}

	rules, err := uc.activeRules(ctx, req.OrganizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pricing rules: %w", err)
	}

	return engine.FindBestRule(rules, domain.RuleCriteria{
		ItemType:     item.ItemType,
		DurationDays: durationDays,
	}), nil
}

// activeRules returns the organization's active rules, served from the
// cache when warm. Empty rule sets are cached briefly so organizations
// without rules do not hammer the database.
func (uc *QuoteUseCase) activeRules(ctx context.Context, orgID uuid.UUID) ([]domain.PricingRule, error) {
	if uc.cache == nil {
		return uc.rules.ListActive(ctx, orgID)
	}

	key := ruleCacheKey(orgID)
	var cached []domain.PricingRule
	err := uc.cache.Get(ctx, key, &cached)
	if err == nil {
		metrics.RuleCacheHits.WithLabelValues("hit").Inc()
		return cached, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		log.Warn(ctx, "Rule cache read failed", zap.Error(err))
	}
	metrics.RuleCacheHits.WithLabelValues("miss").Inc()

	rules, err := uc.rules.ListActive(ctx, orgID)
	if err != nil {
		return nil, err
	}

	ttl := ruleCacheTTL
	if len(rules) == 0 {
		ttl = ruleCacheNegativeTTL
	}
	if err := uc.cache.Set(ctx, key, rules, ttl); err != nil {
		log.Warn(ctx, "Rule cache write failed", zap.Error(err))
	}
	return rules, nil
}

// publishQuote emits the quote event with retries; failures are logged and
// never fail the quote
func (uc *QuoteUseCase) publishQuote(ctx context.Context, req QuoteRequest, rule *domain.PricingRule, result *domain.PriceCalculationResult) {
	ruleID := ""
	if rule != nil {
		ruleID = rule.ID.String()
	}
	event := events.NewQuoteCalculatedEvent(req.OrganizationID.String(), req.ItemID.String(), ruleID, result)

	err := retry.Do(ctx, uc.retryCfg, log.L(ctx), func() error {
		return uc.publisher.PublishQuoteCalculated(ctx, event)
	})
	if err != nil {
		metrics.EventsPublished.WithLabelValues("error").Inc()
		log.Error(ctx, "Failed to publish quote event",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}
	metrics.EventsPublished.WithLabelValues("ok").Inc()
}

// ruleCacheKey builds the cache key for an organization's active rules
func ruleCacheKey(orgID uuid.UUID) string {
	return fmt.Sprintf("rules:%s", orgID)
}
