package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/repo"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/cache"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/events"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.QuoteCalculatedEvent
}

func (p *recordingPublisher) PublishQuoteCalculated(ctx context.Context, event *events.QuoteCalculatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func decRef(t *testing.T, s string) *decimal.Decimal {
	d := mustDec(t, s)
	return &d
}

func seedItem(t *testing.T, store *repo.MemoryStore) domain.ItemPricing {
	t.Helper()
	item := domain.ItemPricing{
		ID:             uuid.New(),
		ItemType:       "evening_dress",
		PricePerDayHT:  mustDec(t, "100"),
		PricePerDayTTC: mustDec(t, "120"),
	}
	store.SeedItem(item)
	return item
}

func quoteRequest(orgID uuid.UUID, itemID uuid.UUID, days int) QuoteRequest {
	start := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	return QuoteRequest{
		OrganizationID: orgID,
		ItemID:         itemID,
		StartDate:      start,
		EndDate:        start.AddDate(0, 0, days),
	}
}

func TestQuote_FallbackToItemDefault(t *testing.T) {
	store := repo.NewMemoryStore()
	item := seedItem(t, store)
	publisher := &recordingPublisher{}
	uc := NewQuoteUseCase(store, nil, publisher)

	orgID := uuid.New()
	result, err := uc.Quote(context.Background(), quoteRequest(orgID, item.ID, 3))
	require.NoError(t, err)

	require.Equal(t, domain.StrategyItemDefault, result.StrategyUsed)
	require.True(t, result.FinalPriceHT.Equal(mustDec(t, "300")))
	require.True(t, result.FinalPriceTTC.Equal(mustDec(t, "360")))
	require.Equal(t, 1, publisher.count())
}

func TestQuote_SelectsBestRule(t *testing.T) {
	store := repo.NewMemoryStore()
	item := seedItem(t, store)
	orgID := uuid.New()

	_, err := store.Rules().Upsert(context.Background(), domain.PricingRule{
		Name:           "weekly discount",
		OrganizationID: &orgID,
		Strategy:       domain.StrategyFlatRate,
		Priority:       10,
		IsActive:       true,
		Config: domain.CalculationConfig{
			FlatRate: &domain.FlatRateConfig{
				FlatPrice: mustDec(t, "500"),
				TaxRate:   decRef(t, "20"),
			},
		},
	})
	require.NoError(t, err)

	// Lower-priority catch-all that must lose
	_, err = store.Rules().Upsert(context.Background(), domain.PricingRule{
		Name:     "base",
		Strategy: domain.StrategyPerDay,
		Priority: 1,
		IsActive: true,
		Config: domain.CalculationConfig{
			PerDay: &domain.PerDayConfig{PricePerDay: decRef(t, "90"), TaxRate: decRef(t, "20")},
		},
	})
	require.NoError(t, err)

	uc := NewQuoteUseCase(store, nil, nil)
	result, err := uc.Quote(context.Background(), quoteRequest(orgID, item.ID, 3))
	require.NoError(t, err)

	require.Equal(t, domain.StrategyFlatRate, result.StrategyUsed)
	require.True(t, result.FinalPriceHT.Equal(mustDec(t, "500")))
	require.True(t, result.FinalPriceTTC.Equal(mustDec(t, "600")))
}

func TestQuote_ExplicitRuleWinsOverSelection(t *testing.T) {
	store := repo.NewMemoryStore()
	item := seedItem(t, store)
	orgID := uuid.New()

	chosen, err := store.Rules().Upsert(context.Background(), domain.PricingRule{
		Name:           "negotiated",
		OrganizationID: &orgID,
		Strategy:       domain.StrategyFixedPrice,
		Priority:       0,
		IsActive:       true,
		Config: domain.CalculationConfig{
			FixedPrice: &domain.FixedPriceConfig{Price: mustDec(t, "150"), TaxRate: decRef(t, "20")},
		},
	})
	require.NoError(t, err)

	_, err = store.Rules().Upsert(context.Background(), domain.PricingRule{
		Name:           "expensive",
		OrganizationID: &orgID,
		Strategy:       domain.StrategyFlatRate,
		Priority:       100,
		IsActive:       true,
		Config: domain.CalculationConfig{
			FlatRate: &domain.FlatRateConfig{FlatPrice: mustDec(t, "900"), TaxRate: decRef(t, "20")},
		},
	})
	require.NoError(t, err)

	uc := NewQuoteUseCase(store, nil, nil)
	req := quoteRequest(orgID, item.ID, 2)
	req.RuleID = &chosen.ID

	result, err := uc.Quote(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, domain.StrategyFixedPrice, result.StrategyUsed)
	require.True(t, result.FinalPriceHT.Equal(mustDec(t, "150")))
}

func TestQuote_DiscountOverride(t *testing.T) {
	store := repo.NewMemoryStore()
	item := seedItem(t, store)
	uc := NewQuoteUseCase(store, nil, nil)

	req := quoteRequest(uuid.New(), item.ID, 4)
	req.DiscountPercentage = decRef(t, "25")

	result, err := uc.Quote(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.BasePriceHT.Equal(mustDec(t, "400")))
	require.True(t, result.DiscountAmount.Equal(mustDec(t, "100")))
	require.True(t, result.FinalPriceHT.Equal(mustDec(t, "300")))
}

func TestQuote_InvalidDuration(t *testing.T) {
	store := repo.NewMemoryStore()
	item := seedItem(t, store)
	uc := NewQuoteUseCase(store, nil, nil)

	req := quoteRequest(uuid.New(), item.ID, 0)
	_, err := uc.Quote(context.Background(), req)
	require.Error(t, err)
	require.Equal(t, domain.ErrCodeInvalidDuration, domain.ErrorCode(err))
}

func TestQuote_ItemNotFound(t *testing.T) {
	store := repo.NewMemoryStore()
	uc := NewQuoteUseCase(store, nil, nil)

	_, err := uc.Quote(context.Background(), quoteRequest(uuid.New(), uuid.New(), 3))
	require.Error(t, err)
	require.Equal(t, domain.ErrCodeNotFound, domain.ErrorCode(err))
}

func TestQuote_RuleListServedFromCache(t *testing.T) {
	store := repo.NewMemoryStore()
	item := seedItem(t, store)
	orgID := uuid.New()

	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	uc := NewQuoteUseCase(store, c, nil)

	// First quote warms the cache with an empty rule set
	result, err := uc.Quote(context.Background(), quoteRequest(orgID, item.ID, 3))
	require.NoError(t, err)
	require.Equal(t, domain.StrategyItemDefault, result.StrategyUsed)

	// A rule added behind the cache's back is not seen until the negative
	// entry expires
	_, err = store.Rules().Upsert(context.Background(), domain.PricingRule{
		Name:           "late arrival",
		OrganizationID: &orgID,
		Strategy:       domain.StrategyFlatRate,
		Priority:       10,
		IsActive:       true,
		Config: domain.CalculationConfig{
			FlatRate: &domain.FlatRateConfig{FlatPrice: mustDec(t, "500"), TaxRate: decRef(t, "20")},
		},
	})
	require.NoError(t, err)

	result, err = uc.Quote(context.Background(), quoteRequest(orgID, item.ID, 3))
	require.NoError(t, err)
	require.Equal(t, domain.StrategyItemDefault, result.StrategyUsed)

	mr.FastForward(11 * time.Second)

	result, err = uc.Quote(context.Background(), quoteRequest(orgID, item.ID, 3))
	require.NoError(t, err)
	require.Equal(t, domain.StrategyFlatRate, result.StrategyUsed)
}

func TestQuote_CachedRulesSurviveRoundTrip(t *testing.T) {
	store := repo.NewMemoryStore()
	item := seedItem(t, store)
	orgID := uuid.New()

	_, err := store.Rules().Upsert(context.Background(), domain.PricingRule{
		Name:           "tiered summer",
		OrganizationID: &orgID,
		Strategy:       domain.StrategyTiered,
		Priority:       5,
		IsActive:       true,
		Config: domain.CalculationConfig{
			Tiered: &domain.TieredConfig{
				Tiers: []domain.Tier{
					{MinDays: 1, MaxDays: 3, PricePerDay: mustDec(t, "50")},
					{MinDays: 4, MaxDays: 7, PricePerDay: mustDec(t, "40")},
				},
				TaxRate: decRef(t, "20"),
			},
		},
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	c := cache.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	uc := NewQuoteUseCase(store, c, nil)

	// First call populates the cache, second is served from it; both must
	// price identically through the JSON round trip.
	first, err := uc.Quote(context.Background(), quoteRequest(orgID, item.ID, 5))
	require.NoError(t, err)
	second, err := uc.Quote(context.Background(), quoteRequest(orgID, item.ID, 5))
	require.NoError(t, err)

	require.Equal(t, domain.StrategyTiered, first.StrategyUsed)
	require.Equal(t, domain.StrategyTiered, second.StrategyUsed)
	require.True(t, first.FinalPriceHT.Equal(second.FinalPriceHT))
	require.True(t, first.FinalPriceHT.Equal(mustDec(t, "200")))
}
