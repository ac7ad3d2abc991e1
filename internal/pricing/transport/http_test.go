package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/repo"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/usecase"
)

func newTestServer(t *testing.T) (*httptest.Server, *repo.MemoryStore) {
	t.Helper()
	store := repo.NewMemoryStore()
	handler := NewHandler(
		usecase.NewQuoteUseCase(store, nil, nil),
		usecase.NewRuleUseCase(store, nil),
	)
	srv := httptest.NewServer(handler.Router())
	t.Cleanup(srv.Close)
	return srv, store
}

func mustDec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
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

func doJSON(t *testing.T, srv *httptest.Server, method, path string, orgID uuid.UUID, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if orgID != uuid.Nil {
		req.Header.Set(headerOrganizationID, orgID.String())
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func TestQuoteEndpoint(t *testing.T) {
	srv, store := newTestServer(t)
	item := seedItem(t, store)

	resp := doJSON(t, srv, http.MethodPost, "/v1/quotes", uuid.New(), map[string]interface{}{
		"item_id":    item.ID,
		"start_date": "2026-07-01",
		"end_date":   "2026-07-04",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get(headerRequestID))

	var result domain.PriceCalculationResult
	decodeBody(t, resp, &result)
	require.Equal(t, domain.StrategyItemDefault, result.StrategyUsed)
	require.Equal(t, 3, result.DurationDays)
	require.True(t, result.FinalPriceHT.Equal(mustDec(t, "300")))
	require.Len(t, result.Breakdown, 3)
}

func TestQuoteEndpoint_MissingOrganizationHeader(t *testing.T) {
	srv, store := newTestServer(t)
	item := seedItem(t, store)

	resp := doJSON(t, srv, http.MethodPost, "/v1/quotes", uuid.Nil, map[string]interface{}{
		"item_id":    item.ID,
		"start_date": "2026-07-01",
		"end_date":   "2026-07-02",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var envelope errorEnvelope
	decodeBody(t, resp, &envelope)
	require.Equal(t, domain.ErrCodeInvalidInput, envelope.Error.Code)
}

func TestQuoteEndpoint_InvalidDuration(t *testing.T) {
	srv, store := newTestServer(t)
	item := seedItem(t, store)

	resp := doJSON(t, srv, http.MethodPost, "/v1/quotes", uuid.New(), map[string]interface{}{
		"item_id":    item.ID,
		"start_date": "2026-07-04",
		"end_date":   "2026-07-01",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var envelope errorEnvelope
	decodeBody(t, resp, &envelope)
	require.Equal(t, domain.ErrCodeInvalidDuration, envelope.Error.Code)
}

func TestQuoteEndpoint_ItemNotFound(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/v1/quotes", uuid.New(), map[string]interface{}{
		"item_id":    uuid.New(),
		"start_date": "2026-07-01",
		"end_date":   "2026-07-02",
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRuleLifecycle(t *testing.T) {
	srv, store := newTestServer(t)
	item := seedItem(t, store)
	orgID := uuid.New()

	taxRate := mustDec(t, "20")
	create := doJSON(t, srv, http.MethodPost, "/v1/rules", orgID, domain.PricingRule{
		Name:     "weekend flat",
		Strategy: domain.StrategyFlatRate,
		Priority: 10,
		IsActive: true,
		Config: domain.CalculationConfig{
			FlatRate: &domain.FlatRateConfig{FlatPrice: mustDec(t, "500"), TaxRate: &taxRate},
		},
	})
	require.Equal(t, http.StatusCreated, create.StatusCode)

	var stored domain.PricingRule
	decodeBody(t, create, &stored)
	require.NotEqual(t, uuid.Nil, stored.ID)
	require.NotNil(t, stored.OrganizationID)
	require.Equal(t, orgID, *stored.OrganizationID)

	list := doJSON(t, srv, http.MethodGet, "/v1/rules", orgID, nil)
	require.Equal(t, http.StatusOK, list.StatusCode)
	var listed struct {
		Rules []domain.PricingRule `json:"rules"`
	}
	decodeBody(t, list, &listed)
	require.Len(t, listed.Rules, 1)

	// The new rule must now drive quotes
	quote := doJSON(t, srv, http.MethodPost, "/v1/quotes", orgID, map[string]interface{}{
		"item_id":    item.ID,
		"start_date": "2026-07-01",
		"end_date":   "2026-07-04",
	})
	require.Equal(t, http.StatusOK, quote.StatusCode)
	var result domain.PriceCalculationResult
	decodeBody(t, quote, &result)
	require.Equal(t, domain.StrategyFlatRate, result.StrategyUsed)
	require.True(t, result.FinalPriceHT.Equal(mustDec(t, "500")))

	get := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/v1/rules/%s", stored.ID), orgID, nil)
	require.Equal(t, http.StatusOK, get.StatusCode)

	del := doJSON(t, srv, http.MethodDelete, fmt.Sprintf("/v1/rules/%s", stored.ID), orgID, nil)
	require.Equal(t, http.StatusNoContent, del.StatusCode)

	getAgain := doJSON(t, srv, http.MethodGet, fmt.Sprintf("/v1/rules/%s", stored.ID), orgID, nil)
	require.Equal(t, http.StatusNotFound, getAgain.StatusCode)
}

func TestUpdateRule(t *testing.T) {
	srv, _ := newTestServer(t)
	orgID := uuid.New()

	taxRate := mustDec(t, "20")
	rule := domain.PricingRule{
		Name:     "seasonal",
		Strategy: domain.StrategyFixedPrice,
		Priority: 1,
		IsActive: true,
		Config: domain.CalculationConfig{
			FixedPrice: &domain.FixedPriceConfig{Price: mustDec(t, "150"), TaxRate: &taxRate},
		},
	}

	create := doJSON(t, srv, http.MethodPost, "/v1/rules", orgID, rule)
	require.Equal(t, http.StatusCreated, create.StatusCode)
	var stored domain.PricingRule
	decodeBody(t, create, &stored)

	stored.Priority = 42
	update := doJSON(t, srv, http.MethodPut, fmt.Sprintf("/v1/rules/%s", stored.ID), orgID, stored)
	require.Equal(t, http.StatusOK, update.StatusCode)
	var updated domain.PricingRule
	decodeBody(t, update, &updated)
	require.Equal(t, stored.ID, updated.ID)
	require.Equal(t, 42, updated.Priority)

	missing := doJSON(t, srv, http.MethodPut, fmt.Sprintf("/v1/rules/%s", uuid.New()), orgID, stored)
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestUpsertRule_ConfigMismatchIsUnprocessable(t *testing.T) {
	srv, _ := newTestServer(t)
	orgID := uuid.New()

	resp := doJSON(t, srv, http.MethodPost, "/v1/rules", orgID, domain.PricingRule{
		Name:     "broken",
		Strategy: domain.StrategyTiered,
		IsActive: true,
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var envelope errorEnvelope
	decodeBody(t, resp, &envelope)
	require.Equal(t, domain.ErrCodeIncompleteConfiguration, envelope.Error.Code)
}

func TestRuleEndpoint_BadID(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doJSON(t, srv, http.MethodGet, "/v1/rules/not-a-uuid", uuid.New(), nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)
	resp, err := srv.Client().Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
