package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/usecase"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/log"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/metrics"
)

const (
	headerOrganizationID = "X-Organization-ID"
	headerRequestID      = "X-Request-ID"
)

// Handler exposes the pricing use cases over REST
type Handler struct {
	quotes *usecase.QuoteUseCase
	rules  *usecase.RuleUseCase
}

// NewHandler creates the REST handler
func NewHandler(quotes *usecase.QuoteUseCase, rules *usecase.RuleUseCase) *Handler {
	return &Handler{quotes: quotes, rules: rules}
}

// Router builds the HTTP router with all routes and middleware attached
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, metricsMiddleware, loggingMiddleware)

	r.HandleFunc("/healthz", h.handleHealth).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	v1.HandleFunc("/quotes", h.handleQuote).Methods(http.MethodPost)
	v1.HandleFunc("/rules", h.handleListRules).Methods(http.MethodGet)
	v1.HandleFunc("/rules", h.handleUpsertRule).Methods(http.MethodPost)
	v1.HandleFunc("/rules/{id}", h.handleGetRule).Methods(http.MethodGet)
	v1.HandleFunc("/rules/{id}", h.handleUpdateRule).Methods(http.MethodPut)
	v1.HandleFunc("/rules/{id}", h.handleDeleteRule).Methods(http.MethodDelete)

	return r
}

type quoteRequestBody struct {
	ItemID             uuid.UUID        `json:"item_id"`
	StartDate          string           `json:"start_date"`
	EndDate            string           `json:"end_date"`
	RuleID             *uuid.UUID       `json:"rule_id,omitempty"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
}

func (h *Handler) handleQuote(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	var body quoteRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}
	if body.ItemID == uuid.Nil {
		writeErrorMessage(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "item_id is required")
		return
	}

	start, err := parseDate(body.StartDate)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "start_date must be an RFC 3339 timestamp or a YYYY-MM-DD date")
		return
	}
	end, err := parseDate(body.EndDate)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "end_date must be an RFC 3339 timestamp or a YYYY-MM-DD date")
		return
	}

	result, err := h.quotes.Quote(r.Context(), usecase.QuoteRequest{
		OrganizationID:     orgID,
		ItemID:             body.ItemID,
		StartDate:          start,
		EndDate:            end,
		RuleID:             body.RuleID,
		DiscountPercentage: body.DiscountPercentage,
		DiscountAmount:     body.DiscountAmount,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListRules(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	rules, err := h.rules.ListRules(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}
	if rules == nil {
		rules = []domain.PricingRule{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"rules": rules})
}

func (h *Handler) handleUpsertRule(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}

	var rule domain.PricingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}
	// Rules created through the API are always scoped to the caller's
	// organization; global rules are seeded out of band.
	rule.OrganizationID = &orgID

	created := rule.ID == uuid.Nil
	stored, err := h.rules.UpsertRule(r.Context(), rule)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, stored)
}

func (h *Handler) handleUpdateRule(w http.ResponseWriter, r *http.Request) {
	orgID, ok := organizationID(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var rule domain.PricingRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "invalid request body")
		return
	}
	rule.ID = id
	rule.OrganizationID = &orgID

	// Updating a rule that does not exist is a 404, not an implicit create
	if _, err := h.rules.GetRule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	stored, err := h.rules.UpsertRule(r.Context(), rule)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (h *Handler) handleGetRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rule, err := h.rules.GetRule(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

func (h *Handler) handleDeleteRule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.rules.DeleteRule(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// organizationID reads the tenant id the gateway injects into every request
func organizationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(headerOrganizationID)
	if raw == "" {
		writeErrorMessage(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, headerOrganizationID+" header is required")
		return uuid.Nil, false
	}
	orgID, err := uuid.Parse(raw)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, headerOrganizationID+" header must be a UUID")
		return uuid.Nil, false
	}
	return orgID, true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, domain.ErrCodeInvalidInput, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseDate accepts either a full RFC 3339 timestamp or a bare date
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	code := domain.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case domain.ErrCodeNotFound:
		status = http.StatusNotFound
	case domain.ErrCodeInvalidDuration:
		status = http.StatusBadRequest
	case domain.ErrCodeUnknownStrategy, domain.ErrCodeIncompleteConfiguration, domain.ErrCodeNoMatchingTier:
		status = http.StatusUnprocessableEntity
	}
	message := err.Error()
	if status == http.StatusInternalServerError {
		// Internal detail stays in the logs
		message = "internal error"
		code = "INTERNAL"
	}
	writeErrorMessage(w, status, code, message)
}

func writeErrorMessage(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(context.Background(), "Failed to encode response", zap.Error(err))
	}
}

// statusRecorder captures the response status for middleware
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(headerRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := log.WithRequestID(r.Context(), requestID)
		if orgID := r.Header.Get(headerOrganizationID); orgID != "" {
			ctx = log.WithOrgID(ctx, orgID)
		}
		w.Header().Set(headerRequestID, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Info(r.Context(), "HTTP request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// routeTemplate returns the mux route pattern so metric labels stay
// low-cardinality
func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			return tmpl
		}
	}
	return "unknown"
}
