package repo

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
)

// MemoryStore is an in-memory Store implementation used in tests and for
// local development without a database
type MemoryStore struct {
	mu       sync.RWMutex
	rules    map[uuid.UUID]domain.PricingRule
	items    map[uuid.UUID]domain.ItemPricing
	defaults map[uuid.UUID]domain.BusinessDefaults
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rules:    make(map[uuid.UUID]domain.PricingRule),
		items:    make(map[uuid.UUID]domain.ItemPricing),
		defaults: make(map[uuid.UUID]domain.BusinessDefaults),
	}
}

// Rules returns the rule repository
func (s *MemoryStore) Rules() RuleRepository { return (*memoryRules)(s) }

// Items returns the item repository
func (s *MemoryStore) Items() ItemRepository { return (*memoryItems)(s) }

// Defaults returns the defaults repository
func (s *MemoryStore) Defaults() DefaultsRepository { return (*memoryDefaults)(s) }

// Close is a no-op
func (s *MemoryStore) Close() error { return nil }

// SeedItem stores an item's pricing fields
func (s *MemoryStore) SeedItem(item domain.ItemPricing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = item
}

// SeedDefaults stores an organization's business defaults
func (s *MemoryStore) SeedDefaults(orgID uuid.UUID, defaults domain.BusinessDefaults) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults[orgID] = defaults
}

type memoryRules MemoryStore

func (r *memoryRules) GetByID(ctx context.Context, id uuid.UUID) (domain.PricingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rule, ok := r.rules[id]
	if !ok {
		return domain.PricingRule{}, domain.NewNotFoundError("pricing rule", id.String())
	}
	return rule, nil
}

// visible reports whether a rule belongs to the organization or is global
func visible(rule domain.PricingRule, orgID uuid.UUID) bool {
	return rule.OrganizationID == nil || *rule.OrganizationID == orgID
}

func (r *memoryRules) List(ctx context.Context, orgID uuid.UUID) ([]domain.PricingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PricingRule
	for _, rule := range r.rules {
		if visible(rule, orgID) {
			out = append(out, rule)
		}
	}
	sortRules(out)
	return out, nil
}

func (r *memoryRules) ListActive(ctx context.Context, orgID uuid.UUID) ([]domain.PricingRule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.PricingRule
	for _, rule := range r.rules {
		if rule.IsActive && visible(rule, orgID) {
			out = append(out, rule)
		}
	}
	sortRules(out)
	return out, nil
}

// sortRules orders by descending priority then by name, matching the
// ordering the postgres store applies in SQL
func sortRules(rules []domain.PricingRule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].Name < rules[j].Name
	})
}

func (r *memoryRules) Upsert(ctx context.Context, rule domain.PricingRule) (domain.PricingRule, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rule.ID == uuid.Nil {
		rule.ID = uuid.New()
	}
	r.rules[rule.ID] = rule
	return rule, nil
}

func (r *memoryRules) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rules[id]; !ok {
		return domain.NewNotFoundError("pricing rule", id.String())
	}
	delete(r.rules, id)
	return nil
}

type memoryItems MemoryStore

func (r *memoryItems) GetPricing(ctx context.Context, id uuid.UUID) (domain.ItemPricing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return domain.ItemPricing{}, domain.NewNotFoundError("item", id.String())
	}
	return item, nil
}

type memoryDefaults MemoryStore

func (r *memoryDefaults) GetByOrganization(ctx context.Context, orgID uuid.UUID) (*domain.BusinessDefaults, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defaults, ok := r.defaults[orgID]
	if !ok {
		return nil, nil
	}
	return &defaults, nil
}
