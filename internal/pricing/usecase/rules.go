package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/repo"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/cache"
	"github.com/Johnkennabii/velvena-pricing/internal/shared/log"
)

// RuleUseCase provides management operations on pricing rules
type RuleUseCase struct {
	rules repo.RuleRepository
	cache *cache.Cache
}

// NewRuleUseCase creates a new rule use case. Cache may be nil.
func NewRuleUseCase(store repo.Store, c *cache.Cache) *RuleUseCase {
	return &RuleUseCase{rules: store.Rules(), cache: c}
}

// ListRules retrieves all rules visible to an organization
func (uc *RuleUseCase) ListRules(ctx context.Context, orgID uuid.UUID) ([]domain.PricingRule, error) {
	rules, err := uc.rules.List(ctx, orgID)
	if err != nil {
		log.Error(ctx, "Failed to list pricing rules", zap.Error(err))
		return nil, fmt.Errorf("failed to list pricing rules: %w", err)
	}
	return rules, nil
}

// GetRule retrieves a single rule by id
func (uc *RuleUseCase) GetRule(ctx context.Context, id uuid.UUID) (*domain.PricingRule, error) {
	rule, err := uc.rules.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// UpsertRule validates and stores a rule, then invalidates the
// organization's cached rule list
func (uc *RuleUseCase) UpsertRule(ctx context.Context, rule domain.PricingRule) (*domain.PricingRule, error) {
	rule.Name = strings.TrimSpace(rule.Name)
	if rule.Name == "" {
		return nil, domain.NewIncompleteConfigurationError(rule.Strategy, "name")
	}
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	stored, err := uc.rules.Upsert(ctx, rule)
	if err != nil {
		log.Error(ctx, "Failed to upsert pricing rule",
			zap.String("name", rule.Name),
			zap.Error(err))
		return nil, fmt.Errorf("failed to upsert pricing rule: %w", err)
	}

	uc.invalidateRuleCache(ctx, stored.OrganizationID)

	log.Info(ctx, "Pricing rule upserted",
		zap.String("rule_id", stored.ID.String()),
		zap.String("strategy", string(stored.Strategy)),
		zap.Int("priority", stored.Priority))
	return &stored, nil
}

// DeleteRule removes a rule and invalidates the organization's cached
// rule list
func (uc *RuleUseCase) DeleteRule(ctx context.Context, id uuid.UUID) error {
	rule, err := uc.rules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := uc.rules.Delete(ctx, id); err != nil {
		log.Error(ctx, "Failed to delete pricing rule",
			zap.String("rule_id", id.String()),
			zap.Error(err))
		return fmt.Errorf("failed to delete pricing rule: %w", err)
	}

	uc.invalidateRuleCache(ctx, rule.OrganizationID)

	log.Info(ctx, "Pricing rule deleted", zap.String("rule_id", id.String()))
	return nil
}

// invalidateRuleCache drops the cached rule list. Global rules are visible
// to every organization, so their cache entries expire on TTL instead.
func (uc *RuleUseCase) invalidateRuleCache(ctx context.Context, orgID *uuid.UUID) {
	if uc.cache == nil || orgID == nil {
		return
	}
	if err := uc.cache.Delete(ctx, ruleCacheKey(*orgID)); err != nil {
		log.Warn(ctx, "Failed to invalidate rule cache", zap.Error(err))
	}
}
