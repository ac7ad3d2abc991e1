package engine

import (
	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
)

// FindBestRule returns the highest-priority active rule whose predicate
// matches the criteria, or nil when none match. Ties on priority resolve to
// the first rule encountered, so callers that pre-order candidates by
// descending priority then name get a deterministic pick.
func FindBestRule(rules []domain.PricingRule, criteria domain.RuleCriteria) *domain.PricingRule {
	var best *domain.PricingRule
	for i := range rules {
		rule := &rules[i]
		if !rule.IsActive {
			continue
		}
		if !rule.Matches(criteria) {
			continue
		}
		if best == nil || rule.Priority > best.Priority {
			best = rule
		}
	}
	return best
}
