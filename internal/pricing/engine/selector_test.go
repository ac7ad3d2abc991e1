package engine

import (
	"testing"

	"github.com/Johnkennabii/velvena-pricing/internal/pricing/domain"
)

func intPtr(v int) *int { return &v }

func TestFindBestRule_HighestPriorityWins(t *testing.T) {
	low := domain.PricingRule{Name: "low", Priority: 5, IsActive: true}
	high := domain.PricingRule{Name: "high", Priority: 10, IsActive: true}

	criteria := domain.RuleCriteria{DurationDays: 3}

	if got := FindBestRule([]domain.PricingRule{low, high}, criteria); got == nil || got.Name != "high" {
		t.Fatalf("expected high-priority rule, got %+v", got)
	}
	// Input order must not matter
	if got := FindBestRule([]domain.PricingRule{high, low}, criteria); got == nil || got.Name != "high" {
		t.Fatalf("expected high-priority rule regardless of order, got %+v", got)
	}
}

func TestFindBestRule_TieBreakIsFirstEncountered(t *testing.T) {
	first := domain.PricingRule{Name: "alpha", Priority: 10, IsActive: true}
	second := domain.PricingRule{Name: "beta", Priority: 10, IsActive: true}

	got := FindBestRule([]domain.PricingRule{first, second}, domain.RuleCriteria{DurationDays: 1})
	if got == nil || got.Name != "alpha" {
		t.Fatalf("expected first rule on priority tie, got %+v", got)
	}
}

func TestFindBestRule_SkipsInactive(t *testing.T) {
	inactive := domain.PricingRule{Name: "off", Priority: 100, IsActive: false}
	active := domain.PricingRule{Name: "on", Priority: 1, IsActive: true}

	got := FindBestRule([]domain.PricingRule{inactive, active}, domain.RuleCriteria{DurationDays: 1})
	if got == nil || got.Name != "on" {
		t.Fatalf("inactive rules must never be selected, got %+v", got)
	}
}

func TestFindBestRule_ItemTypePredicate(t *testing.T) {
	rule := domain.PricingRule{
		Name:      "dresses-only",
		Priority:  10,
		IsActive:  true,
		AppliesTo: &domain.AppliesTo{ItemTypes: []string{"evening_dress", "cocktail_dress"}},
	}
	rules := []domain.PricingRule{rule}

	if got := FindBestRule(rules, domain.RuleCriteria{ItemType: "cocktail_dress", DurationDays: 2}); got == nil {
		t.Error("expected match for listed item type")
	}
	if got := FindBestRule(rules, domain.RuleCriteria{ItemType: "Cocktail_Dress", DurationDays: 2}); got != nil {
		t.Error("item type match is case-sensitive")
	}
	// Criteria without an item type cannot satisfy a type-restricted rule
	if got := FindBestRule(rules, domain.RuleCriteria{DurationDays: 2}); got != nil {
		t.Error("missing item type must not match a type-restricted rule")
	}
}

func TestFindBestRule_DurationBounds(t *testing.T) {
	rule := domain.PricingRule{
		Name:      "week-plus",
		Priority:  1,
		IsActive:  true,
		AppliesTo: &domain.AppliesTo{MinDurationDays: intPtr(7), MaxDurationDays: intPtr(30)},
	}
	rules := []domain.PricingRule{rule}

	if got := FindBestRule(rules, domain.RuleCriteria{DurationDays: 6}); got != nil {
		t.Error("duration below min must not match")
	}
	if got := FindBestRule(rules, domain.RuleCriteria{DurationDays: 7}); got == nil {
		t.Error("min bound is inclusive")
	}
	if got := FindBestRule(rules, domain.RuleCriteria{DurationDays: 30}); got == nil {
		t.Error("max bound is inclusive")
	}
	if got := FindBestRule(rules, domain.RuleCriteria{DurationDays: 31}); got != nil {
		t.Error("duration above max must not match")
	}
}

func TestFindBestRule_CatchAll(t *testing.T) {
	catchAll := domain.PricingRule{Name: "default", Priority: 0, IsActive: true}

	got := FindBestRule([]domain.PricingRule{catchAll}, domain.RuleCriteria{ItemType: "anything", DurationDays: 99})
	if got == nil || got.Name != "default" {
		t.Fatal("a rule without applies_to must match any criteria")
	}
}

func TestFindBestRule_NoMatch(t *testing.T) {
	rule := domain.PricingRule{
		Name:      "narrow",
		Priority:  10,
		IsActive:  true,
		AppliesTo: &domain.AppliesTo{ItemTypes: []string{"wedding_dress"}},
	}

	if got := FindBestRule([]domain.PricingRule{rule}, domain.RuleCriteria{ItemType: "suit", DurationDays: 2}); got != nil {
		t.Fatalf("expected nil when nothing matches, got %+v", got)
	}
	if got := FindBestRule(nil, domain.RuleCriteria{DurationDays: 2}); got != nil {
		t.Fatal("expected nil for empty rule set")
	}
}
