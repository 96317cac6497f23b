package engine

import (
	"math"

	"github.com/foerderwerk/rulecore/internal/model"
)

// EvaluateCosts classifies every line item against the measure's cost
// rules and aggregates the eligible total. Cost classification is fully
// independent of the technical verdict: a technical PASS never implies a
// favorable cost classification and vice versa.
//
// Split rules take precedence over the category sets; a line item no rule
// or set covers stays unclassified and is counted as conditional, never
// eligible.
func EvaluateCosts(items []model.LineItem, rules model.CostRules) *model.CostResult {
	eligible := stringSet(rules.EligibleCategories)
	ineligible := stringSet(rules.IneligibleCategories)

	result := &model.CostResult{Items: []model.CostItem{}}
	for _, item := range items {
		class, reason := classify(item, rules, eligible, ineligible)

		switch class {
		case model.CostEligible:
			result.EligibleTotal += item.Amount
		case model.CostIneligible:
			result.IneligibleTotal += item.Amount
		default:
			result.ConditionalTotal += item.Amount
		}

		result.Items = append(result.Items, model.CostItem{
			Description: item.Description,
			Category:    item.Category,
			Amount:      item.Amount,
			Class:       class,
			Reason:      reason,
		})
	}

	result.EligibleTotal = roundCents(result.EligibleTotal)
	result.IneligibleTotal = roundCents(result.IneligibleTotal)
	result.ConditionalTotal = roundCents(result.ConditionalTotal)
	return result
}

func classify(item model.LineItem, rules model.CostRules, eligible, ineligible map[string]bool) (model.CostClass, string) {
	for _, split := range rules.SplitRules {
		if splitMatches(item, split.When) {
			return split.Result, "split rule: " + split.When.Field
		}
	}
	switch {
	case eligible[item.Category]:
		return model.CostEligible, "category " + item.Category
	case ineligible[item.Category]:
		return model.CostIneligible, "category " + item.Category
	}
	return model.CostUnclassified, "no matching cost rule"
}

func splitMatches(item model.LineItem, when model.Condition) bool {
	switch when.Field {
	case "line_item.category":
		return compareAny(item.Category, when.Op, when.Value)
	case "line_item.description":
		return compareAny(item.Description, when.Op, when.Value)
	}
	return false
}

func stringSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
