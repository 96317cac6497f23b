package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foerderwerk/rulecore/internal/model"
)

func standardCostRules() model.CostRules {
	return model.CostRules{
		EligibleCategories:   []string{"material", "labor"},
		IneligibleCategories: []string{"maintenance"},
		SplitRules: []model.SplitRule{{
			When: model.Condition{
				Field: "line_item.description",
				Op:    "contains_any",
				Value: []any{"geruest", "scaffold"},
			},
			Result: model.CostEligibleIfNecessary,
		}},
	}
}

func TestEvaluateCosts_Classification(t *testing.T) {
	t.Parallel()

	items := []model.LineItem{
		{Description: "Daemmplatten WLG 035", Category: "material", Amount: 8210.50},
		{Description: "Montage", Category: "labor", Amount: 3000},
		{Description: "Wartung Heizungsanlage", Category: "maintenance", Amount: 450.25},
		{Description: "Sonstiges", Category: "", Amount: 120},
	}

	result := EvaluateCosts(items, standardCostRules())
	require.Len(t, result.Items, 4)

	assert.Equal(t, model.CostEligible, result.Items[0].Class)
	assert.Equal(t, model.CostEligible, result.Items[1].Class)
	assert.Equal(t, model.CostIneligible, result.Items[2].Class)
	assert.Equal(t, model.CostUnclassified, result.Items[3].Class)

	assert.Equal(t, 11210.50, result.EligibleTotal)
	assert.Equal(t, 450.25, result.IneligibleTotal)
	assert.Equal(t, 120.0, result.ConditionalTotal, "unclassified is conditional, never eligible")
}

func TestEvaluateCosts_SplitRulePrecedence(t *testing.T) {
	t.Parallel()

	// The scaffolding item carries an eligible category, but the split rule
	// matches first and overrides it.
	items := []model.LineItem{
		{Description: "Geruestbau und Vorhaltung", Category: "labor", Amount: 1500},
	}

	result := EvaluateCosts(items, standardCostRules())
	require.Len(t, result.Items, 1)
	assert.Equal(t, model.CostEligibleIfNecessary, result.Items[0].Class)
	assert.Equal(t, 0.0, result.EligibleTotal)
	assert.Equal(t, 1500.0, result.ConditionalTotal)
}

func TestEvaluateCosts_SplitRuleOnCategory(t *testing.T) {
	t.Parallel()

	rules := model.CostRules{
		SplitRules: []model.SplitRule{{
			When: model.Condition{
				Field: "line_item.category",
				Op:    "==",
				Value: "scaffolding",
			},
			Result: model.CostEligibleIfNecessary,
		}},
	}

	result := EvaluateCosts([]model.LineItem{
		{Description: "Arbeitsbuehne", Category: "scaffolding", Amount: 900},
	}, rules)
	assert.Equal(t, model.CostEligibleIfNecessary, result.Items[0].Class)
}

func TestEvaluateCosts_Rounding(t *testing.T) {
	t.Parallel()

	result := EvaluateCosts([]model.LineItem{
		{Description: "a", Category: "material", Amount: 0.105},
		{Description: "b", Category: "material", Amount: 0.105},
	}, model.CostRules{EligibleCategories: []string{"material"}})
	assert.Equal(t, 0.21, result.EligibleTotal)
}

func TestEvaluateCosts_Empty(t *testing.T) {
	t.Parallel()

	result := EvaluateCosts(nil, standardCostRules())
	assert.Empty(t, result.Items)
	assert.Zero(t, result.EligibleTotal)
}
