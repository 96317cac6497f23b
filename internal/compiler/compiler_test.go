package compiler

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foerderwerk/rulecore/internal/model"
)

func wallThreshold(reqID string, value float64, priority int, quote string) model.RequirementRecord {
	return model.RequirementRecord{
		ReqID:   reqID,
		ReqType: model.ReqThreshold,
		Scope: model.Scope{
			Module:   "envelope",
			Measure:  "wall_insulation",
			Category: "wall",
		},
		Rule: model.Rule{
			Field: "derived.u_value",
			Op:    "<=",
			Value: value,
			Unit:  "W/(m2K)",
		},
		Evidence:          []model.Evidence{{DocID: "richtlinie.pdf", Page: 12, Quote: quote}},
		SourceID:          "richtlinie",
		SourcePriority:    priority,
		SeverityIfMissing: model.StatusClarify,
	}
}

func TestCompile_SingleThreshold(t *testing.T) {
	t.Parallel()

	res, err := Compile([]model.RequirementRecord{
		wallThreshold("REQ-001", 0.2, 100, "U-Wert maximal 0,20 W/(m²K)"),
	})
	require.NoError(t, err)
	require.Len(t, res.Specs, 1)

	spec := res.Specs[0]
	assert.Equal(t, "wall_insulation", spec.MeasureID)
	assert.Equal(t, "envelope", spec.Module)
	assert.Equal(t, "wall", spec.Category)
	require.Len(t, spec.Technical, 1)
	assert.Equal(t, 0.2, spec.Technical[0].Condition.Value)
	assert.Equal(t, "REQ-001", spec.Technical[0].ReqID)
	assert.Equal(t, []string{"REQ-001"}, spec.CompiledFrom)
	assert.Empty(t, spec.InvalidThresholds)
	assert.Empty(t, res.Conflicts)
	assert.NotEmpty(t, res.SourceHash)

	// Base required fields are always present.
	require.Len(t, spec.RequiredFields, 2)
	assert.Equal(t, "offer.component_type", spec.RequiredFields[0].Path)
	assert.Equal(t, model.StatusAbort, spec.RequiredFields[0].SeverityIfMissing)
}

func TestCompile_EligibilityConditionRequiresEvidence(t *testing.T) {
	t.Parallel()

	res, err := Compile([]model.RequirementRecord{{
		ReqID:   "REQ-EL1",
		ReqType: model.ReqEligibility,
		Scope:   model.Scope{Module: "envelope", Measure: "wall_insulation", Category: "wall"},
		Rule: model.Rule{
			Field: "building.age_years",
			Op:    ">=",
			Value: 5.0,
		},
		SourceID:          "richtlinie",
		SourcePriority:    100,
		SeverityIfMissing: model.StatusClarify,
	}})
	require.NoError(t, err)
	require.Len(t, res.Specs, 1)

	require.Len(t, res.Specs[0].Eligibility, 1)
	cond := res.Specs[0].Eligibility[0]
	assert.Equal(t, "building.age_years", cond.Field)
	assert.Equal(t, 5.0, cond.Value)
	assert.True(t, cond.EvidenceRequired, "an unevidenced fact must not satisfy eligibility")
}

func TestCompile_Deterministic(t *testing.T) {
	t.Parallel()

	records := []model.RequirementRecord{
		wallThreshold("REQ-002", 0.24, 80, "hoechstens 0,24"),
		wallThreshold("REQ-001", 0.2, 100, "maximal 0,20"),
		{
			ReqID:   "REQ-003",
			ReqType: model.ReqDocumentation,
			Scope:   model.Scope{Module: "envelope", Measure: "wall_insulation", Category: "wall"},
			Rule:    model.Rule{Doc: "fachunternehmererklaerung"},
		},
	}
	reversed := []model.RequirementRecord{records[2], records[0], records[1]}

	first, err := Compile(records)
	require.NoError(t, err)
	second, err := Compile(reversed)
	require.NoError(t, err)

	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)
	secondJSON, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, firstJSON, secondJSON, "identical inputs must compile to identical bytes")
	assert.Equal(t, first.SourceHash, second.SourceHash)
}

func TestCompile_PriorityResolution(t *testing.T) {
	t.Parallel()

	// Same field, op, and sub-scope from three sources: the highest priority
	// wins and every loser is recorded with the winner's id.
	res, err := Compile([]model.RequirementRecord{
		wallThreshold("REQ-LAW", 0.24, 100, "0,24 W/(m²K)"),
		wallThreshold("REQ-FAQ", 0.2, 80, "0,20 W/(m²K)"),
		wallThreshold("REQ-TAB", 0.22, 60, "0,22 W/(m²K)"),
	})
	require.NoError(t, err)
	require.Len(t, res.Specs, 1)
	assert.Empty(t, res.Conflicts)

	spec := res.Specs[0]
	require.Len(t, spec.Technical, 1)
	assert.Equal(t, 0.24, spec.Technical[0].Condition.Value)
	assert.Equal(t, "REQ-LAW", spec.Technical[0].ReqID)

	require.Len(t, spec.Superseded, 2)
	for _, s := range spec.Superseded {
		assert.Equal(t, "REQ-LAW", s.WinnerReqID)
	}
}

func TestCompile_EqualPriorityConflictFailsClosed(t *testing.T) {
	t.Parallel()

	res, err := Compile([]model.RequirementRecord{
		wallThreshold("REQ-A", 0.2, 100, "0,20"),
		wallThreshold("REQ-B", 0.24, 100, "0,24"),
	})
	require.NoError(t, err)

	require.Len(t, res.Conflicts, 1)
	conflict := res.Conflicts[0]
	assert.ElementsMatch(t, []string{"REQ-A", "REQ-B"}, conflict.ReqIDs)
	assert.Equal(t, "derived.u_value", conflict.Field)

	// Neither value enters the spec; no arbitrary pick.
	require.Len(t, res.Specs, 1)
	assert.Empty(t, res.Specs[0].Technical)
}

func TestCompile_EqualPriorityDuplicateDedupes(t *testing.T) {
	t.Parallel()

	res, err := Compile([]model.RequirementRecord{
		wallThreshold("REQ-B", 0.2, 100, "0,20"),
		wallThreshold("REQ-A", 0.2, 100, "0,20"),
	})
	require.NoError(t, err)
	assert.Empty(t, res.Conflicts)

	spec := res.Specs[0]
	require.Len(t, spec.Technical, 1)
	assert.Equal(t, "REQ-A", spec.Technical[0].ReqID, "tie on identical values resolves to the lowest req_id")
}

func TestCompile_TokenGuardRejectsUnsupportedThreshold(t *testing.T) {
	t.Parallel()

	// The quote contains 0.24, not the claimed 0.20. The threshold must not
	// compile; a marker stays on the spec instead.
	res, err := Compile([]model.RequirementRecord{
		wallThreshold("REQ-BAD", 0.2, 100, "der Wert liegt unter 0,24"),
	})
	require.NoError(t, err)
	require.Len(t, res.Specs, 1)

	spec := res.Specs[0]
	assert.Empty(t, spec.Technical)
	require.Len(t, spec.InvalidThresholds, 1)
	assert.Equal(t, "REQ-BAD", spec.InvalidThresholds[0].ReqID)
	assert.Equal(t, "0.2", spec.InvalidThresholds[0].Token)
	assert.False(t, spec.InvalidThresholds[0].Mandatory)
	assert.Equal(t, 1, res.InvalidThresholds)
}

func TestCompile_MandatoryInvalidThreshold(t *testing.T) {
	t.Parallel()

	rec := wallThreshold("REQ-BAD", 0.2, 100, "kein Zahlenwert")
	rec.SeverityIfMissing = model.StatusAbort

	res, err := Compile([]model.RequirementRecord{rec})
	require.NoError(t, err)
	require.Len(t, res.Specs[0].InvalidThresholds, 1)
	assert.True(t, res.Specs[0].InvalidThresholds[0].Mandatory)
}

func TestCompile_CostRules(t *testing.T) {
	t.Parallel()

	recs := []model.RequirementRecord{
		{
			ReqID:   "REQ-C1",
			ReqType: model.ReqCostRule,
			Scope:   model.Scope{Module: "envelope", Measure: "wall_insulation", Category: "wall"},
			Rule: model.Rule{
				Field:      "line_item.category",
				Op:         "==",
				Result:     "ELIGIBLE",
				Categories: []string{"material", "labor"},
			},
		},
		{
			ReqID:   "REQ-C2",
			ReqType: model.ReqCostRule,
			Scope:   model.Scope{Module: "envelope", Measure: "wall_insulation", Category: "wall"},
			Rule: model.Rule{
				Field:      "line_item.category",
				Op:         "==",
				Result:     "INELIGIBLE",
				Categories: []string{"maintenance"},
			},
		},
		{
			ReqID:   "REQ-C3",
			ReqType: model.ReqCostRule,
			Scope:   model.Scope{Module: "envelope", Measure: "wall_insulation", Category: "wall", SubScope: "scaffolding"},
			Rule: model.Rule{
				Field:  "line_item.description",
				Op:     "contains_any",
				Value:  []any{"geruest", "scaffold"},
				Result: "ELIGIBLE_IF_NECESSARY",
			},
		},
	}

	res, err := Compile(recs)
	require.NoError(t, err)
	spec := res.Specs[0]

	assert.Equal(t, []string{"labor", "material"}, spec.CostRules.EligibleCategories)
	assert.Equal(t, []string{"maintenance"}, spec.CostRules.IneligibleCategories)
	require.Len(t, spec.CostRules.SplitRules, 1)
	assert.Equal(t, model.CostEligibleIfNecessary, spec.CostRules.SplitRules[0].Result)
	assert.Equal(t, "line_item.description", spec.CostRules.SplitRules[0].When.Field)
}

func TestCompile_RecordWithoutMeasureSkipped(t *testing.T) {
	t.Parallel()

	rec := wallThreshold("REQ-001", 0.2, 100, "0,20")
	rec.Scope.Measure = ""

	res, err := Compile([]model.RequirementRecord{rec})
	require.NoError(t, err)
	assert.Empty(t, res.Specs)
}

func TestCompile_MeasuresSortedByID(t *testing.T) {
	t.Parallel()

	roof := wallThreshold("REQ-R", 0.14, 100, "0,14")
	roof.Scope.Measure = "roof_insulation"
	roof.Scope.Category = "roof_ceiling"

	res, err := Compile([]model.RequirementRecord{
		wallThreshold("REQ-W", 0.2, 100, "0,20"),
		roof,
	})
	require.NoError(t, err)
	require.Len(t, res.Specs, 2)
	assert.Equal(t, "roof_insulation", res.Specs[0].MeasureID)
	assert.Equal(t, "wall_insulation", res.Specs[1].MeasureID)
}
