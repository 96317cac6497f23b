package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus_Stricter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Status
		want Status
	}{
		{"pass keeps fail", StatusPass, StatusFail, StatusFail},
		{"fail keeps clarify", StatusFail, StatusClarify, StatusClarify},
		{"clarify keeps abort", StatusClarify, StatusAbort, StatusAbort},
		{"order independent", StatusAbort, StatusPass, StatusAbort},
		{"same", StatusClarify, StatusClarify, StatusClarify},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.a.Stricter(tt.b))
			assert.Equal(t, tt.want, tt.b.Stricter(tt.a))
		})
	}
}

func TestStatus_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	for _, s := range []Status{StatusPass, StatusFail, StatusClarify, StatusAbort} {
		raw, err := json.Marshal(s)
		require.NoError(t, err)

		var back Status
		require.NoError(t, json.Unmarshal(raw, &back))
		assert.Equal(t, s, back)
	}

	raw, err := json.Marshal(StatusClarify)
	require.NoError(t, err)
	assert.Equal(t, `"CLARIFY"`, string(raw))

	var s Status
	require.Error(t, json.Unmarshal([]byte(`"MAYBE"`), &s))
}

func TestCostClass_JSON(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(CostEligibleIfNecessary)
	require.NoError(t, err)
	assert.Equal(t, `"ELIGIBLE_IF_NECESSARY"`, string(raw))

	var c CostClass
	require.NoError(t, json.Unmarshal([]byte(`"INELIGIBLE"`), &c))
	assert.Equal(t, CostIneligible, c)
}

func TestBoundValue(t *testing.T) {
	t.Parallel()

	unbound := BoundValue[float64]{Value: 0.2}
	assert.False(t, unbound.Bound())

	emptyEvidence := Bind(0.2, Evidence{})
	assert.False(t, emptyEvidence.Bound(), "evidence without doc or quote does not bind")

	bound := Bind(0.2, Evidence{DocID: "angebot.pdf", Page: 3, Quote: "0,20"})
	assert.True(t, bound.Bound())
}

func TestRequirementRecord_ContentHash(t *testing.T) {
	t.Parallel()

	rec := RequirementRecord{
		ReqID:   "REQ-001",
		ReqType: ReqThreshold,
		Scope:   Scope{Module: "envelope", Measure: "wall_insulation", Category: "wall"},
		Rule:    Rule{Field: "derived.u_value", Op: "<=", Value: 0.2},
	}

	first := rec.ContentHash()
	assert.Equal(t, first, rec.ContentHash(), "hash is stable")

	changed := rec
	changed.Rule.Value = 0.24
	assert.NotEqual(t, first, changed.ContentHash())
}

func TestBundle_SpecLookup(t *testing.T) {
	t.Parallel()

	b := &Bundle{Specs: []MeasureSpec{
		{MeasureID: "floor_insulation"},
		{MeasureID: "roof_insulation"},
		{MeasureID: "wall_insulation"},
	}}

	require.NotNil(t, b.Spec("roof_insulation"))
	assert.Equal(t, "roof_insulation", b.Spec("roof_insulation").MeasureID)
	assert.Nil(t, b.Spec("heat_pump"))

	var nilBundle *Bundle
	assert.Nil(t, nilBundle.Spec("wall_insulation"))
}
