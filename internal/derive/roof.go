package derive

import (
	"github.com/foerderwerk/rulecore/internal/model"
)

// RoofBandwidth handles rafter-and-insulation constructions with unknown
// wood fraction f. Instead of guessing f, the U-value is evaluated at a
// small conservative fraction set; the caller decides PASS/FAIL/CLARIFY
// from the full scenario picture.
func RoofBandwidth(m model.MeasureFacts, p Params) model.DerivedFacts {
	d := model.DerivedFacts{MeasureID: m.MeasureID, Method: model.MethodRoofBandwidth}

	uIns, insUsed, err := UValueFromLayers(m.Layers, p)
	if err != nil {
		d.Incomplete = "insulation-path layers incomplete or without evidence"
		d.Questions = []string{"Provide the between-rafter insulation layers (thickness, lambda) with evidence."}
		return d
	}
	uWood, woodUsed, err := UValueFromLayers(m.WoodLayers, p)
	if err != nil {
		d.Incomplete = "rafter-path layers incomplete or without evidence"
		d.Questions = []string{"Provide the rafter dimensions (width, spacing) or a post-renovation U-value statement."}
		return d
	}

	for _, f := range p.RoofFractions {
		d.Scenarios = append(d.Scenarios, model.Scenario{
			Fraction: f,
			UValue:   f*uWood + (1-f)*uIns,
		})
	}
	d.Inputs = append(insUsed, woodUsed...)
	return d
}

// ScenarioOutcome is the tri-state result of comparing every scenario
// against a threshold.
type ScenarioOutcome int

const (
	// ScenarioAllPass: the threshold holds at every conservative fraction,
	// a guaranteed pass regardless of the true wood share.
	ScenarioAllPass ScenarioOutcome = iota
	// ScenarioAllFail: the threshold fails at every fraction.
	ScenarioAllFail
	// ScenarioMixed: the determination depends on the unknown fraction.
	ScenarioMixed
)

// CompareScenarios evaluates every scenario U-value against the threshold
// with the given comparator. Order across scenarios does not matter; the
// outcome combines by logical all/none.
func CompareScenarios(scenarios []model.Scenario, op string, threshold float64) ScenarioOutcome {
	pass, fail := 0, 0
	for _, s := range scenarios {
		if Compare(s.UValue, op, threshold) {
			pass++
		} else {
			fail++
		}
	}
	switch {
	case fail == 0:
		return ScenarioAllPass
	case pass == 0:
		return ScenarioAllFail
	default:
		return ScenarioMixed
	}
}

// Compare applies a comparison operator to two floats.
func Compare(left float64, op string, right float64) bool {
	switch op {
	case "<=":
		return left <= right
	case "<":
		return left < right
	case ">=":
		return left >= right
	case ">":
		return left > right
	case "==":
		return left == right
	case "!=":
		return left != right
	}
	return false
}
