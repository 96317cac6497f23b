package model

// Method names how a derived quantity was obtained.
type Method string

const (
	MethodDirect        Method = "direct"
	MethodLayers        Method = "layers"
	MethodRoofBandwidth Method = "roof_bandwidth"
	MethodWallWorstCase Method = "wall_worst_case"
)

// Scenario is one point of a bounded-uncertainty evaluation: the assumed
// wood fraction and the U-value it yields.
type Scenario struct {
	Fraction float64 `json:"fraction"`
	UValue   float64 `json:"u_value"`
}

// DerivedFacts is a computed physical quantity together with its method
// and the evidence consumed, never a bare number.
type DerivedFacts struct {
	MeasureID string `json:"measure_id"`
	Method    Method `json:"method"`

	// UValue is the single derived value for direct/layers computations.
	// Nil when the inputs were insufficient or when the method produced a
	// scenario set instead.
	UValue *float64 `json:"u_value,omitempty"`
	// UpperBound marks UValue as a guaranteed-valid worst-case bound, not
	// the true value (wall worst case with unknown existing construction).
	UpperBound bool `json:"upper_bound,omitempty"`

	Scenarios []Scenario `json:"scenarios,omitempty"`

	Inputs    []Evidence `json:"inputs_used,omitempty"`
	Questions []string   `json:"questions,omitempty"`
	// Incomplete explains why no value could be derived.
	Incomplete string `json:"incomplete,omitempty"`
}
