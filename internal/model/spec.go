package model

// Condition is a single boolean check against a dotted fact path.
type Condition struct {
	Field             string `json:"field"`
	Op                string `json:"op"`
	Value             any    `json:"value,omitempty"`
	Unit              string `json:"unit,omitempty"`
	EvidenceRequired  bool   `json:"evidence_required"`
	SeverityIfMissing Status `json:"severity_if_missing"`
}

// RequiredField names an offer fact that must be present before a measure
// can be evaluated at all.
type RequiredField struct {
	Path              string `json:"path"`
	EvidenceRequired  bool   `json:"evidence_required"`
	SeverityIfMissing Status `json:"severity_if_missing"`
}

// Threshold is a compiled numeric technical requirement with its audit
// trail: the winning requirement record and the evidence its value was
// verified against.
type Threshold struct {
	Name      string     `json:"name"`
	Condition Condition  `json:"condition"`
	ReqID     string     `json:"req_id"`
	Evidence  []Evidence `json:"evidence"`
}

// Exclusion fails a measure outright when all of its conditions hold.
type Exclusion struct {
	When   []Condition `json:"when_all_of"`
	Reason string      `json:"reason"`
	ReqID  string      `json:"req_id"`
}

// DocumentationRule names a proof document the offer must include.
type DocumentationRule struct {
	Doc               string `json:"doc"`
	SeverityIfMissing Status `json:"severity_if_missing"`
	ReqID             string `json:"req_id"`
}

// SplitRule overrides category classification for matching line items.
type SplitRule struct {
	When   Condition `json:"when"`
	Result CostClass `json:"result"`
}

// CostRules holds the cost classification predicates for one measure.
type CostRules struct {
	EligibleCategories   []string    `json:"eligible_cost_categories"`
	IneligibleCategories []string    `json:"ineligible_cost_categories"`
	SplitRules           []SplitRule `json:"split_rules,omitempty"`
}

// SupersededRule records a requirement discarded during conflict
// resolution together with the record that won.
type SupersededRule struct {
	ReqID       string `json:"req_id"`
	SourceID    string `json:"source_id"`
	WinnerReqID string `json:"winner_req_id"`
}

// InvalidThreshold marks a threshold excluded by the evidence-token guard.
// The marker stays on the spec so the guard pipeline can see it; the
// threshold itself never enters Technical.
type InvalidThreshold struct {
	ReqID     string `json:"req_id"`
	Field     string `json:"field"`
	Token     string `json:"token"`
	Reason    string `json:"reason"`
	Mandatory bool   `json:"mandatory"`
}

// MeasureSpec is the compiled, executable specification for one measure.
// Exactly one spec per measure is active at a time; every threshold in
// Technical has passed the evidence-token guard.
type MeasureSpec struct {
	MeasureID         string              `json:"measure_id"`
	Module            string              `json:"module"`
	Category          string              `json:"category"`
	RequiredFields    []RequiredField     `json:"required_fields"`
	Eligibility       []Condition         `json:"eligibility"`
	Exclusions        []Exclusion         `json:"exclusions,omitempty"`
	Technical         []Threshold         `json:"technical_requirements"`
	Documentation     []DocumentationRule `json:"documentation,omitempty"`
	CostRules         CostRules           `json:"cost_rules"`
	CompiledFrom      []string            `json:"compiled_from"`
	Superseded        []SupersededRule    `json:"superseded,omitempty"`
	InvalidThresholds []InvalidThreshold  `json:"invalid_thresholds,omitempty"`
}
