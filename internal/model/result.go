package model

import "time"

// CostItem is the classification of one line item.
type CostItem struct {
	Description string    `json:"description"`
	Category    string    `json:"category,omitempty"`
	Amount      float64   `json:"amount"`
	Class       CostClass `json:"classification"`
	Reason      string    `json:"reason,omitempty"`
}

// CostResult is the independent cost-eligibility verdict for one measure.
// It is reported alongside the technical status, never merged with it.
type CostResult struct {
	Items            []CostItem `json:"items"`
	EligibleTotal    float64    `json:"eligible_total"`
	IneligibleTotal  float64    `json:"ineligible_total"`
	ConditionalTotal float64    `json:"conditional_total"`
}

// MeasureResult is the per-measure technical verdict.
type MeasureResult struct {
	MeasureID    string        `json:"measure_id"`
	Status       Status        `json:"status"`
	Reasons      []string      `json:"reasons"`
	UsedEvidence []Evidence    `json:"used_evidence"`
	Questions    []string      `json:"questions"`
	Derived      *DerivedFacts `json:"derived,omitempty"`
	Cost         *CostResult   `json:"cost,omitempty"`
}

// CaseResult is the complete, immutable outcome of one evaluation run.
// Re-evaluation produces a new CaseResult with a new id and timestamp;
// prior results are never mutated.
type CaseResult struct {
	ID          string          `json:"id"`
	CaseID      string          `json:"case_id"`
	BundleID    string          `json:"bundle_id"`
	GeneratedAt time.Time       `json:"generated_at"`
	Results     []MeasureResult `json:"results"`
}
