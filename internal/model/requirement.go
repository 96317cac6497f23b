package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// ReqType classifies an atomic requirement record.
type ReqType string

const (
	ReqThreshold     ReqType = "threshold"
	ReqExclusion     ReqType = "exclusion"
	ReqDocumentation ReqType = "documentation"
	ReqCostRule      ReqType = "cost_rule"
	ReqEligibility   ReqType = "eligibility_condition"
)

// Scope identifies what a requirement applies to: a measure within a
// module, optionally narrowed to a sub-scope (construction case).
type Scope struct {
	Module   string `json:"module"`
	Measure  string `json:"measure"`
	Category string `json:"category"`
	SubScope string `json:"sub_scope,omitempty"`
}

// Rule is the structured condition a requirement record states. Value is
// loosely typed: thresholds carry numbers, eligibility conditions may
// carry booleans or strings.
type Rule struct {
	Field string `json:"field"`
	Op    string `json:"op"`
	Value any    `json:"value,omitempty"`
	Unit  string `json:"unit,omitempty"`
	// Categories holds cost-category assignments for cost_rule records.
	Categories []string `json:"categories,omitempty"`
	// Result names the cost class or exclusion outcome where applicable.
	Result string `json:"result,omitempty"`
	// Doc names the proof document for documentation records.
	Doc string `json:"doc,omitempty"`
}

// NumericValue returns the rule value as a float64 when it is numeric.
func (r Rule) NumericValue() (float64, bool) {
	switch v := r.Value.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// RequirementRecord is one atomic, evidence-bound legal or technical
// statement produced by upstream extraction. Records are immutable; the
// content hash identifies a record for change detection.
type RequirementRecord struct {
	ReqID             string     `json:"req_id"`
	ReqType           ReqType    `json:"req_type"`
	Scope             Scope      `json:"scope"`
	Rule              Rule       `json:"rule"`
	Evidence          []Evidence `json:"evidence"`
	SourceID          string     `json:"source_id"`
	SourcePriority    int        `json:"source_priority"`
	SeverityIfMissing Status     `json:"severity_if_missing"`
}

// ContentHash returns the sha256 of the record's canonical JSON encoding.
func (r RequirementRecord) ContentHash() string {
	payload, err := json.Marshal(r)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
