package model

import (
	"encoding/json"

	"github.com/rotisserie/eris"
)

// Status is the per-measure technical verdict. Variants are ordered by
// strictness: combining two statuses always keeps the stricter one, so a
// missing case can never default to an optimistic answer.
type Status int

const (
	StatusPass Status = iota
	StatusFail
	StatusClarify
	StatusAbort
)

var statusNames = map[Status]string{
	StatusPass:    "PASS",
	StatusFail:    "FAIL",
	StatusClarify: "CLARIFY",
	StatusAbort:   "ABORT",
}

var statusValues = map[string]Status{
	"PASS":    StatusPass,
	"FAIL":    StatusFail,
	"CLARIFY": StatusClarify,
	"ABORT":   StatusAbort,
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "ABORT"
}

// Stricter returns the more restrictive of the two statuses.
func (s Status) Stricter(other Status) Status {
	if other > s {
		return other
	}
	return s
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: unmarshal status")
	}
	v, ok := statusValues[raw]
	if !ok {
		return eris.Errorf("model: unknown status %q", raw)
	}
	*s = v
	return nil
}

// CostClass classifies a single cost line item independently of the
// technical verdict.
type CostClass int

const (
	CostEligible CostClass = iota
	CostIneligible
	CostEligibleIfNecessary
	CostUnclassified
)

var costClassNames = map[CostClass]string{
	CostEligible:            "ELIGIBLE",
	CostIneligible:          "INELIGIBLE",
	CostEligibleIfNecessary: "ELIGIBLE_IF_NECESSARY",
	CostUnclassified:        "UNCLASSIFIED",
}

var costClassValues = map[string]CostClass{
	"ELIGIBLE":              CostEligible,
	"INELIGIBLE":            CostIneligible,
	"ELIGIBLE_IF_NECESSARY": CostEligibleIfNecessary,
	"UNCLASSIFIED":          CostUnclassified,
}

func (c CostClass) String() string {
	if name, ok := costClassNames[c]; ok {
		return name
	}
	return "UNCLASSIFIED"
}

func (c CostClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

func (c *CostClass) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "model: unmarshal cost class")
	}
	v, ok := costClassValues[raw]
	if !ok {
		return eris.Errorf("model: unknown cost class %q", raw)
	}
	*c = v
	return nil
}
