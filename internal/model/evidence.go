package model

import "strings"

// Evidence anchors a value to its provenance: document, page, and the
// verbatim quote the value was taken from. Evidence is never synthesized
// by this core; it arrives attached to upstream records and is carried
// through unchanged.
type Evidence struct {
	DocID string    `json:"doc_id"`
	Page  int       `json:"page"`
	Quote string    `json:"quote"`
	BBox  []float64 `json:"bbox,omitempty"`
}

// Empty reports whether the evidence carries no usable provenance.
func (e Evidence) Empty() bool {
	return e.DocID == "" || strings.TrimSpace(e.Quote) == ""
}

// BoundValue pairs a value with the evidence backing it. A critical field
// whose BoundValue is unbound is indistinguishable from an absent field
// for all downstream logic.
type BoundValue[T any] struct {
	Value    T          `json:"value"`
	Evidence []Evidence `json:"evidence,omitempty"`
}

// Bind attaches evidence to a value.
func Bind[T any](value T, evidence ...Evidence) BoundValue[T] {
	return BoundValue[T]{Value: value, Evidence: evidence}
}

// Bound reports whether at least one non-empty evidence item backs the value.
func (b BoundValue[T]) Bound() bool {
	for _, ev := range b.Evidence {
		if !ev.Empty() {
			return true
		}
	}
	return false
}

// Fact is a loosely-typed bound value used for offer fields addressed by
// dotted path (building.is_existing, offer.area_m2).
type Fact = BoundValue[any]
