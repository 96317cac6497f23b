package model

// InputMode declares how a measure's thermal performance is stated.
type InputMode string

const (
	InputDirectU InputMode = "direct_u"
	InputLayers  InputMode = "layers"
)

// Layer is one construction layer: thickness in meters and thermal
// conductivity, each individually evidence-bound.
type Layer struct {
	Name      string              `json:"name,omitempty"`
	Thickness BoundValue[float64] `json:"d_m"`
	Lambda    BoundValue[float64] `json:"lambda"`
}

// LineItem is one cost position of the offer.
type LineItem struct {
	Description string     `json:"description"`
	Category    string     `json:"category,omitempty"`
	Amount      float64    `json:"amount"`
	Currency    string     `json:"currency,omitempty"`
	Evidence    []Evidence `json:"evidence,omitempty"`
}

// MeasureFacts is the canonical per-measure slice of an offer.
type MeasureFacts struct {
	MeasureID string    `json:"measure_id" validate:"required"`
	Component string    `json:"component_type" validate:"required"`
	InputMode InputMode `json:"input_mode" validate:"required,oneof=direct_u layers"`

	// DirectU is the stated post-renovation U-value (direct_u mode).
	DirectU *BoundValue[float64] `json:"u_value,omitempty"`
	// Layers is the declared new construction (layers mode). For walls this
	// is the new insulation; existing-wall layers go to ExistingLayers.
	Layers         []Layer `json:"layers,omitempty"`
	ExistingLayers []Layer `json:"existing_layers,omitempty"`
	// WoodLayers describes the rafter path for rafter-and-insulation roofs.
	WoodLayers []Layer `json:"wood_layers,omitempty"`
	// WoodFraction is the known rafter fraction; nil triggers the
	// conservative scenario set.
	WoodFraction *BoundValue[float64] `json:"wood_fraction,omitempty"`

	Values    map[string]Fact `json:"values,omitempty"`
	LineItems []LineItem      `json:"line_items,omitempty" validate:"dive"`
	Evidence  []Evidence      `json:"evidence,omitempty"`
}

// OfferFacts is the canonical, already-extracted input for one case.
type OfferFacts struct {
	CaseID    string          `json:"case_id" validate:"required"`
	Building  map[string]Fact `json:"building"`
	Applicant map[string]Fact `json:"applicant"`
	Measures  []MeasureFacts  `json:"measures" validate:"required,min=1,dive"`
	Docs      []string        `json:"docs,omitempty"`
}
