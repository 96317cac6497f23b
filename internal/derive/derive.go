// Package derive computes thermal transmittance (U-values) from offer
// facts. The engine never guesses: a missing or unbound input aborts the
// computation of that field, and bounded uncertainty is handled by
// evaluating a small conservative scenario set instead of picking a value.
package derive

import (
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/foerderwerk/rulecore/internal/model"
)

// Surface resistances per DIN EN ISO 6946 for walls/roofs against outside air.
const (
	DefaultRsi = 0.13
	DefaultRse = 0.04
)

// DefaultRoofFractions is the conservative rafter-fraction scenario set
// for rafter-and-insulation roofs with unknown wood share.
var DefaultRoofFractions = []float64{0.07, 0.10, 0.15}

// Params holds the physical constants and scenario configuration.
type Params struct {
	Rsi           float64
	Rse           float64
	RoofFractions []float64
}

// DefaultParams returns the standard parameter set.
func DefaultParams() Params {
	return Params{
		Rsi:           DefaultRsi,
		Rse:           DefaultRse,
		RoofFractions: append([]float64(nil), DefaultRoofFractions...),
	}
}

// LayerResistance returns Σ(d_i / λ_i) over the declared layers plus the
// consumed evidence. Every thickness and conductivity must individually
// carry evidence and be physically positive; otherwise the computation
// aborts with ErrMissingEvidence instead of producing a partial result.
func LayerResistance(layers []model.Layer) (float64, []model.Evidence, error) {
	if len(layers) == 0 {
		return 0, nil, eris.Wrap(model.ErrMissingEvidence, "derive: no layers declared")
	}
	var resistance float64
	var used []model.Evidence
	for i, layer := range layers {
		if !layer.Thickness.Bound() {
			return 0, nil, eris.Wrapf(model.ErrMissingEvidence, "derive: layer %d thickness unbound", i)
		}
		if !layer.Lambda.Bound() {
			return 0, nil, eris.Wrapf(model.ErrMissingEvidence, "derive: layer %d lambda unbound", i)
		}
		d, lambda := layer.Thickness.Value, layer.Lambda.Value
		if d <= 0 || lambda <= 0 {
			return 0, nil, eris.Wrapf(model.ErrMissingEvidence, "derive: layer %d has non-positive inputs", i)
		}
		resistance += d / lambda
		used = append(used, layer.Thickness.Evidence...)
		used = append(used, layer.Lambda.Evidence...)
	}
	return resistance, used, nil
}

// UValueFromLayers computes U = 1 / (R_si + Σ(d_i/λ_i) + R_se).
func UValueFromLayers(layers []model.Layer, p Params) (float64, []model.Evidence, error) {
	r, used, err := LayerResistance(layers)
	if err != nil {
		return 0, nil, err
	}
	total := p.Rsi + r + p.Rse
	if total <= 0 {
		return 0, nil, eris.Wrap(model.ErrMissingEvidence, "derive: non-positive total resistance")
	}
	return 1.0 / total, used, nil
}

// ForMeasure derives the U-value facts for one measure instance. The
// returned DerivedFacts always records the method attempted; when the
// inputs are insufficient it carries questions instead of a value.
func ForMeasure(m model.MeasureFacts, p Params) model.DerivedFacts {
	switch m.InputMode {
	case model.InputDirectU:
		return deriveDirect(m)
	case model.InputLayers:
		return deriveLayers(m, p)
	default:
		return model.DerivedFacts{
			MeasureID:  m.MeasureID,
			Method:     model.MethodDirect,
			Incomplete: fmt.Sprintf("unknown input mode %q", m.InputMode),
			Questions:  []string{"Declare the input mode: stated U-value or layer construction."},
		}
	}
}

// deriveDirect uses the stated U-value as-is when it carries evidence;
// an unbound stated value is treated as absent, never substituted.
func deriveDirect(m model.MeasureFacts) model.DerivedFacts {
	d := model.DerivedFacts{MeasureID: m.MeasureID, Method: model.MethodDirect}
	if m.DirectU == nil || !m.DirectU.Bound() {
		d.Incomplete = "stated U-value absent or without evidence"
		d.Questions = []string{"Provide the post-renovation U-value with a verifiable source."}
		return d
	}
	u := m.DirectU.Value
	d.UValue = &u
	d.Inputs = m.DirectU.Evidence
	return d
}

func deriveLayers(m model.MeasureFacts, p Params) model.DerivedFacts {
	if len(m.WoodLayers) > 0 && (m.WoodFraction == nil || !m.WoodFraction.Bound()) {
		return RoofBandwidth(m, p)
	}
	if isWall(m.Component) && len(m.ExistingLayers) == 0 {
		return WallWorstCase(m, p)
	}

	d := model.DerivedFacts{MeasureID: m.MeasureID, Method: model.MethodLayers}
	layers := append(append([]model.Layer(nil), m.ExistingLayers...), m.Layers...)
	u, used, err := UValueFromLayers(layers, p)
	if err != nil {
		d.Incomplete = "layer inputs incomplete or without evidence"
		d.Questions = []string{"Provide thickness and conductivity (lambda) with evidence for every layer."}
		return d
	}

	if len(m.WoodLayers) > 0 {
		// Known wood fraction: single weighted computation, no scenarios.
		uWood, woodUsed, werr := UValueFromLayers(m.WoodLayers, p)
		if werr != nil {
			d.Incomplete = "rafter-path layers incomplete or without evidence"
			d.Questions = []string{"Provide the rafter construction layers with evidence."}
			return d
		}
		f := m.WoodFraction.Value
		weighted := f*uWood + (1-f)*u
		d.UValue = &weighted
		d.Inputs = append(append(used, woodUsed...), m.WoodFraction.Evidence...)
		return d
	}

	d.UValue = &u
	d.Inputs = used
	return d
}

func isWall(component string) bool {
	switch component {
	case "wall", "aussenwand", "exterior_wall":
		return true
	}
	return false
}
