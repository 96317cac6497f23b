package derive

import (
	"github.com/foerderwerk/rulecore/internal/model"
)

// WallWorstCase handles walls where only the new insulation is known and
// the existing construction is not. The existing wall's resistance is set
// to zero, the physically worst case, so the computed U-value is a
// guaranteed upper bound: the true value can only be better.
func WallWorstCase(m model.MeasureFacts, p Params) model.DerivedFacts {
	d := model.DerivedFacts{
		MeasureID:  m.MeasureID,
		Method:     model.MethodWallWorstCase,
		UpperBound: true,
	}

	u, used, err := UValueFromLayers(m.Layers, p)
	if err != nil {
		d.UpperBound = false
		d.Incomplete = "new insulation layers incomplete or without evidence"
		d.Questions = []string{
			"Provide either the post-renovation U-value or insulation thickness and material (lambda) with evidence.",
		}
		return d
	}
	d.UValue = &u
	d.Inputs = used
	d.Questions = []string{
		"Existing wall construction (material and thickness) would allow an exact determination.",
	}
	return d
}
