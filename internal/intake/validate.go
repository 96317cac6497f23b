// Package intake validates canonical offer facts before they reach the
// evaluation engine. Malformed input is rejected with an explicit error
// list; the engine itself only ever sees structurally sound cases.
package intake

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/foerderwerk/rulecore/internal/model"
)

// ErrInvalidOfferFacts wraps every intake rejection.
var ErrInvalidOfferFacts = eris.New("intake: invalid offer facts")

// Validator performs structural validation of OfferFacts.
type Validator struct {
	v *validator.Validate
}

// New returns a ready Validator.
func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

// Validate checks the offer facts and returns every violation found. The
// returned error wraps ErrInvalidOfferFacts when violations exist.
func (val *Validator) Validate(facts model.OfferFacts) ([]string, error) {
	var violations []string

	if err := val.v.Struct(facts); err != nil {
		var fieldErrs validator.ValidationErrors
		if eris.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				violations = append(violations,
					fmt.Sprintf("%s: failed %q constraint", fe.Namespace(), fe.Tag()))
			}
		} else {
			return nil, eris.Wrap(err, "intake: validate")
		}
	}

	violations = append(violations, checkMeasures(facts)...)

	if len(violations) > 0 {
		return violations, eris.Wrapf(ErrInvalidOfferFacts, "case %s: %d violations", facts.CaseID, len(violations))
	}
	return nil, nil
}

// checkMeasures enforces the cross-field rules struct tags cannot express.
func checkMeasures(facts model.OfferFacts) []string {
	var violations []string
	for i, m := range facts.Measures {
		prefix := fmt.Sprintf("measures[%d]", i)

		switch m.InputMode {
		case model.InputLayers:
			if len(m.Layers) == 0 {
				violations = append(violations, prefix+": input_mode is layers but no layers declared")
			}
		case model.InputDirectU:
			if m.DirectU == nil {
				violations = append(violations, prefix+": input_mode is direct_u but no u_value declared")
			}
		}

		for j, item := range m.LineItems {
			if item.Amount < 0 {
				violations = append(violations,
					fmt.Sprintf("%s.line_items[%d]: negative amount", prefix, j))
			}
		}

		if m.WoodFraction != nil {
			f := m.WoodFraction.Value
			if f <= 0 || f >= 1 {
				violations = append(violations, prefix+": wood_fraction outside (0, 1)")
			}
		}
	}
	return violations
}
