package engine

import (
	"strings"

	"github.com/foerderwerk/rulecore/internal/model"
)

// factContext resolves dotted fact paths against one measure instance,
// its case-level facts, and the derived quantities for the measure.
type factContext struct {
	offer   model.OfferFacts
	measure model.MeasureFacts
	derived model.DerivedFacts
}

// get returns the fact at a dotted path. The second return is false when
// the path resolves to nothing; a present-but-unbound critical fact is
// the caller's responsibility to treat as absent.
func (c factContext) get(path string) (model.Fact, bool) {
	head, rest, _ := strings.Cut(path, ".")
	switch head {
	case "building":
		fact, ok := c.offer.Building[rest]
		return fact, ok && !isEmpty(fact.Value)
	case "applicant":
		fact, ok := c.offer.Applicant[rest]
		return fact, ok && !isEmpty(fact.Value)
	case "offer":
		return c.offerField(rest)
	case "derived":
		return c.derivedField(rest)
	}
	return model.Fact{}, false
}

func (c factContext) offerField(name string) (model.Fact, bool) {
	switch name {
	case "component_type":
		if c.measure.Component == "" {
			return model.Fact{}, false
		}
		return model.Fact{Value: c.measure.Component, Evidence: c.measure.Evidence}, true
	case "input_mode":
		if c.measure.InputMode == "" {
			return model.Fact{}, false
		}
		return model.Fact{Value: string(c.measure.InputMode), Evidence: c.measure.Evidence}, true
	case "u_value":
		if c.measure.DirectU == nil {
			return model.Fact{}, false
		}
		return model.Fact{Value: c.measure.DirectU.Value, Evidence: c.measure.DirectU.Evidence}, true
	}
	fact, ok := c.measure.Values[name]
	return fact, ok && !isEmpty(fact.Value)
}

func (c factContext) derivedField(name string) (model.Fact, bool) {
	switch name {
	case "u_value", "u_value_target":
		if c.derived.UValue != nil {
			return model.Fact{Value: *c.derived.UValue, Evidence: c.derived.Inputs}, true
		}
		if len(c.derived.Scenarios) > 0 {
			// A scenario set counts as present for required-field purposes;
			// threshold evaluation handles the bandwidth explicitly.
			return model.Fact{Value: c.derived.Scenarios, Evidence: c.derived.Inputs}, true
		}
		return model.Fact{}, false
	case "method":
		return model.Fact{Value: string(c.derived.Method)}, true
	}
	return model.Fact{}, false
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}

// compareAny applies a condition operator across the loosely-typed values
// offer facts carry. Unsupported combinations compare false, never true.
func compareAny(left any, op string, right any) bool {
	if lf, lok := toFloat(left); lok {
		if rf, rok := toFloat(right); rok {
			switch op {
			case "<=", "<", ">=", ">":
				return numCompare(lf, op, rf)
			case "==":
				return lf == rf
			case "!=":
				return lf != rf
			}
			return false
		}
	}

	switch op {
	case "==":
		return left == right
	case "!=":
		return left != right
	case "contains_any":
		ls, ok := left.(string)
		if !ok {
			return false
		}
		needle := strings.ToLower(ls)
		tokens, ok := right.([]any)
		if !ok {
			return false
		}
		for _, tok := range tokens {
			s, ok := tok.(string)
			if ok && strings.Contains(needle, strings.ToLower(s)) {
				return true
			}
		}
	}
	return false
}

func numCompare(left float64, op string, right float64) bool {
	switch op {
	case "<=":
		return left <= right
	case "<":
		return left < right
	case ">=":
		return left >= right
	case ">":
		return left > right
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}
