package guard

import (
	"fmt"
	"sort"

	"github.com/foerderwerk/rulecore/internal/compiler"
	"github.com/foerderwerk/rulecore/internal/model"
)

// CoverageGuard fails when a mandatory measure category is not
// represented by at least one valid MeasureSpec. A spec whose every
// threshold was invalidated does not count as covering its category.
type CoverageGuard struct {
	Required []string
}

func (CoverageGuard) Name() string { return "coverage" }

func (g CoverageGuard) Check(res *compiler.Result) model.GuardReport {
	covered := coveredCategories(res)

	report := model.GuardReport{Name: g.Name(), Passed: true}
	for _, category := range g.Required {
		if !covered[category] {
			report.Passed = false
			report.Violations = append(report.Violations,
				fmt.Sprintf("no valid measure spec covers mandatory category %q", category))
		}
	}
	return report
}

// CoverageReport builds the coverage summary persisted with the bundle.
// It applies the same valid-spec filter as Check, so the persisted report
// never claims coverage the guard rejected.
func (g CoverageGuard) CoverageReport(res *compiler.Result) *model.CoverageReport {
	covered := coveredCategories(res)
	rep := &model.CoverageReport{Required: append([]string(nil), g.Required...)}
	for _, category := range g.Required {
		if covered[category] {
			rep.Covered = append(rep.Covered, category)
		} else {
			rep.Missing = append(rep.Missing, category)
		}
	}
	sort.Strings(rep.Covered)
	sort.Strings(rep.Missing)
	return rep
}

// coveredCategories lists the categories represented by at least one spec
// that still carries a usable constraint.
func coveredCategories(res *compiler.Result) map[string]bool {
	covered := make(map[string]bool)
	for _, spec := range res.Specs {
		if spec.Category == "" {
			continue
		}
		if len(spec.Technical) == 0 && len(spec.InvalidThresholds) > 0 {
			continue
		}
		covered[spec.Category] = true
	}
	return covered
}
