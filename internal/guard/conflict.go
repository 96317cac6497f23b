package guard

import (
	"github.com/foerderwerk/rulecore/internal/compiler"
	"github.com/foerderwerk/rulecore/internal/model"
)

// ConflictGuard fails when priority resolution left two rules of equal
// priority and equal scope both claiming to be the rule of record.
type ConflictGuard struct{}

func (ConflictGuard) Name() string { return "conflict" }

func (g ConflictGuard) Check(res *compiler.Result) model.GuardReport {
	report := model.GuardReport{Name: g.Name(), Passed: len(res.Conflicts) == 0}
	for _, c := range res.Conflicts {
		report.Violations = append(report.Violations, c.String())
	}
	return report
}
