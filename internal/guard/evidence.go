package guard

import (
	"fmt"

	"github.com/foerderwerk/rulecore/internal/compiler"
	"github.com/foerderwerk/rulecore/internal/model"
)

// EvidenceGuard fails the build when any spec carries an unresolved
// invalid-threshold marker for a mandatory field. Non-mandatory markers
// are reported but do not block: the affected measure degrades to CLARIFY
// at evaluation time instead.
type EvidenceGuard struct{}

func (EvidenceGuard) Name() string { return "evidence" }

func (g EvidenceGuard) Check(res *compiler.Result) model.GuardReport {
	report := model.GuardReport{Name: g.Name(), Passed: true}
	for _, spec := range res.Specs {
		for _, inv := range spec.InvalidThresholds {
			violation := fmt.Sprintf("%s: %s (%s) token=%q: %s",
				spec.MeasureID, inv.ReqID, inv.Field, inv.Token, inv.Reason)
			if inv.Mandatory {
				report.Passed = false
				report.Violations = append(report.Violations, violation)
			}
		}
	}
	return report
}
