// Package guard validates a candidate spec set before it may be staged.
// The three guards run in sequence; any failure blocks promotion and is
// persisted in the build report regardless of outcome.
package guard

import (
	"go.uber.org/zap"

	"github.com/foerderwerk/rulecore/internal/compiler"
	"github.com/foerderwerk/rulecore/internal/model"
)

// Guard is one validator over a compilation result.
type Guard interface {
	Name() string
	Check(res *compiler.Result) model.GuardReport
}

// Pipeline runs the standard guard sequence: evidence, conflict, coverage.
type Pipeline struct {
	guards []Guard
}

// NewPipeline builds the standard pipeline for the given mandatory
// measure categories.
func NewPipeline(requiredCategories []string) *Pipeline {
	return &Pipeline{guards: []Guard{
		EvidenceGuard{},
		ConflictGuard{},
		CoverageGuard{Required: requiredCategories},
	}}
}

// Run executes every guard and returns all reports plus the overall
// verdict. Guards after a failing one still run so the build report shows
// the complete picture.
func (p *Pipeline) Run(res *compiler.Result) ([]model.GuardReport, bool) {
	reports := make([]model.GuardReport, 0, len(p.guards))
	ok := true
	for _, g := range p.guards {
		report := g.Check(res)
		if !report.Passed {
			ok = false
			zap.L().Warn("guard failed",
				zap.String("guard", report.Name),
				zap.Strings("violations", report.Violations))
		}
		reports = append(reports, report)
	}
	return reports, ok
}
