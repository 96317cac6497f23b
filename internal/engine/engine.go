// Package engine evaluates canonical offer facts against the active
// bundle. Evaluation is a pure in-memory computation: one immutable
// CaseResult per run, per-measure statuses combined by strictness, and no
// missing fact ever producing an optimistic verdict.
package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/foerderwerk/rulecore/internal/derive"
	"github.com/foerderwerk/rulecore/internal/model"
)

// Engine evaluates cases against a bundle snapshot.
type Engine struct {
	params derive.Params
}

// New returns an Engine with the given derivation parameters.
func New(params derive.Params) *Engine {
	return &Engine{params: params}
}

// EvaluateCase produces the complete result for one case against the
// given bundle snapshot. The bundle is read-only for the whole run; a
// promotion completing mid-evaluation does not affect it. A nil bundle
// yields ABORT for every measure.
func (e *Engine) EvaluateCase(bundle *model.Bundle, facts model.OfferFacts) model.CaseResult {
	result := model.CaseResult{
		ID:          uuid.New().String(),
		CaseID:      facts.CaseID,
		GeneratedAt: time.Now().UTC(),
	}
	if bundle != nil {
		result.BundleID = bundle.BundleID
	}

	log := zap.L().With(zap.String("case_id", facts.CaseID))
	for _, measure := range facts.Measures {
		mr := e.evaluateMeasure(bundle, facts, measure)
		log.Info("measure evaluated",
			zap.String("measure_id", mr.MeasureID),
			zap.String("status", mr.Status.String()))
		result.Results = append(result.Results, mr)
	}
	return result
}

func (e *Engine) evaluateMeasure(bundle *model.Bundle, facts model.OfferFacts, m model.MeasureFacts) model.MeasureResult {
	res := model.MeasureResult{
		MeasureID: m.MeasureID,
		Status:    model.StatusPass,
		Reasons:   []string{},
		Questions: []string{},
	}

	spec := bundle.Spec(m.MeasureID)
	if spec == nil {
		res.Status = model.StatusAbort
		res.Reasons = append(res.Reasons, eris.Wrapf(model.ErrNoApplicableSpec, "measure %s", m.MeasureID).Error())
		res.UsedEvidence = m.Evidence
		return res
	}

	derived := derive.ForMeasure(m, e.params)
	res.Derived = &derived
	ctx := factContext{offer: facts, measure: m, derived: derived}

	// Thresholds invalidated at compile time degrade the measure instead of
	// silently weakening it.
	for _, inv := range spec.InvalidThresholds {
		status := model.StatusClarify
		if inv.Mandatory {
			status = model.StatusAbort
		}
		res.Status = res.Status.Stricter(status)
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("technical requirement for %s could not be verified against its source", inv.Field))
	}

	// Required fields: collect every missing one, no short-circuit.
	for _, rf := range spec.RequiredFields {
		fact, ok := ctx.get(rf.Path)
		if !ok || (rf.EvidenceRequired && !fact.Bound()) {
			res.Status = res.Status.Stricter(rf.SeverityIfMissing)
			res.Reasons = append(res.Reasons, "missing required field: "+rf.Path)
			res.Questions = append(res.Questions, "Please supply: "+rf.Path)
		}
	}

	// Exclusions: any fully-true exclusion fails the measure and skips the
	// remaining technical checks. Cost evaluation still runs independently.
	excluded := false
	for _, ex := range spec.Exclusions {
		triggered, unknown := e.checkExclusion(ctx, ex)
		if triggered {
			res.Status = res.Status.Stricter(model.StatusFail)
			reason := ex.Reason
			if reason == "" {
				reason = "exclusion condition met"
			}
			res.Reasons = append(res.Reasons, reason)
			excluded = true
			break
		}
		if unknown != nil {
			res.Status = res.Status.Stricter(unknown.SeverityIfMissing)
			res.Reasons = append(res.Reasons, "exclusion condition unverifiable: "+unknown.Field)
			res.Questions = append(res.Questions, "Please supply: "+unknown.Field)
		}
	}

	if !excluded {
		e.checkEligibility(ctx, spec, &res)
		e.checkThresholds(ctx, spec, derived, &res)
		e.checkDocumentation(facts, spec, &res)
	}

	res.UsedEvidence = collectEvidence(m, derived)
	res.Cost = EvaluateCosts(m.LineItems, spec.CostRules)
	return res
}

// checkExclusion evaluates an exclusion's conditions. It reports whether
// all conditions hold, or the first condition that could not be verified.
func (e *Engine) checkExclusion(ctx factContext, ex model.Exclusion) (bool, *model.Condition) {
	for i := range ex.When {
		cond := ex.When[i]
		fact, ok := ctx.get(cond.Field)
		if !ok || (cond.EvidenceRequired && !fact.Bound()) {
			return false, &cond
		}
		if !compareAny(fact.Value, cond.Op, cond.Value) {
			return false, nil
		}
	}
	return len(ex.When) > 0, nil
}

// checkEligibility requires every condition to hold on bound values. A
// condition referencing an unbound critical field yields CLARIFY, not
// FAIL: the answer is unknown, not negative.
func (e *Engine) checkEligibility(ctx factContext, spec *model.MeasureSpec, res *model.MeasureResult) {
	for _, cond := range spec.Eligibility {
		fact, ok := ctx.get(cond.Field)
		if !ok || (cond.EvidenceRequired && !fact.Bound()) {
			res.Status = res.Status.Stricter(model.StatusClarify)
			res.Reasons = append(res.Reasons, "eligibility condition unverifiable: "+cond.Field)
			res.Questions = append(res.Questions, "Please supply: "+cond.Field)
			continue
		}
		if !compareAny(fact.Value, cond.Op, cond.Value) {
			res.Status = res.Status.Stricter(model.StatusFail)
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("eligibility condition failed: %s %s %v", cond.Field, cond.Op, cond.Value))
		}
	}
}

func (e *Engine) checkThresholds(ctx factContext, spec *model.MeasureSpec, derived model.DerivedFacts, res *model.MeasureResult) {
	for _, th := range spec.Technical {
		threshold, ok := toFloat(th.Condition.Value)
		if !ok {
			// Compiled thresholds are always numeric; a non-numeric one here
			// means corrupted input and must not pass silently.
			res.Status = res.Status.Stricter(model.StatusAbort)
			res.Reasons = append(res.Reasons, "threshold value not numeric: "+th.Condition.Field)
			continue
		}

		if strings.HasPrefix(th.Condition.Field, "derived.") {
			e.checkDerivedThreshold(th, threshold, derived, res)
			continue
		}

		fact, ok := ctx.get(th.Condition.Field)
		if !ok || (th.Condition.EvidenceRequired && !fact.Bound()) {
			res.Status = res.Status.Stricter(th.Condition.SeverityIfMissing)
			res.Reasons = append(res.Reasons, "threshold value unavailable: "+th.Condition.Field)
			res.Questions = append(res.Questions, "Please provide evidence for: "+th.Condition.Field)
			continue
		}
		value, ok := toFloat(fact.Value)
		if !ok || !derive.Compare(value, th.Condition.Op, threshold) {
			res.Status = res.Status.Stricter(model.StatusFail)
			res.Reasons = append(res.Reasons, failReason(th, threshold))
		}
	}
}

// checkDerivedThreshold applies a threshold to the derived U-value,
// honoring the bandwidth and worst-case semantics.
func (e *Engine) checkDerivedThreshold(th model.Threshold, threshold float64, derived model.DerivedFacts, res *model.MeasureResult) {
	switch {
	case len(derived.Scenarios) > 0:
		switch derive.CompareScenarios(derived.Scenarios, th.Condition.Op, threshold) {
		case derive.ScenarioAllPass:
			// Guaranteed pass at every conservative fraction.
		case derive.ScenarioAllFail:
			res.Status = res.Status.Stricter(model.StatusFail)
			res.Reasons = append(res.Reasons, failReason(th, threshold)+" at every wood-fraction scenario")
		case derive.ScenarioMixed:
			res.Status = res.Status.Stricter(model.StatusClarify)
			res.Reasons = append(res.Reasons,
				eris.Wrap(model.ErrAmbiguousScenario, "determination depends on the unknown rafter wood fraction").Error())
			res.Questions = append(res.Questions,
				"Provide the rafter wood fraction (rafter width and spacing) or a post-renovation U-value statement.")
		}

	case derived.UValue != nil && derived.UpperBound:
		if derive.Compare(*derived.UValue, th.Condition.Op, threshold) {
			// Worst case already satisfies the threshold; the true value can
			// only be better.
			res.Reasons = append(res.Reasons,
				fmt.Sprintf("worst-case U=%.3f satisfies %s %v", *derived.UValue, th.Condition.Op, threshold))
			return
		}
		// The true value is unknown and might still pass: never a forced FAIL.
		res.Status = res.Status.Stricter(model.StatusClarify)
		res.Reasons = append(res.Reasons,
			fmt.Sprintf("worst-case U=%.3f does not satisfy %s %v; existing construction unknown", *derived.UValue, th.Condition.Op, threshold))
		res.Questions = append(res.Questions, derived.Questions...)

	case derived.UValue != nil:
		if !derive.Compare(*derived.UValue, th.Condition.Op, threshold) {
			res.Status = res.Status.Stricter(model.StatusFail)
			res.Reasons = append(res.Reasons, failReason(th, threshold))
		}

	default:
		res.Status = res.Status.Stricter(th.Condition.SeverityIfMissing)
		if derived.Incomplete != "" {
			res.Reasons = append(res.Reasons, derived.Incomplete)
		} else {
			res.Reasons = append(res.Reasons, "derived value unavailable: "+th.Condition.Field)
		}
		res.Questions = append(res.Questions, derived.Questions...)
	}
}

func (e *Engine) checkDocumentation(facts model.OfferFacts, spec *model.MeasureSpec, res *model.MeasureResult) {
	provided := make(map[string]bool, len(facts.Docs))
	for _, doc := range facts.Docs {
		provided[doc] = true
	}
	for _, rule := range spec.Documentation {
		if rule.Doc == "" || provided[rule.Doc] {
			continue
		}
		res.Status = res.Status.Stricter(rule.SeverityIfMissing)
		res.Reasons = append(res.Reasons, "required document missing: "+rule.Doc)
		res.Questions = append(res.Questions, "Please submit document: "+rule.Doc)
	}
}

func failReason(th model.Threshold, threshold float64) string {
	return fmt.Sprintf("threshold failed: %s %s %v", th.Condition.Field, th.Condition.Op, threshold)
}

func collectEvidence(m model.MeasureFacts, derived model.DerivedFacts) []model.Evidence {
	out := append([]model.Evidence(nil), m.Evidence...)
	out = append(out, derived.Inputs...)
	return out
}
