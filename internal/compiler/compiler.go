// Package compiler turns atomic requirement records into executable
// per-measure specifications. Compilation is a pure function of its
// inputs: identical record sets always compile to byte-identical specs.
package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"reflect"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/foerderwerk/rulecore/internal/model"
)

// Conflict is an equal-priority, equal-scope collision with differing
// values. It is never resolved by an arbitrary pick; the build fails
// closed and a human decides.
type Conflict struct {
	Scope  model.Scope `json:"scope"`
	Field  string      `json:"field"`
	Op     string      `json:"op"`
	ReqIDs []string    `json:"req_ids"`
	Values []any       `json:"values"`
}

func (c Conflict) String() string {
	return fmt.Sprintf("%s/%s %s %s: records %v values %v",
		c.Scope.Measure, c.Scope.SubScope, c.Field, c.Op, c.ReqIDs, c.Values)
}

// Result is the outcome of one compilation cycle.
type Result struct {
	Specs             []model.MeasureSpec
	Conflicts         []Conflict
	InvalidThresholds int
	SourceHash        string
}

// baseRequiredFields apply to every compiled measure: without a component
// type the measure cannot be mapped at all, without an input mode no
// derivation path exists.
func baseRequiredFields() []model.RequiredField {
	return []model.RequiredField{
		{Path: "offer.component_type", SeverityIfMissing: model.StatusAbort},
		{Path: "offer.input_mode", SeverityIfMissing: model.StatusClarify},
	}
}

// Compile groups requirement records by scope, resolves source-priority
// conflicts, verifies every numeric threshold against its evidence quote,
// and assembles one MeasureSpec per measure.
func Compile(records []model.RequirementRecord) (*Result, error) {
	sorted := make([]model.RequirementRecord, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ReqID < sorted[j].ReqID })

	byMeasure := make(map[string][]model.RequirementRecord)
	for _, rec := range sorted {
		if rec.Scope.Measure == "" {
			zap.L().Warn("compiler: record without measure scope skipped",
				zap.String("req_id", rec.ReqID))
			continue
		}
		byMeasure[rec.Scope.Measure] = append(byMeasure[rec.Scope.Measure], rec)
	}

	measureIDs := make([]string, 0, len(byMeasure))
	for id := range byMeasure {
		measureIDs = append(measureIDs, id)
	}
	sort.Strings(measureIDs)

	res := &Result{SourceHash: sourceHash(sorted)}
	for _, measureID := range measureIDs {
		spec, conflicts, invalid, err := compileMeasure(measureID, byMeasure[measureID])
		if err != nil {
			return nil, eris.Wrapf(err, "compiler: measure %s", measureID)
		}
		res.Conflicts = append(res.Conflicts, conflicts...)
		res.InvalidThresholds += invalid
		res.Specs = append(res.Specs, spec)
	}
	return res, nil
}

// identityKey groups records stating the same semantic rule: same type,
// field, comparator, and applicability sub-scope. Cost rules with
// different outcomes and documentation rules naming different documents
// are distinct rules, not conflicting statements of one.
func identityKey(rec model.RequirementRecord) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		rec.ReqType, rec.Rule.Field, rec.Rule.Op, rec.Scope.SubScope, rec.Rule.Result, rec.Rule.Doc)
}

func compileMeasure(measureID string, recs []model.RequirementRecord) (model.MeasureSpec, []Conflict, int, error) {
	spec := model.MeasureSpec{
		MeasureID:      measureID,
		Module:         recs[0].Scope.Module,
		Category:       recs[0].Scope.Category,
		RequiredFields: baseRequiredFields(),
		CostRules: model.CostRules{
			EligibleCategories:   []string{},
			IneligibleCategories: []string{},
		},
	}

	groups := make(map[string][]model.RequirementRecord)
	var keys []string
	for _, rec := range recs {
		key := identityKey(rec)
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], rec)
	}
	sort.Strings(keys)

	var conflicts []Conflict
	invalid := 0
	for _, key := range keys {
		winner, superseded, conflict := resolve(groups[key])
		if conflict != nil {
			conflicts = append(conflicts, *conflict)
			continue
		}
		spec.Superseded = append(spec.Superseded, superseded...)
		spec.CompiledFrom = append(spec.CompiledFrom, winner.ReqID)

		switch winner.ReqType {
		case model.ReqThreshold:
			if !applyThreshold(&spec, winner) {
				invalid++
			}
		case model.ReqEligibility:
			// Eligibility is decided on bound values only: a fact without
			// evidence must read as unknown, never as satisfied.
			spec.Eligibility = append(spec.Eligibility, model.Condition{
				Field:             winner.Rule.Field,
				Op:                winner.Rule.Op,
				Value:             winner.Rule.Value,
				Unit:              winner.Rule.Unit,
				EvidenceRequired:  true,
				SeverityIfMissing: winner.SeverityIfMissing,
			})
		case model.ReqExclusion:
			spec.Exclusions = append(spec.Exclusions, model.Exclusion{
				When: []model.Condition{{
					Field:             winner.Rule.Field,
					Op:                winner.Rule.Op,
					Value:             winner.Rule.Value,
					SeverityIfMissing: winner.SeverityIfMissing,
				}},
				Reason: winner.Rule.Result,
				ReqID:  winner.ReqID,
			})
		case model.ReqDocumentation:
			spec.Documentation = append(spec.Documentation, model.DocumentationRule{
				Doc:               winner.Rule.Doc,
				SeverityIfMissing: winner.SeverityIfMissing,
				ReqID:             winner.ReqID,
			})
		case model.ReqCostRule:
			applyCostRule(&spec, winner)
		default:
			return spec, nil, 0, eris.Wrapf(model.ErrInvalidThreshold,
				"unknown req_type %q on %s", winner.ReqType, winner.ReqID)
		}
	}

	sort.Strings(spec.CompiledFrom)
	sort.Slice(spec.Superseded, func(i, j int) bool {
		return spec.Superseded[i].ReqID < spec.Superseded[j].ReqID
	})
	return spec, conflicts, invalid, nil
}

// resolve picks the rule of record for one identity group. The highest
// source priority wins; every loser is recorded with the winner's id.
// Equal top priority with differing values is an unresolvable conflict.
// Equal priority with identical values is a benign duplicate and dedupes
// on the lowest req_id.
func resolve(group []model.RequirementRecord) (model.RequirementRecord, []model.SupersededRule, *Conflict) {
	sort.Slice(group, func(i, j int) bool {
		if group[i].SourcePriority != group[j].SourcePriority {
			return group[i].SourcePriority > group[j].SourcePriority
		}
		return group[i].ReqID < group[j].ReqID
	})

	winner := group[0]
	for _, rec := range group[1:] {
		if rec.SourcePriority == winner.SourcePriority && !reflect.DeepEqual(rec.Rule.Value, winner.Rule.Value) {
			reqIDs := make([]string, 0, len(group))
			values := make([]any, 0, len(group))
			for _, g := range group {
				if g.SourcePriority == winner.SourcePriority {
					reqIDs = append(reqIDs, g.ReqID)
					values = append(values, g.Rule.Value)
				}
			}
			return model.RequirementRecord{}, nil, &Conflict{
				Scope:  winner.Scope,
				Field:  winner.Rule.Field,
				Op:     winner.Rule.Op,
				ReqIDs: reqIDs,
				Values: values,
			}
		}
	}

	var superseded []model.SupersededRule
	for _, rec := range group[1:] {
		superseded = append(superseded, model.SupersededRule{
			ReqID:       rec.ReqID,
			SourceID:    rec.SourceID,
			WinnerReqID: winner.ReqID,
		})
	}
	return winner, superseded, nil
}

// applyThreshold runs the evidence-token guard and either compiles the
// threshold or leaves an invalid-threshold marker on the spec. The marker
// is surfaced to the guard pipeline and degrades evaluation of the
// measure; the constraint is never silently dropped.
func applyThreshold(spec *model.MeasureSpec, rec model.RequirementRecord) bool {
	value, ok := rec.Rule.NumericValue()
	if !ok {
		spec.InvalidThresholds = append(spec.InvalidThresholds, model.InvalidThreshold{
			ReqID:     rec.ReqID,
			Field:     rec.Rule.Field,
			Reason:    "threshold value is not numeric",
			Mandatory: rec.SeverityIfMissing == model.StatusAbort,
		})
		return false
	}

	token := CanonicalToken(value)
	if !TokenPresent(value, rec.Evidence) {
		zap.L().Warn("compiler: threshold token missing from evidence",
			zap.String("req_id", rec.ReqID),
			zap.String("token", token))
		spec.InvalidThresholds = append(spec.InvalidThresholds, model.InvalidThreshold{
			ReqID:     rec.ReqID,
			Field:     rec.Rule.Field,
			Token:     token,
			Reason:    "threshold token not found in evidence quote",
			Mandatory: rec.SeverityIfMissing == model.StatusAbort,
		})
		return false
	}

	spec.Technical = append(spec.Technical, model.Threshold{
		Name: fmt.Sprintf("%s_%s", rec.Rule.Field, rec.Rule.Op),
		Condition: model.Condition{
			Field:             rec.Rule.Field,
			Op:                rec.Rule.Op,
			Value:             value,
			Unit:              rec.Rule.Unit,
			EvidenceRequired:  true,
			SeverityIfMissing: rec.SeverityIfMissing,
		},
		ReqID:    rec.ReqID,
		Evidence: rec.Evidence,
	})
	return true
}

func applyCostRule(spec *model.MeasureSpec, rec model.RequirementRecord) {
	switch rec.Rule.Result {
	case model.CostEligible.String():
		spec.CostRules.EligibleCategories = mergeSorted(spec.CostRules.EligibleCategories, rec.Rule.Categories)
	case model.CostIneligible.String():
		spec.CostRules.IneligibleCategories = mergeSorted(spec.CostRules.IneligibleCategories, rec.Rule.Categories)
	case model.CostEligibleIfNecessary.String():
		spec.CostRules.SplitRules = append(spec.CostRules.SplitRules, model.SplitRule{
			When: model.Condition{
				Field: rec.Rule.Field,
				Op:    rec.Rule.Op,
				Value: rec.Rule.Value,
			},
			Result: model.CostEligibleIfNecessary,
		})
	default:
		zap.L().Warn("compiler: cost rule with unknown result skipped",
			zap.String("req_id", rec.ReqID),
			zap.String("result", rec.Rule.Result))
	}
}

func mergeSorted(existing, add []string) []string {
	seen := make(map[string]bool, len(existing)+len(add))
	for _, s := range existing {
		seen[s] = true
	}
	for _, s := range add {
		seen[s] = true
	}
	merged := make([]string, 0, len(seen))
	for s := range seen {
		merged = append(merged, s)
	}
	sort.Strings(merged)
	return merged
}

// sourceHash identifies the input record set for change detection.
func sourceHash(sorted []model.RequirementRecord) string {
	h := sha256.New()
	for _, rec := range sorted {
		h.Write([]byte(rec.ContentHash()))
	}
	return hex.EncodeToString(h.Sum(nil))
}
