package gate

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/foerderwerk/rulecore/internal/model"
)

// Between computes the material difference between the previously active
// bundle and a candidate. A nil previous bundle (first build) yields only
// additions and is never material.
func Between(prev, curr *model.Bundle) *model.BundleDiff {
	diff := &model.BundleDiff{}

	prevSpecs := specIndex(prev)
	currSpecs := specIndex(curr)

	for id := range currSpecs {
		if _, ok := prevSpecs[id]; !ok {
			diff.AddedMeasures = append(diff.AddedMeasures, id)
		}
	}
	for id := range prevSpecs {
		if _, ok := currSpecs[id]; !ok {
			diff.RemovedMeasures = append(diff.RemovedMeasures, id)
		}
	}
	sort.Strings(diff.AddedMeasures)
	sort.Strings(diff.RemovedMeasures)

	prevRules := thresholdIndex(prev)
	currRules := thresholdIndex(curr)

	keys := make([]string, 0, len(prevRules)+len(currRules))
	seen := make(map[string]bool)
	for k := range prevRules {
		keys = append(keys, k)
		seen[k] = true
	}
	for k := range currRules {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		prevTh, inPrev := prevRules[key]
		currTh, inCurr := currRules[key]
		switch {
		case inPrev && !inCurr:
			// Only count a removed rule when the measure itself survives;
			// removed measures are already reported above.
			if _, measureKept := currSpecs[prevTh.measureID]; measureKept {
				diff.RemovedRules = append(diff.RemovedRules, key)
			}
		case !inPrev && inCurr:
			if _, measureExisted := prevSpecs[currTh.measureID]; measureExisted {
				diff.AddedRules = append(diff.AddedRules, key)
			}
		case !reflect.DeepEqual(prevTh.value, currTh.value):
			diff.ChangedThresholds = append(diff.ChangedThresholds, model.ThresholdChange{
				MeasureID: currTh.measureID,
				Field:     currTh.field,
				Op:        currTh.op,
				Previous:  prevTh.value,
				Current:   currTh.value,
			})
		}
	}
	return diff
}

func specIndex(b *model.Bundle) map[string]*model.MeasureSpec {
	idx := make(map[string]*model.MeasureSpec)
	if b == nil {
		return idx
	}
	for i := range b.Specs {
		idx[b.Specs[i].MeasureID] = &b.Specs[i]
	}
	return idx
}

type thresholdEntry struct {
	measureID string
	field     string
	op        string
	value     any
}

func thresholdIndex(b *model.Bundle) map[string]thresholdEntry {
	idx := make(map[string]thresholdEntry)
	if b == nil {
		return idx
	}
	for _, spec := range b.Specs {
		for _, th := range spec.Technical {
			key := fmt.Sprintf("%s:%s:%s", spec.MeasureID, th.Condition.Field, th.Condition.Op)
			idx[key] = thresholdEntry{
				measureID: spec.MeasureID,
				field:     th.Condition.Field,
				op:        th.Condition.Op,
				value:     th.Condition.Value,
			}
		}
	}
	return idx
}
