package model

import (
	"sort"
	"time"
)

// BundleState is the release-gate lifecycle position of a bundle.
type BundleState string

const (
	BundleStaged    BundleState = "staged"
	BundleValidated BundleState = "validated"
	BundleActive    BundleState = "active"
	BundleRejected  BundleState = "rejected"
)

// GuardReport is the structured outcome of one guard over a candidate
// spec set.
type GuardReport struct {
	Name       string   `json:"name"`
	Passed     bool     `json:"passed"`
	Violations []string `json:"violations,omitempty"`
}

// CoverageReport lists which mandatory measure categories are covered by
// at least one valid spec.
type CoverageReport struct {
	Required []string `json:"required"`
	Covered  []string `json:"covered"`
	Missing  []string `json:"missing,omitempty"`
}

// Bundle is the complete set of compiled MeasureSpecs serving evaluations
// at a point in time. Specs are kept sorted by measure id so identical
// inputs always produce byte-identical bundles.
type Bundle struct {
	BundleID     string          `json:"bundle_id"`
	BuiltAt      time.Time       `json:"built_at"`
	State        BundleState     `json:"state"`
	Specs        []MeasureSpec   `json:"specs"`
	Coverage     *CoverageReport `json:"coverage_report,omitempty"`
	GuardReports []GuardReport   `json:"guard_reports,omitempty"`
	SourceHash   string          `json:"source_hash"`
}

// Spec returns the spec for the given measure id, or nil when the bundle
// carries none.
func (b *Bundle) Spec(measureID string) *MeasureSpec {
	if b == nil {
		return nil
	}
	idx := sort.Search(len(b.Specs), func(i int) bool {
		return b.Specs[i].MeasureID >= measureID
	})
	if idx < len(b.Specs) && b.Specs[idx].MeasureID == measureID {
		return &b.Specs[idx]
	}
	return nil
}

// SortSpecs restores the canonical spec ordering after construction.
func (b *Bundle) SortSpecs() {
	sort.Slice(b.Specs, func(i, j int) bool {
		return b.Specs[i].MeasureID < b.Specs[j].MeasureID
	})
}

// ThresholdChange records one threshold value differing between bundles.
type ThresholdChange struct {
	MeasureID string `json:"measure_id"`
	Field     string `json:"field"`
	Op        string `json:"op"`
	Previous  any    `json:"previous"`
	Current   any    `json:"current"`
}

// BundleDiff is the material difference between two bundles, used to gate
// promotion on human review.
type BundleDiff struct {
	AddedMeasures     []string          `json:"added_measures,omitempty"`
	RemovedMeasures   []string          `json:"removed_measures,omitempty"`
	AddedRules        []string          `json:"added_rules,omitempty"`
	RemovedRules      []string          `json:"removed_rules,omitempty"`
	ChangedThresholds []ThresholdChange `json:"changed_thresholds,omitempty"`
}

// Material reports whether the diff requires explicit human approval
// before the staged bundle may be promoted. Any changed threshold value
// and any rule added to or removed from a surviving measure counts;
// whole new measures do not, they only extend coverage.
func (d *BundleDiff) Material() bool {
	if d == nil {
		return false
	}
	return len(d.ChangedThresholds) > 0 ||
		len(d.RemovedMeasures) > 0 ||
		len(d.AddedRules) > 0 ||
		len(d.RemovedRules) > 0
}

// BuildReport is the persisted record of one source-build cycle,
// regardless of whether the candidate reached promotion.
type BuildReport struct {
	ID                string        `json:"id"`
	BundleID          string        `json:"bundle_id"`
	BuiltAt           time.Time     `json:"built_at"`
	Passed            bool          `json:"passed"`
	Guards            []GuardReport `json:"guards"`
	Conflicts         []string      `json:"conflicts,omitempty"`
	InvalidThresholds int           `json:"invalid_thresholds"`
	Diff              *BundleDiff   `json:"diff,omitempty"`
	ApprovalRequired  bool          `json:"approval_required"`
}
