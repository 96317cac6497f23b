// Package store persists bundles, build reports, and evaluation results.
// History is append-only: bundle lifecycle transitions and re-evaluations
// are recorded as new rows, never as mutations of prior ones.
package store

import (
	"context"
	"time"

	"github.com/foerderwerk/rulecore/internal/model"
)

// BundleMeta is the listing view of a stored bundle.
type BundleMeta struct {
	BundleID   string    `json:"bundle_id"`
	State      string    `json:"state"`
	BuiltAt    time.Time `json:"built_at"`
	SourceHash string    `json:"source_hash"`
	SpecCount  int       `json:"spec_count"`
}

// Store is the audit persistence interface.
type Store interface {
	// Bundles
	SaveBundle(ctx context.Context, b *model.Bundle) error
	GetBundle(ctx context.Context, bundleID string) (*model.Bundle, error)
	RecordBundleState(ctx context.Context, bundleID string, state model.BundleState, note string) error
	ActiveBundle(ctx context.Context) (*model.Bundle, error)
	ListBundles(ctx context.Context, limit int) ([]BundleMeta, error)

	// Build reports
	SaveBuildReport(ctx context.Context, report *model.BuildReport) error
	LatestBuildReport(ctx context.Context) (*model.BuildReport, error)

	// Evaluations
	SaveEvaluation(ctx context.Context, result *model.CaseResult) error
	ListEvaluations(ctx context.Context, caseID string, limit int) ([]model.CaseResult, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
