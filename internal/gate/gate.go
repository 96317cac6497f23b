// Package gate governs promotion of validated bundles into the single
// active slot. The active bundle lives behind an atomic pointer: readers
// snapshot it once per evaluation and are unaffected by promotions that
// complete mid-flight.
package gate

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/foerderwerk/rulecore/internal/model"
)

// Promotion errors.
var (
	ErrAlreadyStaged    = eris.New("gate: a staged candidate already exists")
	ErrNotStaged        = eris.New("gate: no staged candidate")
	ErrNotValidated     = eris.New("gate: candidate has not passed all guards")
	ErrApprovalRequired = eris.New("gate: material diff requires human approval")
)

// Gate holds the single active bundle and at most one staged candidate.
type Gate struct {
	mu     sync.Mutex
	staged *model.Bundle
	active atomic.Pointer[model.Bundle]
}

// New returns a gate with the given bundle active, or empty when nil.
func New(active *model.Bundle) *Gate {
	g := &Gate{}
	if active != nil {
		g.active.Store(active)
	}
	return g
}

// NewBundle assembles a staged bundle from compiled specs.
func NewBundle(specs []model.MeasureSpec, sourceHash string) *model.Bundle {
	b := &model.Bundle{
		BundleID:   uuid.New().String(),
		BuiltAt:    time.Now().UTC(),
		State:      model.BundleStaged,
		Specs:      specs,
		SourceHash: sourceHash,
	}
	b.SortSpecs()
	return b
}

// Active returns a read-only snapshot of the currently active bundle.
// Callers hold the returned pointer for the whole evaluation; a promotion
// completing meanwhile does not affect them.
func (g *Gate) Active() *model.Bundle {
	return g.active.Load()
}

// Stage registers a candidate. Builds are serialized: at most one staged
// candidate exists at a time, and a second Stage fails until the first is
// promoted or rejected.
func (g *Gate) Stage(b *model.Bundle) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.staged != nil {
		return eris.Wrapf(ErrAlreadyStaged, "bundle %s", g.staged.BundleID)
	}
	b.State = model.BundleStaged
	g.staged = b
	zap.L().Info("bundle staged", zap.String("bundle_id", b.BundleID))
	return nil
}

// Validate moves the staged candidate to validated when every guard
// passed. On any failure the candidate is rejected and the previous
// active bundle remains untouched.
func (g *Gate) Validate(reports []model.GuardReport, coverage *model.CoverageReport) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.staged == nil {
		return ErrNotStaged
	}
	g.staged.GuardReports = reports
	g.staged.Coverage = coverage
	for _, r := range reports {
		if !r.Passed {
			bundleID := g.staged.BundleID
			g.staged.State = model.BundleRejected
			g.staged = nil
			return eris.Wrapf(ErrNotValidated, "bundle %s: guard %s", bundleID, r.Name)
		}
	}
	g.staged.State = model.BundleValidated
	zap.L().Info("bundle validated", zap.String("bundle_id", g.staged.BundleID))
	return nil
}

// Promote atomically swaps the validated candidate into the active slot.
// A material diff against the current active bundle requires approved to
// be true; otherwise the candidate stays validated and the previous
// bundle keeps serving evaluations indefinitely.
func (g *Gate) Promote(approved bool) (*model.Bundle, *model.BundleDiff, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.staged == nil {
		return nil, nil, ErrNotStaged
	}
	if g.staged.State != model.BundleValidated {
		return nil, nil, eris.Wrapf(ErrNotValidated, "bundle %s is %s", g.staged.BundleID, g.staged.State)
	}

	diff := Between(g.active.Load(), g.staged)
	if diff.Material() && !approved {
		return nil, diff, eris.Wrapf(ErrApprovalRequired, "bundle %s", g.staged.BundleID)
	}

	promoted := g.staged
	promoted.State = model.BundleActive
	g.active.Store(promoted)
	g.staged = nil
	zap.L().Info("bundle promoted",
		zap.String("bundle_id", promoted.BundleID),
		zap.Int("specs", len(promoted.Specs)))
	return promoted, diff, nil
}

// Reject discards the staged candidate, leaving the active bundle as is.
func (g *Gate) Reject() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.staged == nil {
		return ErrNotStaged
	}
	g.staged.State = model.BundleRejected
	zap.L().Info("bundle rejected", zap.String("bundle_id", g.staged.BundleID))
	g.staged = nil
	return nil
}

// Staged returns the staged candidate, or nil.
func (g *Gate) Staged() *model.Bundle {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.staged
}
