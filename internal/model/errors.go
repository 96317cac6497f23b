package model

import "github.com/rotisserie/eris"

// Core error taxonomy. Compilation-time errors block promotion and surface
// in the build report; evaluation-time errors map to per-measure statuses
// and never abort a case.
var (
	ErrMissingEvidence      = eris.New("missing evidence")
	ErrUnresolvableConflict = eris.New("unresolvable conflict")
	ErrInvalidThreshold     = eris.New("invalid threshold")
	ErrCoverageGap          = eris.New("coverage gap")
	ErrAmbiguousScenario    = eris.New("ambiguous scenario")
	ErrNoApplicableSpec     = eris.New("no applicable spec")
)
