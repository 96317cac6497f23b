package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foerderwerk/rulecore/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testBundle(state model.BundleState) *model.Bundle {
	return &model.Bundle{
		BundleID:   uuid.New().String(),
		BuiltAt:    time.Now().UTC().Truncate(time.Second),
		State:      state,
		SourceHash: "hash-abc",
		Specs: []model.MeasureSpec{{
			MeasureID: "wall_insulation",
			Module:    "envelope",
			Category:  "wall",
			Technical: []model.Threshold{{
				Name:      "derived.u_value_<=",
				Condition: model.Condition{Field: "derived.u_value", Op: "<=", Value: 0.2},
			}},
		}},
	}
}

func TestSQLiteStore_BundleRoundTrip(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	b := testBundle(model.BundleValidated)
	require.NoError(t, st.SaveBundle(ctx, b))

	got, err := st.GetBundle(ctx, b.BundleID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.BundleID, got.BundleID)
	assert.Equal(t, b.SourceHash, got.SourceHash)
	require.Len(t, got.Specs, 1)
	assert.Equal(t, "wall_insulation", got.Specs[0].MeasureID)

	missing, err := st.GetBundle(ctx, "no-such-bundle")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLiteStore_ActiveBundleFollowsEvents(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	active, err := st.ActiveBundle(ctx)
	require.NoError(t, err)
	assert.Nil(t, active, "no events means no active bundle")

	first := testBundle(model.BundleValidated)
	require.NoError(t, st.SaveBundle(ctx, first))
	require.NoError(t, st.RecordBundleState(ctx, first.BundleID, model.BundleActive, "initial"))

	active, err = st.ActiveBundle(ctx)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, first.BundleID, active.BundleID)
	assert.Equal(t, model.BundleActive, active.State)

	// A later activation supersedes; the event log stays append-only.
	second := testBundle(model.BundleValidated)
	require.NoError(t, st.SaveBundle(ctx, second))
	require.NoError(t, st.RecordBundleState(ctx, second.BundleID, model.BundleActive, "replacement"))

	active, err = st.ActiveBundle(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.BundleID, active.BundleID)
}

func TestSQLiteStore_ListBundles(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	b := testBundle(model.BundleStaged)
	require.NoError(t, st.SaveBundle(ctx, b))
	require.NoError(t, st.RecordBundleState(ctx, b.BundleID, model.BundleRejected, "guard failure"))

	metas, err := st.ListBundles(ctx, 10)
	require.NoError(t, err)
	require.Len(t, metas, 1)
	assert.Equal(t, b.BundleID, metas[0].BundleID)
	assert.Equal(t, string(model.BundleRejected), metas[0].State, "listing shows the latest state")
	assert.Equal(t, 1, metas[0].SpecCount)
}

func TestSQLiteStore_BuildReports(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	latest, err := st.LatestBuildReport(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	report := &model.BuildReport{
		BundleID: "bundle-1",
		BuiltAt:  time.Now().UTC(),
		Passed:   true,
		Guards:   []model.GuardReport{{Name: "evidence", Passed: true}},
	}
	require.NoError(t, st.SaveBuildReport(ctx, report))
	assert.NotEmpty(t, report.ID, "an id is assigned on save")

	latest, err = st.LatestBuildReport(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, report.ID, latest.ID)
	assert.True(t, latest.Passed)
}

func TestSQLiteStore_Evaluations(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)
	ctx := context.Background()

	result := &model.CaseResult{
		ID:          uuid.New().String(),
		CaseID:      "case-1",
		BundleID:    "bundle-1",
		GeneratedAt: time.Now().UTC(),
		Results: []model.MeasureResult{{
			MeasureID: "wall_insulation",
			Status:    model.StatusClarify,
			Reasons:   []string{"threshold value unavailable: derived.u_value"},
		}},
	}
	require.NoError(t, st.SaveEvaluation(ctx, result))

	results, err := st.ListEvaluations(ctx, "case-1", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, result.ID, results[0].ID)
	assert.Equal(t, model.StatusClarify, results[0].Results[0].Status)

	none, err := st.ListEvaluations(ctx, "case-unknown", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
