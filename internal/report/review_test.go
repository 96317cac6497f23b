package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/foerderwerk/rulecore/internal/model"
)

func TestWriteReviewWorkbook(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "review.xlsx")

	diff := model.BundleDiff{
		ChangedThresholds: []model.ThresholdChange{{
			MeasureID: "wall_insulation",
			Field:     "derived.u_value",
			Op:        "<=",
			Previous:  0.2,
			Current:   0.24,
		}},
		RemovedMeasures: []string{"floor_insulation"},
		AddedMeasures:   []string{"roof_insulation"},
	}
	buildReport := &model.BuildReport{
		ID:       "report-1",
		BundleID: "bundle-2",
		BuiltAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Passed:   true,
		Guards: []model.GuardReport{
			{Name: "evidence", Passed: true},
			{Name: "conflict", Passed: true},
		},
	}

	require.NoError(t, WriteReviewWorkbook(path, "bundle-1", "bundle-2", diff, buildReport))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
	assert.Equal(t, "Summary", f.Sheets[0].Name)
	assert.Equal(t, "Changed Thresholds", f.Sheets[1].Name)
	assert.Equal(t, "Measure Changes", f.Sheets[2].Name)

	summary := f.Sheets[0]
	assert.Equal(t, "Previous bundle", summary.Rows[0].Cells[0].String())
	assert.Equal(t, "bundle-1", summary.Rows[0].Cells[1].String())
	assert.Equal(t, "Requires human review", summary.Rows[2].Cells[0].String())
	assert.Equal(t, "true", summary.Rows[2].Cells[1].String())

	thresholds := f.Sheets[1]
	require.Len(t, thresholds.Rows, 2)
	assert.Equal(t, "wall_insulation", thresholds.Rows[1].Cells[0].String())
	assert.Equal(t, "0.2", thresholds.Rows[1].Cells[3].String())
	assert.Equal(t, "0.24", thresholds.Rows[1].Cells[4].String())

	measures := f.Sheets[2]
	require.Len(t, measures.Rows, 3)
	assert.Equal(t, "measure removed", measures.Rows[1].Cells[0].String())
	assert.Equal(t, "floor_insulation", measures.Rows[1].Cells[1].String())
	assert.Equal(t, "measure added", measures.Rows[2].Cells[0].String())
}

func TestWriteReviewWorkbook_NoReport(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "review.xlsx")
	require.NoError(t, WriteReviewWorkbook(path, "", "bundle-1", model.BundleDiff{}, nil))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3)
}
