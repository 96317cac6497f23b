// Package report renders human-review artifacts for bundle promotions.
package report

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/foerderwerk/rulecore/internal/model"
)

// WriteReviewWorkbook writes the diff between the active bundle and a
// candidate to an XLSX workbook for the reviewer who has to sign off a
// material change.
func WriteReviewWorkbook(path string, prevID, currID string, diff model.BundleDiff, report *model.BuildReport) error {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, prevID, currID, diff, report); err != nil {
		return err
	}
	if err := addThresholdSheet(f, diff); err != nil {
		return err
	}
	if err := addMeasureSheet(f, diff); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func addSummarySheet(f *xlsx.File, prevID, currID string, diff model.BundleDiff, report *model.BuildReport) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addKV(sheet, "Previous bundle", prevID)
	addKV(sheet, "Candidate bundle", currID)
	addKV(sheet, "Requires human review", fmt.Sprintf("%t", diff.Material()))
	addKV(sheet, "Changed thresholds", fmt.Sprintf("%d", len(diff.ChangedThresholds)))
	addKV(sheet, "Removed measures", fmt.Sprintf("%d", len(diff.RemovedMeasures)))
	addKV(sheet, "Added measures", fmt.Sprintf("%d", len(diff.AddedMeasures)))
	addKV(sheet, "Removed rules", fmt.Sprintf("%d", len(diff.RemovedRules)))
	addKV(sheet, "Added rules", fmt.Sprintf("%d", len(diff.AddedRules)))

	if report != nil {
		addKV(sheet, "Build passed", fmt.Sprintf("%t", report.Passed))
		addKV(sheet, "Built at", report.BuiltAt.Format("2006-01-02 15:04:05 MST"))
		addKV(sheet, "Invalid thresholds", fmt.Sprintf("%d", report.InvalidThresholds))
		for _, guard := range report.Guards {
			addKV(sheet, "Guard "+guard.Name, fmt.Sprintf("passed=%t violations=%d", guard.Passed, len(guard.Violations)))
		}
	}
	return nil
}

func addThresholdSheet(f *xlsx.File, diff model.BundleDiff) error {
	sheet, err := f.AddSheet("Changed Thresholds")
	if err != nil {
		return eris.Wrap(err, "report: add threshold sheet")
	}

	addRow(sheet, "Measure", "Field", "Op", "Previous", "Candidate")
	for _, ch := range diff.ChangedThresholds {
		addRow(sheet,
			ch.MeasureID, ch.Field, ch.Op,
			fmt.Sprintf("%v", ch.Previous), fmt.Sprintf("%v", ch.Current),
		)
	}
	return nil
}

func addMeasureSheet(f *xlsx.File, diff model.BundleDiff) error {
	sheet, err := f.AddSheet("Measure Changes")
	if err != nil {
		return eris.Wrap(err, "report: add measure sheet")
	}

	addRow(sheet, "Change", "Measure / Rule")
	for _, m := range diff.RemovedMeasures {
		addRow(sheet, "measure removed", m)
	}
	for _, m := range diff.AddedMeasures {
		addRow(sheet, "measure added", m)
	}
	for _, r := range diff.RemovedRules {
		addRow(sheet, "rule removed", r)
	}
	for _, r := range diff.AddedRules {
		addRow(sheet, "rule added", r)
	}
	return nil
}

func addKV(sheet *xlsx.Sheet, key, value string) {
	addRow(sheet, key, value)
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().SetString(c)
	}
}
