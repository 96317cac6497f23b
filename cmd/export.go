package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foerderwerk/rulecore/internal/gate"
	"github.com/foerderwerk/rulecore/internal/report"
)

var exportOut string

var exportReviewCmd = &cobra.Command{
	Use:   "export-review <bundle-id>",
	Short: "Export the diff against the active bundle as an XLSX review workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		candidate, err := st.GetBundle(ctx, args[0])
		if err != nil {
			return err
		}
		if candidate == nil {
			return eris.Errorf("bundle %s not found", args[0])
		}

		active, err := st.ActiveBundle(ctx)
		if err != nil {
			return err
		}

		buildReport, err := st.LatestBuildReport(ctx)
		if err != nil {
			return err
		}
		if buildReport != nil && buildReport.BundleID != candidate.BundleID {
			buildReport = nil
		}

		diff := gate.Between(active, candidate)
		prevID := ""
		if active != nil {
			prevID = active.BundleID
		}

		if err := report.WriteReviewWorkbook(exportOut, prevID, candidate.BundleID, *diff, buildReport); err != nil {
			return err
		}

		zap.L().Info("review workbook written",
			zap.String("path", exportOut),
			zap.Bool("material", diff.Material()))
		return nil
	},
}

func init() {
	exportReviewCmd.Flags().StringVar(&exportOut, "out", "review.xlsx", "output workbook path")
	rootCmd.AddCommand(exportReviewCmd)
}
