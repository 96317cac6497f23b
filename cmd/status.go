package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/foerderwerk/rulecore/internal/model"
	"github.com/foerderwerk/rulecore/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active bundle and the latest build report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		active, err := st.ActiveBundle(ctx)
		if err != nil {
			return err
		}
		report, err := st.LatestBuildReport(ctx)
		if err != nil {
			return err
		}

		out := struct {
			Active      *bundleSummary     `json:"active_bundle"`
			LatestBuild *model.BuildReport `json:"latest_build"`
		}{LatestBuild: report}
		if active != nil {
			out.Active = &bundleSummary{
				BundleID:   active.BundleID,
				BuiltAt:    active.BuiltAt,
				SourceHash: active.SourceHash,
				SpecCount:  len(active.Specs),
				Coverage:   active.Coverage,
			}
		}
		return printJSON(out)
	},
}

type bundleSummary struct {
	BundleID   string                `json:"bundle_id"`
	BuiltAt    time.Time             `json:"built_at"`
	SourceHash string                `json:"source_hash"`
	SpecCount  int                   `json:"spec_count"`
	Coverage   *model.CoverageReport `json:"coverage,omitempty"`
}

var bundlesCmd = &cobra.Command{
	Use:   "bundles",
	Short: "List stored bundles with their latest state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		metas, err := st.ListBundles(ctx, bundlesLimit)
		if err != nil {
			return err
		}
		if metas == nil {
			metas = []store.BundleMeta{}
		}
		return printJSON(metas)
	},
}

var bundlesLimit int

func init() {
	bundlesCmd.Flags().IntVar(&bundlesLimit, "limit", 50, "maximum bundles to list")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(bundlesCmd)
}
