package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foerderwerk/rulecore/internal/compiler"
	"github.com/foerderwerk/rulecore/internal/gate"
	"github.com/foerderwerk/rulecore/internal/guard"
	"github.com/foerderwerk/rulecore/internal/model"
	"github.com/foerderwerk/rulecore/internal/store"
)

var (
	compileModule  string
	compileApprove bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <requirements.jsonl>",
	Short: "Compile requirement records into a candidate bundle",
	Long:  "Compiles atomic requirement records into per-measure specs, runs the guard pipeline, stages the candidate, and promotes it unless the diff against the active bundle requires human approval.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		records, err := readRequirements(args[0])
		if err != nil {
			return err
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		manifest, err := loadManifest(cfg)
		if err != nil {
			return err
		}
		required := manifest.Categories(compileModule)

		res, err := compiler.Compile(records)
		if err != nil {
			return err
		}

		reports, _ := guard.NewPipeline(required).Run(res)
		covReport := guard.CoverageGuard{Required: required}.CoverageReport(res)

		active, err := st.ActiveBundle(ctx)
		if err != nil {
			return err
		}

		bundle := gate.NewBundle(res.Specs, res.SourceHash)
		g := gate.New(active)
		if err := g.Stage(bundle); err != nil {
			return err
		}

		report := &model.BuildReport{
			BundleID:          bundle.BundleID,
			BuiltAt:           time.Now().UTC(),
			InvalidThresholds: res.InvalidThresholds,
		}
		for _, c := range res.Conflicts {
			report.Conflicts = append(report.Conflicts, c.String())
		}

		validateErr := g.Validate(reports, covReport)
		report.Guards = bundle.GuardReports
		report.Passed = validateErr == nil

		if validateErr != nil {
			if saveErr := persistBuild(cmd, st, bundle, report); saveErr != nil {
				return saveErr
			}
			if len(res.Conflicts) > 0 {
				return eris.Wrapf(model.ErrUnresolvableConflict, "%d equal-priority conflicts block the build", len(res.Conflicts))
			}
			if covReport != nil && len(covReport.Missing) > 0 {
				return eris.Wrapf(model.ErrCoverageGap, "uncovered categories: %v", covReport.Missing)
			}
			return validateErr
		}

		promoted, diff, promoteErr := g.Promote(compileApprove)
		report.Diff = diff
		switch {
		case promoteErr == nil:
			zap.L().Info("bundle active",
				zap.String("bundle_id", promoted.BundleID),
				zap.Int("specs", len(promoted.Specs)))
		case eris.Is(promoteErr, gate.ErrApprovalRequired):
			report.ApprovalRequired = true
			zap.L().Warn("material change requires approval",
				zap.String("bundle_id", bundle.BundleID))
		default:
			return promoteErr
		}

		return persistBuild(cmd, st, bundle, report)
	},
}

func persistBuild(cmd *cobra.Command, st store.Store, bundle *model.Bundle, report *model.BuildReport) error {
	ctx := cmd.Context()
	if err := st.SaveBundle(ctx, bundle); err != nil {
		return err
	}
	if err := st.SaveBuildReport(ctx, report); err != nil {
		return err
	}
	return printJSON(report)
}

func init() {
	compileCmd.Flags().StringVar(&compileModule, "module", "envelope", "coverage module whose mandatory categories the bundle must cover")
	compileCmd.Flags().BoolVar(&compileApprove, "approve", false, "approve promotion even when the diff is material")
	rootCmd.AddCommand(compileCmd)
}
