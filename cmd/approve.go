package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foerderwerk/rulecore/internal/gate"
	"github.com/foerderwerk/rulecore/internal/model"
)

var approveCmd = &cobra.Command{
	Use:   "approve <bundle-id>",
	Short: "Approve and activate a validated bundle",
	Long:  "Promotes a previously compiled bundle whose material diff blocked automatic activation. Guard results persisted with the bundle are re-checked before the swap.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		bundle, err := st.GetBundle(ctx, args[0])
		if err != nil {
			return err
		}
		if bundle == nil {
			return eris.Errorf("bundle %s not found", args[0])
		}

		active, err := st.ActiveBundle(ctx)
		if err != nil {
			return err
		}
		if active != nil && active.BundleID == bundle.BundleID {
			return eris.Errorf("bundle %s is already active", bundle.BundleID)
		}

		g := gate.New(active)
		if err := g.Stage(bundle); err != nil {
			return err
		}
		if err := g.Validate(bundle.GuardReports, bundle.Coverage); err != nil {
			return err
		}
		promoted, diff, err := g.Promote(true)
		if err != nil {
			return err
		}

		if err := st.RecordBundleState(ctx, promoted.BundleID, model.BundleActive, "approved via cli"); err != nil {
			return err
		}

		zap.L().Info("bundle approved",
			zap.String("bundle_id", promoted.BundleID),
			zap.Bool("material_diff", diff.Material()))
		return printJSON(map[string]any{
			"bundle_id": promoted.BundleID,
			"state":     promoted.State,
			"diff":      diff,
		})
	},
}

func init() {
	rootCmd.AddCommand(approveCmd)
}
