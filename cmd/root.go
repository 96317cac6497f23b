package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/foerderwerk/rulecore/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rulecore",
	Short: "Subsidy rule compiler and deterministic eligibility engine",
	Long:  "Compiles atomic funding requirements into versioned rule bundles, gates promotion behind guard checks and human review, and evaluates renovation offers against the active bundle.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
