package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/foerderwerk/rulecore/internal/engine"
	"github.com/foerderwerk/rulecore/internal/intake"
	"github.com/foerderwerk/rulecore/internal/model"
	"github.com/foerderwerk/rulecore/internal/store"
)

var (
	evaluateDir         string
	evaluateConcurrency int
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [facts.json]",
	Short: "Evaluate offer facts against the active bundle",
	Long:  "Validates canonical offer facts, evaluates every measure against the active bundle, persists the result, and prints it. With --dir, evaluates every *.json file in the directory concurrently.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if evaluateDir == "" && len(args) == 0 {
			return eris.New("provide a facts file or --dir")
		}

		st, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer st.Close()

		bundle, err := st.ActiveBundle(ctx)
		if err != nil {
			return err
		}
		if bundle == nil {
			return eris.New("no active bundle; run compile first")
		}

		eng := engine.New(deriveParams(cfg))
		validator := intake.New()

		if evaluateDir == "" {
			result, err := evaluateFile(cmd, st, eng, validator, bundle, args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		}

		entries, err := os.ReadDir(evaluateDir)
		if err != nil {
			return eris.Wrapf(err, "read dir %s", evaluateDir)
		}

		grp, _ := errgroup.WithContext(ctx)
		grp.SetLimit(evaluateConcurrency)
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := filepath.Join(evaluateDir, entry.Name())
			grp.Go(func() error {
				result, err := evaluateFile(cmd, st, eng, validator, bundle, path)
				if err != nil {
					return eris.Wrapf(err, "case file %s", path)
				}
				zap.L().Info("case evaluated",
					zap.String("file", path),
					zap.String("case_id", result.CaseID),
					zap.Int("measures", len(result.Results)))
				return nil
			})
		}
		return grp.Wait()
	},
}

func evaluateFile(cmd *cobra.Command, st store.Store, eng *engine.Engine, validator *intake.Validator, bundle *model.Bundle, path string) (*model.CaseResult, error) {
	facts, err := readOfferFacts(path)
	if err != nil {
		return nil, err
	}

	if violations, err := validator.Validate(facts); err != nil {
		for _, v := range violations {
			zap.L().Warn("intake violation", zap.String("case_id", facts.CaseID), zap.String("violation", v))
		}
		return nil, err
	}

	result := eng.EvaluateCase(bundle, facts)
	if err := st.SaveEvaluation(cmd.Context(), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func init() {
	evaluateCmd.Flags().StringVar(&evaluateDir, "dir", "", "evaluate every *.json case file in this directory")
	evaluateCmd.Flags().IntVar(&evaluateConcurrency, "concurrency", 4, "concurrent case evaluations with --dir")
	rootCmd.AddCommand(evaluateCmd)
}
