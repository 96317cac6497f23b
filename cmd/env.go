package main

import (
	"bufio"
	"context"
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"

	"github.com/foerderwerk/rulecore/internal/config"
	"github.com/foerderwerk/rulecore/internal/coverage"
	"github.com/foerderwerk/rulecore/internal/derive"
	"github.com/foerderwerk/rulecore/internal/model"
	"github.com/foerderwerk/rulecore/internal/store"
)

// openStore connects the configured backend.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	case "sqlite", "":
		st, err = store.NewSQLite(cfg.Store.DSN)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}
	return st, nil
}

// loadManifest returns the configured coverage manifest, or the built-in
// default when none is configured.
func loadManifest(cfg *config.Config) (*coverage.Manifest, error) {
	if cfg.Coverage.ManifestPath == "" {
		return coverage.Default(), nil
	}
	return coverage.Load(cfg.Coverage.ManifestPath)
}

// deriveParams maps the physics config onto derivation parameters.
func deriveParams(cfg *config.Config) derive.Params {
	p := derive.DefaultParams()
	if cfg.Physics.Rsi > 0 {
		p.Rsi = cfg.Physics.Rsi
	}
	if cfg.Physics.Rse > 0 {
		p.Rse = cfg.Physics.Rse
	}
	if len(cfg.Physics.RoofFractions) > 0 {
		p.RoofFractions = cfg.Physics.RoofFractions
	}
	return p
}

// readRequirements parses one requirement record per line from a JSONL
// file.
func readRequirements(path string) ([]model.RequirementRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open requirements %s", path)
	}
	defer f.Close()

	var records []model.RequirementRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}
		var rec model.RequirementRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, eris.Wrapf(err, "parse requirement at line %d", line)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, eris.Wrapf(err, "read requirements %s", path)
	}
	return records, nil
}

// readOfferFacts parses a canonical offer facts JSON file.
func readOfferFacts(path string) (model.OfferFacts, error) {
	var facts model.OfferFacts
	raw, err := os.ReadFile(path)
	if err != nil {
		return facts, eris.Wrapf(err, "open offer facts %s", path)
	}
	if err := json.Unmarshal(raw, &facts); err != nil {
		return facts, eris.Wrapf(err, "parse offer facts %s", path)
	}
	return facts, nil
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
