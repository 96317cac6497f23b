package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/foerderwerk/rulecore/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given DSN and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS bundles (
	id          TEXT PRIMARY KEY,
	built_at    DATETIME NOT NULL,
	source_hash TEXT NOT NULL,
	spec_count  INTEGER NOT NULL,
	payload     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS bundle_events (
	id        TEXT PRIMARY KEY,
	bundle_id TEXT NOT NULL REFERENCES bundles(id),
	state     TEXT NOT NULL,
	note      TEXT,
	at        DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS build_reports (
	id         TEXT PRIMARY KEY,
	bundle_id  TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluations (
	id         TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL,
	bundle_id  TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bundle_events_bundle_id ON bundle_events(bundle_id);
CREATE INDEX IF NOT EXISTS idx_bundle_events_state ON bundle_events(state);
CREATE INDEX IF NOT EXISTS idx_evaluations_case_id ON evaluations(case_id);
CREATE INDEX IF NOT EXISTS idx_build_reports_bundle_id ON build_reports(bundle_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveBundle(ctx context.Context, b *model.Bundle) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal bundle")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO bundles (id, built_at, source_hash, spec_count, payload) VALUES (?, ?, ?, ?, ?)`,
		b.BundleID, b.BuiltAt.UTC(), b.SourceHash, len(b.Specs), string(payload),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert bundle %s", b.BundleID)
	}
	return s.RecordBundleState(ctx, b.BundleID, b.State, "")
}

func (s *SQLiteStore) GetBundle(ctx context.Context, bundleID string) (*model.Bundle, error) {
	row := s.db.QueryRowContext(ctx, `SELECT payload FROM bundles WHERE id = ?`, bundleID)
	return scanBundle(row)
}

func (s *SQLiteStore) RecordBundleState(ctx context.Context, bundleID string, state model.BundleState, note string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO bundle_events (id, bundle_id, state, note, at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), bundleID, string(state), note, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: record state %s for bundle %s", state, bundleID)
}

func (s *SQLiteStore) ActiveBundle(ctx context.Context) (*model.Bundle, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT b.payload
		FROM bundle_events e
		JOIN bundles b ON b.id = e.bundle_id
		WHERE e.state = 'active'
		ORDER BY e.at DESC, e.rowid DESC
		LIMIT 1`)
	b, err := scanBundle(row)
	if err != nil {
		return nil, err
	}
	if b != nil {
		b.State = model.BundleActive
	}
	return b, nil
}

func (s *SQLiteStore) ListBundles(ctx context.Context, limit int) ([]BundleMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT b.id, b.built_at, b.source_hash, b.spec_count,
			(SELECT e.state FROM bundle_events e
			 WHERE e.bundle_id = b.id
			 ORDER BY e.at DESC, e.rowid DESC LIMIT 1) AS state
		FROM bundles b
		ORDER BY b.built_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list bundles")
	}
	defer rows.Close()

	var metas []BundleMeta
	for rows.Next() {
		var m BundleMeta
		var state sql.NullString
		if err := rows.Scan(&m.BundleID, &m.BuiltAt, &m.SourceHash, &m.SpecCount, &state); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan bundle meta")
		}
		m.State = state.String
		metas = append(metas, m)
	}
	return metas, eris.Wrap(rows.Err(), "sqlite: iterate bundles")
}

func (s *SQLiteStore) SaveBuildReport(ctx context.Context, report *model.BuildReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal build report")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO build_reports (id, bundle_id, payload, created_at) VALUES (?, ?, ?, ?)`,
		report.ID, report.BundleID, string(payload), report.BuiltAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert build report %s", report.ID)
}

func (s *SQLiteStore) LatestBuildReport(ctx context.Context) (*model.BuildReport, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT payload FROM build_reports ORDER BY created_at DESC, rowid DESC LIMIT 1`)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: latest build report")
	}
	var report model.BuildReport
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal build report")
	}
	return &report, nil
}

func (s *SQLiteStore) SaveEvaluation(ctx context.Context, result *model.CaseResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal evaluation")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO evaluations (id, case_id, bundle_id, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		result.ID, result.CaseID, result.BundleID, string(payload), result.GeneratedAt.UTC(),
	)
	return eris.Wrapf(err, "sqlite: insert evaluation %s", result.ID)
}

func (s *SQLiteStore) ListEvaluations(ctx context.Context, caseID string, limit int) ([]model.CaseResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT payload FROM evaluations WHERE case_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		caseID, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list evaluations for %s", caseID)
	}
	defer rows.Close()

	var results []model.CaseResult
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan evaluation")
		}
		var result model.CaseResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal evaluation")
		}
		results = append(results, result)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: iterate evaluations")
}

// scanBundle decodes a bundle payload row; a missing row yields (nil, nil).
func scanBundle(row *sql.Row) (*model.Bundle, error) {
	var payload string
	if err := row.Scan(&payload); err != nil {
		if eris.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: scan bundle")
	}
	var b model.Bundle
	if err := json.Unmarshal([]byte(payload), &b); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal bundle")
	}
	return &b, nil
}
