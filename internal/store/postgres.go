package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/foerderwerk/rulecore/internal/model"
)

// PgxIface is the pool subset the postgres store needs. It matches both
// *pgxpool.Pool and pgxmock's pool interface.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store on a pgx connection pool.
type PostgresStore struct {
	pool PgxIface
}

// NewPostgres connects to the database at the given URL.
func NewPostgres(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests.
func NewPostgresWithPool(pool PgxIface) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS bundles (
	id          TEXT PRIMARY KEY,
	built_at    TIMESTAMPTZ NOT NULL,
	source_hash TEXT NOT NULL,
	spec_count  INTEGER NOT NULL,
	payload     JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS bundle_events (
	id        TEXT PRIMARY KEY,
	bundle_id TEXT NOT NULL REFERENCES bundles(id),
	state     TEXT NOT NULL,
	note      TEXT,
	at        TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS build_reports (
	id         TEXT PRIMARY KEY,
	bundle_id  TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS evaluations (
	id         TEXT PRIMARY KEY,
	case_id    TEXT NOT NULL,
	bundle_id  TEXT NOT NULL,
	payload    JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bundle_events_bundle_id ON bundle_events(bundle_id);
CREATE INDEX IF NOT EXISTS idx_bundle_events_state ON bundle_events(state);
CREATE INDEX IF NOT EXISTS idx_evaluations_case_id ON evaluations(case_id);
CREATE INDEX IF NOT EXISTS idx_build_reports_bundle_id ON build_reports(bundle_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) SaveBundle(ctx context.Context, b *model.Bundle) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal bundle")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO bundles (id, built_at, source_hash, spec_count, payload) VALUES ($1, $2, $3, $4, $5)`,
		b.BundleID, b.BuiltAt.UTC(), b.SourceHash, len(b.Specs), payload,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert bundle %s", b.BundleID)
	}
	return s.RecordBundleState(ctx, b.BundleID, b.State, "")
}

func (s *PostgresStore) GetBundle(ctx context.Context, bundleID string) (*model.Bundle, error) {
	row := s.pool.QueryRow(ctx, `SELECT payload FROM bundles WHERE id = $1`, bundleID)
	return scanBundlePgx(row)
}

func (s *PostgresStore) RecordBundleState(ctx context.Context, bundleID string, state model.BundleState, note string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO bundle_events (id, bundle_id, state, note, at) VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), bundleID, string(state), note, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: record state %s for bundle %s", state, bundleID)
}

func (s *PostgresStore) ActiveBundle(ctx context.Context) (*model.Bundle, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT b.payload
		FROM bundle_events e
		JOIN bundles b ON b.id = e.bundle_id
		WHERE e.state = 'active'
		ORDER BY e.at DESC
		LIMIT 1`)
	b, err := scanBundlePgx(row)
	if err != nil {
		return nil, err
	}
	if b != nil {
		b.State = model.BundleActive
	}
	return b, nil
}

func (s *PostgresStore) ListBundles(ctx context.Context, limit int) ([]BundleMeta, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT b.id, b.built_at, b.source_hash, b.spec_count,
			COALESCE((SELECT e.state FROM bundle_events e
				WHERE e.bundle_id = b.id
				ORDER BY e.at DESC LIMIT 1), '') AS state
		FROM bundles b
		ORDER BY b.built_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list bundles")
	}
	defer rows.Close()

	var metas []BundleMeta
	for rows.Next() {
		var m BundleMeta
		if err := rows.Scan(&m.BundleID, &m.BuiltAt, &m.SourceHash, &m.SpecCount, &m.State); err != nil {
			return nil, eris.Wrap(err, "postgres: scan bundle meta")
		}
		metas = append(metas, m)
	}
	return metas, eris.Wrap(rows.Err(), "postgres: iterate bundles")
}

func (s *PostgresStore) SaveBuildReport(ctx context.Context, report *model.BuildReport) error {
	if report.ID == "" {
		report.ID = uuid.New().String()
	}
	payload, err := json.Marshal(report)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal build report")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO build_reports (id, bundle_id, payload, created_at) VALUES ($1, $2, $3, $4)`,
		report.ID, report.BundleID, payload, report.BuiltAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert build report %s", report.ID)
}

func (s *PostgresStore) LatestBuildReport(ctx context.Context) (*model.BuildReport, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT payload FROM build_reports ORDER BY created_at DESC LIMIT 1`)
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: latest build report")
	}
	var report model.BuildReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal build report")
	}
	return &report, nil
}

func (s *PostgresStore) SaveEvaluation(ctx context.Context, result *model.CaseResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal evaluation")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO evaluations (id, case_id, bundle_id, payload, created_at) VALUES ($1, $2, $3, $4, $5)`,
		result.ID, result.CaseID, result.BundleID, payload, result.GeneratedAt.UTC(),
	)
	return eris.Wrapf(err, "postgres: insert evaluation %s", result.ID)
}

func (s *PostgresStore) ListEvaluations(ctx context.Context, caseID string, limit int) ([]model.CaseResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT payload FROM evaluations WHERE case_id = $1 ORDER BY created_at DESC LIMIT $2`,
		caseID, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list evaluations for %s", caseID)
	}
	defer rows.Close()

	var results []model.CaseResult
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "postgres: scan evaluation")
		}
		var result model.CaseResult
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal evaluation")
		}
		results = append(results, result)
	}
	return results, eris.Wrap(rows.Err(), "postgres: iterate evaluations")
}

func scanBundlePgx(row pgx.Row) (*model.Bundle, error) {
	var payload []byte
	if err := row.Scan(&payload); err != nil {
		if eris.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: scan bundle")
	}
	var b model.Bundle
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal bundle")
	}
	return &b, nil
}
