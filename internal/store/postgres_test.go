package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foerderwerk/rulecore/internal/model"
)

func newMockStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_SaveBundle(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	b := testBundle(model.BundleValidated)

	mock.ExpectExec("INSERT INTO bundles").
		WithArgs(b.BundleID, pgxmock.AnyArg(), b.SourceHash, 1, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO bundle_events").
		WithArgs(pgxmock.AnyArg(), b.BundleID, string(model.BundleValidated), "", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.SaveBundle(context.Background(), b))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBundle(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	b := testBundle(model.BundleActive)
	payload, err := json.Marshal(b)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT payload FROM bundles WHERE id").
		WithArgs(b.BundleID).
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := st.GetBundle(context.Background(), b.BundleID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, b.BundleID, got.BundleID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetBundle_Missing(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT payload FROM bundles WHERE id").
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)

	got, err := st.GetBundle(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ActiveBundle(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	b := testBundle(model.BundleValidated)
	payload, err := json.Marshal(b)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT b.payload").
		WillReturnRows(pgxmock.NewRows([]string{"payload"}).AddRow(payload))

	got, err := st.ActiveBundle(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.BundleActive, got.State, "state reflects the event that selected it")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveEvaluation(t *testing.T) {
	t.Parallel()

	st, mock := newMockStore(t)
	result := &model.CaseResult{ID: "eval-1", CaseID: "case-1", BundleID: "bundle-1"}

	mock.ExpectExec("INSERT INTO evaluations").
		WithArgs(result.ID, result.CaseID, result.BundleID, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, st.SaveEvaluation(context.Background(), result))
	require.NoError(t, mock.ExpectationsWereMet())
}
