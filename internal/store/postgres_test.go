package store

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS placefinder_kv`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`SELECT value FROM placefinder_kv WHERE key = \$1`).
		WithArgs("cache:grid").
		WillReturnRows(pgxmock.NewRows([]string{"value"}).AddRow([]byte(`{"k":1}`)))

	got, err := s.Get(context.Background(), "cache:grid")
	require.NoError(t, err)
	assert.Equal(t, `{"k":1}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`SELECT value FROM placefinder_kv`).
		WithArgs("usage:stats").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Get(context.Background(), "usage:stats")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_Error(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`SELECT value FROM placefinder_kv`).
		WithArgs("usage:stats").
		WillReturnError(errors.New("connection refused"))

	_, err := s.Get(context.Background(), "usage:stats")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "postgres: get usage:stats")
}

func TestPostgresStore_Set(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`INSERT INTO placefinder_kv .* ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("cache:lastSearch", []byte(`{}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Set(context.Background(), "cache:lastSearch", []byte(`{}`)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectExec(`DELETE FROM placefinder_kv WHERE key = \$1`).
		WithArgs("cache:tips").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	require.NoError(t, s.Delete(context.Background(), "cache:tips"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Keys(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	mock.ExpectQuery(`SELECT key FROM placefinder_kv WHERE starts_with\(key, \$1\)`).
		WithArgs("cache:").
		WillReturnRows(pgxmock.NewRows([]string{"key"}).AddRow("cache:grid").AddRow("cache:tips"))

	keys, err := s.Keys(context.Background(), "cache:")
	require.NoError(t, err)
	assert.Equal(t, []string{"cache:grid", "cache:tips"}, keys)
	assert.NoError(t, mock.ExpectationsWereMet())
}
