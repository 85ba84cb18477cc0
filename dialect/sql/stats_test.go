package sql

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassett/relgraph/dialect"
)

func TestStatsDriver(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db))

	mock.ExpectQuery("SELECT 1").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectQuery("SELECT 2").WillReturnError(errors.New("boom"))
	mock.ExpectExec("DELETE").WillReturnResult(sqlmock.NewResult(0, 1))

	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	require.Error(t, drv.Query(context.Background(), "SELECT 2", []any{}, rows))
	require.NoError(t, drv.Exec(context.Background(), "DELETE FROM users", []any{}, nil))
	require.NoError(t, mock.ExpectationsWereMet())

	stats := drv.QueryStats().Stats()
	assert.EqualValues(t, 2, stats.TotalQueries)
	assert.EqualValues(t, 1, stats.TotalExecs)
	assert.EqualValues(t, 1, stats.Errors)
	assert.EqualValues(t, 0, stats.SlowQueries)
	assert.Equal(t, dialect.Postgres, drv.Dialect())
	assert.Contains(t, stats.String(), "queries=2 execs=1")

	drv.QueryStats().Reset()
	assert.Equal(t, StatsSnapshot{}, drv.QueryStats().Stats())
}

func TestStatsDriverSlowQuery(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	var (
		buf    bytes.Buffer
		logger = slog.New(slog.NewTextHandler(&buf, nil))
		slow   []string
	)
	drv := NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(time.Nanosecond),
		WithSlowQueryLog(logger),
	)
	mock.ExpectQuery("SELECT 1").
		WillDelayFor(time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT 1", []any{}, rows))
	require.NoError(t, rows.Close())
	assert.EqualValues(t, 1, drv.QueryStats().Stats().SlowQueries)
	assert.Contains(t, buf.String(), "slow query detected")

	drv = NewStatsDriver(OpenDB(dialect.Postgres, db),
		WithSlowThreshold(time.Nanosecond),
		WithSlowQueryHook(func(_ context.Context, query string, _ []any, _ time.Duration) {
			slow = append(slow, query)
		}),
	)
	mock.ExpectQuery("SELECT 2").
		WillDelayFor(time.Millisecond).
		WillReturnRows(sqlmock.NewRows([]string{"2"}).AddRow(2))
	require.NoError(t, drv.Query(context.Background(), "SELECT 2", []any{}, rows))
	require.NoError(t, rows.Close())
	assert.Equal(t, []string{"SELECT 2"}, slow)
	require.NoError(t, mock.ExpectationsWereMet())
}
