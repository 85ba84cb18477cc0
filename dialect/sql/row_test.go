package sql

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kassett/relgraph/dialect"
)

func TestScanRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id", "name", "owner_id"}).
			AddRow(1, []byte("a8m"), nil).
			AddRow(2, "nati", 1),
	)
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT * FROM users", []any{}, rows))
	users, err := ScanRows(rows, "User")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "User", users[0].EntityName())
	assert.Equal(t, "a8m", users[0].Get("name"), "bytes are stored as strings")
	assert.Nil(t, users[0].Get("owner_id"))
	assert.Nil(t, users[0].Get("missing"))
	assert.Equal(t, "User(id=2, name=nati, owner_id=1)", users[1].String())
	require.NoError(t, mock.ExpectationsWereMet())

	var nilRow *Row
	assert.Nil(t, nilRow.Get("id"))
}

func TestScanRowsError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	drv := OpenDB(dialect.Postgres, db)

	mock.ExpectQuery("SELECT").WillReturnRows(
		sqlmock.NewRows([]string{"id"}).
			AddRow(1).
			RowError(0, errors.New("broken row")),
	)
	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT * FROM users", []any{}, rows))
	_, err = ScanRows(rows, "User")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken row")
}

func TestKey(t *testing.T) {
	assert.Equal(t, "1", key(int64(1)))
	assert.Equal(t, "1", key([]byte("1")))
	assert.Equal(t, "1", key("1"))
	assert.Equal(t, "<nil>", key(nil))
}

func TestDistinct(t *testing.T) {
	assert.Equal(t, []any{int64(1), "2"}, distinct([]any{int64(1), nil, "2", "1", int64(1)}))
	assert.Empty(t, distinct(nil))
}
