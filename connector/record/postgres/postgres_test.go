package postgres

import (
	"context"
	"testing"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/flowmesh/flowmesh/connector"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	s := &Store{pool: mock, table: "flowmesh_records"}
	return s, mock
}

func TestStoreReadScansRow(t *testing.T) {
	s, mock := newMockStore(t)

	rows := pgxmock.NewRows([]string{"key", "value", "attributes"}).
		AddRow("a", []byte("hello"), map[string]string{"kind": "greeting"})
	mock.ExpectQuery("SELECT key, value, attributes").WithArgs("a").WillReturnRows(rows)

	rec, err := s.Read(context.Background(), "a")
	require.NoError(t, err)
	require.Equal(t, []byte("hello"), rec.Value)
	require.Equal(t, "greeting", rec.Attributes["kind"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreWriteBatchCommitsTransaction(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO flowmesh_records").WithArgs("a", []byte("hello"), map[string]string(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err := s.WriteBatch(context.Background(), []connector.Record{{Key: "a", Value: []byte("hello")}})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreWriteBatchEmptyIsNoop(t *testing.T) {
	s, _ := newMockStore(t)
	require.NoError(t, s.WriteBatch(context.Background(), nil))
}
