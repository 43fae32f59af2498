package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/wayback-journey/internal/checkpoint"
)

func newMockBackend(t *testing.T) (*Backend, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	backend, err := NewWithPool(mock, "checkpoints")
	require.NoError(t, err)
	return backend, mock
}

func TestWriteUpsertsRow(t *testing.T) {
	t.Parallel()

	backend, mock := newMockBackend(t)
	mock.ExpectExec("INSERT INTO checkpoints").
		WithArgs("shop/links/2020.json", []byte(`{"a":1}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, backend.Write(context.Background(), "shop/links/2020.json", []byte(`{"a":1}`)))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadReturnsBody(t *testing.T) {
	t.Parallel()

	backend, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT body FROM checkpoints").
		WithArgs("shop/links/2020.json").
		WillReturnRows(pgxmock.NewRows([]string{"body"}).AddRow([]byte(`{"a":1}`)))

	data, err := backend.Read(context.Background(), "shop/links/2020.json")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReadMissingRow(t *testing.T) {
	t.Parallel()

	backend, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT body FROM checkpoints").
		WithArgs("shop/links/1999.json").
		WillReturnRows(pgxmock.NewRows([]string{"body"}))

	_, err := backend.Read(context.Background(), "shop/links/1999.json")
	require.ErrorIs(t, err, checkpoint.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExists(t *testing.T) {
	t.Parallel()

	backend, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("shop/links/2020.json").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := backend.Exists(context.Background(), "shop/links/2020.json")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListEscapesLikePattern(t *testing.T) {
	t.Parallel()

	backend, mock := newMockBackend(t)
	mock.ExpectQuery("SELECT name FROM checkpoints").
		WithArgs(`my\_shop/links/%`).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).
			AddRow("my_shop/links/2019.json").
			AddRow("my_shop/links/2020.json"))

	names, err := backend.List(context.Background(), "my_shop/links/")
	require.NoError(t, err)
	assert.Equal(t, []string{"my_shop/links/2019.json", "my_shop/links/2020.json"}, names)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeletePrefix(t *testing.T) {
	t.Parallel()

	backend, mock := newMockBackend(t)
	mock.ExpectExec("DELETE FROM checkpoints").
		WithArgs("shop/%").
		WillReturnResult(pgxmock.NewResult("DELETE", 4))

	require.NoError(t, backend.DeletePrefix(context.Background(), "shop/"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	backend, mock := newMockBackend(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS checkpoints").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, backend.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWritePropagatesErrors(t *testing.T) {
	t.Parallel()

	backend, mock := newMockBackend(t)
	mock.ExpectExec("INSERT INTO checkpoints").
		WithArgs("x.json", []byte("{}")).
		WillReturnError(errors.New("connection reset"))

	err := backend.Write(context.Background(), "x.json", []byte("{}"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert checkpoint")
}

func TestNewWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "bad-name;")
	assert.Error(t, err)
	_, err = NewWithPool(nil, "")
	assert.Error(t, err)

	b, err := NewWithPool(mock, "")
	require.NoError(t, err)
	assert.Equal(t, defaultTable, b.table)
}
