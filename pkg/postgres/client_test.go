package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitSchemaRunsInOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	c := NewFromDB(db)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS a`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS b`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	require.NoError(t, c.InitSchema(context.Background(), []string{
		"CREATE TABLE IF NOT EXISTS a (id int)",
		"CREATE INDEX IF NOT EXISTS b ON a (id)",
	}))
	require.NoError(t, c.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitSchemaStopsOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))

	err = NewFromDB(db).InitSchema(context.Background(), []string{"CREATE TABLE x (id int)", "CREATE TABLE y (id int)"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init schema")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewClientRequiresDSN(t *testing.T) {
	_, err := NewClient()
	assert.Error(t, err)
}
