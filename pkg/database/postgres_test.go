package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverName(t *testing.T) {
	name, err := driverName("")
	require.NoError(t, err)
	assert.Equal(t, "postgres", name)

	name, err = driverName("pgx")
	require.NoError(t, err)
	assert.Equal(t, "pgx", name)

	_, err = driverName("sqlite3")
	assert.Error(t, err)
}

func TestMigrateAppliesSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sqlxDB := sqlx.NewDb(db, "sqlmock")
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS estudiantes").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), sqlxDB))
	assert.Contains(t, Schema(), "CREATE TABLE IF NOT EXISTS asistencias")
	require.NoError(t, mock.ExpectationsWereMet())
}
