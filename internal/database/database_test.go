package database

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	t.Run("applies embedded migrations", func(t *testing.T) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS addresses").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := Migrate(context.Background(), db)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports the failing file", func(t *testing.T) {
		mock.ExpectExec("CREATE TABLE IF NOT EXISTS addresses").
			WillReturnError(errors.New("permission denied"))

		err := Migrate(context.Background(), db)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "001_init.sql")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConfigDSN(t *testing.T) {
	viper.Set("database.host", "db.internal")
	viper.Set("database.name", "wallet_test")
	defer viper.Reset()

	cfg := GetConfig()
	assert.Equal(t, "host=db.internal port=5432 user=postgres password=password dbname=wallet_test sslmode=disable", cfg.DSN())

	viper.Set("mysql.port", 3307)
	mysqlCfg := GetMySQLConfig()
	assert.Equal(t, "root:password@tcp(localhost:3307)/wallet?charset=utf8mb4&parseTime=True&loc=UTC", mysqlCfg.DSN())
}
