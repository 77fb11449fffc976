package database

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpenSQLiteInMemory(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.True(t, db.Migrator().HasTable("slots"))
	require.True(t, db.Migrator().HasTable("outbox_notifications"))
	require.True(t, db.Migrator().HasTable("reservation_locks"))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "hiredeck", Name: "hiredeck", Host: "db", Port: 5433})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=db")
	require.Contains(t, dsn, "port=5433")
	require.Contains(t, dsn, "sslmode=disable")

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "hiredeck", Password: "secret", Name: "hiredeck"})
	require.NoError(t, err)
	require.Contains(t, dsn, "hiredeck:secret@tcp(127.0.0.1:3306)/hiredeck")
	require.Contains(t, dsn, "parseTime=True")
}
