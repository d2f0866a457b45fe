package db

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, "$3,$4,$5", Postgres.Placeholders(3, 3))
	assert.Equal(t, "?,?", SQLite.Placeholders(1, 2))
	assert.Equal(t, "", SQLite.Placeholders(1, 0))
}

func TestRebind(t *testing.T) {
	q := "SELECT a FROM t WHERE x = ? AND y IN (?, ?)"
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y IN ($2, $3)", Postgres.Rebind(q))
	assert.Equal(t, q, SQLite.Rebind(q))
}

func TestTimeScan(t *testing.T) {
	want := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	for _, in := range []any{want, "2026-03-14T09:26:53Z", []byte("2026-03-14 09:26:53+00:00"), "2026-03-14 17:26:53+08:00"} {
		var got Time
		require.NoError(t, got.Scan(in))
		assert.True(t, got.Valid)
		assert.True(t, want.Equal(got.Time), "%v", in)
	}

	var null Time
	require.NoError(t, null.Scan(nil))
	assert.False(t, null.Valid)

	assert.Error(t, null.Scan("yesterday"))
	assert.Error(t, null.Scan(42))
}

func TestOpenSQLiteMemory(t *testing.T) {
	conn, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer conn.Close()

	var fk int
	require.NoError(t, conn.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}
