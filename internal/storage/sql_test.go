package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectRebind(t *testing.T) {
	query := `SELECT payload FROM runs WHERE id = ? AND created_at > ?`
	assert.Equal(t, query, dialects[KindSQLite].rebind(query))
	assert.Equal(t, query, dialects[KindMySQL].rebind(query))
	assert.Equal(t, `SELECT payload FROM runs WHERE id = $1 AND created_at > $2`, dialects[KindPostgres].rebind(query))
}

func TestDialectUpsert(t *testing.T) {
	cols := []string{"run_id", "payload"}
	assert.Equal(t,
		"INSERT INTO fitness_history (run_id, payload) VALUES (?, ?) ON CONFLICT(run_id) DO UPDATE SET payload = excluded.payload",
		dialects[KindSQLite].upsert("fitness_history", "run_id", cols))
	assert.Equal(t,
		"INSERT INTO fitness_history (run_id, payload) VALUES ($1, $2) ON CONFLICT(run_id) DO UPDATE SET payload = excluded.payload",
		dialects[KindPostgres].upsert("fitness_history", "run_id", cols))
	assert.Equal(t,
		"INSERT INTO fitness_history (run_id, payload) VALUES (?, ?) ON DUPLICATE KEY UPDATE payload = VALUES(payload)",
		dialects[KindMySQL].upsert("fitness_history", "run_id", cols))
}

func TestDialectSchemaTypes(t *testing.T) {
	for kind, wantBlob := range map[string]string{KindSQLite: "BLOB", KindPostgres: "BYTEA", KindMySQL: "LONGBLOB"} {
		stmts := dialects[kind].schema()
		require.Len(t, stmts, 3)
		for _, stmt := range stmts {
			assert.Contains(t, stmt, "payload "+wantBlob, kind)
		}
	}
	assert.Contains(t, dialects[KindMySQL].schema()[0], "id VARCHAR(64) PRIMARY KEY")
}

func TestSQLStoreRequiresLocationAndInit(t *testing.T) {
	_, err := NewSQLStore("oracle", "x")
	assert.Error(t, err)

	store := NewSQLiteStore("")
	assert.Error(t, store.Init(context.Background()))

	_, _, err = store.GetRun(context.Background(), "r1")
	assert.ErrorIs(t, err, ErrNotInitialized)
	assert.NoError(t, store.Close())
}
