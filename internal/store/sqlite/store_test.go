package sqlite

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shrimpsizemoose/gradebook/internal/store/storetest"
)

// setupTestDB creates an in-memory SQLite database with the gradebook schema and fixtures
func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	s, err := NewSQLiteStore(":memory:", "../../../migrations")
	require.NoError(t, err, "Failed to create store")

	fixtures, err := os.ReadFile("../testdata/fixtures.sql")
	require.NoError(t, err, "Failed to read fixtures")

	_, err = s.DB.Exec(string(fixtures))
	require.NoError(t, err, "Failed to load fixtures")

	cleanup := func() {
		err := s.Close()
		require.NoError(t, err, "Failed to close database")
	}

	return s, cleanup
}

func TestSQLiteStore(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	storetest.Run(t, s)
}

func TestMigrationsAreRepeatable(t *testing.T) {
	s, cleanup := setupTestDB(t)
	defer cleanup()

	require.NoError(t, s.ApplyMigrations("../../../migrations"))

	var count int
	require.NoError(t, s.DB.Get(&count, `SELECT COUNT(*) FROM test_activities`))
	assert.Equal(t, 4, count)
}

func TestTranslateToSQLite(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"double", "score DOUBLE PRECISION", "score REAL"},
		{"bigint", "created_at BIGINT NOT NULL", "created_at INTEGER NOT NULL"},
		{"jsonb", "doc JSONB NOT NULL", "doc TEXT NOT NULL"},
		{"booleans", "DEFAULT FALSE, DEFAULT TRUE", "DEFAULT 0, DEFAULT 1"},
		{"untouched", "id TEXT PRIMARY KEY", "id TEXT PRIMARY KEY"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, translateToSQLite(tt.in))
		})
	}
}

func TestMissingMigrationsDir(t *testing.T) {
	_, err := NewSQLiteStore(":memory:", "./does-not-exist")
	assert.Error(t, err)
}
