package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	for _, set := range []MigrationSet{EnrollmentSchema, ProgressSchema} {
		entries, err := fs.ReadDir(migrationFS, "migrations/"+string(set))
		require.NoError(t, err)

		ups, downs := 0, 0
		for _, entry := range entries {
			switch {
			case strings.HasSuffix(entry.Name(), ".up.sql"):
				ups++
			case strings.HasSuffix(entry.Name(), ".down.sql"):
				downs++
			}
		}
		assert.Greater(t, ups, 0, string(set))
		assert.Equal(t, ups, downs, string(set))
	}
}

func TestEnrollmentSchemaKeepsDroppedRowsOutOfUniqueness(t *testing.T) {
	raw, err := fs.ReadFile(migrationFS, "migrations/enrollment/000001_create_enrollments.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "WHERE status <> 'DROPPED'")
}
