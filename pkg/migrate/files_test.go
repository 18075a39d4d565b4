package migrate

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	require.NoError(t, ValidateFS(Migrations()))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "migrations")
	now := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)

	path, err := createAt(dir, "Add Tarot History!", now)
	require.NoError(t, err)
	assert.Equal(t, "20250701093000_add_tarot_history.sql", filepath.Base(path))

	body, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(body), "-- +goose Up")
	assert.Contains(t, string(body), "-- +goose Down")
	require.NoError(t, ValidateDir(dir))

	_, err = createAt(dir, "add tarot history", now)
	assert.Error(t, err, "same version and slug must not overwrite")

	_, err = createAt(dir, "!!!", now)
	assert.Error(t, err)
}

func TestValidateFSCollectsEveryProblem(t *testing.T) {
	ok := []byte("-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n")
	fsys := fstest.MapFS{
		"20250101000000_first.sql":  {Data: ok},
		"20250101000000_second.sql": {Data: ok},
		"bad-name.sql":              {Data: ok},
		"20250102000000_noup.sql":   {Data: []byte("-- +goose Down\n")},
		"README.md":                 {Data: []byte("ignored")},
	}

	err := ValidateFS(fsys)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)
}
