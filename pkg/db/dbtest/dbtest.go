// Package dbtest opens throwaway sqlite databases for repository tests.
package dbtest

import (
	"context"
	"testing"

	"github.com/angelmondragon/kinfortune-backend/pkg/config"
	"github.com/angelmondragon/kinfortune-backend/pkg/db"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// NewSQLite returns an in-memory database with the given models migrated.
func NewSQLite(t *testing.T, models ...any) *gorm.DB {
	t.Helper()
	client, err := db.New(context.Background(), config.DBConfig{Driver: db.DriverSQLite, DSN: "file::memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	if len(models) > 0 {
		require.NoError(t, client.DB().AutoMigrate(models...))
	}
	return client.DB()
}
