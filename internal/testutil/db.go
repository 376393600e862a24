// Package testutil builds throwaway ledger stores for package tests.
package testutil

import (
	"testing"

	"tourneypay/internal/models"
	"tourneypay/internal/repositories"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDB opens a migrated in-memory sqlite store. The pool is pinned to one
// connection: sqlite has no row locks, so a single connection is what
// serializes concurrent ledger transactions in tests.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), repositories.GormConfig(zap.NewNop()))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, repositories.Migrate(db))
	return db
}

// SeedUser inserts an active user with the given role.
func SeedUser(t *testing.T, db *gorm.DB, id uint, username, role string) *models.User {
	t.Helper()

	user := &models.User{ID: id, Username: username, Role: role, Status: models.UserStatusActive}
	require.NoError(t, db.Create(user).Error)
	return user
}
