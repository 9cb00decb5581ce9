// Package dbtest opens throwaway SQLite databases for tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"groupfinder/internal/db"
	"groupfinder/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New returns a migrated database stored under t.TempDir().
func New(t testing.TB) *gorm.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "groupfinder_test.db")
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// User inserts a user with the given role.
func User(t testing.TB, gdb *gorm.DB, username, role string) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.org",
		Password: "x",
		Role:     role,
	}
	if err := gdb.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// Group inserts a pending group submitted by owner.
func Group(t testing.TB, gdb *gorm.DB, owner *models.User, name string) *models.Group {
	t.Helper()

	var cat models.Category
	if err := gdb.Where(models.Category{Slug: "general"}).
		Attrs(models.Category{Name: "General"}).
		FirstOrCreate(&cat).Error; err != nil {
		t.Fatalf("create category: %v", err)
	}

	g := &models.Group{
		Gid:         uuid.NewString()[:8],
		Name:        name,
		URL:         "https://www.facebook.com/groups/" + name,
		CategoryID:  cat.ID,
		SubmittedBy: owner.ID,
	}
	if err := gdb.Create(g).Error; err != nil {
		t.Fatalf("create group: %v", err)
	}
	return g
}
