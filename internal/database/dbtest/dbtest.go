// Package dbtest wires an in-memory sqlite database into database.DB for tests.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"obra-manager/internal/access"
	"obra-manager/internal/database"
	"obra-manager/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens a private in-memory database, migrates it and installs it as
// database.DB until the test ends.
func New(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection keeps the shared in-memory database alive and avoids
	// sqlite table locks between goroutines
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() {
		database.DB = prev
		_ = sqlDB.Close()
	})
	return db
}

// User stores a user with the given role's default permissions and projects.
func User(t testing.TB, username string, role models.UserRole, projects ...uint) *models.User {
	t.Helper()

	u, err := database.CreateUser(username, "Password123!", role, access.DefaultRoles())
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	if len(projects) > 0 {
		u.ProyectosAsignados = projects
		if err := database.DB.Save(u).Error; err != nil {
			t.Fatalf("assign projects: %v", err)
		}
	}
	return u
}
