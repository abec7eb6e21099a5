// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"dropview/internal/database"
	"dropview/internal/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var userSeq atomic.Uint64

// NewDB opens a migrated in-memory sqlite database that lives for the test.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// Every connection to :memory: is a fresh database.
	sqlDB.SetMaxOpenConns(1)

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewUser builds a valid, unsaved user with unique identity fields.
func NewUser() *models.User {
	n := userSeq.Add(1)
	code := fmt.Sprintf("T%07d", n)
	return &models.User{
		Username: fmt.Sprintf("user%d@example.com", n),
		Password: "$2a$04$placeholderplaceholderplaceholderplaceholderplaceho",
		Name:     fmt.Sprintf("User %d", n),
		Phone:    fmt.Sprintf("+1555%07d", n),
		Address: models.Address{
			Street: "1 Main St",
			City:   "Springfield",
			Zip:    "12345",
		},
		AgeRange:           "25-34",
		MaritalStatus:      "single",
		StylePreference:    "casual",
		GenderIdentity:     "female",
		FamilySize:         "2",
		ProductPreferences: []string{"skincare"},
		TryFrequency:       "monthly",
		ReferralCode:       &code,
	}
}

// CreateUser persists a NewUser, applying optional mutations first.
func CreateUser(t testing.TB, db *gorm.DB, mutate ...func(*models.User)) *models.User {
	t.Helper()
	u := NewUser()
	for _, m := range mutate {
		m(u)
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
