package services

import (
	"fmt"
	"testing"

	"microlearn/backend/models"
	"microlearn/backend/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// newTestDB opens a fresh in-memory sqlite database with the full schema.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := utils.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	if err := SeedCatalog(db); err != nil {
		t.Fatalf("seed achievements: %v", err)
	}
	return db
}

func newTestUser(t *testing.T, db *gorm.DB) models.User {
	t.Helper()

	user := models.User{
		Username: "learner-" + uuid.NewString()[:8],
		Email:    uuid.NewString()[:8] + "@example.com",
		Timezone: "UTC",
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	return user
}

func newTestLesson(t *testing.T, db *gorm.DB, lessonType string) models.Lesson {
	t.Helper()

	lesson := models.Lesson{
		Title:       "Lesson " + uuid.NewString()[:8],
		Slug:        "lesson-" + uuid.NewString()[:8],
		Type:        lessonType,
		IsPublished: true,
	}
	if err := db.Create(&lesson).Error; err != nil {
		t.Fatalf("create test lesson: %v", err)
	}
	return lesson
}

func newTestProgressService(db *gorm.DB) *ProgressService {
	log := zap.NewNop()
	mailer := NewMailer("", "test@example.com", "http://localhost", log)
	achievements := NewAchievementService(db, mailer, log)
	return NewProgressService(db, achievements, log)
}
