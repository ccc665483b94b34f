package utils

import (
	"fmt"
	"microlearn/backend/config"
	"microlearn/backend/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate runs AutoMigrate for every model. Tests reuse it against sqlite.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.WebhookEvent{},
		&models.Category{},
		&models.Lesson{},
		&models.QuizQuestion{},
		&models.UserProgress{},
		&models.UserStreak{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Blog{},
		&models.Career{},
		&models.Announcement{},
	)
}
