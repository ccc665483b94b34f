package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	AchievementTypeCompletion = "completion"
	AchievementTypeStreak     = "streak"
	AchievementTypeScore      = "score"
	AchievementTypeSpecial    = "special"
)

type Achievement struct {
	gorm.Model
	Name        string `gorm:"unique;not null"`
	Description string
	Icon        string
	Type        string `gorm:"not null"` // completion, streak, score, special

	// Criteria thresholds. Which ones apply depends on Type.
	LessonsRequired int
	StreakRequired  int
	ScoreRequired   int
	CountRequired   int

	Points int `gorm:"default:10"`
}

type UserAchievement struct {
	gorm.Model
	UserID        uint `gorm:"uniqueIndex:idx_user_achievement;not null"`
	AchievementID uint `gorm:"uniqueIndex:idx_user_achievement;not null"`
	Achievement   Achievement
	UnlockedAt    time.Time
}
