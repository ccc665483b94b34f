package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserProgress struct {
	gorm.Model
	UserID       uint `gorm:"uniqueIndex:idx_user_lesson;not null"`
	LessonID     uint `gorm:"uniqueIndex:idx_user_lesson;not null"`
	Completed    bool `gorm:"default:false"`
	CompletedAt  *time.Time
	Score        *int           // percentage, quiz lessons only
	TimeSpent    int            `gorm:"default:0"` // seconds
	Attempts     int            `gorm:"default:1"`
	WatchPercent int            `gorm:"default:0"` // video lessons only
	Answers      datatypes.JSON // submitted quiz answers, question id -> answer
}

type UserStreak struct {
	gorm.Model
	UserID        uint `gorm:"uniqueIndex;not null"`
	CurrentStreak int  `gorm:"default:0"`
	LongestStreak int  `gorm:"default:0"`
	// LastActivityDate is day-truncated: midnight UTC of the user's local date.
	LastActivityDate time.Time
}
