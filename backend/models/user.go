package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	Username     string  `gorm:"unique;not null"`
	Email        string  `gorm:"unique;not null"`
	Name         string
	PasswordHash string  // empty for users created through the identity webhook
	ExternalID   *string `gorm:"uniqueIndex"` // identity provider user id, nil for local accounts
	Role         string  `gorm:"default:user"` // user, admin

	// Learning preferences
	Timezone            string         `gorm:"default:UTC"`
	DailyGoal           int            `gorm:"default:1"` // lessons per day
	EmailNotifications  bool           `gorm:"default:true"`
	PushNotifications   bool           `gorm:"default:false"`
	PreferredDifficulty string         // beginner, intermediate, advanced
	PreferredCategories datatypes.JSON // array of category IDs
	LearningStyle       string         // visual, reading, interactive
}

// WebhookEvent records processed identity provider events so redelivered
// webhooks are no-ops.
type WebhookEvent struct {
	gorm.Model
	EventID   string `gorm:"uniqueIndex;not null"`
	EventType string
}
