package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Blog struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Excerpt     string
	Content     string
	CoverImage  string
	AuthorID    uint
	Tags        datatypes.JSON
	IsPublished bool `gorm:"default:false"`
	PublishedAt *time.Time
}

type Career struct {
	gorm.Model
	Title          string `gorm:"not null"`
	Department     string
	Location       string
	EmploymentType string // full_time, part_time, contract, internship
	Description    string
	Requirements   datatypes.JSON
	IsPublished    bool `gorm:"default:false"`
	PublishedAt    *time.Time
}

type Announcement struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Body        string
	Level       string `gorm:"default:info"` // info, warning, critical
	IsPublished bool   `gorm:"default:false"`
	PublishedAt *time.Time
	ExpiresAt   *time.Time
}
