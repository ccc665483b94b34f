package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	LessonTypeText  = "text"
	LessonTypeVideo = "video"
	LessonTypeQuiz  = "quiz"
)

const (
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeTrueFalse      = "true_false"
	QuestionTypeFillBlank      = "fill_blank"
)

type Category struct {
	gorm.Model
	Name        string `gorm:"unique;not null"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Description string
	Icon        string
	Color       string
	SortOrder   int
	IsPublished bool `gorm:"default:false"`
}

type Lesson struct {
	gorm.Model
	Title       string `gorm:"not null"`
	Slug        string `gorm:"uniqueIndex;not null"`
	Description string
	Content     string
	VideoURL    string
	Type        string `gorm:"default:text"` // text, video, quiz
	CategoryID  uint
	Category    Category
	Difficulty  string // beginner, intermediate, advanced
	Duration    int    // estimated minutes
	Tags        datatypes.JSON
	Points      int  `gorm:"default:10"`
	IsPublished bool `gorm:"default:false"`
	PublishedAt *time.Time
	AuthorID    uint
	Questions   []QuizQuestion
}

type QuizQuestion struct {
	gorm.Model
	LessonID uint
	Type     string `gorm:"default:multiple_choice"`
	Prompt   string `gorm:"not null"`
	// Options is a JSON array of choices for multiple_choice questions.
	Options datatypes.JSON
	// CorrectAnswer holds the option index for multiple_choice ("2"),
	// "true"/"false" for true_false, and the expected text for fill_blank.
	CorrectAnswer string `gorm:"not null"`
	Points        int    `gorm:"default:10"`
	SequenceOrder int
}
