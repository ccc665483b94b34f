package services

import (
	"time"

	"microlearn/backend/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Catalog is the single definition of every achievement the platform awards.
// It is seeded into the database at startup and used as a fallback when a
// catalog row is missing at evaluation time.
var Catalog = []models.Achievement{
	{Name: "First Steps", Description: "Complete your first lesson", Icon: "footprints", Type: models.AchievementTypeCompletion, LessonsRequired: 1, Points: 10},
	{Name: "Quick Learner", Description: "Complete 10 lessons", Icon: "zap", Type: models.AchievementTypeCompletion, LessonsRequired: 10, Points: 25},
	{Name: "Dedicated Learner", Description: "Complete 25 lessons", Icon: "book-open", Type: models.AchievementTypeCompletion, LessonsRequired: 25, Points: 50},
	{Name: "Knowledge Seeker", Description: "Complete 50 lessons", Icon: "graduation-cap", Type: models.AchievementTypeCompletion, LessonsRequired: 50, Points: 100},
	{Name: "Scholar", Description: "Complete 100 lessons", Icon: "library", Type: models.AchievementTypeCompletion, LessonsRequired: 100, Points: 200},
	{Name: "On a Roll", Description: "Learn 3 days in a row", Icon: "flame", Type: models.AchievementTypeStreak, StreakRequired: 3, Points: 15},
	{Name: "Week Warrior", Description: "Learn 7 days in a row", Icon: "calendar", Type: models.AchievementTypeStreak, StreakRequired: 7, Points: 30},
	{Name: "Fortnight Focus", Description: "Learn 14 days in a row", Icon: "target", Type: models.AchievementTypeStreak, StreakRequired: 14, Points: 60},
	{Name: "Monthly Master", Description: "Learn 30 days in a row", Icon: "trophy", Type: models.AchievementTypeStreak, StreakRequired: 30, Points: 120},
	{Name: "High Scorer", Description: "Score 90% or better on 5 quizzes", Icon: "star", Type: models.AchievementTypeScore, ScoreRequired: 90, CountRequired: 5, Points: 40},
	{Name: "Flawless", Description: "Get your first perfect quiz score", Icon: "sparkles", Type: models.AchievementTypeScore, ScoreRequired: 100, CountRequired: 1, Points: 20},
	{Name: "Perfectionist", Description: "Get 10 perfect quiz scores", Icon: "gem", Type: models.AchievementTypeScore, ScoreRequired: 100, CountRequired: 10, Points: 80},
}

// Aggregates are the all-time counts the achievement rules are checked
// against.
type Aggregates struct {
	CompletedLessons int
	CurrentStreak    int
	ScoresAbove90    int // quiz scores at or above 90, all time
	PerfectScores    int // quiz scores of exactly 100, all time
}

// Qualifies reports whether the aggregates satisfy an achievement's
// threshold rule.
func Qualifies(a models.Achievement, agg Aggregates) bool {
	switch a.Type {
	case models.AchievementTypeCompletion:
		return agg.CompletedLessons >= a.LessonsRequired
	case models.AchievementTypeStreak:
		return agg.CurrentStreak >= a.StreakRequired
	case models.AchievementTypeScore:
		if a.ScoreRequired == 100 {
			return agg.PerfectScores >= a.CountRequired
		}
		return agg.ScoresAbove90 >= a.CountRequired
	default: // special achievements are granted elsewhere, never by threshold
		return false
	}
}

type AchievementService struct {
	DB     *gorm.DB
	Mailer *Mailer
	Log    *zap.Logger
}

func NewAchievementService(db *gorm.DB, mailer *Mailer, log *zap.Logger) *AchievementService {
	return &AchievementService{DB: db, Mailer: mailer, Log: log}
}

// SeedCatalog inserts any catalog entries missing from the database. Existing
// rows are left untouched so admins can tweak descriptions or point values.
func SeedCatalog(db *gorm.DB) error {
	for _, a := range Catalog {
		entry := a
		if err := db.Where("name = ?", entry.Name).FirstOrCreate(&entry).Error; err != nil {
			return err
		}
	}
	return nil
}

// LoadAggregates reads a user's all-time counts from the store.
func (as *AchievementService) LoadAggregates(userID uint) (Aggregates, error) {
	var agg Aggregates

	var completed int64
	if err := as.DB.Model(&models.UserProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&completed).Error; err != nil {
		return agg, err
	}
	agg.CompletedLessons = int(completed)

	var streak models.UserStreak
	if err := as.DB.Where("user_id = ?", userID).First(&streak).Error; err == nil {
		agg.CurrentStreak = streak.CurrentStreak
	}

	var above90 int64
	if err := as.DB.Model(&models.UserProgress{}).
		Where("user_id = ? AND score >= ?", userID, 90).
		Count(&above90).Error; err != nil {
		return agg, err
	}
	agg.ScoresAbove90 = int(above90)

	var perfect int64
	if err := as.DB.Model(&models.UserProgress{}).
		Where("user_id = ? AND score = ?", userID, 100).
		Count(&perfect).Error; err != nil {
		return agg, err
	}
	agg.PerfectScores = int(perfect)

	return agg, nil
}

// Evaluate checks the catalog against a user's aggregates and unlocks every
// newly satisfied achievement. Re-running with the same aggregates is a
// no-op: already unlocked achievements are filtered out, and the unique
// (user, achievement) constraint catches concurrent evaluations.
func (as *AchievementService) Evaluate(userID uint) ([]models.Achievement, error) {
	agg, err := as.LoadAggregates(userID)
	if err != nil {
		return nil, err
	}

	unlocked := map[uint]bool{}
	var existing []models.UserAchievement
	if err := as.DB.Where("user_id = ?", userID).Find(&existing).Error; err != nil {
		return nil, err
	}
	for _, ua := range existing {
		unlocked[ua.AchievementID] = true
	}

	var newly []models.Achievement
	for _, def := range Catalog {
		entry := def
		if err := as.DB.Where("name = ?", entry.Name).FirstOrCreate(&entry).Error; err != nil {
			return nil, err
		}

		if unlocked[entry.ID] || !Qualifies(entry, agg) {
			continue
		}

		unlock := models.UserAchievement{
			UserID:        userID,
			AchievementID: entry.ID,
			UnlockedAt:    time.Now(),
		}
		res := as.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "achievement_id"}},
			DoNothing: true,
		}).Create(&unlock)
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			// Another request got there first.
			continue
		}

		newly = append(newly, entry)
		as.Log.Info("achievement unlocked",
			zap.Uint("user_id", userID),
			zap.String("achievement", entry.Name),
		)
	}

	if len(newly) > 0 && as.Mailer != nil {
		var user models.User
		if err := as.DB.First(&user, userID).Error; err == nil && user.EmailNotifications {
			go as.Mailer.SendAchievementUnlocked(user.Email, user.Name, newly)
		}
	}

	return newly, nil
}
