package services

import (
	"errors"
	"time"

	"microlearn/backend/models"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressInput struct {
	Completed    bool
	Score        *int
	TimeSpent    int // seconds spent this interaction
	WatchPercent int
	Answers      datatypes.JSON
}

type ProgressService struct {
	DB           *gorm.DB
	Achievements *AchievementService
	Log          *zap.Logger

	// Now is swappable so tests can control the calendar day.
	Now func() time.Time
}

func NewProgressService(db *gorm.DB, achievements *AchievementService, log *zap.Logger) *ProgressService {
	return &ProgressService{
		DB:           db,
		Achievements: achievements,
		Log:          log,
		Now:          time.Now,
	}
}

// Record upserts the progress row for (user, lesson) and, when the write
// marks the lesson completed, advances the streak and evaluates achievements.
// The progress row is written first so the achievement aggregates see it.
func (ps *ProgressService) Record(user models.User, lesson models.Lesson, in ProgressInput) (models.UserProgress, []models.Achievement, error) {
	now := ps.Now()

	row := models.UserProgress{
		UserID:       user.ID,
		LessonID:     lesson.ID,
		Completed:    in.Completed,
		Score:        in.Score,
		TimeSpent:    in.TimeSpent,
		Attempts:     1,
		WatchPercent: in.WatchPercent,
		Answers:      in.Answers,
	}
	if in.Completed {
		row.CompletedAt = &now
	}

	// Concurrent submissions for the same lesson race on the insert; the
	// unique (user_id, lesson_id) index plus ON CONFLICT keeps one row.
	assignments := map[string]interface{}{
		"attempts":   gorm.Expr("attempts + 1"),
		"time_spent": gorm.Expr("time_spent + ?", in.TimeSpent),
		"updated_at": now,
	}
	if in.Completed {
		assignments["completed"] = true
		assignments["completed_at"] = now
	}
	if in.Score != nil {
		assignments["score"] = *in.Score
	}
	if in.WatchPercent > 0 {
		assignments["watch_percent"] = in.WatchPercent
	}
	if len(in.Answers) > 0 {
		assignments["answers"] = in.Answers
	}

	if err := ps.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "lesson_id"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&row).Error; err != nil {
		return models.UserProgress{}, nil, err
	}

	var progress models.UserProgress
	if err := ps.DB.Where("user_id = ? AND lesson_id = ?", user.ID, lesson.ID).First(&progress).Error; err != nil {
		return models.UserProgress{}, nil, err
	}

	if !in.Completed {
		return progress, nil, nil
	}

	if err := ps.advanceStreak(user, now); err != nil {
		return progress, nil, err
	}

	newly, err := ps.Achievements.Evaluate(user.ID)
	if err != nil {
		return progress, nil, err
	}

	return progress, newly, nil
}

// advanceStreak loads (or creates) the user's streak row and applies the
// day-boundary rules in the user's timezone.
func (ps *ProgressService) advanceStreak(user models.User, now time.Time) error {
	now = InUserZone(now, user.Timezone)

	var streak models.UserStreak
	err := ps.DB.Where("user_id = ?", user.ID).First(&streak).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		streak = models.UserStreak{
			UserID:           user.ID,
			CurrentStreak:    1,
			LongestStreak:    1,
			LastActivityDate: DayOf(now),
		}
		return ps.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).Create(&streak).Error
	}

	if !AdvanceStreak(&streak, now) {
		return nil
	}

	ps.Log.Debug("streak advanced",
		zap.Uint("user_id", user.ID),
		zap.Int("current", streak.CurrentStreak),
		zap.Int("longest", streak.LongestStreak),
	)
	return ps.DB.Save(&streak).Error
}
