package controllers

import (
	"encoding/json"
	"errors"
	"strconv"

	"microlearn/backend/config"
	"microlearn/backend/models"
	"microlearn/backend/services"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type ProgressController struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Progress *services.ProgressService
}

func NewProgressController(db *gorm.DB, cfg *config.Config, progress *services.ProgressService) *ProgressController {
	return &ProgressController{DB: db, Cfg: cfg, Progress: progress}
}

// UpdateLessonProgress godoc
// @Summary Record progress on a lesson
// @Description Upserts the caller's progress row. Quiz answers are scored
// server-side; a completion advances the streak and evaluates achievements.
// @Tags progress
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id}/progress [post]
func (pc *ProgressController) UpdateLessonProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var input struct {
		Completed    bool              `json:"completed"`
		TimeSpent    int               `json:"time_spent"`
		WatchPercent int               `json:"watch_percent"`
		Answers      map[string]string `json:"answers"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.TimeSpent < 0 || input.WatchPercent < 0 || input.WatchPercent > 100 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid progress values",
		})
	}

	var user models.User
	if err := pc.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var lesson models.Lesson
	if err := pc.DB.Preload("Questions").First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}
	if !lesson.IsPublished {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Lesson not found",
		})
	}

	record := services.ProgressInput{
		Completed:    input.Completed,
		TimeSpent:    input.TimeSpent,
		WatchPercent: input.WatchPercent,
	}

	var quizResult *services.QuizResult
	if lesson.Type == models.LessonTypeQuiz && len(input.Answers) > 0 {
		answers := make(map[uint]string, len(input.Answers))
		for key, answer := range input.Answers {
			id, convErr := strconv.Atoi(key)
			if convErr != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid question ID in answers",
				})
			}
			answers[uint(id)] = answer
		}

		result := services.ScoreQuiz(lesson.Questions, answers)
		quizResult = &result
		record.Score = &result.Score
		record.Completed = true

		raw, marshalErr := json.Marshal(input.Answers)
		if marshalErr != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid answers payload",
			})
		}
		record.Answers = raw
	}

	progress, unlocked, err := pc.Progress.Record(user, lesson, record)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not save progress",
		})
	}

	response := fiber.Map{
		"message":  "Progress updated",
		"progress": progress,
	}
	if quizResult != nil {
		response["quiz"] = quizResult
	}
	if len(unlocked) > 0 {
		response["unlocked_achievements"] = unlocked
	}

	return c.JSON(response)
}

// GetProgress godoc
// @Summary List the caller's progress rows
// @Tags progress
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(10)
// @Success 200 {object} utils.PaginatedResponse
// @Security ApiKeyAuth
// @Router /progress [get]
func (pc *ProgressController) GetProgress(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	offset := (page - 1) * pageSize

	query := pc.DB.Model(&models.UserProgress{}).Where("user_id = ?", userID)

	var total int64
	query.Count(&total)

	var rows []models.UserProgress
	if err := query.Order("updated_at DESC").Offset(offset).Limit(pageSize).Find(&rows).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch progress")
	}

	var result []fiber.Map
	for _, row := range rows {
		var lesson models.Lesson
		if err := pc.DB.First(&lesson, row.LessonID).Error; err != nil {
			continue
		}

		result = append(result, fiber.Map{
			"lesson_id":     lesson.ID,
			"lesson_title":  lesson.Title,
			"lesson_type":   lesson.Type,
			"completed":     row.Completed,
			"completed_at":  row.CompletedAt,
			"score":         row.Score,
			"time_spent":    row.TimeSpent,
			"attempts":      row.Attempts,
			"watch_percent": row.WatchPercent,
		})
	}

	return utils.Paginate(c, result, total, page, pageSize)
}

// GetStreak godoc
// @Summary Get the caller's streak
// @Tags progress
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /progress/streak [get]
func (pc *ProgressController) GetStreak(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var streak models.UserStreak
	pc.DB.Where("user_id = ?", userID).First(&streak)

	return c.JSON(fiber.Map{
		"current_streak": streak.CurrentStreak,
		"longest_streak": streak.LongestStreak,
		"last_activity":  streak.LastActivityDate,
	})
}

// GetProgressOverview godoc
// @Summary Get progress summary
// @Description Returns the caller's totals: completions, streak, points,
// time spent and daily goal status.
// @Tags progress
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Security ApiKeyAuth
// @Router /progress/overview [get]
func (pc *ProgressController) GetProgressOverview(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, pc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var user models.User
	if err := pc.DB.First(&user, userID).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var completedLessons int64
	pc.DB.Model(&models.UserProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&completedLessons)

	var totalTimeSpent int64
	pc.DB.Model(&models.UserProgress{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(time_spent), 0)").
		Scan(&totalTimeSpent)

	var streak models.UserStreak
	pc.DB.Where("user_id = ?", userID).First(&streak)

	var achievementCount int64
	pc.DB.Model(&models.UserAchievement{}).
		Where("user_id = ?", userID).
		Count(&achievementCount)

	// Lessons completed today, against the daily goal. "Today" starts at
	// midnight in the user's timezone, same as the streak day boundary.
	dayStart := services.StartOfDay(services.InUserZone(pc.Progress.Now(), user.Timezone)).UTC()
	var completedToday int64
	pc.DB.Model(&models.UserProgress{}).
		Where("user_id = ? AND completed = ? AND completed_at >= ?", userID, true, dayStart).
		Count(&completedToday)

	return c.JSON(fiber.Map{
		"completed_lessons": completedLessons,
		"time_spent":        totalTimeSpent,
		"current_streak":    streak.CurrentStreak,
		"longest_streak":    streak.LongestStreak,
		"achievements":      achievementCount,
		"daily_goal":        user.DailyGoal,
		"completed_today":   completedToday,
		"goal_met":          completedToday >= int64(user.DailyGoal),
	})
}
