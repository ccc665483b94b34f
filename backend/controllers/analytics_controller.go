package controllers

import (
	"strconv"
	"time"

	"microlearn/backend/cache"
	"microlearn/backend/config"
	"microlearn/backend/models"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AnalyticsController struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Cache *cache.Cache
}

func NewAnalyticsController(db *gorm.DB, cfg *config.Config, cacheStore *cache.Cache) *AnalyticsController {
	return &AnalyticsController{DB: db, Cfg: cfg, Cache: cacheStore}
}

type platformOverview struct {
	TotalUsers       int64   `json:"total_users"`
	TotalLessons     int64   `json:"total_lessons"`
	PublishedLessons int64   `json:"published_lessons"`
	TotalCompletions int64   `json:"total_completions"`
	ActiveUsers7d    int64   `json:"active_users_7d"`
	AvgQuizScore     float64 `json:"avg_quiz_score"`
	AchievementsWon  int64   `json:"achievements_unlocked"`
}

// GetPlatformOverview godoc
// @Summary Platform-wide totals
// @Description Aggregates computed from real progress data, cached briefly
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/analytics/overview [get]
func (ac *AnalyticsController) GetPlatformOverview(c *fiber.Ctx) error {
	const cacheKey = "analytics:overview"

	var cached platformOverview
	if ac.Cache.GetJSON(c.Context(), cacheKey, &cached) {
		return utils.Success(c, fiber.StatusOK, cached)
	}

	var overview platformOverview
	ac.DB.Model(&models.User{}).Count(&overview.TotalUsers)
	ac.DB.Model(&models.Lesson{}).Count(&overview.TotalLessons)
	ac.DB.Model(&models.Lesson{}).Where("is_published = ?", true).Count(&overview.PublishedLessons)
	ac.DB.Model(&models.UserProgress{}).Where("completed = ?", true).Count(&overview.TotalCompletions)
	ac.DB.Model(&models.UserProgress{}).
		Where("updated_at >= ?", time.Now().AddDate(0, 0, -7)).
		Distinct("user_id").
		Count(&overview.ActiveUsers7d)
	ac.DB.Model(&models.UserProgress{}).
		Where("score IS NOT NULL").
		Select("COALESCE(AVG(score), 0)").
		Scan(&overview.AvgQuizScore)
	ac.DB.Model(&models.UserAchievement{}).Count(&overview.AchievementsWon)

	ac.Cache.SetJSON(c.Context(), cacheKey, overview, 2*time.Minute)

	return utils.Success(c, fiber.StatusOK, overview)
}

// GetActivitySeries godoc
// @Summary Daily activity series
// @Description Active users and completions per day over the requested window
// @Tags admin
// @Produce json
// @Param days query int false "Window length in days" default(14)
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/analytics/activity [get]
func (ac *AnalyticsController) GetActivitySeries(c *fiber.Ctx) error {
	days, _ := strconv.Atoi(c.Query("days", "14"))
	if days < 1 || days > 90 {
		days = 14
	}
	since := time.Now().AddDate(0, 0, -days)

	var series []struct {
		Date        string `json:"date"`
		ActiveUsers int    `json:"active_users"`
		Completions int    `json:"completions"`
	}
	err := ac.DB.Raw(`
		SELECT
			DATE(updated_at) AS date,
			COUNT(DISTINCT user_id) AS active_users,
			SUM(CASE WHEN completed THEN 1 ELSE 0 END) AS completions
		FROM user_progresses
		WHERE updated_at >= ? AND deleted_at IS NULL
		GROUP BY DATE(updated_at)
		ORDER BY date ASC
	`, since).Scan(&series).Error
	if err != nil {
		return utils.InternalServerError(c, "Failed to build activity series")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"series":      series,
		"period_days": days,
	})
}

// GetLessonAnalytics godoc
// @Summary Per-lesson engagement
// @Tags admin
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /admin/analytics/lessons/{id} [get]
func (ac *AnalyticsController) GetLessonAnalytics(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid lesson ID")
	}

	var lesson models.Lesson
	if err := ac.DB.First(&lesson, lessonID).Error; err != nil {
		return utils.NotFound(c, "Lesson not found")
	}

	var started, completed int64
	ac.DB.Model(&models.UserProgress{}).Where("lesson_id = ?", lessonID).Count(&started)
	ac.DB.Model(&models.UserProgress{}).
		Where("lesson_id = ? AND completed = ?", lessonID, true).
		Count(&completed)

	var avgScore float64
	ac.DB.Model(&models.UserProgress{}).
		Where("lesson_id = ? AND score IS NOT NULL", lessonID).
		Select("COALESCE(AVG(score), 0)").
		Scan(&avgScore)

	var avgTimeSpent float64
	ac.DB.Model(&models.UserProgress{}).
		Where("lesson_id = ?", lessonID).
		Select("COALESCE(AVG(time_spent), 0)").
		Scan(&avgTimeSpent)

	completionRate := 0.0
	if started > 0 {
		completionRate = float64(completed) / float64(started) * 100
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"lesson_id":       lesson.ID,
		"title":           lesson.Title,
		"started":         started,
		"completed":       completed,
		"completion_rate": completionRate,
		"avg_score":       avgScore,
		"avg_time_spent":  avgTimeSpent,
	})
}
