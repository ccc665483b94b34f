package controllers

import (
	"time"

	"microlearn/backend/cache"
	"microlearn/backend/config"
	"microlearn/backend/models"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AchievementsController struct {
	DB    *gorm.DB
	Cfg   *config.Config
	Cache *cache.Cache
}

func NewAchievementsController(db *gorm.DB, cfg *config.Config, cacheStore *cache.Cache) *AchievementsController {
	return &AchievementsController{DB: db, Cfg: cfg, Cache: cacheStore}
}

// GetAchievements godoc
// @Summary List the achievement catalog
// @Description Returns every achievement with an unlocked flag for the caller
// @Tags achievements
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Security ApiKeyAuth
// @Router /achievements [get]
func (ac *AchievementsController) GetAchievements(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var achievements []models.Achievement
	if err := ac.DB.Order("points ASC, name ASC").Find(&achievements).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch achievements")
	}

	unlockedAt := map[uint]time.Time{}
	var unlocks []models.UserAchievement
	ac.DB.Where("user_id = ?", userID).Find(&unlocks)
	for _, unlock := range unlocks {
		unlockedAt[unlock.AchievementID] = unlock.UnlockedAt
	}

	var result []fiber.Map
	for _, achievement := range achievements {
		entry := fiber.Map{
			"id":          achievement.ID,
			"name":        achievement.Name,
			"description": achievement.Description,
			"icon":        achievement.Icon,
			"type":        achievement.Type,
			"points":      achievement.Points,
			"unlocked":    false,
		}
		if when, ok := unlockedAt[achievement.ID]; ok {
			entry["unlocked"] = true
			entry["unlocked_at"] = when
		}
		result = append(result, entry)
	}

	return utils.Success(c, fiber.StatusOK, result)
}

type leaderboardEntry struct {
	UserID            uint   `json:"user_id"`
	Username          string `json:"username"`
	AchievementPoints int    `json:"achievement_points"`
	CompletedLessons  int    `json:"completed_lessons"`
}

// GetLeaderboard godoc
// @Summary Top users by achievement points
// @Description Cached for five minutes when redis is configured
// @Tags achievements
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /achievements/leaderboard [get]
func (ac *AchievementsController) GetLeaderboard(c *fiber.Ctx) error {
	const cacheKey = "leaderboard:top"

	var cached []leaderboardEntry
	if ac.Cache.GetJSON(c.Context(), cacheKey, &cached) {
		return utils.Success(c, fiber.StatusOK, cached)
	}

	var entries []leaderboardEntry
	err := ac.DB.Raw(`
		SELECT
			users.id AS user_id,
			users.username,
			COALESCE(SUM(achievements.points), 0) AS achievement_points,
			(SELECT COUNT(*) FROM user_progresses
				WHERE user_progresses.user_id = users.id
				AND user_progresses.completed = ?
				AND user_progresses.deleted_at IS NULL) AS completed_lessons
		FROM users
		LEFT JOIN user_achievements ON user_achievements.user_id = users.id
			AND user_achievements.deleted_at IS NULL
		LEFT JOIN achievements ON achievements.id = user_achievements.achievement_id
		WHERE users.deleted_at IS NULL
		GROUP BY users.id, users.username
		ORDER BY achievement_points DESC, completed_lessons DESC
		LIMIT 25
	`, true).Scan(&entries).Error
	if err != nil {
		return utils.InternalServerError(c, "Failed to build leaderboard")
	}

	ac.Cache.SetJSON(c.Context(), cacheKey, entries, 5*time.Minute)

	return utils.Success(c, fiber.StatusOK, entries)
}
