package controllers

import (
	"microlearn/backend/config"
	"microlearn/backend/models"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type UserController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewUserController(db *gorm.DB, cfg *config.Config) *UserController {
	return &UserController{DB: db, Cfg: cfg}
}

// GetProfile godoc
// @Summary Get user profile
// @Description Returns authenticated user's profile, streak and totals
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} utils.ErrorResponse
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [get]
func (uc *UserController) GetProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	var streak models.UserStreak
	uc.DB.Where("user_id = ?", userID).First(&streak)

	var completedLessons int64
	uc.DB.Model(&models.UserProgress{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&completedLessons)

	var achievementPoints int64
	uc.DB.Model(&models.UserAchievement{}).
		Joins("JOIN achievements ON achievements.id = user_achievements.achievement_id").
		Where("user_achievements.user_id = ?", userID).
		Select("COALESCE(SUM(achievements.points), 0)").
		Scan(&achievementPoints)

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":                 user.ID,
		"username":           user.Username,
		"email":              user.Email,
		"name":               user.Name,
		"role":               user.Role,
		"created_at":         user.CreatedAt,
		"timezone":           user.Timezone,
		"daily_goal":         user.DailyGoal,
		"learning_style":     user.LearningStyle,
		"difficulty":         user.PreferredDifficulty,
		"categories":         user.PreferredCategories,
		"email_notify":       user.EmailNotifications,
		"push_notify":        user.PushNotifications,
		"current_streak":     streak.CurrentStreak,
		"longest_streak":     streak.LongestStreak,
		"completed_lessons":  completedLessons,
		"achievement_points": achievementPoints,
	})
}

// UpdateProfile godoc
// @Summary Update user profile
// @Description Updates preferences and optionally the password
// @Tags users
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /user/profile [put]
func (uc *UserController) UpdateProfile(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, uc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Name                string         `json:"name"`
		Timezone            string         `json:"timezone"`
		DailyGoal           *int           `json:"daily_goal"`
		EmailNotifications  *bool          `json:"email_notifications"`
		PushNotifications   *bool          `json:"push_notifications"`
		PreferredDifficulty string         `json:"preferred_difficulty"`
		PreferredCategories datatypes.JSON `json:"preferred_categories"`
		LearningStyle       string         `json:"learning_style"`
		OldPassword         string         `json:"old_password"`
		NewPassword         string         `json:"new_password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := uc.DB.First(&user, userID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}

	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Timezone != "" {
		user.Timezone = input.Timezone
	}
	if input.DailyGoal != nil && *input.DailyGoal > 0 {
		user.DailyGoal = *input.DailyGoal
	}
	if input.EmailNotifications != nil {
		user.EmailNotifications = *input.EmailNotifications
	}
	if input.PushNotifications != nil {
		user.PushNotifications = *input.PushNotifications
	}
	if input.PreferredDifficulty != "" {
		user.PreferredDifficulty = input.PreferredDifficulty
	}
	if len(input.PreferredCategories) > 0 {
		user.PreferredCategories = input.PreferredCategories
	}
	if input.LearningStyle != "" {
		user.LearningStyle = input.LearningStyle
	}

	if input.NewPassword != "" {
		if user.PasswordHash == "" {
			return utils.BadRequest(c, "Password is managed by the identity provider")
		}
		if input.OldPassword == "" {
			return utils.BadRequest(c, "Old password is required to set new password")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.OldPassword)); err != nil {
			return utils.Unauthorized(c, "Invalid old password")
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return utils.InternalServerError(c, "Could not hash password")
		}
		user.PasswordHash = string(hashedPassword)
	}

	if err := uc.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"message": "Profile updated successfully",
	})
}
