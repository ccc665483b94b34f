package controllers

import (
	"crypto/subtle"
	"errors"
	"strings"

	"microlearn/backend/config"
	"microlearn/backend/models"
	"microlearn/backend/services"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AuthController struct {
	DB     *gorm.DB
	Cfg    *config.Config
	Mailer *services.Mailer
	Log    *zap.Logger
}

func NewAuthController(db *gorm.DB, cfg *config.Config, mailer *services.Mailer, log *zap.Logger) *AuthController {
	return &AuthController{DB: db, Cfg: cfg, Mailer: mailer, Log: log}
}

// Register godoc
// @Summary Register a new user
// @Description Creates a new user account
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 500 {object} utils.ErrorResponse
// @Router /auth/register [post]
func (ac *AuthController) Register(c *fiber.Ctx) error {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	if input.Username == "" || input.Email == "" || len(input.Password) < 8 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Username, email and a password of at least 8 characters are required",
		})
	}

	// Hash password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not hash password",
		})
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		Name:         input.Name,
		PasswordHash: string(hashedPassword),
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Could not create user",
		})
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate token",
		})
	}

	go ac.Mailer.SendWelcome(user.Email, user.Name)

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// Login godoc
// @Summary User login
// @Description Authenticate user and return JWT token
// @Tags auth
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} utils.ErrorResponse
// @Failure 401 {object} utils.ErrorResponse
// @Router /auth/login [post]
func (ac *AuthController) Login(c *fiber.Ctx) error {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var user models.User
	if err := ac.DB.Where("username = ? OR email = ?", input.Username, input.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid credentials",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	// Webhook-created users authenticate through the identity provider, not
	// with a local password.
	if user.PasswordHash == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid credentials",
		})
	}

	token, err := utils.GenerateJWTToken(user.ID, ac.Cfg)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not generate token",
		})
	}

	return c.JSON(fiber.Map{
		"token": token,
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
			"email":    user.Email,
			"role":     user.Role,
		},
	})
}

// Webhook handles identity provider events. Only user.created is acted on;
// everything else is acknowledged and ignored. Deliveries are retried by the
// provider, so processed event ids are recorded and replays return 200
// without side effects. The event record and the user insert commit in one
// transaction: a failed insert leaves the event unrecorded, so the retry can
// still create the user.
func (ac *AuthController) Webhook(c *fiber.Ctx) error {
	secret := c.Get("X-Webhook-Secret")
	if ac.Cfg.WebhookSecret == "" ||
		subtle.ConstantTimeCompare([]byte(secret), []byte(ac.Cfg.WebhookSecret)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid webhook signature",
		})
	}

	var event struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			ID    string `json:"id"`
			Email string `json:"email"`
			Name  string `json:"name"`
		} `json:"data"`
	}
	if err := c.BodyParser(&event); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if event.ID == "" || event.Type == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing event id or type",
		})
	}
	if event.Type == "user.created" && (event.Data.ID == "" || event.Data.Email == "") {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing user id or email",
		})
	}

	var user models.User
	replayed := false
	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		record := models.WebhookEvent{EventID: event.ID, EventType: event.Type}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).Create(&record)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			replayed = true
			return nil
		}

		if event.Type != "user.created" {
			return nil
		}

		username := strings.Split(event.Data.Email, "@")[0]
		var clash models.User
		if err := tx.Where("username = ?", username).First(&clash).Error; err == nil {
			username = username + "-" + uuid.NewString()[:8]
		}

		user = models.User{
			Username:   username,
			Email:      event.Data.Email,
			Name:       event.Data.Name,
			ExternalID: &event.Data.ID,
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not process event",
		})
	}
	if replayed {
		return c.JSON(fiber.Map{"message": "Event already processed"})
	}
	if event.Type != "user.created" {
		return c.JSON(fiber.Map{"message": "Event ignored"})
	}

	ac.Log.Info("user created from webhook",
		zap.Uint("user_id", user.ID),
		zap.String("external_id", event.Data.ID),
	)
	go ac.Mailer.SendWelcome(user.Email, user.Name)

	return c.JSON(fiber.Map{
		"message": "User created",
		"user_id": user.ID,
	})
}
