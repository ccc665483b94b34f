package controllers

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"microlearn/backend/config"
	"microlearn/backend/models"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type LessonsController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewLessonsController(db *gorm.DB, cfg *config.Config) *LessonsController {
	return &LessonsController{DB: db, Cfg: cfg}
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(title string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}

// GetLessons godoc
// @Summary List published lessons
// @Description Returns paginated published lessons with optional filters
// @Tags lessons
// @Accept json
// @Produce json
// @Param category query string false "Category slug"
// @Param type query string false "Lesson type (text|video|quiz)"
// @Param difficulty query string false "Difficulty"
// @Param search query string false "Search term"
// @Param page query int false "Page number" default(1)
// @Param page_size query int false "Page size" default(12)
// @Success 200 {object} utils.PaginatedResponse
// @Router /lessons [get]
func (lc *LessonsController) GetLessons(c *fiber.Ctx) error {
	category := c.Query("category")
	lessonType := c.Query("type")
	difficulty := c.Query("difficulty")
	search := c.Query("search")
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "12"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 12
	}
	offset := (page - 1) * pageSize

	query := lc.DB.Model(&models.Lesson{}).Where("is_published = ?", true)

	if category != "" {
		query = query.Joins("JOIN categories ON categories.id = lessons.category_id").
			Where("categories.slug = ?", category)
	}
	if lessonType != "" {
		query = query.Where("type = ?", lessonType)
	}
	if difficulty != "" {
		query = query.Where("difficulty = ?", difficulty)
	}
	if search != "" {
		query = query.Where("lessons.title LIKE ? OR lessons.description LIKE ?",
			"%"+search+"%", "%"+search+"%")
	}

	var total int64
	query.Count(&total)

	var lessons []models.Lesson
	if err := query.Preload("Category").
		Order("lessons.created_at DESC").
		Offset(offset).Limit(pageSize).
		Find(&lessons).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch lessons")
	}

	var result []fiber.Map
	for _, lesson := range lessons {
		result = append(result, fiber.Map{
			"id":          lesson.ID,
			"title":       lesson.Title,
			"slug":        lesson.Slug,
			"description": lesson.Description,
			"type":        lesson.Type,
			"category":    lesson.Category.Name,
			"difficulty":  lesson.Difficulty,
			"duration":    lesson.Duration,
			"tags":        lesson.Tags,
			"points":      lesson.Points,
		})
	}

	return utils.Paginate(c, result, total, page, pageSize)
}

// GetLesson godoc
// @Summary Get lesson details
// @Description Returns one published lesson with the caller's progress.
// Quiz questions are included without their correct answers.
// @Tags lessons
// @Accept json
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} utils.ErrorResponse
// @Security ApiKeyAuth
// @Router /lessons/{id} [get]
func (lc *LessonsController) GetLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, lc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	lesson, fail := lc.findLesson(c, c.Params("id"))
	if fail != nil {
		return fail
	}
	if !lesson.IsPublished {
		return utils.NotFound(c, "Lesson not found")
	}

	var progress models.UserProgress
	lc.DB.Where("user_id = ? AND lesson_id = ?", userID, lesson.ID).First(&progress)

	var questions []fiber.Map
	for _, q := range lesson.Questions {
		var options []string
		json.Unmarshal(q.Options, &options)

		questions = append(questions, fiber.Map{
			"id":      q.ID,
			"type":    q.Type,
			"prompt":  q.Prompt,
			"options": options,
			"points":  q.Points,
			"order":   q.SequenceOrder,
		})
	}

	return c.JSON(fiber.Map{
		"lesson": fiber.Map{
			"id":          lesson.ID,
			"title":       lesson.Title,
			"slug":        lesson.Slug,
			"description": lesson.Description,
			"content":     lesson.Content,
			"video_url":   lesson.VideoURL,
			"type":        lesson.Type,
			"category":    lesson.Category.Name,
			"difficulty":  lesson.Difficulty,
			"duration":    lesson.Duration,
			"tags":        lesson.Tags,
			"points":      lesson.Points,
			"questions":   questions,
		},
		"progress": progress,
	})
}

// findLesson resolves a path parameter that may be a numeric id or a slug.
func (lc *LessonsController) findLesson(c *fiber.Ctx, param string) (models.Lesson, error) {
	var lesson models.Lesson
	query := lc.DB.Preload("Category").Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("sequence_order ASC")
	})

	var err error
	if id, convErr := strconv.Atoi(param); convErr == nil {
		err = query.First(&lesson, id).Error
	} else {
		err = query.Where("slug = ?", param).First(&lesson).Error
	}

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return lesson, utils.NotFound(c, "Lesson not found")
		}
		return lesson, utils.InternalServerError(c, "Could not query database")
	}
	return lesson, nil
}

// CreateLesson godoc
// @Summary Create a lesson
// @Tags admin
// @Security ApiKeyAuth
// @Router /admin/lessons [post]
func (lc *LessonsController) CreateLesson(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, lc.Cfg)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Unauthorized",
		})
	}

	var input struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Content     string         `json:"content"`
		VideoURL    string         `json:"video_url"`
		Type        string         `json:"type"`
		CategoryID  uint           `json:"category_id"`
		Difficulty  string         `json:"difficulty"`
		Duration    int            `json:"duration"`
		Tags        datatypes.JSON `json:"tags"`
		Points      int            `json:"points"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}
	if input.Title == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Title is required",
		})
	}

	lessonType := input.Type
	if lessonType == "" {
		lessonType = models.LessonTypeText
	}
	switch lessonType {
	case models.LessonTypeText, models.LessonTypeVideo, models.LessonTypeQuiz:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson type",
		})
	}

	slug := slugify(input.Title)
	var clash models.Lesson
	if err := lc.DB.Where("slug = ?", slug).First(&clash).Error; err == nil {
		slug = slug + "-" + uuid.NewString()[:8]
	}

	lesson := models.Lesson{
		Title:       input.Title,
		Slug:        slug,
		Description: input.Description,
		Content:     input.Content,
		VideoURL:    input.VideoURL,
		Type:        lessonType,
		CategoryID:  input.CategoryID,
		Difficulty:  input.Difficulty,
		Duration:    input.Duration,
		Tags:        input.Tags,
		AuthorID:    userID,
	}
	if input.Points > 0 {
		lesson.Points = input.Points
	}

	if err := lc.DB.Create(&lesson).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create lesson",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Lesson created",
		"lesson":  lesson,
	})
}

// UpdateLesson godoc
// @Summary Update lesson fields
// @Tags admin
// @Security ApiKeyAuth
// @Router /admin/lessons/{id} [put]
func (lc *LessonsController) UpdateLesson(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var input struct {
		Title       string         `json:"title"`
		Description string         `json:"description"`
		Content     string         `json:"content"`
		VideoURL    string         `json:"video_url"`
		CategoryID  uint           `json:"category_id"`
		Difficulty  string         `json:"difficulty"`
		Duration    int            `json:"duration"`
		Tags        datatypes.JSON `json:"tags"`
		Points      int            `json:"points"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var lesson models.Lesson
	if err := lc.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	// Title changes keep the original slug: lesson identity is immutable
	// once created.
	if input.Title != "" {
		lesson.Title = input.Title
	}
	if input.Description != "" {
		lesson.Description = input.Description
	}
	if input.Content != "" {
		lesson.Content = input.Content
	}
	if input.VideoURL != "" {
		lesson.VideoURL = input.VideoURL
	}
	if input.CategoryID != 0 {
		lesson.CategoryID = input.CategoryID
	}
	if input.Difficulty != "" {
		lesson.Difficulty = input.Difficulty
	}
	if input.Duration > 0 {
		lesson.Duration = input.Duration
	}
	if len(input.Tags) > 0 {
		lesson.Tags = input.Tags
	}
	if input.Points > 0 {
		lesson.Points = input.Points
	}

	if err := lc.DB.Save(&lesson).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update lesson",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Lesson updated",
		"lesson":  lesson,
	})
}

// PublishLesson godoc
// @Summary Publish or unpublish a lesson
// @Tags admin
// @Security ApiKeyAuth
// @Router /admin/lessons/{id}/publish [put]
func (lc *LessonsController) PublishLesson(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var input struct {
		IsPublished bool `json:"is_published"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var lesson models.Lesson
	if err := lc.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	lesson.IsPublished = input.IsPublished
	if input.IsPublished && lesson.PublishedAt == nil {
		now := time.Now()
		lesson.PublishedAt = &now
	}

	if err := lc.DB.Save(&lesson).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update lesson",
		})
	}

	return c.JSON(fiber.Map{
		"message": "Lesson updated",
		"lesson":  lesson,
	})
}

// AddQuestion godoc
// @Summary Add a quiz question to a lesson
// @Tags admin
// @Security ApiKeyAuth
// @Router /admin/lessons/{id}/questions [post]
func (lc *LessonsController) AddQuestion(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}

	var input struct {
		Type          string   `json:"type"`
		Prompt        string   `json:"prompt"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
		Points        int      `json:"points"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var lesson models.Lesson
	if err := lc.DB.First(&lesson, lessonID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Lesson not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}
	if lesson.Type != models.LessonTypeQuiz {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Questions can only be added to quiz lessons",
		})
	}

	questionType := input.Type
	if questionType == "" {
		questionType = models.QuestionTypeMultipleChoice
	}

	switch questionType {
	case models.QuestionTypeMultipleChoice:
		idx, convErr := strconv.Atoi(input.CorrectAnswer)
		if convErr != nil || idx < 0 || idx >= len(input.Options) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid correct answer index",
			})
		}
	case models.QuestionTypeTrueFalse:
		if input.CorrectAnswer != "true" && input.CorrectAnswer != "false" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Correct answer must be true or false",
			})
		}
	case models.QuestionTypeFillBlank:
		if strings.TrimSpace(input.CorrectAnswer) == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Correct answer is required",
			})
		}
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid question type",
		})
	}

	optionsJson, err := json.Marshal(input.Options)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not encode options",
		})
	}

	var questionCount int64
	lc.DB.Model(&models.QuizQuestion{}).Where("lesson_id = ?", lessonID).Count(&questionCount)

	question := models.QuizQuestion{
		LessonID:      uint(lessonID),
		Type:          questionType,
		Prompt:        input.Prompt,
		Options:       optionsJson,
		CorrectAnswer: input.CorrectAnswer,
		SequenceOrder: int(questionCount) + 1,
	}
	if input.Points > 0 {
		question.Points = input.Points
	}

	if err := lc.DB.Create(&question).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not create question",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Question added",
		"question": question,
	})
}

// UpdateQuestion godoc
// @Summary Update a quiz question
// @Tags admin
// @Security ApiKeyAuth
// @Router /admin/lessons/{id}/questions/{questionId} [put]
func (lc *LessonsController) UpdateQuestion(c *fiber.Ctx) error {
	lessonID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid lesson ID",
		})
	}
	questionID, err := strconv.Atoi(c.Params("questionId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid question ID",
		})
	}

	var input struct {
		Prompt        string   `json:"prompt"`
		Options       []string `json:"options"`
		CorrectAnswer string   `json:"correct_answer"`
		Points        int      `json:"points"`
		SequenceOrder int      `json:"sequence_order"`
	}
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Cannot parse JSON",
		})
	}

	var question models.QuizQuestion
	if err := lc.DB.Where("id = ? AND lesson_id = ?", questionID, lessonID).First(&question).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Question not found",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not query database",
		})
	}

	if input.Prompt != "" {
		question.Prompt = input.Prompt
	}
	if input.Options != nil {
		optionsJson, err := json.Marshal(input.Options)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Could not encode options",
			})
		}
		question.Options = optionsJson
	}
	if input.CorrectAnswer != "" {
		question.CorrectAnswer = input.CorrectAnswer
	}
	if input.Points > 0 {
		question.Points = input.Points
	}
	if input.SequenceOrder != 0 {
		question.SequenceOrder = input.SequenceOrder
	}

	if err := lc.DB.Save(&question).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Could not update question",
		})
	}

	return c.JSON(fiber.Map{
		"message":  "Question updated",
		"question": question,
	})
}
