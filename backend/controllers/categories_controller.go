package controllers

import (
	"errors"
	"strconv"

	"microlearn/backend/config"
	"microlearn/backend/models"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoriesController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewCategoriesController(db *gorm.DB, cfg *config.Config) *CategoriesController {
	return &CategoriesController{DB: db, Cfg: cfg}
}

// GetCategories godoc
// @Summary List published categories
// @Description Returns published categories with their lesson counts
// @Tags categories
// @Produce json
// @Success 200 {object} utils.SuccessResponse
// @Router /categories [get]
func (cc *CategoriesController) GetCategories(c *fiber.Ctx) error {
	var categories []models.Category
	if err := cc.DB.Where("is_published = ?", true).
		Order("sort_order ASC, name ASC").
		Find(&categories).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch categories")
	}

	var result []fiber.Map
	for _, category := range categories {
		var lessonCount int64
		cc.DB.Model(&models.Lesson{}).
			Where("category_id = ? AND is_published = ?", category.ID, true).
			Count(&lessonCount)

		result = append(result, fiber.Map{
			"id":          category.ID,
			"name":        category.Name,
			"slug":        category.Slug,
			"description": category.Description,
			"icon":        category.Icon,
			"color":       category.Color,
			"lessons":     lessonCount,
		})
	}

	return utils.Success(c, fiber.StatusOK, result)
}

// CreateCategory godoc
// @Summary Create a category
// @Tags admin
// @Security ApiKeyAuth
// @Router /admin/categories [post]
func (cc *CategoriesController) CreateCategory(c *fiber.Ctx) error {
	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		Color       string `json:"color"`
		SortOrder   int    `json:"sort_order"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Name == "" {
		return utils.BadRequest(c, "Name is required")
	}

	slug := slugify(input.Name)
	var clash models.Category
	if err := cc.DB.Where("slug = ?", slug).First(&clash).Error; err == nil {
		slug = slug + "-" + uuid.NewString()[:8]
	}

	category := models.Category{
		Name:        input.Name,
		Slug:        slug,
		Description: input.Description,
		Icon:        input.Icon,
		Color:       input.Color,
		SortOrder:   input.SortOrder,
	}
	if err := cc.DB.Create(&category).Error; err != nil {
		return utils.InternalServerError(c, "Could not create category")
	}

	return utils.Created(c, category)
}

// UpdateCategory godoc
// @Summary Update a category
// @Tags admin
// @Security ApiKeyAuth
// @Router /admin/categories/{id} [put]
func (cc *CategoriesController) UpdateCategory(c *fiber.Ctx) error {
	categoryID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid category ID")
	}

	var input struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Icon        string `json:"icon"`
		Color       string `json:"color"`
		SortOrder   *int   `json:"sort_order"`
		IsPublished *bool  `json:"is_published"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var category models.Category
	if err := cc.DB.First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Category not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Name != "" {
		category.Name = input.Name
	}
	if input.Description != "" {
		category.Description = input.Description
	}
	if input.Icon != "" {
		category.Icon = input.Icon
	}
	if input.Color != "" {
		category.Color = input.Color
	}
	if input.SortOrder != nil {
		category.SortOrder = *input.SortOrder
	}
	if input.IsPublished != nil {
		category.IsPublished = *input.IsPublished
	}

	if err := cc.DB.Save(&category).Error; err != nil {
		return utils.InternalServerError(c, "Could not update category")
	}

	return utils.Success(c, fiber.StatusOK, category)
}
