package controllers

import (
	"errors"
	"strconv"
	"time"

	"microlearn/backend/config"
	"microlearn/backend/models"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentController owns the admin-managed content entities: blogs, careers
// and announcements. They share the isPublished/publishedAt lifecycle.
type ContentController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewContentController(db *gorm.DB, cfg *config.Config) *ContentController {
	return &ContentController{DB: db, Cfg: cfg}
}

// --- Blogs ---

func (cc *ContentController) GetBlogs(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	pageSize, _ := strconv.Atoi(c.Query("page_size", "10"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	query := cc.DB.Model(&models.Blog{}).Where("is_published = ?", true)

	var total int64
	query.Count(&total)

	var blogs []models.Blog
	if err := query.Order("published_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&blogs).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch blogs")
	}

	var result []fiber.Map
	for _, blog := range blogs {
		result = append(result, fiber.Map{
			"id":           blog.ID,
			"title":        blog.Title,
			"slug":         blog.Slug,
			"excerpt":      blog.Excerpt,
			"cover_image":  blog.CoverImage,
			"tags":         blog.Tags,
			"published_at": blog.PublishedAt,
		})
	}

	return utils.Paginate(c, result, total, page, pageSize)
}

func (cc *ContentController) GetBlog(c *fiber.Ctx) error {
	var blog models.Blog
	if err := cc.DB.Where("slug = ? AND is_published = ?", c.Params("slug"), true).
		First(&blog).Error; err != nil {
		return utils.NotFound(c, "Blog post not found")
	}

	return utils.Success(c, fiber.StatusOK, blog)
}

func (cc *ContentController) CreateBlog(c *fiber.Ctx) error {
	userID, err := utils.ExtractUserIDFromToken(c, cc.Cfg)
	if err != nil {
		return utils.Unauthorized(c, "Unauthorized")
	}

	var input struct {
		Title      string         `json:"title"`
		Excerpt    string         `json:"excerpt"`
		Content    string         `json:"content"`
		CoverImage string         `json:"cover_image"`
		Tags       datatypes.JSON `json:"tags"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Title == "" {
		return utils.BadRequest(c, "Title is required")
	}

	slug := slugify(input.Title)
	var clash models.Blog
	if err := cc.DB.Where("slug = ?", slug).First(&clash).Error; err == nil {
		slug = slug + "-" + uuid.NewString()[:8]
	}

	blog := models.Blog{
		Title:      input.Title,
		Slug:       slug,
		Excerpt:    input.Excerpt,
		Content:    input.Content,
		CoverImage: input.CoverImage,
		AuthorID:   userID,
		Tags:       input.Tags,
	}
	if err := cc.DB.Create(&blog).Error; err != nil {
		return utils.InternalServerError(c, "Could not create blog post")
	}

	return utils.Created(c, blog)
}

func (cc *ContentController) UpdateBlog(c *fiber.Ctx) error {
	blogID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid blog ID")
	}

	var input struct {
		Title       string         `json:"title"`
		Excerpt     string         `json:"excerpt"`
		Content     string         `json:"content"`
		CoverImage  string         `json:"cover_image"`
		Tags        datatypes.JSON `json:"tags"`
		IsPublished *bool          `json:"is_published"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var blog models.Blog
	if err := cc.DB.First(&blog, blogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Blog post not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Title != "" {
		blog.Title = input.Title
	}
	if input.Excerpt != "" {
		blog.Excerpt = input.Excerpt
	}
	if input.Content != "" {
		blog.Content = input.Content
	}
	if input.CoverImage != "" {
		blog.CoverImage = input.CoverImage
	}
	if len(input.Tags) > 0 {
		blog.Tags = input.Tags
	}
	if input.IsPublished != nil {
		blog.IsPublished = *input.IsPublished
		if *input.IsPublished && blog.PublishedAt == nil {
			now := time.Now()
			blog.PublishedAt = &now
		}
	}

	if err := cc.DB.Save(&blog).Error; err != nil {
		return utils.InternalServerError(c, "Could not update blog post")
	}

	return utils.Success(c, fiber.StatusOK, blog)
}

func (cc *ContentController) DeleteBlog(c *fiber.Ctx) error {
	blogID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid blog ID")
	}

	if err := cc.DB.Delete(&models.Blog{}, blogID).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete blog post")
	}

	return utils.NoContent(c)
}

// --- Careers ---

func (cc *ContentController) GetCareers(c *fiber.Ctx) error {
	var careers []models.Career
	if err := cc.DB.Where("is_published = ?", true).
		Order("published_at DESC").
		Find(&careers).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch careers")
	}

	return utils.Success(c, fiber.StatusOK, careers)
}

func (cc *ContentController) CreateCareer(c *fiber.Ctx) error {
	var input struct {
		Title          string         `json:"title"`
		Department     string         `json:"department"`
		Location       string         `json:"location"`
		EmploymentType string         `json:"employment_type"`
		Description    string         `json:"description"`
		Requirements   datatypes.JSON `json:"requirements"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Title == "" {
		return utils.BadRequest(c, "Title is required")
	}

	career := models.Career{
		Title:          input.Title,
		Department:     input.Department,
		Location:       input.Location,
		EmploymentType: input.EmploymentType,
		Description:    input.Description,
		Requirements:   input.Requirements,
	}
	if err := cc.DB.Create(&career).Error; err != nil {
		return utils.InternalServerError(c, "Could not create career posting")
	}

	return utils.Created(c, career)
}

func (cc *ContentController) UpdateCareer(c *fiber.Ctx) error {
	careerID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid career ID")
	}

	var input struct {
		Title          string         `json:"title"`
		Department     string         `json:"department"`
		Location       string         `json:"location"`
		EmploymentType string         `json:"employment_type"`
		Description    string         `json:"description"`
		Requirements   datatypes.JSON `json:"requirements"`
		IsPublished    *bool          `json:"is_published"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var career models.Career
	if err := cc.DB.First(&career, careerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Career posting not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Title != "" {
		career.Title = input.Title
	}
	if input.Department != "" {
		career.Department = input.Department
	}
	if input.Location != "" {
		career.Location = input.Location
	}
	if input.EmploymentType != "" {
		career.EmploymentType = input.EmploymentType
	}
	if input.Description != "" {
		career.Description = input.Description
	}
	if len(input.Requirements) > 0 {
		career.Requirements = input.Requirements
	}
	if input.IsPublished != nil {
		career.IsPublished = *input.IsPublished
		if *input.IsPublished && career.PublishedAt == nil {
			now := time.Now()
			career.PublishedAt = &now
		}
	}

	if err := cc.DB.Save(&career).Error; err != nil {
		return utils.InternalServerError(c, "Could not update career posting")
	}

	return utils.Success(c, fiber.StatusOK, career)
}

func (cc *ContentController) DeleteCareer(c *fiber.Ctx) error {
	careerID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid career ID")
	}

	if err := cc.DB.Delete(&models.Career{}, careerID).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete career posting")
	}

	return utils.NoContent(c)
}

// --- Announcements ---

func (cc *ContentController) GetAnnouncements(c *fiber.Ctx) error {
	var announcements []models.Announcement
	if err := cc.DB.Where("is_published = ?", true).
		Where("expires_at IS NULL OR expires_at > ?", time.Now()).
		Order("published_at DESC").
		Find(&announcements).Error; err != nil {
		return utils.InternalServerError(c, "Failed to fetch announcements")
	}

	return utils.Success(c, fiber.StatusOK, announcements)
}

func (cc *ContentController) CreateAnnouncement(c *fiber.Ctx) error {
	var input struct {
		Title     string     `json:"title"`
		Body      string     `json:"body"`
		Level     string     `json:"level"`
		ExpiresAt *time.Time `json:"expires_at"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Title == "" {
		return utils.BadRequest(c, "Title is required")
	}

	announcement := models.Announcement{
		Title:     input.Title,
		Body:      input.Body,
		ExpiresAt: input.ExpiresAt,
	}
	if input.Level != "" {
		announcement.Level = input.Level
	}
	if err := cc.DB.Create(&announcement).Error; err != nil {
		return utils.InternalServerError(c, "Could not create announcement")
	}

	return utils.Created(c, announcement)
}

func (cc *ContentController) UpdateAnnouncement(c *fiber.Ctx) error {
	announcementID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid announcement ID")
	}

	var input struct {
		Title       string     `json:"title"`
		Body        string     `json:"body"`
		Level       string     `json:"level"`
		ExpiresAt   *time.Time `json:"expires_at"`
		IsPublished *bool      `json:"is_published"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var announcement models.Announcement
	if err := cc.DB.First(&announcement, announcementID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "Announcement not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if input.Title != "" {
		announcement.Title = input.Title
	}
	if input.Body != "" {
		announcement.Body = input.Body
	}
	if input.Level != "" {
		announcement.Level = input.Level
	}
	if input.ExpiresAt != nil {
		announcement.ExpiresAt = input.ExpiresAt
	}
	if input.IsPublished != nil {
		announcement.IsPublished = *input.IsPublished
		if *input.IsPublished && announcement.PublishedAt == nil {
			now := time.Now()
			announcement.PublishedAt = &now
		}
	}

	if err := cc.DB.Save(&announcement).Error; err != nil {
		return utils.InternalServerError(c, "Could not update announcement")
	}

	return utils.Success(c, fiber.StatusOK, announcement)
}

func (cc *ContentController) DeleteAnnouncement(c *fiber.Ctx) error {
	announcementID, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return utils.BadRequest(c, "Invalid announcement ID")
	}

	if err := cc.DB.Delete(&models.Announcement{}, announcementID).Error; err != nil {
		return utils.InternalServerError(c, "Could not delete announcement")
	}

	return utils.NoContent(c)
}
