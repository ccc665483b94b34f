package routes

import (
	"microlearn/backend/cache"
	"microlearn/backend/config"
	"microlearn/backend/controllers"
	"microlearn/backend/middleware"
	"microlearn/backend/services"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Deps struct {
	DB       *gorm.DB
	Cfg      *config.Config
	Cache    *cache.Cache
	Mailer   *services.Mailer
	Progress *services.ProgressService
	Log      *zap.Logger
}

func SetupRoutes(app *fiber.App, deps Deps) {
	db, cfg := deps.DB, deps.Cfg

	authMiddleware := middleware.AuthMiddleware(cfg)
	adminMiddleware := middleware.AdminMiddleware(db, cfg)

	// Auth + identity provider webhook
	authController := controllers.NewAuthController(db, cfg, deps.Mailer, deps.Log)
	app.Post("/api/auth/register", authController.Register)
	app.Post("/api/auth/login", authController.Login)
	app.Post("/api/webhooks/identity", authController.Webhook)

	// User routes
	userController := controllers.NewUserController(db, cfg)
	app.Get("/api/user/profile", authMiddleware, userController.GetProfile)
	app.Put("/api/user/profile", authMiddleware, userController.UpdateProfile)

	// Categories
	categoriesController := controllers.NewCategoriesController(db, cfg)
	app.Get("/api/categories", categoriesController.GetCategories)

	// Lessons
	lessonsController := controllers.NewLessonsController(db, cfg)
	app.Get("/api/lessons", lessonsController.GetLessons)
	app.Get("/api/lessons/:id", authMiddleware, lessonsController.GetLesson)

	// Progress
	progressController := controllers.NewProgressController(db, cfg, deps.Progress)
	app.Post("/api/lessons/:id/progress", authMiddleware, progressController.UpdateLessonProgress)
	app.Get("/api/progress", authMiddleware, progressController.GetProgress)
	app.Get("/api/progress/overview", authMiddleware, progressController.GetProgressOverview)
	app.Get("/api/progress/streak", authMiddleware, progressController.GetStreak)

	// Achievements
	achievementsController := controllers.NewAchievementsController(db, cfg, deps.Cache)
	app.Get("/api/achievements", authMiddleware, achievementsController.GetAchievements)
	app.Get("/api/achievements/leaderboard", achievementsController.GetLeaderboard)

	// Public content
	contentController := controllers.NewContentController(db, cfg)
	app.Get("/api/blogs", contentController.GetBlogs)
	app.Get("/api/blogs/:slug", contentController.GetBlog)
	app.Get("/api/careers", contentController.GetCareers)
	app.Get("/api/announcements", contentController.GetAnnouncements)

	// Admin routes for lessons and categories
	adminLessons := app.Group("/api/admin/lessons", authMiddleware, adminMiddleware)
	adminLessons.Post("/", lessonsController.CreateLesson)
	adminLessons.Put("/:id", lessonsController.UpdateLesson)
	adminLessons.Put("/:id/publish", lessonsController.PublishLesson)
	adminLessons.Post("/:id/questions", lessonsController.AddQuestion)
	adminLessons.Put("/:id/questions/:questionId", lessonsController.UpdateQuestion)

	adminCategories := app.Group("/api/admin/categories", authMiddleware, adminMiddleware)
	adminCategories.Post("/", categoriesController.CreateCategory)
	adminCategories.Put("/:id", categoriesController.UpdateCategory)

	// Admin routes for content
	adminBlogs := app.Group("/api/admin/blogs", authMiddleware, adminMiddleware)
	adminBlogs.Post("/", contentController.CreateBlog)
	adminBlogs.Put("/:id", contentController.UpdateBlog)
	adminBlogs.Delete("/:id", contentController.DeleteBlog)

	adminCareers := app.Group("/api/admin/careers", authMiddleware, adminMiddleware)
	adminCareers.Post("/", contentController.CreateCareer)
	adminCareers.Put("/:id", contentController.UpdateCareer)
	adminCareers.Delete("/:id", contentController.DeleteCareer)

	adminAnnouncements := app.Group("/api/admin/announcements", authMiddleware, adminMiddleware)
	adminAnnouncements.Post("/", contentController.CreateAnnouncement)
	adminAnnouncements.Put("/:id", contentController.UpdateAnnouncement)
	adminAnnouncements.Delete("/:id", contentController.DeleteAnnouncement)

	// Admin analytics
	analyticsController := controllers.NewAnalyticsController(db, cfg, deps.Cache)
	adminAnalytics := app.Group("/api/admin/analytics", authMiddleware, adminMiddleware)
	adminAnalytics.Get("/overview", analyticsController.GetPlatformOverview)
	adminAnalytics.Get("/activity", analyticsController.GetActivitySeries)
	adminAnalytics.Get("/lessons/:id", analyticsController.GetLessonAnalytics)
}
