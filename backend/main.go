package main

import (
	"log"

	"microlearn/backend/cache"
	"microlearn/backend/config"
	"microlearn/backend/middleware"
	"microlearn/backend/routes"
	"microlearn/backend/services"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// Initialize logger
	logger, err := utils.InitLogger(cfg.AppEnv)
	if err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		log.Fatalf("Error initializing database: %v", err)
	}

	// Seed the achievement catalog
	if err := services.SeedCatalog(db); err != nil {
		log.Fatalf("Error seeding achievements: %v", err)
	}

	// Shared services
	cacheStore := cache.New(cfg.RedisAddr)
	mailer := services.NewMailer(cfg.SendGridKey, cfg.SenderEmail, cfg.FrontendURL, logger)
	achievementService := services.NewAchievementService(db, mailer, logger)
	progressService := services.NewProgressService(db, achievementService, logger)

	// Create Fiber app
	app := fiber.New()

	// Middleware
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))
	app.Use(middleware.LoggingMiddleware(logger))

	// Setup routes
	routes.SetupRoutes(app, routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Cache:    cacheStore,
		Mailer:   mailer,
		Progress: progressService,
		Log:      logger,
	})

	// Start server
	log.Fatal(app.Listen(":" + cfg.ServerPort))
}
