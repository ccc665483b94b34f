package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	RedisAddr     string
	JWTSecret     string
	WebhookSecret string
	ServerPort    string
	AppEnv        string
	SendGridKey   string
	SenderEmail   string
	FrontendURL   string
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	return &Config{
		DBHost:        getEnv("DB_HOST", "localhost"),
		DBPort:        getEnv("DB_PORT", "5432"),
		DBUser:        getEnv("DB_USER", "postgres"),
		DBPassword:    getEnv("DB_PASSWORD", "postgres"),
		DBName:        getEnv("DB_NAME", "microlearn"),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		JWTSecret:     getEnv("JWT_SECRET", "secret"),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		AppEnv:        getEnv("APP_ENV", "development"),
		SendGridKey:   getEnv("SENDGRID_API_KEY", ""),
		SenderEmail:   getEnv("SENDER_EMAIL", "no-reply@microlearn.app"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:3000"),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
