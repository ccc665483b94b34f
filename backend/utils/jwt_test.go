package utils

import (
	"net/http/httptest"
	"testing"

	"microlearn/backend/config"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		userID, err := ExtractUserIDFromToken(c, cfg)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		return c.JSON(fiber.Map{"user_id": userID})
	})
	return app
}

func TestTokenRoundTrip(t *testing.T) {
	cfg := &config.Config{JWTSecret: "round-trip-secret"}

	token, err := GenerateJWTToken(42, cfg)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", token)
	resp, err := tokenApp(cfg).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestTokenRejectedWithWrongSecret(t *testing.T) {
	token, err := GenerateJWTToken(7, &config.Config{JWTSecret: "signer"})
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", token)
	resp, err := tokenApp(&config.Config{JWTSecret: "verifier"}).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMissingTokenRejected(t *testing.T) {
	resp, err := tokenApp(&config.Config{JWTSecret: "secret"}).Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestGarbageTokenRejected(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "not-a-jwt")
	resp, err := tokenApp(&config.Config{JWTSecret: "secret"}).Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
