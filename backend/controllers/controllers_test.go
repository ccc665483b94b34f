package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"microlearn/backend/cache"
	"microlearn/backend/config"
	"microlearn/backend/models"
	"microlearn/backend/routes"
	"microlearn/backend/services"
	"microlearn/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestEnv(t *testing.T) (*fiber.App, *gorm.DB, *config.Config, *services.ProgressService) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, utils.Migrate(db))
	require.NoError(t, services.SeedCatalog(db))

	cfg := &config.Config{
		JWTSecret:     "test-secret",
		WebhookSecret: "hook-secret",
		SenderEmail:   "test@example.com",
		FrontendURL:   "http://localhost:3000",
	}

	log := zap.NewNop()
	mailer := services.NewMailer("", cfg.SenderEmail, cfg.FrontendURL, log)
	achievements := services.NewAchievementService(db, mailer, log)
	progress := services.NewProgressService(db, achievements, log)

	app := fiber.New()
	routes.SetupRoutes(app, routes.Deps{
		DB:       db,
		Cfg:      cfg,
		Cache:    cache.New(""),
		Mailer:   mailer,
		Progress: progress,
		Log:      log,
	})
	return app, db, cfg, progress
}

func newTestApp(t *testing.T) (*fiber.App, *gorm.DB, *config.Config) {
	t.Helper()

	app, db, cfg, _ := newTestEnv(t)
	return app, db, cfg
}

func jsonRequest(method, target string, body interface{}) *http.Request {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// registerUser creates an account through the API and returns its token.
func registerUser(t *testing.T, app *fiber.App, username string) string {
	t.Helper()

	req := jsonRequest("POST", "/api/auth/register", fiber.Map{
		"username": username,
		"email":    username + "@example.com",
		"name":     "Test User",
		"password": "password123",
	})
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	token, ok := body["token"].(string)
	require.True(t, ok)
	return token
}

// registerAdmin registers a user and promotes it to admin directly.
func registerAdmin(t *testing.T, app *fiber.App, db *gorm.DB, username string) string {
	t.Helper()

	token := registerUser(t, app, username)
	require.NoError(t, db.Model(&models.User{}).
		Where("username = ?", username).
		Update("role", "admin").Error)
	return token
}

func TestRegisterAndLogin(t *testing.T) {
	app, _, _ := newTestApp(t)

	registerUser(t, app, "alice")

	// Login by username.
	resp, err := app.Test(jsonRequest("POST", "/api/auth/login", fiber.Map{
		"username": "alice",
		"password": "password123",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Login by email works through the same field.
	resp, err = app.Test(jsonRequest("POST", "/api/auth/login", fiber.Map{
		"username": "alice@example.com",
		"password": "password123",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Wrong password.
	resp, err = app.Test(jsonRequest("POST", "/api/auth/login", fiber.Map{
		"username": "alice",
		"password": "wrong-password",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest("POST", "/api/auth/register", fiber.Map{
		"username": "bob",
		"email":    "bob@example.com",
		"password": "short",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWebhookCreatesUserOnce(t *testing.T) {
	app, db, _ := newTestApp(t)

	event := fiber.Map{
		"id":   "evt_123",
		"type": "user.created",
		"data": fiber.Map{
			"id":    "ext_42",
			"email": "carol@example.com",
			"name":  "Carol",
		},
	}

	req := jsonRequest("POST", "/api/webhooks/identity", event)
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The provider retries deliveries; a replay must not create a second user.
	req = jsonRequest("POST", "/api/webhooks/identity", event)
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var users int64
	db.Model(&models.User{}).Where("external_id = ?", "ext_42").Count(&users)
	assert.Equal(t, int64(1), users)

	// Webhook users have no local password and cannot log in with one.
	resp, err = app.Test(jsonRequest("POST", "/api/auth/login", fiber.Map{
		"username": "carol@example.com",
		"password": "anything123",
	}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := jsonRequest("POST", "/api/webhooks/identity", fiber.Map{
		"id":   "evt_999",
		"type": "user.created",
	})
	req.Header.Set("X-Webhook-Secret", "not-the-secret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAdminRoutesForbiddenForRegularUser(t *testing.T) {
	app, _, _ := newTestApp(t)

	token := registerUser(t, app, "dave")

	req := jsonRequest("POST", "/api/admin/lessons/", fiber.Map{"title": "Nope"})
	req.Header.Set("Authorization", token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(jsonRequest("POST", "/api/admin/lessons/", fiber.Map{"title": "Nope"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLessonListOnlyShowsPublished(t *testing.T) {
	app, db, _ := newTestApp(t)

	adminToken := registerAdmin(t, app, db, "editor")

	req := jsonRequest("POST", "/api/admin/lessons/", fiber.Map{
		"title": "Hidden Draft",
		"type":  "text",
	})
	req.Header.Set("Authorization", adminToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/lessons", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 0, body["total"])
}

// createQuizLesson drives the full admin flow: create a quiz lesson, add two
// ten-point multiple choice questions and publish it. Returns the lesson id.
func createQuizLesson(t *testing.T, app *fiber.App, adminToken string) int {
	t.Helper()

	req := jsonRequest("POST", "/api/admin/lessons/", fiber.Map{
		"title": "Go Basics Quiz",
		"type":  "quiz",
	})
	req.Header.Set("Authorization", adminToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	lesson := body["lesson"].(map[string]interface{})
	lessonID := int(lesson["ID"].(float64))

	questions := []fiber.Map{
		{
			"type":           "multiple_choice",
			"prompt":         "What keyword declares a function?",
			"options":        []string{"def", "func", "fn"},
			"correct_answer": "1",
			"points":         10,
		},
		{
			"type":           "multiple_choice",
			"prompt":         "Which type holds text?",
			"options":        []string{"string", "int", "bool"},
			"correct_answer": "0",
			"points":         10,
		},
	}
	for _, q := range questions {
		req = jsonRequest("POST", fmt.Sprintf("/api/admin/lessons/%d/questions", lessonID), q)
		req.Header.Set("Authorization", adminToken)
		resp, err = app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	req = jsonRequest("PUT", fmt.Sprintf("/api/admin/lessons/%d/publish", lessonID), fiber.Map{
		"is_published": true,
	})
	req.Header.Set("Authorization", adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	return lessonID
}

func TestQuizSubmissionScoresAndUnlocks(t *testing.T) {
	app, db, _ := newTestApp(t)

	adminToken := registerAdmin(t, app, db, "teacher1")
	lessonID := createQuizLesson(t, app, adminToken)

	var questions []models.QuizQuestion
	require.NoError(t, db.Where("lesson_id = ?", lessonID).
		Order("sequence_order ASC").Find(&questions).Error)
	require.Len(t, questions, 2)

	userToken := registerUser(t, app, "student1")

	// One of two ten-point questions correct: 50%.
	answers := fiber.Map{
		fmt.Sprint(questions[0].ID): "1",
		fmt.Sprint(questions[1].ID): "2",
	}
	req := jsonRequest("POST", fmt.Sprintf("/api/lessons/%d/progress", lessonID), fiber.Map{
		"time_spent": 120,
		"answers":    answers,
	})
	req.Header.Set("Authorization", userToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	quiz := body["quiz"].(map[string]interface{})
	assert.EqualValues(t, 50, quiz["score"])
	assert.EqualValues(t, 1, quiz["correct"])

	// A scored submission counts as a completion, so the first unlock fires.
	unlocked, ok := body["unlocked_achievements"].([]interface{})
	require.True(t, ok)
	names := make([]string, 0, len(unlocked))
	for _, entry := range unlocked {
		names = append(names, entry.(map[string]interface{})["Name"].(string))
	}
	assert.Contains(t, names, "First Steps")
}

func TestQuizQuestionsHideCorrectAnswers(t *testing.T) {
	app, db, _ := newTestApp(t)

	adminToken := registerAdmin(t, app, db, "teacher2")
	lessonID := createQuizLesson(t, app, adminToken)
	userToken := registerUser(t, app, "student2")

	req := httptest.NewRequest("GET", fmt.Sprintf("/api/lessons/%d", lessonID), nil)
	req.Header.Set("Authorization", userToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "correct_answer")

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	lesson := body["lesson"].(map[string]interface{})
	assert.Len(t, lesson["questions"].([]interface{}), 2)
}

func TestProgressEndpointsReflectCompletion(t *testing.T) {
	app, db, _ := newTestApp(t)

	adminToken := registerAdmin(t, app, db, "teacher3")

	req := jsonRequest("POST", "/api/admin/lessons/", fiber.Map{
		"title": "Reading Lesson",
		"type":  "text",
	})
	req.Header.Set("Authorization", adminToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	lessonID := int(body["lesson"].(map[string]interface{})["ID"].(float64))

	req = jsonRequest("PUT", fmt.Sprintf("/api/admin/lessons/%d/publish", lessonID), fiber.Map{
		"is_published": true,
	})
	req.Header.Set("Authorization", adminToken)
	_, err = app.Test(req)
	require.NoError(t, err)

	userToken := registerUser(t, app, "student3")

	req = jsonRequest("POST", fmt.Sprintf("/api/lessons/%d/progress", lessonID), fiber.Map{
		"completed":  true,
		"time_spent": 300,
	})
	req.Header.Set("Authorization", userToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	req = httptest.NewRequest("GET", "/api/progress/streak", nil)
	req.Header.Set("Authorization", userToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.EqualValues(t, 1, body["current_streak"])

	req = httptest.NewRequest("GET", "/api/progress/overview", nil)
	req.Header.Set("Authorization", userToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	body = decodeBody(t, resp)
	assert.EqualValues(t, 1, body["completed_lessons"])
	assert.EqualValues(t, 300, body["time_spent"])
	assert.EqualValues(t, 1, body["completed_today"])
}

func TestUnpublishedLessonProgressIsNotFound(t *testing.T) {
	app, db, _ := newTestApp(t)

	adminToken := registerAdmin(t, app, db, "teacher4")

	req := jsonRequest("POST", "/api/admin/lessons/", fiber.Map{
		"title": "Draft Lesson",
		"type":  "text",
	})
	req.Header.Set("Authorization", adminToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	lessonID := int(body["lesson"].(map[string]interface{})["ID"].(float64))

	userToken := registerUser(t, app, "student4")

	req = jsonRequest("POST", fmt.Sprintf("/api/lessons/%d/progress", lessonID), fiber.Map{
		"completed": true,
	})
	req.Header.Set("Authorization", userToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestAddQuestionValidation(t *testing.T) {
	app, db, _ := newTestApp(t)

	adminToken := registerAdmin(t, app, db, "teacher5")

	req := jsonRequest("POST", "/api/admin/lessons/", fiber.Map{
		"title": "Validation Quiz",
		"type":  "quiz",
	})
	req.Header.Set("Authorization", adminToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	body := decodeBody(t, resp)
	lessonID := int(body["lesson"].(map[string]interface{})["ID"].(float64))

	cases := []fiber.Map{
		// Index out of range for the options.
		{
			"type":           "multiple_choice",
			"prompt":         "Pick one",
			"options":        []string{"a", "b"},
			"correct_answer": "5",
		},
		// True/false answer that is neither.
		{
			"type":           "true_false",
			"prompt":         "Yes or no",
			"correct_answer": "maybe",
		},
		// Blank answer for fill-in-the-blank.
		{
			"type":           "fill_blank",
			"prompt":         "Fill this",
			"correct_answer": "   ",
		},
	}
	for _, payload := range cases {
		req = jsonRequest("POST", fmt.Sprintf("/api/admin/lessons/%d/questions", lessonID), payload)
		req.Header.Set("Authorization", adminToken)
		resp, err = app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	}
}

// createPublishedTextLesson creates and publishes a text lesson, returning its id.
func createPublishedTextLesson(t *testing.T, app *fiber.App, adminToken, title string) int {
	t.Helper()

	req := jsonRequest("POST", "/api/admin/lessons/", fiber.Map{
		"title": title,
		"type":  "text",
	})
	req.Header.Set("Authorization", adminToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	lessonID := int(decodeBody(t, resp)["lesson"].(map[string]interface{})["ID"].(float64))

	req = jsonRequest("PUT", fmt.Sprintf("/api/admin/lessons/%d/publish", lessonID), fiber.Map{
		"is_published": true,
	})
	req.Header.Set("Authorization", adminToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	return lessonID
}

func TestRegisterMultipleLocalUsers(t *testing.T) {
	app, db, _ := newTestApp(t)

	registerUser(t, app, "first")
	registerUser(t, app, "second")
	registerUser(t, app, "third")

	var users int64
	db.Model(&models.User{}).Count(&users)
	assert.EqualValues(t, 3, users)
}

func TestWebhookRetryAfterFailedCreate(t *testing.T) {
	app, db, _ := newTestApp(t)

	// Take the email the webhook will try to use.
	registerUser(t, app, "erin")

	event := fiber.Map{
		"id":   "evt_retry",
		"type": "user.created",
		"data": fiber.Map{
			"id":    "ext_retry",
			"email": "erin@example.com",
			"name":  "Erin",
		},
	}

	req := jsonRequest("POST", "/api/webhooks/identity", event)
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	// The failed insert must roll back the dedup row, or the retry below
	// would be swallowed as a replay.
	var events int64
	db.Model(&models.WebhookEvent{}).Where("event_id = ?", "evt_retry").Count(&events)
	assert.Equal(t, int64(0), events)

	// Clear the conflict, then let the provider retry.
	require.NoError(t, db.Unscoped().Where("username = ?", "erin").Delete(&models.User{}).Error)

	req = jsonRequest("POST", "/api/webhooks/identity", event)
	req.Header.Set("X-Webhook-Secret", "hook-secret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	var users int64
	db.Model(&models.User{}).Where("external_id = ?", "ext_retry").Count(&users)
	assert.Equal(t, int64(1), users)
}

func TestOverviewCountsTodayInUserTimezone(t *testing.T) {
	if _, err := time.LoadLocation("America/New_York"); err != nil {
		t.Skip("tzdata unavailable")
	}

	app, db, _, progress := newTestEnv(t)

	adminToken := registerAdmin(t, app, db, "tzadmin")
	lessonID := createPublishedTextLesson(t, app, adminToken, "Evening Reading")

	userToken := registerUser(t, app, "tzuser")
	require.NoError(t, db.Model(&models.User{}).
		Where("username = ?", "tzuser").
		Update("timezone", "America/New_York").Error)

	// Complete at 20:00 UTC on April 1st, which is 16:00 local.
	progress.Now = func() time.Time {
		return time.Date(2026, time.April, 1, 20, 0, 0, 0, time.UTC)
	}
	req := jsonRequest("POST", fmt.Sprintf("/api/lessons/%d/progress", lessonID), fiber.Map{
		"completed": true,
	})
	req.Header.Set("Authorization", userToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Query at 03:00 UTC April 2nd, still 23:00 on April 1st locally. The
	// completion happened today by the user's calendar.
	progress.Now = func() time.Time {
		return time.Date(2026, time.April, 2, 3, 0, 0, 0, time.UTC)
	}
	req = httptest.NewRequest("GET", "/api/progress/overview", nil)
	req.Header.Set("Authorization", userToken)
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["completed_today"])
	assert.Equal(t, true, body["goal_met"])
}
