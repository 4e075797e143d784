package handlers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"codejournal/internal/handlers"
	"codejournal/internal/middleware"
	"codejournal/internal/repositories"
	"codejournal/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupApp wires a Fiber app over the in-memory store with all handlers, the
// way main assembles the real one.
func setupApp() (*fiber.App, *services.AuthService, error) {
	store := repositories.NewMemoryStore()
	if err := store.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to init store: %w", err)
	}

	directoryService := services.NewDirectoryService(store, nil)
	gamificationService := services.NewGamificationService(store, nil)
	authService := services.NewAuthService(store, directoryService, gamificationService, "test_jwt_secret")
	statsService := services.NewStatsService(store)

	app := fiber.New()
	api := app.Group("/api")

	handlers.NewAuthHandler(authService).RegisterRoutes(api)
	handlers.NewSessionHandler(gamificationService, statsService).RegisterRoutes(api)
	handlers.NewExecutionHandler(gamificationService).RegisterRoutes(api)
	handlers.NewProjectHandler(gamificationService, directoryService).RegisterRoutes(api)
	handlers.NewStatsHandler(statsService, directoryService).RegisterRoutes(api)

	protected := app.Group("/api", middleware.AuthRequired(authService))
	handlers.NewAdminHandler(statsService, directoryService).RegisterRoutes(protected)

	return app, authService, nil
}

// TestMain runs setup and teardown for all tests
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	jsonBody, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(jsonBody))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func getJSON(t *testing.T, app *fiber.App, path, token string) (*http.Response, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp, decodeBody(t, resp)
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// registerUser registers a user and returns its id. Ids are millisecond
// timestamps, so consecutive registrations wait out the millisecond.
func registerUser(t *testing.T, app *fiber.App, username string) int64 {
	t.Helper()
	resp, body := postJSON(t, app, "/api/register", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	user := body["user"].(map[string]interface{})
	time.Sleep(2 * time.Millisecond)
	return int64(user["id"].(float64))
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app, authService, err := setupApp()
	require.NoError(t, err)

	resp, body := postJSON(t, app, "/api/register", map[string]string{
		"username": "testuser",
		"email":    "test@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body["message"], "Welcome bonus: +50 XP")

	user := body["user"].(map[string]interface{})
	assert.Equal(t, float64(50), user["xp"])
	assert.Equal(t, float64(1), user["level"])
	// The password hash never leaves the server.
	assert.Empty(t, user["password"])

	// Duplicate registration fails.
	resp, body = postJSON(t, app, "/api/register", map[string]string{
		"username": "testuser",
		"email":    "other@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, false, body["success"])

	// Login issues a valid token.
	resp, body = postJSON(t, app, "/api/login", map[string]string{
		"username": "testuser",
		"password": "password123",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	token, _ := body["token"].(string)
	assert.NotEmpty(t, token)
	// Same calendar day as registration: no daily bonus.
	assert.Equal(t, false, body["dailyBonus"])

	claims, err := authService.ValidateToken(token)
	assert.NoError(t, err)
	assert.Equal(t, "testuser", claims["username"])

	// Wrong password.
	resp, body = postJSON(t, app, "/api/login", map[string]string{
		"username": "testuser",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestRegisterValidation(t *testing.T) {
	app, _, err := setupApp()
	require.NoError(t, err)

	resp, _ := postJSON(t, app, "/api/register", map[string]string{
		"username": "nomail",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCodingSessionFlow(t *testing.T) {
	app, _, err := setupApp()
	require.NoError(t, err)
	userID := registerUser(t, app, "ana")

	// Start session: +10 XP.
	resp, body := postJSON(t, app, "/api/start-session", map[string]interface{}{"userId": userID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID := int64(body["sessionId"].(float64))
	assert.NotZero(t, sessionID)
	assert.Equal(t, float64(60), body["user"].(map[string]interface{})["xp"])

	// Run code: +15 XP.
	resp, body = postJSON(t, app, "/api/run-code", map[string]interface{}{
		"userId":    userID,
		"sessionId": sessionID,
		"code": map[string]interface{}{
			"js":        "console.log(1)",
			"lineCount": map[string]int{"js": 1, "total": 1},
		},
		"compilationResult": map[string]interface{}{"syntaxValid": true, "executionTime": 5.0},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(15), body["xpGained"])
	assert.Equal(t, float64(75), body["user"].(map[string]interface{})["xp"])

	// Report one error: -5 XP.
	resp, body = postJSON(t, app, "/api/code-error", map[string]interface{}{
		"userId":    userID,
		"sessionId": sessionID,
		"compilationResult": map[string]interface{}{
			"hasErrors": true,
			"errors":    []map[string]string{{"message": "x is not defined"}},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(5), body["xpLost"])
	assert.Equal(t, float64(70), body["user"].(map[string]interface{})["xp"])

	// Save first project: +50 milestone (level up, +20 bonus) +25 save.
	resp, body = postJSON(t, app, "/api/save-project", map[string]interface{}{
		"userId":    userID,
		"sessionId": sessionID,
		"projectData": map[string]interface{}{
			"name": "portfolio",
			"html": "<h1>Hi</h1>",
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	saved := body["user"].(map[string]interface{})
	assert.Equal(t, float64(165), saved["xp"])
	assert.Equal(t, float64(2), saved["level"])

	// End session.
	resp, body = postJSON(t, app, "/api/end-session", map[string]interface{}{
		"userId":    userID,
		"sessionId": sessionID,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	session := body["session"].(map[string]interface{})
	assert.Equal(t, "completed", session["status"])

	// Read-side endpoints agree with the flow.
	resp, body = getJSON(t, app, fmt.Sprintf("/api/user-stats/%d", userID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := body["stats"].(map[string]interface{})
	summary := stats["summary"].(map[string]interface{})
	assert.Equal(t, float64(1), summary["completedSessions"])

	resp, body = getJSON(t, app, fmt.Sprintf("/api/session/%d/%d", userID, sessionID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])

	resp, body = getJSON(t, app, fmt.Sprintf("/api/user-projects/%d", userID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["totalProjects"])

	resp, body = getJSON(t, app, fmt.Sprintf("/api/user-history/%d?type=all&limit=10", userID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(2), body["total"]) // one execution, one error

	resp, body = getJSON(t, app, fmt.Sprintf("/api/analytics/%d?timeframe=7days", userID), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	analytics := body["analytics"].(map[string]interface{})
	assert.Equal(t, float64(1), analytics["totalExecutions"])

	resp, body = getJSON(t, app, "/api/leaderboard?limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	board := body["leaderboard"].([]interface{})
	assert.Len(t, board, 1)
	first := board[0].(map[string]interface{})
	assert.Equal(t, "ana", first["username"])
	assert.Equal(t, float64(165), first["xp"])
}

func TestStartSessionUnknownUser(t *testing.T) {
	app, _, err := setupApp()
	require.NoError(t, err)

	resp, body := postJSON(t, app, "/api/start-session", map[string]interface{}{"userId": 123456})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, false, body["success"])
}

func TestAdminEndpointsRequireAuth(t *testing.T) {
	app, _, err := setupApp()
	require.NoError(t, err)
	userID := registerUser(t, app, "admin")

	resp, _ := getJSON(t, app, "/api/admin/overview", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, body := postJSON(t, app, "/api/login", map[string]string{
		"username": "admin",
		"password": "password123",
	})
	token := body["token"].(string)

	resp, body = getJSON(t, app, "/api/admin/overview", token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	overview := body["overview"].(map[string]interface{})
	assert.Equal(t, float64(1), overview["totalUsers"])

	resp, body = getJSON(t, app, fmt.Sprintf("/api/admin/user-file/%d", userID), token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["success"])
}
