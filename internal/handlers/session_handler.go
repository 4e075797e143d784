package handlers

import (
	"fmt"
	"log"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"codejournal/internal/services"
)

// SessionHandler handles coding-session lifecycle requests.
type SessionHandler struct {
	engine   *services.GamificationService
	stats    *services.StatsService
	validate *validator.Validate
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(engine *services.GamificationService, stats *services.StatsService) *SessionHandler {
	return &SessionHandler{
		engine:   engine,
		stats:    stats,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the session routes.
func (h *SessionHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/start-session", h.HandleStartSession)
	router.Post("/end-session", h.HandleEndSession)
	router.Get("/session/:userId/:sessionId", h.HandleSessionDetail)
}

// StartSessionRequest is the request body for starting a session.
type StartSessionRequest struct {
	UserID int64 `json:"userId" validate:"required"`
}

// HandleStartSession opens a new active session and credits the start XP.
func (h *SessionHandler) HandleStartSession(c *fiber.Ctx) error {
	var req StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "Missing userId")
	}

	result, err := h.engine.StartSession(req.UserID)
	if err != nil {
		log.Printf("Error starting session for user %d: %v", req.UserID, err)
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"sessionId": result.SessionID,
		"user":      result.User.Sanitized(),
		"message":   fmt.Sprintf("Session started! +%d XP", services.SessionStartXP),
		"userFile":  fmt.Sprintf("%d.json", req.UserID),
	})
}

// EndSessionRequest is the request body for ending a session.
type EndSessionRequest struct {
	UserID    int64 `json:"userId" validate:"required"`
	SessionID int64 `json:"sessionId" validate:"required"`
}

// HandleEndSession completes an active session.
func (h *SessionHandler) HandleEndSession(c *fiber.Ctx) error {
	var req EndSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "Missing userId or sessionId")
	}

	result, err := h.engine.EndSession(req.UserID, req.SessionID)
	if err != nil {
		log.Printf("Error ending session %d for user %d: %v", req.SessionID, req.UserID, err)
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"session":  result.Session,
		"user":     result.User.Sanitized(),
		"userFile": fmt.Sprintf("%d.json", req.UserID),
	})
}

// HandleSessionDetail returns one session with derived statistics.
func (h *SessionHandler) HandleSessionDetail(c *fiber.Ctx) error {
	userID, err := pathUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	sessionID, err := strconv.ParseInt(c.Params("sessionId"), 10, 64)
	if err != nil {
		return badRequest(c, "Invalid session id")
	}

	detail, err := h.stats.SessionDetail(userID, sessionID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"session":  detail,
		"userFile": fmt.Sprintf("%d.json", userID),
	})
}
