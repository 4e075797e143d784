package handlers

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"codejournal/internal/models"
	"codejournal/internal/services"
)

// ExecutionHandler handles code-run and code-error reports from the editor.
type ExecutionHandler struct {
	engine   *services.GamificationService
	validate *validator.Validate
}

// NewExecutionHandler creates a new ExecutionHandler.
func NewExecutionHandler(engine *services.GamificationService) *ExecutionHandler {
	return &ExecutionHandler{
		engine:   engine,
		validate: validator.New(),
	}
}

// RegisterRoutes registers the execution routes.
func (h *ExecutionHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/run-code", h.HandleRunCode)
	router.Post("/code-error", h.HandleCodeError)
}

// RunCodeRequest is the request body for a successful code execution.
type RunCodeRequest struct {
	UserID            int64                    `json:"userId" validate:"required"`
	SessionID         int64                    `json:"sessionId"`
	Code              models.CodeSnapshot      `json:"code"`
	CompilationResult models.CompilationResult `json:"compilationResult"`
}

// HandleRunCode records an execution and credits the run XP.
func (h *ExecutionHandler) HandleRunCode(c *fiber.Ctx) error {
	var req RunCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "Missing userId")
	}

	result, err := h.engine.RecordExecution(req.UserID, req.SessionID, req.Code, req.CompilationResult)
	if err != nil {
		log.Printf("Error recording code run for user %d: %v", req.UserID, err)
		return fail(c, err)
	}

	message := fmt.Sprintf("Code executed successfully! +%d XP", services.CodeRunXP)
	if result.LeveledUp {
		message = fmt.Sprintf("Code executed! +%d XP + %d Level Up Bonus!", services.CodeRunXP, result.LevelUpBonus)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"user":          result.User.Sanitized(),
		"xpGained":      result.XPGained,
		"leveledUp":     result.LeveledUp,
		"levelUpBonus":  result.LevelUpBonus,
		"executionId":   result.ExecutionID,
		"historyStored": true,
		"message":       message,
		"userFile":      fmt.Sprintf("%d.json", req.UserID),
	})
}

// CodeErrorRequest is the request body for reported compilation errors.
type CodeErrorRequest struct {
	UserID            int64                    `json:"userId" validate:"required"`
	SessionID         int64                    `json:"sessionId"`
	CompilationResult models.CompilationResult `json:"compilationResult"`
}

// HandleCodeError records compilation errors and deducts XP per error.
func (h *ExecutionHandler) HandleCodeError(c *fiber.Ctx) error {
	var req CodeErrorRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "Missing userId")
	}

	result, err := h.engine.RecordCodeErrors(req.UserID, req.SessionID, req.CompilationResult)
	if err != nil {
		log.Printf("Error recording code errors for user %d: %v", req.UserID, err)
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"user":         result.User.Sanitized(),
		"xpLost":       result.XPLost,
		"errorId":      result.ErrorID,
		"errorCount":   result.ErrorCount,
		"warningCount": result.WarningCount,
		"message":      fmt.Sprintf("%d error(s) detected! -%d XP", result.ErrorCount, result.XPLost),
		"userFile":     fmt.Sprintf("%d.json", req.UserID),
	})
}
