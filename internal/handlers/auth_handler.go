package handlers

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"codejournal/internal/services"
)

// AuthHandler handles registration and login requests.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the authentication routes.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// HandleRegister creates a new account with the welcome bonus applied.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing register request body: %v", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "Missing required fields")
	}

	user, err := h.authService.Register(req.Username, req.Email, req.Password)
	if err != nil {
		log.Printf("Error registering user %s: %v", req.Username, err)
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user.Sanitized(),
		"message": fmt.Sprintf("Account created! Welcome bonus: +%d XP! Your user file: %d.json", services.WelcomeBonusXP, user.ID),
	})
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin authenticates a user, applying the daily bonus when due.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		log.Printf("Error parsing login request body: %v", err)
		return badRequest(c, "Invalid request body")
	}

	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "Missing username or password")
	}

	result, err := h.authService.Login(req.Username, req.Password)
	if err != nil {
		log.Printf("Error during login for user %s: %v", req.Username, err)
		return fail(c, err)
	}

	message := "Welcome back!"
	if result.DailyBonus {
		message = fmt.Sprintf("Welcome back! +%d Daily XP!", services.DailyBonusXP)
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"user":       result.User.Sanitized(),
		"token":      result.Token,
		"dailyBonus": result.DailyBonus,
		"message":    message,
		"userFile":   fmt.Sprintf("%d.json", result.User.ID),
	})
}
