package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"codejournal/internal/services"
)

// AdminHandler serves the JWT-protected database inspection routes.
type AdminHandler struct {
	stats     *services.StatsService
	directory *services.DirectoryService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(stats *services.StatsService, directory *services.DirectoryService) *AdminHandler {
	return &AdminHandler{stats: stats, directory: directory}
}

// RegisterRoutes registers the admin routes. The caller wraps them with the
// auth middleware.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/admin/overview", h.HandleOverview)
	router.Get("/admin/user-file/:userId", h.HandleUserFile)
	router.Get("/export-user/:userId", h.HandleExportUser)
}

// HandleOverview reports the index metadata and on-disk file count.
func (h *AdminHandler) HandleOverview(c *fiber.Ctx) error {
	overview, err := h.stats.Overview()
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"overview": overview,
	})
}

// HandleUserFile returns the raw stored document for one user.
func (h *AdminHandler) HandleUserFile(c *fiber.Ctx) error {
	userID, err := pathUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	user, err := h.directory.FindByID(userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"userData": user,
		"filePath": fmt.Sprintf("database/users/%d.json", userID),
	})
}

// HandleExportUser streams a user's document as a download.
func (h *AdminHandler) HandleExportUser(c *fiber.Ctx) error {
	userID, err := pathUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	user, err := h.directory.FindByID(userID)
	if err != nil {
		return fail(c, err)
	}

	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", user.Username+"_data.json"))
	return c.JSON(user)
}
