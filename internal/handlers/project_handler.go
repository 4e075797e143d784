package handlers

import (
	"fmt"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"codejournal/internal/services"
)

// ProjectHandler handles project save and listing requests.
type ProjectHandler struct {
	engine    *services.GamificationService
	directory *services.DirectoryService
	validate  *validator.Validate
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(engine *services.GamificationService, directory *services.DirectoryService) *ProjectHandler {
	return &ProjectHandler{
		engine:    engine,
		directory: directory,
		validate:  validator.New(),
	}
}

// RegisterRoutes registers the project routes.
func (h *ProjectHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/save-project", h.HandleSaveProject)
	router.Get("/user-projects/:userId", h.HandleUserProjects)
}

// SaveProjectRequest is the request body for a project save.
type SaveProjectRequest struct {
	UserID      int64                 `json:"userId" validate:"required"`
	SessionID   *int64                `json:"sessionId"`
	ProjectData services.ProjectInput `json:"projectData"`
}

// HandleSaveProject stores a project and credits the save XP.
func (h *ProjectHandler) HandleSaveProject(c *fiber.Ctx) error {
	var req SaveProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := h.validate.Struct(req); err != nil {
		return badRequest(c, "Missing userId")
	}
	if err := h.validate.Struct(req.ProjectData); err != nil {
		return badRequest(c, "Missing project name")
	}

	result, err := h.engine.SaveProject(req.UserID, req.ProjectData, req.SessionID)
	if err != nil {
		log.Printf("Error saving project for user %d: %v", req.UserID, err)
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"project":      result.Project,
		"user":         result.User.Sanitized(),
		"xpGained":     services.ProjectSaveXP,
		"message":      fmt.Sprintf("Project %q saved! +%d XP", result.Project.Name, services.ProjectSaveXP),
		"projectStats": result.Project.Statistics,
		"userFile":     fmt.Sprintf("%d.json", req.UserID),
	})
}

// HandleUserProjects lists a user's saved projects.
func (h *ProjectHandler) HandleUserProjects(c *fiber.Ctx) error {
	userID, err := pathUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	user, err := h.directory.FindByID(userID)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":       true,
		"projects":      user.Projects,
		"totalProjects": user.Statistics.TotalProjects,
		"userFile":      fmt.Sprintf("%d.json", userID),
	})
}
