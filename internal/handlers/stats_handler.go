package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"codejournal/internal/services"
)

// StatsHandler serves the read-only statistics and leaderboard routes.
type StatsHandler struct {
	stats     *services.StatsService
	directory *services.DirectoryService
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(stats *services.StatsService, directory *services.DirectoryService) *StatsHandler {
	return &StatsHandler{stats: stats, directory: directory}
}

// RegisterRoutes registers the statistics routes.
func (h *StatsHandler) RegisterRoutes(router fiber.Router) {
	router.Get("/user-stats/:userId", h.HandleUserStats)
	router.Get("/leaderboard", h.HandleLeaderboard)
	router.Get("/user-history/:userId", h.HandleUserHistory)
	router.Get("/analytics/:userId", h.HandleAnalytics)
}

// HandleUserStats returns the computed statistics for one user.
func (h *StatsHandler) HandleUserStats(c *fiber.Ctx) error {
	userID, err := pathUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}

	result, err := h.stats.UserStats(userID)
	if err != nil {
		return fail(c, err)
	}
	result.User = result.User.Sanitized()

	return c.JSON(fiber.Map{
		"success":  true,
		"stats":    result,
		"userFile": fmt.Sprintf("%d.json", userID),
	})
}

// HandleLeaderboard returns the top users by XP from the master index.
func (h *StatsHandler) HandleLeaderboard(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 10)

	board, err := h.directory.Leaderboard(limit)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"leaderboard": board,
	})
}

// HandleUserHistory returns execution/error history, newest first.
func (h *StatsHandler) HandleUserHistory(c *fiber.Ctx) error {
	userID, err := pathUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	limit := c.QueryInt("limit", 50)
	kind := c.Query("type", services.HistoryAll)

	result, err := h.stats.History(userID, kind, limit)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"history":  result.Entries,
		"total":    result.Total,
		"type":     result.Kind,
		"userFile": fmt.Sprintf("%d.json", userID),
	})
}

// HandleAnalytics returns aggregated activity for a timeframe.
func (h *StatsHandler) HandleAnalytics(c *fiber.Ctx) error {
	userID, err := pathUserID(c)
	if err != nil {
		return badRequest(c, "Invalid user id")
	}
	timeframe := c.Query("timeframe", "30days")

	analytics, err := h.stats.Analytics(userID, timeframe)
	if err != nil {
		return fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"analytics": analytics,
		"userFile":  fmt.Sprintf("%d.json", userID),
	})
}
