package server

import (
	"log/slog"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// ListGroups handles GET /groups
func (s *Server) ListGroups(c *fiber.Ctx) error {
	groups, err := s.groupService.ListGroups(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(groups)
}

// CreateGroup handles POST /api/admin/groups
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	var req struct {
		Title       string `json:"title"`
		Slug        string `json:"slug"`
		Description string `json:"description"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	group, err := s.groupService.CreateGroup(c.UserContext(), service.CreateGroupInput{
		Title:       req.Title,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(group)
}

// DeleteGroup handles DELETE /api/admin/groups/:slug
func (s *Server) DeleteGroup(c *fiber.Ctx) error {
	if err := s.groupService.DeleteGroup(c.UserContext(), c.Params("slug")); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteUser handles DELETE /api/admin/users/:username
func (s *Server) DeleteUser(c *fiber.Ctx) error {
	if err := s.userService.DeleteUser(c.UserContext(), c.Params("username")); err != nil {
		return s.respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ClearFeedCache handles POST /api/admin/cache/clear
func (s *Server) ClearFeedCache(c *fiber.Ctx) error {
	if err := s.postService.ClearFeedCache(c.UserContext()); err != nil {
		return s.respondError(c, err)
	}
	middleware.Logger.InfoContext(c.UserContext(), "feed cache cleared",
		slog.Uint64("by_user_id", uint64(middleware.CurrentUserID(c))),
	)
	return c.JSON(fiber.Map{
		"status":      "cleared",
		"ttl_seconds": int(s.postService.FeedCacheTTL().Seconds()),
	})
}
