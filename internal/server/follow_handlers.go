package server

import (
	"inkwell/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// ProfileFollow handles POST /profile/:username/follow
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	username := c.Params("username")
	if _, err := s.followService.Follow(c.UserContext(), middleware.CurrentUserID(c), username); err != nil {
		return s.respondError(c, err)
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}

// ProfileUnfollow handles POST /profile/:username/unfollow
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	username := c.Params("username")
	if _, err := s.followService.Unfollow(c.UserContext(), middleware.CurrentUserID(c), username); err != nil {
		return s.respondError(c, err)
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}
