package server

import (
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /posts/:id/comment
// Invalid comments are dropped and the reader lands back on the post.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	_, err = s.commentService.AddComment(c.UserContext(), service.AddCommentInput{
		PostID:   id,
		AuthorID: middleware.CurrentUserID(c),
		Text:     c.FormValue("text"),
	})
	if err != nil && !models.IsValidation(err) {
		return s.respondError(c, err)
	}
	return c.Redirect(postURL(id), fiber.StatusFound)
}
