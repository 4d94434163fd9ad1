package server

import (
	"github.com/gofiber/fiber/v2"
)

// Template names handed to the Renderer.
const (
	templateIndex      = "posts/index.html"
	templateGroupList  = "posts/group_list.html"
	templateProfile    = "posts/profile.html"
	templatePostDetail = "posts/post_detail.html"
	templateCreatePost = "posts/create_post.html"
	templateSignup     = "users/signup.html"
	templateLogin      = "users/login.html"
	templateLoggedOut  = "users/logged_out.html"
)

// Renderer turns a template name and its context into a response.
type Renderer interface {
	Render(c *fiber.Ctx, status int, template string, data fiber.Map) error
}

// JSONRenderer writes {"template": ..., "context": ...} so any front end can draw the page.
type JSONRenderer struct{}

func (JSONRenderer) Render(c *fiber.Ctx, status int, template string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	return c.Status(status).JSON(fiber.Map{
		"template": template,
		"context":  data,
	})
}

func (s *Server) render(c *fiber.Ctx, status int, template string, data fiber.Map) error {
	return s.renderer.Render(c, status, template, data)
}
