package server

import (
	"inkwell/internal/service"
	"inkwell/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// ServeMedia handles GET /media/*
// Local uploads are streamed directly; object storage redirects to a presigned URL.
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	key := c.Params("*")
	ctx := c.UserContext()

	if _, local := s.store.(*storage.LocalStorage); !local {
		target, err := s.imageService.URL(ctx, key, presignedTTL)
		if err != nil {
			return s.respondError(c, err)
		}
		return c.Redirect(target, fiber.StatusFound)
	}

	rc, err := s.imageService.Open(ctx, key)
	if err != nil {
		return s.respondError(c, err)
	}
	c.Set(fiber.HeaderContentType, service.ContentTypeForKey(key))
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	// fasthttp closes the stream once the body is sent
	return c.SendStream(rc)
}
