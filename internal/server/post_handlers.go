package server

import (
	"strconv"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Index handles GET /
func (s *Server) Index(c *fiber.Ctx) error {
	page, err := s.postService.ListAllPosts(c.UserContext(), c.Query("page"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, templateIndex, fiber.Map{
		"page_obj": page,
	})
}

// GroupPosts handles GET /group/:slug
func (s *Server) GroupPosts(c *fiber.Ctx) error {
	result, err := s.postService.ListPostsByGroup(c.UserContext(), c.Params("slug"), c.Query("page"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, templateGroupList, fiber.Map{
		"group":    result.Group,
		"page_obj": result.Page,
	})
}

// Profile handles GET /profile/:username
func (s *Server) Profile(c *fiber.Ctx) error {
	result, err := s.postService.ListPostsByAuthor(c.UserContext(),
		c.Params("username"), c.Query("page"), middleware.CurrentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, templateProfile, fiber.Map{
		"author":             result.Author,
		"following":          result.Following,
		"author_posts_count": result.PostsCount,
		"page_obj":           result.Page,
	})
}

// PostDetail handles GET /posts/:id
func (s *Server) PostDetail(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	detail, err := s.postService.GetPost(c.UserContext(), id)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, templatePostDetail, fiber.Map{
		"post":               detail.Post,
		"comments":           detail.Comments,
		"form":               newForm(fiber.Map{"text": ""}),
		"author_posts_count": detail.AuthorPostsCount,
	})
}

// FollowIndex handles GET /follow
func (s *Server) FollowIndex(c *fiber.Ctx) error {
	page, err := s.postService.ListFollowedFeed(c.UserContext(), middleware.CurrentUserID(c), c.Query("page"))
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, templateIndex, fiber.Map{
		"page_obj": page,
	})
}

// PostCreateForm handles GET /create
func (s *Server) PostCreateForm(c *fiber.Ctx) error {
	groups, err := s.postService.Groups(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, templateCreatePost, fiber.Map{
		"form":   newForm(fiber.Map{"text": "", "group": nil}),
		"groups": groups,
	})
}

// PostCreate handles POST /create
func (s *Server) PostCreate(c *fiber.Ctx) error {
	ctx := c.UserContext()
	data := fiber.Map{"text": c.FormValue("text"), "group": c.FormValue("group")}

	rerender := func(err error) error {
		if !models.IsValidation(err) {
			return s.respondError(c, err)
		}
		groups, gErr := s.postService.Groups(ctx)
		if gErr != nil {
			return s.respondError(c, gErr)
		}
		return s.render(c, fiber.StatusBadRequest, templateCreatePost, fiber.Map{
			"form":   newForm(data).withError(err),
			"groups": groups,
		})
	}

	groupID, err := parseGroupID(c.FormValue("group"))
	if err != nil {
		return rerender(err)
	}
	image, err := imageUpload(c)
	if err != nil {
		return s.respondError(c, err)
	}

	post, err := s.postService.CreatePost(ctx, service.CreatePostInput{
		AuthorID: middleware.CurrentUserID(c),
		Text:     c.FormValue("text"),
		GroupID:  groupID,
		Image:    image,
	})
	if err != nil {
		return rerender(err)
	}

	username := ""
	if post.Author != nil {
		username = post.Author.Username
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}

// PostEditForm handles GET /posts/:id/edit
func (s *Server) PostEditForm(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	detail, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}
	post := detail.Post
	if post.AuthorID != middleware.CurrentUserID(c) {
		return c.Redirect(postURL(post.ID), fiber.StatusFound)
	}

	groups, err := s.postService.Groups(ctx)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.render(c, fiber.StatusOK, templateCreatePost, fiber.Map{
		"post":    post,
		"form":    newForm(fiber.Map{"text": post.Text, "group": post.GroupID, "image": post.Image}),
		"groups":  groups,
		"is_edit": true,
	})
}

// PostEdit handles POST /posts/:id/edit
func (s *Server) PostEdit(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()

	// ownership first, so strangers never reach form parsing
	detail, err := s.postService.GetPost(ctx, id)
	if err != nil {
		return s.respondError(c, err)
	}
	if detail.Post.AuthorID != middleware.CurrentUserID(c) {
		return c.Redirect(postURL(id), fiber.StatusFound)
	}

	data := fiber.Map{"text": c.FormValue("text"), "group": c.FormValue("group")}

	rerender := func(err error) error {
		switch {
		case models.IsForbidden(err):
			return c.Redirect(postURL(id), fiber.StatusFound)
		case !models.IsValidation(err):
			return s.respondError(c, err)
		}
		groups, gErr := s.postService.Groups(ctx)
		if gErr != nil {
			return s.respondError(c, gErr)
		}
		return s.render(c, fiber.StatusBadRequest, templateCreatePost, fiber.Map{
			"post":    detail.Post,
			"form":    newForm(data).withError(err),
			"groups":  groups,
			"is_edit": true,
		})
	}

	groupID, err := parseGroupID(c.FormValue("group"))
	if err != nil {
		return rerender(err)
	}
	image, err := imageUpload(c)
	if err != nil {
		return s.respondError(c, err)
	}
	// checkbox inputs post "on"
	clearImage, _ := strconv.ParseBool(c.FormValue("image-clear"))
	clearImage = clearImage || c.FormValue("image-clear") == "on"

	_, err = s.postService.EditPost(ctx, service.EditPostInput{
		PostID:      id,
		RequesterID: middleware.CurrentUserID(c),
		Text:        c.FormValue("text"),
		GroupID:     groupID,
		Image:       image,
		ClearImage:  clearImage,
	})
	if err != nil {
		return rerender(err)
	}
	return c.Redirect(postURL(id), fiber.StatusFound)
}

// PostDelete handles POST /posts/:id/delete
func (s *Server) PostDelete(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.DeletePost(c.UserContext(), service.DeletePostInput{
		PostID:      id,
		RequesterID: middleware.CurrentUserID(c),
	})
	if err != nil {
		if models.IsForbidden(err) {
			return c.Redirect(postURL(id), fiber.StatusFound)
		}
		return s.respondError(c, err)
	}

	username := ""
	if post.Author != nil {
		username = post.Author.Username
	}
	return c.Redirect(profileURL(username), fiber.StatusFound)
}
