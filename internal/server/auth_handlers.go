package server

import (
	"log/slog"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

// SignupForm handles GET /auth/signup
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, templateSignup, fiber.Map{
		"form": newForm(nil),
	})
}

// Signup handles POST /auth/signup
func (s *Server) Signup(c *fiber.Ctx) error {
	in := service.SignupInput{
		Username:  c.FormValue("username"),
		Email:     c.FormValue("email"),
		Password:  c.FormValue("password"),
		FirstName: c.FormValue("first_name"),
		LastName:  c.FormValue("last_name"),
	}

	if _, err := s.userService.Signup(c.UserContext(), in); err != nil {
		if !models.IsValidation(err) {
			return s.respondError(c, err)
		}
		return s.render(c, fiber.StatusBadRequest, templateSignup, fiber.Map{
			"form": newForm(fiber.Map{
				"username":   in.Username,
				"email":      in.Email,
				"first_name": in.FirstName,
				"last_name":  in.LastName,
			}).withError(err),
		})
	}
	return c.Redirect("/", fiber.StatusFound)
}

// LoginForm handles GET /auth/login
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, templateLogin, fiber.Map{
		"form": newForm(nil),
		"next": c.Query("next"),
	})
}

// Login handles POST /auth/login and sets the session cookie.
func (s *Server) Login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	next := c.FormValue("next")
	if next == "" {
		next = c.Query("next")
	}

	user, err := s.userService.Authenticate(c.UserContext(), username, c.FormValue("password"))
	if err != nil {
		if !models.IsUnauthorized(err) {
			return s.respondError(c, err)
		}
		return s.render(c, fiber.StatusBadRequest, templateLogin, fiber.Map{
			"form": newForm(fiber.Map{"username": username}).withError(err),
			"next": next,
		})
	}

	token, claims, err := middleware.GenerateToken(s.config.JWTSecret, user.ID, user.Username, sessionTTL)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt,
		HTTPOnly: true,
		Secure:   s.config.Env == "production",
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	middleware.Logger.InfoContext(c.UserContext(), "user logged in",
		slog.Uint64("user_id", uint64(user.ID)),
	)
	return c.Redirect(safeNext(next, "/"), fiber.StatusFound)
}

// Logout handles POST /auth/logout
func (s *Server) Logout(c *fiber.Ctx) error {
	if claims, ok := middleware.CurrentClaims(c); ok {
		if err := middleware.RevokeToken(c.UserContext(), s.redis, claims); err != nil {
			middleware.Logger.WarnContext(c.UserContext(), "failed to revoke token",
				slog.String("error", err.Error()),
			)
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	return s.render(c, fiber.StatusOK, templateLoggedOut, nil)
}

// IssueToken handles POST /api/auth/token for API clients.
func (s *Server) IssueToken(c *fiber.Ctx) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Authenticate(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return s.respondError(c, err)
	}

	token, claims, err := middleware.GenerateToken(s.config.JWTSecret, user.ID, user.Username, sessionTTL)
	if err != nil {
		return s.respondError(c, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"expires_at": claims.ExpiresAt,
		"user":       user,
	})
}
