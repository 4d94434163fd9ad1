// Package server wires repositories, services and HTTP handlers into a Fiber application.
package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/service"
	"inkwell/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	loginPath    = "/auth/login"
	sessionTTL   = 7 * 24 * time.Hour
	presignedTTL = 15 * time.Minute
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	store          storage.Storage
	renderer       Renderer
	promMiddleware *fiberprometheus.FiberPrometheus
	userRepo       repository.UserRepository
	postRepo       repository.PostRepository
	groupRepo      repository.GroupRepository
	commentRepo    repository.CommentRepository
	followRepo     repository.FollowRepository
	feedCache      cache.FeedCache
	postService    *service.PostService
	commentService *service.CommentService
	followService  *service.FollowService
	userService    *service.UserService
	groupService   *service.GroupService
	imageService   *service.ImageService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// nil when Redis is unreachable; the feed cache falls back to memory
	redisClient := cache.NewRedisClient(cfg.RedisURL)

	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis itself.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.Storage) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if db == nil {
		return nil, errors.New("database is required")
	}

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		store:          store,
		renderer:       JSONRenderer{},
		promMiddleware: middleware.InitMetrics("inkwell"),
		userRepo:       repository.NewUserRepository(db),
		postRepo:       repository.NewPostRepository(db),
		groupRepo:      repository.NewGroupRepository(db),
		commentRepo:    repository.NewCommentRepository(db),
		followRepo:     repository.NewFollowRepository(db),
		feedCache:      cache.NewFeedCache(redisClient, cfg.FeedCacheTTL()),
	}

	server.imageService = service.NewImageService(store, cfg)
	server.userService = service.NewUserService(server.userRepo, server.postRepo, server.imageService)
	server.postService = service.NewPostService(
		server.postRepo,
		server.groupRepo,
		server.userRepo,
		server.followRepo,
		server.commentRepo,
		server.feedCache,
		server.imageService,
		server.isAdminByUserID,
	)
	server.commentService = service.NewCommentService(server.commentRepo, server.postRepo, server.userRepo)
	server.followService = service.NewFollowService(server.followRepo, server.userRepo)
	server.groupService = service.NewGroupService(server.groupRepo)

	return server, nil
}

// SetRenderer replaces the default JSON renderer.
func (s *Server) SetRenderer(r Renderer) {
	s.renderer = r
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Identify the caller before the context middleware copies locals into the request context
	app.Use(middleware.OptionalAuth(s.config.JWTSecret, s.redis, s.userExists))
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:8000,http://127.0.0.1:8000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", s.AdminRequired(), monitor.New(monitor.Config{
		Title: "Inkwell Metrics Dashboard",
	}))

	loginRequired := middleware.LoginRequired(loginPath)

	// Public pages
	app.Get("/", s.Index)
	app.Get("/group/:slug", s.GroupPosts)
	app.Get("/profile/:username", s.Profile)
	app.Get("/posts/:id", s.PostDetail)
	app.Get("/groups", s.ListGroups)
	app.Get("/media/*", s.ServeMedia)

	// Login-required pages
	app.Get("/create", loginRequired, s.PostCreateForm)
	app.Post("/create", loginRequired, middleware.RateLimit(
		s.redis, s.config.Env, 10, 5*time.Minute, "create_post"), s.PostCreate)
	app.Get("/posts/:id/edit", loginRequired, s.PostEditForm)
	app.Post("/posts/:id/edit", loginRequired, s.PostEdit)
	app.Post("/posts/:id/delete", loginRequired, s.PostDelete)
	app.Post("/posts/:id/comment", loginRequired, middleware.RateLimit(
		s.redis, s.config.Env, 10, time.Minute, "create_comment"), s.AddComment)
	app.Get("/follow", loginRequired, s.FollowIndex)
	app.Post("/profile/:username/follow", loginRequired, s.ProfileFollow)
	app.Post("/profile/:username/unfollow", loginRequired, s.ProfileUnfollow)

	// Session auth
	auth := app.Group("/auth")
	auth.Get("/signup", s.SignupForm)
	auth.Post("/signup", middleware.RateLimit(
		s.redis, s.config.Env, 3, 10*time.Minute, "signup"), s.Signup)
	auth.Get("/login", s.LoginForm)
	auth.Post("/login", middleware.RateLimit(
		s.redis, s.config.Env, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.Logout)

	api := app.Group("/api")
	api.Post("/auth/token", middleware.RateLimit(
		s.redis, s.config.Env, 10, 5*time.Minute, "login"), s.IssueToken)

	// Admin API
	admin := api.Group("/admin", middleware.APIAuthRequired(), s.AdminRequired())
	admin.Post("/groups", s.CreateGroup)
	admin.Delete("/groups/:slug", s.DeleteGroup)
	admin.Delete("/users/:username", s.DeleteUser)
	admin.Post("/cache/clear", s.ClearFeedCache)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests.
// Redis is optional: without it the feed cache runs in memory.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	} else if redisStatus != "healthy" {
		overallStatus = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"feed_cache_ttl_seconds": int(s.feedCache.TTL().Seconds()),
		"time":                   time.Now(),
	})
}

// AdminRequired returns middleware that rejects non-admin users with 403.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := middleware.CurrentUserID(c)
		if userID == 0 {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Authorization required"))
		}

		admin, err := s.isAdminByUserID(c.UserContext(), userID)
		if err != nil && !models.IsNotFound(err) {
			return s.respondError(c, err)
		}
		if !admin {
			return models.RespondWithError(c, fiber.StatusForbidden,
				models.NewForbiddenError("Admin access required"))
		}

		return c.Next()
	}
}

func (s *Server) isAdminByUserID(ctx context.Context, userID uint) (bool, error) {
	return s.userRepo.IsAdmin(ctx, userID)
}

// userExists drops sessions that outlived their account.
func (s *Server) userExists(ctx context.Context, userID uint) (bool, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		if models.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Shutdown releases the database pool and the Redis client.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if s.db != nil {
		if sqlDB, err := s.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				errs = append(errs, fmt.Errorf("database close: %w", err))
			}
		}
	}
	middleware.Logger.InfoContext(ctx, "server resources released")
	return errors.Join(errs...)
}
