// Package server contains the HTTP handlers and routing for the DropView API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dropview/internal/auth"
	"dropview/internal/cache"
	"dropview/internal/config"
	"dropview/internal/database"
	"dropview/internal/featureflags"
	"dropview/internal/middleware"
	"dropview/internal/models"
	"dropview/internal/repository"
	"dropview/internal/service"
	"dropview/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"gorm.io/gorm"
)

// bodyLimit leaves room for a multipart post with one image.
const bodyLimit = 10 * 1024 * 1024

// Server holds all dependencies for the HTTP server
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	tokens         *auth.TokenIssuer
	featureFlags   *featureflags.Manager
	assets         storage.AssetStore

	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository

	authService     *service.AuthService
	referralService *service.ReferralService
	postService     *service.PostService
	commentService  *service.CommentService
}

// NewServer connects to the database, Redis and the asset store described by cfg.
func NewServer(ctx context.Context, cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// A nil client disables caching and falls back to in-process rate limits.
	rdb := cache.InitRedis(cfg.RedisURL)

	assets, err := storage.New(ctx, cfg)
	if err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("asset store: %w", err)
	}

	s := NewServerWithDeps(cfg, db, rdb, assets)
	s.promMiddleware = middleware.InitMetrics("dropview")
	return s, nil
}

// NewServerWithDeps wires repositories and services around already opened dependencies.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, rdb *redis.Client, assets storage.AssetStore) *Server {
	s := &Server{
		config:       cfg,
		db:           db,
		redis:        rdb,
		tokens:       auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
		featureFlags: featureflags.NewManager(cfg.FeatureFlags),
		assets:       assets,
		userRepo:     repository.NewUserRepository(db),
		postRepo:     repository.NewPostRepository(db),
		commentRepo:  repository.NewCommentRepository(db),
	}

	s.referralService = service.NewReferralService(s.userRepo, rdb, cfg.FrontendURL)
	s.authService = service.NewAuthService(s.userRepo, s.tokens, s.referralService, rdb, service.AuthOptions{
		BcryptCost:     cfg.BcryptCost,
		StreakLocation: cfg.StreakLocation(),
	})
	images := storage.NewImageProcessor(cfg.ImageMaxBytes, cfg.ImageMaxDimension, cfg.ImageJPEGQuality)
	s.postService = service.NewPostService(s.postRepo, assets, images, cfg.AssetNamespace, rdb)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.featureFlags)
	return s
}

// PostRepository exposes the post store to background jobs sharing this server's pool.
func (s *Server) PostRepository() repository.PostRepository {
	return s.postRepo
}

// App builds the Fiber application on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName:      "DropView API",
		BodyLimit:    bodyLimit,
		ErrorHandler: s.ErrorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures all middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panics become errors for ErrorHandler.
	app.Use(recover.New())

	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Uploaded images are embedded by the frontend origin.
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "cross-origin"}))
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so browsers still see CORS headers on 429s.
	app.Use(cors.New(corsConfig(s.config.AllowedOrigins)))

	if perMinute := s.config.RateLimitPerMinute; perMinute > 0 {
		app.Use(limiter.New(limiter.Config{
			Max:        perMinute,
			Expiration: time.Minute,
			Next: func(c *fiber.Ctx) bool {
				return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
			},
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return models.RespondWithError(c, &models.AppError{
					Code:    models.CodeRateLimited,
					Message: "Too many requests, please try again later.",
				})
			},
		}))
	}
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	if prefix, dir, ok := s.localUploads(); ok {
		app.Static(prefix, dir, fiber.Static{MaxAge: 3600})
	}

	authRequired := middleware.AuthRequired(s.tokens)
	api := app.Group("/api")

	// Identity
	user := api.Group("/auth/user")
	user.Post("/signup", middleware.RateLimit(s.redis, 10, time.Minute, "signup"), s.Signup)
	user.Post("/login", middleware.RateLimit(s.redis, 10, time.Minute, "login"), s.Login)
	user.Get("/", authRequired, s.GetCurrentUser)
	user.Put("/profile", authRequired, s.UpdateProfile)
	user.Get("/progress", authRequired, s.GetProgress)

	// Community
	community := api.Group("/community", authRequired)
	community.Get("/posts", s.GetPosts)
	community.Post("/posts", middleware.RateLimit(s.redis, 30, time.Minute, "create_post"), s.CreatePost)
	community.Get("/posts/:id", s.GetPost)
	community.Put("/posts/:id", s.UpdatePost)
	community.Delete("/posts/:id", s.DeletePost)
	community.Delete("/posts/:id/image", s.DeletePostImage)
	community.Post("/posts/:id/like", s.TogglePostLike)
	community.Get("/posts/:id/comments", s.GetComments)
	community.Post("/posts/:id/comments", middleware.RateLimit(s.redis, 60, time.Minute, "create_comment"), s.CreateComment)
	community.Put("/comments/:commentId", s.UpdateComment)
	community.Delete("/comments/:commentId", s.DeleteComment)
	community.Post("/comments/:commentId/like", s.ToggleCommentLike)

	// Referrals
	referral := api.Group("/referral")
	referral.Get("/info", authRequired, s.GetReferralInfo)
	referral.Get("/validate/:code", middleware.RateLimit(s.redis, 20, time.Minute, "referral_validate"), s.ValidateReferral)
	referral.Get("/leaderboard", authRequired, s.GetLeaderboard)

	app.Use(func(c *fiber.Ctx) error {
		return models.RespondWithError(c, models.NewNotFoundError("Page not found"))
	})
}

// corsConfig allows credentials only for an explicit origin list. Fiber refuses
// credentials together with a wildcard origin.
func corsConfig(origins string) cors.Config {
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	credentials := true
	for _, o := range strings.Split(origins, ",") {
		if strings.TrimSpace(o) == "*" {
			origins, credentials = "*", false
			break
		}
	}
	return cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowCredentials: credentials,
		MaxAge:           86400,
	}
}

// localUploads reports the URL prefix and directory to serve when assets live on local disk.
func (s *Server) localUploads() (prefix, dir string, ok bool) {
	if s.config.AssetBackend != "" && s.config.AssetBackend != "local" {
		return "", "", false
	}
	prefix = s.config.AssetPublicURL
	if !strings.HasPrefix(prefix, "/") || s.config.AssetLocalDir == "" {
		return "", "", false
	}
	return strings.TrimRight(prefix, "/"), s.config.AssetLocalDir, true
}

// ErrorHandler maps errors that escape handlers (and recovered panics) onto the standard error body.
func (s *Server) ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError {
		switch fe.Code {
		case fiber.StatusNotFound:
			return models.RespondWithError(c, models.NewNotFoundError("Page not found"))
		case fiber.StatusRequestEntityTooLarge:
			return c.Status(fe.Code).JSON(models.ErrorResponse{Error: "Request body too large"})
		}
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}

	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		slog.String("method", c.Method()),
		slog.String("path", c.Path()),
		slog.String("error", err.Error()),
	)
	return models.RespondWithError(c, err)
}

// LivenessCheck reports that the process is serving requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and, when configured, Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	// A tripped asset breaker only affects image uploads, so it degrades rather than fails readiness.
	assetStatus := "healthy"
	if guarded, ok := s.assets.(*storage.GuardedStore); ok {
		switch guarded.State() {
		case gobreaker.StateOpen:
			assetStatus = "open"
		case gobreaker.StateHalfOpen:
			assetStatus = "half-open"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	switch {
	case dbStatus != "healthy" || redisStatus == "unhealthy":
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	case assetStatus != "healthy":
		overall = "degraded"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"assets":   assetStatus,
		},
		"time": time.Now(),
	})
}

// Start listens on the configured port until Shutdown.
func (s *Server) Start() error {
	app := s.App()
	middleware.Logger.Info("server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := database.Close(s.db); err != nil {
		middleware.Logger.Error("error closing sql DB", slog.String("error", err.Error()))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}
