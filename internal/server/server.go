// Package server contains the HTTP handlers for the bulletin board.
package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	_ "bbs/docs" // swagger docs
	"bbs/internal/config"
	"bbs/internal/database"
	"bbs/internal/featureflags"
	"bbs/internal/media"
	"bbs/internal/middleware"
	"bbs/internal/models"
	"bbs/internal/repository"
	"bbs/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server wires the board services to their HTTP routes.
type Server struct {
	config *config.Config
	db     *gorm.DB
	// redis may be nil; view dedup then stays on cookies and revocation is skipped.
	redis          *redis.Client
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager
	images         *media.Store

	boardService   *service.BoardService
	postService    *service.PostService
	commentService *service.CommentService
	messageService *service.MessageService
	userService    *service.UserService
}

// NewServerWithDeps builds a Server over connections opened by the caller,
// usually bootstrap.InitRuntime or a test harness.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	boardRepo := repository.NewBoardRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	userRepo := repository.NewUserRepository(db)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("bbs-api"),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		images:         media.NewStore(cfg),
	}

	server.userService = service.NewUserService(userRepo, server.images)
	server.boardService = service.NewBoardService(boardRepo, postRepo, cfg.BoardPageSize, server.userService.IsBoardManager)
	server.postService = service.NewPostService(boardRepo, postRepo, server.images,
		service.NewViewDedup(cfg, redisClient, server.featureFlags))
	server.commentService = service.NewCommentService(commentRepo, postRepo)
	server.messageService = service.NewMessageService(messageRepo, userRepo)

	if flags := server.featureFlags.Configured(); len(flags) > 0 {
		middleware.Logger.Info("Feature flags loaded", slog.Any("flags", flags))
	}

	return server, nil
}

// FiberConfig is the app configuration the server expects to run under.
func (s *Server) FiberConfig() fiber.Config {
	return fiber.Config{
		AppName:   "Bulletin Board API",
		BodyLimit: int(s.config.UploadMaxBytes()) + 1024*1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, err)
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	}
}

// SetupMiddleware installs the request pipeline. Order matters: request ids
// and spans must exist before the context and access log middleware read them.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New(recover.Config{EnableStackTrace: s.config.Env != "production"}))
	app.Use(requestid.New())
	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}
	app.Use(middleware.ContextMiddleware())
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}
	app.Use(helmet.New(helmet.Config{CrossOriginResourcePolicy: "same-site"}))
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		ExposeHeaders:    "Location, Retry-After, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))

	// Coarse per-IP ceiling in front of the per-action Redis limits.
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health")
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewRateLimitedError("Too many requests, slow down."))
		},
	}))
}

// SetupRoutes registers the board, account and operational routes.
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Bulletin Board Metrics",
	}))

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Static(media.URLPrefix, s.images.Root(), fiber.Static{MaxAge: 3600})

	auth := s.AuthRequired()

	// Accounts
	accounts := app.Group("/accounts")
	accounts.Get("/signup/", s.SignupForm)
	accounts.Post("/signup/", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.Signup)
	accounts.Get("/login/", s.LoginForm)
	accounts.Post("/login/", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	accounts.Post("/logout/", s.Logout)
	accounts.Get("/profile/", auth, s.GetProfile)
	accounts.Get("/profile/edit/", auth, s.EditProfileForm)
	accounts.Post("/profile/edit/", auth, s.UpdateProfile)

	// Messages: specific routes before the generic /:id
	accounts.Get("/messages/", auth, s.GetMessageBox)
	accounts.Get("/messages/send/:receiverId/", auth, s.SendMessageForm)
	accounts.Post("/messages/send/:receiverId/",
		auth, middleware.RateLimit(s.redis, 15, time.Minute, "send_message"), s.SendMessage)
	accounts.Get("/messages/:id/", auth, s.GetMessage)

	// Comment edit/delete live outside the board tree; the /board/comment
	// aliases must be registered before /board/:code/:id so "comment" is
	// never taken for a board code.
	for _, prefix := range []string{"/comment", "/board/comment"} {
		comments := app.Group(prefix, auth)
		comments.Get("/:id/edit/", s.EditCommentForm)
		comments.Post("/:id/edit/", s.UpdateComment)
		comments.Post("/:id/delete/", s.DeleteComment)
	}

	board := app.Group("/board")
	board.Get("/", s.ListBoards)
	board.Post("/", auth, s.CreateBoard)
	board.Put("/:code/", auth, s.UpdateBoard)
	board.Delete("/:code/", auth, s.DeleteBoard)

	// Define specific /:code/:resource routes BEFORE generic /:code/:id
	board.Get("/:code/write/", auth, s.WritePostForm)
	board.Post("/:code/write/", auth, middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	board.Get("/:code/", s.ListPosts)
	board.Get("/:code/:id/edit/", auth, s.EditPostForm)
	board.Post("/:code/:id/edit/", auth, s.UpdatePost)
	board.Post("/:code/:id/delete/", auth, s.DeletePost)
	board.Post("/:code/:id/comment", auth, middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	board.Post("/:code/:id/like/", auth, s.ToggleLike)
	board.Get("/:code/:id", s.GetPost)
}

// Shutdown releases the store and cache connections. Close errors are
// logged, not returned, so every connection gets a chance to close.
func (s *Server) Shutdown(ctx context.Context) error {
	for name, g := range map[string]*gorm.DB{"primary": s.db, "replica": database.Replica()} {
		if g == nil {
			continue
		}
		if sqlDB, err := g.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				middleware.Logger.ErrorContext(ctx, "close database", slog.String("pool", name), slog.String("error", err.Error()))
			}
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			middleware.Logger.ErrorContext(ctx, "close redis", slog.String("error", err.Error()))
		}
	}

	middleware.Logger.InfoContext(ctx, "Board server stopped")
	return nil
}
