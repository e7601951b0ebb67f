// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"strconv"
	"strings"
	"time"

	_ "revline/docs" // swagger docs
	"revline/internal/cache"
	"revline/internal/config"
	"revline/internal/featureflags"
	"revline/internal/middleware"
	"revline/internal/models"
	"revline/internal/notifications"
	"revline/internal/repository"
	"revline/internal/service"

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

const tokenTTL = 7 * 24 * time.Hour

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc
	cache          *cache.Cache
	tokens         *middleware.TokenManager
	limiter        *middleware.RateLimiter
	notifier       *notifications.Notifier
	hub            *notifications.Hub
	featureFlags   *featureflags.Manager
	users          *service.UserService
	relationships  *service.RelationshipService
	engagement     *service.EngagementService
	projects       *service.ProjectService
	events         *service.EventService
	discovery      *service.DiscoveryService
	reconciler     *service.Reconciler
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// The caller owns db and redisClient; redisClient may be nil, which disables
// caching, token revocation, websocket tickets and realtime fan-out.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	c := cache.New(redisClient)

	// Initialize repositories
	userRepo := repository.NewUserRepository(db, c)
	followRepo := repository.NewFollowRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	eventRepo := repository.NewEventRepository(db)
	searchRepo := repository.NewSearchRepository(db)
	reconcileRepo := repository.NewReconcileRepository(db)

	clock := service.Clock(service.SystemClock)

	server := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("revline-api"),
		cache:          c,
		tokens:         middleware.NewTokenManager(cfg.JWTSecret, tokenTTL),
		limiter:        middleware.NewRateLimiter(redisClient, cfg.Env),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
		users:          service.NewUserService(userRepo, followRepo),
		relationships:  service.NewRelationshipService(userRepo, followRepo, projectRepo, c),
		engagement:     service.NewEngagementService(projectRepo, likeRepo, commentRepo, userRepo),
		projects:       service.NewProjectService(projectRepo, clock),
		events:         service.NewEventService(eventRepo, clock),
		discovery:      service.NewDiscoveryService(userRepo, eventRepo, projectRepo, searchRepo, clock),
		reconciler:     service.NewReconciler(reconcileRepo, c, clock),
	}

	// Initialize notifier and hub if Redis is available
	if redisClient != nil {
		server.notifier = notifications.NewNotifier(redisClient)
		server.hub = notifications.NewHub()
	}

	return server, nil
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.ContextMiddleware())
	app.Use(middleware.TracingMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses still carry its headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Per-IP budget across the API. Preflights and health checks are exempt.
	app.Use(limiter.New(limiter.Config{
		Max:        s.config.GlobalRateLimit(),
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || strings.HasPrefix(c.Path(), "/health/")
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  models.CodeRateLimited,
			})
		},
	}))

	app.Use(middleware.RequestDeadline(s.config.RequestTimeout()))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	api.Get("/", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Revline Backend Metrics Dashboard",
	}))

	api.Get("/swagger/*", swagger.HandlerDefault)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", s.limiter.Limit(3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", s.limiter.Limit(10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.GetMe)

	// Public user reads; /me must be registered before /:id
	users := api.Group("/users")
	users.Put("/me", s.AuthRequired(), s.UpdateMyProfile)
	users.Get("/:id/followers", s.GetFollowers)
	users.Get("/:id/following", s.GetFollowing)
	users.Get("/:id/projects", s.GetUserProjects)
	users.Get("/:id/events", s.GetUserEvents)
	users.Post("/:id/follow", s.AuthRequired(),
		s.limiter.Limit(30, time.Minute, "follow"), s.FollowUser)
	users.Delete("/:id/follow", s.AuthRequired(), s.UnfollowUser)
	users.Get("/:id", s.GetUserProfile)

	// Projects
	projects := api.Group("/projects")
	projects.Get("/", s.GetFeed)
	projects.Post("/", s.AuthRequired(),
		s.limiter.Limit(10, 5*time.Minute, "create_project"), s.CreateProject)
	projects.Get("/:id/comments", s.GetProjectComments)
	projects.Get("/:id", s.GetProject)
	projects.Put("/:id", s.AuthRequired(), s.UpdateProject)

	api.Post("/comments", s.AuthRequired(),
		s.limiter.Limit(10, time.Minute, "create_comment"), s.CreateComment)
	api.Post("/likes", s.AuthRequired(),
		s.limiter.Limit(60, time.Minute, "toggle_like"), s.ToggleLike)

	// Events
	events := api.Group("/events")
	events.Get("/", s.GetUpcomingEvents)
	events.Post("/", s.AuthRequired(), s.CreateEvent)
	events.Post("/:id/join", s.AuthRequired(), s.JoinEvent)
	events.Delete("/:id/join", s.AuthRequired(), s.LeaveEvent)
	events.Get("/:id", s.GetEvent)
	events.Put("/:id", s.AuthRequired(), s.UpdateEvent)

	// Discovery and search
	discover := api.Group("/discover")
	discover.Get("/users", s.DiscoverUsers)
	discover.Get("/events", s.DiscoverEvents)
	discover.Get("/projects", s.DiscoverProjects)

	search := api.Group("/search", s.limiter.Limit(30, time.Minute, "search"))
	search.Get("/", s.Search)
	search.Get("/users", s.SearchUsers)
	search.Get("/events", s.SearchEvents)

	api.Get("/feature-flags", s.AuthRequired(), s.GetFeatureFlags)

	// WebSocket ticket issuance and the notification stream
	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())
}

// LivenessCheck handles liveness check requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness check requests
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if s.db == nil {
		dbStatus = "unhealthy"
	} else if sqlDB, err := s.db.DB(); err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	// Redis is optional: without it the API degrades instead of failing.
	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"message": "Revline API",
		"version": "1.0.0",
		"status":  overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AuthRequired returns the authentication middleware
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		// 1. WebSocket ticket (short-lived, single-use)
		if ticket := c.Query("ticket"); ticket != "" && isWSPath {
			userID, ok := s.consumeWSTicket(c.UserContext(), ticket)
			if !ok {
				return models.RespondWithAppError(c,
					models.NewUnauthenticatedError("Invalid or expired WebSocket ticket"))
			}
			s.setUser(c, userID)
			return c.Next()
		}

		// 2. Bearer token
		tokenString := middleware.BearerToken(c)
		if tokenString == "" {
			return models.RespondWithAppError(c,
				models.NewUnauthenticatedError("Authorization required"))
		}

		claims, err := s.tokens.Parse(tokenString)
		if err != nil {
			return models.RespondWithAppError(c,
				models.NewUnauthenticatedError("Invalid or expired token"))
		}

		if s.isRevoked(c.UserContext(), claims.JTI) {
			return models.RespondWithAppError(c,
				models.NewUnauthenticatedError("Token has been revoked"))
		}

		c.Locals("claims", claims)
		s.setUser(c, claims.UserID)
		return c.Next()
	}
}

func (s *Server) setUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	// Sync to UserContext for logging and downstream services
	c.SetUserContext(middleware.WithUserID(c.UserContext(), userID))
}

// consumeWSTicket redeems a ticket exactly once.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (uint, bool) {
	if s.redis == nil {
		return 0, false
	}
	raw, err := s.redis.GetDel(ctx, cache.WSTicketKey(ticket)).Result()
	if err != nil {
		return 0, false
	}
	userID, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || userID == 0 {
		return 0, false
	}
	return uint(userID), true
}

func (s *Server) isRevoked(ctx context.Context, jti string) bool {
	if jti == "" || s.redis == nil {
		return false
	}
	n, err := s.redis.Exists(ctx, cache.BlacklistKey(jti)).Result()
	if err != nil {
		// Redis outages fail open; the token signature and expiry still hold.
		middleware.Logger.WarnContext(ctx, "blacklist lookup failed", "error", err)
		return false
	}
	return n > 0
}

// optionalUserID resolves the caller from a Bearer token without enforcing it.
// Anonymous, malformed, expired and revoked tokens all read as viewer 0.
func (s *Server) optionalUserID(c *fiber.Ctx) uint {
	tokenString := middleware.BearerToken(c)
	if tokenString == "" {
		return 0
	}
	claims, err := s.tokens.Parse(tokenString)
	if err != nil || s.isRevoked(c.UserContext(), claims.JTI) {
		return 0
	}
	c.SetUserContext(middleware.WithUserID(c.UserContext(), claims.UserID))
	return claims.UserID
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName:   "Revline API",
		BodyLimit: 4 * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", "error", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil && s.hub != nil {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("failed to start hub wiring", "hub", s.hub.Name(), "error", err)
			}
		}()
	}

	if interval := s.config.ReconcileInterval(); interval > 0 {
		go s.reconciler.Run(s.shutdownCtx, interval)
	}

	middleware.Logger.Info("Server starting", "port", s.config.Port, "env", s.config.Env)
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops background workers, drains HTTP and closes websocket
// clients. The database and Redis handles belong to the caller.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			middleware.Logger.Error("error shutting down hub", "hub", s.hub.Name(), "error", err)
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
