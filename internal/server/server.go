package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	_ "foodgram/docs" // swagger docs
	"foodgram/internal/bootstrap"
	"foodgram/internal/config"
	"foodgram/internal/featureflags"
	"foodgram/internal/middleware"
	"foodgram/internal/models"
	"foodgram/internal/repository"
	"foodgram/internal/service"
	"foodgram/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// globalRateLimit is the per-IP request budget per minute.
const globalRateLimit = 300

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	store          storage.MediaStore
	featureFlags   *featureflags.Manager

	userRepo repository.UserRepository

	userService         *service.UserService
	recipeService       *service.RecipeService
	relationService     *service.RelationService
	subscriptionService *service.SubscriptionService
	shoppingService     *service.ShoppingListService
	referenceService    *service.ReferenceService
	linkService         *service.LinkService
}

// NewServer connects the database, Redis and the media store from cfg.
func NewServer(cfg *config.Config) (*Server, error) {
	ctx := context.Background()
	db, redisClient, err := bootstrap.InitRuntime(ctx, cfg, bootstrap.Options{LoadFixtures: cfg.LoadFixtures})
	if err != nil {
		return nil, err
	}

	store, err := storage.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("media store init failed: %w", err)
	}

	return NewServerWithDeps(cfg, db, redisClient, store)
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, store storage.MediaStore) (*Server, error) {
	if db == nil {
		return nil, errors.New("database is required")
	}
	if store == nil {
		return nil, errors.New("media store is required")
	}

	userRepo := repository.NewUserRepository(db)
	recipeRepo := repository.NewRecipeRepository(db)
	tagRepo := repository.NewTagRepository(db)
	ingredientRepo := repository.NewIngredientRepository(db)
	relationRepo := repository.NewRelationRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	flags := featureflags.NewManager(cfg.FeatureFlags)
	media := service.NewMediaService(store, cfg)

	return &Server{
		config:              cfg,
		db:                  db,
		redis:               redisClient,
		promMiddleware:      middleware.InitMetrics("foodgram-api"),
		store:               store,
		featureFlags:        flags,
		userRepo:            userRepo,
		userService:         service.NewUserService(userRepo, subRepo, media),
		recipeService:       service.NewRecipeService(recipeRepo, tagRepo, ingredientRepo, relationRepo, subRepo, media),
		relationService:     service.NewRelationService(recipeRepo, relationRepo),
		subscriptionService: service.NewSubscriptionService(userRepo, subRepo, recipeRepo),
		shoppingService:     service.NewShoppingListService(recipeRepo),
		referenceService:    service.NewReferenceService(tagRepo, ingredientRepo),
		linkService:         service.NewLinkService(recipeRepo, flags, cfg.PublicBaseURL, cfg.FrontendURL),
	}, nil
}

// NewApp builds the Fiber app with the JSON codec and error handler.
func (s *Server) NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Foodgram API",
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		BodyLimit:    (s.mediaLimitMB() + 2) * 1024 * 1024,
		ErrorHandler: errorHandler,
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

func (s *Server) mediaLimitMB() int {
	if s.config != nil && s.config.MediaMaxUploadMB > 0 {
		// base64 inflates payloads by a third
		return s.config.MediaMaxUploadMB * 4 / 3
	}
	return service.DefaultMediaMaxUploadMB * 4 / 3
}

// errorHandler renders framework errors (unknown route, bad method, body
// too large) in the same {"errors": "..."} shape as handler errors.
func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Errors: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error",
		"method", c.Method(), "path", c.Path(), "error", err)
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Recipe images are loaded by the frontend from another origin.
	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))

	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := strings.TrimSpace(s.config.AllowedOrigins)
	if origins == "" {
		origins = "http://localhost:3000,http://127.0.0.1:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        globalRateLimit,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions || s.config.Env == "test"
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Errors: "Too many requests, please try again later.",
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

	if local, ok := s.store.(*storage.LocalStore); ok {
		app.Static(s.config.MediaURL, local.Root(), fiber.Static{MaxAge: 3600})
	}

	app.Get("/s/:code", s.ResolveShortLink)

	api := app.Group("/api")
	api.Get("/swagger/*", swagger.HandlerDefault)
	api.Get("/feature-flags", s.OptionalAuth(), s.GetFeatureFlags)

	// Auth
	auth := api.Group("/auth/token")
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/logout", s.AuthRequired(), s.Logout)

	// Users: fixed segments before /:id
	users := api.Group("/users")
	users.Post("/", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Register)
	users.Get("/", s.OptionalAuth(), s.ListUsers)
	users.Get("/me", s.AuthRequired(), s.GetMe)
	users.Put("/me/avatar", s.AuthRequired(), s.SetAvatar)
	users.Delete("/me/avatar", s.AuthRequired(), s.DeleteAvatar)
	users.Post("/set_password", s.AuthRequired(), s.SetPassword)
	users.Get("/subscriptions", s.AuthRequired(), s.ListSubscriptions)
	users.Post("/:id/subscribe", s.AuthRequired(), s.Subscribe)
	users.Delete("/:id/subscribe", s.AuthRequired(), s.Unsubscribe)
	users.Get("/:id", s.OptionalAuth(), s.GetUserProfile)

	// Reference data
	api.Get("/tags", s.ListTags)
	api.Get("/tags/:id", s.GetTag)
	api.Get("/ingredients", s.ListIngredients)
	api.Get("/ingredients/:id", s.GetIngredient)

	// Recipes: fixed segments before /:id
	recipes := api.Group("/recipes")
	recipes.Get("/download_shopping_cart", s.AuthRequired(), s.DownloadShoppingCart)
	recipes.Get("/", s.OptionalAuth(), s.ListRecipes)
	recipes.Post("/", s.AuthRequired(), middleware.RateLimit(s.redis, 30, time.Minute, "create_recipe"), s.CreateRecipe)
	recipes.Get("/:id/get-link", s.OptionalAuth(), s.GetRecipeLink)
	recipes.Post("/:id/favorite", s.AuthRequired(), s.AddFavorite)
	recipes.Delete("/:id/favorite", s.AuthRequired(), s.RemoveFavorite)
	recipes.Post("/:id/shopping_cart", s.AuthRequired(), s.AddToShoppingCart)
	recipes.Delete("/:id/shopping_cart", s.AuthRequired(), s.RemoveFromShoppingCart)
	recipes.Get("/:id", s.OptionalAuth(), s.GetRecipe)
	recipes.Put("/:id", s.AuthRequired(), s.UpdateRecipe)
	recipes.Patch("/:id", s.AuthRequired(), s.UpdateRecipe)
	recipes.Delete("/:id", s.AuthRequired(), s.DeleteRecipe)
}

// LivenessCheck handles liveness checks from the orchestrator
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness checks. Redis is optional:
// without it the service runs uncached, so it only degrades the report.
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
			redisStatus = "degraded"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
			"media":    s.store.Backend(),
		},
		"time": time.Now(),
	})
}

// AuthRequired rejects requests without a valid, unrevoked token for an
// existing user.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.Authenticate(c, s.config.JWTSecret, s.redis)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, authErrorFor(err))
		}
		if err := s.attachUser(c, claims); err != nil {
			return nil
		}
		return c.Next()
	}
}

// OptionalAuth lets anonymous requests through. A token that is present but
// invalid is still rejected.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims, err := middleware.Authenticate(c, s.config.JWTSecret, s.redis)
		if errors.Is(err, middleware.ErrMissingToken) {
			return c.Next()
		}
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized, authErrorFor(err))
		}
		if err := s.attachUser(c, claims); err != nil {
			return nil
		}
		return c.Next()
	}
}

// attachUser records the token's user on the request. When the user cannot
// be loaded it writes the error reply and returns errResponseWritten.
func (s *Server) attachUser(c *fiber.Ctx, claims *middleware.TokenClaims) error {
	if _, err := s.userRepo.GetByID(c.UserContext(), claims.UserID); err != nil {
		if models.ErrorCode(err) == models.CodeNotFound {
			_ = models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("User not found"))
		} else {
			_ = mapServiceError(c, err)
		}
		return errResponseWritten
	}
	middleware.SetUser(c, claims.UserID)
	c.Locals("tokenClaims", claims)
	return nil
}

func authErrorFor(err error) error {
	switch {
	case errors.Is(err, middleware.ErrMissingToken):
		return models.NewUnauthorizedError("Authentication credentials were not provided.")
	case errors.Is(err, middleware.ErrRevokedToken):
		return models.NewUnauthorizedError("Token has been revoked")
	default:
		return models.NewUnauthorizedError("Invalid token.")
	}
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.NewApp()
	middleware.Logger.Info("server starting", "port", s.config.Port, "media_backend", s.store.Backend())
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", "error", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", "error", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", "error", rerr)
		}
	}

	middleware.Logger.Info("server shutdown complete")
	return nil
}

// hostname is reported by the feature-flag endpoint for debugging rollouts.
func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "unknown"
	}
	return h
}
