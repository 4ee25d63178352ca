// Package main is the entrypoint for the Forkful API server.
package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/forkful/forkful/internal/audit"
	"github.com/forkful/forkful/internal/cache"
	"github.com/forkful/forkful/internal/config"
	"github.com/forkful/forkful/internal/handler"
	"github.com/forkful/forkful/internal/metrics"
	"github.com/forkful/forkful/internal/middleware"
	"github.com/forkful/forkful/internal/repository"
	"github.com/forkful/forkful/internal/server"
	"github.com/forkful/forkful/internal/service"
	"github.com/forkful/forkful/internal/webhook"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// Initialize context
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize cache
	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	recorder := metrics.NewInMemory()

	// Audit pipeline. A nil publisher turns event emission in the
	// handlers into a no-op.
	auditRepo := repository.NewAuditEventRepository(repo)
	var auditPublisher *audit.Publisher
	if cfg.AuditEnabled {
		auditPublisher = audit.NewPublisher(cacheClient.Client(), logger, recorder)
	}

	// Webhook delivery. A nil publisher turns recipe event fan-out into
	// a no-op; the management API stays available either way.
	webhookRepo := webhook.NewRepository(repo.Pool())
	var webhookPublisher *webhook.Publisher
	if cfg.WebhookEnabled {
		webhookPublisher = webhook.NewPublisher(webhookRepo, logger)
	}

	// Initialize services
	userService := service.NewUserService(repo, cacheClient, recorder)
	tagService := service.NewTagService(repo, recorder)
	ingredientService := service.NewIngredientService(repo, recorder)
	recipeService := service.NewRecipeService(repo, recorder)

	// Initialize handlers
	handlers := appHandlers{
		root:       handler.New(version),
		health:     handler.NewHealthHandler(repo, cacheClient),
		metrics:    handler.NewMetricsHandler(recorder),
		user:       handler.NewUserHandler(userService, auditPublisher, logger),
		tag:        handler.NewTagHandler(tagService, auditPublisher, logger),
		ingredient: handler.NewIngredientHandler(ingredientService, auditPublisher, logger),
		recipe:     handler.NewRecipeHandler(recipeService, auditPublisher, webhookPublisher, logger),
		webhook:    handler.NewWebhookHandler(webhookRepo, auditPublisher, logger, cfg.WebhookAllowInsecureTargets),
		admin:      handler.NewAdminHandler(userService, auditRepo, auditPublisher, logger),
	}

	// Setup router
	r := setupRouter(handlers, repo, cacheClient, recorder, cfg, logger)

	// Create server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Background workers register shutdown hooks so they drain after the
	// HTTP server stops accepting requests.
	if cfg.AuditEnabled {
		auditWorker := audit.NewWorker(cacheClient.Client(), auditRepo, logger, audit.NewConsumerID(), recorder)
		auditWorker.SetBatchSize(cfg.AuditBatchSize)
		auditWorker.SetBlockTimeout(cfg.AuditBlockTimeout)
		go func() {
			if err := auditWorker.Run(ctx); err != nil {
				logger.Error("audit worker stopped", "error", err)
			}
		}()
		srv.OnShutdown("audit-worker", auditWorker.Shutdown)
	}

	if cfg.WebhookEnabled {
		webhookWorker := webhook.NewWorker(webhookRepo, logger, recorder)
		webhookWorker.SetBatchSize(cfg.WebhookBatchSize)
		webhookWorker.SetPollInterval(cfg.WebhookPollInterval)
		go func() {
			if err := webhookWorker.Run(ctx); err != nil {
				logger.Error("webhook worker stopped", "error", err)
			}
		}()
		srv.OnShutdown("webhook-worker", webhookWorker.Shutdown)
	}

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", version,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// appHandlers bundles the HTTP handlers for route setup.
type appHandlers struct {
	root       *handler.Handler
	health     *handler.HealthHandler
	metrics    *handler.MetricsHandler
	user       *handler.UserHandler
	tag        *handler.TagHandler
	ingredient *handler.IngredientHandler
	recipe     *handler.RecipeHandler
	webhook    *handler.WebhookHandler
	admin      *handler.AdminHandler
}

// setupRouter configures the chi router with all routes and middleware.
func setupRouter(
	h appHandlers,
	repo *repository.Repository,
	cacheClient *cache.Cache,
	recorder metrics.Recorder,
	cfg *config.Config,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	secCfg := middleware.DefaultSecurityConfig()
	secCfg.IsDevelopment = cfg.IsDevelopment()

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowedOrigins = cfg.GetCORSAllowedOrigins()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Security(secCfg))
	r.Use(middleware.CORS(corsCfg))
	r.Use(middleware.MaxBodySize(cfg.MaxRequestBodySize))

	// Unauthenticated utility endpoints
	r.Get("/", h.root.Root)
	r.Get("/healthz", h.health.Healthz)
	r.Get("/readyz", h.health.Readyz)
	r.Get("/metrics", h.metrics.Metrics)

	// Auth middleware configuration
	authCfg := middleware.AuthConfig{
		Logger:     logger,
		Repository: repo,
		Cache:      cacheClient,
		Metrics:    recorder,
	}

	// Rate limit middleware configuration
	rateLimitCfg := middleware.RateLimitConfig{
		Logger:       logger,
		Cache:        cacheClient,
		APIEnabled:   cfg.RateLimitAPIEnabled,
		APIRPM:       cfg.RateLimitAPIRPM,
		APIBurst:     cfg.RateLimitAPIBurst,
		LoginEnabled: cfg.RateLimitLoginEnabled,
		LoginRPM:     cfg.RateLimitLoginRPM,
		LoginBurst:   cfg.RateLimitLoginBurst,
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Registration and login are the only unauthenticated API
		// endpoints; both are rate limited per client IP.
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimitLogin(rateLimitCfg))
			r.Post("/users", h.user.Register)
			r.Post("/users/token", h.user.Login)
		})

		// Everything else requires a token
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(authCfg))
			r.Use(middleware.RateLimitAPI(rateLimitCfg))

			// Account
			r.Get("/users/me", h.user.Me)
			r.Patch("/users/me", h.user.UpdateMe)
			r.Delete("/users/token", h.user.Logout)
			r.Get("/users/tokens", h.user.ListTokens)
			r.Delete("/users/tokens/{id}", h.user.RevokeToken)

			// Catalog
			r.Route("/tags", func(r chi.Router) {
				r.Get("/", h.tag.List)
				r.Post("/", h.tag.Create)
				r.Patch("/{id}", h.tag.Update)
				r.Delete("/{id}", h.tag.Delete)
			})
			r.Route("/ingredients", func(r chi.Router) {
				r.Get("/", h.ingredient.List)
				r.Post("/", h.ingredient.Create)
				r.Patch("/{id}", h.ingredient.Update)
				r.Delete("/{id}", h.ingredient.Delete)
			})

			// Recipes
			r.Route("/recipes", func(r chi.Router) {
				r.Get("/", h.recipe.List)
				r.Post("/", h.recipe.Create)
				r.Get("/{id}", h.recipe.Get)
				r.Patch("/{id}", h.recipe.Update)
				r.Delete("/{id}", h.recipe.Delete)
			})

			// Outbound webhooks
			r.Route("/webhooks", func(r chi.Router) {
				r.Get("/", h.webhook.List)
				r.Post("/", h.webhook.Create)
				r.Get("/{id}", h.webhook.Get)
				r.Patch("/{id}", h.webhook.Update)
				r.Delete("/{id}", h.webhook.Delete)
				r.Post("/{id}/rotate-secret", h.webhook.RotateSecret)
				r.Get("/{id}/deliveries", h.webhook.ListDeliveries)
				r.Post("/{id}/deliveries/{deliveryID}/retry", h.webhook.RetryDelivery)
			})

			// Staff-only admin surface
			r.Route("/admin", func(r chi.Router) {
				r.Use(middleware.RequireStaff())
				r.Route("/users", func(r chi.Router) {
					r.Get("/", h.admin.ListUsers)
					r.Post("/", h.admin.CreateUser)
					r.Get("/{id}", h.admin.GetUser)
					r.Patch("/{id}", h.admin.UpdateUser)
				})
				r.Get("/audit", h.admin.ListAuditEvents)
			})
		})
	})

	// 404 and 405 handlers
	r.NotFound(h.root.NotFound)
	r.MethodNotAllowed(h.root.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
