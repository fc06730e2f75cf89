package api

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swagger "github.com/go-swagno/swagno-fiber/swagger"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/admin"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/api/docs"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/api/handler"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/audit"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/database"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/domain"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/metrics"
	"github.com/saturnino-fabrica-de-software/partnerhub/internal/ratelimit"
)

type Dependencies struct {
	DB          database.Pinger
	Partners    middleware.PartnerRepository
	Tokens      middleware.TokenVerifier
	TokenIssuer handler.TokenIssuer
	Webhooks    handler.WebhookService
	Dispatcher  handler.EventDispatcher
	Credentials handler.CredentialAdmin
	Limiter     *ratelimit.Limiter
	AccessLog   audit.Logger
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
	AdminJWT    *admin.JWTService

	// TrustedProxies enables X-Forwarded-For for requests arriving from these addresses.
	TrustedProxies []string
}

type Router struct {
	app    *fiber.App
	logger *slog.Logger
	deps   *Dependencies
}

func NewRouter(logger *slog.Logger, deps *Dependencies) *Router {
	cfg := fiber.Config{
		ErrorHandler: middleware.ErrorHandler(logger),
		AppName:      "Partnerhub Gateway",
	}
	if deps != nil && len(deps.TrustedProxies) > 0 {
		cfg.EnableTrustedProxyCheck = true
		cfg.TrustedProxies = deps.TrustedProxies
		cfg.ProxyHeader = fiber.HeaderXForwardedFor
		cfg.EnableIPValidation = true
	}

	return &Router{
		app:    fiber.New(cfg),
		logger: logger,
		deps:   deps,
	}
}

func (r *Router) Setup() {
	// Global middlewares
	r.app.Use(requestid.New())
	r.app.Use(middleware.Recover(r.logger))
	r.app.Use(middleware.Logger(r.logger))
	if r.deps != nil {
		r.app.Use(r.deps.Metrics.Middleware())
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowMethods:  "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders:  "Origin,Content-Type,Accept,Authorization",
		ExposeHeaders: "Retry-After,X-RateLimit-Limit,X-RateLimit-Remaining,X-RateLimit-Reset",
	}))

	// Swagger documentation (no auth required)
	sw := docs.NewSwagger()
	swagger.SwaggerHandler(r.app, sw.MustToJson())

	// Health check endpoints (no auth required)
	var db database.Pinger
	if r.deps != nil {
		db = r.deps.DB
	}
	healthHandler := handler.NewHealthHandler(db, r.logger)
	r.app.Get("/health", healthHandler.Health)
	r.app.Get("/ready", healthHandler.Ready)

	// Only configure authenticated routes if dependencies were provided
	if r.deps == nil {
		return
	}

	if r.deps.Gatherer != nil {
		r.app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(r.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	tokenHandler := handler.NewTokenHandler(r.deps.TokenIssuer)
	r.app.Post("/oauth/token", tokenHandler.Issue)

	r.setupPartnerRoutes()
	r.setupInternalRoutes()
}

func (r *Router) setupPartnerRoutes() {
	authenticator := middleware.NewAuthenticator(
		r.deps.Tokens,
		r.deps.Partners,
		r.deps.AccessLog,
		r.deps.Metrics,
		r.logger,
	)

	// Rate limiting runs after auth so the partner's tier is known
	v1 := r.app.Group("/v1",
		authenticator.Handler(),
		middleware.RateLimiter(r.deps.Limiter, r.deps.Metrics, r.logger),
	)

	meHandler := handler.NewMeHandler()
	v1.Get("/me", meHandler.Get)

	webhooksHandler := handler.NewWebhooksHandler(r.deps.Webhooks, r.logger)
	webhooks := v1.Group("/webhooks", middleware.RequireScope(domain.ScopeWebhooksManage))
	webhooks.Get("/events", webhooksHandler.Events)
	webhooks.Get("/", webhooksHandler.List)
	webhooks.Post("/", webhooksHandler.Create)
	webhooks.Get("/:id", webhooksHandler.Get)
	webhooks.Patch("/:id", webhooksHandler.Update)
	webhooks.Delete("/:id", webhooksHandler.Delete)
	webhooks.Post("/:id/status", webhooksHandler.SetStatus)
	webhooks.Post("/:id/rotate-secret", webhooksHandler.RotateSecret)
	webhooks.Post("/:id/test", webhooksHandler.Test)
	webhooks.Get("/:id/deliveries", webhooksHandler.Deliveries)
	webhooks.Post("/:id/deliveries/:delivery_id/redeliver", webhooksHandler.Redeliver)
}

func (r *Router) setupInternalRoutes() {
	authDeps := middleware.AdminAuthDependencies{
		JWTService: r.deps.AdminJWT,
		Logger:     r.logger,
	}
	internalHandler := handler.NewInternalHandler(r.deps.Dispatcher, r.deps.Credentials, r.logger)

	internal := r.app.Group("/internal")
	internal.Post("/events",
		middleware.AdminAuth(authDeps, admin.RoleSystem, admin.RoleOperator),
		internalHandler.PublishEvent,
	)

	tokenHandler := handler.NewOperatorTokenHandler(r.deps.AdminJWT)
	internal.Post("/token/refresh",
		middleware.AdminAuth(authDeps, admin.RoleSystem, admin.RoleOperator),
		tokenHandler.Refresh,
	)

	operators := middleware.AdminAuth(authDeps, admin.RoleOperator)
	internal.Get("/partners/:id/credentials", operators, internalHandler.ListCredentials)
	internal.Post("/partners/:id/credentials", operators, internalHandler.IssueCredential)
	internal.Post("/credentials/:id/revoke", operators, internalHandler.RevokeCredential)
}

func (r *Router) App() *fiber.App {
	return r.app
}

func (r *Router) Listen(addr string) error {
	return r.app.Listen(addr)
}

func (r *Router) Shutdown() error {
	return r.app.Shutdown()
}
