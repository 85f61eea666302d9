package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/appforge/data-platform/internal/api/handler"
	"github.com/appforge/data-platform/internal/api/middleware"
	"github.com/appforge/data-platform/internal/core/domain"
	"github.com/appforge/data-platform/internal/core/ports"
	"github.com/appforge/data-platform/internal/ratelimit"
)

// Deps carries everything the router needs wired up by main.
type Deps struct {
	Mongo       *mongo.Database
	Redis       *redis.Client // nil when the limiter runs in-memory
	Auth        ports.AuthService
	Collections ports.CollectionService
	Items       ports.ItemService
	Limiter     ratelimit.Limiter
	Logger      zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(echomiddleware.Logger())
	e.Use(echoprometheus.NewMiddleware("appdata"))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth)
	collectionHandler := handler.NewCollectionHandler(d.Collections, d.Items)
	itemHandler := handler.NewItemHandler(d.Items)
	healthHandler := handler.NewHealthHandler(d.Mongo, d.Redis)

	// --- Middleware chains ---
	tenant := middleware.Tenant()
	authRequired := middleware.Auth(d.Auth, true)
	authOptional := middleware.Auth(d.Auth, false)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)
	editorUp := middleware.RequireRole(domain.RoleEditor)

	limitAuth := middleware.RateLimit(d.Limiter, ratelimit.ClassAuth)
	limitRead := middleware.RateLimit(d.Limiter, ratelimit.ClassDataRead)
	limitWrite := middleware.RateLimit(d.Limiter, ratelimit.ClassDataWrite)

	// --- Auth routes ---
	// Limiters run before token parsing on every chain: an exhausted
	// caller is told to back off, not handed an auth verdict.
	auth := e.Group("/v1/auth", tenant)
	auth.POST("/signup", authHandler.Signup, limitAuth)
	auth.POST("/login", authHandler.Login, limitAuth)
	auth.POST("/password/forgot", authHandler.ForgotPassword, limitAuth)
	auth.POST("/password/reset", authHandler.ResetPassword, limitAuth)
	auth.GET("/me", authHandler.Me, limitRead, authRequired)
	auth.PATCH("/profile", authHandler.UpdateProfile, limitWrite, authRequired)

	// --- Admin user management ---
	admin := e.Group("/v1/admin", tenant, limitWrite, authRequired, adminOnly)
	admin.PUT("/users/:id/role", authHandler.ChangeRole)
	admin.POST("/users/:id/ban", authHandler.Ban)
	admin.POST("/users/:id/unban", authHandler.Unban)

	// --- Collection registry ---
	// Reads are open to anonymous callers like the data plane; schema
	// changes need an editor.
	collections := e.Group("/v1/collections", tenant)
	collections.GET("", collectionHandler.List, limitRead, authOptional)
	collections.GET("/stats", collectionHandler.Stats, limitRead, authOptional)
	collections.GET("/:name", collectionHandler.Get, limitRead, authOptional)
	collections.PUT("/:name", collectionHandler.UpdateSchema, limitWrite, authRequired, editorUp)

	// --- Item data plane ---
	// Reads allow anonymous callers; collection settings decide what an
	// anonymous caller actually sees.
	data := e.Group("/v1/data/:collection", tenant)
	data.GET("", itemHandler.List, limitRead, authOptional)
	data.GET("/count", itemHandler.Count, limitRead, authOptional)
	data.GET("/:id", itemHandler.Get, limitRead, authOptional)
	data.POST("", itemHandler.Create, limitWrite, authOptional)
	data.PATCH("/:id", itemHandler.Update, limitWrite, authOptional)
	data.DELETE("/:id", itemHandler.Delete, limitWrite, authOptional)
	data.POST("/bulk-delete", itemHandler.BulkDelete, limitWrite, authRequired, adminOnly)
	data.POST("/bulk-archive", itemHandler.BulkArchive, limitWrite, authRequired, adminOnly)

	// --- Health probes and metrics (no tenant required) ---
	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", healthHandler.Readiness)
	e.GET("/metrics", echoprometheus.NewHandler())

	return e
}
