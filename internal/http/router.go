package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/geocoder89/rentdesk/internal/auth"
	"github.com/geocoder89/rentdesk/internal/config"
	"github.com/geocoder89/rentdesk/internal/domain/user"
	"github.com/geocoder89/rentdesk/internal/http/handlers"
	"github.com/geocoder89/rentdesk/internal/http/middlewares"
	"github.com/geocoder89/rentdesk/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// UserStore is the user persistence the HTTP layer needs as a whole.
type UserStore interface {
	handlers.UsersStore
	GetByEmail(ctx context.Context, email string) (user.User, error)
	SetPassword(ctx context.Context, id int64, hash string, actor *int64) error
	UpdateProfile(ctx context.Context, id int64, email, hash *string, actor *int64) (user.User, error)
}

type Deps struct {
	Users    UserStore
	Products handlers.ProductsStore
	Accounts handlers.AccountService
	Verifier auth.Verifier
	Prom     *observability.Prom
	// Metrics serves /metrics; nil uses the default Prometheus registry.
	Metrics http.Handler
	// Checks are pinged by /readyz.
	Checks map[string]handlers.Pinger
	// Health is created by NewRouter when nil; callers keep it to drain.
	Health *handlers.HealthHandler
}

func NewRouter(log *slog.Logger, cfg config.Config, deps Deps) *gin.Engine {
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("rentdesk"))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(log))
	if deps.Prom != nil {
		r.Use(deps.Prom.GinHandleMiddleware())
	}

	// operational
	health := deps.Health
	if health == nil {
		health = handlers.NewHealthHandler(deps.Checks)
	}
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	metrics := deps.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	r.GET("/metrics", gin.WrapH(metrics))

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// API
	authMW := middlewares.NewAuthMiddleware(deps.Verifier, deps.Users)
	limiter := middlewares.NewRateLimiter(cfg.AuthRateLimit, cfg.AuthRateWindow)
	limitByIP := limiter.RateLimiterMiddleware(middlewares.KeyByIP)

	api := r.Group("/")
	api.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	api.Use(middlewares.RequireJSON())

	authH := handlers.NewAuthHandler(deps.Accounts, deps.Users)
	usersH := handlers.NewUsersHandler(deps.Users)
	productsH := handlers.NewProductsHandler(deps.Products)

	api.POST("/user/oauth/create/", limitByIP, authH.Register)
	api.POST("/user/oauth/login/", limitByIP, authH.Login)

	users := api.Group("/user", authMW.RequireAuth())
	{
		users.POST("/oauth/logout/", authH.Logout)
		users.POST("/password/reset/", limiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP), authH.ResetPassword)
		users.GET("/me/update/", authH.Me)
		users.PATCH("/me/update/", authH.UpdateMe)

		users.GET("/", usersH.List)
		users.POST("/", usersH.Create)
		users.GET("/:id/", usersH.Get)
		users.PUT("/:id/", usersH.Update)
		users.PATCH("/:id/", usersH.Patch)
		users.DELETE("/:id/", usersH.Delete)
	}

	products := api.Group("/product", authMW.OptionalAuth())
	{
		products.GET("/", productsH.List)
		products.POST("/", productsH.Create)
		products.GET("/:id/", productsH.Get)
		products.PUT("/:id/", productsH.Update)
		products.PATCH("/:id/", productsH.Patch)
		products.DELETE("/:id/", productsH.Delete)
	}

	return r
}
