package http

import (
	"context"
	"time"

	"github.com/geocoder89/zora/internal/auth"
	"github.com/geocoder89/zora/internal/http/handlers"
	"github.com/geocoder89/zora/internal/http/middlewares"
	"github.com/geocoder89/zora/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the router needs. Products, Users and Env are
// required; the rest switch features on when set.
type Deps struct {
	Env      string
	Products handlers.ProductsReader
	Users    handlers.UserStore

	// nil when no database is used
	Ping func(ctx context.Context) error

	ProductsCache handlers.ProductsCache
	JWT           *auth.Manager

	Prom     *observability.Prom
	Gatherer prometheus.Gatherer

	CORSAllowedOrigins     []string
	AuthRateLimitPerMinute int
	Tracing                bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	if d.Tracing {
		r.Use(otelgin.Middleware("zora-api"))
	}
	r.Use(middlewares.RequestLogger())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondNotFound(ctx, "Route not found")
	})

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")

	health := handlers.NewHealthHandler(d.Ping)
	api.GET("/health", health.Health)

	products := handlers.NewProductsHandler(d.Products, d.ProductsCache)
	api.GET("/products", products.ListProducts)
	api.GET("/products/:id", products.GetProduct)
	api.GET("/data", products.Data)

	var issuer handlers.TokenIssuer
	if d.JWT != nil {
		issuer = d.JWT
	}
	authH := handlers.NewAuthHandler(d.Users, issuer)

	limiter := middlewares.NewRateLimiter(d.AuthRateLimitPerMinute, time.Minute)
	writes := api.Group("",
		limiter.RateLimiterMiddleware(middlewares.KeyByIP),
		middlewares.RequireJSON(),
		middlewares.MaxBodyBytes(middlewares.DefaultMaxBodyBytes),
	)
	writes.POST("/users", authH.Register)
	writes.POST("/login", authH.Login)

	if d.JWT != nil {
		authMW := middlewares.NewAuthMiddleware(d.JWT)
		api.GET("/me", authMW.RequireAuth(), authH.Me)
	}

	return r
}
