package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/fraghub/internal/authctx"
	"github.com/geocoder89/fraghub/internal/config"
	"github.com/geocoder89/fraghub/internal/http/handlers"
	"github.com/geocoder89/fraghub/internal/http/middlewares"
	"github.com/geocoder89/fraghub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/graphql-go/graphql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const serviceName = "fraghub-api"

type Deps struct {
	Log      *slog.Logger
	Config   config.Config
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Schema   graphql.Schema
	Sessions *authctx.Builder
	// Checks are pinged by /readyz.
	Checks map[string]handlers.Check
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.RequestLogger(d.Log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Config.CORSAllowedOrigins))

	// health
	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	gql := handlers.NewGraphQLHandler(d.Schema)

	api := r.Group("/graphql",
		middlewares.MaxBodyBytes(d.Config.MaxBodyBytes),
		middlewares.RequireJSON(),
		middlewares.Session(d.Sessions),
	)
	api.POST("", gql.Post)
	api.GET("", gql.Get)

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})

	return r
}
