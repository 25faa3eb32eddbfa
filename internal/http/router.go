package http

import (
	"log/slog"
	"os"

	"github.com/appsisted/parkhub/internal/http/handlers"
	"github.com/appsisted/parkhub/internal/http/middlewares"
	"github.com/appsisted/parkhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type Deps struct {
	Log     *slog.Logger
	Prom    *observability.Prom
	Metrics prometheus.Gatherer

	Users   handlers.UserService
	Sites   handlers.SiteService
	Parking handlers.SessionStarter

	// Ping probes the backing store for readiness; nil means always ready.
	Ping func() error
}

func NewRouter(d Deps) *gin.Engine {
	cfgEnv := os.Getenv("APP_ENV")

	if cfgEnv != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(otelgin.Middleware("parkhub"))

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// health + metrics

	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Metrics, promhttp.HandlerOpts{})))
	}

	// Routes

	usersHandler := handlers.NewUsersHandler(d.Users)
	sitesHandler := handlers.NewSitesHandler(d.Sites)
	parkingHandler := handlers.NewParkingHandler(d.Parking)

	r.POST("/register", usersHandler.Register)
	r.POST("/login", usersHandler.Login)
	r.GET("/users/:username", usersHandler.GetUser)
	r.PUT("/users/:username/settings", usersHandler.UpdateSettings)

	r.GET("/sites", sitesHandler.List)
	r.GET("/sites/:location/:site", sitesHandler.Get)
	r.POST("/sites/:location/:site/reserve", sitesHandler.Reserve)
	r.POST("/sites/:location/:site/release", sitesHandler.Release)

	r.POST("/parking/start", parkingHandler.Start)

	return r
}
