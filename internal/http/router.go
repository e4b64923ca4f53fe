// README: HTTP router registration.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"maroonline/internal/http/handlers"
	"maroonline/internal/http/middleware"
)

func NewRouter(deps ServerDeps) *gin.Engine {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(deps.Logger),
		middleware.Recovery(deps.Logger),
		middleware.Metrics(deps.Metrics),
	)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Metrics.Registry, promhttp.HandlerOpts{})))
	}

	authHandler := handlers.NewAuthHandler(deps.Auth)
	r.POST("/api/auth/code", authHandler.RequestCode)
	r.POST("/api/auth/verify", authHandler.Verify)

	api := r.Group("/api", middleware.Auth(deps.Auth))
	api.POST("/auth/logout", authHandler.Logout)

	profileHandler := handlers.NewProfileHandler(deps.Profile, deps.Route)
	api.GET("/profile", profileHandler.Get)
	api.PUT("/profile", profileHandler.Save)
	api.GET("/topics", profileHandler.Topics)
	api.GET("/stations", profileHandler.Stations)

	tripHandler := handlers.NewTripHandler(deps.Trip, deps.Matching, deps.Profile, deps.Estimator, deps.Route, handlers.TripConfig{
		Window:   deps.Window,
		Location: deps.Location,
	})
	api.POST("/trips", tripHandler.Create)
	api.GET("/trips", tripHandler.List)
	api.GET("/trips/:id/matches", tripHandler.Matches)
	api.GET("/trips/:id/suggestions", tripHandler.Suggestions)
	api.POST("/trips/:id/commit", tripHandler.Commit)
	api.GET("/matches", tripHandler.ListMatches)

	icebreakerHandler := handlers.NewIcebreakerHandler(deps.Icebreaker, deps.Matching, deps.Trip, deps.Profile)
	api.POST("/trips/:id/icebreaker", icebreakerHandler.Suggest)

	return r
}
