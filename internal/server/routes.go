package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"golang.org/x/time/rate"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.Use(otelecho.Middleware("notification-api"))
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Api-Key", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/api", s.HelloWorldHandler)

	e.GET("/api/health", s.healthHandler)

	// Trusted server-to-server surface: the inventory backend pushes
	// notifications through here.
	var notificationGroup = e.Group("/api/v1/notifications",
		s.APIKeyMiddleware,
		middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(20))),
	)
	notificationGroup.POST("/token", s.SendToToken)
	notificationGroup.POST("/user", s.SendToUser)
	notificationGroup.POST("/batch", s.SendToMany)
	notificationGroup.POST("/stock-alert", s.QueueStockAlert)

	// End-user surface: devices register and manage their own tokens.
	var tokenGroup = e.Group("/api/v1/push-tokens", s.AuthMiddleware)
	tokenGroup.POST("", s.SavePushToken)
	tokenGroup.GET("", s.ListPushTokens)
	tokenGroup.DELETE("/:id", s.DeletePushToken)

	return e
}
