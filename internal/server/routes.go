package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"fitforge/internal/admin"
	"fitforge/internal/user"
)

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-User-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.GET("/health", s.healthHandler)

	e.Use(LoggerMiddleware)

	e.GET("/admin/system", admin.GetSystemStatusHandler)

	// Plan routes. Identity comes from the gateway-provided header.
	api := e.Group("/api")
	api.Use(IdentityMiddleware)

	api.POST("/plans/generate", user.GeneratePlanHandler)
	api.POST("/plans", user.SavePlanHandler)
	api.GET("/plans", user.ListPlansHandler)
	api.DELETE("/plans/:plan_id", user.DeletePlanHandler)
	api.POST("/plans/:plan_id/feedback", user.SubmitFeedbackHandler)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.db.Health())
}

// IdentityMiddleware lifts the authenticated user id set by the upstream
// gateway into the request context. Handlers that need identity check it
// themselves; plan generation works without one.
func IdentityMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if userID := c.Request().Header.Get("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		return next(c)
	}
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}
