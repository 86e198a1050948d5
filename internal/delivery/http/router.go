package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	custommiddleware "mtbridge/internal/middleware"
	"mtbridge/pkg/metrics"
)

// RouterConfig holds all dependencies for routing
type RouterConfig struct {
	DirectoryHandler *DirectoryHandler
	GroupHandler     *GroupHandler
	Auth             *custommiddleware.APIKeyAuth
	Metrics          *metrics.Collector
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(e *echo.Echo, config *RouterConfig) {
	e.HTTPErrorHandler = errorHandler

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())
	e.Use(config.Metrics.Middleware())

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return SuccessResponse(c, map[string]any{
			"status":  "healthy",
			"service": "mtbridge",
		})
	})

	// Prometheus scrape endpoint
	e.GET("/metrics", echo.WrapHandler(config.Metrics.Handler()))

	// API group (protected with the API key middleware)
	api := e.Group("/api", config.Auth.Middleware)

	// Session
	api.POST("/connect", config.DirectoryHandler.Connect)
	api.POST("/disconnect", config.DirectoryHandler.Disconnect)
	api.GET("/status", config.DirectoryHandler.Status)

	// Single account
	api.GET("/user/:login", config.DirectoryHandler.GetUser)
	api.GET("/user/:login/group", config.DirectoryHandler.GetUserGroup)
	api.GET("/user/:login/deals", config.DirectoryHandler.GetUserDeals)
	api.GET("/user/:login/positions", config.DirectoryHandler.GetUserPositions)
	api.GET("/user/:login/positions/summary", config.DirectoryHandler.GetPositionSummary)
	api.GET("/account/:login", config.DirectoryHandler.GetAccount)

	// Directory
	api.GET("/users", config.DirectoryHandler.GetAllUsers)
	api.GET("/users/real", config.DirectoryHandler.GetRealUsers)
	api.GET("/users/demo", config.DirectoryHandler.GetDemoUsers)
	api.GET("/users/vip", config.DirectoryHandler.GetVIPUsers)
	api.GET("/users/managers", config.DirectoryHandler.GetManagerUsers)
	api.GET("/users/stats", config.DirectoryHandler.GetDiscoveryStats)

	// Groups
	api.GET("/groups", config.GroupHandler.ListGroups)
	api.POST("/groups", config.GroupHandler.CreateGroup)
	api.GET("/group/:name", config.GroupHandler.GetGroup)
	api.POST("/group/:name", config.GroupHandler.UpdateGroup)
	api.GET("/group/:name/users", config.DirectoryHandler.GetUsersInGroup)
	api.GET("/group/:name/positions", config.DirectoryHandler.GetGroupPositions)

	// Balance
	api.POST("/balance", config.DirectoryHandler.PerformBalance)
}

// errorHandler funnels framework-level failures (unknown routes, auth
// rejections, panics caught by Recover) into the uniform envelope.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(status)
		}
	}
	if status == http.StatusNotFound && message == http.StatusText(http.StatusNotFound) {
		message = "Endpoint not found"
	}

	if writeErr := ErrorResponse(c, status, message); writeErr != nil {
		c.Logger().Error(writeErr)
	}
}
