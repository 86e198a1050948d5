package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"mtbridge/configs"
)

// APIKeyAuth validates the configured API key on every request. When key
// checking is required but no keys are configured, a single key is
// generated at startup and logged so the operator can hand it out.
type APIKeyAuth struct {
	required bool
	header   string
	keys     map[string]struct{}
	origins  []string
	log      *logrus.Logger
}

// NewAPIKeyAuth builds the auth middleware from the security config.
func NewAPIKeyAuth(cfg configs.SecurityConfig, log *logrus.Logger) *APIKeyAuth {
	keys := make(map[string]struct{}, len(cfg.APIKeys))
	for _, key := range cfg.APIKeys {
		if key != "" {
			keys[key] = struct{}{}
		}
	}

	if cfg.RequireAPIKey && len(keys) == 0 {
		generated := uuid.NewString()
		keys[generated] = struct{}{}
		log.WithField("api_key", generated).
			Warn("API key auth is required but no keys are configured; generated one for this run, set API_KEYS to persist it")
	}

	return &APIKeyAuth{
		required: cfg.RequireAPIKey,
		header:   cfg.APIKeyHeader,
		keys:     keys,
		origins:  cfg.AllowedOrigins,
		log:      log,
	}
}

// Middleware enforces the API key and origin allow-list.
func (a *APIKeyAuth) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		// Preflight requests carry no key
		if c.Request().Method == http.MethodOptions {
			return c.NoContent(http.StatusOK)
		}

		if origin := c.Request().Header.Get("Origin"); origin != "" && !a.originAllowed(origin) {
			return echo.NewHTTPError(http.StatusUnauthorized, "Origin not allowed")
		}

		if !a.required {
			return next(c)
		}

		key := c.Request().Header.Get(a.header)
		if key == "" {
			key = c.QueryParam("api_key")
		}
		if key == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing API key, pass it in the "+a.header+" header")
		}
		if _, ok := a.keys[key]; !ok {
			a.log.WithField("path", c.Request().URL.Path).Warn("rejected request with invalid API key")
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid API key")
		}

		return next(c)
	}
}

func (a *APIKeyAuth) originAllowed(origin string) bool {
	for _, allowed := range a.origins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
