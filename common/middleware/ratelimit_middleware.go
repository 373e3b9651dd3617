package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/catalog-ingest/common/ratelimit"
)

// UsernameFunc returns the authenticated caller, or "" if there is none
type UsernameFunc func(c echo.Context) string

// UserRateLimitMiddleware limits submissions per authenticated user, as
// reported by username. Requests with no user and Redis errors are let
// through.
func UserRateLimitMiddleware(rateLimiter *ratelimit.RateLimiter, username UsernameFunc, limit int64, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := username(c)
			if user == "" {
				return next(c)
			}

			result, err := rateLimiter.CheckUserLimit(c.Request().Context(), user, limit, window)
			if err != nil {
				return next(c)
			}

			if !result.Allowed {
				c.Response().Header().Set("Retry-After", strconv.FormatInt(result.RetryAfterSeconds, 10))
				return echo.NewHTTPError(http.StatusTooManyRequests, "submission rate limit exceeded")
			}

			return next(c)
		}
	}
}
