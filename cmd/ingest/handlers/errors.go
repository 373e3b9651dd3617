package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lyzr/catalog-ingest/common/logger"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Status int    `json:"status"`
	Error  string `json:"error"`
}

// ErrorHandler renders errors as ErrorResponse. Server errors log the
// internal cause; the caller only sees the generic reason.
func ErrorHandler(log *logger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		reason := http.StatusText(code)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok {
				reason = msg
			} else {
				reason = http.StatusText(code)
			}
		}

		if code >= http.StatusInternalServerError {
			log.WithContext(c.Request().Context()).Error("request failed",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", code,
				"error", err,
			)
		}

		var writeErr error
		if c.Request().Method == http.MethodHead {
			writeErr = c.NoContent(code)
		} else {
			writeErr = c.JSON(code, ErrorResponse{Status: code, Error: reason})
		}
		if writeErr != nil {
			log.Warn("failed to write error response", "error", writeErr)
		}
	}
}
