package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// errorBody is the uniform error response.
type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Message    string `json:"message"`
}

// NewHTTPErrorHandler renders every error as errorBody. Server errors are
// logged at error level with their cause, client errors at warn.
func NewHTTPErrorHandler(logger *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := "Internal server error"

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if code < http.StatusInternalServerError {
				message = fmt.Sprint(he.Message)
			}
		}

		req := c.Request()
		attrs := []any{
			"method", req.Method,
			"path", req.URL.Path,
			"status", code,
		}
		if code >= http.StatusInternalServerError {
			logger.ErrorContext(req.Context(), "request failed", append(attrs, "error", err)...)
		} else {
			logger.WarnContext(req.Context(), "request rejected", append(attrs, "message", message)...)
		}

		body := errorBody{
			StatusCode: code,
			Timestamp:  time.Now().UTC().Format(time.RFC3339Nano),
			Path:       req.URL.Path,
			Message:    message,
		}

		if req.Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, body)
		}
		if err != nil {
			logger.ErrorContext(req.Context(), "failed to write error response", "error", err)
		}
	}
}
