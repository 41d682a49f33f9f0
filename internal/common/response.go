package common

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// APIPrefix marks the routes answered with the JSON envelope.
const APIPrefix = "/api"

// ErrorResponse is the envelope of every failed API call.
type ErrorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// JSONError writes {ok:false, error:message} with the given status.
func JSONError(ctx echo.Context, status int, message string) error {
	return ctx.JSON(status, ErrorResponse{OK: false, Error: message})
}

// NewHTTPErrorHandler renders errors escaping API handlers (unknown routes,
// body limit, recovered panics) in the JSON envelope and leaves every other
// path to echo's default handler.
func NewHTTPErrorHandler(e *echo.Echo) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}
		if !strings.HasPrefix(ctx.Request().URL.Path, APIPrefix) {
			e.DefaultHTTPErrorHandler(err, ctx)
			return
		}

		status := http.StatusInternalServerError
		message := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			message = fmt.Sprint(he.Message)
		}

		if status >= http.StatusInternalServerError {
			slog.Error("unhandled api error", "status", status, "path", ctx.Request().URL.Path, "error", err)
		}

		var werr error
		if ctx.Request().Method == http.MethodHead {
			werr = ctx.NoContent(status)
		} else {
			werr = JSONError(ctx, status, message)
		}
		if werr != nil {
			slog.Error("failed to write error response", "error", werr)
		}
	}
}
