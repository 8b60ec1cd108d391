package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Response is the JSON error body returned to callers.
type Response struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Severity string `json:"severity"`
}

// HTTPErrorHandler returns an echo error handler that renders classified
// errors with their taxonomy status and hides internal details of
// unclassified failures.
func HTTPErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		body := Response{Error: "internal server error", Code: "internal", Severity: "error"}

		var ae *Error
		var he *echo.HTTPError
		switch {
		case errors.As(err, &ae):
			status = ae.Kind.Status()
			body = Response{Error: ae.Message, Code: ae.Kind.String(), Severity: ae.Kind.Severity()}
			if ae.Err != nil {
				logger.Error().Err(ae.Err).Str("kind", ae.Kind.String()).Str("path", c.Path()).Msg("request failed")
			}
		case errors.As(err, &he):
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				body = Response{Error: msg, Code: http.StatusText(he.Code), Severity: "error"}
			}
		default:
			logger.Error().Err(err).Str("path", c.Path()).Msg("unhandled error")
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(status)
			return
		}
		_ = c.JSON(status, body)
	}
}
