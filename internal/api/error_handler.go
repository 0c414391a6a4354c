package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
)

// errorResponse is the JSON error envelope for non-HTML clients.
type errorResponse struct {
	Error string `json:"error"`
}

type errorPage struct {
	Message string
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors without leaking details to the browser.
//   - Renders the error page for browsers and {"error": "<message>"} otherwise.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		if wantsHTML(c) {
			if rerr := c.Render(code, "error", errorPage{Message: msg}); rerr == nil {
				return
			}
		}
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, RequireRole, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	switch {
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, domain.MsgForbidden
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, domain.MsgInvalidCredentials
	case errors.Is(err, domain.ErrOperationInFlight):
		return http.StatusConflict, domain.MsgInFlight
	case errors.Is(err, domain.ErrFetchProfile),
		errors.Is(err, domain.ErrUpdateProfile),
		errors.Is(err, domain.ErrCreateUser):
		return http.StatusBadGateway, domain.Message(err)
	}

	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, domain.MsgGeneric
}

// wantsHTML reports whether the client is a browser asking for a page.
func wantsHTML(c echo.Context) bool {
	if c.Echo().Renderer == nil {
		return false
	}
	accept := c.Request().Header.Get(echo.HeaderAccept)
	return accept == "" || strings.Contains(accept, echo.MIMETextHTML) || strings.Contains(accept, "*/*")
}
