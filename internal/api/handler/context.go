package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quarkfin/qwallet-web/internal/api/middleware"
	"github.com/quarkfin/qwallet-web/internal/core/domain"
)

// sessionID returns the browser session id injected by the Session
// middleware. Without it no operation can be attributed to a browser.
func sessionID(c echo.Context) (string, error) {
	sid := middleware.SessionID(c)
	if sid == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "missing session")
	}
	return sid, nil
}

// statusFor picks the HTTP status of a page re-rendered after err.
func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrNoSession):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrOperationInFlight):
		return http.StatusConflict
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrFetchProfile),
		errors.Is(err, domain.ErrUpdateProfile),
		errors.Is(err, domain.ErrCreateUser):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// settledMessages splits an operation's settled status into the error and
// success messages a page shows. A rejected submission never reached the
// tracker, so its own error wins.
func settledMessages(st domain.OpStatus, err error) (errMsg, okMsg string) {
	if errors.Is(err, domain.ErrOperationInFlight) {
		return domain.Message(err), ""
	}
	switch st.State {
	case domain.OpError:
		return st.Message, ""
	case domain.OpSuccess:
		return "", st.Message
	}
	if err != nil {
		return domain.Message(err), ""
	}
	return "", ""
}
