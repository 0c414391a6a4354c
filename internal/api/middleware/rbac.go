package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
)

// SessionLoader returns the cached session for a session id.
type SessionLoader func(ctx context.Context, sid string) (*domain.Session, error)

// RequireRole lets the request through only when the cached session's role
// is one of allowedRoles. It hides admin screens from other roles; it is not
// an authorization boundary, the identity service is.
func RequireRole(load SessionLoader, allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			session, err := load(c.Request().Context(), SessionID(c))
			if err != nil || !session.Present() {
				return echo.NewHTTPError(http.StatusForbidden, domain.MsgForbidden)
			}
			if _, ok := allowed[session.User.Role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, domain.MsgForbidden)
			}
			return next(c)
		}
	}
}
