package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// AccessTokenCookie mirrors the stored access token for the route guard.
	AccessTokenCookie = "accessToken"
	// SessionCookie names the browser's entry in the session store.
	SessionCookie = "qwallet_sid"

	sessionIDKey = "sid"
)

// CookieConfig holds the attributes shared by every cookie the front end sets.
type CookieConfig struct {
	Secure bool
	MaxAge time.Duration
}

// HasAccessToken reports whether the request carries a non-empty
// accessToken cookie.
func HasAccessToken(c echo.Context) bool {
	cookie, err := c.Cookie(AccessTokenCookie)
	return err == nil && cookie.Value != ""
}

// SetAccessToken writes the mirror cookie. A zero expires yields a browser
// session cookie.
func SetAccessToken(c echo.Context, cfg CookieConfig, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !expires.IsZero() {
		cookie.Expires = expires
	}
	c.SetCookie(cookie)
}

// ClearAccessToken expires the mirror cookie.
func ClearAccessToken(c echo.Context, cfg CookieConfig) {
	c.SetCookie(&http.Cookie{
		Name:     AccessTokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Session makes sure every request has a session id, issuing a new random
// one in a cookie on first contact.
func Session(cfg CookieConfig) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if cookie, err := c.Cookie(SessionCookie); err == nil {
				if _, perr := uuid.Parse(cookie.Value); perr == nil {
					SetSessionID(c, cookie.Value)
					return next(c)
				}
			}

			SetSessionCookie(c, cfg, uuid.NewString())
			return next(c)
		}
	}
}

// SetSessionCookie issues sid to the browser with a full MaxAge and makes it
// the session id of the current request.
func SetSessionCookie(c echo.Context, cfg CookieConfig, sid string) {
	cookie := &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if cfg.MaxAge > 0 {
		cookie.MaxAge = int(cfg.MaxAge.Seconds())
	}
	c.SetCookie(cookie)
	SetSessionID(c, sid)
}

// SessionID returns the id set by Session, or "" when it did not run.
func SessionID(c echo.Context) string {
	sid, _ := c.Get(sessionIDKey).(string)
	return sid
}

// SetSessionID attaches sid to the request context.
func SetSessionID(c echo.Context, sid string) {
	c.Set(sessionIDKey, sid)
}
