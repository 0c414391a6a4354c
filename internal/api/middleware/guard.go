package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/api/metrics"
)

const (
	// LoginPath is the only public page the guard matches.
	LoginPath = "/"
	// LandingPath is where an already signed-in browser is sent from LoginPath.
	LandingPath = "/profile"
)

// Decision is the outcome of the route guard for one request.
type Decision int

const (
	Allow Decision = iota
	RedirectLogin
	RedirectLanding
)

func (d Decision) String() string {
	switch d {
	case RedirectLogin:
		return "redirect_login"
	case RedirectLanding:
		return "redirect_landing"
	default:
		return "allow"
	}
}

// Target returns the redirect location, or "" for Allow.
func (d Decision) Target() string {
	switch d {
	case RedirectLogin:
		return LoginPath
	case RedirectLanding:
		return LandingPath
	default:
		return ""
	}
}

// Matches reports whether the guard applies to path: the login page itself
// and /profile with any sub path.
func Matches(path string) bool {
	return path == LoginPath || path == LandingPath || strings.HasPrefix(path, LandingPath+"/")
}

// Decide is the guard rule. It depends only on the path and on whether the
// accessToken cookie is present; paths outside Matches are always allowed.
func Decide(path string, hasToken bool) Decision {
	if !Matches(path) {
		return Allow
	}
	isPublic := path == LoginPath
	switch {
	case !isPublic && !hasToken:
		return RedirectLogin
	case isPublic && hasToken:
		return RedirectLanding
	default:
		return Allow
	}
}

// Guard redirects requests according to Decide. It only looks at the
// accessToken cookie, never at the session store.
func Guard(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			path := req.URL.Path
			if !Matches(path) {
				return next(c)
			}

			d := Decide(path, HasAccessToken(c))
			metrics.GuardDecisionsTotal.WithLabelValues(d.String()).Inc()
			log.Debug().Str("path", path).Str("decision", d.String()).Msg("route guard")

			if d == Allow {
				return next(c)
			}
			return c.Redirect(redirectStatus(req.Method), d.Target())
		}
	}
}

// redirectStatus keeps the method for reads and turns form posts into a GET.
func redirectStatus(method string) int {
	if method == http.MethodGet || method == http.MethodHead {
		return http.StatusTemporaryRedirect
	}
	return http.StatusSeeOther
}
