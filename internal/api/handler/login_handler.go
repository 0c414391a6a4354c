package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/api/middleware"
	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
	"github.com/quarkfin/qwallet-web/internal/infrastructure/identity"
)

const msgInvalidPayload = "Dados do formulário inválidos"

type LoginHandler struct {
	accounts ports.AccountService
	cookies  middleware.CookieConfig
	landing  string
	log      zerolog.Logger
}

func NewLoginHandler(accounts ports.AccountService, cookies middleware.CookieConfig, landing string, log zerolog.Logger) *LoginHandler {
	if landing == "" {
		landing = middleware.LandingPath
	}
	return &LoginHandler{accounts: accounts, cookies: cookies, landing: landing, log: log}
}

type loginForm struct {
	Email    string `form:"email" validate:"required,max=254"`
	Password string `form:"password" validate:"required"`
}

type loginPage struct {
	Email string
	Error string
}

// Show renders the login form.
func (h *LoginHandler) Show(c echo.Context) error {
	return c.Render(http.StatusOK, "login", loginPage{})
}

// Submit signs the browser in. On success the session is stored under a new
// session id that replaces the browser's cookie, the accessToken cookie is
// mirrored for the route guard and the browser is sent to the landing page;
// on failure the form is shown again with one message.
func (h *LoginHandler) Submit(c echo.Context) error {
	sid, err := sessionID(c)
	if err != nil {
		return err
	}

	var form loginForm
	if err := c.Bind(&form); err != nil {
		return c.Render(http.StatusBadRequest, "login", loginPage{Error: msgInvalidPayload})
	}
	if err := c.Validate(&form); err != nil {
		return c.Render(http.StatusBadRequest, "login", loginPage{Email: form.Email, Error: err.Error()})
	}

	next, session, err := h.accounts.Login(c.Request().Context(), sid, form.Email, form.Password)
	if err != nil {
		errMsg, _ := settledMessages(h.accounts.Status(sid, domain.OpLogin), err)
		return c.Render(statusFor(err), "login", loginPage{Email: form.Email, Error: errMsg})
	}

	middleware.SetSessionCookie(c, h.cookies, next)
	expires, _ := identity.TokenExpiry(session.AccessToken)
	middleware.SetAccessToken(c, h.cookies, session.AccessToken, expires)
	return c.Redirect(http.StatusSeeOther, h.landing)
}
