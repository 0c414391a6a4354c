package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/api/metrics"
	"github.com/quarkfin/qwallet-web/internal/api/middleware"
	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
)

type ProfileHandler struct {
	accounts ports.AccountService
	cookies  middleware.CookieConfig
	log      zerolog.Logger
}

func NewProfileHandler(accounts ports.AccountService, cookies middleware.CookieConfig, log zerolog.Logger) *ProfileHandler {
	return &ProfileHandler{accounts: accounts, cookies: cookies, log: log}
}

type updateProfileForm struct {
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required"`
}

type createUserForm struct {
	Email    string `form:"email" validate:"required,email,max=254"`
	Password string `form:"password" validate:"required"`
	Role     string `form:"role" validate:"required,oneof=VIEWER ADMIN ADVISOR BROKER"`
}

type newUserFields struct {
	Email    string
	Password string
	Role     domain.Role
}

type profilePage struct {
	UserID    string
	Role      domain.Role
	CreatedAt time.Time
	UpdatedAt *time.Time

	// Email and Password prefill the edit form. Password is the plaintext
	// value the identity service returns.
	Email    string
	Password string

	FetchError    string
	UpdateError   string
	UpdateSuccess string

	IsAdmin       bool
	NewUser       newUserFields
	CreateError   string
	CreateSuccess string
	Roles         []domain.Role
}

func newProfilePage(s *domain.Session) profilePage {
	return profilePage{
		UserID:    s.User.ID,
		Role:      s.User.Role,
		CreatedAt: s.User.CreatedAt,
		UpdatedAt: s.User.UpdatedAt,
		Email:     s.User.Email,
		IsAdmin:   s.User.IsAdmin(),
		NewUser:   newUserFields{Role: domain.RoleViewer},
		Roles:     domain.Roles,
	}
}

// Show fetches the signed-in user's profile and renders it. A browser with
// no stored session is sent back to the login page.
func (h *ProfileHandler) Show(c echo.Context) error {
	session, sid, err := h.session(c)
	if err != nil {
		return h.noSession(c, err)
	}
	page := newProfilePage(session)

	profile, err := h.accounts.FetchProfile(c.Request().Context(), sid)
	if err != nil {
		if errors.Is(err, domain.ErrNoSession) {
			return h.noSession(c, err)
		}
		page.FetchError, _ = settledMessages(h.accounts.Status(sid, domain.OpFetchProfile), err)
		return c.Render(statusFor(err), "profile", page)
	}

	page.Email = profile.Email
	page.Password = profile.Password
	if profile.Role != "" {
		page.Role = profile.Role
	}
	if !profile.CreatedAt.IsZero() {
		page.CreatedAt = profile.CreatedAt
	}
	page.UpdatedAt = profile.UpdatedAt
	return c.Render(http.StatusOK, "profile", page)
}

// Update submits the edited email and password.
func (h *ProfileHandler) Update(c echo.Context) error {
	session, sid, err := h.session(c)
	if err != nil {
		return h.noSession(c, err)
	}
	page := newProfilePage(session)

	var form updateProfileForm
	if err := c.Bind(&form); err != nil {
		page.UpdateError = msgInvalidPayload
		return c.Render(http.StatusBadRequest, "profile", page)
	}
	page.Email, page.Password = form.Email, form.Password
	if err := c.Validate(&form); err != nil {
		page.UpdateError = err.Error()
		return c.Render(http.StatusBadRequest, "profile", page)
	}

	err = h.accounts.UpdateProfile(c.Request().Context(), sid, form.Email, form.Password)
	if errors.Is(err, domain.ErrNoSession) {
		return h.noSession(c, err)
	}
	page.UpdateError, page.UpdateSuccess = settledMessages(h.accounts.Status(sid, domain.OpUpdateProfile), err)
	return c.Render(statusFor(err), "profile", page)
}

// CreateUser registers a new account from the admin form. The route is
// wrapped in RequireRole, so only admin sessions get here.
func (h *ProfileHandler) CreateUser(c echo.Context) error {
	session, sid, err := h.session(c)
	if err != nil {
		return h.noSession(c, err)
	}
	page := newProfilePage(session)

	var form createUserForm
	if err := c.Bind(&form); err != nil {
		page.CreateError = msgInvalidPayload
		return c.Render(http.StatusBadRequest, "profile", page)
	}
	page.NewUser = newUserFields{Email: form.Email, Password: form.Password, Role: domain.Role(form.Role)}
	if err := c.Validate(&form); err != nil {
		page.CreateError = err.Error()
		return c.Render(http.StatusBadRequest, "profile", page)
	}

	in := ports.NewUserInput{Email: form.Email, Password: form.Password, Role: domain.Role(form.Role)}
	err = h.accounts.CreateUser(c.Request().Context(), sid, in)
	if errors.Is(err, domain.ErrNoSession) {
		return h.noSession(c, err)
	}
	page.CreateError, page.CreateSuccess = settledMessages(h.accounts.Status(sid, domain.OpCreateUser), err)
	if err == nil {
		page.NewUser = newUserFields{Role: domain.RoleViewer}
	}
	return c.Render(statusFor(err), "profile", page)
}

func (h *ProfileHandler) session(c echo.Context) (*domain.Session, string, error) {
	sid, err := sessionID(c)
	if err != nil {
		return nil, "", err
	}
	session, err := h.accounts.Session(c.Request().Context(), sid)
	if err != nil {
		return nil, sid, err
	}
	return session, sid, nil
}

// noSession sends the browser to the login page. When the accessToken cookie
// is still present the store and the cookie disagree; the cookie is expired
// so that the route guard does not send the browser straight back here.
func (h *ProfileHandler) noSession(c echo.Context, err error) error {
	if !errors.Is(err, domain.ErrNoSession) {
		return err
	}
	if middleware.HasAccessToken(c) {
		metrics.SessionDesyncTotal.Inc()
		h.log.Warn().Str("path", c.Request().URL.Path).Msg("accessToken cookie without stored session, clearing cookie")
		middleware.ClearAccessToken(c, h.cookies)
	}
	return c.Redirect(http.StatusSeeOther, middleware.LoginPath)
}

// SessionLoader exposes the cached session lookup for RequireRole.
func (h *ProfileHandler) SessionLoader() middleware.SessionLoader {
	return func(ctx context.Context, sid string) (*domain.Session, error) {
		return h.accounts.Session(ctx, sid)
	}
}
