package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/api/middleware"
	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
)

func adminSession() *domain.Session {
	return &domain.Session{
		AccessToken: "tok1",
		User: domain.User{
			ID:        "u1",
			Email:     "a@b.com",
			Role:      domain.RoleAdmin,
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		},
	}
}

func sessionOf(s *domain.Session) func(ctx context.Context, sid string) (*domain.Session, error) {
	return func(ctx context.Context, sid string) (*domain.Session, error) {
		if s == nil {
			return nil, domain.ErrNoSession
		}
		return s, nil
	}
}

func TestProfileHandler_Show_Success(t *testing.T) {
	e := newTestEcho(t)
	stub := &stubAccountService{
		sessionFn: sessionOf(adminSession()),
		fetchProfileFn: func(ctx context.Context, sid string) (*domain.Profile, error) {
			return &domain.Profile{
				ID:        "u1",
				Email:     "a@b.com",
				Password:  "x",
				Role:      domain.RoleAdmin,
				CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			}, nil
		},
	}
	h := NewProfileHandler(stub, middleware.CookieConfig{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/profile", nil), rec)
	middleware.SetSessionID(c, "sid1")

	if err := h.Show(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Local().Format("02/01/2006 15:04:05")
	body := rec.Body.String()
	for _, want := range []string{"u1", "ADMIN", created, "N/A", `value="a@b.com"`, `id="create-user"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %q in body", want)
		}
	}
}

func TestProfileHandler_Show_FetchFailure(t *testing.T) {
	e := newTestEcho(t)
	stub := &stubAccountService{
		sessionFn: sessionOf(adminSession()),
		fetchProfileFn: func(ctx context.Context, sid string) (*domain.Profile, error) {
			return nil, fmt.Errorf("identity fetch: status 500: %w", domain.ErrFetchProfile)
		},
		statuses: map[domain.Operation]domain.OpStatus{
			domain.OpFetchProfile: {State: domain.OpError, Message: domain.MsgFetchProfile},
		},
	}
	h := NewProfileHandler(stub, middleware.CookieConfig{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/profile", nil), rec)
	middleware.SetSessionID(c, "sid1")

	if err := h.Show(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), domain.MsgFetchProfile) {
		t.Fatalf("expected fetch error in body:\n%s", rec.Body.String())
	}
}

func TestProfileHandler_Show_NoSessionClearsCookie(t *testing.T) {
	e := newTestEcho(t)
	stub := &stubAccountService{sessionFn: sessionOf(nil)}
	h := NewProfileHandler(stub, middleware.CookieConfig{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/profile", nil)
	req.AddCookie(&http.Cookie{Name: middleware.AccessTokenCookie, Value: "stale"})
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	middleware.SetSessionID(c, "sid1")

	if err := h.Show(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/" {
		t.Fatalf("expected 303 to /, got %d %q", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}

	cleared := false
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == middleware.AccessTokenCookie && ck.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Fatal("expected accessToken cookie to be expired")
	}
}

func TestProfileHandler_Update(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     domain.OpStatus
		wantCode   int
		wantInBody string
	}{
		{
			name:       "success",
			status:     domain.OpStatus{State: domain.OpSuccess, Message: domain.MsgProfileUpdated},
			wantCode:   http.StatusOK,
			wantInBody: domain.MsgProfileUpdated,
		},
		{
			name:       "remote failure",
			err:        fmt.Errorf("identity update: status 500: %w", domain.ErrUpdateProfile),
			status:     domain.OpStatus{State: domain.OpError, Message: domain.MsgUpdateProfile},
			wantCode:   http.StatusBadGateway,
			wantInBody: domain.MsgUpdateProfile,
		},
		{
			name:       "in flight",
			err:        domain.ErrOperationInFlight,
			status:     domain.OpStatus{State: domain.OpPending},
			wantCode:   http.StatusConflict,
			wantInBody: domain.MsgInFlight,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(t)
			var gotEmail, gotPassword string
			stub := &stubAccountService{
				sessionFn: sessionOf(adminSession()),
				updateProfileFn: func(ctx context.Context, sid, email, password string) error {
					gotEmail, gotPassword = email, password
					return tt.err
				},
				statuses: map[domain.Operation]domain.OpStatus{domain.OpUpdateProfile: tt.status},
			}
			h := NewProfileHandler(stub, middleware.CookieConfig{}, zerolog.Nop())

			rec := httptest.NewRecorder()
			form := url.Values{"email": {"new@b.com"}, "password": {"y"}}
			c := e.NewContext(formRequest(http.MethodPost, "/profile", form), rec)
			middleware.SetSessionID(c, "sid1")

			if err := h.Update(c); err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if gotEmail != "new@b.com" || gotPassword != "y" {
				t.Fatalf("unexpected submission: %q %q", gotEmail, gotPassword)
			}
			if rec.Code != tt.wantCode {
				t.Fatalf("expected %d, got %d", tt.wantCode, rec.Code)
			}
			if !strings.Contains(rec.Body.String(), tt.wantInBody) {
				t.Fatalf("expected %q in body:\n%s", tt.wantInBody, rec.Body.String())
			}
		})
	}
}

func TestProfileHandler_Update_InvalidEmail(t *testing.T) {
	e := newTestEcho(t)
	stub := &stubAccountService{
		sessionFn: sessionOf(adminSession()),
		updateProfileFn: func(ctx context.Context, sid, email, password string) error {
			t.Fatal("should not be called")
			return nil
		},
	}
	h := NewProfileHandler(stub, middleware.CookieConfig{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	c := e.NewContext(formRequest(http.MethodPost, "/profile", url.Values{"email": {"nope"}, "password": {"y"}}), rec)
	middleware.SetSessionID(c, "sid1")

	if err := h.Update(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "email deve ser um email válido") {
		t.Fatalf("expected validation message:\n%s", rec.Body.String())
	}
}

func TestProfileHandler_CreateUser_Success(t *testing.T) {
	e := newTestEcho(t)
	var got ports.NewUserInput
	stub := &stubAccountService{
		sessionFn: sessionOf(adminSession()),
		createUserFn: func(ctx context.Context, sid string, in ports.NewUserInput) error {
			got = in
			return nil
		},
		statuses: map[domain.Operation]domain.OpStatus{
			domain.OpCreateUser: {State: domain.OpSuccess, Message: domain.MsgUserCreated},
		},
	}
	h := NewProfileHandler(stub, middleware.CookieConfig{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	form := url.Values{"email": {"c@d.com"}, "password": {"p"}, "role": {"BROKER"}}
	c := e.NewContext(formRequest(http.MethodPost, "/profile/users", form), rec)
	middleware.SetSessionID(c, "sid1")

	if err := h.CreateUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if got.Email != "c@d.com" || got.Password != "p" || got.Role != domain.RoleBroker {
		t.Fatalf("unexpected input: %+v", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, domain.MsgUserCreated) {
		t.Fatalf("expected success message:\n%s", body)
	}
	if strings.Contains(body, `value="c@d.com"`) {
		t.Fatal("create form should be reset after success")
	}
}

func TestProfileHandler_CreateUser_Failure(t *testing.T) {
	e := newTestEcho(t)
	stub := &stubAccountService{
		sessionFn: sessionOf(adminSession()),
		createUserFn: func(ctx context.Context, sid string, in ports.NewUserInput) error {
			return fmt.Errorf("identity create: status 400: %w", domain.ErrCreateUser)
		},
		statuses: map[domain.Operation]domain.OpStatus{
			domain.OpCreateUser: {State: domain.OpError, Message: domain.MsgCreateUser},
		},
	}
	h := NewProfileHandler(stub, middleware.CookieConfig{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	form := url.Values{"email": {"c@d.com"}, "password": {"p"}, "role": {"VIEWER"}}
	c := e.NewContext(formRequest(http.MethodPost, "/profile/users", form), rec)
	middleware.SetSessionID(c, "sid1")

	if err := h.CreateUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, domain.MsgCreateUser) || !strings.Contains(body, `value="c@d.com"`) {
		t.Fatalf("expected failure message and kept input:\n%s", body)
	}
}

func TestProfileHandler_CreateUser_InvalidRole(t *testing.T) {
	e := newTestEcho(t)
	stub := &stubAccountService{
		sessionFn: sessionOf(adminSession()),
		createUserFn: func(ctx context.Context, sid string, in ports.NewUserInput) error {
			t.Fatal("should not be called")
			return nil
		},
	}
	h := NewProfileHandler(stub, middleware.CookieConfig{}, zerolog.Nop())

	rec := httptest.NewRecorder()
	form := url.Values{"email": {"c@d.com"}, "password": {"p"}, "role": {"ROOT"}}
	c := e.NewContext(formRequest(http.MethodPost, "/profile/users", form), rec)
	middleware.SetSessionID(c, "sid1")

	if err := h.CreateUser(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
