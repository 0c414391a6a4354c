package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return New(server.URL, zerolog.Nop())
}

func TestLogin_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Errorf("login must not carry a bearer token")
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("invalid body: %v", err)
		}
		if body["email"] != "a@b.com" || body["password"] != "x" {
			t.Errorf("unexpected credentials: %+v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"accessToken":"tok1","user":{"id":"u1","email":"a@b.com","role":"ADMIN","createdAt":"2025-01-02T03:04:05Z"}}`))
	})

	session, err := c.Login(context.Background(), "a@b.com", "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.AccessToken != "tok1" {
		t.Errorf("expected token tok1, got %s", session.AccessToken)
	}
	if session.User.ID != "u1" || session.User.Email != "a@b.com" || session.User.Role != domain.RoleAdmin {
		t.Errorf("unexpected user: %+v", session.User)
	}
	if session.User.CreatedAt.IsZero() {
		t.Errorf("expected createdAt to be parsed")
	}
	if session.User.UpdatedAt != nil {
		t.Errorf("expected nil updatedAt, got %v", session.User.UpdatedAt)
	}
}

func TestLogin_Unauthorized(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Unauthorized"}`))
	})

	_, err := c.Login(context.Background(), "a@b.com901", "x")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	var re *RemoteError
	if !errors.As(err, &re) || re.Status != http.StatusUnauthorized {
		t.Fatalf("expected RemoteError with status 401, got %v", err)
	}
}

func TestLogin_MalformedResponse(t *testing.T) {
	cases := map[string]string{
		"missing token": `{"user":{"id":"u1"}}`,
		"missing user":  `{"accessToken":"tok1"}`,
		"missing id":    `{"accessToken":"tok1","user":{"email":"a@b.com"}}`,
		"unknown role":  `{"accessToken":"tok1","user":{"id":"u1","role":"ROOT"}}`,
		"not json":      `<html>`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})
			if _, err := c.Login(context.Background(), "a@b.com", "x"); !errors.Is(err, domain.ErrInvalidCredentials) {
				t.Fatalf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestLogin_ConnectionError(t *testing.T) {
	c := New("http://localhost:99999", zerolog.Nop())
	if _, err := c.Login(context.Background(), "a@b.com", "x"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestFetchProfile_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/users" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.URL.Query().Get("id") != "u1" {
			t.Errorf("expected id=u1, got %s", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok1" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(`{"user":{"props":{"email":"a@b.com","password":"x","role":"VIEWER","createdAt":"2025-01-02T03:04:05.000Z","updatedAt":null},"_id":{"value":"u1"}}}`))
	})

	profile, err := c.FetchProfile(context.Background(), "tok1", "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ID != "u1" || profile.Email != "a@b.com" || profile.Password != "x" || profile.Role != domain.RoleViewer {
		t.Errorf("unexpected profile: %+v", profile)
	}
	if profile.CreatedAt.IsZero() {
		t.Errorf("expected createdAt to be parsed")
	}
	if profile.UpdatedAt != nil {
		t.Errorf("expected nil updatedAt")
	}
}

func TestFetchProfile_NonOKStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := c.FetchProfile(context.Background(), "tok1", "u1"); !errors.Is(err, domain.ErrFetchProfile) {
		t.Fatalf("expected ErrFetchProfile, got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/users/u1" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer tok1" {
			t.Errorf("unexpected authorization %q", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected json content type")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "new@b.com" || body["password"] != "y" {
			t.Errorf("unexpected body: %+v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	})

	if err := c.UpdateProfile(context.Background(), "tok1", "u1", "new@b.com", "y"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUpdateProfile_Failure(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})
	if err := c.UpdateProfile(context.Background(), "tok1", "u1", "new@b.com", "y"); !errors.Is(err, domain.ErrUpdateProfile) {
		t.Fatalf("expected ErrUpdateProfile, got %v", err)
	}
}

func TestCreateUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/users" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "c@d.com" || body["password"] != "pw" || body["role"] != "BROKER" {
			t.Errorf("unexpected body: %+v", body)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"u2"}`))
	})

	err := c.CreateUser(context.Background(), "tok1", ports.NewUserInput{Email: "c@d.com", Password: "pw", Role: domain.RoleBroker})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateUser_Forbidden(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	err := c.CreateUser(context.Background(), "tok1", ports.NewUserInput{Email: "c@d.com", Password: "pw", Role: domain.RoleViewer})
	if !errors.Is(err, domain.ErrCreateUser) {
		t.Fatalf("expected ErrCreateUser, got %v", err)
	}
}

func TestContextCancellation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := c.UpdateProfile(ctx, "tok1", "u1", "a@b.com", "x"); err == nil {
		t.Fatalf("expected error for canceled context")
	}
}
