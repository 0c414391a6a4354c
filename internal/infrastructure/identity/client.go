package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/quarkfin/qwallet-web/internal/api/metrics"
	"github.com/quarkfin/qwallet-web/internal/core/domain"
	"github.com/quarkfin/qwallet-web/internal/core/ports"
)

// DefaultBaseURL is where the identity service listens in local development.
const DefaultBaseURL = "http://localhost:8080"

// Client is the HTTP client for the remote identity service.
//
// There is no client timeout and no retry: each call is one attempt that
// either succeeds or fails with the operation's sentinel error.
type Client struct {
	baseURL    string
	httpClient *http.Client
	validate   *validator.Validate
	log        zerolog.Logger
}

var _ ports.IdentityClient = (*Client)(nil)

// New creates a client for the identity service at baseURL.
func New(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		validate:   validator.New(),
		log:        log.With().Str("component", "identity").Logger(),
	}
}

// RemoteError describes a failed identity call. It unwraps to the domain
// sentinel of the operation so callers only ever branch on that.
type RemoteError struct {
	Op     domain.Operation
	Status int
	Err    error
	Cause  error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Cause != nil && e.Status != 0:
		return fmt.Sprintf("identity %s: status %d: %v", e.Op, e.Status, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("identity %s: %v", e.Op, e.Cause)
	default:
		return fmt.Sprintf("identity %s: status %d", e.Op, e.Status)
	}
}

func (e *RemoteError) Unwrap() error { return e.Err }

// --- wire shapes ---

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID        string  `json:"id" validate:"required"`
	Email     string  `json:"email"`
	Role      string  `json:"role" validate:"omitempty,oneof=VIEWER ADMIN ADVISOR BROKER"`
	CreatedAt string  `json:"createdAt"`
	UpdatedAt *string `json:"updatedAt"`
}

type loginResponse struct {
	AccessToken string       `json:"accessToken" validate:"required"`
	User        *userPayload `json:"user" validate:"required"`
}

// profileEnvelope mirrors the identity service's serialized entity, which
// nests the fields under props and the id under _id.value.
type profileEnvelope struct {
	User struct {
		Props struct {
			Email     string  `json:"email" validate:"required"`
			Password  string  `json:"password"`
			Role      string  `json:"role" validate:"omitempty,oneof=VIEWER ADMIN ADVISOR BROKER"`
			CreatedAt string  `json:"createdAt"`
			UpdatedAt *string `json:"updatedAt"`
		} `json:"props"`
		ID struct {
			Value string `json:"value"`
		} `json:"_id"`
	} `json:"user"`
}

type updateProfileRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Login exchanges credentials for an access token and the user record.
func (c *Client) Login(ctx context.Context, email, password string) (*domain.Session, error) {
	var resp loginResponse
	err := c.do(ctx, domain.OpLogin, http.MethodPost, "/auth/login", "", loginRequest{Email: email, Password: password}, &resp)
	if err != nil {
		return nil, err
	}
	if err := c.validate.Struct(resp); err != nil {
		return nil, c.fail(domain.OpLogin, http.StatusOK, fmt.Errorf("invalid login response: %w", err))
	}

	return &domain.Session{
		AccessToken: resp.AccessToken,
		User: domain.User{
			ID:        resp.User.ID,
			Email:     resp.User.Email,
			Role:      domain.Role(resp.User.Role),
			CreatedAt: parseTime(resp.User.CreatedAt),
			UpdatedAt: parseOptionalTime(resp.User.UpdatedAt),
		},
	}, nil
}

// FetchProfile loads the full user record for userID.
func (c *Client) FetchProfile(ctx context.Context, token, userID string) (*domain.Profile, error) {
	var env profileEnvelope
	path := "/users?id=" + url.QueryEscape(userID)
	if err := c.do(ctx, domain.OpFetchProfile, http.MethodGet, path, token, nil, &env); err != nil {
		return nil, err
	}
	if err := c.validate.Struct(env); err != nil {
		return nil, c.fail(domain.OpFetchProfile, http.StatusOK, fmt.Errorf("invalid profile response: %w", err))
	}

	props := env.User.Props
	id := env.User.ID.Value
	if id == "" {
		id = userID
	}
	return &domain.Profile{
		ID:        id,
		Email:     props.Email,
		Password:  props.Password,
		Role:      domain.Role(props.Role),
		CreatedAt: parseTime(props.CreatedAt),
		UpdatedAt: parseOptionalTime(props.UpdatedAt),
	}, nil
}

// UpdateProfile replaces the email and password of userID.
func (c *Client) UpdateProfile(ctx context.Context, token, userID, email, password string) error {
	path := "/users/" + url.PathEscape(userID)
	return c.do(ctx, domain.OpUpdateProfile, http.MethodPut, path, token, updateProfileRequest{Email: email, Password: password}, nil)
}

// CreateUser registers a new account. The identity service decides whether
// the caller's token may do so.
func (c *Client) CreateUser(ctx context.Context, token string, in ports.NewUserInput) error {
	body := createUserRequest{Email: in.Email, Password: in.Password, Role: string(in.Role)}
	return c.do(ctx, domain.OpCreateUser, http.MethodPost, "/users", token, body, nil)
}

// do performs one request. A non-2xx status, a transport failure or an
// undecodable body all become a *RemoteError for op.
func (c *Client) do(ctx context.Context, op domain.Operation, method, path, token string, body, out any) error {
	start := time.Now()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return c.fail(op, 0, fmt.Errorf("encode request: %w", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return c.fail(op, 0, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	metrics.IdentityRequestDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	if err != nil {
		return c.fail(op, 0, fmt.Errorf("cannot reach identity service at %s: %w", c.baseURL, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return c.fail(op, resp.StatusCode, nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return c.fail(op, resp.StatusCode, fmt.Errorf("decode response: %w", err))
		}
	}

	metrics.IdentityRequestsTotal.WithLabelValues(string(op), "success").Inc()
	c.log.Debug().Str("op", string(op)).Int("status", resp.StatusCode).Msg("identity call succeeded")
	return nil
}

func (c *Client) fail(op domain.Operation, status int, cause error) error {
	metrics.IdentityRequestsTotal.WithLabelValues(string(op), "error").Inc()

	err := &RemoteError{Op: op, Status: status, Err: sentinel(op), Cause: cause}
	c.log.Warn().Str("op", string(op)).Int("status", status).AnErr("cause", cause).Msg("identity call failed")
	return err
}

func sentinel(op domain.Operation) error {
	switch op {
	case domain.OpLogin:
		return domain.ErrInvalidCredentials
	case domain.OpFetchProfile:
		return domain.ErrFetchProfile
	case domain.OpUpdateProfile:
		return domain.ErrUpdateProfile
	default:
		return domain.ErrCreateUser
	}
}

// parseTime accepts the RFC 3339 timestamps the identity service emits and
// yields the zero time for anything else.
func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseOptionalTime(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t := parseTime(*s)
	if t.IsZero() {
		return nil
	}
	return &t
}
