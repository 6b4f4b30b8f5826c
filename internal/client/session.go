// Package client is a small HTTP client for the gateway API.  A Session
// holds the server address and the persisted token pair; every protected
// call attaches the stored access token.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const userAgent = "rolegate-cli/1.0"

// Session talks to one server on behalf of one stored login.
type Session struct {
	BaseURL string
	HTTP    *http.Client
	Store   TokenStore
}

func NewSession(baseURL string, store TokenStore) *Session {
	return &Session{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Second},
		Store:   store,
	}
}

// RegisterRequest is the body of POST /v1/auth/register.
type RegisterRequest struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Role            string `json:"role"`
	FullName        string `json:"full_name,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Bio             string `json:"bio,omitempty"`
}

// User is the account summary returned with a fresh token pair.
type User struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type token struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResponse struct {
	User    User  `json:"user"`
	Access  token `json:"access"`
	Refresh token `json:"refresh"`
}

func (r authResponse) tokens() *Tokens {
	return &Tokens{
		AccessToken:      r.Access.Token,
		AccessExpiresAt:  r.Access.Expires,
		RefreshToken:     r.Refresh.Token,
		RefreshExpiresAt: r.Refresh.Expires,
		Email:            r.User.Email,
		Role:             r.User.Role,
	}
}

// Register creates an account and stores the returned tokens.
func (s *Session) Register(ctx context.Context, req RegisterRequest) (User, error) {
	var resp authResponse
	if err := s.do(ctx, http.MethodPost, "/v1/auth/register", "", req, &resp); err != nil {
		return User{}, err
	}
	return resp.User, s.Store.Save(resp.tokens())
}

// Login authenticates and stores the returned tokens.
func (s *Session) Login(ctx context.Context, email, password string) (User, error) {
	body := map[string]string{"email": email, "password": password}
	var resp authResponse
	if err := s.do(ctx, http.MethodPost, "/v1/auth/login", "", body, &resp); err != nil {
		return User{}, err
	}
	return resp.User, s.Store.Save(resp.tokens())
}

// Logout revokes the stored refresh token and clears the store.  The local
// token is removed even when the server refuses the revocation.
func (s *Session) Logout(ctx context.Context) error {
	t, err := s.Store.Load()
	if err != nil {
		return err
	}
	err = s.do(ctx, http.MethodPost, "/v1/auth/logout", "", map[string]string{"refresh_token": t.RefreshToken}, nil)
	if cerr := s.Store.Clear(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// Refresh exchanges the stored refresh token for a new access token.
func (s *Session) Refresh(ctx context.Context) (time.Time, error) {
	t, err := s.Store.Load()
	if err != nil {
		return time.Time{}, err
	}
	var resp struct {
		Access token `json:"access"`
	}
	if err := s.do(ctx, http.MethodPost, "/v1/auth/refresh", "", map[string]string{"refresh_token": t.RefreshToken}, &resp); err != nil {
		if errors.Is(err, ErrUnauthorized) {
			_ = s.Store.Clear()
		}
		return time.Time{}, err
	}
	t.AccessToken, t.AccessExpiresAt = resp.Access.Token, resp.Access.Expires
	return t.AccessExpiresAt, s.Store.Save(t)
}

// Me returns the caller's account, profile and capabilities.
func (s *Session) Me(ctx context.Context) (json.RawMessage, error) {
	return s.Call(ctx, http.MethodGet, "/v1/me", nil)
}

// Courses lists the courses visible to the caller's role.
func (s *Session) Courses(ctx context.Context) (json.RawMessage, error) {
	return s.Call(ctx, http.MethodGet, "/v1/courses", nil)
}

// Rides lists the caller's own rides, or the bookable rides when
// available is set.
func (s *Session) Rides(ctx context.Context, available bool) (json.RawMessage, error) {
	path := "/v1/rides"
	if available {
		path += "/available"
	}
	return s.Call(ctx, http.MethodGet, path, nil)
}

// Requests lists the caller's ride requests as a passenger.
func (s *Session) Requests(ctx context.Context) (json.RawMessage, error) {
	return s.Call(ctx, http.MethodGet, "/v1/ride-requests", nil)
}

// Projects lists the caller's projects.
func (s *Session) Projects(ctx context.Context) (json.RawMessage, error) {
	return s.Call(ctx, http.MethodGet, "/v1/projects", nil)
}

// Call sends an authenticated request and returns the raw response body.
// body may be nil, a json.RawMessage or any value encodable as JSON.
func (s *Session) Call(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	t, err := s.Store.Load()
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	var out json.RawMessage
	err = s.do(ctx, strings.ToUpper(method), path, t.AccessToken, body, &out)
	if errors.Is(err, ErrUnauthorized) {
		_ = s.Store.Clear()
	}
	return out, err
}

func (s *Session) do(ctx context.Context, method, path, access string, in, out any) error {
	var rdr io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.BaseURL+path, rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if rdr != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	}

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], data...)
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var body struct {
		Error  string            `json:"error"`
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Error == "" {
		body.Error = http.StatusText(status)
	}
	return &APIError{Status: status, Code: body.Code, Message: body.Error, Fields: body.Fields}
}
