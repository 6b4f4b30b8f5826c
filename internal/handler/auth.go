package handler

import (
	"net/http" // HTTP status codes and primitives
	"strings"  // string manipulation utilities
	"time"

	"github.com/labstack/echo/v4" // Echo framework for HTTP routing

	"github.com/iliyamo/rolegate/internal/metrics"
	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/service"
)

// AuthHandler bundles dependencies for the credential endpoints.
type AuthHandler struct {
	Accounts *service.AccountService
	Tokens   *service.TokenService
	Metrics  *metrics.Metrics
}

func NewAuthHandler(a *service.AccountService, t *service.TokenService, m *metrics.Metrics) *AuthHandler {
	return &AuthHandler{Accounts: a, Tokens: t, Metrics: m}
}

// ----- DTOs -----

type registerReq struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Role            string `json:"role"`
	FullName        string `json:"full_name"`
	Phone           string `json:"phone"`
	Bio             string `json:"bio"`
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type userPart struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}
type authResp struct {
	User    userPart  `json:"user"`
	Access  tokenPart `json:"access"`
	Refresh tokenPart `json:"refresh"`
}

func newAuthResp(a model.Account, p service.TokenPair) authResp {
	return authResp{
		User:    userPart{ID: a.ID, Email: a.Email, Role: string(a.Role)},
		Access:  tokenPart{Token: p.AccessToken, Expires: p.AccessExp},
		Refresh: tokenPart{Token: p.RefreshToken, Expires: p.RefreshExp}, // raw back to client
	}
}

// Register: create account and profile, return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) (err error) {
	defer func() { h.Metrics.AuthEvent("register", err) }()
	var req registerReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acct, _, err := h.Accounts.Register(ctx, service.RegisterInput{
		Email:           req.Email,
		Password:        req.Password,
		PasswordConfirm: req.PasswordConfirm,
		Role:            req.Role,
		FullName:        req.FullName,
		Phone:           req.Phone,
		Bio:             req.Bio,
	})
	if err != nil {
		return err
	}
	pair, err := h.Tokens.Issue(ctx, acct)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newAuthResp(acct, pair))
}

// Login: verify credentials and return a new pair.
func (h *AuthHandler) Login(c echo.Context) (err error) {
	defer func() { h.Metrics.AuthEvent("login", err) }()
	var req loginReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	acct, err := h.Accounts.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	pair, err := h.Tokens.Issue(ctx, acct)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newAuthResp(acct, pair))
}

// Refresh: exchange a refresh token for a new access token.  The refresh
// token is not rotated.
func (h *AuthHandler) Refresh(c echo.Context) (err error) {
	defer func() { h.Metrics.AuthEvent("refresh", err) }()
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	at, err := h.Tokens.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"access": tokenPart{Token: at.Token, Expires: at.Exp}})
}

// LogoutAll revokes every refresh token of the authenticated caller.
func (h *AuthHandler) LogoutAll(c echo.Context) (err error) {
	defer func() { h.Metrics.AuthEvent("logout_all", err) }()
	p, err := principal(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.RevokeAll(ctx, p.AccountID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Logout revokes the given refresh token.  It does not need an access
// token; the access token simply expires.
func (h *AuthHandler) Logout(c echo.Context) (err error) {
	defer func() { h.Metrics.AuthEvent("logout", err) }()
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Tokens.Revoke(ctx, strings.TrimSpace(req.RefreshToken)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
