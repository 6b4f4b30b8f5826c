package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"context"
	"strconv"
	"strings" // string utilities for prefix checking and trimming

	"github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/role"
)

// Authenticator resolves a raw bearer token into the request principal.
// service.Resolver implements it.
type Authenticator interface {
	Resolve(ctx context.Context, raw string) (role.Principal, error)
}

// Context keys set by JWTAuth.
const (
	ctxPrincipal = "principal"
	ctxUserID    = "user_id"
	ctxRole      = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token,
// loads the owning account and stores the resulting principal in the
// request context.  Handlers read it back with PrincipalFrom.  Every
// failure answers 401 with a WWW-Authenticate challenge so that clients
// know to discard their cached credentials.
func JWTAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := bearer(header)
			if !ok {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="rolegate"`)
				return apperr.New(apperr.KindTokenInvalid, "missing bearer token")
			}

			p, err := auth.Resolve(c.Request().Context(), raw)
			if err != nil {
				if apperr.KindOf(err) == apperr.KindTokenInvalid {
					c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="rolegate", error="invalid_token"`)
				}
				return err
			}

			// The principal is the authoritative identity; user_id and role
			// are kept as plain strings for the rate limiter and the
			// request log.
			c.Set(ctxPrincipal, p)
			c.Set(ctxUserID, strconv.FormatUint(p.AccountID, 10))
			c.Set(ctxRole, string(p.Role))
			return next(c)
		}
	}
}

// bearer extracts the token from an Authorization header.  The scheme is
// matched case-insensitively.
func bearer(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(header[len(prefix):])
	return raw, raw != ""
}
