package middleware // middleware provides shared request processing for handlers

import (
	"strings"

	"github.com/labstack/echo/v4" // echo provides middleware chaining and context

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/role"
)

// RequireCapability returns a middleware that lets the request through when
// the authenticated principal's role grants at least one of caps.  It
// assumes JWTAuth ran earlier in the chain.  A missing principal is
// treated as unauthenticated (401); a role without any of the
// capabilities gets 403.
func RequireCapability(caps ...role.Capability) echo.MiddlewareFunc {
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, c.String())
	}
	msg := "requires capability " + strings.Join(names, " or ")
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, ok := PrincipalFrom(c)
			if !ok {
				return apperr.ErrTokenInvalid
			}
			for _, cp := range caps {
				if p.Role.Has(cp) {
					return next(c)
				}
			}
			return apperr.Forbidden(msg)
		}
	}
}
