package middleware

// identity.go holds the accessors for the identity JWTAuth stores in the
// Echo context.

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/role"
)

// PrincipalFrom returns the authenticated principal of the request.
func PrincipalFrom(c echo.Context) (role.Principal, bool) {
	p, ok := c.Get(ctxPrincipal).(role.Principal)
	return p, ok && p.AccountID != 0
}

// currentUserID returns the caller's account ID as a string, or "anon"
// for unauthenticated requests.
func currentUserID(c echo.Context) string {
	if s, ok := c.Get(ctxUserID).(string); ok && s != "" {
		return s
	}
	return "anon"
}
