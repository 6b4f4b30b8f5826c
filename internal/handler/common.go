package handler // handler defines http handlers

import (
	"context"  // request scoped deadlines for storage calls
	"strconv"  // strconv converts path parameters to numeric IDs
	"time"

	"github.com/labstack/echo/v4" // echo defines request context types

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/middleware"
	"github.com/iliyamo/rolegate/internal/role"
)

// storeTimeout bounds every storage round trip made on behalf of a request.
const storeTimeout = 5 * time.Second

// reqCtx derives the storage context of a request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), storeTimeout)
}

// principal returns the authenticated caller stored by JWTAuth.
func principal(c echo.Context) (role.Principal, error) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return role.Principal{}, apperr.ErrTokenInvalid
	}
	return p, nil
}

// pathID parses the :id style parameter name.  A malformed ID can never
// address a row, so it is reported as not found.
func pathID(c echo.Context, name, what string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.NotFound(what)
	}
	return id, nil
}

// bind decodes the JSON body into v.
func bind(c echo.Context, v any) error {
	if err := c.Bind(v); err != nil {
		return apperr.Validation(map[string]string{"body": "invalid JSON body"})
	}
	return nil
}

// CachePurger drops cached public responses after a write.
type CachePurger interface {
	Purge(ctx context.Context)
}
