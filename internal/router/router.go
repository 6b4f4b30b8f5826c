package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/handler"    // import the handlers that implement business logic
	"github.com/iliyamo/rolegate/internal/metrics"
	"github.com/iliyamo/rolegate/internal/middleware" // import middleware for JWT authentication and capability checks
)

// Handlers groups every HTTP handler the router mounts.
type Handlers struct {
	Auth     *handler.AuthHandler
	Account  *handler.AccountHandler
	Courses  *handler.CourseHandler
	Rides    *handler.RideHandler
	Orders   *handler.WorkOrderHandler
	Projects *handler.ProjectHandler
	Health   echo.HandlerFunc
}

// Options carries the cross-cutting pieces shared by the route groups.
type Options struct {
	Log           *zap.Logger
	Metrics       *metrics.Metrics
	Authenticator middleware.Authenticator
	// RateLimit wraps the credential endpoints; nil means unlimited.
	RateLimit echo.MiddlewareFunc
	// Cache fronts the public catalog; nil means uncached.
	Cache *middleware.ResponseCache
}

// New builds the Echo instance with the global middleware chain and every
// route registered.
func New(h Handlers, o Options) *echo.Echo {
	if o.Log == nil {
		o.Log = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(o.Log)

	// "/v1/courses/1/" and "/v1/courses/1" address the same resource.
	e.Pre(echomw.RemoveTrailingSlash())
	if o.Metrics != nil {
		e.Use(o.Metrics.Middleware())
	}
	e.Use(middleware.RequestLog(o.Log))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit("1M"))

	RegisterRoutes(e, h.Health, o.Metrics)
	RegisterAuth(e, h.Auth, h.Account, o)
	RegisterPublic(e, h.Courses, o.Cache)

	protected := e.Group("/v1", middleware.JWTAuth(o.Authenticator))
	RegisterCourses(protected, h.Courses)
	RegisterRides(protected, h.Rides)
	RegisterWorkOrders(protected, h.Orders)
	RegisterProjects(protected, h.Projects)
	return e
}

// RegisterRoutes registers the operational endpoints that never require
// authentication: the health check and the Prometheus scrape target.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc, m *metrics.Metrics) {
	if health == nil {
		health = handler.Health(nil)
	}
	e.GET("/healthz", health)
	if m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}
}

// RegisterAuth registers the credential endpoints under /v1/auth and the
// caller's own account under /v1/me.  Register, login, refresh and logout
// go through the rate limiter; logout needs only the refresh token in the
// body.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, acct *handler.AccountHandler, o Options) {
	var mws []echo.MiddlewareFunc
	if o.RateLimit != nil {
		mws = append(mws, o.RateLimit)
	}
	g := e.Group("/v1/auth", mws...)
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	me := e.Group("/v1/me", middleware.JWTAuth(o.Authenticator))
	me.GET("", acct.Me)
	me.PUT("/profile", acct.UpdateProfile)
	me.DELETE("", acct.Deactivate)
	me.DELETE("/sessions", a.LogoutAll)
}

// RegisterPublic registers unauthenticated browse endpoints.  The catalog
// response is cached in Redis when a cache is configured.
func RegisterPublic(e *echo.Echo, courses *handler.CourseHandler, cache *middleware.ResponseCache) {
	e.GET("/v1/catalog/courses", courses.Catalog, cache.Middleware())
}
