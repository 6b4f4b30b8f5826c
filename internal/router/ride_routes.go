package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/handler"
	"github.com/iliyamo/rolegate/internal/middleware"
	"github.com/iliyamo/rolegate/internal/role"
)

// RegisterRides registers vehicles, rides and ride requests.  An "ambos"
// account passes both the drive and the ride checks.
func RegisterRides(g *echo.Group, h *handler.RideHandler) {
	drive := middleware.RequireCapability(role.CapDrive)
	ride := middleware.RequireCapability(role.CapRide)
	either := middleware.RequireCapability(role.CapDrive, role.CapRide)

	// ---- Vehicles ----
	g.GET("/vehicles", h.ListVehicles, drive)
	g.POST("/vehicles", h.CreateVehicle, drive)
	g.PUT("/vehicles/:id", h.UpdateVehicle, drive)
	g.DELETE("/vehicles/:id", h.DeleteVehicle, drive)

	// ---- Rides ----
	// The static segment wins over :id in Echo's router.
	g.GET("/rides/available", h.ListAvailable, ride)
	g.GET("/rides", h.ListRides, drive)
	g.POST("/rides", h.CreateRide, drive)
	g.GET("/rides/:id", h.GetRide, either)
	g.PUT("/rides/:id", h.UpdateRide, drive)
	g.DELETE("/rides/:id", h.DeleteRide, drive)

	// ---- Requests ----
	g.POST("/rides/:id/requests", h.RequestSeats, ride)
	g.GET("/rides/:id/requests", h.ListRideRequests, drive)
	g.GET("/ride-requests", h.ListMyRequests, ride)
	g.GET("/ride-requests/:id", h.GetRequest, either)
	g.DELETE("/ride-requests/:id", h.CancelRequest, ride)
	g.POST("/ride-requests/:id/accept", h.Accept, drive)
	g.POST("/ride-requests/:id/reject", h.Reject, drive)

	// ---- Ratings ----
	g.POST("/rides/:id/ratings", h.Rate, either)
	g.GET("/rides/:id/ratings", h.ListRatings, either)
}
