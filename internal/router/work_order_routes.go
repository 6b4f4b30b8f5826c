package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/handler"
	"github.com/iliyamo/rolegate/internal/middleware"
	"github.com/iliyamo/rolegate/internal/role"
)

// RegisterWorkOrders registers the workshop endpoints.  Managers own
// orders, mechanics act on the orders assigned to them and clients read
// the orders placed for them.
func RegisterWorkOrders(g *echo.Group, h *handler.WorkOrderHandler) {
	manage := middleware.RequireCapability(role.CapManageOrders)
	party := middleware.RequireCapability(role.CapManageOrders, role.CapServiceOrders, role.CapRequestService)
	staff := middleware.RequireCapability(role.CapManageOrders, role.CapServiceOrders)

	g.GET("/work-orders", h.List, party)
	g.POST("/work-orders", h.Create, manage)
	g.GET("/work-orders/:id", h.Get, party)
	g.PUT("/work-orders/:id", h.Update, staff)
	g.DELETE("/work-orders/:id", h.Delete, manage)
}
