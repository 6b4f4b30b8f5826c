package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/service"
)

// WorkOrderHandler serves workshop orders.
type WorkOrderHandler struct {
	Orders *service.WorkOrderService
}

func NewWorkOrderHandler(s *service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{Orders: s}
}

type workOrderReq struct {
	ClientID    uint64  `json:"client_id"`
	MechanicID  *uint64 `json:"mechanic_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"`
}

func (r workOrderReq) input() service.WorkOrderInput {
	return service.WorkOrderInput{
		ClientID:    r.ClientID,
		MechanicID:  r.MechanicID,
		Title:       r.Title,
		Description: r.Description,
		Status:      r.Status,
	}
}

func (h *WorkOrderHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Orders.List(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WorkOrderHandler) Get(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "work order")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Orders.Get(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WorkOrderHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req workOrderReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Orders.Create(ctx, p, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

// Update is a full replacement for the managing owner and a status change
// for the assigned mechanic.
func (h *WorkOrderHandler) Update(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "work order")
	if err != nil {
		return err
	}
	var req workOrderReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Orders.Update(ctx, p, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *WorkOrderHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "work order")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Orders.Delete(ctx, p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
