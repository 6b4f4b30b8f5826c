package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/service"
)

// RideHandler serves vehicles, rides and ride requests.
type RideHandler struct {
	Rides *service.RideService
}

func NewRideHandler(s *service.RideService) *RideHandler {
	return &RideHandler{Rides: s}
}

type vehicleReq struct {
	Make  string `json:"make"`
	Model string `json:"model"`
	Color string `json:"color"`
	Plate string `json:"plate"`
	Seats int    `json:"seats"`
}

func (r vehicleReq) input() service.VehicleInput {
	return service.VehicleInput{Make: r.Make, Model: r.Model, Color: r.Color, Plate: r.Plate, Seats: r.Seats}
}

type rideReq struct {
	VehicleID      uint64    `json:"vehicle_id"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartsAt      time.Time `json:"departs_at"`
	SeatsAvailable int       `json:"seats_available"`
	PriceCents     int64     `json:"price_cents"`
	Notes          string    `json:"notes"`
	Status         string    `json:"status"`
}

func (r rideReq) input() service.RideInput {
	return service.RideInput{
		VehicleID:      r.VehicleID,
		Origin:         r.Origin,
		Destination:    r.Destination,
		DepartsAt:      r.DepartsAt,
		SeatsAvailable: r.SeatsAvailable,
		PriceCents:     r.PriceCents,
		Notes:          r.Notes,
		Status:         r.Status,
	}
}

type seatReq struct {
	Seats int `json:"seats"`
}

// ---- Vehicles ----

func (h *RideHandler) ListVehicles(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.ListVehicles(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RideHandler) CreateVehicle(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req vehicleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.CreateVehicle(ctx, p, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *RideHandler) UpdateVehicle(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "vehicle")
	if err != nil {
		return err
	}
	var req vehicleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.UpdateVehicle(ctx, p, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RideHandler) DeleteVehicle(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "vehicle")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rides.DeleteVehicle(ctx, p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Rides ----

func (h *RideHandler) ListRides(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.ListRides(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RideHandler) ListAvailable(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.ListAvailable(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RideHandler) GetRide(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.GetRide(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RideHandler) CreateRide(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req rideReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.CreateRide(ctx, p, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *RideHandler) UpdateRide(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride")
	if err != nil {
		return err
	}
	var req rideReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.UpdateRide(ctx, p, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RideHandler) DeleteRide(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rides.DeleteRide(ctx, p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Requests ----

func (h *RideHandler) RequestSeats(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride")
	if err != nil {
		return err
	}
	req := seatReq{Seats: 1}
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.RequestSeats(ctx, p, id, req.Seats)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *RideHandler) ListRideRequests(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.ListRideRequests(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RideHandler) ListMyRequests(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.ListMyRequests(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RideHandler) GetRequest(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride request")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.GetRequest(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *RideHandler) CancelRequest(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride request")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Rides.CancelRequest(ctx, p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *RideHandler) Accept(c echo.Context) error { return h.decide(c, true) }
func (h *RideHandler) Reject(c echo.Context) error { return h.decide(c, false) }

func (h *RideHandler) decide(c echo.Context, accept bool) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride request")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.Decide(ctx, p, id, accept)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

// ---- Ratings ----

type ratingReq struct {
	RatedID uint64 `json:"rated_id"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

func (h *RideHandler) Rate(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride")
	if err != nil {
		return err
	}
	var req ratingReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.Rate(ctx, p, id, service.RatingInput{RatedID: req.RatedID, Score: req.Score, Comment: req.Comment})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *RideHandler) ListRatings(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "ride")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Rides.ListRatings(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
