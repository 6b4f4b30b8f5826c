package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/queue"
	"github.com/iliyamo/rolegate/internal/repository"
	"github.com/iliyamo/rolegate/internal/role"
)

// RideService guards vehicles, ride offers and seat requests.
type RideService struct {
	store  RideStore
	events emitter
	now    func() time.Time
}

func NewRideService(store RideStore, pub queue.Publisher, log *zap.Logger) *RideService {
	return &RideService{store: store, events: newEmitter(pub, log), now: time.Now}
}

// ---- Vehicles ----

// VehicleInput is the create/replace payload of a vehicle.
type VehicleInput struct {
	Make  string
	Model string
	Color string
	Plate string
	Seats int
}

func (in VehicleInput) validate() error {
	fe := fieldErrors{}
	if strings.TrimSpace(in.Make) == "" {
		fe.add("make", "required")
	}
	if strings.TrimSpace(in.Model) == "" {
		fe.add("model", "required")
	}
	if strings.TrimSpace(in.Plate) == "" {
		fe.add("plate", "required")
	}
	if in.Seats < 1 || in.Seats > 60 {
		fe.add("seats", "must be between 1 and 60")
	}
	return fe.err()
}

func (in VehicleInput) vehicle(id, owner uint64) model.Vehicle {
	return model.Vehicle{
		ID:      id,
		OwnerID: owner,
		Make:    strings.TrimSpace(in.Make),
		Model:   strings.TrimSpace(in.Model),
		Color:   strings.TrimSpace(in.Color),
		Plate:   strings.ToUpper(strings.TrimSpace(in.Plate)),
		Seats:   in.Seats,
	}
}

func (s *RideService) ListVehicles(ctx context.Context, p role.Principal) ([]model.Vehicle, error) {
	if err := require(p, role.CapDrive); err != nil {
		return nil, err
	}
	vs, err := s.store.ListVehiclesByOwner(ctx, p.AccountID)
	if err != nil {
		return nil, storeErr(err, "vehicle")
	}
	return vs, nil
}

func (s *RideService) CreateVehicle(ctx context.Context, p role.Principal, in VehicleInput) (model.Vehicle, error) {
	if err := require(p, role.CapDrive); err != nil {
		return model.Vehicle{}, err
	}
	if err := in.validate(); err != nil {
		return model.Vehicle{}, err
	}
	v := in.vehicle(0, p.AccountID)
	if err := s.store.CreateVehicle(ctx, &v); err != nil {
		return model.Vehicle{}, storeErr(err, "vehicle")
	}
	return v, nil
}

func (s *RideService) UpdateVehicle(ctx context.Context, p role.Principal, id uint64, in VehicleInput) (model.Vehicle, error) {
	if err := require(p, role.CapDrive); err != nil {
		return model.Vehicle{}, err
	}
	if err := in.validate(); err != nil {
		return model.Vehicle{}, err
	}
	v := in.vehicle(id, p.AccountID)
	if err := s.store.UpdateVehicle(ctx, &v, p.AccountID); err != nil {
		return model.Vehicle{}, storeErr(err, "vehicle")
	}
	return v, nil
}

func (s *RideService) DeleteVehicle(ctx context.Context, p role.Principal, id uint64) error {
	if err := require(p, role.CapDrive); err != nil {
		return err
	}
	err := s.store.DeleteVehicle(ctx, id, p.AccountID)
	if errors.Is(err, repository.ErrConflict) {
		return apperr.Conflict("vehicle is still used by rides")
	}
	return storeErr(err, "vehicle")
}

// ---- Rides ----

// RideInput is the create/replace payload of a ride.  Status is only
// honoured on update.
type RideInput struct {
	VehicleID      uint64
	Origin         string
	Destination    string
	DepartsAt      time.Time
	SeatsAvailable int
	PriceCents     int64
	Notes          string
	Status         string
}

func (in RideInput) validate(now time.Time) error {
	fe := fieldErrors{}
	if in.VehicleID == 0 {
		fe.add("vehicle_id", "required")
	}
	if strings.TrimSpace(in.Origin) == "" {
		fe.add("origin", "required")
	}
	if strings.TrimSpace(in.Destination) == "" {
		fe.add("destination", "required")
	}
	switch {
	case in.DepartsAt.IsZero():
		fe.add("departs_at", "required")
	case !in.DepartsAt.After(now):
		fe.add("departs_at", "must be in the future")
	}
	if in.SeatsAvailable < 0 {
		fe.add("seats_available", "must not be negative")
	}
	if in.PriceCents < 0 {
		fe.add("price_cents", "must not be negative")
	}
	if in.Status != "" && !model.RideStatus(in.Status).Valid() {
		fe.add("status", "must be one of available, full, finished, cancelled")
	}
	return fe.err()
}

// ownVehicle checks that the vehicle exists, belongs to the caller and has
// room for seats.
func (s *RideService) ownVehicle(ctx context.Context, p role.Principal, id uint64, seats int) error {
	v, err := s.store.GetVehicle(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.Validation(map[string]string{"vehicle_id": "vehicle does not exist"})
	}
	if err != nil {
		return apperr.Internal(err)
	}
	if v.OwnerID != p.AccountID {
		return apperr.Forbidden("you do not own this vehicle")
	}
	if seats > v.Seats {
		return apperr.Validation(map[string]string{"seats_available": "exceeds the vehicle capacity of " + strconv.Itoa(v.Seats)})
	}
	return nil
}

// ListRides returns the driver's own rides.
func (s *RideService) ListRides(ctx context.Context, p role.Principal) ([]model.Ride, error) {
	if err := require(p, role.CapDrive); err != nil {
		return nil, err
	}
	rs, err := s.store.ListRidesByDriver(ctx, p.AccountID)
	if err != nil {
		return nil, storeErr(err, "ride")
	}
	return rs, nil
}

// ListAvailable returns every bookable ride regardless of driver.
func (s *RideService) ListAvailable(ctx context.Context, p role.Principal) ([]model.Ride, error) {
	if err := require(p, role.CapRide); err != nil {
		return nil, err
	}
	rs, err := s.store.ListAvailableRides(ctx, s.now().UTC())
	if err != nil {
		return nil, storeErr(err, "ride")
	}
	return rs, nil
}

// GetRide is visible to its driver, and to passengers while it is bookable.
func (s *RideService) GetRide(ctx context.Context, p role.Principal, id uint64) (model.Ride, error) {
	r, err := s.store.GetRide(ctx, id)
	if err != nil {
		return model.Ride{}, storeErr(err, "ride")
	}
	if role.Can(p, role.CapDrive, r.DriverID) {
		return r, nil
	}
	if p.Role.Has(role.CapRide) && r.Bookable(s.now()) {
		return r, nil
	}
	return model.Ride{}, apperr.Forbidden("you do not own this ride")
}

func (s *RideService) CreateRide(ctx context.Context, p role.Principal, in RideInput) (model.Ride, error) {
	if err := require(p, role.CapDrive); err != nil {
		return model.Ride{}, err
	}
	if err := in.validate(s.now()); err != nil {
		return model.Ride{}, err
	}
	if in.SeatsAvailable < 1 {
		return model.Ride{}, apperr.Validation(map[string]string{"seats_available": "must be at least 1"})
	}
	if err := s.ownVehicle(ctx, p, in.VehicleID, in.SeatsAvailable); err != nil {
		return model.Ride{}, err
	}
	r := model.Ride{
		DriverID:       p.AccountID,
		VehicleID:      in.VehicleID,
		Origin:         strings.TrimSpace(in.Origin),
		Destination:    strings.TrimSpace(in.Destination),
		DepartsAt:      in.DepartsAt.UTC(),
		SeatsAvailable: in.SeatsAvailable,
		PriceCents:     in.PriceCents,
		Notes:          in.Notes,
		Status:         model.RideAvailable,
	}
	if err := s.store.CreateRide(ctx, &r); err != nil {
		return model.Ride{}, storeErr(err, "ride")
	}
	return r, nil
}

func (s *RideService) UpdateRide(ctx context.Context, p role.Principal, id uint64, in RideInput) (model.Ride, error) {
	if err := require(p, role.CapDrive); err != nil {
		return model.Ride{}, err
	}
	cur, err := s.store.GetRide(ctx, id)
	if err != nil {
		return model.Ride{}, storeErr(err, "ride")
	}
	if cur.DriverID != p.AccountID {
		return model.Ride{}, apperr.Forbidden("you do not own this ride")
	}
	if err := in.validate(s.now()); err != nil {
		return model.Ride{}, err
	}
	if err := s.ownVehicle(ctx, p, in.VehicleID, in.SeatsAvailable); err != nil {
		return model.Ride{}, err
	}
	status := model.RideStatus(in.Status)
	if status == "" {
		status = cur.Status
	}
	r := model.Ride{
		ID:             id,
		VehicleID:      in.VehicleID,
		Origin:         strings.TrimSpace(in.Origin),
		Destination:    strings.TrimSpace(in.Destination),
		DepartsAt:      in.DepartsAt.UTC(),
		SeatsAvailable: in.SeatsAvailable,
		PriceCents:     in.PriceCents,
		Notes:          in.Notes,
		Status:         status,
	}
	if err := s.store.UpdateRide(ctx, &r, p.AccountID); err != nil {
		return model.Ride{}, storeErr(err, "ride")
	}
	return r, nil
}

func (s *RideService) DeleteRide(ctx context.Context, p role.Principal, id uint64) error {
	if err := require(p, role.CapDrive); err != nil {
		return err
	}
	return storeErr(s.store.DeleteRide(ctx, id, p.AccountID), "ride")
}

// ---- Requests ----

// RequestSeats asks the driver of a bookable ride for seats.
func (s *RideService) RequestSeats(ctx context.Context, p role.Principal, rideID uint64, seats int) (model.RideRequest, error) {
	if err := require(p, role.CapRide); err != nil {
		return model.RideRequest{}, err
	}
	if seats < 1 {
		return model.RideRequest{}, apperr.Validation(map[string]string{"seats": "must be at least 1"})
	}
	r, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return model.RideRequest{}, storeErr(err, "ride")
	}
	if r.DriverID == p.AccountID {
		return model.RideRequest{}, apperr.Forbidden("you cannot request seats on your own ride")
	}
	if !r.Bookable(s.now()) {
		return model.RideRequest{}, apperr.Conflict("ride is not available")
	}
	if seats > r.SeatsAvailable {
		return model.RideRequest{}, apperr.Conflict("not enough seats available")
	}
	rq := model.RideRequest{RideID: rideID, PassengerID: p.AccountID, Seats: seats}
	if err := s.store.CreateRequest(ctx, &rq); err != nil {
		return model.RideRequest{}, storeErr(err, "ride")
	}
	return rq, nil
}

// GetRequest shows a request to its passenger or to the ride's driver.
func (s *RideService) GetRequest(ctx context.Context, p role.Principal, id uint64) (model.RideRequest, error) {
	rq, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return model.RideRequest{}, storeErr(err, "ride request")
	}
	if role.Can(p, role.CapRide, rq.PassengerID) {
		return rq, nil
	}
	r, err := s.store.GetRide(ctx, rq.RideID)
	if err != nil {
		return model.RideRequest{}, storeErr(err, "ride")
	}
	if !role.Can(p, role.CapDrive, r.DriverID) {
		return model.RideRequest{}, apperr.Forbidden("not your ride request")
	}
	return rq, nil
}

// ListRideRequests returns the requests on a ride to its driver.
func (s *RideService) ListRideRequests(ctx context.Context, p role.Principal, rideID uint64) ([]model.RideRequest, error) {
	r, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeErr(err, "ride")
	}
	if !role.Can(p, role.CapDrive, r.DriverID) {
		return nil, apperr.Forbidden("you do not own this ride")
	}
	rqs, err := s.store.ListRequestsByRide(ctx, rideID)
	if err != nil {
		return nil, storeErr(err, "ride request")
	}
	return rqs, nil
}

// ListMyRequests returns the caller's own seat requests.
func (s *RideService) ListMyRequests(ctx context.Context, p role.Principal) ([]model.RideRequest, error) {
	if err := require(p, role.CapRide); err != nil {
		return nil, err
	}
	rqs, err := s.store.ListRequestsByPassenger(ctx, p.AccountID)
	if err != nil {
		return nil, storeErr(err, "ride request")
	}
	return rqs, nil
}

// CancelRequest withdraws a pending request.
func (s *RideService) CancelRequest(ctx context.Context, p role.Principal, id uint64) error {
	err := s.store.DeleteRequest(ctx, id, p.AccountID)
	if errors.Is(err, repository.ErrConflict) {
		return apperr.Conflict("ride request has already been decided")
	}
	return storeErr(err, "ride request")
}

// Decide accepts or rejects a pending request.  Only the ride's driver may
// decide, and only once: a second decision is a conflict.  Accepting on a
// ride that is cancelled, finished or already departed is a conflict too.
func (s *RideService) Decide(ctx context.Context, p role.Principal, id uint64, accept bool) (model.RideRequest, error) {
	if err := require(p, role.CapDrive); err != nil {
		return model.RideRequest{}, err
	}
	status := model.RequestRejected
	if accept {
		status = model.RequestAccepted
	}
	rq, err := s.store.DecideRequest(ctx, id, p.AccountID, status, s.now())
	if errors.Is(err, repository.ErrRideClosed) {
		return model.RideRequest{}, apperr.Conflict("ride is no longer open")
	}
	if errors.Is(err, repository.ErrConflict) {
		return model.RideRequest{}, apperr.Conflict("ride request has already been decided")
	}
	if err != nil {
		return model.RideRequest{}, storeErr(err, "ride request")
	}
	s.events.emit(ctx, queue.EventRideRequestDecided, p.AccountID, rq.ID, string(rq.Status))
	return rq, nil
}

// ---- Ratings ----

// RatingInput is the payload of a rating.
type RatingInput struct {
	RatedID uint64
	Score   int
	Comment string
}

// participants returns the driver and the passengers whose requests were
// accepted.
func (s *RideService) participants(ctx context.Context, r model.Ride) (map[uint64]bool, error) {
	rqs, err := s.store.ListRequestsByRide(ctx, r.ID)
	if err != nil {
		return nil, storeErr(err, "ride request")
	}
	out := map[uint64]bool{r.DriverID: true}
	for _, rq := range rqs {
		if rq.Status == model.RequestAccepted {
			out[rq.PassengerID] = true
		}
	}
	return out, nil
}

// Rate records a score from one ride participant about another once the
// ride has departed.  The driver rates accepted passengers; a passenger
// rates the driver.  Each pair rates once per ride.
func (s *RideService) Rate(ctx context.Context, p role.Principal, rideID uint64, in RatingInput) (model.Rating, error) {
	if !p.Role.Has(role.CapDrive) && !p.Role.Has(role.CapRide) {
		return model.Rating{}, apperr.Forbidden("role " + string(p.Role) + " cannot rate rides")
	}
	fe := fieldErrors{}
	if in.RatedID == 0 {
		fe.add("rated_id", "required")
	}
	if in.Score < 1 || in.Score > 5 {
		fe.add("score", "must be between 1 and 5")
	}
	if err := fe.err(); err != nil {
		return model.Rating{}, err
	}
	r, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return model.Rating{}, storeErr(err, "ride")
	}
	who, err := s.participants(ctx, r)
	if err != nil {
		return model.Rating{}, err
	}
	if !who[p.AccountID] {
		return model.Rating{}, apperr.Forbidden("you did not take part in this ride")
	}
	switch {
	case in.RatedID == p.AccountID:
		return model.Rating{}, apperr.Validation(map[string]string{"rated_id": "you cannot rate yourself"})
	case !who[in.RatedID]:
		return model.Rating{}, apperr.Validation(map[string]string{"rated_id": "not a participant of this ride"})
	case p.AccountID != r.DriverID && in.RatedID != r.DriverID:
		return model.Rating{}, apperr.Validation(map[string]string{"rated_id": "passengers rate the driver"})
	}
	if r.Status == model.RideCancelled {
		return model.Rating{}, apperr.Conflict("ride was cancelled")
	}
	if r.Status != model.RideFinished && r.DepartsAt.After(s.now()) {
		return model.Rating{}, apperr.Conflict("ride has not departed yet")
	}
	rt := model.Rating{RideID: r.ID, RaterID: p.AccountID, RatedID: in.RatedID, Score: in.Score, Comment: strings.TrimSpace(in.Comment)}
	if err := s.store.CreateRating(ctx, &rt); err != nil {
		return model.Rating{}, storeErr(err, "rating")
	}
	s.events.emit(ctx, queue.EventRideRated, p.AccountID, rt.ID, "rated="+strconv.FormatUint(rt.RatedID, 10))
	return rt, nil
}

// ListRatings returns a ride's ratings to its participants.
func (s *RideService) ListRatings(ctx context.Context, p role.Principal, rideID uint64) ([]model.Rating, error) {
	r, err := s.store.GetRide(ctx, rideID)
	if err != nil {
		return nil, storeErr(err, "ride")
	}
	who, err := s.participants(ctx, r)
	if err != nil {
		return nil, err
	}
	if !who[p.AccountID] {
		return nil, apperr.Forbidden("you did not take part in this ride")
	}
	rts, err := s.store.ListRatingsByRide(ctx, rideID)
	if err != nil {
		return nil, storeErr(err, "rating")
	}
	return rts, nil
}
