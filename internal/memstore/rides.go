package memstore

import (
	"cmp"
	"context"
	"math"
	"time"

	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/repository"
)

// ---- Vehicles ----

func (s *Store) plateTaken(plate string, except uint64) bool {
	for id, v := range s.vehicles {
		if id != except && v.Plate == plate {
			return true
		}
	}
	return false
}

func (s *Store) CreateVehicle(_ context.Context, v *model.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.plateTaken(v.Plate, 0) {
		return dup("plate")
	}
	v.ID, v.CreatedAt = s.nextID(), s.now()
	s.vehicles[v.ID] = *v
	return nil
}

func (s *Store) GetVehicle(_ context.Context, id uint64) (model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.vehicles[id]
	if !ok {
		return model.Vehicle{}, repository.ErrNotFound
	}
	return v, nil
}

func (s *Store) ListVehiclesByOwner(_ context.Context, ownerID uint64) ([]model.Vehicle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.vehicles, func(v model.Vehicle) bool { return v.OwnerID == ownerID },
		func(a, b model.Vehicle) int { return cmp.Compare(a.ID, b.ID) }), nil
}

func (s *Store) vehicleOwnerLocked(id, ownerID uint64) error {
	v, ok := s.vehicles[id]
	if !ok {
		return repository.ErrNotFound
	}
	if v.OwnerID != ownerID {
		return repository.ErrForbidden
	}
	return nil
}

func (s *Store) UpdateVehicle(_ context.Context, v *model.Vehicle, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.vehicleOwnerLocked(v.ID, ownerID); err != nil {
		return err
	}
	if s.plateTaken(v.Plate, v.ID) {
		return dup("plate")
	}
	cur := s.vehicles[v.ID]
	cur.Make, cur.Model, cur.Color, cur.Plate, cur.Seats = v.Make, v.Model, v.Color, v.Plate, v.Seats
	s.vehicles[v.ID] = cur
	*v = cur
	return nil
}

// DeleteVehicle refuses while a ride still references the vehicle.
func (s *Store) DeleteVehicle(_ context.Context, id, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.vehicleOwnerLocked(id, ownerID); err != nil {
		return err
	}
	for _, r := range s.rides {
		if r.VehicleID == id {
			return repository.ErrConflict
		}
	}
	delete(s.vehicles, id)
	return nil
}

// ---- Rides ----

func rideByDeparture(a, b model.Ride) int {
	if c := a.DepartsAt.Compare(b.DepartsAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

func (s *Store) CreateRide(_ context.Context, r *model.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.vehicles[r.VehicleID]; !ok {
		return repository.ErrNotFound
	}
	if r.Status == "" {
		r.Status = model.RideAvailable
	}
	now := s.now()
	r.ID, r.CreatedAt, r.UpdatedAt = s.nextID(), now, now
	r.DepartsAt = r.DepartsAt.UTC()
	s.rides[r.ID] = *r
	return nil
}

func (s *Store) GetRide(_ context.Context, id uint64) (model.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rides[id]
	if !ok {
		return model.Ride{}, repository.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListRidesByDriver(_ context.Context, driverID uint64) ([]model.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.rides, func(r model.Ride) bool { return r.DriverID == driverID }, rideByDeparture), nil
}

func (s *Store) ListAvailableRides(_ context.Context, after time.Time) ([]model.Ride, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.rides, func(r model.Ride) bool { return r.Bookable(after) }, rideByDeparture), nil
}

func (s *Store) rideOwnerLocked(id, ownerID uint64) error {
	r, ok := s.rides[id]
	if !ok {
		return repository.ErrNotFound
	}
	if r.DriverID != ownerID {
		return repository.ErrForbidden
	}
	return nil
}

func (s *Store) UpdateRide(_ context.Context, r *model.Ride, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rideOwnerLocked(r.ID, ownerID); err != nil {
		return err
	}
	if _, ok := s.vehicles[r.VehicleID]; !ok {
		return repository.ErrNotFound
	}
	cur := s.rides[r.ID]
	cur.VehicleID, cur.Origin, cur.Destination = r.VehicleID, r.Origin, r.Destination
	cur.DepartsAt, cur.SeatsAvailable, cur.PriceCents = r.DepartsAt.UTC(), r.SeatsAvailable, r.PriceCents
	cur.Notes, cur.Status, cur.UpdatedAt = r.Notes, r.Status, s.now()
	s.rides[r.ID] = cur
	*r = cur
	return nil
}

// DeleteRide cascades to the ride's requests and ratings.
func (s *Store) DeleteRide(_ context.Context, id, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.rideOwnerLocked(id, ownerID); err != nil {
		return err
	}
	for rid, rq := range s.requests {
		if rq.RideID == id {
			delete(s.requests, rid)
		}
	}
	for rid, rt := range s.ratings {
		if rt.RideID == id {
			delete(s.ratings, rid)
		}
	}
	delete(s.rides, id)
	return nil
}

// ---- Requests ----

func requestID(a, b model.RideRequest) int { return cmp.Compare(a.ID, b.ID) }

func (s *Store) CreateRequest(_ context.Context, rq *model.RideRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rides[rq.RideID]; !ok {
		return repository.ErrNotFound
	}
	for _, cur := range s.requests {
		if cur.RideID == rq.RideID && cur.PassengerID == rq.PassengerID {
			return dup("ride_id")
		}
	}
	rq.ID, rq.CreatedAt, rq.Status, rq.DecidedAt = s.nextID(), s.now(), model.RequestPending, nil
	s.requests[rq.ID] = *rq
	return nil
}

func (s *Store) GetRequest(_ context.Context, id uint64) (model.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rq, ok := s.requests[id]
	if !ok {
		return model.RideRequest{}, repository.ErrNotFound
	}
	return rq, nil
}

func (s *Store) ListRequestsByRide(_ context.Context, rideID uint64) ([]model.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.requests, func(rq model.RideRequest) bool { return rq.RideID == rideID }, requestID), nil
}

func (s *Store) ListRequestsByPassenger(_ context.Context, passengerID uint64) ([]model.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.requests, func(rq model.RideRequest) bool { return rq.PassengerID == passengerID }, requestID), nil
}

func (s *Store) DeleteRequest(_ context.Context, id, passengerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rq, ok := s.requests[id]
	if !ok {
		return repository.ErrNotFound
	}
	if rq.PassengerID != passengerID {
		return repository.ErrForbidden
	}
	if rq.Status != model.RequestPending {
		return repository.ErrConflict
	}
	delete(s.requests, id)
	return nil
}

func (s *Store) DecideRequest(_ context.Context, id, driverID uint64, status model.RequestStatus, at time.Time) (model.RideRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rq, ok := s.requests[id]
	if !ok {
		return model.RideRequest{}, repository.ErrNotFound
	}
	ride, ok := s.rides[rq.RideID]
	if !ok {
		return model.RideRequest{}, repository.ErrNotFound
	}
	if ride.DriverID != driverID {
		return model.RideRequest{}, repository.ErrForbidden
	}
	if rq.Status != model.RequestPending {
		return model.RideRequest{}, repository.ErrConflict
	}
	if status == model.RequestAccepted {
		if !ride.Accepting(at) {
			return model.RideRequest{}, repository.ErrRideClosed
		}
		if ride.SeatsAvailable < rq.Seats {
			return model.RideRequest{}, repository.ErrInsufficientSeats
		}
		ride.SeatsAvailable -= rq.Seats
		if ride.SeatsAvailable == 0 {
			ride.Status = model.RideFull
		}
		ride.UpdatedAt = s.now()
		s.rides[ride.ID] = ride
	}
	ts := at.UTC()
	rq.Status, rq.DecidedAt = status, &ts
	s.requests[id] = rq
	return rq, nil
}

// ---- Ratings ----

// CreateRating stores rt and recomputes the rated account's average.
func (s *Store) CreateRating(_ context.Context, rt *model.Rating) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rides[rt.RideID]; !ok {
		return repository.ErrNotFound
	}
	prof, ok := s.profiles[rt.RatedID]
	if !ok {
		return repository.ErrNotFound
	}
	sum, n := rt.Score, 1
	for _, cur := range s.ratings {
		if cur.RideID == rt.RideID && cur.RaterID == rt.RaterID && cur.RatedID == rt.RatedID {
			return dup("rated_id")
		}
		if cur.RatedID == rt.RatedID {
			sum += cur.Score
			n++
		}
	}
	rt.ID, rt.CreatedAt = s.nextID(), s.now()
	s.ratings[rt.ID] = *rt
	// profiles.rating is DECIMAL(3,2)
	prof.Rating = math.Round(float64(sum)/float64(n)*100) / 100
	s.profiles[rt.RatedID] = prof
	return nil
}

func (s *Store) ListRatingsByRide(_ context.Context, rideID uint64) ([]model.Rating, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.ratings, func(rt model.Rating) bool { return rt.RideID == rideID },
		func(a, b model.Rating) int { return cmp.Compare(a.ID, b.ID) }), nil
}
