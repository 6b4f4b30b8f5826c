package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/rolegate/internal/model"
)

// RideRepo persists vehicles, rides and ride requests.
type RideRepo struct{ DB *sql.DB }

func NewRideRepo(db *sql.DB) *RideRepo { return &RideRepo{DB: db} }

// ---- Vehicles ----

func (r *RideRepo) CreateVehicle(ctx context.Context, v *model.Vehicle) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO vehicles (owner_id, make, model, color, plate, seats, created_at) VALUES (?,?,?,?,?,?,?)",
		v.OwnerID, v.Make, v.Model, v.Color, v.Plate, v.Seats, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	v.ID, v.CreatedAt = uint64(id), now
	return nil
}

const vehicleColumns = "id, owner_id, make, model, color, plate, seats, created_at"

func scanVehicle(s interface{ Scan(...any) error }) (model.Vehicle, error) {
	var v model.Vehicle
	err := s.Scan(&v.ID, &v.OwnerID, &v.Make, &v.Model, &v.Color, &v.Plate, &v.Seats, &v.CreatedAt)
	return v, err
}

func (r *RideRepo) GetVehicle(ctx context.Context, id uint64) (model.Vehicle, error) {
	v, err := scanVehicle(r.DB.QueryRowContext(ctx, "SELECT "+vehicleColumns+" FROM vehicles WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vehicle{}, ErrNotFound
	}
	return v, err
}

func (r *RideRepo) ListVehiclesByOwner(ctx context.Context, ownerID uint64) ([]model.Vehicle, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+vehicleColumns+" FROM vehicles WHERE owner_id=? ORDER BY id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (r *RideRepo) UpdateVehicle(ctx context.Context, v *model.Vehicle, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, "SELECT owner_id FROM vehicles WHERE id=? FOR UPDATE", v.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE vehicles SET make=?, model=?, color=?, plate=?, seats=? WHERE id=? AND owner_id=?",
			v.Make, v.Model, v.Color, v.Plate, v.Seats, v.ID, ownerID)
		return translate(err)
	})
}

// DeleteVehicle fails with ErrConflict while rides still reference the vehicle.
func (r *RideRepo) DeleteVehicle(ctx context.Context, id, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, "SELECT owner_id FROM vehicles WHERE id=? FOR UPDATE", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM vehicles WHERE id=? AND owner_id=?", id, ownerID)
		return translate(err)
	})
}

// ---- Rides ----

func (r *RideRepo) CreateRide(ctx context.Context, ride *model.Ride) error {
	now := time.Now().UTC()
	if ride.Status == "" {
		ride.Status = model.RideAvailable
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO rides (driver_id, vehicle_id, origin, destination, departs_at, seats_available, price_cents, notes, status, created_at, updated_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		ride.DriverID, ride.VehicleID, ride.Origin, ride.Destination, ride.DepartsAt.UTC(),
		ride.SeatsAvailable, ride.PriceCents, ride.Notes, string(ride.Status), now, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	ride.ID, ride.CreatedAt, ride.UpdatedAt = uint64(id), now, now
	return nil
}

const rideColumns = "id, driver_id, vehicle_id, origin, destination, departs_at, seats_available, price_cents, notes, status, created_at, updated_at"

func scanRide(s interface{ Scan(...any) error }) (model.Ride, error) {
	var x model.Ride
	err := s.Scan(&x.ID, &x.DriverID, &x.VehicleID, &x.Origin, &x.Destination, &x.DepartsAt,
		&x.SeatsAvailable, &x.PriceCents, &x.Notes, &x.Status, &x.CreatedAt, &x.UpdatedAt)
	return x, err
}

func (r *RideRepo) GetRide(ctx context.Context, id uint64) (model.Ride, error) {
	x, err := scanRide(r.DB.QueryRowContext(ctx, "SELECT "+rideColumns+" FROM rides WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ride{}, ErrNotFound
	}
	return x, err
}

func (r *RideRepo) ListRidesByDriver(ctx context.Context, driverID uint64) ([]model.Ride, error) {
	return r.listRides(ctx, "SELECT "+rideColumns+" FROM rides WHERE driver_id=? ORDER BY departs_at", driverID)
}

// ListAvailableRides returns bookable rides departing after the given time.
func (r *RideRepo) ListAvailableRides(ctx context.Context, after time.Time) ([]model.Ride, error) {
	return r.listRides(ctx,
		"SELECT "+rideColumns+" FROM rides WHERE status=? AND seats_available > 0 AND departs_at > ? ORDER BY departs_at",
		string(model.RideAvailable), after.UTC())
}

func (r *RideRepo) listRides(ctx context.Context, q string, args ...any) ([]model.Ride, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Ride{}
	for rows.Next() {
		x, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}

func (r *RideRepo) UpdateRide(ctx context.Context, ride *model.Ride, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, "SELECT driver_id FROM rides WHERE id=? FOR UPDATE", ride.ID); err != nil {
			return err
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			`UPDATE rides SET vehicle_id=?, origin=?, destination=?, departs_at=?, seats_available=?, price_cents=?, notes=?, status=?, updated_at=?
			 WHERE id=? AND driver_id=?`,
			ride.VehicleID, ride.Origin, ride.Destination, ride.DepartsAt.UTC(), ride.SeatsAvailable,
			ride.PriceCents, ride.Notes, string(ride.Status), now, ride.ID, ownerID); err != nil {
			return translate(err)
		}
		ride.DriverID, ride.UpdatedAt = ownerID, now
		return nil
	})
}

func (r *RideRepo) DeleteRide(ctx context.Context, id, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, "SELECT driver_id FROM rides WHERE id=? FOR UPDATE", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM rides WHERE id=? AND driver_id=?", id, ownerID)
		return translate(err)
	})
}

// ---- Requests ----

func (r *RideRepo) CreateRequest(ctx context.Context, rq *model.RideRequest) error {
	now := time.Now().UTC()
	rq.Status = model.RequestPending
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO ride_requests (ride_id, passenger_id, seats, status, created_at) VALUES (?,?,?,?,?)",
		rq.RideID, rq.PassengerID, rq.Seats, string(rq.Status), now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	rq.ID, rq.CreatedAt = uint64(id), now
	return nil
}

const requestColumns = "id, ride_id, passenger_id, seats, status, created_at, decided_at"

func scanRequest(s interface{ Scan(...any) error }) (model.RideRequest, error) {
	var (
		rq      model.RideRequest
		decided sql.NullTime
	)
	err := s.Scan(&rq.ID, &rq.RideID, &rq.PassengerID, &rq.Seats, &rq.Status, &rq.CreatedAt, &decided)
	if decided.Valid {
		ts := decided.Time
		rq.DecidedAt = &ts
	}
	return rq, err
}

func (r *RideRepo) GetRequest(ctx context.Context, id uint64) (model.RideRequest, error) {
	rq, err := scanRequest(r.DB.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM ride_requests WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.RideRequest{}, ErrNotFound
	}
	return rq, err
}

func (r *RideRepo) ListRequestsByRide(ctx context.Context, rideID uint64) ([]model.RideRequest, error) {
	return r.listRequests(ctx, "SELECT "+requestColumns+" FROM ride_requests WHERE ride_id=? ORDER BY id", rideID)
}

func (r *RideRepo) ListRequestsByPassenger(ctx context.Context, passengerID uint64) ([]model.RideRequest, error) {
	return r.listRequests(ctx, "SELECT "+requestColumns+" FROM ride_requests WHERE passenger_id=? ORDER BY id", passengerID)
}

func (r *RideRepo) listRequests(ctx context.Context, q string, args ...any) ([]model.RideRequest, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.RideRequest{}
	for rows.Next() {
		rq, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rq)
	}
	return out, rows.Err()
}

// DeleteRequest withdraws a pending request made by passengerID.
func (r *RideRepo) DeleteRequest(ctx context.Context, id, passengerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		var (
			owner  uint64
			status model.RequestStatus
		)
		err := tx.QueryRowContext(ctx,
			"SELECT passenger_id, status FROM ride_requests WHERE id=? FOR UPDATE", id).Scan(&owner, &status)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if owner != passengerID {
			return ErrForbidden
		}
		if status != model.RequestPending {
			return ErrConflict
		}
		_, err = tx.ExecContext(ctx, "DELETE FROM ride_requests WHERE id=?", id)
		return err
	})
}

// DecideRequest moves a pending request to status on behalf of the ride's
// driver.  The ride row is locked for the whole transaction so concurrent
// decisions serialize; the request update is conditional on the pending
// state, so a second decision yields ErrConflict.  Accepting requires a ride
// that is still open at the decision time (ErrRideClosed otherwise), then
// decrements the free seats and marks the ride full when none remain.
func (r *RideRepo) DecideRequest(ctx context.Context, id, driverID uint64, status model.RequestStatus, at time.Time) (model.RideRequest, error) {
	var out model.RideRequest
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		rq, err := scanRequest(tx.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM ride_requests WHERE id=?", id))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		var ride model.Ride
		err = tx.QueryRowContext(ctx,
			"SELECT driver_id, seats_available, status, departs_at FROM rides WHERE id=? FOR UPDATE", rq.RideID).
			Scan(&ride.DriverID, &ride.SeatsAvailable, &ride.Status, &ride.DepartsAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if ride.DriverID != driverID {
			return ErrForbidden
		}

		res, err := tx.ExecContext(ctx,
			"UPDATE ride_requests SET status=?, decided_at=? WHERE id=? AND status=?",
			string(status), at.UTC(), id, string(model.RequestPending))
		if err != nil {
			return err
		}
		if err := expectTransition(res); err != nil {
			return err
		}

		if status == model.RequestAccepted {
			if !ride.Accepting(at) {
				return ErrRideClosed
			}
			if ride.SeatsAvailable < rq.Seats {
				return ErrInsufficientSeats
			}
			// MySQL applies single-table assignments left to right, so the
			// CASE sees the decremented value.
			if _, err := tx.ExecContext(ctx,
				`UPDATE rides SET seats_available = seats_available - ?,
				 status = CASE WHEN seats_available = 0 THEN ? ELSE status END
				 WHERE id=?`,
				rq.Seats, string(model.RideFull), rq.RideID); err != nil {
				return err
			}
		}

		ts := at.UTC()
		rq.Status, rq.DecidedAt = status, &ts
		out = rq
		return nil
	})
	return out, err
}

// ---- Ratings ----

// CreateRating stores a rating and refreshes the rated account's average in
// profiles.rating within the same transaction.
func (r *RideRepo) CreateRating(ctx context.Context, rt *model.Rating) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO ratings (ride_id, rater_id, rated_id, score, comment, created_at) VALUES (?,?,?,?,?,?)",
			rt.RideID, rt.RaterID, rt.RatedID, rt.Score, rt.Comment, now)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE profiles SET rating=(SELECT AVG(score) FROM ratings WHERE rated_id=?) WHERE account_id=?",
			rt.RatedID, rt.RatedID); err != nil {
			return err
		}
		rt.ID, rt.CreatedAt = uint64(id), now
		return nil
	})
}

func (r *RideRepo) ListRatingsByRide(ctx context.Context, rideID uint64) ([]model.Rating, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, ride_id, rater_id, rated_id, score, comment, created_at FROM ratings WHERE ride_id=? ORDER BY id", rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Rating{}
	for rows.Next() {
		var rt model.Rating
		if err := rows.Scan(&rt.ID, &rt.RideID, &rt.RaterID, &rt.RatedID, &rt.Score, &rt.Comment, &rt.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rt)
	}
	return out, rows.Err()
}
