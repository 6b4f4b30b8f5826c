package model

import "time"

// Vehicle is registered by a driver.  Plates are unique.
type Vehicle struct {
	ID        uint64    `json:"id"`
	OwnerID   uint64    `json:"owner_id"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Color     string    `json:"color"`
	Plate     string    `json:"plate"`
	Seats     int       `json:"seats"`
	CreatedAt time.Time `json:"created_at"`
}

// RideStatus is the lifecycle state of a ride offer.
type RideStatus string

const (
	RideAvailable RideStatus = "available"
	RideFull      RideStatus = "full"
	RideFinished  RideStatus = "finished"
	RideCancelled RideStatus = "cancelled"
)

// Valid reports whether s is a known ride status.
func (s RideStatus) Valid() bool {
	switch s {
	case RideAvailable, RideFull, RideFinished, RideCancelled:
		return true
	}
	return false
}

// Ride is a trip offered by a driver with one of the driver's vehicles.
//
// Fields:
//  DriverID       – owner of the ride.
//  SeatsAvailable – decremented as requests are accepted.
//  PriceCents     – price per passenger.
type Ride struct {
	ID             uint64     `json:"id"`
	DriverID       uint64     `json:"driver_id"`
	VehicleID      uint64     `json:"vehicle_id"`
	Origin         string     `json:"origin"`
	Destination    string     `json:"destination"`
	DepartsAt      time.Time  `json:"departs_at"`
	SeatsAvailable int        `json:"seats_available"`
	PriceCents     int64      `json:"price_cents"`
	Notes          string     `json:"notes"`
	Status         RideStatus `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Bookable reports whether a passenger may still request seats at now.
func (r Ride) Bookable(now time.Time) bool {
	return r.Status == RideAvailable && r.SeatsAvailable > 0 && r.DepartsAt.After(now)
}

// Accepting reports whether the driver may still take on passengers at now.
// A full ride still accepts; the seat check rejects the request instead.
func (r Ride) Accepting(now time.Time) bool {
	return (r.Status == RideAvailable || r.Status == RideFull) && r.DepartsAt.After(now)
}

// RequestStatus is the state of a ride request.  Pending is the only
// non-terminal state.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// RideRequest asks the driver of a ride for seats.  (RideID, PassengerID)
// is unique.
type RideRequest struct {
	ID          uint64        `json:"id"`
	RideID      uint64        `json:"ride_id"`
	PassengerID uint64        `json:"passenger_id"`
	Seats       int           `json:"seats"`
	Status      RequestStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	DecidedAt   *time.Time    `json:"decided_at,omitempty"`
}

// Rating is one participant's score of another after a ride.  A driver
// rates accepted passengers and a passenger rates the driver.
// (RideID, RaterID, RatedID) is unique.
type Rating struct {
	ID        uint64    `json:"id"`
	RideID    uint64    `json:"ride_id"`
	RaterID   uint64    `json:"rater_id"`
	RatedID   uint64    `json:"rated_id"`
	Score     int       `json:"score"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
