package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rolegate/internal/model"
)

var (
	selectRequestSQL = regexp.QuoteMeta("SELECT " + requestColumns + " FROM ride_requests WHERE id=?")
	lockRideSQL      = regexp.QuoteMeta("SELECT driver_id, seats_available, status, departs_at FROM rides WHERE id=? FOR UPDATE")
	decideSQL        = regexp.QuoteMeta("UPDATE ride_requests SET status=?, decided_at=? WHERE id=? AND status=?")
	takeSeatsSQL     = regexp.QuoteMeta("UPDATE rides SET seats_available = seats_available - ?")
)

const (
	driverID    = 1
	passengerID = 9
	rideID      = 3
	requestID   = 7
)

// expectDecideReads queues the request read and the ride lock.
func expectDecideReads(mock sqlmock.Sqlmock, seats int, status model.RideStatus, departs time.Time) {
	now := time.Now().UTC()
	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestSQL).WithArgs(requestID).WillReturnRows(
		sqlmock.NewRows([]string{"id", "ride_id", "passenger_id", "seats", "status", "created_at", "decided_at"}).
			AddRow(requestID, rideID, passengerID, 2, "pending", now, nil))
	mock.ExpectQuery(lockRideSQL).WithArgs(rideID).WillReturnRows(
		sqlmock.NewRows([]string{"driver_id", "seats_available", "status", "departs_at"}).
			AddRow(driverID, seats, string(status), departs))
}

func TestDecideRequestAcceptsPending(t *testing.T) {
	db, mock := newMock(t)
	at := time.Now()
	expectDecideReads(mock, 2, model.RideAvailable, at.Add(time.Hour))
	mock.ExpectExec(decideSQL).WithArgs("accepted", sqlmock.AnyArg(), requestID, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(takeSeatsSQL).WithArgs(2, "full", rideID).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rq, err := NewRideRepo(db).DecideRequest(context.Background(), requestID, driverID, model.RequestAccepted, at)
	require.NoError(t, err)
	assert.Equal(t, model.RequestAccepted, rq.Status)
	require.NotNil(t, rq.DecidedAt)
}

func TestDecideRequestRejectSkipsSeats(t *testing.T) {
	db, mock := newMock(t)
	at := time.Now()
	// rejecting is allowed on a cancelled ride and never touches seats
	expectDecideReads(mock, 0, model.RideCancelled, at.Add(-time.Hour))
	mock.ExpectExec(decideSQL).WithArgs("rejected", sqlmock.AnyArg(), requestID, "pending").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rq, err := NewRideRepo(db).DecideRequest(context.Background(), requestID, driverID, model.RequestRejected, at)
	require.NoError(t, err)
	assert.Equal(t, model.RequestRejected, rq.Status)
}

func TestDecideRequestAlreadyDecided(t *testing.T) {
	db, mock := newMock(t)
	at := time.Now()
	expectDecideReads(mock, 2, model.RideAvailable, at.Add(time.Hour))
	mock.ExpectExec(decideSQL).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := NewRideRepo(db).DecideRequest(context.Background(), requestID, driverID, model.RequestAccepted, at)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrRideClosed)
}

func TestDecideRequestForbidden(t *testing.T) {
	db, mock := newMock(t)
	at := time.Now()
	expectDecideReads(mock, 2, model.RideAvailable, at.Add(time.Hour))
	mock.ExpectRollback()

	_, err := NewRideRepo(db).DecideRequest(context.Background(), requestID, 42, model.RequestAccepted, at)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDecideRequestMissing(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(selectRequestSQL).WithArgs(requestID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := NewRideRepo(db).DecideRequest(context.Background(), requestID, driverID, model.RequestAccepted, time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDecideRequestInsufficientSeatsRollsBack(t *testing.T) {
	db, mock := newMock(t)
	at := time.Now()
	expectDecideReads(mock, 1, model.RideAvailable, at.Add(time.Hour))
	mock.ExpectExec(decideSQL).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	_, err := NewRideRepo(db).DecideRequest(context.Background(), requestID, driverID, model.RequestAccepted, at)
	assert.ErrorIs(t, err, ErrInsufficientSeats)
}

func TestDecideRequestClosedRide(t *testing.T) {
	at := time.Now()
	cases := []struct {
		name    string
		status  model.RideStatus
		departs time.Time
	}{
		{"cancelled", model.RideCancelled, at.Add(time.Hour)},
		{"finished", model.RideFinished, at.Add(time.Hour)},
		{"departed", model.RideAvailable, at.Add(-time.Minute)},
		{"departing now", model.RideAvailable, at},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMock(t)
			expectDecideReads(mock, 3, tc.status, tc.departs)
			mock.ExpectExec(decideSQL).WillReturnResult(sqlmock.NewResult(0, 1))
			mock.ExpectRollback()

			_, err := NewRideRepo(db).DecideRequest(context.Background(), requestID, driverID, model.RequestAccepted, at)
			assert.ErrorIs(t, err, ErrRideClosed)
		})
	}
}

func TestCreateRatingRefreshesAverage(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ratings")).
		WithArgs(rideID, passengerID, driverID, 4, "ok", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE profiles SET rating=(SELECT AVG(score) FROM ratings WHERE rated_id=?) WHERE account_id=?")).
		WithArgs(driverID, driverID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rt := model.Rating{RideID: rideID, RaterID: passengerID, RatedID: driverID, Score: 4, Comment: "ok"}
	require.NoError(t, NewRideRepo(db).CreateRating(context.Background(), &rt))
	assert.Equal(t, uint64(11), rt.ID)
}

func TestCreateRatingDuplicate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ratings")).WillReturnError(&mysql.MySQLError{
		Number:  1062,
		Message: "Duplicate entry '3-9-1' for key 'ratings.uq_ratings_ride_rater_rated'",
	})
	mock.ExpectRollback()

	err := NewRideRepo(db).CreateRating(context.Background(), &model.Rating{RideID: rideID, RaterID: passengerID, RatedID: driverID, Score: 4})
	var dup *DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "rated_id", dup.Field)
}

func TestUpdateVehicleChecksExistenceBeforeOwnership(t *testing.T) {
	ownerSQL := regexp.QuoteMeta("SELECT owner_id FROM vehicles WHERE id=? FOR UPDATE")
	v := &model.Vehicle{ID: 5, Make: "Fiat", Model: "Uno", Plate: "ABC1234", Seats: 4}

	t.Run("missing", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(ownerSQL).WithArgs(5).WillReturnRows(sqlmock.NewRows([]string{"owner_id"}))
		mock.ExpectRollback()
		assert.ErrorIs(t, NewRideRepo(db).UpdateVehicle(context.Background(), v, driverID), ErrNotFound)
	})
	t.Run("someone else's", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(ownerSQL).WithArgs(5).WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(42))
		mock.ExpectRollback()
		assert.ErrorIs(t, NewRideRepo(db).UpdateVehicle(context.Background(), v, driverID), ErrForbidden)
	})
	t.Run("owned", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(ownerSQL).WithArgs(5).WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(driverID))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE vehicles SET")).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()
		assert.NoError(t, NewRideRepo(db).UpdateVehicle(context.Background(), v, driverID))
	})
}
