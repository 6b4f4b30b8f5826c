package memstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/rolegate/internal/memstore"
	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/repository"
	"github.com/iliyamo/rolegate/internal/role"
	"github.com/iliyamo/rolegate/internal/service"
)

var (
	_ service.AccountStore   = (*memstore.Store)(nil)
	_ service.TokenStore     = (*memstore.Store)(nil)
	_ service.CourseStore    = (*memstore.Store)(nil)
	_ service.RideStore      = (*memstore.Store)(nil)
	_ service.WorkOrderStore = (*memstore.Store)(nil)
	_ service.ProjectStore   = (*memstore.Store)(nil)
)

func newAccount(t *testing.T, s *memstore.Store, email string, r role.Role) model.Account {
	t.Helper()
	a := model.Account{Email: email, PasswordHash: "x", Role: r}
	require.NoError(t, s.CreateWithProfile(context.Background(), &a, &model.Profile{}))
	return a
}

func TestCreateWithProfileDuplicateEmail(t *testing.T) {
	s := memstore.New()
	newAccount(t, s, "a@x.io", role.Student)

	a := model.Account{Email: " A@X.io ", Role: role.Student}
	err := s.CreateWithProfile(context.Background(), &a, &model.Profile{})
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)
}

func TestCreateWithProfileRollsBack(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	boom := errors.New("profile insert failed")
	s.FailNextProfileInsert(boom)

	a := model.Account{Email: "a@x.io", Role: role.Student}
	require.ErrorIs(t, s.CreateWithProfile(ctx, &a, &model.Profile{}), boom)

	_, err := s.GetByEmail(ctx, "a@x.io")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	newAccount(t, s, "a@x.io", role.Student)
}

func TestDeactivateRevokesTokens(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	a := newAccount(t, s, "a@x.io", role.Driver)
	require.NoError(t, s.StoreRefresh(ctx, a.ID, "h1", time.Now().Add(time.Hour)))

	require.NoError(t, s.Deactivate(ctx, a.ID))

	got, err := s.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	tok, err := s.FindRefresh(ctx, "h1")
	require.NoError(t, err)
	assert.True(t, tok.Revoked())
}

func TestCourseOwnershipAndCascade(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	alice := newAccount(t, s, "alice@x.io", role.Instructor)
	bob := newAccount(t, s, "bob@x.io", role.Instructor)
	student := newAccount(t, s, "s@x.io", role.Student)

	c := model.Course{InstructorID: alice.ID, Name: "Go"}
	require.NoError(t, s.CreateCourse(ctx, &c))
	m := model.Module{CourseID: c.ID, Title: "Intro", Position: 1}
	require.NoError(t, s.CreateModule(ctx, &m))
	require.NoError(t, s.CreateLesson(ctx, &model.Lesson{ModuleID: m.ID, Title: "L1", Position: 1}))
	require.NoError(t, s.CreateEnrollment(ctx, &model.Enrollment{StudentID: student.ID, CourseID: c.ID}))

	assert.ErrorIs(t, s.DeleteCourse(ctx, c.ID, bob.ID), repository.ErrForbidden)
	assert.ErrorIs(t, s.DeleteCourse(ctx, 999, alice.ID), repository.ErrNotFound)
	require.NoError(t, s.DeleteCourse(ctx, c.ID, alice.ID))

	_, err := s.GetModule(ctx, m.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	lessons, err := s.ListLessons(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, lessons)
	enrolled, err := s.IsEnrolled(ctx, student.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, enrolled)
}

func TestModulePositionUnique(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	alice := newAccount(t, s, "alice@x.io", role.Instructor)
	c := model.Course{InstructorID: alice.ID, Name: "Go"}
	require.NoError(t, s.CreateCourse(ctx, &c))
	require.NoError(t, s.CreateModule(ctx, &model.Module{CourseID: c.ID, Title: "A", Position: 1}))

	err := s.CreateModule(ctx, &model.Module{CourseID: c.ID, Title: "B", Position: 1})
	var dup *repository.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "position", dup.Field)
}

func TestConcurrentEnrollmentExactlyOne(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	alice := newAccount(t, s, "alice@x.io", role.Instructor)
	student := newAccount(t, s, "s@x.io", role.Student)
	c := model.Course{InstructorID: alice.ID, Name: "Go"}
	require.NoError(t, s.CreateCourse(ctx, &c))

	const n = 16
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		oks  int
		dups int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.CreateEnrollment(ctx, &model.Enrollment{StudentID: student.ID, CourseID: c.ID})
			mu.Lock()
			defer mu.Unlock()
			var dup *repository.DuplicateKeyError
			switch {
			case err == nil:
				oks++
			case errors.As(err, &dup):
				dups++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, oks)
	assert.Equal(t, n-1, dups)
}

func TestDecideRequest(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	driver := newAccount(t, s, "d@x.io", role.Driver)
	other := newAccount(t, s, "o@x.io", role.Driver)
	p1 := newAccount(t, s, "p1@x.io", role.Passenger)
	p2 := newAccount(t, s, "p2@x.io", role.Passenger)

	v := model.Vehicle{OwnerID: driver.ID, Plate: "ABC1234", Seats: 4}
	require.NoError(t, s.CreateVehicle(ctx, &v))
	ride := model.Ride{DriverID: driver.ID, VehicleID: v.ID, DepartsAt: time.Now().Add(time.Hour), SeatsAvailable: 2}
	require.NoError(t, s.CreateRide(ctx, &ride))

	r1 := model.RideRequest{RideID: ride.ID, PassengerID: p1.ID, Seats: 2}
	require.NoError(t, s.CreateRequest(ctx, &r1))
	r2 := model.RideRequest{RideID: ride.ID, PassengerID: p2.ID, Seats: 1}
	require.NoError(t, s.CreateRequest(ctx, &r2))

	_, err := s.DecideRequest(ctx, r1.ID, other.ID, model.RequestAccepted, time.Now())
	assert.ErrorIs(t, err, repository.ErrForbidden)

	got, err := s.DecideRequest(ctx, r1.ID, driver.ID, model.RequestAccepted, time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.RequestAccepted, got.Status)
	require.NotNil(t, got.DecidedAt)

	_, err = s.DecideRequest(ctx, r1.ID, driver.ID, model.RequestRejected, time.Now())
	assert.ErrorIs(t, err, repository.ErrConflict)

	after, err := s.GetRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, after.SeatsAvailable)
	assert.Equal(t, model.RideFull, after.Status)

	_, err = s.DecideRequest(ctx, r2.ID, driver.ID, model.RequestAccepted, time.Now())
	assert.ErrorIs(t, err, repository.ErrInsufficientSeats)
	still, err := s.GetRequest(ctx, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RequestPending, still.Status)
}

func TestDecideRequestOnClosedRide(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	now := time.Now()
	driver := newAccount(t, s, "d@x.io", role.Driver)
	pax := newAccount(t, s, "p@x.io", role.Passenger)
	v := model.Vehicle{OwnerID: driver.ID, Plate: "ABC1234", Seats: 4}
	require.NoError(t, s.CreateVehicle(ctx, &v))

	cases := []struct {
		name   string
		status model.RideStatus
		at     time.Time
	}{
		{"cancelled", model.RideCancelled, now},
		{"finished", model.RideFinished, now},
		{"departed", model.RideAvailable, now.Add(2 * time.Hour)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ride := model.Ride{DriverID: driver.ID, VehicleID: v.ID, DepartsAt: now.Add(time.Hour), SeatsAvailable: 2, Status: tc.status}
			require.NoError(t, s.CreateRide(ctx, &ride))
			rq := model.RideRequest{RideID: ride.ID, PassengerID: pax.ID, Seats: 1}
			require.NoError(t, s.CreateRequest(ctx, &rq))

			_, err := s.DecideRequest(ctx, rq.ID, driver.ID, model.RequestAccepted, tc.at)
			assert.ErrorIs(t, err, repository.ErrRideClosed)
			assert.ErrorIs(t, err, repository.ErrConflict)

			after, err := s.GetRide(ctx, ride.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, after.SeatsAvailable)
			still, err := s.GetRequest(ctx, rq.ID)
			require.NoError(t, err)
			assert.Equal(t, model.RequestPending, still.Status)
		})
	}
}

func TestDeleteVehicleInUse(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	driver := newAccount(t, s, "d@x.io", role.Driver)
	v := model.Vehicle{OwnerID: driver.ID, Plate: "ABC1234", Seats: 4}
	require.NoError(t, s.CreateVehicle(ctx, &v))
	ride := model.Ride{DriverID: driver.ID, VehicleID: v.ID, DepartsAt: time.Now().Add(time.Hour), SeatsAvailable: 2}
	require.NoError(t, s.CreateRide(ctx, &ride))

	assert.ErrorIs(t, s.DeleteVehicle(ctx, v.ID, driver.ID), repository.ErrConflict)
	require.NoError(t, s.DeleteRide(ctx, ride.ID, driver.ID))
	require.NoError(t, s.DeleteVehicle(ctx, v.ID, driver.ID))
}

func TestListAvailableRides(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	now := time.Now()
	driver := newAccount(t, s, "d@x.io", role.Driver)
	v := model.Vehicle{OwnerID: driver.ID, Plate: "ABC1234", Seats: 4}
	require.NoError(t, s.CreateVehicle(ctx, &v))

	later := model.Ride{DriverID: driver.ID, VehicleID: v.ID, DepartsAt: now.Add(2 * time.Hour), SeatsAvailable: 1}
	sooner := model.Ride{DriverID: driver.ID, VehicleID: v.ID, DepartsAt: now.Add(time.Hour), SeatsAvailable: 3}
	past := model.Ride{DriverID: driver.ID, VehicleID: v.ID, DepartsAt: now.Add(-time.Hour), SeatsAvailable: 3}
	empty := model.Ride{DriverID: driver.ID, VehicleID: v.ID, DepartsAt: now.Add(time.Hour), SeatsAvailable: 0}
	for _, r := range []*model.Ride{&later, &sooner, &past, &empty} {
		require.NoError(t, s.CreateRide(ctx, r))
	}

	rides, err := s.ListAvailableRides(ctx, now)
	require.NoError(t, err)
	require.Len(t, rides, 2)
	assert.Equal(t, sooner.ID, rides[0].ID)
	assert.Equal(t, later.ID, rides[1].ID)
}

func TestWorkOrderStatusGuard(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	mech := uint64(3)
	w := model.WorkOrder{ManagerID: 1, ClientID: 2, MechanicID: &mech, Title: "brakes"}
	require.NoError(t, s.CreateWorkOrder(ctx, &w))
	assert.Equal(t, model.OrderOpen, w.Status)

	assert.ErrorIs(t, s.SetWorkOrderStatus(ctx, w.ID, 9, model.OrderOpen, model.OrderInProgress), repository.ErrForbidden)
	require.NoError(t, s.SetWorkOrderStatus(ctx, w.ID, mech, model.OrderOpen, model.OrderInProgress))
	assert.ErrorIs(t, s.SetWorkOrderStatus(ctx, w.ID, mech, model.OrderOpen, model.OrderInProgress), repository.ErrConflict)

	list, err := s.ListWorkOrdersByMechanic(ctx, mech)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTaskOwnershipFollowsProject(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	ana := newAccount(t, s, "ana@x.io", role.Student)
	rui := newAccount(t, s, "rui@x.io", role.Student)

	p := model.Project{OwnerID: ana.ID, Name: "Thesis"}
	require.NoError(t, s.CreateProject(ctx, &p))
	task := model.Task{ProjectID: p.ID, Title: "Outline"}
	assert.ErrorIs(t, s.CreateTask(ctx, &task, rui.ID), repository.ErrForbidden)
	orphan := model.Task{ProjectID: 999, Title: "x"}
	assert.ErrorIs(t, s.CreateTask(ctx, &orphan, ana.ID), repository.ErrNotFound)
	require.NoError(t, s.CreateTask(ctx, &task, ana.ID))

	_, err := s.CompleteTask(ctx, task.ID, rui.ID, time.Now())
	assert.ErrorIs(t, err, repository.ErrForbidden)
	_, err = s.CompleteTask(ctx, 999, ana.ID, time.Now())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	done, err := s.CompleteTask(ctx, task.ID, ana.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, done.Done)
	_, err = s.CompleteTask(ctx, task.ID, ana.ID, time.Now())
	assert.ErrorIs(t, err, repository.ErrConflict)

	require.NoError(t, s.DeleteProject(ctx, p.ID, ana.ID))
	_, err = s.GetTask(ctx, task.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestCreateRatingAveragesProfile(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	driver := newAccount(t, s, "d@x.io", role.Driver)
	p1 := newAccount(t, s, "p1@x.io", role.Passenger)
	p2 := newAccount(t, s, "p2@x.io", role.Passenger)
	v := model.Vehicle{OwnerID: driver.ID, Plate: "RAT0001", Seats: 4}
	require.NoError(t, s.CreateVehicle(ctx, &v))
	ride := model.Ride{DriverID: driver.ID, VehicleID: v.ID, DepartsAt: time.Now().Add(-time.Hour), SeatsAvailable: 2}
	require.NoError(t, s.CreateRide(ctx, &ride))

	require.NoError(t, s.CreateRating(ctx, &model.Rating{RideID: ride.ID, RaterID: p1.ID, RatedID: driver.ID, Score: 5}))
	require.NoError(t, s.CreateRating(ctx, &model.Rating{RideID: ride.ID, RaterID: p2.ID, RatedID: driver.ID, Score: 2}))
	err := s.CreateRating(ctx, &model.Rating{RideID: ride.ID, RaterID: p2.ID, RatedID: driver.ID, Score: 4})
	var dup *repository.DuplicateKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "rated_id", dup.Field)

	prof, err := s.GetProfile(ctx, driver.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, prof.Rating, 0.001)

	require.NoError(t, s.DeleteRide(ctx, ride.ID, driver.ID))
	rts, err := s.ListRatingsByRide(ctx, ride.ID)
	require.NoError(t, err)
	assert.Empty(t, rts)
}
