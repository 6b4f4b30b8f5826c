package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/memstore"
	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/queue"
	"github.com/iliyamo/rolegate/internal/role"
	"github.com/iliyamo/rolegate/internal/service"
)

type recorder struct {
	mu     sync.Mutex
	events []queue.Event
}

func (r *recorder) Publish(_ context.Context, ev queue.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	store    *memstore.Store
	events   *recorder
	accounts *service.AccountService
	tokens   *service.TokenService
	resolver *service.Resolver
	courses  *service.CourseService
	rides    *service.RideService
	orders   *service.WorkOrderService
	projects *service.ProjectService
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memstore.New(), events: &recorder{}, clock: time.Now()}
	log := zap.NewNop()
	var err error
	f.accounts, err = service.NewAccountService(f.store, f.events, log, 4)
	require.NoError(t, err)
	f.tokens = service.NewTokenService(f.store, f.store, service.TokenConfig{
		Secret:     "test-secret",
		AccessTTL:  15 * time.Minute,
		RefreshTTL: 24 * time.Hour,
		Now:        func() time.Time { return f.clock },
	})
	f.resolver = service.NewResolver(f.tokens, f.store)
	f.courses = service.NewCourseService(f.store, f.events, log)
	f.rides = service.NewRideService(f.store, f.events, log)
	f.orders = service.NewWorkOrderService(f.store, f.store, f.events, log)
	f.projects = service.NewProjectService(f.store, f.events, log)
	return f
}

func (f *fixture) register(t *testing.T, email string, r role.Role) role.Principal {
	t.Helper()
	acct, _, err := f.accounts.Register(context.Background(), service.RegisterInput{
		Email:           email,
		Password:        "password123",
		PasswordConfirm: "password123",
		Role:            string(r),
		FullName:        email,
	})
	require.NoError(t, err)
	return acct.Principal()
}

func kind(err error) apperr.Kind { return apperr.KindOf(err) }

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.accounts.Register(ctx, service.RegisterInput{
		Email:           "not-an-email",
		Password:        "short",
		PasswordConfirm: "different",
		Role:            "admin",
	})
	require.Error(t, err)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Fields, "email")
	assert.Contains(t, ae.Fields, "password")
	assert.Contains(t, ae.Fields, "password_confirm")
	assert.Contains(t, ae.Fields, "role")
	assert.Contains(t, ae.Fields["role"], "instrutor, aluno")
}

func TestRegisterRejectsPasswordBeyondBcryptLimit(t *testing.T) {
	f := newFixture(t)
	long := strings.Repeat("p", 73)

	_, _, err := f.accounts.Register(context.Background(), service.RegisterInput{
		Email:           "long@example.com",
		Password:        long,
		PasswordConfirm: long,
		Role:            "aluno",
	})
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "must be at most 72 bytes", ae.Fields["password"])

	exact := strings.Repeat("p", 72)
	_, _, err = f.accounts.Register(context.Background(), service.RegisterInput{
		Email:           "exact@example.com",
		Password:        exact,
		PasswordConfirm: exact,
		Role:            "aluno",
	})
	assert.NoError(t, err)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice@example.com", role.Instructor)

	_, _, err := f.accounts.Register(context.Background(), service.RegisterInput{
		Email:           "Alice@Example.com ",
		Password:        "password123",
		PasswordConfirm: "password123",
		Role:            "aluno",
	})
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindDuplicateKey, ae.Kind)
	assert.Equal(t, "already exists", ae.Fields["email"])
}

func TestRegisterRollsBackOnProfileFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.store.FailNextProfileInsert(errors.New("disk full"))

	_, _, err := f.accounts.Register(ctx, service.RegisterInput{
		Email: "carol@example.com", Password: "password123", PasswordConfirm: "password123", Role: "aluno",
	})
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, kind(err))

	_, err = f.accounts.Authenticate(ctx, "carol@example.com", "password123")
	assert.ErrorIs(t, err, apperr.ErrInvalidCredentials)
	assert.Empty(t, f.events.types())
}

func TestAuthenticateUniformFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.register(t, "dave@example.com", role.Driver)

	acct, err := f.accounts.Authenticate(ctx, "DAVE@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, p.AccountID, acct.ID)

	_, errUnknown := f.accounts.Authenticate(ctx, "nobody@example.com", "password123")
	_, errWrong := f.accounts.Authenticate(ctx, "dave@example.com", "wrong-password")
	require.NoError(t, f.accounts.Deactivate(ctx, p.AccountID))
	_, errInactive := f.accounts.Authenticate(ctx, "dave@example.com", "password123")

	for _, err := range []error{errUnknown, errWrong, errInactive} {
		assert.Same(t, apperr.ErrInvalidCredentials, err)
	}
}

func TestProfileUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.register(t, "erin@example.com", role.Client)

	prof, err := f.accounts.UpdateProfile(ctx, p.AccountID, service.ProfileInput{FullName: "Erin", Phone: "555"})
	require.NoError(t, err)
	assert.Equal(t, "Erin", prof.FullName)

	acct, got, err := f.accounts.Me(ctx, p.AccountID)
	require.NoError(t, err)
	assert.Equal(t, "erin@example.com", acct.Email)
	assert.Equal(t, "555", got.Phone)
}

func TestTokenLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.register(t, "frank@example.com", role.Student)
	acct, err := f.accounts.Authenticate(ctx, "frank@example.com", "password123")
	require.NoError(t, err)

	pair, err := f.tokens.Issue(ctx, acct)
	require.NoError(t, err)
	assert.Equal(t, "Bearer", pair.TokenType)

	got, err := f.resolver.Resolve(ctx, pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	at, err := f.tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, at.Token)

	// not rotated: the same refresh token works again
	_, err = f.tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	require.NoError(t, f.tokens.Revoke(ctx, pair.RefreshToken))
	require.NoError(t, f.tokens.Revoke(ctx, pair.RefreshToken))
	_, err = f.tokens.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)

	assert.ErrorIs(t, f.tokens.Revoke(ctx, "never-issued"), apperr.ErrTokenInvalid)
}

func TestRevokeAllEndsEverySession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "hal@example.com", role.Client)
	f.register(t, "ivy@example.com", role.Client)
	hal, err := f.accounts.Authenticate(ctx, "hal@example.com", "password123")
	require.NoError(t, err)
	ivy, err := f.accounts.Authenticate(ctx, "ivy@example.com", "password123")
	require.NoError(t, err)

	laptop, err := f.tokens.Issue(ctx, hal)
	require.NoError(t, err)
	phone, err := f.tokens.Issue(ctx, hal)
	require.NoError(t, err)
	other, err := f.tokens.Issue(ctx, ivy)
	require.NoError(t, err)

	require.NoError(t, f.tokens.RevokeAll(ctx, hal.ID))
	for _, rt := range []string{laptop.RefreshToken, phone.RefreshToken} {
		_, err = f.tokens.Refresh(ctx, rt)
		assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	}
	_, err = f.tokens.Refresh(ctx, other.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshExpiredAndDeactivated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.register(t, "gina@example.com", role.Passenger)
	acct, err := f.accounts.Authenticate(ctx, "gina@example.com", "password123")
	require.NoError(t, err)
	pair, err := f.tokens.Issue(ctx, acct)
	require.NoError(t, err)

	f.clock = f.clock.Add(25 * time.Hour)
	_, err = f.tokens.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	_, err = f.resolver.Resolve(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)

	f.clock = time.Now()
	pair, err = f.tokens.Issue(ctx, acct)
	require.NoError(t, err)
	require.NoError(t, f.accounts.Deactivate(ctx, p.AccountID))
	_, err = f.tokens.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	_, err = f.resolver.Resolve(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	assert.Equal(t, []string{queue.EventAccountRegistered, queue.EventAccountDeactivated}, f.events.types())
}

func TestCourseOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", role.Instructor)
	bob := f.register(t, "bob@example.com", role.Instructor)
	student := f.register(t, "sam@example.com", role.Student)

	c, err := f.courses.CreateCourse(ctx, alice, service.CourseInput{Name: "Go 101"})
	require.NoError(t, err)
	assert.Equal(t, alice.AccountID, c.InstructorID)

	_, err = f.courses.CreateCourse(ctx, student, service.CourseInput{Name: "Nope"})
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.courses.CreateCourse(ctx, bob, service.CourseInput{Name: "Go 101"})
	assert.Equal(t, apperr.KindDuplicateKey, kind(err))

	mine, err := f.courses.ListCourses(ctx, bob)
	require.NoError(t, err)
	assert.Empty(t, mine)
	all, err := f.courses.ListCourses(ctx, student)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = f.courses.GetCourse(ctx, bob, c.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.courses.GetCourse(ctx, student, c.ID)
	assert.NoError(t, err)

	assert.Equal(t, apperr.KindForbidden, kind(f.courses.DeleteCourse(ctx, bob, c.ID)))
	assert.NoError(t, f.courses.DeleteCourse(ctx, alice, c.ID))
	assert.Equal(t, apperr.KindNotFound, kind(f.courses.DeleteCourse(ctx, alice, c.ID)))
	assert.Equal(t, apperr.KindNotFound, kind(f.courses.DeleteCourse(ctx, bob, c.ID)))
}

func TestModulesRequireEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", role.Instructor)
	sam := f.register(t, "sam@example.com", role.Student)

	c, err := f.courses.CreateCourse(ctx, alice, service.CourseInput{Name: "Databases"})
	require.NoError(t, err)
	m, err := f.courses.CreateModule(ctx, alice, c.ID, service.ModuleInput{Title: "Intro", Position: 1})
	require.NoError(t, err)
	_, err = f.courses.CreateModule(ctx, alice, c.ID, service.ModuleInput{Title: "Again", Position: 1})
	assert.Equal(t, apperr.KindDuplicateKey, kind(err))
	_, err = f.courses.CreateLesson(ctx, alice, m.ID, service.LessonInput{Title: "Tables", Position: 1, DurationMin: 10})
	require.NoError(t, err)

	_, err = f.courses.ListModules(ctx, sam, c.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))

	e, err := f.courses.Enroll(ctx, sam, c.ID)
	require.NoError(t, err)
	ms, err := f.courses.ListModules(ctx, sam, c.ID)
	require.NoError(t, err)
	assert.Len(t, ms, 1)
	ls, err := f.courses.ListLessons(ctx, sam, m.ID)
	require.NoError(t, err)
	assert.Len(t, ls, 1)

	_, err = f.courses.CreateLesson(ctx, sam, m.ID, service.LessonInput{Title: "x", Position: 2})
	assert.Equal(t, apperr.KindForbidden, kind(err))

	mine, err := f.courses.ListEnrollments(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, e.ID, mine[0].ID)
	assert.Contains(t, f.events.types(), queue.EventEnrollmentCreated)
}

func TestGetEnrollmentVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", role.Instructor)
	bob := f.register(t, "bob@example.com", role.Instructor)
	sam := f.register(t, "sam@example.com", role.Student)
	sue := f.register(t, "sue@example.com", role.Student)
	c, err := f.courses.CreateCourse(ctx, alice, service.CourseInput{Name: "Compilers"})
	require.NoError(t, err)
	e, err := f.courses.Enroll(ctx, sam, c.ID)
	require.NoError(t, err)

	for _, p := range []role.Principal{sam, alice} {
		got, err := f.courses.GetEnrollment(ctx, p, e.ID)
		require.NoError(t, err)
		assert.Equal(t, e.ID, got.ID)
	}
	for _, p := range []role.Principal{sue, bob} {
		_, err := f.courses.GetEnrollment(ctx, p, e.ID)
		assert.Equal(t, apperr.KindForbidden, kind(err))
	}
	_, err = f.courses.GetEnrollment(ctx, sue, 999)
	assert.Equal(t, apperr.KindNotFound, kind(err))
}

func TestEnrollErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.register(t, "alice@example.com", role.Instructor)
	sam := f.register(t, "sam@example.com", role.Student)
	c, err := f.courses.CreateCourse(ctx, alice, service.CourseInput{Name: "Networks"})
	require.NoError(t, err)

	var ae *apperr.Error
	_, err = f.courses.Enroll(ctx, sam, 999)
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Fields, "course_id")

	_, err = f.courses.Enroll(ctx, alice, c.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.courses.Enroll(ctx, sam, c.ID)
		}(i)
	}
	wg.Wait()
	ok, dup := 0, 0
	for _, err := range errs {
		switch kind(err) {
		case apperr.KindDuplicateKey:
			dup++
		default:
			if err == nil {
				ok++
			}
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, dup)
}

func TestRideRequestFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.register(t, "dan@example.com", role.Driver)
	both := f.register(t, "bea@example.com", role.Both)
	pax := f.register(t, "pat@example.com", role.Passenger)

	v, err := f.rides.CreateVehicle(ctx, driver, service.VehicleInput{Make: "Fiat", Model: "Uno", Plate: "abc1234", Seats: 4})
	require.NoError(t, err)
	assert.Equal(t, "ABC1234", v.Plate)

	_, err = f.rides.CreateRide(ctx, both, service.RideInput{
		VehicleID: v.ID, Origin: "A", Destination: "B", DepartsAt: time.Now().Add(time.Hour), SeatsAvailable: 2,
	})
	assert.Equal(t, apperr.KindForbidden, kind(err), "vehicle belongs to someone else")

	_, err = f.rides.CreateRide(ctx, driver, service.RideInput{
		VehicleID: v.ID, Origin: "A", Destination: "B", DepartsAt: time.Now().Add(time.Hour), SeatsAvailable: 9,
	})
	assert.Equal(t, apperr.KindValidation, kind(err))

	r, err := f.rides.CreateRide(ctx, driver, service.RideInput{
		VehicleID: v.ID, Origin: "A", Destination: "B", DepartsAt: time.Now().Add(time.Hour), SeatsAvailable: 2,
	})
	require.NoError(t, err)

	avail, err := f.rides.ListAvailable(ctx, both)
	require.NoError(t, err)
	assert.Len(t, avail, 1)
	_, err = f.rides.ListAvailable(ctx, driver)
	assert.Equal(t, apperr.KindForbidden, kind(err))

	_, err = f.rides.RequestSeats(ctx, pax, r.ID, 3)
	assert.Equal(t, apperr.KindConflict, kind(err))

	rq1, err := f.rides.RequestSeats(ctx, pax, r.ID, 1)
	require.NoError(t, err)
	_, err = f.rides.RequestSeats(ctx, pax, r.ID, 1)
	assert.Equal(t, apperr.KindDuplicateKey, kind(err))
	rq2, err := f.rides.RequestSeats(ctx, both, r.ID, 2)
	require.NoError(t, err)

	_, err = f.rides.Decide(ctx, both, rq1.ID, true)
	assert.Equal(t, apperr.KindForbidden, kind(err))

	got, err := f.rides.Decide(ctx, driver, rq1.ID, true)
	require.NoError(t, err)
	assert.Equal(t, model.RequestAccepted, got.Status)
	_, err = f.rides.Decide(ctx, driver, rq1.ID, false)
	assert.Equal(t, apperr.KindConflict, kind(err))

	_, err = f.rides.Decide(ctx, driver, rq2.ID, true)
	assert.Equal(t, apperr.KindConflict, kind(err), "one seat left")

	_, err = f.rides.Decide(ctx, driver, 999, true)
	assert.Equal(t, apperr.KindNotFound, kind(err))

	assert.Equal(t, apperr.KindConflict, kind(f.rides.CancelRequest(ctx, pax, rq1.ID)))
	assert.Equal(t, apperr.KindForbidden, kind(f.rides.CancelRequest(ctx, pax, rq2.ID)))
	assert.NoError(t, f.rides.CancelRequest(ctx, both, rq2.ID))

	assert.Equal(t, apperr.KindConflict, kind(f.rides.DeleteVehicle(ctx, driver, v.ID)))
	assert.Contains(t, f.events.types(), queue.EventRideRequestDecided)
}

func TestGetRideRequestVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.register(t, "dan@example.com", role.Driver)
	other := f.register(t, "oli@example.com", role.Driver)
	pax := f.register(t, "pat@example.com", role.Passenger)
	stranger := f.register(t, "sid@example.com", role.Passenger)

	v, err := f.rides.CreateVehicle(ctx, driver, service.VehicleInput{Make: "Fiat", Model: "Uno", Plate: "DEF5678", Seats: 4})
	require.NoError(t, err)
	r, err := f.rides.CreateRide(ctx, driver, service.RideInput{
		VehicleID: v.ID, Origin: "A", Destination: "B", DepartsAt: time.Now().Add(time.Hour), SeatsAvailable: 2,
	})
	require.NoError(t, err)
	rq, err := f.rides.RequestSeats(ctx, pax, r.ID, 1)
	require.NoError(t, err)

	for _, p := range []role.Principal{pax, driver} {
		got, err := f.rides.GetRequest(ctx, p, rq.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RequestPending, got.Status)
	}
	for _, p := range []role.Principal{other, stranger} {
		_, err := f.rides.GetRequest(ctx, p, rq.ID)
		assert.Equal(t, apperr.KindForbidden, kind(err))
	}
	_, err = f.rides.GetRequest(ctx, stranger, 999)
	assert.Equal(t, apperr.KindNotFound, kind(err))
}

func TestAcceptOnCancelledRideConflicts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.register(t, "dan@example.com", role.Driver)
	pax := f.register(t, "pat@example.com", role.Passenger)

	v, err := f.rides.CreateVehicle(ctx, driver, service.VehicleInput{Make: "Fiat", Model: "Uno", Plate: "ABC1234", Seats: 4})
	require.NoError(t, err)
	in := service.RideInput{VehicleID: v.ID, Origin: "A", Destination: "B", DepartsAt: time.Now().Add(time.Hour), SeatsAvailable: 3}
	r, err := f.rides.CreateRide(ctx, driver, in)
	require.NoError(t, err)
	rq, err := f.rides.RequestSeats(ctx, pax, r.ID, 2)
	require.NoError(t, err)

	in.Status = string(model.RideCancelled)
	_, err = f.rides.UpdateRide(ctx, driver, r.ID, in)
	require.NoError(t, err)

	_, err = f.rides.Decide(ctx, driver, rq.ID, true)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, "ride is no longer open", ae.Message)

	after, err := f.rides.GetRide(ctx, driver, r.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, after.SeatsAvailable)
	assert.Equal(t, model.RideCancelled, after.Status)

	got, err := f.rides.Decide(ctx, driver, rq.ID, false)
	require.NoError(t, err, "rejecting is still allowed")
	assert.Equal(t, model.RequestRejected, got.Status)
}

func TestOwnRideAndVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	both := f.register(t, "bea@example.com", role.Both)
	pax := f.register(t, "pat@example.com", role.Passenger)
	other := f.register(t, "oli@example.com", role.Driver)

	v, err := f.rides.CreateVehicle(ctx, both, service.VehicleInput{Make: "VW", Model: "Gol", Plate: "XYZ9", Seats: 4})
	require.NoError(t, err)
	r, err := f.rides.CreateRide(ctx, both, service.RideInput{
		VehicleID: v.ID, Origin: "A", Destination: "B", DepartsAt: time.Now().Add(time.Hour), SeatsAvailable: 3,
	})
	require.NoError(t, err)

	_, err = f.rides.RequestSeats(ctx, both, r.ID, 1)
	assert.Equal(t, apperr.KindForbidden, kind(err))

	_, err = f.rides.GetRide(ctx, pax, r.ID)
	assert.NoError(t, err)
	_, err = f.rides.GetRide(ctx, other, r.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.rides.ListRideRequests(ctx, pax, r.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))
}

func TestWorkOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mgr := f.register(t, "mia@example.com", role.Manager)
	mech := f.register(t, "max@example.com", role.Mechanic)
	cli := f.register(t, "cleo@example.com", role.Client)
	outsider := f.register(t, "otto@example.com", role.Mechanic)

	_, err := f.orders.Create(ctx, mgr, service.WorkOrderInput{ClientID: mech.AccountID, Title: "Brakes"})
	assert.Equal(t, apperr.KindValidation, kind(err))

	mid := mech.AccountID
	w, err := f.orders.Create(ctx, mgr, service.WorkOrderInput{ClientID: cli.AccountID, MechanicID: &mid, Title: "Brakes"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderOpen, w.Status)

	for _, p := range []role.Principal{mgr, mech, cli} {
		_, err := f.orders.Get(ctx, p, w.ID)
		assert.NoError(t, err)
	}
	_, err = f.orders.Get(ctx, outsider, w.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))

	_, err = f.orders.Update(ctx, mech, w.ID, service.WorkOrderInput{Status: "done"})
	assert.Equal(t, apperr.KindConflict, kind(err))
	_, err = f.orders.Update(ctx, mech, w.ID, service.WorkOrderInput{Status: "cancelled"})
	assert.Equal(t, apperr.KindForbidden, kind(err))

	got, err := f.orders.Update(ctx, mech, w.ID, service.WorkOrderInput{Title: "ignored", Status: "in_progress"})
	require.NoError(t, err)
	assert.Equal(t, model.OrderInProgress, got.Status)
	assert.Equal(t, "Brakes", got.Title)

	_, err = f.orders.Update(ctx, cli, w.ID, service.WorkOrderInput{Status: "done"})
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.orders.Update(ctx, outsider, 999, service.WorkOrderInput{Status: "done"})
	assert.Equal(t, apperr.KindNotFound, kind(err))

	got, err = f.orders.Update(ctx, mgr, w.ID, service.WorkOrderInput{
		ClientID: cli.AccountID, MechanicID: &mid, Title: "Brakes and pads", Status: "done",
	})
	require.NoError(t, err)
	assert.Equal(t, model.OrderDone, got.Status)

	list, err := f.orders.List(ctx, cli)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	assert.Equal(t, apperr.KindForbidden, kind(f.orders.Delete(ctx, mech, w.ID)))
	assert.NoError(t, f.orders.Delete(ctx, mgr, w.ID))
}

func TestProjectsAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.register(t, "ana@example.com", role.Student)
	rui := f.register(t, "rui@example.com", role.Mechanic)

	_, err := f.projects.CreateProject(ctx, ana, service.ProjectInput{Name: "  "})
	assert.Equal(t, apperr.KindValidation, kind(err))

	pr, err := f.projects.CreateProject(ctx, ana, service.ProjectInput{Name: " Thesis ", Description: "chapters"})
	require.NoError(t, err)
	assert.Equal(t, "Thesis", pr.Name)
	_, err = f.projects.CreateProject(ctx, rui, service.ProjectInput{Name: "Garage"})
	require.NoError(t, err)

	mine, err := f.projects.ListProjects(ctx, ana)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, pr.ID, mine[0].ID)

	_, err = f.projects.GetProject(ctx, rui, pr.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.projects.GetProject(ctx, rui, 999)
	assert.Equal(t, apperr.KindNotFound, kind(err))
	_, err = f.projects.UpdateProject(ctx, rui, pr.ID, service.ProjectInput{Name: "Mine now"})
	assert.Equal(t, apperr.KindForbidden, kind(err))
	assert.Equal(t, apperr.KindForbidden, kind(f.projects.DeleteProject(ctx, rui, pr.ID)))

	_, err = f.projects.CreateTask(ctx, rui, pr.ID, service.TaskInput{Title: "sneak in"})
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.projects.CreateTask(ctx, ana, 999, service.TaskInput{Title: "orphan"})
	assert.Equal(t, apperr.KindNotFound, kind(err))

	task, err := f.projects.CreateTask(ctx, ana, pr.ID, service.TaskInput{Title: "Outline"})
	require.NoError(t, err)
	_, err = f.projects.GetTask(ctx, rui, task.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.projects.ListTasks(ctx, rui, pr.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.projects.UpdateTask(ctx, rui, task.ID, service.TaskInput{Title: "x"})
	assert.Equal(t, apperr.KindForbidden, kind(err))

	updated, err := f.projects.UpdateTask(ctx, ana, task.ID, service.TaskInput{Title: "Outline v2"})
	require.NoError(t, err)
	assert.Equal(t, "Outline v2", updated.Title)
	assert.False(t, updated.Done)

	require.NoError(t, f.projects.DeleteProject(ctx, ana, pr.ID))
	_, err = f.projects.GetTask(ctx, ana, task.ID)
	assert.Equal(t, apperr.KindNotFound, kind(err), "tasks go with their project")
}

func TestCompleteTaskFiresOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.register(t, "ana@example.com", role.Client)
	rui := f.register(t, "rui@example.com", role.Client)
	pr, err := f.projects.CreateProject(ctx, ana, service.ProjectInput{Name: "Move"})
	require.NoError(t, err)
	task, err := f.projects.CreateTask(ctx, ana, pr.ID, service.TaskInput{Title: "Pack boxes"})
	require.NoError(t, err)

	_, err = f.projects.CompleteTask(ctx, rui, task.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))

	done, err := f.projects.CompleteTask(ctx, ana, task.ID)
	require.NoError(t, err)
	assert.True(t, done.Done)
	require.NotNil(t, done.CompletedAt)

	_, err = f.projects.CompleteTask(ctx, ana, task.ID)
	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, apperr.KindConflict, ae.Kind)
	assert.Equal(t, "task is already completed", ae.Message)

	completed := 0
	for _, typ := range f.events.types() {
		if typ == queue.EventTaskCompleted {
			completed++
		}
	}
	assert.Equal(t, 1, completed)
}

func TestRatingsFeedProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	driver := f.register(t, "dan@example.com", role.Driver)
	p1 := f.register(t, "pat@example.com", role.Passenger)
	p2 := f.register(t, "pia@example.com", role.Both)
	outsider := f.register(t, "oto@example.com", role.Passenger)
	instructor := f.register(t, "tia@example.com", role.Instructor)

	v, err := f.rides.CreateVehicle(ctx, driver, service.VehicleInput{Make: "Fiat", Model: "Uno", Plate: "RAT1234", Seats: 4})
	require.NoError(t, err)
	in := service.RideInput{VehicleID: v.ID, Origin: "A", Destination: "B", DepartsAt: time.Now().Add(time.Hour), SeatsAvailable: 3}
	r, err := f.rides.CreateRide(ctx, driver, in)
	require.NoError(t, err)
	for _, p := range []role.Principal{p1, p2} {
		rq, err := f.rides.RequestSeats(ctx, p, r.ID, 1)
		require.NoError(t, err)
		_, err = f.rides.Decide(ctx, driver, rq.ID, true)
		require.NoError(t, err)
	}

	_, err = f.rides.Rate(ctx, p1, r.ID, service.RatingInput{RatedID: driver.AccountID, Score: 5})
	assert.Equal(t, apperr.KindConflict, kind(err), "not departed yet")

	in.Status = string(model.RideFinished)
	in.SeatsAvailable = 1
	_, err = f.rides.UpdateRide(ctx, driver, r.ID, in)
	require.NoError(t, err)

	_, err = f.rides.Rate(ctx, instructor, r.ID, service.RatingInput{RatedID: driver.AccountID, Score: 5})
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.rides.Rate(ctx, outsider, r.ID, service.RatingInput{RatedID: driver.AccountID, Score: 5})
	assert.Equal(t, apperr.KindForbidden, kind(err))
	_, err = f.rides.Rate(ctx, p1, r.ID, service.RatingInput{RatedID: driver.AccountID, Score: 6})
	assert.Equal(t, apperr.KindValidation, kind(err))
	_, err = f.rides.Rate(ctx, p1, r.ID, service.RatingInput{RatedID: p2.AccountID, Score: 4})
	assert.Equal(t, apperr.KindValidation, kind(err), "passengers rate the driver only")
	_, err = f.rides.Rate(ctx, driver, r.ID, service.RatingInput{RatedID: outsider.AccountID, Score: 4})
	assert.Equal(t, apperr.KindValidation, kind(err))

	_, err = f.rides.Rate(ctx, p1, r.ID, service.RatingInput{RatedID: driver.AccountID, Score: 5, Comment: "smooth"})
	require.NoError(t, err)
	_, err = f.rides.Rate(ctx, p2, r.ID, service.RatingInput{RatedID: driver.AccountID, Score: 4})
	require.NoError(t, err)
	_, err = f.rides.Rate(ctx, p1, r.ID, service.RatingInput{RatedID: driver.AccountID, Score: 1})
	assert.Equal(t, apperr.KindDuplicateKey, kind(err))
	_, err = f.rides.Rate(ctx, driver, r.ID, service.RatingInput{RatedID: p1.AccountID, Score: 3})
	require.NoError(t, err)

	_, prof, err := f.accounts.Me(ctx, driver.AccountID)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, prof.Rating, 0.001)

	rts, err := f.rides.ListRatings(ctx, p2, r.ID)
	require.NoError(t, err)
	assert.Len(t, rts, 3)
	_, err = f.rides.ListRatings(ctx, outsider, r.ID)
	assert.Equal(t, apperr.KindForbidden, kind(err))
	assert.Contains(t, f.events.types(), queue.EventRideRated)
}
