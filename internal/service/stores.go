package service

import (
	"context"
	"time"

	"github.com/iliyamo/rolegate/internal/model"
)

// Storage contracts consumed by the services.  Both the MySQL repositories
// and the in-memory store satisfy them and report failures with the
// repository sentinels (ErrNotFound, ErrForbidden, ErrConflict,
// ErrRideClosed, ErrInsufficientSeats, *DuplicateKeyError).

type AccountStore interface {
	CreateWithProfile(ctx context.Context, a *model.Account, p *model.Profile) error
	GetByID(ctx context.Context, id uint64) (model.Account, error)
	GetByEmail(ctx context.Context, email string) (model.Account, error)
	GetProfile(ctx context.Context, accountID uint64) (model.Profile, error)
	UpdateProfile(ctx context.Context, p *model.Profile) error
	Deactivate(ctx context.Context, id uint64) error
}

type TokenStore interface {
	StoreRefresh(ctx context.Context, accountID uint64, tokenHash string, exp time.Time) error
	FindRefresh(ctx context.Context, tokenHash string) (model.RefreshToken, error)
	RevokeByHash(ctx context.Context, tokenHash string) error
	RevokeAllForAccount(ctx context.Context, accountID uint64) error
}

type CourseStore interface {
	CreateCourse(ctx context.Context, c *model.Course) error
	GetCourse(ctx context.Context, id uint64) (model.Course, error)
	ListCourses(ctx context.Context) ([]model.Course, error)
	ListCoursesByInstructor(ctx context.Context, instructorID uint64) ([]model.Course, error)
	UpdateCourse(ctx context.Context, c *model.Course, ownerID uint64) error
	DeleteCourse(ctx context.Context, id, ownerID uint64) error

	CreateModule(ctx context.Context, m *model.Module) error
	GetModule(ctx context.Context, id uint64) (model.Module, error)
	ListModules(ctx context.Context, courseID uint64) ([]model.Module, error)
	UpdateModule(ctx context.Context, m *model.Module, ownerID uint64) error
	DeleteModule(ctx context.Context, id, ownerID uint64) error

	CreateLesson(ctx context.Context, l *model.Lesson) error
	GetLesson(ctx context.Context, id uint64) (model.Lesson, error)
	ListLessons(ctx context.Context, moduleID uint64) ([]model.Lesson, error)
	UpdateLesson(ctx context.Context, l *model.Lesson, ownerID uint64) error
	DeleteLesson(ctx context.Context, id, ownerID uint64) error

	CreateEnrollment(ctx context.Context, e *model.Enrollment) error
	GetEnrollment(ctx context.Context, id uint64) (model.Enrollment, error)
	IsEnrolled(ctx context.Context, studentID, courseID uint64) (bool, error)
	ListEnrollmentsByStudent(ctx context.Context, studentID uint64) ([]model.Enrollment, error)
	ListEnrollmentsByInstructor(ctx context.Context, instructorID uint64) ([]model.Enrollment, error)
	DeleteEnrollment(ctx context.Context, id, studentID uint64) error
}

type RideStore interface {
	CreateVehicle(ctx context.Context, v *model.Vehicle) error
	GetVehicle(ctx context.Context, id uint64) (model.Vehicle, error)
	ListVehiclesByOwner(ctx context.Context, ownerID uint64) ([]model.Vehicle, error)
	UpdateVehicle(ctx context.Context, v *model.Vehicle, ownerID uint64) error
	DeleteVehicle(ctx context.Context, id, ownerID uint64) error

	CreateRide(ctx context.Context, r *model.Ride) error
	GetRide(ctx context.Context, id uint64) (model.Ride, error)
	ListRidesByDriver(ctx context.Context, driverID uint64) ([]model.Ride, error)
	ListAvailableRides(ctx context.Context, after time.Time) ([]model.Ride, error)
	UpdateRide(ctx context.Context, r *model.Ride, ownerID uint64) error
	DeleteRide(ctx context.Context, id, ownerID uint64) error

	CreateRequest(ctx context.Context, rq *model.RideRequest) error
	GetRequest(ctx context.Context, id uint64) (model.RideRequest, error)
	ListRequestsByRide(ctx context.Context, rideID uint64) ([]model.RideRequest, error)
	ListRequestsByPassenger(ctx context.Context, passengerID uint64) ([]model.RideRequest, error)
	DeleteRequest(ctx context.Context, id, passengerID uint64) error
	DecideRequest(ctx context.Context, id, driverID uint64, status model.RequestStatus, at time.Time) (model.RideRequest, error)

	CreateRating(ctx context.Context, rt *model.Rating) error
	ListRatingsByRide(ctx context.Context, rideID uint64) ([]model.Rating, error)
}

type WorkOrderStore interface {
	CreateWorkOrder(ctx context.Context, w *model.WorkOrder) error
	GetWorkOrder(ctx context.Context, id uint64) (model.WorkOrder, error)
	ListWorkOrdersByManager(ctx context.Context, managerID uint64) ([]model.WorkOrder, error)
	ListWorkOrdersByMechanic(ctx context.Context, mechanicID uint64) ([]model.WorkOrder, error)
	ListWorkOrdersByClient(ctx context.Context, clientID uint64) ([]model.WorkOrder, error)
	UpdateWorkOrder(ctx context.Context, w *model.WorkOrder, ownerID uint64, expected model.WorkOrderStatus) error
	SetWorkOrderStatus(ctx context.Context, id, mechanicID uint64, from, to model.WorkOrderStatus) error
	DeleteWorkOrder(ctx context.Context, id, ownerID uint64) error
}

type ProjectStore interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id uint64) (model.Project, error)
	ListProjectsByOwner(ctx context.Context, ownerID uint64) ([]model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project, ownerID uint64) error
	DeleteProject(ctx context.Context, id, ownerID uint64) error

	CreateTask(ctx context.Context, t *model.Task, ownerID uint64) error
	GetTask(ctx context.Context, id uint64) (model.Task, error)
	ListTasks(ctx context.Context, projectID uint64) ([]model.Task, error)
	UpdateTask(ctx context.Context, t *model.Task, ownerID uint64) error
	DeleteTask(ctx context.Context, id, ownerID uint64) error
	CompleteTask(ctx context.Context, id, ownerID uint64, at time.Time) (model.Task, error)
}
