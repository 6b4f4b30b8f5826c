package service

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/queue"
	"github.com/iliyamo/rolegate/internal/repository"
	"github.com/iliyamo/rolegate/internal/role"
)

// CourseService guards courses, their modules and lessons, and the
// enrollments of students.
type CourseService struct {
	store  CourseStore
	events emitter
}

func NewCourseService(store CourseStore, pub queue.Publisher, log *zap.Logger) *CourseService {
	return &CourseService{store: store, events: newEmitter(pub, log)}
}

// CourseInput is the create/replace payload of a course.
type CourseInput struct {
	Name        string
	Description string
}

func (in CourseInput) validate() error {
	fe := fieldErrors{}
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		fe.add("name", "required")
	case len(name) > 200:
		fe.add("name", "must be at most 200 characters")
	}
	return fe.err()
}

// CatalogEntry is the public view of a course.
type CatalogEntry struct {
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func require(p role.Principal, c role.Capability) error {
	if !p.Role.Has(c) {
		return apperr.Forbidden("role " + string(p.Role) + " lacks the " + c.String() + " capability")
	}
	return nil
}

// Catalog lists every course for anonymous visitors.
func (s *CourseService) Catalog(ctx context.Context) ([]CatalogEntry, error) {
	cs, err := s.store.ListCourses(ctx)
	if err != nil {
		return nil, storeErr(err, "course")
	}
	out := make([]CatalogEntry, 0, len(cs))
	for _, c := range cs {
		out = append(out, CatalogEntry{ID: c.ID, Name: c.Name, Description: c.Description})
	}
	return out, nil
}

// ListCourses returns the instructor's own courses, or the whole catalog
// for a student.
func (s *CourseService) ListCourses(ctx context.Context, p role.Principal) ([]model.Course, error) {
	var (
		cs  []model.Course
		err error
	)
	switch {
	case p.Role.Has(role.CapTeach):
		cs, err = s.store.ListCoursesByInstructor(ctx, p.AccountID)
	case p.Role.Has(role.CapEnroll):
		cs, err = s.store.ListCourses(ctx)
	default:
		return nil, apperr.Forbidden("role " + string(p.Role) + " cannot list courses")
	}
	if err != nil {
		return nil, storeErr(err, "course")
	}
	return cs, nil
}

// GetCourse is visible to its instructor and to every student.
func (s *CourseService) GetCourse(ctx context.Context, p role.Principal, id uint64) (model.Course, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return model.Course{}, storeErr(err, "course")
	}
	if role.Can(p, role.CapTeach, c.InstructorID) || p.Role.Has(role.CapEnroll) {
		return c, nil
	}
	return model.Course{}, apperr.Forbidden("you do not own this course")
}

func (s *CourseService) CreateCourse(ctx context.Context, p role.Principal, in CourseInput) (model.Course, error) {
	if err := require(p, role.CapTeach); err != nil {
		return model.Course{}, err
	}
	if err := in.validate(); err != nil {
		return model.Course{}, err
	}
	c := model.Course{InstructorID: p.AccountID, Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.store.CreateCourse(ctx, &c); err != nil {
		return model.Course{}, storeErr(err, "course")
	}
	return c, nil
}

func (s *CourseService) UpdateCourse(ctx context.Context, p role.Principal, id uint64, in CourseInput) (model.Course, error) {
	if err := require(p, role.CapTeach); err != nil {
		return model.Course{}, err
	}
	if err := in.validate(); err != nil {
		return model.Course{}, err
	}
	c := model.Course{ID: id, Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.store.UpdateCourse(ctx, &c, p.AccountID); err != nil {
		return model.Course{}, storeErr(err, "course")
	}
	return c, nil
}

func (s *CourseService) DeleteCourse(ctx context.Context, p role.Principal, id uint64) error {
	if err := require(p, role.CapTeach); err != nil {
		return err
	}
	return storeErr(s.store.DeleteCourse(ctx, id, p.AccountID), "course")
}

// canReadCourse: the course owner, or a student enrolled in it.
func (s *CourseService) canReadCourse(ctx context.Context, p role.Principal, c model.Course) error {
	if role.Can(p, role.CapTeach, c.InstructorID) {
		return nil
	}
	if p.Role.Has(role.CapEnroll) {
		ok, err := s.store.IsEnrolled(ctx, p.AccountID, c.ID)
		if err != nil {
			return apperr.Internal(err)
		}
		if ok {
			return nil
		}
		return apperr.Forbidden("you are not enrolled in this course")
	}
	return apperr.Forbidden("you do not own this course")
}

func (s *CourseService) ownedCourse(ctx context.Context, p role.Principal, id uint64) (model.Course, error) {
	c, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return model.Course{}, storeErr(err, "course")
	}
	if !role.Can(p, role.CapTeach, c.InstructorID) {
		return model.Course{}, apperr.Forbidden("you do not own this course")
	}
	return c, nil
}

// ---- Modules ----

// ModuleInput is the create/replace payload of a module.
type ModuleInput struct {
	Title    string
	Position int
}

func (in ModuleInput) validate() error {
	fe := fieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		fe.add("title", "required")
	}
	if in.Position < 1 {
		fe.add("position", "must be a positive integer")
	}
	return fe.err()
}

func (s *CourseService) ListModules(ctx context.Context, p role.Principal, courseID uint64) ([]model.Module, error) {
	c, err := s.store.GetCourse(ctx, courseID)
	if err != nil {
		return nil, storeErr(err, "course")
	}
	if err := s.canReadCourse(ctx, p, c); err != nil {
		return nil, err
	}
	ms, err := s.store.ListModules(ctx, courseID)
	if err != nil {
		return nil, storeErr(err, "module")
	}
	return ms, nil
}

func (s *CourseService) CreateModule(ctx context.Context, p role.Principal, courseID uint64, in ModuleInput) (model.Module, error) {
	if _, err := s.ownedCourse(ctx, p, courseID); err != nil {
		return model.Module{}, err
	}
	if err := in.validate(); err != nil {
		return model.Module{}, err
	}
	m := model.Module{CourseID: courseID, Title: strings.TrimSpace(in.Title), Position: in.Position}
	if err := s.store.CreateModule(ctx, &m); err != nil {
		return model.Module{}, storeErr(err, "module")
	}
	return m, nil
}

func (s *CourseService) UpdateModule(ctx context.Context, p role.Principal, id uint64, in ModuleInput) (model.Module, error) {
	if err := in.validate(); err != nil {
		return model.Module{}, err
	}
	m := model.Module{ID: id, Title: strings.TrimSpace(in.Title), Position: in.Position}
	if err := s.store.UpdateModule(ctx, &m, p.AccountID); err != nil {
		return model.Module{}, storeErr(err, "module")
	}
	return m, nil
}

func (s *CourseService) DeleteModule(ctx context.Context, p role.Principal, id uint64) error {
	return storeErr(s.store.DeleteModule(ctx, id, p.AccountID), "module")
}

// ---- Lessons ----

// LessonInput is the create/replace payload of a lesson.
type LessonInput struct {
	Title       string
	Content     string
	DurationMin int
	Position    int
}

func (in LessonInput) validate() error {
	fe := fieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		fe.add("title", "required")
	}
	if in.DurationMin < 0 {
		fe.add("duration_min", "must not be negative")
	}
	if in.Position < 1 {
		fe.add("position", "must be a positive integer")
	}
	return fe.err()
}

func (s *CourseService) ListLessons(ctx context.Context, p role.Principal, moduleID uint64) ([]model.Lesson, error) {
	m, err := s.store.GetModule(ctx, moduleID)
	if err != nil {
		return nil, storeErr(err, "module")
	}
	c, err := s.store.GetCourse(ctx, m.CourseID)
	if err != nil {
		return nil, storeErr(err, "module")
	}
	if err := s.canReadCourse(ctx, p, c); err != nil {
		return nil, err
	}
	ls, err := s.store.ListLessons(ctx, moduleID)
	if err != nil {
		return nil, storeErr(err, "lesson")
	}
	return ls, nil
}

func (s *CourseService) CreateLesson(ctx context.Context, p role.Principal, moduleID uint64, in LessonInput) (model.Lesson, error) {
	m, err := s.store.GetModule(ctx, moduleID)
	if err != nil {
		return model.Lesson{}, storeErr(err, "module")
	}
	if _, err := s.ownedCourse(ctx, p, m.CourseID); err != nil {
		return model.Lesson{}, err
	}
	if err := in.validate(); err != nil {
		return model.Lesson{}, err
	}
	l := model.Lesson{
		ModuleID:    moduleID,
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		DurationMin: in.DurationMin,
		Position:    in.Position,
	}
	if err := s.store.CreateLesson(ctx, &l); err != nil {
		return model.Lesson{}, storeErr(err, "lesson")
	}
	return l, nil
}

func (s *CourseService) UpdateLesson(ctx context.Context, p role.Principal, id uint64, in LessonInput) (model.Lesson, error) {
	if err := in.validate(); err != nil {
		return model.Lesson{}, err
	}
	l := model.Lesson{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Content:     in.Content,
		DurationMin: in.DurationMin,
		Position:    in.Position,
	}
	if err := s.store.UpdateLesson(ctx, &l, p.AccountID); err != nil {
		return model.Lesson{}, storeErr(err, "lesson")
	}
	return l, nil
}

func (s *CourseService) DeleteLesson(ctx context.Context, p role.Principal, id uint64) error {
	return storeErr(s.store.DeleteLesson(ctx, id, p.AccountID), "lesson")
}

// ---- Enrollments ----

// Enroll registers the calling student in a course.  Of two concurrent
// attempts exactly one succeeds; the other is a duplicate on course_id.
func (s *CourseService) Enroll(ctx context.Context, p role.Principal, courseID uint64) (model.Enrollment, error) {
	if err := require(p, role.CapEnroll); err != nil {
		return model.Enrollment{}, err
	}
	if courseID == 0 {
		return model.Enrollment{}, apperr.Validation(map[string]string{"course_id": "required"})
	}
	e := model.Enrollment{StudentID: p.AccountID, CourseID: courseID}
	if err := s.store.CreateEnrollment(ctx, &e); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Enrollment{}, apperr.Validation(map[string]string{"course_id": "course does not exist"})
		}
		return model.Enrollment{}, storeErr(err, "enrollment")
	}
	s.events.emit(ctx, queue.EventEnrollmentCreated, p.AccountID, e.ID, "course="+strconv.FormatUint(courseID, 10))
	return e, nil
}

// ListEnrollments returns the student's own enrollments, or those of the
// instructor's courses.
func (s *CourseService) ListEnrollments(ctx context.Context, p role.Principal) ([]model.Enrollment, error) {
	var (
		es  []model.Enrollment
		err error
	)
	switch {
	case p.Role.Has(role.CapEnroll):
		es, err = s.store.ListEnrollmentsByStudent(ctx, p.AccountID)
	case p.Role.Has(role.CapTeach):
		es, err = s.store.ListEnrollmentsByInstructor(ctx, p.AccountID)
	default:
		return nil, apperr.Forbidden("role " + string(p.Role) + " has no enrollments")
	}
	if err != nil {
		return nil, storeErr(err, "enrollment")
	}
	return es, nil
}

// GetEnrollment shows an enrollment to its student or to the instructor of
// the course.
func (s *CourseService) GetEnrollment(ctx context.Context, p role.Principal, id uint64) (model.Enrollment, error) {
	e, err := s.store.GetEnrollment(ctx, id)
	if err != nil {
		return model.Enrollment{}, storeErr(err, "enrollment")
	}
	if role.Can(p, role.CapEnroll, e.StudentID) {
		return e, nil
	}
	c, err := s.store.GetCourse(ctx, e.CourseID)
	if err != nil {
		return model.Enrollment{}, storeErr(err, "course")
	}
	if !role.Can(p, role.CapTeach, c.InstructorID) {
		return model.Enrollment{}, apperr.Forbidden("not your enrollment")
	}
	return e, nil
}

func (s *CourseService) DeleteEnrollment(ctx context.Context, p role.Principal, id uint64) error {
	return storeErr(s.store.DeleteEnrollment(ctx, id, p.AccountID), "enrollment")
}
