package memstore

import (
	"cmp"
	"context"
	"slices"

	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/repository"
)

// ---- Courses ----

func (s *Store) CreateCourse(_ context.Context, c *model.Course) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.courseNameTaken(c.Name, 0) {
		return dup("name")
	}
	if _, ok := s.accounts[c.InstructorID]; !ok {
		return repository.ErrNotFound
	}
	now := s.now()
	c.ID, c.CreatedAt, c.UpdatedAt = s.nextID(), now, now
	s.courses[c.ID] = *c
	return nil
}

func (s *Store) courseNameTaken(name string, except uint64) bool {
	for id, c := range s.courses {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func (s *Store) GetCourse(_ context.Context, id uint64) (model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.courses[id]
	if !ok {
		return model.Course{}, repository.ErrNotFound
	}
	return c, nil
}

func (s *Store) ListCourses(_ context.Context) ([]model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.courses, func(model.Course) bool { return true }, courseID), nil
}

func (s *Store) ListCoursesByInstructor(_ context.Context, instructorID uint64) ([]model.Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.courses, func(c model.Course) bool { return c.InstructorID == instructorID }, courseID), nil
}

// courseOwnerLocked applies existence-then-ownership to a course.
func (s *Store) courseOwnerLocked(id, ownerID uint64) error {
	c, ok := s.courses[id]
	if !ok {
		return repository.ErrNotFound
	}
	if c.InstructorID != ownerID {
		return repository.ErrForbidden
	}
	return nil
}

func (s *Store) UpdateCourse(_ context.Context, c *model.Course, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.courseOwnerLocked(c.ID, ownerID); err != nil {
		return err
	}
	if s.courseNameTaken(c.Name, c.ID) {
		return dup("name")
	}
	cur := s.courses[c.ID]
	cur.Name, cur.Description, cur.UpdatedAt = c.Name, c.Description, s.now()
	s.courses[c.ID] = cur
	*c = cur
	return nil
}

// DeleteCourse cascades to modules, lessons and enrollments.
func (s *Store) DeleteCourse(_ context.Context, id, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.courseOwnerLocked(id, ownerID); err != nil {
		return err
	}
	for mid, m := range s.modules {
		if m.CourseID == id {
			s.deleteModuleLocked(mid)
		}
	}
	for eid, e := range s.enrollments {
		if e.CourseID == id {
			delete(s.enrollments, eid)
		}
	}
	delete(s.courses, id)
	return nil
}

// ---- Modules ----

func (s *Store) modulePositionTaken(courseID uint64, pos int, except uint64) bool {
	for id, m := range s.modules {
		if id != except && m.CourseID == courseID && m.Position == pos {
			return true
		}
	}
	return false
}

func (s *Store) CreateModule(_ context.Context, m *model.Module) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[m.CourseID]; !ok {
		return repository.ErrNotFound
	}
	if s.modulePositionTaken(m.CourseID, m.Position, 0) {
		return dup("position")
	}
	m.ID, m.CreatedAt = s.nextID(), s.now()
	s.modules[m.ID] = *m
	return nil
}

func (s *Store) GetModule(_ context.Context, id uint64) (model.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.modules[id]
	if !ok {
		return model.Module{}, repository.ErrNotFound
	}
	return m, nil
}

func (s *Store) ListModules(_ context.Context, courseID uint64) ([]model.Module, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.modules, func(m model.Module) bool { return m.CourseID == courseID },
		func(a, b model.Module) int { return cmp.Compare(a.Position, b.Position) }), nil
}

func (s *Store) moduleOwnerLocked(id, ownerID uint64) error {
	m, ok := s.modules[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.courses[m.CourseID].InstructorID != ownerID {
		return repository.ErrForbidden
	}
	return nil
}

func (s *Store) UpdateModule(_ context.Context, m *model.Module, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.moduleOwnerLocked(m.ID, ownerID); err != nil {
		return err
	}
	cur := s.modules[m.ID]
	if s.modulePositionTaken(cur.CourseID, m.Position, m.ID) {
		return dup("position")
	}
	cur.Title, cur.Position = m.Title, m.Position
	s.modules[m.ID] = cur
	*m = cur
	return nil
}

func (s *Store) DeleteModule(_ context.Context, id, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.moduleOwnerLocked(id, ownerID); err != nil {
		return err
	}
	s.deleteModuleLocked(id)
	return nil
}

func (s *Store) deleteModuleLocked(id uint64) {
	for lid, l := range s.lessons {
		if l.ModuleID == id {
			delete(s.lessons, lid)
		}
	}
	delete(s.modules, id)
}

// ---- Lessons ----

func (s *Store) lessonPositionTaken(moduleID uint64, pos int, except uint64) bool {
	for id, l := range s.lessons {
		if id != except && l.ModuleID == moduleID && l.Position == pos {
			return true
		}
	}
	return false
}

func (s *Store) CreateLesson(_ context.Context, l *model.Lesson) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[l.ModuleID]; !ok {
		return repository.ErrNotFound
	}
	if s.lessonPositionTaken(l.ModuleID, l.Position, 0) {
		return dup("position")
	}
	l.ID, l.CreatedAt = s.nextID(), s.now()
	s.lessons[l.ID] = *l
	return nil
}

func (s *Store) GetLesson(_ context.Context, id uint64) (model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	if !ok {
		return model.Lesson{}, repository.ErrNotFound
	}
	return l, nil
}

func (s *Store) ListLessons(_ context.Context, moduleID uint64) ([]model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.lessons, func(l model.Lesson) bool { return l.ModuleID == moduleID },
		func(a, b model.Lesson) int { return cmp.Compare(a.Position, b.Position) }), nil
}

func (s *Store) lessonOwnerLocked(id, ownerID uint64) error {
	l, ok := s.lessons[id]
	if !ok {
		return repository.ErrNotFound
	}
	return s.moduleOwnerLocked(l.ModuleID, ownerID)
}

func (s *Store) UpdateLesson(_ context.Context, l *model.Lesson, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lessonOwnerLocked(l.ID, ownerID); err != nil {
		return err
	}
	cur := s.lessons[l.ID]
	if s.lessonPositionTaken(cur.ModuleID, l.Position, l.ID) {
		return dup("position")
	}
	cur.Title, cur.Content, cur.DurationMin, cur.Position = l.Title, l.Content, l.DurationMin, l.Position
	s.lessons[l.ID] = cur
	*l = cur
	return nil
}

func (s *Store) DeleteLesson(_ context.Context, id, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.lessonOwnerLocked(id, ownerID); err != nil {
		return err
	}
	delete(s.lessons, id)
	return nil
}

// ---- Enrollments ----

func (s *Store) CreateEnrollment(_ context.Context, e *model.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.courses[e.CourseID]; !ok {
		return repository.ErrNotFound
	}
	for _, cur := range s.enrollments {
		if cur.StudentID == e.StudentID && cur.CourseID == e.CourseID {
			return dup("course_id")
		}
	}
	e.ID, e.EnrolledAt = s.nextID(), s.now()
	s.enrollments[e.ID] = *e
	return nil
}

func (s *Store) GetEnrollment(_ context.Context, id uint64) (model.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return model.Enrollment{}, repository.ErrNotFound
	}
	return e, nil
}

func (s *Store) IsEnrolled(_ context.Context, studentID, courseID uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListEnrollmentsByStudent(_ context.Context, studentID uint64) ([]model.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.enrollments, func(e model.Enrollment) bool { return e.StudentID == studentID }, enrollmentID), nil
}

func (s *Store) ListEnrollmentsByInstructor(_ context.Context, instructorID uint64) ([]model.Enrollment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.enrollments, func(e model.Enrollment) bool {
		return s.courses[e.CourseID].InstructorID == instructorID
	}, enrollmentID), nil
}

func (s *Store) DeleteEnrollment(_ context.Context, id, studentID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.enrollments[id]
	if !ok {
		return repository.ErrNotFound
	}
	if e.StudentID != studentID {
		return repository.ErrForbidden
	}
	delete(s.enrollments, id)
	return nil
}

// collect filters m and returns the matches sorted with order.
func collect[T any](m map[uint64]T, keep func(T) bool, order func(a, b T) int) []T {
	out := []T{}
	for _, v := range m {
		if keep(v) {
			out = append(out, v)
		}
	}
	slices.SortFunc(out, order)
	return out
}

func courseID(a, b model.Course) int         { return cmp.Compare(a.ID, b.ID) }
func enrollmentID(a, b model.Enrollment) int { return cmp.Compare(a.ID, b.ID) }
