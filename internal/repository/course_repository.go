package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/rolegate/internal/model"
)

// CourseRepo persists courses together with their modules, lessons and
// enrollments.  Ownership of modules and lessons is resolved through the
// parent course.
type CourseRepo struct{ DB *sql.DB }

func NewCourseRepo(db *sql.DB) *CourseRepo { return &CourseRepo{DB: db} }

const (
	courseOwnerQuery = "SELECT instructor_id FROM courses WHERE id=? FOR UPDATE"
	moduleOwnerQuery = "SELECT c.instructor_id FROM modules m JOIN courses c ON c.id=m.course_id WHERE m.id=? FOR UPDATE"
	lessonOwnerQuery = "SELECT c.instructor_id FROM lessons l JOIN modules m ON m.id=l.module_id JOIN courses c ON c.id=m.course_id WHERE l.id=? FOR UPDATE"
)

// ---- Courses ----

func (r *CourseRepo) CreateCourse(ctx context.Context, c *model.Course) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO courses (instructor_id, name, description, created_at, updated_at) VALUES (?,?,?,?,?)",
		c.InstructorID, c.Name, c.Description, now, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID, c.CreatedAt, c.UpdatedAt = uint64(id), now, now
	return nil
}

const courseColumns = "id, instructor_id, name, description, created_at, updated_at"

func scanCourse(s interface{ Scan(...any) error }) (model.Course, error) {
	var c model.Course
	err := s.Scan(&c.ID, &c.InstructorID, &c.Name, &c.Description, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (r *CourseRepo) GetCourse(ctx context.Context, id uint64) (model.Course, error) {
	c, err := scanCourse(r.DB.QueryRowContext(ctx, "SELECT "+courseColumns+" FROM courses WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Course{}, ErrNotFound
	}
	return c, err
}

func (r *CourseRepo) ListCourses(ctx context.Context) ([]model.Course, error) {
	return r.listCourses(ctx, "SELECT "+courseColumns+" FROM courses ORDER BY id")
}

func (r *CourseRepo) ListCoursesByInstructor(ctx context.Context, instructorID uint64) ([]model.Course, error) {
	return r.listCourses(ctx, "SELECT "+courseColumns+" FROM courses WHERE instructor_id=? ORDER BY id", instructorID)
}

func (r *CourseRepo) listCourses(ctx context.Context, q string, args ...any) ([]model.Course, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Course{}
	for rows.Next() {
		c, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateCourse replaces name and description of a course owned by ownerID.
func (r *CourseRepo) UpdateCourse(ctx context.Context, c *model.Course, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, courseOwnerQuery, c.ID); err != nil {
			return err
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			"UPDATE courses SET name=?, description=?, updated_at=? WHERE id=? AND instructor_id=?",
			c.Name, c.Description, now, c.ID, ownerID); err != nil {
			return translate(err)
		}
		c.InstructorID, c.UpdatedAt = ownerID, now
		return nil
	})
}

// DeleteCourse removes a course owned by ownerID.  Modules, lessons and
// enrollments cascade.
func (r *CourseRepo) DeleteCourse(ctx context.Context, id, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, courseOwnerQuery, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM courses WHERE id=? AND instructor_id=?", id, ownerID)
		return translate(err)
	})
}

// ---- Modules ----

func (r *CourseRepo) CreateModule(ctx context.Context, m *model.Module) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO modules (course_id, title, position, created_at) VALUES (?,?,?,?)",
		m.CourseID, m.Title, m.Position, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID, m.CreatedAt = uint64(id), now
	return nil
}

func scanModule(s interface{ Scan(...any) error }) (model.Module, error) {
	var m model.Module
	err := s.Scan(&m.ID, &m.CourseID, &m.Title, &m.Position, &m.CreatedAt)
	return m, err
}

func (r *CourseRepo) GetModule(ctx context.Context, id uint64) (model.Module, error) {
	m, err := scanModule(r.DB.QueryRowContext(ctx,
		"SELECT id, course_id, title, position, created_at FROM modules WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Module{}, ErrNotFound
	}
	return m, err
}

func (r *CourseRepo) ListModules(ctx context.Context, courseID uint64) ([]model.Module, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id, course_id, title, position, created_at FROM modules WHERE course_id=? ORDER BY position", courseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Module{}
	for rows.Next() {
		m, err := scanModule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *CourseRepo) UpdateModule(ctx context.Context, m *model.Module, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, moduleOwnerQuery, m.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "UPDATE modules SET title=?, position=? WHERE id=?", m.Title, m.Position, m.ID)
		return translate(err)
	})
}

func (r *CourseRepo) DeleteModule(ctx context.Context, id, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, moduleOwnerQuery, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM modules WHERE id=?", id)
		return translate(err)
	})
}

// ---- Lessons ----

func (r *CourseRepo) CreateLesson(ctx context.Context, l *model.Lesson) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO lessons (module_id, title, content, duration_min, position, created_at) VALUES (?,?,?,?,?,?)",
		l.ModuleID, l.Title, l.Content, l.DurationMin, l.Position, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	l.ID, l.CreatedAt = uint64(id), now
	return nil
}

const lessonColumns = "id, module_id, title, content, duration_min, position, created_at"

func scanLesson(s interface{ Scan(...any) error }) (model.Lesson, error) {
	var l model.Lesson
	err := s.Scan(&l.ID, &l.ModuleID, &l.Title, &l.Content, &l.DurationMin, &l.Position, &l.CreatedAt)
	return l, err
}

func (r *CourseRepo) GetLesson(ctx context.Context, id uint64) (model.Lesson, error) {
	l, err := scanLesson(r.DB.QueryRowContext(ctx, "SELECT "+lessonColumns+" FROM lessons WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Lesson{}, ErrNotFound
	}
	return l, err
}

func (r *CourseRepo) ListLessons(ctx context.Context, moduleID uint64) ([]model.Lesson, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+lessonColumns+" FROM lessons WHERE module_id=? ORDER BY position", moduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Lesson{}
	for rows.Next() {
		l, err := scanLesson(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *CourseRepo) UpdateLesson(ctx context.Context, l *model.Lesson, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, lessonOwnerQuery, l.ID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			"UPDATE lessons SET title=?, content=?, duration_min=?, position=? WHERE id=?",
			l.Title, l.Content, l.DurationMin, l.Position, l.ID)
		return translate(err)
	})
}

func (r *CourseRepo) DeleteLesson(ctx context.Context, id, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, lessonOwnerQuery, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM lessons WHERE id=?", id)
		return translate(err)
	})
}

// ---- Enrollments ----

// CreateEnrollment relies on uq_enrollments_student_course: of two
// concurrent inserts for the same pair exactly one succeeds.
func (r *CourseRepo) CreateEnrollment(ctx context.Context, e *model.Enrollment) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO enrollments (student_id, course_id, enrolled_at) VALUES (?,?,?)",
		e.StudentID, e.CourseID, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID, e.EnrolledAt = uint64(id), now
	return nil
}

func scanEnrollment(s interface{ Scan(...any) error }) (model.Enrollment, error) {
	var e model.Enrollment
	err := s.Scan(&e.ID, &e.StudentID, &e.CourseID, &e.EnrolledAt)
	return e, err
}

func (r *CourseRepo) GetEnrollment(ctx context.Context, id uint64) (model.Enrollment, error) {
	e, err := scanEnrollment(r.DB.QueryRowContext(ctx,
		"SELECT id, student_id, course_id, enrolled_at FROM enrollments WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Enrollment{}, ErrNotFound
	}
	return e, err
}

func (r *CourseRepo) IsEnrolled(ctx context.Context, studentID, courseID uint64) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx,
		"SELECT 1 FROM enrollments WHERE student_id=? AND course_id=? LIMIT 1", studentID, courseID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func (r *CourseRepo) ListEnrollmentsByStudent(ctx context.Context, studentID uint64) ([]model.Enrollment, error) {
	return r.listEnrollments(ctx,
		"SELECT id, student_id, course_id, enrolled_at FROM enrollments WHERE student_id=? ORDER BY id", studentID)
}

// ListEnrollmentsByInstructor lists enrollments in every course taught by instructorID.
func (r *CourseRepo) ListEnrollmentsByInstructor(ctx context.Context, instructorID uint64) ([]model.Enrollment, error) {
	return r.listEnrollments(ctx,
		"SELECT e.id, e.student_id, e.course_id, e.enrolled_at FROM enrollments e JOIN courses c ON c.id=e.course_id WHERE c.instructor_id=? ORDER BY e.id",
		instructorID)
}

func (r *CourseRepo) listEnrollments(ctx context.Context, q string, args ...any) ([]model.Enrollment, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Enrollment{}
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DeleteEnrollment removes an enrollment belonging to studentID.
func (r *CourseRepo) DeleteEnrollment(ctx context.Context, id, studentID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, studentID, "SELECT student_id FROM enrollments WHERE id=? FOR UPDATE", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM enrollments WHERE id=?", id)
		return err
	})
}
