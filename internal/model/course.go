package model

import "time"

// Course is owned by the instructor who created it (`courses` table).
// Names are unique across the catalog.
type Course struct {
	ID           uint64    `json:"id"`
	InstructorID uint64    `json:"instructor_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Module is an ordered section of a course.  (CourseID, Position) is unique.
type Module struct {
	ID        uint64    `json:"id"`
	CourseID  uint64    `json:"course_id"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

// Lesson belongs to a module and inherits the course owner.
type Lesson struct {
	ID          uint64    `json:"id"`
	ModuleID    uint64    `json:"module_id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	DurationMin int       `json:"duration_min"`
	Position    int       `json:"position"`
	CreatedAt   time.Time `json:"created_at"`
}

// Enrollment links a student to a course.  (StudentID, CourseID) is unique.
type Enrollment struct {
	ID         uint64    `json:"id"`
	StudentID  uint64    `json:"student_id"`
	CourseID   uint64    `json:"course_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
}
