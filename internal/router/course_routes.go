package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/handler"
	"github.com/iliyamo/rolegate/internal/middleware"
	"github.com/iliyamo/rolegate/internal/role"
)

// RegisterCourses registers the course family on the authenticated group.
// Reads are open to instructors and students; ownership is decided by the
// service.
func RegisterCourses(g *echo.Group, h *handler.CourseHandler) {
	teach := middleware.RequireCapability(role.CapTeach)
	enroll := middleware.RequireCapability(role.CapEnroll)
	either := middleware.RequireCapability(role.CapTeach, role.CapEnroll)

	// ---- Courses ----
	g.GET("/courses", h.ListCourses, either)
	g.POST("/courses", h.CreateCourse, teach)
	g.GET("/courses/:id", h.GetCourse, either)
	g.PUT("/courses/:id", h.UpdateCourse, teach)
	g.DELETE("/courses/:id", h.DeleteCourse, teach)

	// ---- Modules ----
	g.GET("/courses/:id/modules", h.ListModules, either)
	g.POST("/courses/:id/modules", h.CreateModule, teach)
	g.PUT("/modules/:id", h.UpdateModule, teach)
	g.DELETE("/modules/:id", h.DeleteModule, teach)

	// ---- Lessons ----
	g.GET("/modules/:id/lessons", h.ListLessons, either)
	g.POST("/modules/:id/lessons", h.CreateLesson, teach)
	g.PUT("/lessons/:id", h.UpdateLesson, teach)
	g.DELETE("/lessons/:id", h.DeleteLesson, teach)

	// ---- Enrollments ----
	g.GET("/enrollments", h.ListEnrollments, either)
	g.POST("/enrollments", h.Enroll, enroll)
	g.GET("/enrollments/:id", h.GetEnrollment, either)
	g.DELETE("/enrollments/:id", h.DeleteEnrollment, enroll)
}
