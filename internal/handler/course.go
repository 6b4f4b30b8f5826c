package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/service"
)

// CourseHandler serves courses, modules, lessons and enrollments.
type CourseHandler struct {
	Courses *service.CourseService
	// Cache is purged after a course write; nil disables purging.
	Cache CachePurger
}

func NewCourseHandler(s *service.CourseService, cache CachePurger) *CourseHandler {
	return &CourseHandler{Courses: s, Cache: cache}
}

type courseReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type moduleReq struct {
	Title    string `json:"title"`
	Position int    `json:"position"`
}

type lessonReq struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	DurationMin int    `json:"duration_min"`
	Position    int    `json:"position"`
}

type enrollReq struct {
	CourseID uint64 `json:"course_id"`
}

func (h *CourseHandler) purge(c echo.Context) {
	if h.Cache != nil {
		h.Cache.Purge(c.Request().Context())
	}
}

// Catalog is the public course list.
func (h *CourseHandler) Catalog(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.Catalog(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) ListCourses(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.ListCourses(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) GetCourse(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "course")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.GetCourse(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) CreateCourse(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req courseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.CreateCourse(ctx, p, service.CourseInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	h.purge(c)
	return c.JSON(http.StatusCreated, out)
}

func (h *CourseHandler) UpdateCourse(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "course")
	if err != nil {
		return err
	}
	var req courseReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.UpdateCourse(ctx, p, id, service.CourseInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	h.purge(c)
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) DeleteCourse(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "course")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Courses.DeleteCourse(ctx, p, id); err != nil {
		return err
	}
	h.purge(c)
	return c.NoContent(http.StatusNoContent)
}

// ---- Modules ----

func (h *CourseHandler) ListModules(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "course")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.ListModules(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) CreateModule(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "course")
	if err != nil {
		return err
	}
	var req moduleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.CreateModule(ctx, p, id, service.ModuleInput{Title: req.Title, Position: req.Position})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CourseHandler) UpdateModule(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "module")
	if err != nil {
		return err
	}
	var req moduleReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.UpdateModule(ctx, p, id, service.ModuleInput{Title: req.Title, Position: req.Position})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) DeleteModule(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "module")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Courses.DeleteModule(ctx, p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Lessons ----

func (r lessonReq) input() service.LessonInput {
	return service.LessonInput{Title: r.Title, Content: r.Content, DurationMin: r.DurationMin, Position: r.Position}
}

func (h *CourseHandler) ListLessons(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "module")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.ListLessons(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) CreateLesson(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "module")
	if err != nil {
		return err
	}
	var req lessonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.CreateLesson(ctx, p, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CourseHandler) UpdateLesson(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "lesson")
	if err != nil {
		return err
	}
	var req lessonReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.UpdateLesson(ctx, p, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) DeleteLesson(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "lesson")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Courses.DeleteLesson(ctx, p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Enrollments ----

func (h *CourseHandler) Enroll(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req enrollReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.Enroll(ctx, p, req.CourseID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *CourseHandler) ListEnrollments(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.ListEnrollments(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) GetEnrollment(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "enrollment")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Courses.GetEnrollment(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *CourseHandler) DeleteEnrollment(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "enrollment")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Courses.DeleteEnrollment(ctx, p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
