package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/service"
)

// ProjectHandler serves personal projects and their tasks.
type ProjectHandler struct {
	Projects *service.ProjectService
}

func NewProjectHandler(s *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{Projects: s}
}

type projectReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r projectReq) input() service.ProjectInput {
	return service.ProjectInput{Name: r.Name, Description: r.Description}
}

type taskReq struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (r taskReq) input() service.TaskInput {
	return service.TaskInput{Title: r.Title, Description: r.Description}
}

// ---- Projects ----

func (h *ProjectHandler) ListProjects(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Projects.ListProjects(ctx, p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProjectHandler) GetProject(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "project")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Projects.GetProject(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProjectHandler) CreateProject(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req projectReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Projects.CreateProject(ctx, p, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ProjectHandler) UpdateProject(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "project")
	if err != nil {
		return err
	}
	var req projectReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Projects.UpdateProject(ctx, p, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProjectHandler) DeleteProject(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "project")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Projects.DeleteProject(ctx, p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// ---- Tasks ----

func (h *ProjectHandler) ListTasks(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "project")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Projects.ListTasks(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProjectHandler) CreateTask(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "project")
	if err != nil {
		return err
	}
	var req taskReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Projects.CreateTask(ctx, p, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, out)
}

func (h *ProjectHandler) GetTask(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "task")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Projects.GetTask(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProjectHandler) UpdateTask(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "task")
	if err != nil {
		return err
	}
	var req taskReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Projects.UpdateTask(ctx, p, id, req.input())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProjectHandler) DeleteTask(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "task")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Projects.DeleteTask(ctx, p, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// CompleteTask marks the task done; a second call is 409.
func (h *ProjectHandler) CompleteTask(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id", "task")
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Projects.CompleteTask(ctx, p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
