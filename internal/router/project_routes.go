package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/handler"
)

// RegisterProjects registers personal projects and tasks.  Any
// authenticated account may use them; the service scopes everything to
// the owner.
func RegisterProjects(g *echo.Group, h *handler.ProjectHandler) {
	// ---- Projects ----
	g.GET("/projects", h.ListProjects)
	g.POST("/projects", h.CreateProject)
	g.GET("/projects/:id", h.GetProject)
	g.PUT("/projects/:id", h.UpdateProject)
	g.DELETE("/projects/:id", h.DeleteProject)

	// ---- Tasks ----
	g.GET("/projects/:id/tasks", h.ListTasks)
	g.POST("/projects/:id/tasks", h.CreateTask)
	g.GET("/tasks/:id", h.GetTask)
	g.PUT("/tasks/:id", h.UpdateTask)
	g.DELETE("/tasks/:id", h.DeleteTask)
	g.PATCH("/tasks/:id/complete", h.CompleteTask)
}
