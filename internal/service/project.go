package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/queue"
	"github.com/iliyamo/rolegate/internal/repository"
	"github.com/iliyamo/rolegate/internal/role"
)

// ProjectService guards personal projects and their tasks.  Every
// authenticated account may keep projects; nobody sees another account's.
type ProjectService struct {
	store  ProjectStore
	events emitter
	now    func() time.Time
}

func NewProjectService(store ProjectStore, pub queue.Publisher, log *zap.Logger) *ProjectService {
	return &ProjectService{store: store, events: newEmitter(pub, log), now: time.Now}
}

// ProjectInput is the create/replace payload of a project.
type ProjectInput struct {
	Name        string
	Description string
}

func (in ProjectInput) validate() error {
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

func (s *ProjectService) ListProjects(ctx context.Context, p role.Principal) ([]model.Project, error) {
	ps, err := s.store.ListProjectsByOwner(ctx, p.AccountID)
	if err != nil {
		return nil, storeErr(err, "project")
	}
	return ps, nil
}

func (s *ProjectService) ownedProject(ctx context.Context, p role.Principal, id uint64) (model.Project, error) {
	pr, err := s.store.GetProject(ctx, id)
	if err != nil {
		return model.Project{}, storeErr(err, "project")
	}
	if pr.OwnerID != p.AccountID {
		return model.Project{}, apperr.Forbidden("you do not own this project")
	}
	return pr, nil
}

func (s *ProjectService) GetProject(ctx context.Context, p role.Principal, id uint64) (model.Project, error) {
	return s.ownedProject(ctx, p, id)
}

func (s *ProjectService) CreateProject(ctx context.Context, p role.Principal, in ProjectInput) (model.Project, error) {
	if err := in.validate(); err != nil {
		return model.Project{}, err
	}
	pr := model.Project{OwnerID: p.AccountID, Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.store.CreateProject(ctx, &pr); err != nil {
		return model.Project{}, storeErr(err, "project")
	}
	return pr, nil
}

func (s *ProjectService) UpdateProject(ctx context.Context, p role.Principal, id uint64, in ProjectInput) (model.Project, error) {
	if err := in.validate(); err != nil {
		return model.Project{}, err
	}
	pr := model.Project{ID: id, Name: strings.TrimSpace(in.Name), Description: in.Description}
	if err := s.store.UpdateProject(ctx, &pr, p.AccountID); err != nil {
		return model.Project{}, storeErr(err, "project")
	}
	return pr, nil
}

func (s *ProjectService) DeleteProject(ctx context.Context, p role.Principal, id uint64) error {
	return storeErr(s.store.DeleteProject(ctx, id, p.AccountID), "project")
}

// ---- Tasks ----

// TaskInput is the create/replace payload of a task.
type TaskInput struct {
	Title       string
	Description string
}

func (in TaskInput) validate() error {
	fe := fieldErrors{}
	title := strings.TrimSpace(in.Title)
	switch {
	case title == "":
		fe.add("title", "required")
	case len(title) > 200:
		fe.add("title", "must be at most 200 characters")
	}
	return fe.err()
}

func (s *ProjectService) ListTasks(ctx context.Context, p role.Principal, projectID uint64) ([]model.Task, error) {
	if _, err := s.ownedProject(ctx, p, projectID); err != nil {
		return nil, err
	}
	ts, err := s.store.ListTasks(ctx, projectID)
	if err != nil {
		return nil, storeErr(err, "task")
	}
	return ts, nil
}

func (s *ProjectService) CreateTask(ctx context.Context, p role.Principal, projectID uint64, in TaskInput) (model.Task, error) {
	if err := in.validate(); err != nil {
		return model.Task{}, err
	}
	t := model.Task{ProjectID: projectID, Title: strings.TrimSpace(in.Title), Description: in.Description}
	if err := s.store.CreateTask(ctx, &t, p.AccountID); err != nil {
		return model.Task{}, storeErr(err, "project")
	}
	return t, nil
}

// GetTask shows a task to the owner of its project.
func (s *ProjectService) GetTask(ctx context.Context, p role.Principal, id uint64) (model.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return model.Task{}, storeErr(err, "task")
	}
	if _, err := s.ownedProject(ctx, p, t.ProjectID); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (s *ProjectService) UpdateTask(ctx context.Context, p role.Principal, id uint64, in TaskInput) (model.Task, error) {
	if err := in.validate(); err != nil {
		return model.Task{}, err
	}
	t := model.Task{ID: id, Title: strings.TrimSpace(in.Title), Description: in.Description}
	if err := s.store.UpdateTask(ctx, &t, p.AccountID); err != nil {
		return model.Task{}, storeErr(err, "task")
	}
	return t, nil
}

func (s *ProjectService) DeleteTask(ctx context.Context, p role.Principal, id uint64) error {
	return storeErr(s.store.DeleteTask(ctx, id, p.AccountID), "task")
}

// CompleteTask marks a task done.  It fires once: completing a done task
// is a conflict and emits nothing.
func (s *ProjectService) CompleteTask(ctx context.Context, p role.Principal, id uint64) (model.Task, error) {
	t, err := s.store.CompleteTask(ctx, id, p.AccountID, s.now())
	if errors.Is(err, repository.ErrConflict) {
		return model.Task{}, apperr.Conflict("task is already completed")
	}
	if err != nil {
		return model.Task{}, storeErr(err, "task")
	}
	s.events.emit(ctx, queue.EventTaskCompleted, p.AccountID, t.ID, "project="+strconv.FormatUint(t.ProjectID, 10))
	return t, nil
}
