package memstore

import (
	"cmp"
	"context"
	"time"

	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/repository"
)

// ---- Projects ----

func (s *Store) CreateProject(_ context.Context, p *model.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[p.OwnerID]; !ok {
		return repository.ErrNotFound
	}
	now := s.now()
	p.ID, p.CreatedAt, p.UpdatedAt = s.nextID(), now, now
	s.projects[p.ID] = *p
	return nil
}

func (s *Store) GetProject(_ context.Context, id uint64) (model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return model.Project{}, repository.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProjectsByOwner(_ context.Context, ownerID uint64) ([]model.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.projects, func(p model.Project) bool { return p.OwnerID == ownerID },
		func(a, b model.Project) int { return cmp.Compare(a.ID, b.ID) }), nil
}

func (s *Store) projectOwnerLocked(id, ownerID uint64) error {
	p, ok := s.projects[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.OwnerID != ownerID {
		return repository.ErrForbidden
	}
	return nil
}

func (s *Store) UpdateProject(_ context.Context, p *model.Project, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.projectOwnerLocked(p.ID, ownerID); err != nil {
		return err
	}
	cur := s.projects[p.ID]
	cur.Name, cur.Description, cur.UpdatedAt = p.Name, p.Description, s.now()
	s.projects[p.ID] = cur
	*p = cur
	return nil
}

// DeleteProject cascades to the project's tasks.
func (s *Store) DeleteProject(_ context.Context, id, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.projectOwnerLocked(id, ownerID); err != nil {
		return err
	}
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	delete(s.projects, id)
	return nil
}

// ---- Tasks ----

func (s *Store) CreateTask(_ context.Context, t *model.Task, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.projectOwnerLocked(t.ProjectID, ownerID); err != nil {
		return err
	}
	t.ID, t.CreatedAt, t.Done, t.CompletedAt = s.nextID(), s.now(), false, nil
	s.tasks[t.ID] = *t
	return nil
}

func (s *Store) GetTask(_ context.Context, id uint64) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, repository.ErrNotFound
	}
	return t, nil
}

func (s *Store) ListTasks(_ context.Context, projectID uint64) ([]model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.tasks, func(t model.Task) bool { return t.ProjectID == projectID },
		func(a, b model.Task) int { return cmp.Compare(a.ID, b.ID) }), nil
}

// taskOwnerLocked resolves the owner through the parent project.
func (s *Store) taskOwnerLocked(id, ownerID uint64) (model.Task, error) {
	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, repository.ErrNotFound
	}
	if err := s.projectOwnerLocked(t.ProjectID, ownerID); err != nil {
		return model.Task{}, err
	}
	return t, nil
}

func (s *Store) UpdateTask(_ context.Context, t *model.Task, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.taskOwnerLocked(t.ID, ownerID)
	if err != nil {
		return err
	}
	cur.Title, cur.Description = t.Title, t.Description
	s.tasks[t.ID] = cur
	*t = cur
	return nil
}

func (s *Store) DeleteTask(_ context.Context, id, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.taskOwnerLocked(id, ownerID); err != nil {
		return err
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) CompleteTask(_ context.Context, id, ownerID uint64, at time.Time) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.taskOwnerLocked(id, ownerID)
	if err != nil {
		return model.Task{}, err
	}
	if t.Done {
		return model.Task{}, repository.ErrConflict
	}
	ts := at.UTC()
	t.Done, t.CompletedAt = true, &ts
	s.tasks[id] = t
	return t, nil
}
