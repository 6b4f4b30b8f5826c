package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/rolegate/internal/model"
)

// ProjectRepo persists projects and their tasks.  Task ownership is
// resolved through the parent project.
type ProjectRepo struct{ DB *sql.DB }

func NewProjectRepo(db *sql.DB) *ProjectRepo { return &ProjectRepo{DB: db} }

const (
	projectOwnerQuery = "SELECT owner_id FROM projects WHERE id=? FOR UPDATE"
	taskOwnerQuery    = "SELECT p.owner_id FROM tasks t JOIN projects p ON p.id=t.project_id WHERE t.id=? FOR UPDATE"
)

// ---- Projects ----

func (r *ProjectRepo) CreateProject(ctx context.Context, p *model.Project) error {
	now := time.Now().UTC()
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO projects (owner_id, name, description, created_at, updated_at) VALUES (?,?,?,?,?)",
		p.OwnerID, p.Name, p.Description, now, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID, p.CreatedAt, p.UpdatedAt = uint64(id), now, now
	return nil
}

const projectColumns = "id, owner_id, name, description, created_at, updated_at"

func scanProject(s interface{ Scan(...any) error }) (model.Project, error) {
	var p model.Project
	err := s.Scan(&p.ID, &p.OwnerID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *ProjectRepo) GetProject(ctx context.Context, id uint64) (model.Project, error) {
	p, err := scanProject(r.DB.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Project{}, ErrNotFound
	}
	return p, err
}

func (r *ProjectRepo) ListProjectsByOwner(ctx context.Context, ownerID uint64) ([]model.Project, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE owner_id=? ORDER BY id", ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProjectRepo) UpdateProject(ctx context.Context, p *model.Project, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, projectOwnerQuery, p.ID); err != nil {
			return err
		}
		now := time.Now().UTC()
		if _, err := tx.ExecContext(ctx,
			"UPDATE projects SET name=?, description=?, updated_at=? WHERE id=? AND owner_id=?",
			p.Name, p.Description, now, p.ID, ownerID); err != nil {
			return translate(err)
		}
		p.OwnerID, p.UpdatedAt = ownerID, now
		return nil
	})
}

// DeleteProject removes a project owned by ownerID; its tasks cascade.
func (r *ProjectRepo) DeleteProject(ctx context.Context, id, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, projectOwnerQuery, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id=? AND owner_id=?", id, ownerID)
		return translate(err)
	})
}

// ---- Tasks ----

// CreateTask adds a task to a project owned by ownerID.  The project row
// stays locked until the insert commits, so a concurrent delete cannot
// orphan the task.
func (r *ProjectRepo) CreateTask(ctx context.Context, t *model.Task, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, projectOwnerQuery, t.ProjectID); err != nil {
			return err
		}
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			"INSERT INTO tasks (project_id, title, description, done, created_at) VALUES (?,?,?,0,?)",
			t.ProjectID, t.Title, t.Description, now)
		if err != nil {
			return translate(err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		t.ID, t.CreatedAt, t.Done, t.CompletedAt = uint64(id), now, false, nil
		return nil
	})
}

const taskColumns = "id, project_id, title, description, done, created_at, completed_at"

func scanTask(s interface{ Scan(...any) error }) (model.Task, error) {
	var (
		t         model.Task
		completed sql.NullTime
	)
	err := s.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Done, &t.CreatedAt, &completed)
	if completed.Valid {
		ts := completed.Time
		t.CompletedAt = &ts
	}
	return t, err
}

func (r *ProjectRepo) GetTask(ctx context.Context, id uint64) (model.Task, error) {
	t, err := scanTask(r.DB.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Task{}, ErrNotFound
	}
	return t, err
}

func (r *ProjectRepo) ListTasks(ctx context.Context, projectID uint64) ([]model.Task, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE project_id=? ORDER BY id", projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTask replaces title and description.  Completion goes through
// CompleteTask only.
func (r *ProjectRepo) UpdateTask(ctx context.Context, t *model.Task, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, taskOwnerQuery, t.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE tasks SET title=?, description=? WHERE id=?", t.Title, t.Description, t.ID); err != nil {
			return translate(err)
		}
		cur, err := scanTask(tx.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id=?", t.ID))
		if err != nil {
			return err
		}
		*t = cur
		return nil
	})
}

func (r *ProjectRepo) DeleteTask(ctx context.Context, id, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, taskOwnerQuery, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id=?", id)
		return translate(err)
	})
}

// CompleteTask marks an open task done.  The update is conditional on
// done=0, so completing twice yields ErrConflict.
func (r *ProjectRepo) CompleteTask(ctx context.Context, id, ownerID uint64, at time.Time) (model.Task, error) {
	var out model.Task
	err := withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, taskOwnerQuery, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE tasks SET done=1, completed_at=? WHERE id=? AND done=0", at.UTC(), id)
		if err != nil {
			return err
		}
		if err := expectTransition(res); err != nil {
			return err
		}
		out, err = scanTask(tx.QueryRowContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id=?", id))
		return err
	})
	return out, err
}
