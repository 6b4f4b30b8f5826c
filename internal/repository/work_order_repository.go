package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/rolegate/internal/model"
)

// WorkOrderRepo persists workshop work orders.
type WorkOrderRepo struct{ DB *sql.DB }

func NewWorkOrderRepo(db *sql.DB) *WorkOrderRepo { return &WorkOrderRepo{DB: db} }

const workOrderColumns = "id, manager_id, client_id, mechanic_id, title, description, status, created_at, updated_at"

func scanWorkOrder(s interface{ Scan(...any) error }) (model.WorkOrder, error) {
	var (
		w        model.WorkOrder
		mechanic sql.NullInt64
	)
	err := s.Scan(&w.ID, &w.ManagerID, &w.ClientID, &mechanic, &w.Title, &w.Description, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if mechanic.Valid {
		id := uint64(mechanic.Int64)
		w.MechanicID = &id
	}
	return w, err
}

func nullableID(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

func (r *WorkOrderRepo) CreateWorkOrder(ctx context.Context, w *model.WorkOrder) error {
	now := time.Now().UTC()
	if w.Status == "" {
		w.Status = model.OrderOpen
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO work_orders (manager_id, client_id, mechanic_id, title, description, status, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)",
		w.ManagerID, w.ClientID, nullableID(w.MechanicID), w.Title, w.Description, string(w.Status), now, now)
	if err != nil {
		return translate(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	w.ID, w.CreatedAt, w.UpdatedAt = uint64(id), now, now
	return nil
}

func (r *WorkOrderRepo) GetWorkOrder(ctx context.Context, id uint64) (model.WorkOrder, error) {
	w, err := scanWorkOrder(r.DB.QueryRowContext(ctx, "SELECT "+workOrderColumns+" FROM work_orders WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.WorkOrder{}, ErrNotFound
	}
	return w, err
}

func (r *WorkOrderRepo) ListWorkOrdersByManager(ctx context.Context, managerID uint64) ([]model.WorkOrder, error) {
	return r.list(ctx, "SELECT "+workOrderColumns+" FROM work_orders WHERE manager_id=? ORDER BY id", managerID)
}

func (r *WorkOrderRepo) ListWorkOrdersByMechanic(ctx context.Context, mechanicID uint64) ([]model.WorkOrder, error) {
	return r.list(ctx, "SELECT "+workOrderColumns+" FROM work_orders WHERE mechanic_id=? ORDER BY id", mechanicID)
}

func (r *WorkOrderRepo) ListWorkOrdersByClient(ctx context.Context, clientID uint64) ([]model.WorkOrder, error) {
	return r.list(ctx, "SELECT "+workOrderColumns+" FROM work_orders WHERE client_id=? ORDER BY id", clientID)
}

func (r *WorkOrderRepo) list(ctx context.Context, q string, args ...any) ([]model.WorkOrder, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.WorkOrder{}
	for rows.Next() {
		w, err := scanWorkOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// UpdateWorkOrder replaces every editable field of an order owned by
// ownerID.  The write only applies while the stored status still equals
// expected; otherwise ErrConflict is returned.
func (r *WorkOrderRepo) UpdateWorkOrder(ctx context.Context, w *model.WorkOrder, ownerID uint64, expected model.WorkOrderStatus) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, "SELECT manager_id FROM work_orders WHERE id=? FOR UPDATE", w.ID); err != nil {
			return err
		}
		now := time.Now().UTC()
		res, err := tx.ExecContext(ctx,
			"UPDATE work_orders SET client_id=?, mechanic_id=?, title=?, description=?, status=?, updated_at=? WHERE id=? AND status=?",
			w.ClientID, nullableID(w.MechanicID), w.Title, w.Description, string(w.Status), now, w.ID, string(expected))
		if err != nil {
			return translate(err)
		}
		if err := expectTransition(res); err != nil {
			return err
		}
		w.ManagerID, w.UpdatedAt = ownerID, now
		return nil
	})
}

// SetWorkOrderStatus moves the order from one status to another.  It is
// the only write available to the assigned mechanic.
func (r *WorkOrderRepo) SetWorkOrderStatus(ctx context.Context, id, mechanicID uint64, from, to model.WorkOrderStatus) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, mechanicID,
			"SELECT COALESCE(mechanic_id, 0) FROM work_orders WHERE id=? FOR UPDATE", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			"UPDATE work_orders SET status=?, updated_at=? WHERE id=? AND status=?",
			string(to), time.Now().UTC(), id, string(from))
		if err != nil {
			return err
		}
		if err := expectTransition(res); err != nil {
			return err
		}
		return nil
	})
}

func (r *WorkOrderRepo) DeleteWorkOrder(ctx context.Context, id, ownerID uint64) error {
	return withTx(ctx, r.DB, func(tx *sql.Tx) error {
		if err := checkOwner(ctx, tx, ownerID, "SELECT manager_id FROM work_orders WHERE id=? FOR UPDATE", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM work_orders WHERE id=?", id)
		return err
	})
}
