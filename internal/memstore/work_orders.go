package memstore

import (
	"cmp"
	"context"

	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/repository"
)

func workOrderID(a, b model.WorkOrder) int { return cmp.Compare(a.ID, b.ID) }

func (s *Store) CreateWorkOrder(_ context.Context, w *model.WorkOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.Status == "" {
		w.Status = model.OrderOpen
	}
	now := s.now()
	w.ID, w.CreatedAt, w.UpdatedAt = s.nextID(), now, now
	s.workOrders[w.ID] = *w
	return nil
}

func (s *Store) GetWorkOrder(_ context.Context, id uint64) (model.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workOrders[id]
	if !ok {
		return model.WorkOrder{}, repository.ErrNotFound
	}
	return w, nil
}

func (s *Store) ListWorkOrdersByManager(_ context.Context, managerID uint64) ([]model.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.workOrders, func(w model.WorkOrder) bool { return w.ManagerID == managerID }, workOrderID), nil
}

func (s *Store) ListWorkOrdersByMechanic(_ context.Context, mechanicID uint64) ([]model.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.workOrders, func(w model.WorkOrder) bool { return w.AssignedTo(mechanicID) }, workOrderID), nil
}

func (s *Store) ListWorkOrdersByClient(_ context.Context, clientID uint64) ([]model.WorkOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return collect(s.workOrders, func(w model.WorkOrder) bool { return w.ClientID == clientID }, workOrderID), nil
}

func (s *Store) UpdateWorkOrder(_ context.Context, w *model.WorkOrder, ownerID uint64, expected model.WorkOrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.workOrders[w.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.ManagerID != ownerID {
		return repository.ErrForbidden
	}
	if cur.Status != expected {
		return repository.ErrConflict
	}
	cur.ClientID, cur.MechanicID, cur.Title = w.ClientID, w.MechanicID, w.Title
	cur.Description, cur.Status, cur.UpdatedAt = w.Description, w.Status, s.now()
	s.workOrders[w.ID] = cur
	*w = cur
	return nil
}

func (s *Store) SetWorkOrderStatus(_ context.Context, id, mechanicID uint64, from, to model.WorkOrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.workOrders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !cur.AssignedTo(mechanicID) {
		return repository.ErrForbidden
	}
	if cur.Status != from {
		return repository.ErrConflict
	}
	cur.Status, cur.UpdatedAt = to, s.now()
	s.workOrders[id] = cur
	return nil
}

func (s *Store) DeleteWorkOrder(_ context.Context, id, ownerID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.workOrders[id]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.ManagerID != ownerID {
		return repository.ErrForbidden
	}
	delete(s.workOrders, id)
	return nil
}
