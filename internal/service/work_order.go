package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/rolegate/internal/apperr"
	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/queue"
	"github.com/iliyamo/rolegate/internal/repository"
	"github.com/iliyamo/rolegate/internal/role"
)

// WorkOrderService guards workshop orders.  The manager who creates an
// order owns it; the assigned mechanic may only advance its status.
type WorkOrderService struct {
	store    WorkOrderStore
	accounts AccountStore
	events   emitter
}

func NewWorkOrderService(store WorkOrderStore, accounts AccountStore, pub queue.Publisher, log *zap.Logger) *WorkOrderService {
	return &WorkOrderService{store: store, accounts: accounts, events: newEmitter(pub, log)}
}

// WorkOrderInput is the create/replace payload.  Status is ignored on
// create.
type WorkOrderInput struct {
	ClientID    uint64
	MechanicID  *uint64
	Title       string
	Description string
	Status      string
}

// StatusInput is what an assigned mechanic may change.
type StatusInput struct {
	Status string
}

func (s *WorkOrderService) List(ctx context.Context, p role.Principal) ([]model.WorkOrder, error) {
	var (
		ws  []model.WorkOrder
		err error
	)
	switch {
	case p.Role.Has(role.CapManageOrders):
		ws, err = s.store.ListWorkOrdersByManager(ctx, p.AccountID)
	case p.Role.Has(role.CapServiceOrders):
		ws, err = s.store.ListWorkOrdersByMechanic(ctx, p.AccountID)
	case p.Role.Has(role.CapRequestService):
		ws, err = s.store.ListWorkOrdersByClient(ctx, p.AccountID)
	default:
		return nil, apperr.Forbidden("role " + string(p.Role) + " has no work orders")
	}
	if err != nil {
		return nil, storeErr(err, "work order")
	}
	return ws, nil
}

// Get is visible to the order's manager, assigned mechanic and client.
func (s *WorkOrderService) Get(ctx context.Context, p role.Principal, id uint64) (model.WorkOrder, error) {
	w, err := s.store.GetWorkOrder(ctx, id)
	if err != nil {
		return model.WorkOrder{}, storeErr(err, "work order")
	}
	switch {
	case role.Can(p, role.CapManageOrders, w.ManagerID),
		p.Role.Has(role.CapServiceOrders) && w.AssignedTo(p.AccountID),
		role.Can(p, role.CapRequestService, w.ClientID):
		return w, nil
	}
	return model.WorkOrder{}, apperr.Forbidden("you are not a party to this work order")
}

// checkParties verifies that client and mechanic reference accounts of the
// right role.
func (s *WorkOrderService) checkParties(ctx context.Context, in WorkOrderInput) error {
	fe := fieldErrors{}
	if strings.TrimSpace(in.Title) == "" {
		fe.add("title", "required")
	}
	if in.ClientID == 0 {
		fe.add("client_id", "required")
	} else if ok, err := s.hasRole(ctx, in.ClientID, role.Client); err != nil {
		return err
	} else if !ok {
		fe.add("client_id", "must reference a cliente account")
	}
	if in.MechanicID != nil {
		if ok, err := s.hasRole(ctx, *in.MechanicID, role.Mechanic); err != nil {
			return err
		} else if !ok {
			fe.add("mechanic_id", "must reference a mecanico account")
		}
	}
	return fe.err()
}

func (s *WorkOrderService) hasRole(ctx context.Context, id uint64, r role.Role) (bool, error) {
	acct, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.Internal(err)
	}
	return acct.IsActive && acct.Role == r, nil
}

func (s *WorkOrderService) Create(ctx context.Context, p role.Principal, in WorkOrderInput) (model.WorkOrder, error) {
	if err := require(p, role.CapManageOrders); err != nil {
		return model.WorkOrder{}, err
	}
	if err := s.checkParties(ctx, in); err != nil {
		return model.WorkOrder{}, err
	}
	w := model.WorkOrder{
		ManagerID:   p.AccountID,
		ClientID:    in.ClientID,
		MechanicID:  in.MechanicID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      model.OrderOpen,
	}
	if err := s.store.CreateWorkOrder(ctx, &w); err != nil {
		return model.WorkOrder{}, storeErr(err, "work order")
	}
	s.events.emit(ctx, queue.EventWorkOrderUpdated, p.AccountID, w.ID, string(w.Status))
	return w, nil
}

// Update replaces the order for its manager.  The assigned mechanic only
// gets the status out of in; everybody else is forbidden.
func (s *WorkOrderService) Update(ctx context.Context, p role.Principal, id uint64, in WorkOrderInput) (model.WorkOrder, error) {
	cur, err := s.store.GetWorkOrder(ctx, id)
	if err != nil {
		return model.WorkOrder{}, storeErr(err, "work order")
	}
	switch {
	case role.Can(p, role.CapManageOrders, cur.ManagerID):
		return s.replace(ctx, p, cur, in)
	case p.Role.Has(role.CapServiceOrders) && cur.AssignedTo(p.AccountID):
		return s.advance(ctx, p, cur, StatusInput{Status: in.Status})
	}
	return model.WorkOrder{}, apperr.Forbidden("you may not modify this work order")
}

func (s *WorkOrderService) replace(ctx context.Context, p role.Principal, cur model.WorkOrder, in WorkOrderInput) (model.WorkOrder, error) {
	if err := s.checkParties(ctx, in); err != nil {
		return model.WorkOrder{}, err
	}
	next := cur.Status
	if in.Status != "" {
		next = model.WorkOrderStatus(in.Status)
		if !next.Valid() {
			return model.WorkOrder{}, apperr.Validation(map[string]string{"status": "must be one of open, in_progress, done, cancelled"})
		}
		if next != cur.Status && !cur.Status.CanTransition(next) {
			return model.WorkOrder{}, apperr.Conflict("cannot move work order from " + string(cur.Status) + " to " + string(next))
		}
	}
	w := model.WorkOrder{
		ID:          cur.ID,
		ClientID:    in.ClientID,
		MechanicID:  in.MechanicID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Status:      next,
	}
	if err := s.store.UpdateWorkOrder(ctx, &w, p.AccountID, cur.Status); err != nil {
		return model.WorkOrder{}, storeErr(err, "work order")
	}
	s.events.emit(ctx, queue.EventWorkOrderUpdated, p.AccountID, w.ID, string(w.Status))
	return w, nil
}

func (s *WorkOrderService) advance(ctx context.Context, p role.Principal, cur model.WorkOrder, in StatusInput) (model.WorkOrder, error) {
	next := model.WorkOrderStatus(in.Status)
	if next != model.OrderInProgress && next != model.OrderDone {
		return model.WorkOrder{}, apperr.Forbidden("mechanics may only set status to in_progress or done")
	}
	if !cur.Status.CanTransition(next) {
		return model.WorkOrder{}, apperr.Conflict("cannot move work order from " + string(cur.Status) + " to " + string(next))
	}
	if err := s.store.SetWorkOrderStatus(ctx, cur.ID, p.AccountID, cur.Status, next); err != nil {
		return model.WorkOrder{}, storeErr(err, "work order")
	}
	w, err := s.store.GetWorkOrder(ctx, cur.ID)
	if err != nil {
		return model.WorkOrder{}, storeErr(err, "work order")
	}
	s.events.emit(ctx, queue.EventWorkOrderUpdated, p.AccountID, w.ID, string(w.Status))
	return w, nil
}

func (s *WorkOrderService) Delete(ctx context.Context, p role.Principal, id uint64) error {
	return storeErr(s.store.DeleteWorkOrder(ctx, id, p.AccountID), "work order")
}
