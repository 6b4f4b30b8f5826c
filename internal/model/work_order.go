package model

import "time"

// WorkOrderStatus follows open -> in_progress -> done, with cancelled
// reachable from both non-terminal states.
type WorkOrderStatus string

const (
	OrderOpen       WorkOrderStatus = "open"
	OrderInProgress WorkOrderStatus = "in_progress"
	OrderDone       WorkOrderStatus = "done"
	OrderCancelled  WorkOrderStatus = "cancelled"
)

var orderTransitions = map[WorkOrderStatus][]WorkOrderStatus{
	OrderOpen:       {OrderInProgress, OrderCancelled},
	OrderInProgress: {OrderDone, OrderCancelled},
}

// Valid reports whether s is a known status.
func (s WorkOrderStatus) Valid() bool {
	switch s {
	case OrderOpen, OrderInProgress, OrderDone, OrderCancelled:
		return true
	}
	return false
}

// CanTransition reports whether moving from s to next is allowed.  Staying
// in the same state is not a transition.
func (s WorkOrderStatus) CanTransition(next WorkOrderStatus) bool {
	for _, n := range orderTransitions[s] {
		if n == next {
			return true
		}
	}
	return false
}

// WorkOrder is created by a manager for a client.  The optional mechanic
// acts as the manager's delegate and may only move the status forward.
type WorkOrder struct {
	ID          uint64          `json:"id"`
	ManagerID   uint64          `json:"manager_id"`
	ClientID    uint64          `json:"client_id"`
	MechanicID  *uint64         `json:"mechanic_id,omitempty"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Status      WorkOrderStatus `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// AssignedTo reports whether accountID is the assigned mechanic.
func (w WorkOrder) AssignedTo(accountID uint64) bool {
	return w.MechanicID != nil && *w.MechanicID == accountID
}
