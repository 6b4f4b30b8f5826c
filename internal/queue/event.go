// Package queue defines the domain events exchanged over RabbitMQ, the
// publisher used by services and the consumer that records them.
package queue

import "time"

// DefaultQueue is the durable queue every event is routed to.
const DefaultQueue = "rolegate.events"

// Event types.
const (
	EventAccountRegistered  = "account.registered"
	EventAccountDeactivated = "account.deactivated"
	EventEnrollmentCreated  = "enrollment.created"
	EventRideRequestDecided = "ride_request.decided"
	EventWorkOrderUpdated   = "work_order.updated"
	EventRideRated          = "ride.rated"
	EventTaskCompleted      = "task.completed"
)

// Event is published after the change it describes has been committed.
// It carries enough context for downstream consumers to log or notify
// without querying the primary database.
type Event struct {
	Type       string    `json:"type"`
	AccountID  uint64    `json:"account_id"`  // the actor
	ResourceID uint64    `json:"resource_id"` // the row the event is about
	Detail     string    `json:"detail,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
