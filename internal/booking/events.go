package booking

import "github.com/azusa-tani/kajishift-backend/internal/models"

// Topics the lifecycle service publishes to. The dispatcher in
// internal/events subscribes to them and performs notification, email and
// realtime delivery; the service itself never talks to those sinks.
const (
	TopicBookingCreated       = "booking.created"
	TopicBookingStatusChanged = "booking.status_changed"
	TopicBookingUpdated       = "booking.updated"
)

// Change classes for update notifications, first match wins:
// STATUS > DATE > DETAILS.
const (
	ChangeStatus  = "STATUS"
	ChangeDate    = "DATE"
	ChangeDetails = "DETAILS"
)

type CreatedEvent struct {
	BookingID  uint  `json:"bookingId"`
	CustomerID uint  `json:"customerId"`
	WorkerID   *uint `json:"workerId,omitempty"`
}

type StatusChangedEvent struct {
	BookingID  uint                 `json:"bookingId"`
	From       models.BookingStatus `json:"from"`
	To         models.BookingStatus `json:"to"`
	ActorID    uint                 `json:"actorId"`
	ActorRole  models.Role          `json:"actorRole"`
	CustomerID uint                 `json:"customerId"`
	WorkerID   *uint                `json:"workerId,omitempty"`
	Reason     string               `json:"reason,omitempty"`
}

type UpdatedEvent struct {
	BookingID  uint        `json:"bookingId"`
	ChangeType string      `json:"changeType"`
	ActorID    uint        `json:"actorId"`
	ActorRole  models.Role `json:"actorRole"`
	CustomerID uint        `json:"customerId"`
	WorkerID   *uint       `json:"workerId,omitempty"`
}

// EventPublisher is the service's outbound port. Publish failures are
// logged by the service and never fail the booking mutation.
type EventPublisher interface {
	Publish(topic string, event interface{}) error
}
