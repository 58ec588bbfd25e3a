package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"gorm.io/gorm"

	"github.com/azusa-tani/kajishift-backend/internal/booking"
	"github.com/azusa-tani/kajishift-backend/internal/models"
	"github.com/azusa-tani/kajishift-backend/internal/services"
	"github.com/azusa-tani/kajishift-backend/pkg/utils"
)

// Dispatcher consumes booking events and fans them out to notification
// rows, live websocket pushes and emails. Every side effect is
// best-effort: a failed email or push is logged and never fails the
// handler, so the stream keeps moving.
type Dispatcher struct {
	db     *gorm.DB
	hub    *services.Hub
	router *message.Router
}

func NewDispatcher(db *gorm.DB, hub *services.Hub, subscriber message.Subscriber) (*Dispatcher, error) {
	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewStdLogger(false, false))
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{db: db, hub: hub, router: router}

	router.AddNoPublisherHandler(
		"booking_created_notifications",
		booking.TopicBookingCreated,
		subscriber,
		d.handleCreated,
	)
	router.AddNoPublisherHandler(
		"booking_status_notifications",
		booking.TopicBookingStatusChanged,
		subscriber,
		d.handleStatusChanged,
	)
	router.AddNoPublisherHandler(
		"booking_update_notifications",
		booking.TopicBookingUpdated,
		subscriber,
		d.handleUpdated,
	)

	return d, nil
}

// Run blocks until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	return d.router.Run(ctx)
}

// Running closes once all handlers are up.
func (d *Dispatcher) Running() chan struct{} {
	return d.router.Running()
}

func (d *Dispatcher) Close() error {
	return d.router.Close()
}

func (d *Dispatcher) loadBooking(id uint) (*models.Booking, error) {
	var b models.Booking
	if err := d.db.Preload("Customer").Preload("Worker").First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// notify stores the notification and pushes it to the user's open
// sockets.
func (d *Dispatcher) notify(n models.Notification) {
	if err := d.db.Create(&n).Error; err != nil {
		log.Printf("Failed to store notification for user %d: %v", n.UserID, err)
		return
	}

	if services.RedisClient != nil {
		if err := services.InvalidateUnreadCount(context.Background(), n.UserID); err != nil {
			log.Printf("Failed to invalidate unread count for user %d: %v", n.UserID, err)
		}
	}

	if d.hub != nil {
		d.hub.SendNotification(n.UserID, services.NotificationPush{
			ID:      n.ID,
			Type:    string(n.Type),
			Title:   n.Title,
			Content: n.Content,
		})
	}
}

func (d *Dispatcher) pushStatus(userID uint, b *models.Booking, reason *string) {
	if d.hub == nil {
		return
	}
	d.hub.SendBookingStatus(userID, services.BookingStatusPush{
		BookingID: b.ID,
		Status:    string(b.Status),
		WorkerID:  b.WorkerID,
		Reason:    reason,
	})
}

func bookingRef(id uint) (*uint, *string) {
	relatedType := "booking"
	return &id, &relatedType
}

func (d *Dispatcher) handleCreated(msg *message.Message) error {
	var ev booking.CreatedEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		log.Printf("Dropping malformed booking.created event: %v", err)
		return nil
	}

	b, err := d.loadBooking(ev.BookingID)
	if err != nil {
		return err
	}

	relatedID, relatedType := bookingRef(b.ID)

	d.notify(models.Notification{
		UserID: b.CustomerID,
		Type:   models.NotificationTypeBookingCreated,
		Title:  "Booking received",
		Content: fmt.Sprintf("Your %s booking for %s at %s has been received.",
			b.ServiceType, b.ScheduledDate.Format("2006-01-02"), b.StartTime),
		RelatedID:   relatedID,
		RelatedType: relatedType,
	})

	if b.WorkerID != nil {
		d.notify(models.Notification{
			UserID: *b.WorkerID,
			Type:   models.NotificationTypeBookingUpdate,
			Title:  "New booking assigned",
			Content: fmt.Sprintf("%s booked you for %s on %s at %s.",
				b.Customer.Name, b.ServiceType, b.ScheduledDate.Format("2006-01-02"), b.StartTime),
			RelatedID:   relatedID,
			RelatedType: relatedType,
		})
	}

	if err := utils.SendBookingConfirmationEmail(b.Customer.Email, b.Customer.Name, b); err != nil {
		log.Printf("Failed to send booking confirmation email to %s: %v", b.Customer.Email, err)
	}
	if b.Worker != nil {
		if err := utils.SendBookingConfirmationEmail(b.Worker.Email, b.Worker.Name, b); err != nil {
			log.Printf("Failed to send booking confirmation email to %s: %v", b.Worker.Email, err)
		}
	}

	return nil
}

func (d *Dispatcher) handleStatusChanged(msg *message.Message) error {
	var ev booking.StatusChangedEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		log.Printf("Dropping malformed booking.status_changed event: %v", err)
		return nil
	}

	b, err := d.loadBooking(ev.BookingID)
	if err != nil {
		return err
	}

	relatedID, relatedType := bookingRef(b.ID)
	date := b.ScheduledDate.Format("2006-01-02")

	switch ev.To {
	case models.BookingStatusConfirmed:
		workerName := "A worker"
		if b.Worker != nil {
			workerName = b.Worker.Name
		}
		d.notify(models.Notification{
			UserID:      b.CustomerID,
			Type:        models.NotificationTypeBookingUpdate,
			Title:       "Booking confirmed",
			Content:     fmt.Sprintf("%s accepted your %s booking on %s.", workerName, b.ServiceType, date),
			RelatedID:   relatedID,
			RelatedType: relatedType,
		})
		d.pushStatus(b.CustomerID, b, nil)
		if err := utils.SendBookingStatusEmail(b.Customer.Email, b.Customer.Name, b); err != nil {
			log.Printf("Failed to send confirmation email to %s: %v", b.Customer.Email, err)
		}

	case models.BookingStatusPending:
		// a worker rejected; booking went back to the pool
		content := fmt.Sprintf("The worker declined your %s booking on %s. We are looking for another worker.", b.ServiceType, date)
		if ev.Reason != "" {
			content = fmt.Sprintf("The worker declined your %s booking on %s: %s. We are looking for another worker.", b.ServiceType, date, ev.Reason)
		}
		var reason *string
		if ev.Reason != "" {
			reason = &ev.Reason
		}
		d.notify(models.Notification{
			UserID:      b.CustomerID,
			Type:        models.NotificationTypeBookingUpdate,
			Title:       "Worker declined",
			Content:     content,
			RelatedID:   relatedID,
			RelatedType: relatedType,
		})
		d.pushStatus(b.CustomerID, b, reason)

	case models.BookingStatusInProgress:
		d.notify(models.Notification{
			UserID:      b.CustomerID,
			Type:        models.NotificationTypeBookingUpdate,
			Title:       "Service started",
			Content:     fmt.Sprintf("Your %s service is now in progress.", b.ServiceType),
			RelatedID:   relatedID,
			RelatedType: relatedType,
		})
		d.pushStatus(b.CustomerID, b, nil)

	case models.BookingStatusCompleted:
		d.notify(models.Notification{
			UserID:      b.CustomerID,
			Type:        models.NotificationTypeBookingUpdate,
			Title:       "Service completed",
			Content:     fmt.Sprintf("Your %s service on %s is complete. Leave a review to help other customers.", b.ServiceType, date),
			RelatedID:   relatedID,
			RelatedType: relatedType,
		})
		d.pushStatus(b.CustomerID, b, nil)
		if err := utils.SendBookingStatusEmail(b.Customer.Email, b.Customer.Name, b); err != nil {
			log.Printf("Failed to send completion email to %s: %v", b.Customer.Email, err)
		}

	case models.BookingStatusCancelled:
		// tell everyone who is not the actor
		if ev.ActorID != b.CustomerID {
			d.notify(models.Notification{
				UserID:      b.CustomerID,
				Type:        models.NotificationTypeBookingCancelled,
				Title:       "Booking cancelled",
				Content:     fmt.Sprintf("Your %s booking on %s has been cancelled.", b.ServiceType, date),
				RelatedID:   relatedID,
				RelatedType: relatedType,
			})
			d.pushStatus(b.CustomerID, b, nil)
		}
		if b.WorkerID != nil && ev.ActorID != *b.WorkerID {
			d.notify(models.Notification{
				UserID:      *b.WorkerID,
				Type:        models.NotificationTypeBookingCancelled,
				Title:       "Booking cancelled",
				Content:     fmt.Sprintf("The %s booking on %s has been cancelled by the customer.", b.ServiceType, date),
				RelatedID:   relatedID,
				RelatedType: relatedType,
			})
			d.pushStatus(*b.WorkerID, b, nil)
		}
	}

	return nil
}

func (d *Dispatcher) handleUpdated(msg *message.Message) error {
	var ev booking.UpdatedEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		log.Printf("Dropping malformed booking.updated event: %v", err)
		return nil
	}

	// status changes are covered by the status handler's richer templates
	if ev.ChangeType == booking.ChangeStatus {
		return nil
	}

	b, err := d.loadBooking(ev.BookingID)
	if err != nil {
		return err
	}

	relatedID, relatedType := bookingRef(b.ID)

	var content string
	switch ev.ChangeType {
	case booking.ChangeDate:
		content = fmt.Sprintf("The %s booking has been rescheduled to %s at %s.",
			b.ServiceType, b.ScheduledDate.Format("2006-01-02"), b.StartTime)
	default:
		content = fmt.Sprintf("The details of the %s booking on %s have been updated.",
			b.ServiceType, b.ScheduledDate.Format("2006-01-02"))
	}

	// notify every participant except whoever made the change
	recipients := []uint{}
	if ev.ActorID != b.CustomerID {
		recipients = append(recipients, b.CustomerID)
	}
	if b.WorkerID != nil && ev.ActorID != *b.WorkerID {
		recipients = append(recipients, *b.WorkerID)
	}

	for _, userID := range recipients {
		d.notify(models.Notification{
			UserID:      userID,
			Type:        models.NotificationTypeBookingUpdate,
			Title:       "Booking updated",
			Content:     content,
			RelatedID:   relatedID,
			RelatedType: relatedType,
		})
	}

	if ev.ChangeType == booking.ChangeDate {
		if err := utils.SendBookingUpdateEmail(b.Customer.Email, b.Customer.Name, b); err != nil {
			log.Printf("Failed to send reschedule email to %s: %v", b.Customer.Email, err)
		}
	}

	return nil
}
