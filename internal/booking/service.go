package booking

import (
	"errors"
	"log"
	"strings"
	"time"

	"github.com/azusa-tani/kajishift-backend/internal/models"
	"gorm.io/gorm"
)

// WorkerDirectory supplies worker snapshots for eligibility checks at
// binding time.
type WorkerDirectory interface {
	// FindUser returns the user or nil when absent.
	FindUser(id uint) (*models.User, error)
}

type gormDirectory struct {
	db *gorm.DB
}

// NewDirectory returns a WorkerDirectory backed by the users table.
func NewDirectory(db *gorm.DB) WorkerDirectory {
	return &gormDirectory{db: db}
}

func (d *gormDirectory) FindUser(id uint) (*models.User, error) {
	var user models.User
	if err := d.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// Service owns the booking state machine. Every transition is applied as
// a single conditional UPDATE so that concurrent callers cannot both win
// the same transition; side effects leave only as domain events.
type Service struct {
	db        *gorm.DB
	directory WorkerDirectory
	events    EventPublisher
}

func NewService(db *gorm.DB, directory WorkerDirectory, events EventPublisher) *Service {
	return &Service{db: db, directory: directory, events: events}
}

func (s *Service) publish(topic string, event interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(topic, event); err != nil {
		log.Printf("booking: publish %s failed: %v", topic, err)
	}
}

// eligibleWorker loads the worker and checks the full eligibility
// conjunction: role WORKER, status ACTIVE, approval APPROVED.
func (s *Service) eligibleWorker(workerID uint) (*models.User, error) {
	worker, err := s.directory.FindUser(workerID)
	if err != nil {
		return nil, err
	}
	if worker == nil {
		return nil, &NotFoundError{Message: "worker not found"}
	}
	if worker.Role != models.RoleWorker {
		return nil, &ValidationError{Message: "the specified user is not a worker"}
	}
	if worker.Status != models.UserStatusActive {
		return nil, &ValidationError{Message: "the specified worker is not available"}
	}
	if worker.ApprovalStatus != models.ApprovalStatusApproved {
		return nil, &ValidationError{Message: "the specified worker has not been approved"}
	}
	return worker, nil
}

func (s *Service) reload(id uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.Preload("Customer").Preload("Worker").First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

// Create makes a new booking for the customer. With a pre-selected
// eligible worker the booking starts CONFIRMED, otherwise PENDING.
func (s *Service) Create(customerID uint, in CreateInput) (*models.Booking, error) {
	if in.ServiceType == "" || in.StartTime == "" || in.Address == "" {
		return nil, &ValidationError{Message: "serviceType, scheduledDate, startTime, duration and address are required"}
	}
	if in.ScheduledDate.IsZero() {
		return nil, &ValidationError{Message: "a valid scheduled date is required"}
	}
	if in.ScheduledDate.Before(time.Now()) {
		return nil, &ValidationError{Message: "scheduled date must not be in the past"}
	}
	if in.Duration < 1 || in.Duration > 24 {
		return nil, &ValidationError{Message: "duration must be between 1 and 24 hours"}
	}

	status := models.BookingStatusPending
	if in.WorkerID != nil {
		if _, err := s.eligibleWorker(*in.WorkerID); err != nil {
			return nil, err
		}
		status = models.BookingStatusConfirmed
	}

	b := models.Booking{
		CustomerID:    customerID,
		WorkerID:      in.WorkerID,
		ServiceType:   in.ServiceType,
		ScheduledDate: in.ScheduledDate,
		StartTime:     in.StartTime,
		Duration:      in.Duration,
		Address:       in.Address,
		Notes:         in.Notes,
		Status:        status,
	}
	if err := s.db.Create(&b).Error; err != nil {
		return nil, err
	}

	s.publish(TopicBookingCreated, CreatedEvent{
		BookingID:  b.ID,
		CustomerID: b.CustomerID,
		WorkerID:   b.WorkerID,
	})

	return s.reload(b.ID)
}

// Get returns the booking if the caller participates in it or is an admin.
func (s *Service) Get(bookingID uint, caller Caller) (*models.Booking, error) {
	var b models.Booking
	err := s.db.Preload("Customer").Preload("Worker").First(&b, bookingID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "booking not found"}
		}
		return nil, err
	}
	if !caller.CanAccess(&b) {
		return nil, &AuthorizationError{Message: "you do not have access to this booking"}
	}
	return &b, nil
}

// List returns the caller's bookings page by page, newest scheduled first.
// Customers see their own, workers their assigned (or the unassigned pool
// with Available), admins everything.
func (s *Service) List(caller Caller, filter ListFilter) ([]models.Booking, *Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 20
	}

	q := s.db.Model(&models.Booking{})

	switch {
	case caller.IsCustomer():
		q = q.Where("customer_id = ?", caller.ID)
	case caller.IsWorker():
		if filter.Available {
			q = q.Where("worker_id IS NULL")
			if filter.Status == "" {
				q = q.Where("status = ?", models.BookingStatusPending)
			}
		} else {
			q = q.Where("worker_id = ?", caller.ID)
		}
	case caller.IsAdmin():
		// no scoping
	default:
		return nil, nil, &AuthorizationError{Message: "invalid user role"}
	}

	if filter.Status != "" {
		statuses, err := parseStatuses(filter.Status)
		if err != nil {
			return nil, nil, err
		}
		if len(statuses) == 1 {
			q = q.Where("status = ?", statuses[0])
		} else {
			q = q.Where("status IN ?", statuses)
		}
	}

	if filter.ServiceType != "" {
		q = q.Where("service_type = ?", filter.ServiceType)
	}

	if filter.StartDate != nil {
		q = q.Where("scheduled_date >= ?", *filter.StartDate)
	}
	if filter.EndDate != nil {
		// end date is inclusive
		end := filter.EndDate.Add(24*time.Hour - time.Nanosecond)
		q = q.Where("scheduled_date <= ?", end)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, nil, err
	}

	var bookings []models.Booking
	err := q.Preload("Customer").Preload("Worker").
		Order("scheduled_date DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, nil, err
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))
	return bookings, &Pagination{Page: page, Limit: limit, Total: total, TotalPages: totalPages}, nil
}

func parseStatuses(raw string) ([]models.BookingStatus, error) {
	parts := strings.Split(raw, ",")
	statuses := make([]models.BookingStatus, 0, len(parts))
	for _, p := range parts {
		st := models.BookingStatus(strings.TrimSpace(p))
		if !st.Valid() {
			return nil, &ValidationError{Message: "invalid status filter"}
		}
		statuses = append(statuses, st)
	}
	return statuses, nil
}

// Update applies a partial edit. Terminal bookings are immutable: any
// patch on a COMPLETED or CANCELLED booking is rejected, status field or
// not. Assigning a worker to a PENDING booking without an explicit status
// in the same patch auto-confirms it.
func (s *Service) Update(bookingID uint, caller Caller, patch Patch) (*models.Booking, error) {
	b, err := s.Get(bookingID, caller)
	if err != nil {
		return nil, err
	}

	if b.Status.Terminal() {
		return nil, &StateError{Message: "completed or cancelled bookings cannot be modified"}
	}
	if patch.Empty() {
		return s.reload(b.ID)
	}

	updates := map[string]interface{}{}

	if patch.ServiceType != nil {
		if *patch.ServiceType == "" {
			return nil, &ValidationError{Message: "serviceType must not be empty"}
		}
		updates["service_type"] = *patch.ServiceType
	}

	if patch.ScheduledDate != nil {
		if patch.ScheduledDate.Before(time.Now()) {
			return nil, &ValidationError{Message: "scheduled date must not be in the past"}
		}
		updates["scheduled_date"] = *patch.ScheduledDate
	}

	if patch.StartTime != nil {
		updates["start_time"] = *patch.StartTime
	}

	if patch.Duration != nil {
		if *patch.Duration < 1 || *patch.Duration > 24 {
			return nil, &ValidationError{Message: "duration must be between 1 and 24 hours"}
		}
		updates["duration"] = *patch.Duration
	}

	if patch.Address != nil {
		updates["address"] = *patch.Address
	}

	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}

	workerID := b.WorkerID
	if patch.WorkerID != nil {
		if !caller.IsCustomer() || b.CustomerID != caller.ID {
			return nil, &AuthorizationError{Message: "only the booking's customer can assign a worker"}
		}
		if _, err := s.eligibleWorker(*patch.WorkerID); err != nil {
			return nil, err
		}
		updates["worker_id"] = *patch.WorkerID
		workerID = patch.WorkerID
		if b.Status == models.BookingStatusPending && patch.Status == nil {
			updates["status"] = models.BookingStatusConfirmed
		}
	}

	if patch.Status != nil {
		st := *patch.Status
		if !st.Valid() {
			return nil, &ValidationError{Message: "invalid status"}
		}
		if st == models.BookingStatusCompleted &&
			b.Status != models.BookingStatusInProgress && b.Status != models.BookingStatusConfirmed {
			return nil, &StateError{Message: "only in-progress or confirmed bookings can be completed"}
		}
		if workerID == nil &&
			(st == models.BookingStatusConfirmed || st == models.BookingStatusInProgress || st == models.BookingStatusCompleted) {
			return nil, &ValidationError{Message: "a worker must be assigned before this status"}
		}
		updates["status"] = st
		if st == models.BookingStatusCompleted {
			updates["completed_at"] = time.Now()
		}
	}

	// Conditional on the status we read: a concurrent transition makes
	// this a no-op instead of clobbering it.
	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND status = ?", b.ID, b.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &ConflictError{Message: "booking was modified concurrently"}
	}

	updated, err := s.reload(b.ID)
	if err != nil {
		return nil, err
	}

	// Compare against the reloaded row so auto-confirm on worker
	// assignment counts as a status change too.
	changeType := ChangeDetails
	if updated.Status != b.Status {
		changeType = ChangeStatus
	} else if patch.ScheduledDate != nil || patch.StartTime != nil {
		changeType = ChangeDate
	}

	s.publish(TopicBookingUpdated, UpdatedEvent{
		BookingID:  updated.ID,
		ChangeType: changeType,
		ActorID:    caller.ID,
		ActorRole:  caller.Role,
		CustomerID: updated.CustomerID,
		WorkerID:   updated.WorkerID,
	})
	if changeType == ChangeStatus {
		s.publish(TopicBookingStatusChanged, StatusChangedEvent{
			BookingID:  updated.ID,
			From:       b.Status,
			To:         updated.Status,
			ActorID:    caller.ID,
			ActorRole:  caller.Role,
			CustomerID: updated.CustomerID,
			WorkerID:   updated.WorkerID,
		})
	}

	return updated, nil
}

// Cancel moves any non-terminal booking to CANCELLED.
func (s *Service) Cancel(bookingID uint, caller Caller) (*models.Booking, error) {
	b, err := s.Get(bookingID, caller)
	if err != nil {
		return nil, err
	}

	if b.Status == models.BookingStatusCompleted {
		return nil, &StateError{Message: "completed bookings cannot be cancelled"}
	}
	if b.Status == models.BookingStatusCancelled {
		return nil, &StateError{Message: "this booking is already cancelled"}
	}

	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND status NOT IN ?", b.ID,
			[]models.BookingStatus{models.BookingStatusCompleted, models.BookingStatusCancelled}).
		Update("status", models.BookingStatusCancelled)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &ConflictError{Message: "booking was modified concurrently"}
	}

	cancelled, err := s.reload(b.ID)
	if err != nil {
		return nil, err
	}

	s.publish(TopicBookingStatusChanged, StatusChangedEvent{
		BookingID:  cancelled.ID,
		From:       b.Status,
		To:         models.BookingStatusCancelled,
		ActorID:    caller.ID,
		ActorRole:  caller.Role,
		CustomerID: cancelled.CustomerID,
		WorkerID:   cancelled.WorkerID,
	})

	return cancelled, nil
}

// Accept binds an active worker to a pending booking and confirms it.
// The binding is a compare-and-swap: of two racing workers exactly one
// wins, the other gets a ConflictError.
func (s *Service) Accept(bookingID, workerID uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.First(&b, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "booking not found"}
		}
		return nil, err
	}

	worker, err := s.directory.FindUser(workerID)
	if err != nil {
		return nil, err
	}
	if worker == nil || worker.Role != models.RoleWorker {
		return nil, &AuthorizationError{Message: "only workers can accept bookings"}
	}
	if !worker.IsEligibleWorker() {
		return nil, &AuthorizationError{Message: "only active approved workers can accept bookings"}
	}

	if b.WorkerID != nil && *b.WorkerID != workerID {
		return nil, &ConflictError{Message: "this booking is already assigned to another worker"}
	}
	if b.Status != models.BookingStatusPending {
		return nil, &StateError{Message: "only pending bookings can be accepted"}
	}

	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND status = ? AND (worker_id IS NULL OR worker_id = ?)",
			b.ID, models.BookingStatusPending, workerID).
		Updates(map[string]interface{}{
			"worker_id": workerID,
			"status":    models.BookingStatusConfirmed,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &ConflictError{Message: "this booking is no longer available"}
	}

	accepted, err := s.reload(b.ID)
	if err != nil {
		return nil, err
	}

	s.publish(TopicBookingStatusChanged, StatusChangedEvent{
		BookingID:  accepted.ID,
		From:       models.BookingStatusPending,
		To:         models.BookingStatusConfirmed,
		ActorID:    workerID,
		ActorRole:  models.RoleWorker,
		CustomerID: accepted.CustomerID,
		WorkerID:   accepted.WorkerID,
	})

	return accepted, nil
}

// Reject unbinds the worker and returns the booking to PENDING. Any
// worker may reject an unassigned pending booking; an assigned booking
// only by its own worker.
func (s *Service) Reject(bookingID, workerID uint, reason string) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.First(&b, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "booking not found"}
		}
		return nil, err
	}

	worker, err := s.directory.FindUser(workerID)
	if err != nil {
		return nil, err
	}
	if worker == nil || worker.Role != models.RoleWorker {
		return nil, &AuthorizationError{Message: "only workers can reject bookings"}
	}

	if b.Status != models.BookingStatusPending && b.Status != models.BookingStatusConfirmed {
		return nil, &StateError{Message: "only pending or confirmed bookings can be rejected"}
	}
	if b.WorkerID != nil && *b.WorkerID != workerID {
		return nil, &AuthorizationError{Message: "you cannot reject a booking assigned to another worker"}
	}

	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND status IN ? AND (worker_id IS NULL OR worker_id = ?)",
			b.ID,
			[]models.BookingStatus{models.BookingStatusPending, models.BookingStatusConfirmed},
			workerID).
		Updates(map[string]interface{}{
			"worker_id": nil,
			"status":    models.BookingStatusPending,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &ConflictError{Message: "booking was modified concurrently"}
	}

	rejected, err := s.reload(b.ID)
	if err != nil {
		return nil, err
	}

	s.publish(TopicBookingStatusChanged, StatusChangedEvent{
		BookingID:  rejected.ID,
		From:       b.Status,
		To:         models.BookingStatusPending,
		ActorID:    workerID,
		ActorRole:  models.RoleWorker,
		CustomerID: rejected.CustomerID,
		Reason:     reason,
	})

	return rejected, nil
}

// Complete marks the assigned worker's booking COMPLETED and stamps
// completedAt.
func (s *Service) Complete(bookingID, workerID uint) (*models.Booking, error) {
	var b models.Booking
	if err := s.db.First(&b, bookingID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Message: "booking not found"}
		}
		return nil, err
	}

	worker, err := s.directory.FindUser(workerID)
	if err != nil {
		return nil, err
	}
	if worker == nil || worker.Role != models.RoleWorker {
		return nil, &AuthorizationError{Message: "only workers can complete bookings"}
	}

	if b.WorkerID == nil || *b.WorkerID != workerID {
		return nil, &AuthorizationError{Message: "you are not assigned to this booking"}
	}
	if b.Status != models.BookingStatusInProgress && b.Status != models.BookingStatusConfirmed {
		return nil, &StateError{Message: "only in-progress or confirmed bookings can be completed"}
	}

	res := s.db.Model(&models.Booking{}).
		Where("id = ? AND worker_id = ? AND status IN ?",
			b.ID, workerID,
			[]models.BookingStatus{models.BookingStatusConfirmed, models.BookingStatusInProgress}).
		Updates(map[string]interface{}{
			"status":       models.BookingStatusCompleted,
			"completed_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, &ConflictError{Message: "booking was modified concurrently"}
	}

	completed, err := s.reload(b.ID)
	if err != nil {
		return nil, err
	}

	s.publish(TopicBookingStatusChanged, StatusChangedEvent{
		BookingID:  completed.ID,
		From:       b.Status,
		To:         models.BookingStatusCompleted,
		ActorID:    workerID,
		ActorRole:  models.RoleWorker,
		CustomerID: completed.CustomerID,
		WorkerID:   completed.WorkerID,
	})

	return completed, nil
}
