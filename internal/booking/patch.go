package booking

import (
	"time"

	"github.com/azusa-tani/kajishift-backend/internal/models"
)

// CreateInput carries the fields a customer supplies when booking a
// service. The handler parses the raw JSON; validation happens in Create.
type CreateInput struct {
	ServiceType   string
	ScheduledDate time.Time
	StartTime     string
	Duration      int
	Address       string
	Notes         *string
	WorkerID      *uint
}

// Patch is an explicit partial update: nil means "leave unchanged".
// Each present field is validated independently.
type Patch struct {
	ServiceType   *string
	ScheduledDate *time.Time
	StartTime     *string
	Duration      *int
	Address       *string
	Notes         *string
	WorkerID      *uint
	Status        *models.BookingStatus
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.ServiceType == nil && p.ScheduledDate == nil && p.StartTime == nil &&
		p.Duration == nil && p.Address == nil && p.Notes == nil &&
		p.WorkerID == nil && p.Status == nil
}

// ListFilter narrows List results. Status accepts a single status or a
// comma-separated set. Available switches workers to the system-wide pool
// of unassigned pending bookings.
type ListFilter struct {
	Status      string
	ServiceType string
	StartDate   *time.Time
	EndDate     *time.Time
	Available   bool
	Page        int
	Limit       int
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}
