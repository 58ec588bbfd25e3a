package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/azusa-tani/kajishift-backend/internal/booking"
	"github.com/azusa-tani/kajishift-backend/internal/models"
)

func callerFromContext(c *gin.Context) booking.Caller {
	return booking.Caller{
		ID:   c.GetUint("userId"),
		Role: models.Role(c.GetString("userRole")),
	}
}

// parseDate accepts both date-only and full RFC 3339 timestamps
func parseDate(value string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func parseBookingID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "Invalid booking ID"})
		return 0, false
	}
	return uint(id), true
}

// CreateBooking creates a booking for the authenticated customer
func CreateBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := callerFromContext(c)
		if !caller.IsCustomer() {
			c.JSON(http.StatusForbidden, gin.H{"error": "AuthorizationError", "message": "Only customers can create bookings"})
			return
		}

		var input struct {
			ServiceType   string  `json:"serviceType" binding:"required"`
			ScheduledDate string  `json:"scheduledDate" binding:"required"`
			StartTime     string  `json:"startTime" binding:"required"`
			Duration      int     `json:"duration" binding:"required"`
			Address       string  `json:"address" binding:"required"`
			Notes         *string `json:"notes"`
			WorkerID      *uint   `json:"workerId"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": err.Error()})
			return
		}

		date, ok := parseDate(input.ScheduledDate)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "Invalid scheduled date"})
			return
		}

		b, err := svc.Create(caller.ID, booking.CreateInput{
			ServiceType:   input.ServiceType,
			ScheduledDate: date,
			StartTime:     input.StartTime,
			Duration:      input.Duration,
			Address:       input.Address,
			Notes:         input.Notes,
			WorkerID:      input.WorkerID,
		})
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{"message": "Booking created successfully", "data": b})
	}
}

// GetBookings lists the caller's bookings with filters and pagination
func GetBookings(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := callerFromContext(c)

		filter := booking.ListFilter{
			Status:      c.Query("status"),
			ServiceType: c.Query("serviceType"),
			Available:   c.Query("available") == "true",
		}

		if v := c.Query("startDate"); v != "" {
			t, ok := parseDate(v)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "Invalid start date"})
				return
			}
			filter.StartDate = &t
		}
		if v := c.Query("endDate"); v != "" {
			t, ok := parseDate(v)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "Invalid end date"})
				return
			}
			filter.EndDate = &t
		}

		filter.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
		filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))

		bookings, pagination, err := svc.List(caller, filter)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"bookings":   bookings,
				"pagination": pagination,
			},
		})
	}
}

// GetBooking returns a single booking
func GetBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseBookingID(c)
		if !ok {
			return
		}

		b, err := svc.Get(id, callerFromContext(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": b})
	}
}

// UpdateBooking applies a partial update to a booking
func UpdateBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseBookingID(c)
		if !ok {
			return
		}

		var input struct {
			ServiceType   *string `json:"serviceType"`
			ScheduledDate *string `json:"scheduledDate"`
			StartTime     *string `json:"startTime"`
			Duration      *int    `json:"duration"`
			Address       *string `json:"address"`
			Notes         *string `json:"notes"`
			WorkerID      *uint   `json:"workerId"`
			Status        *string `json:"status"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": err.Error()})
			return
		}

		patch := booking.Patch{
			ServiceType: input.ServiceType,
			StartTime:   input.StartTime,
			Duration:    input.Duration,
			Address:     input.Address,
			Notes:       input.Notes,
			WorkerID:    input.WorkerID,
		}

		if input.ScheduledDate != nil {
			date, ok := parseDate(*input.ScheduledDate)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": "Invalid scheduled date"})
				return
			}
			patch.ScheduledDate = &date
		}

		if input.Status != nil {
			status := models.BookingStatus(*input.Status)
			patch.Status = &status
		}

		b, err := svc.Update(id, callerFromContext(c), patch)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Booking updated successfully", "data": b})
	}
}

// CancelBooking cancels a non-terminal booking
func CancelBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseBookingID(c)
		if !ok {
			return
		}

		b, err := svc.Cancel(id, callerFromContext(c))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Booking cancelled successfully", "data": b})
	}
}

// AcceptBooking lets a worker claim a pending booking
func AcceptBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseBookingID(c)
		if !ok {
			return
		}

		b, err := svc.Accept(id, c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Booking accepted successfully", "data": b})
	}
}

// RejectBooking lets a worker decline a booking, optionally with a reason
func RejectBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseBookingID(c)
		if !ok {
			return
		}

		var input struct {
			Reason string `json:"reason"`
		}
		// body is optional
		_ = c.ShouldBindJSON(&input)

		b, err := svc.Reject(id, c.GetUint("userId"), input.Reason)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Booking rejected successfully", "data": b})
	}
}

// CompleteBooking lets the assigned worker mark the job done
func CompleteBooking(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseBookingID(c)
		if !ok {
			return
		}

		b, err := svc.Complete(id, c.GetUint("userId"))
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Booking completed successfully", "data": b})
	}
}
