package handlers

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/azusa-tani/kajishift-backend/internal/models"
	"github.com/azusa-tani/kajishift-backend/internal/services"
)

// CreateReview lets a customer review the worker of a completed booking.
// One review per booking; the worker's aggregate rating is recomputed in
// the same transaction.
func CreateReview(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			BookingID uint    `json:"bookingId" binding:"required"`
			Rating    int     `json:"rating" binding:"required"`
			Comment   *string `json:"comment"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		if input.Rating < 1 || input.Rating > 5 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
			return
		}

		var b models.Booking
		if err := db.First(&b, input.BookingID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}

		if b.CustomerID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the booking's customer can leave a review"})
			return
		}
		if b.Status != models.BookingStatusCompleted {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only completed bookings can be reviewed"})
			return
		}
		if b.WorkerID == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "This booking has no worker to review"})
			return
		}

		var existing models.Review
		if err := db.Where("booking_id = ?", b.ID).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "This booking has already been reviewed"})
			return
		}

		review := models.Review{
			BookingID:  b.ID,
			ReviewerID: userID,
			RevieweeID: *b.WorkerID,
			Rating:     input.Rating,
			Comment:    input.Comment,
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&review).Error; err != nil {
				return err
			}

			// recompute the worker's aggregate from all their reviews
			var stats struct {
				Avg   float64
				Count int64
			}
			err := tx.Model(&models.Review{}).
				Select("AVG(rating) as avg, COUNT(*) as count").
				Where("reviewee_id = ?", *b.WorkerID).
				Scan(&stats).Error
			if err != nil {
				return err
			}

			return tx.Model(&models.User{}).
				Where("id = ?", *b.WorkerID).
				Updates(map[string]interface{}{
					"rating":       math.Round(stats.Avg*10) / 10,
					"review_count": stats.Count,
				}).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create review"})
			return
		}

		if services.RedisClient != nil {
			if err := services.InvalidateWorkerProfile(context.Background(), *b.WorkerID); err != nil {
				log.Printf("Failed to invalidate worker profile %d: %v", *b.WorkerID, err)
			}
		}

		relatedType := "review"
		notification := models.Notification{
			UserID:      *b.WorkerID,
			Type:        models.NotificationTypeReview,
			Title:       "New review",
			Content:     fmt.Sprintf("You received a %d-star review for the %s booking.", input.Rating, b.ServiceType),
			RelatedID:   &review.ID,
			RelatedType: &relatedType,
		}
		if err := db.Create(&notification).Error; err != nil {
			log.Printf("Failed to store review notification for worker %d: %v", *b.WorkerID, err)
		} else if hub != nil {
			hub.SendNotification(*b.WorkerID, services.NotificationPush{
				ID:      notification.ID,
				Type:    string(notification.Type),
				Title:   notification.Title,
				Content: notification.Content,
			})
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Review created successfully",
			"data":    review,
		})
	}
}

// GetWorkerReviews lists a worker's reviews, newest first
func GetWorkerReviews(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker ID"})
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}

		q := db.Model(&models.Review{}).Where("reviewee_id = ?", uint(id))

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reviews"})
			return
		}

		var reviews []models.Review
		err = q.Preload("Reviewer").
			Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&reviews).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list reviews"})
			return
		}

		totalPages := int((total + int64(limit) - 1) / int64(limit))
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"reviews": reviews,
				"pagination": gin.H{
					"page":       page,
					"limit":      limit,
					"total":      total,
					"totalPages": totalPages,
				},
			},
		})
	}
}
