package handlers

import (
	"context"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/azusa-tani/kajishift-backend/internal/models"
	"github.com/azusa-tani/kajishift-backend/internal/services"
)

// workerProfile is the public shape of a worker; contact details stay
// private until a booking is confirmed.
func workerProfile(u *models.User) map[string]interface{} {
	return map[string]interface{}{
		"id":          u.ID,
		"name":        u.Name,
		"bio":         u.Bio,
		"hourlyRate":  u.HourlyRate,
		"rating":      u.Rating,
		"reviewCount": u.ReviewCount,
	}
}

// GetWorkers lists approved active workers for the public directory
func GetWorkers(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}

		q := db.Model(&models.User{}).
			Where("role = ? AND status = ? AND approval_status = ?",
				models.RoleWorker, models.UserStatusActive, models.ApprovalStatusApproved)

		if v := c.Query("keyword"); v != "" {
			pattern := "%" + v + "%"
			q = q.Where("name LIKE ? OR bio LIKE ?", pattern, pattern)
		}
		if v := c.Query("area"); v != "" {
			q = q.Where("address LIKE ?", "%"+v+"%")
		}
		if v := c.Query("minRating"); v != "" {
			minRating, err := strconv.ParseFloat(v, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid minRating"})
				return
			}
			q = q.Where("rating >= ?", minRating)
		}
		if v := c.Query("minHourlyRate"); v != "" {
			minRate, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid minHourlyRate"})
				return
			}
			q = q.Where("hourly_rate >= ?", minRate)
		}
		if v := c.Query("maxHourlyRate"); v != "" {
			maxRate, err := strconv.Atoi(v)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid maxHourlyRate"})
				return
			}
			q = q.Where("hourly_rate <= ?", maxRate)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list workers"})
			return
		}

		var workers []models.User
		err := q.Order("rating DESC, review_count DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&workers).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list workers"})
			return
		}

		profiles := make([]map[string]interface{}, 0, len(workers))
		for i := range workers {
			profiles = append(profiles, workerProfile(&workers[i]))
		}

		totalPages := int((total + int64(limit) - 1) / int64(limit))
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"workers": profiles,
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

// GetWorker returns a single worker's public profile, served from the
// Redis cache when possible
func GetWorker(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker ID"})
			return
		}
		workerID := uint(id)

		if services.RedisClient != nil {
			if cached, err := services.GetWorkerProfile(c.Request.Context(), workerID); err == nil {
				c.JSON(http.StatusOK, gin.H{"data": cached})
				return
			}
		}

		var worker models.User
		err = db.Where("id = ? AND role = ? AND status = ? AND approval_status = ?",
			workerID, models.RoleWorker, models.UserStatusActive, models.ApprovalStatusApproved).
			First(&worker).Error
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
			return
		}

		profile := workerProfile(&worker)

		if services.RedisClient != nil {
			if err := services.SetWorkerProfile(c.Request.Context(), workerID, profile); err != nil {
				log.Printf("Failed to cache worker profile %d: %v", workerID, err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"data": profile})
	}
}

// ApproveWorker lets an admin approve or reject a worker application
func ApproveWorker(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid worker ID"})
			return
		}

		var input struct {
			Approved bool   `json:"approved"`
			Reason   string `json:"reason"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var worker models.User
		if err := db.Where("id = ? AND role = ?", uint(id), models.RoleWorker).First(&worker).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Worker not found"})
			return
		}

		status := models.ApprovalStatusApproved
		notifType := models.NotificationTypeWorkerApproved
		title := "Application approved"
		content := "Congratulations! Your worker application has been approved. You can now accept bookings."
		if !input.Approved {
			status = models.ApprovalStatusRejected
			notifType = models.NotificationTypeWorkerRejected
			title = "Application rejected"
			content = "Unfortunately your worker application was not approved."
			if input.Reason != "" {
				content = "Unfortunately your worker application was not approved: " + input.Reason
			}
		}

		if err := db.Model(&worker).Update("approval_status", status).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update worker"})
			return
		}

		notification := models.Notification{
			UserID:  worker.ID,
			Type:    notifType,
			Title:   title,
			Content: content,
		}
		if err := db.Create(&notification).Error; err != nil {
			log.Printf("Failed to store approval notification for worker %d: %v", worker.ID, err)
		} else if hub != nil {
			hub.SendNotification(worker.ID, services.NotificationPush{
				ID:      notification.ID,
				Type:    string(notification.Type),
				Title:   notification.Title,
				Content: notification.Content,
			})
		}

		if services.RedisClient != nil {
			if err := services.InvalidateWorkerProfile(context.Background(), worker.ID); err != nil {
				log.Printf("Failed to invalidate worker profile %d: %v", worker.ID, err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "Worker approval updated successfully", "data": worker})
	}
}
