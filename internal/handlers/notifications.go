package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/azusa-tani/kajishift-backend/internal/models"
	"github.com/azusa-tani/kajishift-backend/internal/services"
)

// unreadCount returns the user's unread notification count, served from
// Redis when cached
func unreadCount(c *gin.Context, db *gorm.DB, userID uint) int64 {
	if services.RedisClient != nil {
		if count, err := services.GetUnreadCount(c.Request.Context(), userID); err == nil {
			return count
		}
	}

	var count int64
	if err := db.Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error; err != nil {
		log.Printf("Failed to count unread notifications for user %d: %v", userID, err)
		return 0
	}

	if services.RedisClient != nil {
		if err := services.SetUnreadCount(c.Request.Context(), userID, count); err != nil {
			log.Printf("Failed to cache unread count for user %d: %v", userID, err)
		}
	}

	return count
}

// GetNotifications lists the caller's notifications, newest first
func GetNotifications(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}

		q := db.Model(&models.Notification{}).Where("user_id = ?", userID)
		if v := c.Query("isRead"); v != "" {
			q = q.Where("is_read = ?", v == "true")
		}
		if v := c.Query("type"); v != "" {
			q = q.Where("type = ?", v)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
			return
		}

		var notifications []models.Notification
		err := q.Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&notifications).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list notifications"})
			return
		}

		totalPages := int((total + int64(limit) - 1) / int64(limit))
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"notifications": notifications,
				"unreadCount":   unreadCount(c, db, userID),
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

// MarkNotificationRead marks a single notification as read
func MarkNotificationRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		id, err := strconv.ParseUint(c.Param("id"), 10, 32)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid notification ID"})
			return
		}

		res := db.Model(&models.Notification{}).
			Where("id = ? AND user_id = ?", uint(id), userID).
			Update("is_read", true)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
			return
		}
		if res.RowsAffected == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
			return
		}

		if services.RedisClient != nil {
			if err := services.InvalidateUnreadCount(c.Request.Context(), userID); err != nil {
				log.Printf("Failed to invalidate unread count for user %d: %v", userID, err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read", "data": gin.H{"updated": res.RowsAffected}})
	}
}

// MarkAllNotificationsRead marks every unread notification as read
func MarkAllNotificationsRead(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		res := db.Model(&models.Notification{}).
			Where("user_id = ? AND is_read = ?", userID, false).
			Update("is_read", true)
		if res.Error != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
			return
		}

		if services.RedisClient != nil {
			if err := services.InvalidateUnreadCount(c.Request.Context(), userID); err != nil {
				log.Printf("Failed to invalidate unread count for user %d: %v", userID, err)
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "data": gin.H{"updated": res.RowsAffected}})
	}
}
