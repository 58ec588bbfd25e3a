package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/azusa-tani/kajishift-backend/internal/models"
)

// GetProfile returns the authenticated user's own profile
func GetProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"data": user})
	}
}

// UpdateProfile updates the authenticated user's own profile fields.
// Email, role and approval status are not editable here.
func UpdateProfile(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			Name       *string `json:"name"`
			Phone      *string `json:"phone"`
			Address    *string `json:"address"`
			Bio        *string `json:"bio"`
			HourlyRate *int    `json:"hourlyRate"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		updates := map[string]interface{}{}
		if input.Name != nil {
			if *input.Name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Name must not be empty"})
				return
			}
			updates["name"] = *input.Name
		}
		if input.Phone != nil {
			updates["phone"] = *input.Phone
		}
		if input.Address != nil {
			updates["address"] = *input.Address
		}
		if input.Bio != nil {
			updates["bio"] = *input.Bio
		}
		if input.HourlyRate != nil {
			if *input.HourlyRate < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Hourly rate must not be negative"})
				return
			}
			if user.Role != models.RoleWorker {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Only workers can set an hourly rate"})
				return
			}
			updates["hourly_rate"] = *input.HourlyRate
		}

		if len(updates) > 0 {
			if err := db.Model(&user).Updates(updates).Error; err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "data": user})
	}
}
