package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/azusa-tani/kajishift-backend/internal/models"
	"github.com/azusa-tani/kajishift-backend/pkg/utils"
)

// Register creates a new customer or worker account. Workers start
// unapproved and stay out of the public directory until an admin
// approves them.
func Register(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Name       string `json:"name" binding:"required"`
			Email      string `json:"email" binding:"required,email"`
			Password   string `json:"password" binding:"required,min=8"`
			Phone      string `json:"phone"`
			Address    string `json:"address"`
			Role       string `json:"role" binding:"required"`
			Bio        string `json:"bio"`
			HourlyRate int    `json:"hourlyRate"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		role := models.Role(strings.ToUpper(input.Role))
		if role != models.RoleCustomer && role != models.RoleWorker {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Role must be CUSTOMER or WORKER"})
			return
		}

		var existing models.User
		if err := db.Where("email = ?", input.Email).First(&existing).Error; err == nil {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}

		approval := models.ApprovalStatusApproved
		if role == models.RoleWorker {
			approval = models.ApprovalStatusPending
		}

		user := models.User{
			Name:           input.Name,
			Email:          input.Email,
			Password:       input.Password,
			Phone:          input.Phone,
			Address:        input.Address,
			Bio:            input.Bio,
			HourlyRate:     input.HourlyRate,
			Role:           role,
			Status:         models.UserStatusActive,
			ApprovalStatus: approval,
		}

		if err := user.HashPassword(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process password"})
			return
		}

		if err := db.Create(&user).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create account"})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "User registered successfully",
			"data": gin.H{
				"token": token,
				"user":  user,
			},
		})
	}
}

// Login authenticates by email and password
func Login(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input struct {
			Email    string `json:"email" binding:"required,email"`
			Password string `json:"password" binding:"required"`
		}

		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		var user models.User
		if err := db.Where("email = ?", input.Email).First(&user).Error; err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		if err := user.CheckPassword(input.Password); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}

		if user.Status == models.UserStatusSuspended {
			c.JSON(http.StatusForbidden, gin.H{"error": "Account is suspended"})
			return
		}

		token, err := utils.GenerateToken(&user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"token": token,
				"user":  user,
			},
		})
	}
}
