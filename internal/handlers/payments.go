package handlers

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/azusa-tani/kajishift-backend/internal/models"
	"github.com/azusa-tani/kajishift-backend/internal/services"
	"github.com/azusa-tani/kajishift-backend/pkg/utils"
)

func newTransactionID() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("TXN-%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("TXN-%d-%s", time.Now().Unix(), hex.EncodeToString(buf))
}

// ProcessPayment records the customer's payment for a booking. One
// completed payment per booking; a failed or refunded record is retried
// in place. The amount is the booking's total, falling back to the
// worker's hourly rate times the booked hours.
func ProcessPayment(db *gorm.DB, hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")

		var input struct {
			BookingID     uint    `json:"bookingId" binding:"required"`
			PaymentMethod string  `json:"paymentMethod" binding:"required"`
			TransactionID *string `json:"transactionId"`
		}
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		switch input.PaymentMethod {
		case models.PaymentMethodCreditCard, models.PaymentMethodBankTransfer, models.PaymentMethodCash:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment method"})
			return
		}

		var b models.Booking
		if err := db.Preload("Customer").Preload("Worker").First(&b, input.BookingID).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
			return
		}

		if b.CustomerID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only the booking's customer can pay for it"})
			return
		}
		if b.Status == models.BookingStatusCancelled {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Cancelled bookings cannot be paid"})
			return
		}

		var existing *models.Payment
		var found models.Payment
		if err := db.Where("booking_id = ?", b.ID).First(&found).Error; err == nil {
			switch found.Status {
			case models.PaymentStatusCompleted:
				c.JSON(http.StatusConflict, gin.H{"error": "This booking has already been paid"})
				return
			case models.PaymentStatusPending:
				c.JSON(http.StatusConflict, gin.H{"error": "A payment for this booking is already in progress"})
				return
			}
			existing = &found
		}

		amount := 0
		if b.TotalAmount != nil {
			amount = *b.TotalAmount
		}
		if amount == 0 && b.Worker != nil {
			amount = b.Worker.HourlyRate * b.Duration
		}
		if amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "The payment amount must be greater than zero"})
			return
		}

		transactionID := input.TransactionID
		if transactionID == nil {
			generated := newTransactionID()
			transactionID = &generated
		}

		var payment models.Payment
		err := db.Transaction(func(tx *gorm.DB) error {
			if existing != nil {
				// retry a failed or refunded payment in place
				updates := map[string]interface{}{
					"payment_method": input.PaymentMethod,
					"transaction_id": *transactionID,
					"status":         models.PaymentStatusCompleted,
				}
				if err := tx.Model(existing).Updates(updates).Error; err != nil {
					return err
				}
				payment = *existing
			} else {
				payment = models.Payment{
					BookingID:     b.ID,
					UserID:        userID,
					Amount:        amount,
					PaymentMethod: input.PaymentMethod,
					TransactionID: transactionID,
					Status:        models.PaymentStatusCompleted,
				}
				if err := tx.Create(&payment).Error; err != nil {
					return err
				}
			}

			return tx.Model(&models.Booking{}).
				Where("id = ?", b.ID).
				Update("total_amount", amount).Error
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment"})
			return
		}

		// the worker hears about the money, the customer gets the receipt
		if b.WorkerID != nil {
			relatedType := "payment"
			notification := models.Notification{
				UserID:      *b.WorkerID,
				Type:        models.NotificationTypePayment,
				Title:       "Payment completed",
				Content:     fmt.Sprintf("%s's payment of ¥%d has been completed.", b.Customer.Name, amount),
				RelatedID:   &payment.ID,
				RelatedType: &relatedType,
			}
			if err := db.Create(&notification).Error; err != nil {
				log.Printf("Failed to store payment notification for worker %d: %v", *b.WorkerID, err)
			} else if hub != nil {
				hub.SendNotification(*b.WorkerID, services.NotificationPush{
					ID:      notification.ID,
					Type:    string(notification.Type),
					Title:   notification.Title,
					Content: notification.Content,
				})
			}
		}

		if err := utils.SendPaymentReceiptEmail(b.Customer.Email, b.Customer.Name, amount, *transactionID); err != nil {
			log.Printf("Failed to send payment receipt to %s: %v", b.Customer.Email, err)
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "Payment completed successfully",
			"data":    payment,
		})
	}
}

// GetPayments lists payment history: customers see their own payments,
// admins see everything
func GetPayments(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := models.Role(c.GetString("userRole"))

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		if page < 1 {
			page = 1
		}
		if limit < 1 {
			limit = 20
		}

		q := db.Model(&models.Payment{})
		switch role {
		case models.RoleCustomer:
			q = q.Where("user_id = ?", userID)
		case models.RoleAdmin:
			// no scoping
		default:
			c.JSON(http.StatusForbidden, gin.H{"error": "Only customers and admins can view payment history"})
			return
		}

		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var total int64
		if err := q.Count(&total).Error; err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list payments"})
			return
		}

		var payments []models.Payment
		err := q.Preload("Booking").
			Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&payments).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list payments"})
			return
		}

		totalPages := int((total + int64(limit) - 1) / int64(limit))
		c.JSON(http.StatusOK, gin.H{
			"data": gin.H{
				"payments": payments,
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
