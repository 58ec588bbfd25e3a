package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/azusa-tani/kajishift-backend/internal/booking"
)

// respondError maps domain errors onto HTTP statuses. The mapping lives
// here only; services never see status codes.
func respondError(c *gin.Context, err error) {
	switch e := err.(type) {
	case *booking.ValidationError:
		c.JSON(http.StatusBadRequest, gin.H{"error": "ValidationError", "message": e.Message})
	case *booking.NotFoundError:
		c.JSON(http.StatusNotFound, gin.H{"error": "NotFoundError", "message": e.Message})
	case *booking.AuthorizationError:
		c.JSON(http.StatusForbidden, gin.H{"error": "AuthorizationError", "message": e.Message})
	case *booking.StateError:
		c.JSON(http.StatusBadRequest, gin.H{"error": "StateError", "message": e.Message})
	case *booking.ConflictError:
		c.JSON(http.StatusConflict, gin.H{"error": "ConflictError", "message": e.Message})
	default:
		log.Printf("Internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "InternalError", "message": "An unexpected error occurred"})
	}
}
