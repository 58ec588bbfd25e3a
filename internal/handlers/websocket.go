package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/azusa-tani/kajishift-backend/internal/services"
)

// HandleWebSocket upgrades the connection and registers the client on
// the hub. Auth middleware has already run; the token rides in the
// query string for browser WebSocket clients.
func HandleWebSocket(hub *services.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetUint("userId")
		role := c.GetString("userRole")

		services.HandleWebSocket(hub, c.Writer, c.Request, userID, role)
	}
}
