package websocket

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Handler struct {
	hub *Hub
}

func NewHandler() *Handler {
	hub := NewHub()
	go hub.Run()

	return &Handler{
		hub: hub,
	}
}

// HandleWebSocket upgrades an authenticated request. The auth middleware has
// already stored the caller's identity on the gin context.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	userObjectID, ok := userID.(primitive.ObjectID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	isDriver := false
	if v, exists := c.Get("is_driver"); exists {
		isDriver, _ = v.(bool)
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket: upgrade failed: %v", err)
		return
	}

	client := NewClient(h.hub, conn, userObjectID, isDriver)
	h.hub.register <- client

	go client.writePump()
	go client.readPump()
}

func (h *Handler) GetHub() *Hub {
	return h.hub
}
