package websocket

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Configure properly in production
	},
}

type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	UserID   primitive.ObjectID
	IsDriver bool
	rooms    map[string]bool
}

func NewClient(hub *Hub, conn *websocket.Conn, userID primitive.ObjectID, isDriver bool) *Client {
	return &Client{
		hub:      hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		UserID:   userID,
		IsDriver: isDriver,
		rooms:    make(map[string]bool),
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("websocket: read error: %v", err)
			}
			break
		}

		c.handleMessage(message)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Drain anything queued behind this frame.
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

type clientCommand struct {
	Action string `json:"action"`
	RideID string `json:"ride_id,omitempty"`
}

// Clients only subscribe; all ride mutations go through the HTTP API so the
// transaction path is the single writer.
func (c *Client) handleMessage(message []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		log.Printf("websocket: bad client command: %v", err)
		return
	}

	switch cmd.Action {
	case "join_ride":
		rideID, err := primitive.ObjectIDFromHex(cmd.RideID)
		if err != nil {
			return
		}
		c.hub.JoinRide(c, rideID)

	case "leave_ride":
		rideID, err := primitive.ObjectIDFromHex(cmd.RideID)
		if err != nil {
			return
		}
		c.hub.LeaveRoom(c, rideRoom(rideID))

	case "watch_emergencies":
		if c.IsDriver {
			c.hub.mutex.Lock()
			c.hub.joinRoom(c, EmergencyRoom)
			c.hub.mutex.Unlock()
		}

	case "unwatch_emergencies":
		c.hub.LeaveRoom(c, EmergencyRoom)
	}
}
