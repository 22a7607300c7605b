package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// EmergencyRoom receives every SOS trigger so off-ride drivers can watch the
// open emergencies live.
const EmergencyRoom = "emergencies"

// Hub fans committed ride events out to connected clients. Each ride has a
// room; participants join it on connect, and an extra shared room carries
// unclaimed SOS broadcasts.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	rooms      map[string]map[*Client]bool
	mutex      sync.RWMutex
}

type Envelope struct {
	Type      string             `json:"type"`
	RoomID    string             `json:"room_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id,omitempty"`
	Timestamp int64              `json:"timestamp"`
	Payload   json.RawMessage    `json:"payload,omitempty"`
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.routeMessage(message)
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.clients[client] = true

	// Personal room for direct updates.
	h.joinRoom(client, userRoom(client.UserID))

	welcome := Envelope{
		Type:      "welcome",
		UserID:    client.UserID,
		Timestamp: time.Now().Unix(),
	}
	h.sendToClient(client, welcome)
}

func (h *Hub) unregisterClient(client *Client) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)

		for roomID, room := range h.rooms {
			if _, exists := room[client]; exists {
				delete(room, client)
				if len(room) == 0 {
					delete(h.rooms, roomID)
				}
			}
		}
	}
}

func (h *Hub) routeMessage(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		log.Printf("websocket: bad envelope: %v", err)
		return
	}
	if env.RoomID != "" {
		h.sendToRoom(env.RoomID, env)
	}
}

func (h *Hub) sendToRoom(roomID string, env Envelope) {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	room, exists := h.rooms[roomID]
	if !exists {
		return
	}

	data, _ := json.Marshal(env)
	for client := range room {
		select {
		case client.send <- data:
		default:
			close(client.send)
			delete(h.clients, client)
			delete(room, client)
		}
	}
}

func (h *Hub) sendToClient(client *Client, env Envelope) {
	data, _ := json.Marshal(env)
	select {
	case client.send <- data:
	default:
		close(client.send)
		delete(h.clients, client)
	}
}

// BroadcastRideEvent delivers a committed event to the ride's room.
func (h *Hub) BroadcastRideEvent(rideID primitive.ObjectID, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("websocket: marshal ride event: %v", err)
		return
	}
	h.sendToRoom(rideRoom(rideID), Envelope{
		Type:      eventType,
		RoomID:    rideRoom(rideID),
		Timestamp: time.Now().Unix(),
		Payload:   data,
	})
}

// BroadcastEmergency delivers an SOS trigger to the shared emergency room.
func (h *Hub) BroadcastEmergency(rideID primitive.ObjectID, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("websocket: marshal emergency event: %v", err)
		return
	}
	h.sendToRoom(EmergencyRoom, Envelope{
		Type:      "sos_triggered",
		RoomID:    EmergencyRoom,
		Timestamp: time.Now().Unix(),
		Payload:   data,
	})
}

// SendToUser delivers an envelope to one user's personal room.
func (h *Hub) SendToUser(userID primitive.ObjectID, env Envelope) {
	env.RoomID = userRoom(userID)
	h.sendToRoom(env.RoomID, env)
}

func (h *Hub) JoinRide(client *Client, rideID primitive.ObjectID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.joinRoom(client, rideRoom(rideID))
}

func (h *Hub) LeaveRoom(client *Client, roomID string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if room, exists := h.rooms[roomID]; exists {
		delete(room, client)
		delete(client.rooms, roomID)

		if len(room) == 0 {
			delete(h.rooms, roomID)
		}
	}
}

func (h *Hub) joinRoom(client *Client, roomID string) {
	if h.rooms[roomID] == nil {
		h.rooms[roomID] = make(map[*Client]bool)
	}
	h.rooms[roomID][client] = true
	client.rooms[roomID] = true
}

func rideRoom(rideID primitive.ObjectID) string {
	return "ride_" + rideID.Hex()
}

func userRoom(userID primitive.ObjectID) string {
	return "user_" + userID.Hex()
}
