package handlers

import (
	"campusride/internal/services"
	"campusride/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type MessageHandler struct {
	messages *services.MessageService
}

func NewMessageHandler(messages *services.MessageService) *MessageHandler {
	return &MessageHandler{messages: messages}
}

type sendChatRequest struct {
	Body string `json:"body" binding:"required"`
}

// Send appends a chat message to the ride's log.
func (h *MessageHandler) Send(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	var req sendChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}

	msg, err := h.messages.SendChat(c.Request.Context(), rideID, userID, req.Body)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.CreatedResponse(c, "Message sent", msg)
}

// List returns the ride's message log for participants.
func (h *MessageHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	log, err := h.messages.ListByRide(c.Request.Context(), rideID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Messages", log, &utils.Meta{Count: len(log)})
}

// MarkRead records a read receipt on one message.
func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	messageID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid message ID")
		return
	}

	if err := h.messages.MarkRead(c.Request.Context(), messageID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Message marked read", nil)
}
