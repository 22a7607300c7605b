package handlers

import (
	"campusride/internal/services"
	"campusride/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SOSHandler struct {
	sos *services.SOSService
}

func NewSOSHandler(sos *services.SOSService) *SOSHandler {
	return &SOSHandler{sos: sos}
}

// Trigger raises an emergency on the caller's ongoing ride.
func (h *SOSHandler) Trigger(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	if err := h.sos.TriggerSOS(c.Request.Context(), rideID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "SOS triggered", nil)
}

type respondSOSRequest struct {
	// Optional: when omitted the responder's registered car is used.
	CarID string `json:"car_id"`
}

// Respond claims the emergency for the calling driver.
func (h *SOSHandler) Respond(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	var req respondSOSRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request: "+err.Error())
			return
		}
	}
	carID := primitive.NilObjectID
	if req.CarID != "" {
		parsed, err := primitive.ObjectIDFromHex(req.CarID)
		if err != nil {
			utils.BadRequestResponse(c, "Invalid car ID")
			return
		}
		carID = parsed
	}

	if err := h.sos.RespondToSOS(c.Request.Context(), rideID, userID, carID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "SOS claimed", nil)
}

// Start marks the responder's pickup leg as underway.
func (h *SOSHandler) Start(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	if err := h.sos.StartSOSRide(c.Request.Context(), rideID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "SOS ride started", nil)
}

// Complete resolves the emergency and completes the ride.
func (h *SOSHandler) Complete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	if err := h.sos.CompleteSOSRide(c.Request.Context(), rideID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "SOS ride completed", nil)
}

// Feed lists the open, unclaimed emergencies for responding drivers.
func (h *SOSHandler) Feed(c *gin.Context) {
	rides, err := h.sos.EmergencyFeed(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Open emergencies", rides, &utils.Meta{Count: len(rides)})
}
