package handlers

import (
	"campusride/internal/services"
	"campusride/internal/utils"
	"campusride/internal/validators"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type SignalHandler struct {
	signals *services.SignalService
}

func NewSignalHandler(signals *services.SignalService) *SignalHandler {
	return &SignalHandler{signals: signals}
}

type recordSignalRequest struct {
	Latitude  float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude float64 `json:"longitude" validate:"min=-180,max=180"`
}

// Record appends a location ping for the active driver.
func (h *SignalHandler) Record(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	var req recordSignalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if fieldErrs := validators.ValidateStruct(&req); fieldErrs != nil {
		utils.ValidationErrorResponse(c, fieldErrs)
		return
	}

	signal, err := h.signals.Record(c.Request.Context(), rideID, userID, req.Latitude, req.Longitude)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.CreatedResponse(c, "Signal recorded", signal)
}

// Feed returns the ride's recent signals for participants.
func (h *SignalHandler) Feed(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	signals, err := h.signals.Feed(c.Request.Context(), rideID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Signals", signals, &utils.Meta{Count: len(signals)})
}

// Latest returns the most recent signal a given participant reported.
func (h *SignalHandler) Latest(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}
	subjectID, err := primitive.ObjectIDFromHex(c.Query("user_id"))
	if err != nil {
		utils.BadRequestResponse(c, "user_id query parameter required")
		return
	}

	signal, err := h.signals.LatestByUser(c.Request.Context(), rideID, userID, subjectID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Latest signal", signal)
}
