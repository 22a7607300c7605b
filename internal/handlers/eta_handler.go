package handlers

import (
	"campusride/internal/services"
	"campusride/internal/utils"

	"github.com/gin-gonic/gin"
)

type ETAHandler struct {
	eta *services.ETAService
}

func NewETAHandler(eta *services.ETAService) *ETAHandler {
	return &ETAHandler{eta: eta}
}

// Route returns the live route and ETA for the caller's view of the ride.
func (h *ETAHandler) Route(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	plan, err := h.eta.RouteForViewer(c.Request.Context(), rideID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Route", plan)
}
