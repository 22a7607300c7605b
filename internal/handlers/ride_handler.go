package handlers

import (
	"strconv"

	"campusride/internal/services"
	"campusride/internal/utils"
	"campusride/internal/validators"

	"github.com/gin-gonic/gin"
)

type RideHandler struct {
	lifecycle  *services.LifecycleService
	membership *services.MembershipService
}

func NewRideHandler(lifecycle *services.LifecycleService, membership *services.MembershipService) *RideHandler {
	return &RideHandler{
		lifecycle:  lifecycle,
		membership: membership,
	}
}

// CreateRide publishes a new ride for the authenticated driver.
func (h *RideHandler) CreateRide(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req services.CreateRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request: "+err.Error())
		return
	}
	if fieldErrs := validators.ValidateStruct(&req); fieldErrs != nil {
		utils.ValidationErrorResponse(c, fieldErrs)
		return
	}

	ride, err := h.lifecycle.CreateRide(c.Request.Context(), userID, &req)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.CreatedResponse(c, "Ride published", ride)
}

// ListRides is the public upcoming-rides board.
func (h *RideHandler) ListRides(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	var toCampus *bool
	if raw, exists := c.GetQuery("to_campus"); exists {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			utils.BadRequestResponse(c, "to_campus must be true or false")
			return
		}
		toCampus = &parsed
	}

	rides, total, err := h.membership.ListUpcoming(c.Request.Context(), toCampus, params)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "Upcoming rides", rides, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Count:      len(rides),
	})
}

// GetRide returns one ride.
func (h *RideHandler) GetRide(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	ride, err := h.membership.GetRide(c.Request.Context(), rideID, userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride", ride)
}

// MyRides lists the rides the authenticated driver has published.
func (h *RideHandler) MyRides(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	rides, total, err := h.membership.ListByDriver(c.Request.Context(), userID, params)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponseWithMeta(c, "My rides", rides, &utils.Meta{
		Pagination: utils.CreatePaginationMeta(params, total),
		Count:      len(rides),
	})
}

// ActiveRide returns the caller's current non-terminal ride, if any.
func (h *RideHandler) ActiveRide(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	ride, err := h.membership.ActiveRideFor(c.Request.Context(), userID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Active ride", ride)
}

// StartRide begins the trip.
func (h *RideHandler) StartRide(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	if err := h.lifecycle.StartRide(c.Request.Context(), rideID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride started", nil)
}

// CancelRide cancels a pending ride.
func (h *RideHandler) CancelRide(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	if err := h.lifecycle.CancelRide(c.Request.Context(), rideID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride cancelled", nil)
}

// CompleteRide finishes an ongoing ride.
func (h *RideHandler) CompleteRide(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	if err := h.lifecycle.CompleteRide(c.Request.Context(), rideID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Ride completed", nil)
}
