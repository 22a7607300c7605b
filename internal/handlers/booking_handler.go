package handlers

import (
	"campusride/internal/services"
	"campusride/internal/utils"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	booking *services.BookingService
}

func NewBookingHandler(booking *services.BookingService) *BookingHandler {
	return &BookingHandler{booking: booking}
}

type bookRideRequest struct {
	// ConfirmSwap acknowledges leaving the caller's current ride for this one.
	ConfirmSwap bool `json:"confirm_swap"`
}

// BookRide reserves a seat on the ride for the caller.
func (h *BookingHandler) BookRide(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	var req bookRideRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.BadRequestResponse(c, "Invalid request: "+err.Error())
			return
		}
	}

	if err := h.booking.BookRide(c.Request.Context(), rideID, userID, req.ConfirmSwap); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Seat booked", nil)
}

// CancelBooking gives the caller's seat back.
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	rideID, ok := rideIDParam(c)
	if !ok {
		return
	}

	if err := h.booking.CancelBooking(c.Request.Context(), rideID, userID); err != nil {
		respondDomainError(c, err)
		return
	}

	utils.SuccessResponse(c, "Booking cancelled", nil)
}
