package handlers

import (
	"errors"
	"net/http"

	"campusride/internal/models"
	"campusride/internal/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// currentUserID reads the authenticated caller set by the auth middleware.
func currentUserID(c *gin.Context) (primitive.ObjectID, bool) {
	v, exists := c.Get("user_id")
	if !exists {
		utils.UnauthorizedResponse(c)
		return primitive.NilObjectID, false
	}
	userID, ok := v.(primitive.ObjectID)
	if !ok {
		utils.BadRequestResponse(c, "Invalid user ID")
		return primitive.NilObjectID, false
	}
	return userID, true
}

func rideIDParam(c *gin.Context) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondDomainError maps the named precondition errors onto HTTP statuses.
// Unknown errors fall through to a 500 so internals never leak.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrRideNotFound):
		utils.NotFoundResponse(c, "Ride")
	case errors.Is(err, models.ErrUserNotFound):
		utils.NotFoundResponse(c, "User")
	case errors.Is(err, models.ErrCarNotFound):
		utils.NotFoundResponse(c, "Car")
	case errors.Is(err, models.ErrMessageNotFound):
		utils.NotFoundResponse(c, "Message")

	case errors.Is(err, models.ErrNotAuthorized):
		utils.ForbiddenResponse(c)

	case errors.Is(err, models.ErrInvalidSeats),
		errors.Is(err, models.ErrDepartureInPast),
		errors.Is(err, models.ErrEmptyMessage):
		utils.BadRequestResponse(c, err.Error())

	case errors.Is(err, models.ErrRideFull):
		utils.ConflictResponse(c, "RIDE_FULL", err.Error())
	case errors.Is(err, models.ErrAlreadyInActiveRide):
		utils.ConflictResponse(c, "ALREADY_IN_ACTIVE_RIDE", err.Error())
	case errors.Is(err, models.ErrNotBooked):
		utils.ConflictResponse(c, "NOT_BOOKED", err.Error())
	case errors.Is(err, models.ErrRideNotBookable):
		utils.ConflictResponse(c, "RIDE_NOT_BOOKABLE", err.Error())
	case errors.Is(err, models.ErrRideNotPending):
		utils.ConflictResponse(c, "RIDE_NOT_PENDING", err.Error())
	case errors.Is(err, models.ErrRideNotOngoing):
		utils.ConflictResponse(c, "RIDE_NOT_ONGOING", err.Error())
	case errors.Is(err, models.ErrRideEnded):
		utils.ConflictResponse(c, "RIDE_ENDED", err.Error())
	case errors.Is(err, models.ErrTooCloseToDeparture):
		utils.ConflictResponse(c, "TOO_CLOSE_TO_DEPARTURE", err.Error())
	case errors.Is(err, models.ErrSOSAlreadyActive):
		utils.ConflictResponse(c, "SOS_ALREADY_ACTIVE", err.Error())
	case errors.Is(err, models.ErrSOSNotActive):
		utils.ConflictResponse(c, "SOS_NOT_ACTIVE", err.Error())
	case errors.Is(err, models.ErrSOSActive):
		utils.ConflictResponse(c, "SOS_ACTIVE", err.Error())
	case errors.Is(err, models.ErrSOSNotStarted):
		utils.ConflictResponse(c, "SOS_NOT_STARTED", err.Error())
	case errors.Is(err, models.ErrSOSAlreadyStarted):
		utils.ConflictResponse(c, "SOS_ALREADY_STARTED", err.Error())
	case errors.Is(err, models.ErrAlreadyResponded):
		utils.ConflictResponse(c, "SOS_ALREADY_CLAIMED", err.Error())
	case errors.Is(err, models.ErrNoSignal):
		utils.ConflictResponse(c, "NO_SIGNAL", err.Error())
	case errors.Is(err, models.ErrConflict):
		utils.ConflictResponse(c, "CONFLICT", err.Error())

	default:
		utils.ErrorResponse(c, http.StatusInternalServerError, "INTERNAL_ERROR", utils.ErrInternalServer)
	}
}
