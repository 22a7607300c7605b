package routes

import (
	"campusride/internal/handlers"
	"campusride/internal/middleware"
	ws "campusride/pkg/websocket"

	"github.com/gin-gonic/gin"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Rides    *handlers.RideHandler
	Bookings *handlers.BookingHandler
	SOS      *handlers.SOSHandler
	Signals  *handlers.SignalHandler
	Messages *handlers.MessageHandler
	ETA      *handlers.ETAHandler
	WS       *ws.Handler
}

// SetupRideRoutes mounts the ride lifecycle API under the given group.
func SetupRideRoutes(r *gin.RouterGroup, h *Handlers, jwtSecret string) {
	auth := middleware.AuthRequired(jwtSecret)

	rides := r.Group("/rides")
	rides.Use(auth)
	{
		rides.GET("", h.Rides.ListRides)
		rides.POST("", middleware.DriverRequired(), h.Rides.CreateRide)
		rides.GET("/mine", h.Rides.MyRides)
		rides.GET("/:id", h.Rides.GetRide)

		rides.POST("/:id/start", h.Rides.StartRide)
		rides.POST("/:id/cancel", h.Rides.CancelRide)
		rides.POST("/:id/complete", h.Rides.CompleteRide)

		rides.POST("/:id/book", h.Bookings.BookRide)
		rides.DELETE("/:id/book", h.Bookings.CancelBooking)

		rides.POST("/:id/sos", h.SOS.Trigger)
		rides.POST("/:id/sos/respond", middleware.DriverRequired(), h.SOS.Respond)
		rides.POST("/:id/sos/start", h.SOS.Start)
		rides.POST("/:id/sos/complete", h.SOS.Complete)

		rides.POST("/:id/signals", h.Signals.Record)
		rides.GET("/:id/signals", h.Signals.Feed)
		rides.GET("/:id/signals/latest", h.Signals.Latest)

		rides.POST("/:id/messages", h.Messages.Send)
		rides.GET("/:id/messages", h.Messages.List)

		rides.GET("/:id/eta", h.ETA.Route)
	}

	messages := r.Group("/messages")
	messages.Use(auth)
	{
		messages.POST("/:id/read", h.Messages.MarkRead)
	}

	emergencies := r.Group("/emergencies")
	emergencies.Use(auth, middleware.DriverRequired())
	{
		emergencies.GET("", h.SOS.Feed)
	}

	users := r.Group("/users")
	users.Use(auth)
	{
		users.GET("/me/ride", h.Rides.ActiveRide)
	}

	r.GET("/ws", auth, h.WS.HandleWebSocket)
}
