package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chargeops/dispatch/controllers/booking_controller"
	middleware "github.com/chargeops/dispatch/middlewares"
	"github.com/chargeops/dispatch/middlewares/auth"
)

func RegisterBookingRoutes(router *gin.Engine, service *booking_controller.BookingService) {
	bookingController := booking_controller.NewBookingController(service)

	// Protected routes
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("/bookings", middleware.NewRateLimiter("5-1m", "createBooking"), bookingController.CreateBooking)
		protected.GET("/bookings/:booking_id", bookingController.GetBooking)
	}
}
