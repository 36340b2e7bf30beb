package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chargeops/dispatch/controllers/cancel_book_controller"
	"github.com/chargeops/dispatch/middlewares/auth"
)

func RegisterCancelBookRoutes(router *gin.Engine, service *cancel_book_controller.CancelBookService) {
	cancelController := cancel_book_controller.NewCancelBookController(service)

	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("/bookings/:booking_id/cancel", cancelController.CancelBook)
	}
}
