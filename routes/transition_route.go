package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chargeops/dispatch/controllers/transition_controller"
	"github.com/chargeops/dispatch/middlewares/auth"
)

func RegisterTransitionRoutes(router *gin.Engine, service *transition_controller.TransitionService) {
	transitionController := transition_controller.NewTransitionController(service)

	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware())
	{
		protected.POST("/bookings/:booking_id/transition", transitionController.TransitionStatus)
	}
}
