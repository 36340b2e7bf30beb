package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/chargeops/dispatch/controllers/assignment_controller"
	"github.com/chargeops/dispatch/middlewares/auth"
)

func RegisterAssignmentRoutes(router *gin.Engine, service *assignment_controller.AssignmentService) {
	assignmentController := assignment_controller.NewAssignmentController(service)

	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware())
	{
		// Only the dispatch desk routes jobs to technicians.
		protected.POST("/bookings/:booking_id/assign", auth.RequireRole("admin", "dispatcher"), assignmentController.AssignTechnician)

		protected.POST("/bookings/:booking_id/accept", assignmentController.AcceptBooking)
		protected.POST("/bookings/:booking_id/reject", assignmentController.RejectBooking)
	}
}
