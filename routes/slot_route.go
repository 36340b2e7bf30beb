package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargeops/dispatch/cache"
	"github.com/chargeops/dispatch/controllers/slot_controller"
)

func RegisterSlotRoutes(router *gin.Engine, pool *pgxpool.Pool, store cache.Store) {
	slotController := slot_controller.NewSlotController(pool, store)

	// Slot availability is browsed before authentication during booking.
	router.GET("/slots", slotController.ListSlots)
	router.GET("/slots/:slot_id/availability", slotController.GetAvailability)
}
