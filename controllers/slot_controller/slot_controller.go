package slot_controller

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/chargeops/dispatch/cache"
	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/models/slot_models"
)

// Availability responses are cached briefly; counts drift by at most this
// much before the next read hits the database again.
const availabilityCacheTTL = 30 * time.Second

// SlotController serves slot availability for the booking flow.
type SlotController struct {
	DB    *pgxpool.Pool
	Cache cache.Store
}

// NewSlotController creates a new instance of SlotController.
func NewSlotController(pool *pgxpool.Pool, store cache.Store) *SlotController {
	return &SlotController{DB: pool, Cache: store}
}

type slotAvailabilityResponse struct {
	Date  string                         `json:"date"`
	Slots []slot_models.SlotAvailability `json:"slots"`
}

// ListSlots handles GET /slots?date=YYYY-MM-DD.
func (sc *SlotController) ListSlots(c *gin.Context) {
	dateParam := c.Query("date")
	if dateParam == "" {
		dateParam = time.Now().Format("2006-01-02")
	}
	date, err := time.Parse("2006-01-02", dateParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	cacheKey := "slots:availability:" + dateParam
	if sc.Cache != nil {
		if cached, err := sc.Cache.Get(c.Request.Context(), cacheKey); err == nil {
			var resp slotAvailabilityResponse
			if err := json.Unmarshal([]byte(cached), &resp); err == nil {
				c.JSON(http.StatusOK, resp)
				return
			}
		} else if !errors.Is(err, cache.ErrKeyNotFound) {
			logger.WarnLogger.Warnf("Slot availability cache read failed: %v", err)
		}
	}

	slots, err := slot_models.ListSlotsByDate(c.Request.Context(), sc.DB, date)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to list slots for %s: %v", dateParam, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
		return
	}

	resp := slotAvailabilityResponse{Date: dateParam, Slots: slots}
	if sc.Cache != nil {
		if payload, err := json.Marshal(resp); err == nil {
			if _, err := sc.Cache.SetNX(c.Request.Context(), cacheKey, string(payload), availabilityCacheTTL); err != nil {
				logger.WarnLogger.Warnf("Slot availability cache write failed: %v", err)
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}

// GetAvailability handles GET /slots/:slot_id/availability?date=YYYY-MM-DD.
func (sc *SlotController) GetAvailability(c *gin.Context) {
	slotID, err := uuid.Parse(c.Param("slot_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid slot ID format"})
		return
	}

	dateParam := c.Query("date")
	if dateParam == "" {
		dateParam = time.Now().Format("2006-01-02")
	}
	date, err := time.Parse("2006-01-02", dateParam)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	slot, err := slot_models.GetSlotByID(c.Request.Context(), sc.DB, slotID)
	if err != nil {
		if errors.Is(err, slot_models.ErrSlotNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "No slot found with this id"})
			return
		}
		logger.ErrorLogger.Errorf("Failed to fetch slot %s: %v", slotID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
		return
	}

	count, err := slot_models.ActiveBookingCount(c.Request.Context(), sc.DB, slotID, date)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to count bookings for slot %s: %v", slotID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong. Please try again."})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"slot":            slot,
		"date":            dateParam,
		"active_bookings": count,
		"available":       count < slot.BookingLimit,
	})
}
