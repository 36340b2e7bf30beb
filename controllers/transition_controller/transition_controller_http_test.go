package transition_controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTransitionRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	controller := NewTransitionController(&TransitionService{})
	r.POST("/bookings/:booking_id/transition", controller.TransitionStatus)
	return r
}

func TestTransitionStatusRejectsBadRequests(t *testing.T) {
	router := newTransitionRouter()

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ``},
		{"missing technician", `{"status":"enroute"}`},
		{"missing status", `{"technician_id":"0c6cc9a3-9f4e-4f8f-9b06-2d5f4f6f7a8b"}`},
		{"technician not a uuid", `{"technician_id":"tech-1","status":"enroute"}`},
		{"bad image id", `{"technician_id":"0c6cc9a3-9f4e-4f8f-9b06-2d5f4f6f7a8b","status":"reached","image_id":"nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/bookings/VC-00001/transition", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
