package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseCustomRate(t *testing.T) {
	tests := []struct {
		input      string
		wantLimit  int64
		wantPeriod time.Duration
		wantErr    bool
	}{
		{"10-2m", 10, 2 * time.Minute, false},
		{"5-1h", 5, time.Hour, false},
		{"20-10s", 20, 10 * time.Second, false},
		{"1-1m", 1, time.Minute, false},
		{"10", 0, 0, true},
		{"abc-2m", 0, 0, true},
		{"10-2d", 0, 0, true},
		{"10-2", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			rate, err := ParseCustomRate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantLimit, rate.Limit)
			assert.Equal(t, tt.wantPeriod, rate.Period)
		})
	}
}
