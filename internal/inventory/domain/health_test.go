package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHealthPercentage(t *testing.T) {
	tests := []struct {
		name      string
		available int
		minimum   int
		want      float64
	}{
		{name: "zero minimum short-circuits", available: 120, minimum: 0, want: 0.0},
		{name: "zero minimum zero available", available: 0, minimum: 0, want: 0.0},
		{name: "at minimum", available: 10, minimum: 10, want: 0.0},
		{name: "double the minimum", available: 20, minimum: 10, want: 100.0},
		{name: "triple the minimum", available: 30, minimum: 10, want: 200.0},
		{name: "half the minimum", available: 5, minimum: 10, want: -50.0},
		{name: "out of stock", available: 0, minimum: 10, want: -100.0},
		{name: "rounds to two decimals", available: 1, minimum: 3, want: -66.67},
		{name: "fractional result", available: 7, minimum: 8, want: -12.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HealthPercentage(tt.available, tt.minimum))
		})
	}
}

func TestHealthPercentageMonotonic(t *testing.T) {
	prev := HealthPercentage(0, 25)
	for available := 1; available <= 100; available++ {
		cur := HealthPercentage(available, 25)
		assert.Greater(t, cur, prev, "available=%d", available)
		prev = cur
	}
}
