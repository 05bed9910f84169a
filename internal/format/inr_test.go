package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestINR(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "₹0.00"},
		{12.3, "₹12.30"},
		{999.999, "₹1,000.00"},
		{1250.5, "₹1,250.50"},
		{-250, "-₹250.00"},
		{10.005, "₹10.01"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, INR(tt.amount), "INR(%v)", tt.amount)
	}
}
