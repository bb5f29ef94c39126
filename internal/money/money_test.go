package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "$0.00"},
		{2500, "$2,500.00"},
		{1500.5, "$1,500.50"},
		{19.999, "$20.00"},
		{1234567.89, "$1,234,567.89"},
	}
	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			assert.Equal(t, tc.expected, Format(tc.amount))
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		input    string
		expected float64
	}{
		{"$2,500.00", 2500},
		{"2500", 2500},
		{" $1,234.56 ", 1234.56},
		{"0", 0},
		{"not a number", 0},
		{"", 0},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, Parse(tc.input))
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, amount := range []float64{0, 99.99, 2500, 1234567.89} {
		assert.Equal(t, amount, Parse(Format(amount)))
	}
}
