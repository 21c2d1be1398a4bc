package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected string
	}{
		{name: "zero", input: 0, expected: "0"},
		{name: "hundreds", input: 999, expected: "999"},
		{name: "exactly 1000", input: 1000, expected: "1.0K"},
		{name: "thousands", input: 1500, expected: "1.5K"},
		{name: "exactly 1 million", input: 1000000, expected: "1.0M"},
		{name: "millions", input: 2500000, expected: "2.5M"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatNumber(tt.input))
		})
	}
}

func TestFormatTicks(t *testing.T) {
	tests := []struct {
		input    uint64
		expected string
	}{
		{0, "0"},
		{9999, "9999"},
		{10000, "10.0K"},
		{2500000, "2500.0K"},
		{12000000, "12.0M"},
		{45000000000, "45.0G"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatTicks(tt.input), "FormatTicks(%d)", tt.input)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{1536, "1.5 KiB"},
		{5 * 1024 * 1024, "5.0 MiB"},
		{3 * 1024 * 1024 * 1024, "3.0 GiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatBytes(tt.input), "FormatBytes(%d)", tt.input)
	}
}

func TestFormatThousands(t *testing.T) {
	tests := []struct {
		input    uint64
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{123456, "123,456"},
		{1234567, "1,234,567"},
		{18446744073709551615, "18,446,744,073,709,551,615"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatThousands(tt.input))
	}
}
