package utils

import (
	"testing"
)

func TestNormalizePlate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with space",
			input:    "AA70 PYY",
			expected: "AA70PYY",
		},
		{
			name:     "lowercase",
			input:    "aa70pyy",
			expected: "AA70PYY",
		},
		{
			name:     "with dashes",
			input:    "AA-70-PYY",
			expected: "AA70PYY",
		},
		{
			name:     "already normalized",
			input:    "AA70PYY",
			expected: "AA70PYY",
		},
		{
			name:     "with leading/trailing spaces",
			input:    "  AA70 PYY  ",
			expected: "AA70PYY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NormalizePlate(tt.input)
			if result != tt.expected {
				t.Errorf("NormalizePlate(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestFormatPlate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "compact seven characters",
			input:    "AA70PYY",
			expected: "AA70 PYY",
		},
		{
			name:     "already spaced",
			input:    "AA70 PYY",
			expected: "AA70 PYY",
		},
		{
			name:     "lowercase",
			input:    "aa03boj",
			expected: "AA03 BOJ",
		},
		{
			name:     "non-standard length left unspaced",
			input:    "AB12",
			expected: "AB12",
		},
		{
			name:     "dashed input",
			input:    "bd51-smr",
			expected: "BD51 SMR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatPlate(tt.input)
			if result != tt.expected {
				t.Errorf("FormatPlate(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}
