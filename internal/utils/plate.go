package utils

import (
	"strings"
)

// NormalizePlate strips spaces and dashes and uppercases, producing the
// canonical form used for record lookups.
func NormalizePlate(raw string) string {
	normalized := strings.TrimSpace(raw)
	normalized = strings.ReplaceAll(normalized, " ", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	normalized = strings.ToUpper(normalized)
	return normalized
}

// FormatPlate renders a seven-character UK plate as "LL DD LLL" with a
// single space after the fourth character. Inputs that are not seven
// characters after normalization are returned normalized but unspaced.
func FormatPlate(raw string) string {
	normalized := NormalizePlate(raw)
	if len(normalized) != 7 {
		return normalized
	}
	return normalized[:4] + " " + normalized[4:]
}
