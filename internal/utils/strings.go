// Package utils provides small parsing and formatting helpers shared by the
// parsers, normalizer and store.
package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseCSV splits a comma-separated string and returns trimmed non-empty
// values. Returns nil for empty/whitespace-only input. Used to parse
// comma-separated bank-name lists from configuration.
func ParseCSV(s string) []string {
	if s == "" {
		return nil
	}

	var result []string
	for _, v := range strings.Split(s, ",") {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	if len(result) == 0 {
		return nil
	}

	return result
}

// ParseAmount parses a monetary value tolerating both Brazilian ("1.234,56")
// and plain ("1234.56") formats, with an optional R$ prefix.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")
	if lastComma > lastDot {
		// Comma is the decimal separator, dots are thousands.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if lastDot > lastComma {
		// Dot is the decimal separator, commas are thousands.
		s = strings.ReplaceAll(s, ",", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return v, nil
}

// Round2 quantizes a monetary value to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// CollapseWhitespace replaces runs of whitespace with a single space and
// trims the result.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
