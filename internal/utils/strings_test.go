package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCSV(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "", nil},
		{"single", "Itau", []string{"Itau"}},
		{"two with spaces", " Itau , Personnalite ", []string{"Itau", "Personnalite"}},
		{"only commas", ",,,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseCSV(tt.input))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		wantErr  bool
	}{
		{"decimal comma", "5000,00", 5000.00, false},
		{"decimal dot", "265.30", 265.30, false},
		{"thousands dot decimal comma", "1.234,56", 1234.56, false},
		{"thousands comma decimal dot", "1,234.56", 1234.56, false},
		{"currency prefix", "R$ 120,00", 120.00, false},
		{"negative", "-50,25", -50.25, false},
		{"integer", "42", 42.0, false},
		{"empty", "   ", 0, true},
		{"garbage", "abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := ParseAmount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.expected, v, 0.0001)
		})
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 10.57, Round2(10.565))
	assert.Equal(t, -120.00, Round2(-120.004))
	assert.Equal(t, 0.0, Round2(0))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "PIX MERCADO X", CollapseWhitespace("  PIX   MERCADO \t X "))
	assert.Equal(t, "", CollapseWhitespace("   "))
}

func TestDateRoundTrip(t *testing.T) {
	ts, err := DateToUnix("2025-10-19")
	require.NoError(t, err)
	assert.Equal(t, "2025-10-19", UnixToDate(ts))

	_, err = DateToUnix("19/10/2025")
	assert.Error(t, err)
}

func TestParseDayFirstDate(t *testing.T) {
	d, err := ParseDayFirstDate("15/09/2025")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC), d)

	_, err = ParseDayFirstDate("2025-09-15")
	assert.Error(t, err)
}
