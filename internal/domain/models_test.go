package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction(t *testing.T) {
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name        string
		description string
		amount      float64
		wantErr     bool
	}{
		{
			name:        "valid expense",
			description: "MERCADO X",
			amount:      -120.00,
			wantErr:     false,
		},
		{
			name:        "valid income",
			description: "SISPAG PIX EMPRESA X",
			amount:      5000.00,
			wantErr:     false,
		},
		{
			name:        "empty description",
			description: "   ",
			amount:      -10.00,
			wantErr:     true,
		},
		{
			name:        "zero amount",
			description: "TARIFA",
			amount:      0,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx, err := NewTransaction(date, tt.description, tt.amount, SourcePix, OriginPixText)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidRecord))
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, tx.ID)
			assert.Equal(t, CategoryUndefined, tx.Category)
			assert.Equal(t, date, tx.Date)
			assert.Nil(t, tx.UpdatedAt)
			assert.False(t, tx.CreatedAt.IsZero())
		})
	}
}

func TestNewTransaction_UniqueIDs(t *testing.T) {
	date := time.Date(2025, 9, 15, 0, 0, 0, 0, time.UTC)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tx, err := NewTransaction(date, "MERCADO X", -1.00, SourcePix, OriginPixText)
		require.NoError(t, err)
		assert.False(t, seen[tx.ID], "duplicate id %s", tx.ID)
		seen[tx.ID] = true
	}
}

func TestTransaction_SetCategory(t *testing.T) {
	tx, err := NewTransaction(time.Now(), "FARMACIA Y", -35.90, SourceVisaFisico, OriginSpreadsheet)
	require.NoError(t, err)

	tx.SetCategory(CategoryPharmacy)

	assert.Equal(t, CategoryPharmacy, tx.Category)
	require.NotNil(t, tx.UpdatedAt)
}

func TestOrigin_Priority(t *testing.T) {
	assert.Greater(t, OriginOpenFinance.Priority(), OriginSpreadsheet.Priority())
	assert.Greater(t, OriginSpreadsheet.Priority(), OriginPixText.Priority())
	assert.Greater(t, OriginPixText.Priority(), Origin("bogus").Priority())
}

func TestProcessingStats_Summary(t *testing.T) {
	stats := &ProcessingStats{
		FilesProcessed:    3,
		RecordsParsed:     42,
		Inserted:          40,
		DuplicatesSkipped: 2,
		Categorized:       30,
		Undefined:         10,
	}
	stats.AddWarning("skipped row %d", 7)
	stats.AddError("file %s unreadable", "202509_Itau.xlsx")

	summary := stats.Summary()
	assert.Contains(t, summary, "files=3")
	assert.Contains(t, summary, "inserted=40")
	assert.Contains(t, summary, "duplicates=2")
	assert.Contains(t, summary, "warnings=1")
	assert.Contains(t, summary, "errors=1")
}

func TestParseError(t *testing.T) {
	err := NewParseError("202509_Extrato.txt", 12, "bad date")
	assert.True(t, errors.Is(err, ErrParse))
	assert.Contains(t, err.Error(), "202509_Extrato.txt:12")
}
