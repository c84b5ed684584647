package parsers

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/openfinance"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func TestOpenFinanceParser_BankRecordSourcesAsPix(t *testing.T) {
	p := NewOpenFinanceParser(nil, nil, zerolog.Nop())

	records := []openfinance.Record{{
		ID:           "of-1",
		AccountID:    "acc-1",
		Date:         time.Date(2025, 10, 20, 14, 30, 0, 0, time.UTC),
		Description:  "PIX TO MERCADO X",
		Amount:       -120.00,
		CurrencyCode: "BRL",
		Type:         "DEBIT",
	}}

	result := p.Parse(records)
	require.Len(t, result.Transactions, 1)

	tx := result.Transactions[0]
	assert.Equal(t, domain.SourcePix, tx.Source)
	assert.Equal(t, domain.OriginOpenFinance, tx.Origin)
	assert.Equal(t, -120.00, tx.Amount)
	assert.Equal(t, "of-1", tx.RawData["provider_id"])
}

func TestOpenFinanceParser_CurrencyOverrideAnnotatesDescription(t *testing.T) {
	p := NewOpenFinanceParser(nil, nil, zerolog.Nop())

	records := []openfinance.Record{{
		ID:                      "of-2",
		AccountID:               "acc-1",
		Date:                    time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC),
		Description:             "AMAZON",
		Amount:                  -50.00,
		CurrencyCode:            "USD",
		AmountInAccountCurrency: floatPtr(-265.30),
		Type:                    "DEBIT",
	}}

	result := p.Parse(records)
	require.Len(t, result.Transactions, 1)

	tx := result.Transactions[0]
	assert.Equal(t, -265.30, tx.Amount)
	assert.Equal(t, "AMAZON (USD -50.00)", tx.Description)
	assert.Equal(t, "USD", tx.RawData["original_currency"])
}

func TestOpenFinanceParser_CardMetadataResolvesSource(t *testing.T) {
	accountBanks := map[string]*domain.BankProfile{"card-acc": domain.BankPersonnalite}
	p := NewOpenFinanceParser(accountBanks, domain.BankItau, zerolog.Nop())

	records := []openfinance.Record{
		{
			ID: "of-3", AccountID: "card-acc",
			Date:        time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC),
			Description: "LOJA A", Amount: -80.00, CurrencyCode: "BRL", Type: "DEBIT",
			CreditCardMetadata: &openfinance.CreditCardMetadata{
				CardNumber:        "**** **** **** 6259",
				InstallmentNumber: intPtr(2),
				TotalInstallments: intPtr(10),
			},
		},
		{
			ID: "of-4", AccountID: "unknown-acc",
			Date:        time.Date(2025, 10, 12, 0, 0, 0, 0, time.UTC),
			Description: "LOJA B", Amount: -90.00, CurrencyCode: "BRL", Type: "DEBIT",
			CreditCardMetadata: &openfinance.CreditCardMetadata{CardNumber: "9999"},
		},
	}

	result := p.Parse(records)
	require.Len(t, result.Transactions, 2)

	assert.Equal(t, domain.SourceVisaFisico, result.Transactions[0].Source)
	assert.Equal(t, "2", result.Transactions[0].RawData["installment_number"])
	assert.Equal(t, "10", result.Transactions[0].RawData["total_installments"])

	// Unknown account uses the default bank; unknown final uses its fallback.
	assert.Equal(t, domain.SourceMasterVirtual, result.Transactions[1].Source)
}

func TestOpenFinanceParser_ProviderCategoryIgnored(t *testing.T) {
	p := NewOpenFinanceParser(nil, nil, zerolog.Nop())

	records := []openfinance.Record{{
		ID: "of-5", AccountID: "acc-1",
		Date:        time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC),
		Description: "UBER TRIP", Amount: -30.00, CurrencyCode: "BRL",
		Category: "Transportation", Type: "DEBIT",
	}}

	result := p.Parse(records)
	require.Len(t, result.Transactions, 1)

	tx := result.Transactions[0]
	assert.Equal(t, domain.CategoryUndefined, tx.Category, "provider taxonomy is incompatible")
	assert.Equal(t, "Transportation", tx.RawData["provider_category"])
}

func TestOpenFinanceParser_SkipsZeroAndEmpty(t *testing.T) {
	p := NewOpenFinanceParser(nil, nil, zerolog.Nop())

	records := []openfinance.Record{
		{ID: "of-6", Date: time.Now(), Description: "ZERO", Amount: 0, Type: "DEBIT"},
		{ID: "of-7", Date: time.Now(), Description: "   ", Amount: -5, Type: "DEBIT"},
	}

	result := p.Parse(records)
	assert.Empty(t, result.Transactions)
	assert.Len(t, result.Warnings, 2)
}

func TestMaxDate(t *testing.T) {
	assert.True(t, openfinance.MaxDate(nil).IsZero())

	records := []openfinance.Record{
		{Date: time.Date(2025, 10, 10, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC)},
		{Date: time.Date(2025, 10, 15, 0, 0, 0, 0, time.UTC)},
	}
	assert.Equal(t, time.Date(2025, 10, 20, 0, 0, 0, 0, time.UTC), openfinance.MaxDate(records))
}
