// Package openfinance defines the Open-Finance record contract consumed by
// the pipeline and the staging-table provider that feeds it. The HTTP client
// that talks to the provider lives outside the core; it materializes records
// into the staging table and the pipeline reads them from there.
package openfinance

import (
	"context"
	"time"
)

// CreditCardMetadata carries card details for card-account records. Absent
// for bank/PIX accounts.
type CreditCardMetadata struct {
	CardNumber        string     `json:"cardNumber" msgpack:"card_number"` // Last 4 visible
	InstallmentNumber *int       `json:"installmentNumber,omitempty" msgpack:"installment_number,omitempty"`
	TotalInstallments *int       `json:"totalInstallments,omitempty" msgpack:"total_installments,omitempty"`
	PurchaseDate      *time.Time `json:"purchaseDate,omitempty" msgpack:"purchase_date,omitempty"`
}

// Record is one provider transaction, already signed (debits negative).
type Record struct {
	ID                      string              `json:"id" msgpack:"id"`
	AccountID               string              `json:"accountId" msgpack:"account_id"`
	Date                    time.Time           `json:"date" msgpack:"date"`
	Description             string              `json:"description" msgpack:"description"`
	Amount                  float64             `json:"amount" msgpack:"amount"`
	CurrencyCode            string              `json:"currencyCode" msgpack:"currency_code"`
	AmountInAccountCurrency *float64            `json:"amountInAccountCurrency,omitempty" msgpack:"amount_in_account_currency,omitempty"`
	Category                string              `json:"category,omitempty" msgpack:"category,omitempty"` // Provider taxonomy, never trusted
	Type                    string              `json:"type" msgpack:"type"`                             // DEBIT or CREDIT
	CreditCardMetadata      *CreditCardMetadata `json:"creditCardMetadata,omitempty" msgpack:"credit_card_metadata,omitempty"`
}

// Provider yields the Open-Finance records for one run.
type Provider interface {
	Fetch(ctx context.Context) ([]Record, error)
}

// MaxDate returns the latest record date, used by the date-guard to decide
// which window the feed is authoritative for. Zero time for an empty stream.
func MaxDate(records []Record) time.Time {
	var max time.Time
	for _, r := range records {
		if r.Date.After(max) {
			max = r.Date
		}
	}
	return max
}
