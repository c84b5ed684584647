package parsers

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/openfinance"
)

// OpenFinanceResult is the output of one Open-Finance stream.
type OpenFinanceResult struct {
	Transactions []*domain.Transaction
	Warnings     []Warning
}

// OpenFinanceParser maps provider records to canonical transactions. When a
// record carries credit-card metadata the source is resolved through the
// originating account's bank profile; otherwise the record is a bank
// movement and sources as PIX. The provider's category taxonomy is
// incompatible with ours and is preserved in raw_data only.
type OpenFinanceParser struct {
	accountBanks map[string]*domain.BankProfile // accountId -> issuing bank
	defaultBank  *domain.BankProfile
	log          zerolog.Logger
}

// NewOpenFinanceParser creates a record parser. accountBanks maps provider
// account ids to bank profiles; records from unknown card accounts use
// defaultBank.
func NewOpenFinanceParser(accountBanks map[string]*domain.BankProfile, defaultBank *domain.BankProfile, log zerolog.Logger) *OpenFinanceParser {
	if defaultBank == nil {
		defaultBank = domain.BankItau
	}
	return &OpenFinanceParser{
		accountBanks: accountBanks,
		defaultBank:  defaultBank,
		log:          log.With().Str("parser", "open_finance").Logger(),
	}
}

// Parse converts a materialized record stream. Records never fail the run;
// problem records become warnings.
func (p *OpenFinanceParser) Parse(records []openfinance.Record) *OpenFinanceResult {
	result := &OpenFinanceResult{}

	for _, rec := range records {
		description := rec.Description
		amount := rec.Amount

		// A foreign purchase carries the converted value; keep the
		// original currency and value visible in the description.
		if rec.AmountInAccountCurrency != nil {
			amount = *rec.AmountInAccountCurrency
			description = fmt.Sprintf("%s (%s %.2f)", description, rec.CurrencyCode, rec.Amount)
		}

		if amount == 0 {
			result.Warnings = append(result.Warnings, Warning{File: rec.ID, Message: "zero amount record skipped"})
			continue
		}

		source := domain.SourcePix
		if rec.CreditCardMetadata != nil {
			bank := p.accountBanks[rec.AccountID]
			if bank == nil {
				bank = p.defaultBank
			}
			source = bank.ResolveCardFinal(lastFour(rec.CreditCardMetadata.CardNumber))
		}

		tx, err := domain.NewTransaction(rec.Date.UTC(), description, amount, source, domain.OriginOpenFinance)
		if err != nil {
			result.Warnings = append(result.Warnings, Warning{File: rec.ID, Message: err.Error()})
			continue
		}

		tx.RawData["provider_id"] = rec.ID
		tx.RawData["account_id"] = rec.AccountID
		tx.RawData["type"] = rec.Type
		if rec.Category != "" {
			tx.RawData["provider_category"] = rec.Category
		}
		if rec.AmountInAccountCurrency != nil {
			tx.RawData["original_currency"] = rec.CurrencyCode
			tx.RawData["original_amount"] = fmt.Sprintf("%.2f", rec.Amount)
		}
		if md := rec.CreditCardMetadata; md != nil {
			if md.InstallmentNumber != nil {
				tx.RawData["installment_number"] = strconv.Itoa(*md.InstallmentNumber)
			}
			if md.TotalInstallments != nil {
				tx.RawData["total_installments"] = strconv.Itoa(*md.TotalInstallments)
			}
		}

		result.Transactions = append(result.Transactions, tx)
	}

	p.log.Debug().Int("records", len(records)).Int("mapped", len(result.Transactions)).Msg("Parsed Open-Finance stream")
	return result
}

// lastFour keeps only the last four characters of a masked card number.
func lastFour(cardNumber string) string {
	if len(cardNumber) <= 4 {
		return cardNumber
	}
	return cardNumber[len(cardNumber)-4:]
}
