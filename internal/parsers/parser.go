// Package parsers turns the three source formats (PIX text extracts, card
// spreadsheets and Open-Finance records) into canonical transactions.
package parsers

import (
	"fmt"
	"strings"
)

// Warning records a skipped row. Warnings are non-fatal and accumulate in
// the run's ProcessingStats.
type Warning struct {
	File    string
	Line    int
	Message string
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", w.File, w.Line, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.File, w.Message)
}

// cardPaymentMarkers are the bank's internal invoice-settlement rows. They
// would double-count against card-sourced rows and are discarded on sight,
// on both the PIX and the card side.
var cardPaymentMarkers = []string{
	"ITAU BLACK",
	"ITAU VISA",
	"PAGAMENTO EFETUADO",
	"PGTO FATURA",
	"PAGAMENTO CARTAO",
}

// isCardPaymentMarker reports whether an uppercase description is one of the
// bank's card invoice settlement rows.
func isCardPaymentMarker(upper string) bool {
	for _, m := range cardPaymentMarkers {
		if strings.Contains(upper, m) {
			return true
		}
	}
	return false
}

// foreignCurrencyTokens flags the USD/EUR side of a split foreign purchase;
// the converted companion row carries the real amount in account currency.
var foreignCurrencyTokens = map[string]bool{
	"USD": true, "US": true, "EUR": true, "EURO": true,
	"CHF": true, "GBP": true, "SWITZERLAND": true,
}

// isForeignCurrencyRow matches whole whitespace tokens against the foreign
// currency set, plus any token carrying a currency symbol.
func isForeignCurrencyRow(upper string) bool {
	for _, tok := range strings.Fields(upper) {
		if foreignCurrencyTokens[tok] {
			return true
		}
		if strings.ContainsAny(tok, "$€") {
			return true
		}
	}
	return false
}

// isConversionMarker matches the spreadsheet's "dólar de conversão" row,
// which lends its date to the following converted row.
func isConversionMarker(upper string) bool {
	return strings.Contains(upper, "CONVERS") &&
		(strings.Contains(upper, "DOLAR") || strings.Contains(upper, "DÓLAR"))
}
