// Package normalize implements description cleanup, billing-cycle month
// assignment and dedup-key construction for canonical transactions.
package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/utils"
)

// portugueseMonths holds full month names, indexed by time.Month.
var portugueseMonths = [13]string{
	"",
	"Janeiro", "Fevereiro", "Março", "Abril", "Maio", "Junho",
	"Julho", "Agosto", "Setembro", "Outubro", "Novembro", "Dezembro",
}

// trailingDateOrInstallment matches the " dd/mm" per-payment dates the bank
// appends and the " x/y" installment markers on card rows. Both poison the
// dedup key and are stripped before key construction.
var trailingDateOrInstallment = regexp.MustCompile(`\s\d{1,2}/\d{1,2}$`)

// pixTrailingDate matches a PIX description ending in the appended dd/mm
// payment date.
var pixTrailingDate = regexp.MustCompile(`^PIX\b.*\s\d{2}/\d{2}$`)

// Description trims, uppercases and strips the trailing "dd/mm" marker from
// PIX descriptions. This runs before dedup-key construction; the same real
// payment must not generate distinct keys across months.
func Description(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if pixTrailingDate.MatchString(s) {
		s = strings.TrimSpace(s[:len(s)-6])
	}
	return s
}

// DedupDescription produces the description form used in the dedup key:
// the normalized form with trailing date and installment markers stripped
// and interior whitespace collapsed.
func DedupDescription(s string) string {
	s = Description(s)
	for {
		stripped := trailingDateOrInstallment.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = strings.TrimSpace(stripped)
	}
	return utils.CollapseWhitespace(s)
}

// MonthRef assigns the billing-cycle month label for a posting date. The
// cycle runs from the 19th of month M-1 through the 18th of month M, so a
// transaction on day >= 19 belongs to the following month.
func MonthRef(date time.Time) string {
	y, m := BillingMonth(date)
	return fmt.Sprintf("%s %d", portugueseMonths[m], y)
}

// BillingMonth returns the (year, month) billing pair for a posting date,
// also used by file discovery to walk the look-back window.
func BillingMonth(date time.Time) (int, time.Month) {
	y, m, d := date.Date()
	if d >= 19 {
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return y, m
}

// MonthLabel renders the Portuguese label for a (year, month) pair.
func MonthLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", portugueseMonths[month], year)
}

// Transaction applies the full normalization pass in order: description
// cleanup, month-of-competence assignment, and id/created_at stamping.
// Sources are already resolved by the parsers, which own the card-final
// context. An empty post-trim description fails with ErrInvalidRecord.
func Transaction(tx *domain.Transaction) error {
	desc := Description(tx.Description)
	if desc == "" {
		return fmt.Errorf("%w: description empty after normalization", domain.ErrInvalidRecord)
	}
	if tx.RawData == nil {
		tx.RawData = map[string]string{}
	}
	if _, ok := tx.RawData["original_description"]; !ok {
		tx.RawData["original_description"] = tx.Description
	}
	tx.Description = desc
	tx.Amount = utils.Round2(tx.Amount)
	tx.MonthRef = MonthRef(tx.Date)

	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}
	return nil
}

// Key is the logical dedup key: (date, normalized description, amount
// quantized to 2dp, source, month_ref).
func Key(tx *domain.Transaction) string {
	return fmt.Sprintf("%s|%s|%.2f|%s|%s",
		tx.DateString(), DedupDescription(tx.Description), utils.Round2(tx.Amount), tx.Source, tx.MonthRef)
}
