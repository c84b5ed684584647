// Package domain provides core domain models and types for the ingestion
// pipeline: canonical transactions, sources, categories and learned rules.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Origin identifies which parser produced a transaction. It drives the
// in-memory dedup priority (Open-Finance > spreadsheet > PIX text) and is
// persisted only inside raw_data.
type Origin string

const (
	OriginOpenFinance Origin = "open_finance"
	OriginSpreadsheet Origin = "spreadsheet"
	OriginPixText     Origin = "pix_text"
)

// Priority returns the dedup priority of the origin. Higher wins.
func (o Origin) Priority() int {
	switch o {
	case OriginOpenFinance:
		return 3
	case OriginSpreadsheet:
		return 2
	case OriginPixText:
		return 1
	}
	return 0
}

// Transaction is the canonical record every source is normalized into.
// Expenses are negative, income positive. MonthRef is the Portuguese
// billing-cycle label (19th of the previous month through the 18th).
type Transaction struct {
	ID          string            `json:"id"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Amount      float64           `json:"amount"`
	Source      Source            `json:"source"`
	Category    Category          `json:"category"`
	MonthRef    string            `json:"month_ref"`
	Origin      Origin            `json:"origin"`
	RawData     map[string]string `json:"raw_data,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   *time.Time        `json:"updated_at,omitempty"`
}

// NewTransaction builds a canonical transaction and validates its invariants.
// The id is assigned here and never reused. A blank description or a zero
// amount fails with ErrInvalidRecord (parsers are expected to skip zero rows
// before construction).
func NewTransaction(date time.Time, description string, amount float64, source Source, origin Origin) (*Transaction, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, fmt.Errorf("%w: empty description", ErrInvalidRecord)
	}
	if amount == 0 {
		return nil, fmt.Errorf("%w: zero amount", ErrInvalidRecord)
	}

	return &Transaction{
		ID:          uuid.NewString(),
		Date:        date,
		Description: description,
		Amount:      amount,
		Source:      source,
		Category:    CategoryUndefined,
		Origin:      origin,
		RawData:     map[string]string{},
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// SetCategory mutates the category exactly once, recording the edit time.
func (t *Transaction) SetCategory(c Category) {
	t.Category = c
	now := time.Now().UTC()
	t.UpdatedAt = &now
}

// DateString returns the posting date as YYYY-MM-DD, the storage format.
func (t *Transaction) DateString() string {
	return t.Date.Format("2006-01-02")
}

// LearnedRule is a persisted association of a normalized description with a
// category. UsageCount increments on every successful match.
type LearnedRule struct {
	Description string    `json:"description"` // Normalized uppercase form, unique key
	Category    Category  `json:"category"`
	Confidence  float64   `json:"confidence"` // In [0, 1]
	LearnedAt   time.Time `json:"learned_at"`
	UsageCount  int       `json:"usage_count"` // >= 1
}

// ProcessingStats aggregates the outcome of one pipeline run.
type ProcessingStats struct {
	FilesProcessed    int       `json:"files_processed"`
	RecordsParsed     int       `json:"records_parsed"`
	Inserted          int       `json:"inserted"`
	DuplicatesSkipped int       `json:"duplicates_skipped"`
	Categorized       int       `json:"categorized"`
	Undefined         int       `json:"undefined"`
	RulesLearned      int       `json:"rules_learned"`
	Warnings          []string  `json:"warnings,omitempty"`
	Errors            []string  `json:"errors,omitempty"`
	StartedAt         time.Time `json:"started_at"`
	FinishedAt        time.Time `json:"finished_at"`
}

// AddWarning records a non-fatal per-row or per-file issue.
func (s *ProcessingStats) AddWarning(format string, args ...interface{}) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

// AddError records a recoverable error that still counts against the run.
func (s *ProcessingStats) AddError(format string, args ...interface{}) {
	s.Errors = append(s.Errors, fmt.Sprintf(format, args...))
}

// Summary renders the one-line summary printed by the CLI.
func (s *ProcessingStats) Summary() string {
	return fmt.Sprintf(
		"files=%d records=%d inserted=%d duplicates=%d categorized=%d undefined=%d warnings=%d errors=%d",
		s.FilesProcessed, s.RecordsParsed, s.Inserted, s.DuplicatesSkipped,
		s.Categorized, s.Undefined, len(s.Warnings), len(s.Errors),
	)
}
