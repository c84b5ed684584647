package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/database"
	"github.com/lutivix/financeiro/internal/domain"
)

// TransactionRepository handles transaction persistence in the append-only
// store. Writes are atomic per batch; reads degrade to empty results with a
// logged warning so the read side never raises into the pipeline.
type TransactionRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTransactionRepository creates a transaction repository.
func NewTransactionRepository(db *sql.DB, log zerolog.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:  db,
		log: log.With().Str("repo", "transactions").Logger(),
	}
}

// InsertBatch inserts transactions atomically. Insertion is upsert-by-id;
// dedup against the store happens before this call. On any failure the whole
// batch rolls back and the count is zero.
func (r *TransactionRepository) InsertBatch(ctx context.Context, txs []*domain.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	count := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO transactions
				(id, date, description, amount, source, category, month_ref, raw_data, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, t := range txs {
			rawData, err := json.Marshal(t.RawData)
			if err != nil {
				return fmt.Errorf("failed to encode raw_data for %s: %w", t.ID, err)
			}

			var updatedAt interface{}
			if t.UpdatedAt != nil {
				updatedAt = t.UpdatedAt.Unix()
			}

			if _, err := stmt.ExecContext(ctx,
				t.ID, t.DateString(), t.Description, t.Amount,
				string(t.Source), string(t.Category), t.MonthRef,
				string(rawData), t.CreatedAt.Unix(), updatedAt,
			); err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", t.ID, err)
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}

	return count, nil
}

// FindPossibleDuplicates returns the stored descriptions matching a
// (date, amount, source) probe, for Phase B dedup. Read errors degrade to an
// empty result.
func (r *TransactionRepository) FindPossibleDuplicates(date string, amount float64, source domain.Source) []string {
	rows, err := r.db.Query(
		`SELECT description FROM transactions WHERE date = ? AND amount = ? AND source = ?`,
		date, amount, string(source),
	)
	if err != nil {
		r.log.Warn().Err(err).Msg("Duplicate probe failed, treating as no duplicates")
		return nil
	}
	defer rows.Close()

	var descriptions []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			r.log.Warn().Err(err).Msg("Duplicate probe scan failed")
			return descriptions
		}
		descriptions = append(descriptions, d)
	}
	if err := rows.Err(); err != nil {
		r.log.Warn().Err(err).Msg("Duplicate probe iteration failed")
	}
	return descriptions
}

// QueryRange returns transactions posted inside [start, end], ordered by
// date. Read errors degrade to an empty result with a logged warning.
func (r *TransactionRepository) QueryRange(start, end time.Time) []*domain.Transaction {
	rows, err := r.db.Query(`
		SELECT id, date, description, amount, source, category, month_ref, raw_data, created_at, updated_at
		FROM transactions
		WHERE date >= ? AND date <= ?
		ORDER BY date, id
	`, start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		r.log.Warn().Err(err).Msg("Range query failed, returning empty result")
		return nil
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Skipping unreadable transaction row")
			continue
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		r.log.Warn().Err(err).Msg("Range query iteration failed")
	}
	return result
}

// MaxDateForSources returns the latest stored posting date across the given
// sources, for the cross-source date-guard. Zero time when nothing matches
// or the read fails.
func (r *TransactionRepository) MaxDateForSources(sources []domain.Source) time.Time {
	if len(sources) == 0 {
		return time.Time{}
	}

	placeholders := ""
	args := make([]interface{}, len(sources))
	for i, s := range sources {
		if i > 0 {
			placeholders += ","
		}
		placeholders += "?"
		args[i] = string(s)
	}

	var max sql.NullString
	query := fmt.Sprintf(`SELECT MAX(date) FROM transactions WHERE source IN (%s)`, placeholders)
	if err := r.db.QueryRow(query, args...).Scan(&max); err != nil {
		r.log.Warn().Err(err).Msg("Max date query failed")
		return time.Time{}
	}
	if !max.Valid {
		return time.Time{}
	}

	t, err := time.Parse("2006-01-02", max.String)
	if err != nil {
		r.log.Warn().Str("date", max.String).Msg("Unparseable max date in store")
		return time.Time{}
	}
	return t
}

// MonthRefs returns the billing-month labels present in the store, ordered
// chronologically by their earliest posting date.
func (r *TransactionRepository) MonthRefs() []string {
	rows, err := r.db.Query(`SELECT month_ref, MIN(date) AS first FROM transactions GROUP BY month_ref ORDER BY first`)
	if err != nil {
		r.log.Warn().Err(err).Msg("Month ref query failed, returning empty result")
		return nil
	}
	defer rows.Close()

	var refs []string
	for rows.Next() {
		var ref, first string
		if err := rows.Scan(&ref, &first); err != nil {
			r.log.Warn().Err(err).Msg("Month ref scan failed")
			return refs
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		r.log.Warn().Err(err).Msg("Month ref iteration failed")
	}
	return refs
}

// CategoryTotals sums amounts per category for one billing month.
func (r *TransactionRepository) CategoryTotals(monthRef string) map[domain.Category]float64 {
	rows, err := r.db.Query(
		`SELECT category, SUM(amount) FROM transactions WHERE month_ref = ? GROUP BY category`,
		monthRef,
	)
	if err != nil {
		r.log.Warn().Err(err).Msg("Category totals query failed, returning empty result")
		return nil
	}
	defer rows.Close()

	totals := make(map[domain.Category]float64)
	for rows.Next() {
		var cat string
		var sum float64
		if err := rows.Scan(&cat, &sum); err != nil {
			r.log.Warn().Err(err).Msg("Category totals scan failed")
			return totals
		}
		totals[domain.ParseCategory(cat)] += sum
	}
	if err := rows.Err(); err != nil {
		r.log.Warn().Err(err).Msg("Category totals iteration failed")
	}
	return totals
}

// Count returns the number of stored transactions.
func (r *TransactionRepository) Count() int {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&n); err != nil {
		r.log.Warn().Err(err).Msg("Count query failed")
		return 0
	}
	return n
}

// QueryMonth returns every transaction of one billing month, ordered by date.
func (r *TransactionRepository) QueryMonth(monthRef string) []*domain.Transaction {
	rows, err := r.db.Query(`
		SELECT id, date, description, amount, source, category, month_ref, raw_data, created_at, updated_at
		FROM transactions
		WHERE month_ref = ?
		ORDER BY date, id
	`, monthRef)
	if err != nil {
		r.log.Warn().Err(err).Msg("Month query failed, returning empty result")
		return nil
	}
	defer rows.Close()

	var result []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Skipping unreadable transaction row")
			continue
		}
		result = append(result, t)
	}
	if err := rows.Err(); err != nil {
		r.log.Warn().Err(err).Msg("Month query iteration failed")
	}
	return result
}

// scanTransaction reads one row into a canonical transaction. Legacy rows
// may have NULL id/raw_data/created_at; they scan into zero values.
func scanTransaction(rows *sql.Rows) (*domain.Transaction, error) {
	var (
		id, date, description, source, category, monthRef sql.NullString
		amount                                            float64
		rawData                                           sql.NullString
		createdAt, updatedAt                              sql.NullInt64
	)
	if err := rows.Scan(&id, &date, &description, &amount, &source, &category, &monthRef, &rawData, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}

	d, err := time.Parse("2006-01-02", date.String)
	if err != nil {
		return nil, fmt.Errorf("invalid stored date %q: %w", date.String, err)
	}

	t := &domain.Transaction{
		ID:          id.String,
		Date:        d,
		Description: description.String,
		Amount:      amount,
		Source:      domain.Source(source.String),
		Category:    domain.ParseCategory(category.String),
		MonthRef:    monthRef.String,
	}
	if rawData.Valid && rawData.String != "" {
		if err := json.Unmarshal([]byte(rawData.String), &t.RawData); err != nil {
			// Legacy provenance is best-effort; keep the row readable.
			t.RawData = map[string]string{}
		}
	}
	if createdAt.Valid {
		t.CreatedAt = time.Unix(createdAt.Int64, 0).UTC()
	}
	if updatedAt.Valid {
		u := time.Unix(updatedAt.Int64, 0).UTC()
		t.UpdatedAt = &u
	}
	return t, nil
}
