package openfinance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"
)

// StagingRepository reads Open-Finance records from the
// transactions_openfinance staging table. The out-of-band fetcher writes
// rows as msgpack blobs keyed by the provider's stable id; the pipeline
// only reads them.
type StagingRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewStagingRepository creates a staging repository.
func NewStagingRepository(db *sql.DB, log zerolog.Logger) *StagingRepository {
	return &StagingRepository{
		db:  db,
		log: log.With().Str("repo", "openfinance_staging").Logger(),
	}
}

// EnsureSchema creates the staging table when missing. The fetcher calls
// this; the pipeline tolerates an absent table by returning no records.
func (r *StagingRepository) EnsureSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions_openfinance (
			id TEXT PRIMARY KEY,
			fetched_at INTEGER NOT NULL,
			payload BLOB NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create staging table: %w", err)
	}
	return nil
}

// Store upserts fetched records into the staging table.
func (r *StagingRepository) Store(records []Record) error {
	if err := r.EnsureSchema(); err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, rec := range records {
		payload, err := msgpack.Marshal(rec)
		if err != nil {
			return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
		}
		_, err = r.db.Exec(
			`INSERT OR REPLACE INTO transactions_openfinance (id, fetched_at, payload) VALUES (?, ?, ?)`,
			rec.ID, now, payload,
		)
		if err != nil {
			return fmt.Errorf("failed to store record %s: %w", rec.ID, err)
		}
	}
	return nil
}

// Fetch implements Provider by loading every staged record. A missing table
// degrades to an empty stream with a logged warning; staging is an optional
// input.
func (r *StagingRepository) Fetch(ctx context.Context) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, payload FROM transactions_openfinance ORDER BY id`)
	if err != nil {
		r.log.Warn().Err(err).Msg("Staging table unavailable, treating as empty")
		return nil, nil
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var id string
		var payload []byte
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan staged record: %w", err)
		}

		var rec Record
		if err := msgpack.Unmarshal(payload, &rec); err != nil {
			r.log.Warn().Str("id", id).Err(err).Msg("Skipping undecodable staged record")
			continue
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate staged records: %w", err)
	}

	r.log.Debug().Int("count", len(records)).Msg("Loaded staged Open-Finance records")
	return records, nil
}
