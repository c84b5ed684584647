// Package dedup removes duplicate transactions before persistence. It runs
// in two phases: an in-memory pass over the freshly parsed batch, then a
// probe against rows already stored. A date guard additionally drops
// account rows a higher-priority feed already covers.
package dedup

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/normalize"
)

// duplicateProbe is the slice of the transaction store dedup needs.
type duplicateProbe interface {
	FindPossibleDuplicates(date string, amount float64, source domain.Source) []string
}

// Deduplicator drops duplicates from a parsed batch. When disabled it
// passes batches through untouched.
type Deduplicator struct {
	repo    duplicateProbe
	enabled bool
	log     zerolog.Logger
}

func New(repo duplicateProbe, enabled bool, log zerolog.Logger) *Deduplicator {
	return &Deduplicator{
		repo:    repo,
		enabled: enabled,
		log:     log.With().Str("component", "dedup").Logger(),
	}
}

// Result reports what each phase removed.
type Result struct {
	Kept         []*domain.Transaction
	BatchDropped int
	StoreDropped int
	GuardDropped int
}

// Run applies the batch pass, the date guard and the store probe in order.
// ofCutoff is the newest posting date the open-finance feed covers; zero
// disables the guard.
func (d *Deduplicator) Run(txs []*domain.Transaction, ofCutoff time.Time) Result {
	if !d.enabled {
		return Result{Kept: txs}
	}

	kept, batchDropped := d.dedupBatch(txs)
	kept, guardDropped := d.applyDateGuard(kept, ofCutoff)
	kept, storeDropped := d.dedupAgainstStore(kept)

	if batchDropped+guardDropped+storeDropped > 0 {
		d.log.Info().
			Int("batch", batchDropped).
			Int("guard", guardDropped).
			Int("store", storeDropped).
			Msg("Dropped duplicates")
	}
	return Result{
		Kept:         kept,
		BatchDropped: batchDropped,
		StoreDropped: storeDropped,
		GuardDropped: guardDropped,
	}
}

// dedupBatch keeps one transaction per dedup key. Candidates are visited
// highest origin priority first so an open-finance row always survives its
// spreadsheet or text twin.
func (d *Deduplicator) dedupBatch(txs []*domain.Transaction) ([]*domain.Transaction, int) {
	ordered := make([]*domain.Transaction, len(txs))
	copy(ordered, txs)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Origin.Priority() != ordered[j].Origin.Priority() {
			return ordered[i].Origin.Priority() > ordered[j].Origin.Priority()
		}
		return ordered[i].Date.Before(ordered[j].Date)
	})

	seen := make(map[string]struct{}, len(ordered))
	kept := make([]*domain.Transaction, 0, len(ordered))
	dropped := 0
	for _, tx := range ordered {
		key := normalize.Key(tx)
		if _, ok := seen[key]; ok {
			dropped++
			d.log.Debug().Str("key", key).Str("origin", string(tx.Origin)).Msg("Duplicate in batch")
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, tx)
	}

	// Restore a stable chronological order for downstream stages.
	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Date.Before(kept[j].Date)
	})
	return kept, dropped
}

// applyDateGuard drops file-sourced account rows dated on or before the
// newest open-finance posting. The two feeds describe the same account
// movements with different wording, so key matching cannot catch them;
// the cutover date can. Card rows are never guarded because card files and
// open finance cover different billing windows.
func (d *Deduplicator) applyDateGuard(txs []*domain.Transaction, cutoff time.Time) ([]*domain.Transaction, int) {
	if cutoff.IsZero() {
		return txs, 0
	}

	kept := make([]*domain.Transaction, 0, len(txs))
	dropped := 0
	for _, tx := range txs {
		if tx.Source == domain.SourcePix && tx.Origin != domain.OriginOpenFinance && !tx.Date.After(cutoff) {
			dropped++
			d.log.Debug().
				Str("date", tx.DateString()).
				Str("description", tx.Description).
				Msg("Covered by open finance window")
			continue
		}
		kept = append(kept, tx)
	}
	return kept, dropped
}

// dedupAgainstStore probes stored rows with the same date, amount and
// source, then compares descriptions in dedup form. Descriptions differ in
// trailing dates and installment counters between runs, the dedup form
// strips those.
func (d *Deduplicator) dedupAgainstStore(txs []*domain.Transaction) ([]*domain.Transaction, int) {
	kept := make([]*domain.Transaction, 0, len(txs))
	dropped := 0
	for _, tx := range txs {
		if d.existsInStore(tx) {
			dropped++
			continue
		}
		kept = append(kept, tx)
	}
	return kept, dropped
}

func (d *Deduplicator) existsInStore(tx *domain.Transaction) bool {
	want := normalize.DedupDescription(tx.Description)
	for _, stored := range d.repo.FindPossibleDuplicates(tx.DateString(), tx.Amount, tx.Source) {
		if normalize.DedupDescription(stored) == want {
			return true
		}
	}
	return false
}
