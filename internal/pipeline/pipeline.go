// Package pipeline orchestrates one ingestion run: discover input files,
// load the open-finance feed, parse everything, dedupe, categorize, persist
// and learn. The run is a linear state machine; each stage checks for
// cancellation before starting and a failed persist aborts the run.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/categorize"
	"github.com/lutivix/financeiro/internal/dedup"
	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/normalize"
	"github.com/lutivix/financeiro/internal/openfinance"
	"github.com/lutivix/financeiro/internal/parsers"
	"github.com/lutivix/financeiro/internal/store"
)

// State identifies where a run currently is.
type State string

const (
	StateIdle         State = "idle"
	StateDiscovering  State = "discovering"
	StateLoading      State = "loading"
	StateParsing      State = "parsing"
	StateMerging      State = "merging"
	StateDeduping     State = "deduping"
	StateCategorizing State = "categorizing"
	StatePersisting   State = "persisting"
	StateLearning     State = "learning"
	StateDone         State = "done"
	StateFailed       State = "failed"
)

// Options tunes a single run.
type Options struct {
	MonthsBack      int
	SkipOpenFinance bool
	DryRun          bool // Parse and categorize but do not write
	Now             time.Time
}

// Pipeline wires the ingestion stages together. Safe for one run at a time;
// State is readable concurrently.
type Pipeline struct {
	dataDir  string
	profiles []*domain.BankProfile

	txRepo      *store.TransactionRepository
	dedup       *dedup.Deduplicator
	categorizer *categorize.Categorizer
	ofParser    *parsers.OpenFinanceParser
	provider    openfinance.Provider // nil when open finance is off
	staging     *openfinance.StagingRepository

	log zerolog.Logger

	mu    sync.Mutex
	state State
}

// New assembles a pipeline. provider may be nil; the loading stage then
// falls back to previously staged records.
func New(
	dataDir string,
	profiles []*domain.BankProfile,
	txRepo *store.TransactionRepository,
	deduplicator *dedup.Deduplicator,
	categorizer *categorize.Categorizer,
	ofParser *parsers.OpenFinanceParser,
	provider openfinance.Provider,
	staging *openfinance.StagingRepository,
	log zerolog.Logger,
) *Pipeline {
	return &Pipeline{
		dataDir:     dataDir,
		profiles:    profiles,
		txRepo:      txRepo,
		dedup:       deduplicator,
		categorizer: categorizer,
		ofParser:    ofParser,
		provider:    provider,
		staging:     staging,
		log:         log.With().Str("component", "pipeline").Logger(),
		state:       StateIdle,
	}
}

// State returns the current run state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
	p.log.Debug().Str("state", string(s)).Msg("State change")
}

// enter transitions into the next stage unless the run was cancelled.
func (p *Pipeline) enter(ctx context.Context, s State) error {
	if err := ctx.Err(); err != nil {
		p.setState(StateFailed)
		return err
	}
	p.setState(s)
	return nil
}

// Run executes one full ingestion pass. Per-file parse failures are
// recorded in the stats and do not abort the run; a store write failure
// does. The returned stats are valid even on error.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*domain.ProcessingStats, error) {
	if opts.MonthsBack < 1 {
		opts.MonthsBack = 1
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	stats := &domain.ProcessingStats{StartedAt: time.Now()}
	defer func() { stats.FinishedAt = time.Now() }()

	if err := p.enter(ctx, StateDiscovering); err != nil {
		return stats, err
	}
	files := DiscoverFiles(p.dataDir, opts.MonthsBack, p.profiles, opts.Now)
	p.log.Info().Int("files", len(files)).Int("months_back", opts.MonthsBack).Msg("Discovered input files")

	if err := p.enter(ctx, StateLoading); err != nil {
		return stats, err
	}
	ofRecords, ofCutoff := p.loadOpenFinance(ctx, opts, stats)

	if err := p.enter(ctx, StateParsing); err != nil {
		return stats, err
	}
	parsed := p.parseFiles(files, stats)

	if err := p.enter(ctx, StateMerging); err != nil {
		return stats, err
	}
	if len(ofRecords) > 0 {
		res := p.ofParser.Parse(ofRecords)
		p.collectWarnings(res.Warnings, stats)
		parsed = append(parsed, res.Transactions...)
	}
	merged := make([]*domain.Transaction, 0, len(parsed))
	for _, tx := range parsed {
		if err := normalize.Transaction(tx); err != nil {
			stats.AddWarning("normalizing %q: %v", tx.Description, err)
			continue
		}
		merged = append(merged, tx)
	}
	parsed = merged
	stats.RecordsParsed = len(parsed)

	if err := p.enter(ctx, StateDeduping); err != nil {
		return stats, err
	}
	dres := p.dedup.Run(parsed, ofCutoff)
	stats.DuplicatesSkipped = dres.BatchDropped + dres.GuardDropped + dres.StoreDropped
	kept := dres.Kept

	if err := p.enter(ctx, StateCategorizing); err != nil {
		return stats, err
	}
	stats.Categorized = p.categorizer.Categorize(kept)
	stats.Undefined = len(kept) - stats.Categorized

	if opts.DryRun {
		p.setState(StateDone)
		p.log.Info().Str("summary", stats.Summary()).Msg("Dry run complete")
		return stats, nil
	}

	if err := p.enter(ctx, StatePersisting); err != nil {
		return stats, err
	}
	inserted, err := p.txRepo.InsertBatch(ctx, kept)
	if err != nil {
		p.setState(StateFailed)
		stats.AddError("persist failed: %v", err)
		return stats, fmt.Errorf("persisting batch: %w", err)
	}
	stats.Inserted = inserted

	if err := p.enter(ctx, StateLearning); err != nil {
		return stats, err
	}
	learned, err := p.categorizer.Learn(kept)
	if err != nil {
		// Learning is an optimization for the next run, never fatal.
		stats.AddWarning("learning failed: %v", err)
	}
	stats.RulesLearned = learned

	p.setState(StateDone)
	p.log.Info().Str("summary", stats.Summary()).Msg("Run complete")
	return stats, nil
}

// loadOpenFinance fetches fresh records when a provider is wired, staging
// them for offline reruns. A fetch failure degrades to the staged copy.
func (p *Pipeline) loadOpenFinance(ctx context.Context, opts Options, stats *domain.ProcessingStats) ([]openfinance.Record, time.Time) {
	if opts.SkipOpenFinance || (p.provider == nil && p.staging == nil) {
		return nil, time.Time{}
	}

	if p.provider != nil {
		records, err := p.provider.Fetch(ctx)
		if err == nil {
			if p.staging != nil {
				if serr := p.staging.Store(records); serr != nil {
					stats.AddWarning("staging open finance records: %v", serr)
				}
			}
			return records, openfinance.MaxDate(records)
		}
		stats.AddWarning("open finance fetch failed, using staged records: %v", err)
	}

	if p.staging == nil {
		return nil, time.Time{}
	}
	records, err := p.staging.Fetch(ctx)
	if err != nil {
		stats.AddWarning("reading staged open finance records: %v", err)
		return nil, time.Time{}
	}
	return records, openfinance.MaxDate(records)
}

// parseFiles runs every discovered file through its parser. A file that
// fails entirely is an error in the stats; the remaining files still parse.
func (p *Pipeline) parseFiles(files []InputFile, stats *domain.ProcessingStats) []*domain.Transaction {
	var all []*domain.Transaction
	for _, f := range files {
		txs, warnings, err := p.parseOne(f)
		if err != nil {
			stats.AddError("parsing %s: %v", f.Path, err)
			continue
		}
		stats.FilesProcessed++
		p.collectWarnings(warnings, stats)
		all = append(all, txs...)
	}
	return all
}

func (p *Pipeline) parseOne(f InputFile) ([]*domain.Transaction, []parsers.Warning, error) {
	if f.Profile == nil {
		res, err := parsers.NewPixParser(p.log).Parse(f.Path)
		if err != nil {
			return nil, nil, err
		}
		return res.Transactions, res.Warnings, nil
	}
	res, err := parsers.NewCardSpreadsheetParser(f.Profile, p.log).Parse(f.Path)
	if err != nil {
		return nil, nil, err
	}
	return res.Transactions, res.Warnings, nil
}

func (p *Pipeline) collectWarnings(warnings []parsers.Warning, stats *domain.ProcessingStats) {
	for _, w := range warnings {
		stats.AddWarning("%s", w.String())
	}
}
