package reliability

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/database"
	"github.com/lutivix/financeiro/internal/store"
)

// WeeklyMaintenanceJob compacts the database and folds together learned
// rules whose descriptions normalize to the same key.
type WeeklyMaintenanceJob struct {
	db    *database.DB
	rules *store.LearnedRuleRepository
	log   zerolog.Logger
}

// NewWeeklyMaintenanceJob creates a new weekly maintenance job
func NewWeeklyMaintenanceJob(db *database.DB, rules *store.LearnedRuleRepository, log zerolog.Logger) *WeeklyMaintenanceJob {
	return &WeeklyMaintenanceJob{
		db:    db,
		rules: rules,
		log:   log.With().Str("job", "weekly_maintenance").Logger(),
	}
}

// Name returns the job name for scheduler
func (j *WeeklyMaintenanceJob) Name() string {
	return "weekly_maintenance"
}

// Run executes the weekly maintenance job
func (j *WeeklyMaintenanceJob) Run() error {
	j.log.Info().Msg("Starting weekly maintenance")
	startTime := time.Now()

	merged, err := j.rules.MergeNormalizedCollisions()
	if err != nil {
		j.log.Error().Err(err).Msg("Rule merge failed")
		// Continue, vacuum is independent
	} else if merged > 0 {
		j.log.Info().Int("merged", merged).Msg("Learned rules folded")
	}

	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		j.log.Error().Err(err).Msg("WAL checkpoint failed")
	}

	if err := j.vacuumDatabase(); err != nil {
		j.log.Error().Err(err).Msg("VACUUM failed")
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Weekly maintenance completed")
	return nil
}

// vacuumDatabase performs VACUUM on the database
func (j *WeeklyMaintenanceJob) vacuumDatabase() error {
	var pageCount, pageSize int
	j.db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount)
	j.db.Conn().QueryRow("PRAGMA page_size").Scan(&pageSize)
	sizeBefore := float64(pageCount*pageSize) / 1024 / 1024

	_, err := j.db.Conn().Exec("VACUUM")
	if err != nil {
		return fmt.Errorf("VACUUM failed: %w", err)
	}

	j.db.Conn().QueryRow("PRAGMA page_count").Scan(&pageCount)
	sizeAfter := float64(pageCount*pageSize) / 1024 / 1024

	j.log.Info().
		Float64("size_before_mb", sizeBefore).
		Float64("size_after_mb", sizeAfter).
		Float64("space_reclaimed_mb", sizeBefore-sizeAfter).
		Msg("VACUUM completed")
	return nil
}
