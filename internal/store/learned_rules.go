package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/database"
	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/normalize"
)

// LearnedRuleRepository persists the learned description-to-category
// dictionary. Rules are created on first sighting and only ever updated by
// incrementing usage_count; a maintenance merge resolves normalization
// collisions.
type LearnedRuleRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewLearnedRuleRepository creates a learned rule repository.
func NewLearnedRuleRepository(db *sql.DB, log zerolog.Logger) *LearnedRuleRepository {
	return &LearnedRuleRepository{
		db:  db,
		log: log.With().Str("repo", "learned_rules").Logger(),
	}
}

// Upsert inserts a rule on first sighting or increments its usage count.
// Returns true when a new rule was created.
func (r *LearnedRuleRepository) Upsert(description string, category domain.Category) (bool, error) {
	_, err := r.db.Exec(`
		INSERT INTO learned_rules (description, category, confidence, learned_at, usage_count)
		VALUES (?, ?, 1.0, ?, 1)
		ON CONFLICT(description) DO UPDATE SET usage_count = usage_count + 1
	`, description, string(category), time.Now().Unix())
	if err != nil {
		return false, fmt.Errorf("%w: failed to upsert learned rule: %v", domain.ErrStore, err)
	}

	// RowsAffected is 1 for both upsert paths with SQLite; distinguish a
	// fresh insert by reading the counter back.
	var usage int
	if err := r.db.QueryRow(`SELECT usage_count FROM learned_rules WHERE description = ?`, description).Scan(&usage); err != nil {
		return false, fmt.Errorf("%w: failed to read back learned rule: %v", domain.ErrStore, err)
	}
	return usage == 1, nil
}

// IncrementUsage bumps the usage counter after a successful lookup match.
func (r *LearnedRuleRepository) IncrementUsage(description string) error {
	_, err := r.db.Exec(`UPDATE learned_rules SET usage_count = usage_count + 1 WHERE description = ?`, description)
	if err != nil {
		return fmt.Errorf("%w: failed to increment usage: %v", domain.ErrStore, err)
	}
	return nil
}

// Get returns one rule by its normalized description key. Read errors
// degrade to a miss.
func (r *LearnedRuleRepository) Get(description string) (*domain.LearnedRule, bool) {
	row := r.db.QueryRow(`
		SELECT description, category, confidence, learned_at, usage_count
		FROM learned_rules WHERE description = ?
	`, description)

	rule, err := scanRule(row)
	if err != nil {
		if err != sql.ErrNoRows {
			r.log.Warn().Err(err).Msg("Learned rule lookup failed, treating as miss")
		}
		return nil, false
	}
	return rule, true
}

// GetAll returns every learned rule, for the similarity layer. Read errors
// degrade to an empty result.
func (r *LearnedRuleRepository) GetAll() []domain.LearnedRule {
	rows, err := r.db.Query(`
		SELECT description, category, confidence, learned_at, usage_count
		FROM learned_rules ORDER BY description
	`)
	if err != nil {
		r.log.Warn().Err(err).Msg("Learned rules query failed, returning empty result")
		return nil
	}
	defer rows.Close()

	var rules []domain.LearnedRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			r.log.Warn().Err(err).Msg("Skipping unreadable learned rule")
			continue
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		r.log.Warn().Err(err).Msg("Learned rules iteration failed")
	}
	return rules
}

// Count returns the number of learned rules.
func (r *LearnedRuleRepository) Count() int {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM learned_rules`).Scan(&n); err != nil {
		r.log.Warn().Err(err).Msg("Learned rule count failed")
		return 0
	}
	return n
}

// MergeNormalizedCollisions is the maintenance operation for rules whose
// descriptions collapse to the same normalized form. The survivor is the
// rule with the higher usage count; counts are summed and the loser is
// deleted. Returns the number of merges performed.
func (r *LearnedRuleRepository) MergeNormalizedCollisions() (int, error) {
	rules := r.GetAll()

	groups := make(map[string][]domain.LearnedRule)
	for _, rule := range rules {
		key := normalize.DedupDescription(rule.Description)
		groups[key] = append(groups[key], rule)
	}

	merged := 0
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		for key, group := range groups {
			if len(group) < 2 {
				continue
			}

			survivor := group[0]
			total := 0
			for _, rule := range group {
				total += rule.UsageCount
				if rule.UsageCount > survivor.UsageCount {
					survivor = rule
				}
			}

			for _, rule := range group {
				if rule.Description == survivor.Description {
					continue
				}
				if _, err := tx.Exec(`DELETE FROM learned_rules WHERE description = ?`, rule.Description); err != nil {
					return fmt.Errorf("failed to delete merged rule %q: %w", rule.Description, err)
				}
				merged++
			}

			if _, err := tx.Exec(
				`UPDATE learned_rules SET description = ?, usage_count = ? WHERE description = ?`,
				key, total, survivor.Description,
			); err != nil {
				return fmt.Errorf("failed to update surviving rule %q: %w", survivor.Description, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStore, err)
	}

	if merged > 0 {
		r.log.Info().Int("merged", merged).Msg("Merged learned rules with colliding normalized descriptions")
	}
	return merged, nil
}

// scanner abstracts sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(s scanner) (*domain.LearnedRule, error) {
	var (
		description, category string
		confidence            float64
		learnedAt             int64
		usageCount            int
	)
	if err := s.Scan(&description, &category, &confidence, &learnedAt, &usageCount); err != nil {
		return nil, err
	}
	return &domain.LearnedRule{
		Description: description,
		Category:    domain.ParseCategory(category),
		Confidence:  confidence,
		LearnedAt:   time.Unix(learnedAt, 0).UTC(),
		UsageCount:  usageCount,
	}, nil
}
