// Package categorize assigns exactly one category to each transaction using
// an ordered chain of classifiers: deterministic rules first, then the
// learned dictionary, then similarity matching. The first layer to answer
// wins; new layers are additive.
package categorize

import (
	"github.com/rs/zerolog"

	"github.com/lutivix/financeiro/internal/domain"
	"github.com/lutivix/financeiro/internal/normalize"
	"github.com/lutivix/financeiro/internal/store"
)

// Classifier is one layer of the chain. Classify receives the dedup-form
// description (uppercase, suffix-stripped, whitespace-collapsed) and reports
// whether it has an answer.
type Classifier interface {
	Name() string
	Classify(description string) (domain.Category, bool)
}

// Categorizer runs the classifier chain and writes learnings back.
type Categorizer struct {
	chain           []Classifier
	rules           *store.LearnedRuleRepository
	defaultCategory domain.Category
	log             zerolog.Logger
}

// New builds the standard three-layer categorizer.
func New(rules *store.LearnedRuleRepository, defaultCategory domain.Category, log zerolog.Logger) *Categorizer {
	if defaultCategory == "" {
		defaultCategory = domain.CategoryUndefined
	}
	return &Categorizer{
		chain: []Classifier{
			NewRuleClassifier(),
			NewLearnedClassifier(rules),
			NewSimilarityClassifier(rules),
		},
		rules:           rules,
		defaultCategory: defaultCategory,
		log:             log.With().Str("component", "categorizer").Logger(),
	}
}

// Categorize assigns a category to every transaction in place and returns
// the number of transactions that got a category other than the default.
// Only an answer from a classifier counts as an edit; falling through to
// the default assigns the category without stamping the edit time.
func (c *Categorizer) Categorize(txs []*domain.Transaction) int {
	categorized := 0
	for _, tx := range txs {
		cat, matched := c.categorizeOne(tx)
		if matched {
			tx.SetCategory(cat)
		} else {
			tx.Category = cat
		}
		if cat != domain.CategoryUndefined {
			categorized++
		}
	}
	return categorized
}

func (c *Categorizer) categorizeOne(tx *domain.Transaction) (domain.Category, bool) {
	key := normalize.DedupDescription(tx.Description)
	if key == "" {
		return domain.CategoryUndefined, false
	}
	for _, layer := range c.chain {
		if cat, ok := layer.Classify(key); ok {
			c.log.Debug().Str("layer", layer.Name()).Str("description", key).Str("category", string(cat)).Msg("Classified")
			return cat, true
		}
	}
	return c.defaultCategory, false
}

// Learn scans stored transactions and writes/updates learned rules for
// every one whose category is defined. Returns the number of new rules.
func (c *Categorizer) Learn(txs []*domain.Transaction) (int, error) {
	created := 0
	for _, tx := range txs {
		if tx.Category == domain.CategoryUndefined {
			continue
		}
		key := normalize.DedupDescription(tx.Description)
		if key == "" {
			continue
		}
		isNew, err := c.rules.Upsert(key, tx.Category)
		if err != nil {
			return created, err
		}
		if isNew {
			created++
		}
	}
	return created, nil
}
