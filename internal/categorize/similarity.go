package categorize

import (
	"strings"

	"github.com/lutivix/financeiro/internal/domain"
)

// similarityThreshold is the minimum Jaccard overlap between word sets
// for a learned rule to apply to an unseen description.
const similarityThreshold = 0.5

// SimilarityClassifier matches unseen descriptions against the learned
// dictionary by word-set overlap. "UBER TRIP SAO PAULO" picks up the
// category learned for "UBER TRIP RIO" without an exact hit.
type SimilarityClassifier struct {
	rules ruleSource
}

func NewSimilarityClassifier(rules ruleSource) *SimilarityClassifier {
	return &SimilarityClassifier{rules: rules}
}

func (c *SimilarityClassifier) Name() string { return "similarity" }

func (c *SimilarityClassifier) Classify(description string) (domain.Category, bool) {
	words := tokenSet(description)
	if len(words) == 0 {
		return "", false
	}

	var best *domain.LearnedRule
	bestScore := 0.0
	for _, rule := range c.rules.GetAll() {
		score := jaccard(words, tokenSet(rule.Description))
		if score < similarityThreshold {
			continue
		}
		if best == nil || score > bestScore || (score == bestScore && betterRule(rule, *best)) {
			r := rule
			best = &r
			bestScore = score
		}
	}
	if best == nil {
		return "", false
	}
	_ = c.rules.IncrementUsage(best.Description)
	return best.Category, true
}

// betterRule breaks score ties: more used wins, then more recently learned.
func betterRule(a, b domain.LearnedRule) bool {
	if a.UsageCount != b.UsageCount {
		return a.UsageCount > b.UsageCount
	}
	return a.LearnedAt.After(b.LearnedAt)
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Fields(s) {
		set[w] = struct{}{}
	}
	return set
}

// jaccard is |A∩B| / |A∪B| over word sets.
func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}
