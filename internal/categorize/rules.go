package categorize

import (
	"strings"

	"github.com/lutivix/financeiro/internal/domain"
)

// hardRule is a fixed substring match checked against the normalized
// description. Matches here always win over learned data.
type hardRule struct {
	substring string
	category  domain.Category
}

// Order matters only for determinism; the substrings do not overlap today.
var hardRules = []hardRule{
	{"SISPAG PIX", domain.CategorySalary},
	{"PAGTO REMUNERACAO", domain.CategorySalary},
	{"PAGTO SALARIO", domain.CategorySalary},
	{"REND PAGO APLIC", domain.CategoryInvestments},
}

// RuleClassifier matches fixed bank phrases for income transactions.
type RuleClassifier struct{}

func NewRuleClassifier() *RuleClassifier { return &RuleClassifier{} }

func (c *RuleClassifier) Name() string { return "rules" }

func (c *RuleClassifier) Classify(description string) (domain.Category, bool) {
	for _, r := range hardRules {
		if strings.Contains(description, r.substring) {
			return r.category, true
		}
	}
	return "", false
}

// LearnedClassifier answers from the persisted rule dictionary by exact
// key. A hit bumps the rule's usage counter.
type LearnedClassifier struct {
	rules ruleSource
}

// ruleSource is the slice of the store the classifiers need.
type ruleSource interface {
	Get(description string) (*domain.LearnedRule, bool)
	GetAll() []domain.LearnedRule
	IncrementUsage(description string) error
}

func NewLearnedClassifier(rules ruleSource) *LearnedClassifier {
	return &LearnedClassifier{rules: rules}
}

func (c *LearnedClassifier) Name() string { return "learned" }

func (c *LearnedClassifier) Classify(description string) (domain.Category, bool) {
	rule, ok := c.rules.Get(description)
	if !ok {
		return "", false
	}
	// Usage tracking is best effort, a failed bump never blocks the answer.
	_ = c.rules.IncrementUsage(rule.Description)
	return rule.Category, true
}
