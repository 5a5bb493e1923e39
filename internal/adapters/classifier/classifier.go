package classifier

import (
	"regexp"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
)

// Rule tags a token with Category when Pattern matches the whole token text.
type Rule struct {
	Category domain.Category
	Pattern  *regexp.Regexp
}

func wholeToken(expr string) *regexp.Regexp {
	return regexp.MustCompile(`^(?:` + expr + `)$`)
}

// DefaultRules returns the rule table in evaluation order: email, phone, name.
func DefaultRules() []Rule {
	return []Rule{
		{Category: domain.CategoryEmail, Pattern: wholeToken(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)},
		{Category: domain.CategoryPhone, Pattern: wholeToken(`(\+?\d{1,3}[\s-]?)?\(?\d{3,5}\)?[\s.-]?\d{3,5}[\s.-]?\d{3,5}`)},
		// Tokens are single OCR words, so this only fires when the engine returns "First Last" as one token.
		{Category: domain.CategoryName, Pattern: wholeToken(`[A-Z][a-z]+ [A-Z][a-z]+`)},
	}
}

type Classifier struct {
	rules []Rule
}

// New builds a classifier over rules, or DefaultRules when none are given.
func New(rules ...Rule) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify walks tokens in order and emits one item per matching rule.
// A token matching several rules yields several items sharing its id.
func (c *Classifier) Classify(tokens []domain.Token) []domain.PiiItem {
	items := make([]domain.PiiItem, 0)
	for _, tok := range tokens {
		for _, r := range c.rules {
			if !r.Pattern.MatchString(tok.Text) {
				continue
			}
			items = append(items, domain.PiiItem{
				ID:   tok.ID,
				Type: r.Category,
				Text: tok.Text,
				BBox: tok.BBox,
			})
		}
	}
	return items
}

func (c *Classifier) Categories() []domain.Category {
	out := make([]domain.Category, 0, len(c.rules))
	seen := make(map[domain.Category]bool, len(c.rules))
	for _, r := range c.rules {
		if seen[r.Category] {
			continue
		}
		seen[r.Category] = true
		out = append(out, r.Category)
	}
	return out
}
