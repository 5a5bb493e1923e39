package classifier

import (
	"regexp"
	"testing"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tok(id int, text string) domain.Token {
	return domain.Token{ID: id, Text: text, BBox: domain.BBox{Left: id * 10, Top: 5, Width: 8, Height: 12}}
}

func TestDefaultRulesMatchWholeToken(t *testing.T) {
	tests := []struct {
		text string
		want []domain.Category
	}{
		{text: "john@x.co", want: []domain.Category{domain.CategoryEmail}},
		{text: "first.last+tag@mail.example.org", want: []domain.Category{domain.CategoryEmail}},
		{text: "555-123-4567", want: []domain.Category{domain.CategoryPhone}},
		{text: "+1 555 123 4567", want: []domain.Category{domain.CategoryPhone}},
		{text: "(555)123-4567", want: []domain.Category{domain.CategoryPhone}},
		{text: "John Smith", want: []domain.Category{domain.CategoryName}},
		{text: "John", want: nil},
		{text: "Smith,", want: nil},
		{text: "john@x.co,", want: nil},
		{text: "mail: john@x.co", want: nil},
		{text: "12", want: nil},
		{text: "hello", want: nil},
	}

	c := New()
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			items := c.Classify([]domain.Token{tok(0, tt.text)})
			var got []domain.Category
			for _, it := range items {
				got = append(got, it.Type)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClassifyCarriesTokenFields(t *testing.T) {
	tokens := []domain.Token{tok(0, "Contact"), tok(1, "john@x.co")}

	items := New().Classify(tokens)

	require.Len(t, items, 1)
	assert.Equal(t, domain.PiiItem{
		ID:   1,
		Type: domain.CategoryEmail,
		Text: "john@x.co",
		BBox: tokens[1].BBox,
	}, items[0])
}

func TestClassifyNoMatchReturnsEmptySlice(t *testing.T) {
	items := New().Classify([]domain.Token{tok(0, "nothing"), tok(1, "here")})

	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestClassifyTokenMajorThenRuleOrder(t *testing.T) {
	c := New(
		Rule{Category: domain.CategoryPhone, Pattern: regexp.MustCompile(`^\d+$`)},
		Rule{Category: domain.CategoryName, Pattern: regexp.MustCompile(`^\d{3}$`)},
	)

	items := c.Classify([]domain.Token{tok(0, "123"), tok(1, "45"), tok(2, "678")})

	require.Len(t, items, 5)
	want := []struct {
		id  int
		cat domain.Category
	}{
		{0, domain.CategoryPhone},
		{0, domain.CategoryName},
		{1, domain.CategoryPhone},
		{2, domain.CategoryPhone},
		{2, domain.CategoryName},
	}
	for i, w := range want {
		assert.Equal(t, w.id, items[i].ID, "item %d", i)
		assert.Equal(t, w.cat, items[i].Type, "item %d", i)
	}
}

func TestPerWordTokensMissNames(t *testing.T) {
	words := []string{"John", "Smith,", "john@x.co,", "555-123-4567"}
	tokens := make([]domain.Token, len(words))
	for i, w := range words {
		tokens[i] = tok(i, w)
	}
	// trailing punctuation comes from the engine; the email token here is clean
	tokens[2].Text = "john@x.co"

	items := New().Classify(tokens)

	require.Len(t, items, 2)
	assert.Equal(t, domain.CategoryEmail, items[0].Type)
	assert.Equal(t, 2, items[0].ID)
	assert.Equal(t, domain.CategoryPhone, items[1].Type)
	assert.Equal(t, 3, items[1].ID)
}

func TestCategories(t *testing.T) {
	assert.Equal(t,
		[]domain.Category{domain.CategoryEmail, domain.CategoryPhone, domain.CategoryName},
		New().Categories())

	dup := New(
		Rule{Category: domain.CategoryPhone, Pattern: regexp.MustCompile(`^1$`)},
		Rule{Category: domain.CategoryPhone, Pattern: regexp.MustCompile(`^2$`)},
	)
	assert.Equal(t, []domain.Category{domain.CategoryPhone}, dup.Categories())
}
