package search

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
)

var stopWords = map[string]bool{
	"and": true, "or": true, "the": true, "for": true, "a": true, "an": true,
	"of": true, "on": true, "any": true, "deals": true, "deal": true,
	"promotions": true, "promotion": true, "coupons": true, "coupon": true,
}

// KeywordMatcher matches promotions locally by term, company and category.
// A promotion matches when any query term appears in it.
type KeywordMatcher struct{}

// NewKeywordMatcher returns a keyword matcher.
func NewKeywordMatcher() KeywordMatcher {
	return KeywordMatcher{}
}

// Match implements Matcher.
func (KeywordMatcher) Match(_ context.Context, query string, promotions []model.Promotion) (model.RelevanceResult, error) {
	if strings.TrimSpace(query) == "" {
		return model.RelevanceResult{}, llm.ErrEmptyQuery
	}

	terms := queryTerms(query)
	result := model.RelevanceResult{Indices: []int{}}

	for i, p := range promotions {
		haystack := strings.ToLower(p.Company + " " + p.Message + " " + string(p.Category))
		for _, term := range terms {
			if matchesTerm(haystack, term) {
				result.Indices = append(result.Indices, i)
				break
			}
		}
	}

	result.Explanation = fmt.Sprintf("Matched %d of %d promotions on %s.",
		len(result.Indices), len(promotions), strings.Join(terms, ", "))
	return result, nil
}

func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '%' && r != '$'
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if stopWords[f] {
			continue
		}
		terms = append(terms, f)
	}
	if len(terms) == 0 {
		// Only stop words; match on them rather than on nothing.
		terms = fields
	}
	return terms
}

func matchesTerm(haystack, term string) bool {
	if strings.Contains(haystack, term) {
		return true
	}
	// Singular form, so "shoes" finds "shoe" and "groceries" finds "grocery".
	if strings.HasSuffix(term, "ies") && len(term) > 4 {
		return strings.Contains(haystack, strings.TrimSuffix(term, "ies")+"y")
	}
	if strings.HasSuffix(term, "s") && len(term) > 3 {
		return strings.Contains(haystack, strings.TrimSuffix(term, "s"))
	}
	return false
}
