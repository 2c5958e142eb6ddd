package search

import (
	"context"
	"testing"

	"github.com/coupn-app/coupn/internal/llm"
	"github.com/coupn-app/coupn/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeywordMatcher(t *testing.T) {
	promos := []model.Promotion{
		{Company: "Nike", Category: model.CategorySports, Message: "30% off running shoe collection"},
		{Company: "Sephora", Category: model.CategoryCosmetics, Message: "Free lipstick with $40 purchase"},
		{Company: "Whole Foods", Category: model.CategoryGrocery, Message: "20% off on all organic products"},
		{Company: "Best Buy", Category: model.CategoryElectronic, Message: "Get $50 off on purchases over $200"},
	}

	tests := []struct {
		name  string
		query string
		want  []int
	}{
		{"message term", "shoes", []int{0}},
		{"company", "sephora", []int{1}},
		{"category", "grocery", []int{2}},
		{"plural category", "groceries", []int{2}},
		{"union over terms", "lipstick and organic", []int{1, 2}},
		{"case insensitive", "BEST BUY", []int{3}},
		{"no match", "tires", []int{}},
		{"only stop words", "deals", []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := NewKeywordMatcher().Match(context.Background(), tt.query, promos)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Indices)
			assert.NotEmpty(t, result.Explanation)
		})
	}
}

func TestKeywordMatcherBlankQuery(t *testing.T) {
	_, err := NewKeywordMatcher().Match(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, llm.ErrEmptyQuery)
}

func TestKeywordMatcherDrivesController(t *testing.T) {
	c := NewController(NewKeywordMatcher(), nikeAndSephora(), nil)

	filter, err := c.Search(context.Background(), "running")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, filter.Positions())
}
