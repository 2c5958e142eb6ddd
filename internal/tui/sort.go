package tui

import (
	"slices"
	"strings"

	"github.com/coupn-app/coupn/internal/model"
)

// sortPromotions orders promotions in place. Equal promotions keep their
// search order.
func sortPromotions(promotions []model.Promotion, mode SortMode) {
	switch mode {
	case SortByCompany:
		slices.SortStableFunc(promotions, func(a, b model.Promotion) int {
			return strings.Compare(strings.ToLower(a.Company), strings.ToLower(b.Company))
		})
	case SortByNewest:
		slices.SortStableFunc(promotions, func(a, b model.Promotion) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		})
	default:
		// Soonest expiry first; promotions without a date go last.
		slices.SortStableFunc(promotions, func(a, b model.Promotion) int {
			switch {
			case a.ExpirationDate.IsZero() && b.ExpirationDate.IsZero():
				return 0
			case a.ExpirationDate.IsZero():
				return 1
			case b.ExpirationDate.IsZero():
				return -1
			case a.ExpirationDate.Before(b.ExpirationDate):
				return -1
			case b.ExpirationDate.Before(a.ExpirationDate):
				return 1
			default:
				return 0
			}
		})
	}
}
