// Package model holds the core data types shared across Coupn.
package model

import (
	"strings"
	"time"
)

// Promotion is one merchant offer belonging to a user.
type Promotion struct {
	CreatedAt      time.Time `json:"createdAt,omitempty"`
	ExpirationDate Date      `json:"expirationDate"`
	Company        string    `json:"company"`
	Category       Category  `json:"category"`
	Message        string    `json:"message"`
	Code           string    `json:"code,omitempty"`
	Link           string    `json:"link,omitempty"`
	Barcode        string    `json:"barcode,omitempty"`
	UserID         string    `json:"userId,omitempty"`
}

// PromotionKey identifies a promotion within one user's collection.
// Two offers from the same company with different messages are distinct.
type PromotionKey struct {
	Company string
	Message string
}

// Key returns the identity used for upsert and deletion.
func (p Promotion) Key() PromotionKey {
	return PromotionKey{Company: p.Company, Message: p.Message}
}

// IsExpired reports whether the promotion expired before the given day.
// Promotions without an expiry never expire.
func (p Promotion) IsExpired(today Date) bool {
	if p.ExpirationDate.IsZero() {
		return false
	}
	return p.ExpirationDate.Before(today)
}

// NormalizePromotion cleans a promotion at an ingestion boundary:
// whitespace is trimmed and unknown categories become misc.
func NormalizePromotion(p Promotion) Promotion {
	p.Company = strings.TrimSpace(p.Company)
	p.Message = strings.TrimSpace(p.Message)
	p.Code = strings.TrimSpace(p.Code)
	p.Link = strings.TrimSpace(p.Link)
	p.Barcode = strings.TrimSpace(p.Barcode)
	p.Category = ParseCategory(string(p.Category))
	return p
}
