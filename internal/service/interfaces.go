// Package service defines the interfaces shared between application layers.
package service

import (
	"context"
	"time"

	"github.com/coupn-app/coupn/internal/model"
)

// PromotionStore is the persistence contract for per-user promotions.
type PromotionStore interface {
	// UpsertPromotions inserts promotions for a user, overwriting any existing
	// record with the same (company, message) pair.
	UpsertPromotions(ctx context.Context, userID string, promotions []model.Promotion) error
	// ListPromotions returns a user's promotions in a stable order.
	ListPromotions(ctx context.Context, userID string) ([]model.Promotion, error)
	// DeletePromotion removes the promotion identified by key.
	DeletePromotion(ctx context.Context, userID string, key model.PromotionKey) error
	// CountPromotions returns how many promotions a user has.
	CountPromotions(ctx context.Context, userID string) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
