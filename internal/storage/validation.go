// Package storage provides the data persistence layer for Coupn.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coupn-app/coupn/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidPromotion = errors.New("invalid promotion")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validatePromotions validates a slice of promotions.
func validatePromotions(promotions []model.Promotion) error {
	if promotions == nil {
		return fmt.Errorf("%w: promotions", ErrNilParameter)
	}

	for i := range promotions {
		if err := validatePromotion(&promotions[i]); err != nil {
			return fmt.Errorf("promotion at index %d: %w", i, err)
		}
	}
	return nil
}

// validatePromotion validates a single promotion.
func validatePromotion(p *model.Promotion) error {
	if p == nil {
		return fmt.Errorf("%w: promotion", ErrNilParameter)
	}
	if strings.TrimSpace(p.Company) == "" {
		return fmt.Errorf("%w: missing company", ErrInvalidPromotion)
	}
	if strings.TrimSpace(p.Message) == "" {
		return fmt.Errorf("%w: missing message", ErrInvalidPromotion)
	}
	return nil
}

// validateKey validates a promotion identity.
func validateKey(key model.PromotionKey) error {
	if strings.TrimSpace(key.Company) == "" {
		return fmt.Errorf("%w: missing company", ErrInvalidPromotion)
	}
	if strings.TrimSpace(key.Message) == "" {
		return fmt.Errorf("%w: missing message", ErrInvalidPromotion)
	}
	return nil
}
