// Package promotions provides a fluent builder and fixtures for seeding
// promotions in tests.
//
// Example usage:
//
//	set := promotions.NewBuilder(t).
//		WithFixture(promotions.FixtureSearch).
//		WithOffer("Nike", "Extra 10% off running gear", model.CategorySports).
//		Build()
package promotions

import (
	"context"
	"fmt"
	"testing"

	"github.com/coupn-app/coupn/internal/model"
	"github.com/coupn-app/coupn/internal/service"
)

// Builder constructs test promotions.
type Builder interface {
	// WithPromotion adds a fully specified promotion.
	WithPromotion(p model.Promotion) Builder

	// WithOffer adds a promotion with only the identifying fields set.
	WithOffer(company, message string, category model.Category) Builder

	// WithFixture adds every promotion of a fixture.
	WithFixture(fixture Fixture) Builder

	// ExpiringOn sets the expiry of the most recently added promotion.
	ExpiringOn(date model.Date) Builder

	// Build returns the promotions in insertion order.
	Build() Set

	// Seed stores the promotions for userID and returns them.
	Seed(ctx context.Context, store service.PromotionStore, userID string) (Set, error)
}

// Set is an ordered collection of test promotions.
type Set []model.Promotion

// Find returns the first promotion from company, or nil.
func (s Set) Find(company string) *model.Promotion {
	for i := range s {
		if s[i].Company == company {
			return &s[i]
		}
	}
	return nil
}

// MustFind returns the first promotion from company or fails the test.
func (s Set) MustFind(t *testing.T, company string) model.Promotion {
	t.Helper()
	p := s.Find(company)
	if p == nil {
		t.Fatalf("promotion from %q not found in test data", company)
	}
	return *p
}

// Companies lists the company of every promotion in order.
func (s Set) Companies() []string {
	names := make([]string, len(s))
	for i, p := range s {
		names[i] = p.Company
	}
	return names
}

type promotionBuilder struct {
	t          *testing.T
	promotions Set
}

// NewBuilder creates a builder for the given test.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &promotionBuilder{t: t}
}

func (b *promotionBuilder) WithPromotion(p model.Promotion) Builder {
	b.promotions = append(b.promotions, p)
	return b
}

func (b *promotionBuilder) WithOffer(company, message string, category model.Category) Builder {
	return b.WithPromotion(model.Promotion{
		Company:  company,
		Message:  message,
		Category: category,
	})
}

func (b *promotionBuilder) WithFixture(fixture Fixture) Builder {
	b.promotions = append(b.promotions, fixture.Promotions()...)
	return b
}

func (b *promotionBuilder) ExpiringOn(date model.Date) Builder {
	b.t.Helper()
	if len(b.promotions) == 0 {
		b.t.Fatalf("ExpiringOn called before any promotion was added")
	}
	b.promotions[len(b.promotions)-1].ExpirationDate = date
	return b
}

func (b *promotionBuilder) Build() Set {
	out := make(Set, len(b.promotions))
	copy(out, b.promotions)
	return out
}

func (b *promotionBuilder) Seed(ctx context.Context, store service.PromotionStore, userID string) (Set, error) {
	set := b.Build()
	if len(set) == 0 {
		return set, nil
	}
	if err := store.UpsertPromotions(ctx, userID, set); err != nil {
		return nil, fmt.Errorf("failed to seed promotions: %w", err)
	}
	for i := range set {
		set[i].UserID = userID
	}
	return set, nil
}
