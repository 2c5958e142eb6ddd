package promotions

import (
	"time"

	"github.com/coupn-app/coupn/internal/app"
	"github.com/coupn-app/coupn/internal/model"
)

// Fixture is a predefined promotion set.
type Fixture interface {
	Name() string
	Promotions() []model.Promotion
}

type fixture struct {
	build func() []model.Promotion
	name  string
}

func (f *fixture) Name() string                  { return f.name }
func (f *fixture) Promotions() []model.Promotion { return f.build() }

// Predefined fixtures.
var (
	// FixtureDemo is the demo-mode data set.
	FixtureDemo Fixture = &fixture{
		name:  "Demo",
		build: app.SamplePromotions,
	}

	// FixtureSearch spans enough categories and companies to exercise
	// relevance matching.
	FixtureSearch Fixture = &fixture{
		name: "Search",
		build: func() []model.Promotion {
			return []model.Promotion{
				{Company: "Nike", Category: model.CategorySports, Message: "30% off running shoes", Code: "RUN30", ExpirationDate: model.NewDate(2025, time.June, 30)},
				{Company: "Sephora", Category: model.CategoryCosmetics, Message: "Free lipstick with any $25 purchase"},
				{Company: "Domino's", Category: model.CategoryDining, Message: "Buy one pizza get one free", Code: "BOGO", ExpirationDate: model.NewDate(2025, time.May, 1)},
				{Company: "Delta", Category: model.CategoryTravel, Message: "Save $100 on flights to Europe"},
				{Company: "Barnes & Noble", Category: model.CategoryBooks, Message: "20% off hardcover books"},
				{Company: "Old Navy", Category: model.CategoryClothing, Message: "Jeans for $15 this weekend", ExpirationDate: model.NewDate(2025, time.April, 13)},
			}
		},
	}
)
