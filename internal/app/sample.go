package app

import (
	"time"

	"github.com/coupn-app/coupn/internal/model"
)

// DemoUser is the user the demo data belongs to.
const DemoUser = "demo"

// SamplePromotions returns the promotions shown in demo mode.
func SamplePromotions() []model.Promotion {
	return []model.Promotion{
		{
			Company:        "Best Buy",
			Category:       model.CategoryElectronic,
			Message:        "Get $50 off on purchases over $200",
			Code:           "SPRING50",
			ExpirationDate: model.NewDate(2025, time.March, 15),
			Barcode:        "4589721365",
			UserID:         DemoUser,
		},
		{
			Company:        "Whole Foods",
			Category:       model.CategoryGrocery,
			Message:        "20% off on all organic products",
			Code:           "ORGANIC20",
			ExpirationDate: model.NewDate(2025, time.February, 28),
			Barcode:        "7856439210",
			UserID:         DemoUser,
		},
	}
}
