package model

import "strings"

// Category is the closed set of promotion tags.
type Category string

// Promotion categories.
const (
	CategoryRetail     Category = "retail"
	CategoryElectronic Category = "electronic"
	CategoryGrocery    Category = "grocery"
	CategorySports     Category = "sports"
	CategoryHealth     Category = "health"
	CategoryCosmetics  Category = "cosmetics"
	CategoryMusic      Category = "music"
	CategoryBooks      Category = "books"
	CategoryMisc       Category = "misc"
	CategoryDining     Category = "dining"
	CategoryTravel     Category = "travel"
	CategoryClothing   Category = "clothing"
)

// Categories lists every valid category in display order.
var Categories = []Category{
	CategoryRetail,
	CategoryElectronic,
	CategoryGrocery,
	CategorySports,
	CategoryHealth,
	CategoryCosmetics,
	CategoryMusic,
	CategoryBooks,
	CategoryMisc,
	CategoryDining,
	CategoryTravel,
	CategoryClothing,
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory maps free text onto the closed category set.
// Anything unrecognized becomes CategoryMisc.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.Valid() {
		return c
	}
	return CategoryMisc
}
