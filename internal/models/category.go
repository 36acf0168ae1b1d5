// ABOUTME: Category enum for the closed set of health record kinds.
// ABOUTME: Defines per-category labels and whether a category is keyed by day only.
package models

import "fmt"

// Category identifies the kind of a health record.
type Category string

const (
	CategoryLab        Category = "lab"
	CategoryVital      Category = "vital"
	CategoryWeight     Category = "weight"
	CategorySteps      Category = "steps"
	CategoryFood       Category = "food"
	CategoryActivity   Category = "activity"
	CategoryMedication Category = "medication"
	CategoryMood       Category = "mood"
	CategorySleep      Category = "sleep"
	CategoryWater      Category = "water"
)

// AllCategories lists every category in canonical order. Timeline buckets,
// exports and report tie-breaks follow this order.
var AllCategories = []Category{
	CategoryLab, CategoryVital, CategoryWeight, CategorySteps, CategoryFood,
	CategoryActivity, CategoryMedication, CategoryMood, CategorySleep, CategoryWater,
}

// CategoryLabels maps categories to their display names.
var CategoryLabels = map[Category]string{
	CategoryLab:        "Lab",
	CategoryVital:      "Vital",
	CategoryWeight:     "Weight",
	CategorySteps:      "Steps",
	CategoryFood:       "Food",
	CategoryActivity:   "Activity",
	CategoryMedication: "Medication",
	CategoryMood:       "Mood",
	CategorySleep:      "Sleep",
	CategoryWater:      "Water",
}

// IsValidCategory checks if a string names a known category.
func IsValidCategory(s string) bool {
	for _, c := range AllCategories {
		if string(c) == s {
			return true
		}
	}
	return false
}

// ParseCategory converts a string into a Category.
func ParseCategory(s string) (Category, error) {
	if !IsValidCategory(s) {
		return "", fmt.Errorf("unknown category: %s", s)
	}
	return Category(s), nil
}

// DateOnly reports whether records of this category carry a calendar day
// instead of a timestamp.
func (c Category) DateOnly() bool {
	switch c {
	case CategorySteps, CategorySleep, CategoryWater:
		return true
	default:
		return false
	}
}

// UniquePerDay reports whether the store keeps at most one record of this
// category per calendar day.
func (c Category) UniquePerDay() bool {
	return c == CategorySteps || c == CategorySleep
}

// Index returns the position of c in AllCategories, or -1.
func (c Category) Index() int {
	for i, cat := range AllCategories {
		if cat == c {
			return i
		}
	}
	return -1
}
