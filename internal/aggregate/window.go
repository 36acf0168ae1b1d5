// ABOUTME: Recent-trend window builder for dashboard display.
// ABOUTME: Always yields exactly N days ending at the given today, newest first.
package aggregate

import (
	"github.com/harperreed/healthlog/internal/models"
)

// DefaultWindowDays is used when a window size of zero or less is requested.
const DefaultWindowDays = 3

// TrendDay is an abbreviated rollup for the recent window.
type TrendDay struct {
	Date       models.Day `json:"date"`
	Steps      *int       `json:"steps"`
	Weight     *float64   `json:"weight"`
	SleepHours *float64   `json:"sleep"`
	Nutrition  Nutrition  `json:"macros"`
}

// RecentWindow returns n entries for today, today-1, ... today-(n-1). Days
// without data carry absent fields and zero nutrition.
func RecentWindow(snap *models.Snapshot, today models.Day, n int, opts RollupOptions) []TrendDay {
	if n <= 0 {
		n = DefaultWindowDays
	}

	window := make([]TrendDay, n)
	for i := range window {
		day := today.AddDays(-i)
		r := RollupDay(snap, day, opts)
		td := TrendDay{
			Date:      day,
			Steps:     r.Steps,
			Weight:    r.Weight,
			Nutrition: r.Nutrition,
		}
		if r.Sleep != nil {
			hours := r.Sleep.DurationHours
			td.SleepHours = &hours
		}
		window[i] = td
	}
	return window
}

// WindowRange returns the inclusive day range covered by a window of n days.
func WindowRange(today models.Day, n int) (models.Day, models.Day) {
	if n <= 0 {
		n = DefaultWindowDays
	}
	return today.AddDays(-(n - 1)), today
}
