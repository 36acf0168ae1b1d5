// ABOUTME: Daily rollup calculator producing per-day totals and pass-through lists.
// ABOUTME: Keeps absent (null) and zero distinct for steps, weight and sleep.
package aggregate

import (
	"fmt"
	"strings"

	"github.com/harperreed/healthlog/internal/models"
)

// WeightPick chooses one weight when a day has several weigh-ins.
type WeightPick string

const (
	// WeightPickFirst takes the first weigh-in in store order, which is
	// the earliest time of day.
	WeightPickFirst WeightPick = "first"
	// WeightPickLatest takes the weigh-in with the latest time of day.
	WeightPickLatest WeightPick = "latest"
	// WeightPickInserted takes the weigh-in that was logged first,
	// regardless of the time it was logged for.
	WeightPickInserted WeightPick = "inserted"
)

// ParseWeightPick parses a policy name. Empty means WeightPickFirst.
func ParseWeightPick(s string) (WeightPick, error) {
	switch WeightPick(strings.ToLower(strings.TrimSpace(s))) {
	case "", WeightPickFirst:
		return WeightPickFirst, nil
	case WeightPickLatest:
		return WeightPickLatest, nil
	case WeightPickInserted:
		return WeightPickInserted, nil
	default:
		return WeightPickFirst, fmt.Errorf("invalid weight pick %q (use first, latest or inserted)", s)
	}
}

// RollupOptions tunes how a day is summarized.
type RollupOptions struct {
	WeightPick WeightPick
}

// Nutrition is the sum of a day's food entries. Missing macros count as zero.
type Nutrition struct {
	Calories int     `json:"calories"`
	Protein  float64 `json:"protein"`
	Carbs    float64 `json:"carbs"`
	Fat      float64 `json:"fat"`
}

func (n *Nutrition) add(f *models.FoodEntry) {
	if f.Calories != nil {
		n.Calories += *f.Calories
	}
	if f.Protein != nil {
		n.Protein += *f.Protein
	}
	if f.Carbs != nil {
		n.Carbs += *f.Carbs
	}
	if f.Fat != nil {
		n.Fat += *f.Fat
	}
}

// SleepSummary is the day's sleep record.
type SleepSummary struct {
	DurationHours float64 `json:"duration"`
	Quality       *int    `json:"quality"`
}

// MedicationDose is a medication entry with its definition resolved.
type MedicationDose struct {
	*models.MedicationEntry
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// DayRollup summarizes one calendar day.
type DayRollup struct {
	Date      models.Day    `json:"date"`
	Nutrition Nutrition     `json:"nutrition_summary"`
	Steps     *int          `json:"steps"`
	Weight    *float64      `json:"weight"`
	Sleep     *SleepSummary `json:"sleep"`
	Water     int           `json:"water"`

	Weights    []*models.WeightEntry `json:"weights"`
	Vitals     []*models.VitalValue  `json:"vitals"`
	Activities []*models.Activity    `json:"activities"`
	Moods      []*models.MoodEntry   `json:"moods"`
	Meds       []MedicationDose      `json:"meds"`
	LabValues  []*models.LabValue    `json:"lab_values"`
	Foods      []*models.FoodEntry   `json:"foods"`
}

// RollupDay computes the summary for day from the records in snap.
func RollupDay(snap *models.Snapshot, day models.Day, opts RollupOptions) DayRollup {
	r := DayRollup{
		Date:       day,
		Weights:    []*models.WeightEntry{},
		Vitals:     []*models.VitalValue{},
		Activities: []*models.Activity{},
		Moods:      []*models.MoodEntry{},
		Meds:       []MedicationDose{},
		LabValues:  []*models.LabValue{},
		Foods:      []*models.FoodEntry{},
	}
	if snap == nil {
		return r
	}

	r.Weights = onDay(snap.Weights, day)
	r.Vitals = onDay(snap.Vitals, day)
	r.Activities = onDay(snap.Activities, day)
	r.Moods = onDay(snap.Moods, day)
	r.LabValues = onDay(snap.Labs, day)
	r.Foods = onDay(snap.Foods, day)

	for _, f := range r.Foods {
		r.Nutrition.add(f)
	}
	for _, w := range onDay(snap.Water, day) {
		r.Water += w.AmountMl
	}
	if steps := onDay(snap.Steps, day); len(steps) > 0 {
		count := steps[0].Count
		r.Steps = &count
	}
	if sleeps := onDay(snap.Sleeps, day); len(sleeps) > 0 {
		r.Sleep = &SleepSummary{DurationHours: sleeps[0].DurationHours, Quality: sleeps[0].Quality}
	}
	if w := pickWeight(r.Weights, opts.WeightPick); w != nil {
		weight := w.Weight
		r.Weight = &weight
	}

	for _, e := range onDay(snap.MedicationEntries, day) {
		dose := MedicationDose{MedicationEntry: e}
		if m := snap.Medication(e.MedicationID); m != nil {
			dose.Name = m.Name
			dose.Unit = m.Unit
		}
		r.Meds = append(r.Meds, dose)
	}

	return r
}

// pickWeight never averages and never fails: it returns nil only when the
// day has no weigh-ins.
func pickWeight(weights []*models.WeightEntry, policy WeightPick) *models.WeightEntry {
	if len(weights) == 0 {
		return nil
	}
	best := weights[0]
	switch policy {
	case WeightPickLatest:
		for _, w := range weights[1:] {
			if models.SortKey(w) >= models.SortKey(best) {
				best = w
			}
		}
	case WeightPickInserted:
		for _, w := range weights[1:] {
			if w.CreatedAt.Before(best.CreatedAt) {
				best = w
			}
		}
	}
	return best
}

// onDay returns the records of one category whose day key is day, in
// snapshot order.
func onDay[T models.Record](items []T, day models.Day) []T {
	out := make([]T, 0)
	for _, item := range items {
		if item.DayKey() == day {
			out = append(out, item)
		}
	}
	return out
}
