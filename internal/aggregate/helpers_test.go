// ABOUTME: Shared fixtures for aggregation tests.
// ABOUTME: Builds snapshots directly without a record store.
package aggregate

import (
	"time"

	"github.com/harperreed/healthlog/internal/models"
)

func ts(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) models.Day {
	d, err := models.ParseDay(s)
	if err != nil {
		panic(err)
	}
	return d
}

func intp(v int) *int           { return &v }
func floatp(v float64) *float64 { return &v }
func strp(v string) *string     { return &v }

func weight(at string, kg float64) *models.WeightEntry {
	w := models.NewWeightEntry(kg)
	w.RecordedAt = ts(at)
	return w
}

func food(at, desc string, cal *int, protein, carbs, fat *float64) *models.FoodEntry {
	f := models.NewFoodEntry(desc)
	f.RecordedAt = ts(at)
	f.Calories = cal
	f.Protein = protein
	f.Carbs = carbs
	f.Fat = fat
	return f
}

func vital(at string, sys, dia, pulse int) *models.VitalValue {
	v := models.NewVitalValue(intp(sys), intp(dia), intp(pulse))
	v.RecordedAt = ts(at)
	return v
}

func mood(at string, score int) *models.MoodEntry {
	m := models.NewMoodEntry(intp(score), nil)
	m.RecordedAt = ts(at)
	return m
}

func snapshotOf(records ...models.Record) *models.Snapshot {
	sorted := append([]models.Record(nil), records...)
	models.SortRecords(sorted)
	snap := &models.Snapshot{}
	for _, r := range sorted {
		snap.Add(r)
	}
	return snap
}
