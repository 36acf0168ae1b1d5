// ABOUTME: Snapshot is a read-only, per-category view of the record store.
// ABOUTME: Aggregations take one Snapshot per call and never mutate it.
package models

import (
	"github.com/google/uuid"
)

// Snapshot holds records grouped by category in store order, plus the
// definitions needed to render them.
type Snapshot struct {
	Labs              []*LabValue        `json:"lab_values" yaml:"lab_values"`
	Vitals            []*VitalValue      `json:"vitals" yaml:"vitals"`
	Weights           []*WeightEntry     `json:"weights" yaml:"weights"`
	Steps             []*Steps           `json:"steps" yaml:"steps"`
	Foods             []*FoodEntry       `json:"foods" yaml:"foods"`
	Activities        []*Activity        `json:"activities" yaml:"activities"`
	MedicationEntries []*MedicationEntry `json:"medication_entries" yaml:"medication_entries"`
	Moods             []*MoodEntry       `json:"moods" yaml:"moods"`
	Sleeps            []*SleepEntry      `json:"sleeps" yaml:"sleeps"`
	Water             []*WaterEntry      `json:"water" yaml:"water"`

	Medications []*Medication `json:"medications" yaml:"medications"`
	Markers     []*Marker     `json:"markers" yaml:"markers"`
}

// Add appends r to the slice for its category.
func (s *Snapshot) Add(r Record) {
	switch v := r.(type) {
	case *LabValue:
		s.Labs = append(s.Labs, v)
	case *VitalValue:
		s.Vitals = append(s.Vitals, v)
	case *WeightEntry:
		s.Weights = append(s.Weights, v)
	case *Steps:
		s.Steps = append(s.Steps, v)
	case *FoodEntry:
		s.Foods = append(s.Foods, v)
	case *Activity:
		s.Activities = append(s.Activities, v)
	case *MedicationEntry:
		s.MedicationEntries = append(s.MedicationEntries, v)
	case *MoodEntry:
		s.Moods = append(s.Moods, v)
	case *SleepEntry:
		s.Sleeps = append(s.Sleeps, v)
	case *WaterEntry:
		s.Water = append(s.Water, v)
	}
}

// Records returns the records of one category in store order.
func (s *Snapshot) Records(cat Category) []Record {
	switch cat {
	case CategoryLab:
		return toRecords(s.Labs)
	case CategoryVital:
		return toRecords(s.Vitals)
	case CategoryWeight:
		return toRecords(s.Weights)
	case CategorySteps:
		return toRecords(s.Steps)
	case CategoryFood:
		return toRecords(s.Foods)
	case CategoryActivity:
		return toRecords(s.Activities)
	case CategoryMedication:
		return toRecords(s.MedicationEntries)
	case CategoryMood:
		return toRecords(s.Moods)
	case CategorySleep:
		return toRecords(s.Sleeps)
	case CategoryWater:
		return toRecords(s.Water)
	default:
		return nil
	}
}

// All returns every record, category by category in AllCategories order.
func (s *Snapshot) All() []Record {
	var out []Record
	for _, cat := range AllCategories {
		out = append(out, s.Records(cat)...)
	}
	return out
}

// Len returns the number of records across all categories.
func (s *Snapshot) Len() int {
	return len(s.Labs) + len(s.Vitals) + len(s.Weights) + len(s.Steps) + len(s.Foods) +
		len(s.Activities) + len(s.MedicationEntries) + len(s.Moods) + len(s.Sleeps) + len(s.Water)
}

// Medication looks up a medication definition by ID.
func (s *Snapshot) Medication(id uuid.UUID) *Medication {
	for _, m := range s.Medications {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func toRecords[T Record](items []T) []Record {
	out := make([]Record, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
