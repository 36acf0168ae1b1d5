// ABOUTME: Report grouper turning the full record set into date-grouped text lines.
// ABOUTME: Days run newest first; lines run by time of day with ties in category order.
package aggregate

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/harperreed/healthlog/internal/models"
)

// PlaceholderTime is the time shown for date-only records.
const PlaceholderTime = "00:00"

// ReportLine is one rendered record.
type ReportLine struct {
	Time     string          `json:"time"`
	Category models.Category `json:"category"`
	Text     string          `json:"text"`
}

// ReportDay holds the lines for one day.
type ReportDay struct {
	Date  models.Day   `json:"date"`
	Lines []ReportLine `json:"lines"`
}

// Report is the grouped document model. Substitutions counts characters
// the sanitizer had to replace.
type Report struct {
	Days          []ReportDay `json:"days"`
	Substitutions int         `json:"substitutions"`
}

// Lossy reports whether any text was altered by sanitization.
func (r Report) Lossy() bool {
	return r.Substitutions > 0
}

// LineCount returns the total number of lines across all days.
func (r Report) LineCount() int {
	n := 0
	for _, d := range r.Days {
		n += len(d.Lines)
	}
	return n
}

// GroupReport renders every record in snap into lines grouped by day.
func GroupReport(snap *models.Snapshot) Report {
	report := Report{Days: []ReportDay{}}
	if snap == nil {
		return report
	}

	index := make(map[models.Day]int)
	for _, cat := range models.AllCategories {
		for _, r := range snap.Records(cat) {
			text, n := Sanitize(FormatRecord(r, snap))
			report.Substitutions += n

			day := r.DayKey()
			i, ok := index[day]
			if !ok {
				i = len(report.Days)
				index[day] = i
				report.Days = append(report.Days, ReportDay{Date: day})
			}
			report.Days[i].Lines = append(report.Days[i].Lines, ReportLine{
				Time:     lineTime(r),
				Category: cat,
				Text:     text,
			})
		}
	}

	sort.Slice(report.Days, func(i, j int) bool {
		return report.Days[i].Date.After(report.Days[j].Date)
	})
	for _, d := range report.Days {
		lines := d.Lines
		sort.SliceStable(lines, func(i, j int) bool {
			return lines[i].Time < lines[j].Time
		})
	}
	return report
}

func lineTime(r models.Record) string {
	if r.Category().DateOnly() {
		return PlaceholderTime
	}
	return r.Timestamp().Format("15:04")
}

// FormatRecord renders a record as a single human-readable line. snap is
// used to resolve medication names and may be nil.
func FormatRecord(r models.Record, snap *models.Snapshot) string {
	switch v := r.(type) {
	case *models.LabValue:
		return fmt.Sprintf("Lab: %s=%s%s", v.Name, num(v.Value), v.Unit)
	case *models.VitalValue:
		return fmt.Sprintf("Vital: %s/%s Pulse: %s", optInt(v.Systolic), optInt(v.Diastolic), optInt(v.Pulse))
	case *models.WeightEntry:
		return formatWeight(v)
	case *models.Steps:
		return fmt.Sprintf("Steps: %d", v.Count)
	case *models.FoodEntry:
		return formatFood(v)
	case *models.Activity:
		return formatActivity(v)
	case *models.MedicationEntry:
		name, unit := "unknown medication", ""
		if snap != nil {
			if m := snap.Medication(v.MedicationID); m != nil {
				name, unit = m.Name, m.Unit
			}
		}
		return strings.TrimSpace(fmt.Sprintf("Medication: %s %s %s", name, v.Amount, unit))
	case *models.MoodEntry:
		return formatMood(v)
	case *models.SleepEntry:
		s := fmt.Sprintf("Sleep: %sh", num(v.DurationHours))
		if v.Quality != nil {
			s += fmt.Sprintf(" | Quality: %d/10", *v.Quality)
		}
		return s
	case *models.WaterEntry:
		return fmt.Sprintf("Water: %dml", v.AmountMl)
	default:
		return fmt.Sprintf("%s record", r.Category())
	}
}

type weightDetail struct {
	label  string
	value  *float64
	suffix string
}

func formatWeight(w *models.WeightEntry) string {
	parts := []string{fmt.Sprintf("Weight: %skg", num(w.Weight))}
	details := []weightDetail{
		{"Fat", w.FatPercentage, "%"},
		{"BMI", w.BMI, ""},
		{"Skeletal muscle", w.SkeletalMuscle, "%"},
		{"Muscle mass", w.MuscleMass, "kg"},
		{"Protein", w.Protein, "%"},
		{"BMR", w.BMR, "kcal"},
		{"Fat-free mass", w.FatFreeMass, "kg"},
		{"Subcutaneous fat", w.SubcutaneousFat, "%"},
		{"Visceral fat", w.VisceralFat, ""},
		{"Body water", w.BodyWater, "%"},
		{"Bone mass", w.BoneMass, "kg"},
	}
	for _, d := range details {
		if d.value != nil {
			parts = append(parts, fmt.Sprintf("%s: %s%s", d.label, num(*d.value), d.suffix))
		}
	}
	return strings.Join(parts, " | ")
}

func formatFood(f *models.FoodEntry) string {
	parts := []string{"Food: " + f.Description}
	if f.Calories != nil {
		parts = append(parts, fmt.Sprintf("%dkcal", *f.Calories))
	}
	var macros []string
	if f.Protein != nil {
		macros = append(macros, "P "+num(*f.Protein)+"g")
	}
	if f.Carbs != nil {
		macros = append(macros, "C "+num(*f.Carbs)+"g")
	}
	if f.Fat != nil {
		macros = append(macros, "F "+num(*f.Fat)+"g")
	}
	if len(macros) > 0 {
		parts = append(parts, strings.Join(macros, " "))
	}
	return strings.Join(parts, " | ")
}

func formatActivity(a *models.Activity) string {
	s := "Activity: " + a.Type
	if a.DurationMin != nil {
		s += fmt.Sprintf(" %dmin", *a.DurationMin)
	}
	if a.DistanceKm != nil {
		s += " " + num(*a.DistanceKm) + "km"
	}
	if a.Source == models.SourceImport {
		s += " (imported)"
	}
	return s
}

func formatMood(m *models.MoodEntry) string {
	var parts []string
	if m.Mood != nil {
		parts = append(parts, fmt.Sprintf("Mood: %d/10", *m.Mood))
	}
	if m.Energy != nil {
		parts = append(parts, fmt.Sprintf("Energy: %d/10", *m.Energy))
	}
	if m.Notes != nil && *m.Notes != "" {
		parts = append(parts, *m.Notes)
	}
	if len(parts) == 0 {
		return "Mood: -"
	}
	return strings.Join(parts, " | ")
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}
