// ABOUTME: Chart series builder projecting one category into plottable points.
// ABOUTME: One point per record, ascending by day, no gap filling or aggregation.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/harperreed/healthlog/internal/models"
)

// Point is one plotted record. Values line up with Series.Fields; a nil
// value means the record left that field empty.
type Point struct {
	Date   string     `json:"date"`
	Values []*float64 `json:"values"`
}

// Series is the chart projection of one category.
type Series struct {
	Category models.Category `json:"category"`
	Fields   []string        `json:"fields"`
	Points   []Point         `json:"points"`
}

// DefaultCharts are the series shown on the dashboard.
var DefaultCharts = []models.Category{models.CategoryWeight, models.CategorySteps, models.CategoryVital}

const vitalDateLayout = "2006-01-02 15:04"

// SeriesFields returns the field names plotted for cat, or nil if cat has no
// chart projection.
func SeriesFields(cat models.Category) []string {
	switch cat {
	case models.CategoryWeight:
		return []string{"weight"}
	case models.CategorySteps:
		return []string{"count"}
	case models.CategoryVital:
		return []string{"sys", "dia", "pulse"}
	case models.CategorySleep:
		return []string{"duration", "quality"}
	case models.CategoryWater:
		return []string{"amount_ml"}
	case models.CategoryMood:
		return []string{"mood", "energy"}
	case models.CategoryActivity:
		return []string{"duration", "distance"}
	case models.CategoryFood:
		return []string{"calories", "protein", "carbs", "fat"}
	case models.CategoryLab:
		return []string{"value"}
	default:
		return nil
	}
}

// BuildSeries projects every record of cat in snap. Same-day records keep
// their snapshot order.
func BuildSeries(snap *models.Snapshot, cat models.Category) (Series, error) {
	fields := SeriesFields(cat)
	if fields == nil {
		return Series{}, fmt.Errorf("%w: %s", ErrNoSeries, cat)
	}
	var records []models.Record
	if snap != nil {
		records = snap.Records(cat)
	}
	return project(cat, fields, records), nil
}

// LabSeries projects the lab values whose name matches name, ignoring case.
func LabSeries(snap *models.Snapshot, name string) Series {
	var records []models.Record
	if snap != nil {
		for _, l := range snap.Labs {
			if strings.EqualFold(l.Name, name) {
				records = append(records, l)
			}
		}
	}
	return project(models.CategoryLab, SeriesFields(models.CategoryLab), records)
}

// BuildCharts builds the series for each category in cats, skipping those
// without a projection.
func BuildCharts(snap *models.Snapshot, cats []models.Category) map[models.Category]Series {
	out := make(map[models.Category]Series, len(cats))
	for _, cat := range cats {
		if s, err := BuildSeries(snap, cat); err == nil {
			out[cat] = s
		}
	}
	return out
}

func project(cat models.Category, fields []string, records []models.Record) Series {
	sorted := make([]models.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DayKey().Before(sorted[j].DayKey())
	})

	points := make([]Point, 0, len(sorted))
	for _, r := range sorted {
		points = append(points, Point{Date: pointDate(r), Values: pointValues(r)})
	}
	return Series{Category: cat, Fields: fields, Points: points}
}

func pointDate(r models.Record) string {
	if r.Category() == models.CategoryVital {
		return r.Timestamp().Format(vitalDateLayout)
	}
	return r.DayKey().String()
}

func pointValues(r models.Record) []*float64 {
	switch v := r.(type) {
	case *models.WeightEntry:
		return []*float64{val(v.Weight)}
	case *models.Steps:
		return []*float64{val(float64(v.Count))}
	case *models.VitalValue:
		return []*float64{intVal(v.Systolic), intVal(v.Diastolic), intVal(v.Pulse)}
	case *models.SleepEntry:
		return []*float64{val(v.DurationHours), intVal(v.Quality)}
	case *models.WaterEntry:
		return []*float64{val(float64(v.AmountMl))}
	case *models.MoodEntry:
		return []*float64{intVal(v.Mood), intVal(v.Energy)}
	case *models.Activity:
		return []*float64{intVal(v.DurationMin), v.DistanceKm}
	case *models.FoodEntry:
		return []*float64{intVal(v.Calories), v.Protein, v.Carbs, v.Fat}
	case *models.LabValue:
		return []*float64{val(v.Value)}
	default:
		return nil
	}
}

func val(v float64) *float64 { return &v }

func intVal(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
