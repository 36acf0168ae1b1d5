// ABOUTME: Record interface and shared record metadata for all health categories.
// ABOUTME: Records are either timestamped (Timed) or keyed by calendar day (Dated).
package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Record is implemented by every health record type in this package.
// The set is closed: only types declared here satisfy it.
type Record interface {
	Meta() *Base
	Category() Category
	// Timestamp is the moment the record refers to. Dated records return
	// midnight UTC of their day.
	Timestamp() time.Time
	// DayKey is the calendar day the record belongs to.
	DayKey() Day
	isRecord()
}

// Base holds identity fields shared by all records.
type Base struct {
	ID        uuid.UUID `json:"id" yaml:"id"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// NewBase returns a Base with a fresh UUID and the current time.
func NewBase() Base {
	return Base{ID: uuid.New(), CreatedAt: time.Now()}
}

// Meta returns the record's identity fields.
func (b *Base) Meta() *Base { return b }

func (b *Base) isRecord() {}

// Timed is embedded by records that carry a full timestamp.
type Timed struct {
	RecordedAt time.Time `json:"recorded_at" yaml:"recorded_at"`
}

// Timestamp returns RecordedAt.
func (t *Timed) Timestamp() time.Time { return t.RecordedAt }

// DayKey returns the calendar day of RecordedAt.
func (t *Timed) DayKey() Day { return DayOf(t.RecordedAt) }

// Dated is embedded by records keyed by calendar day only.
type Dated struct {
	Date Day `json:"date" yaml:"date"`
}

// Timestamp returns midnight of Date.
func (d *Dated) Timestamp() time.Time { return d.Date.Time() }

// DayKey returns Date unchanged.
func (d *Dated) DayKey() Day { return d.Date }

// NewRecord returns an empty record of the given category.
func NewRecord(cat Category) (Record, error) {
	switch cat {
	case CategoryLab:
		return &LabValue{}, nil
	case CategoryVital:
		return &VitalValue{}, nil
	case CategoryWeight:
		return &WeightEntry{}, nil
	case CategorySteps:
		return &Steps{}, nil
	case CategoryFood:
		return &FoodEntry{}, nil
	case CategoryActivity:
		return &Activity{}, nil
	case CategoryMedication:
		return &MedicationEntry{}, nil
	case CategoryMood:
		return &MoodEntry{}, nil
	case CategorySleep:
		return &SleepEntry{}, nil
	case CategoryWater:
		return &WaterEntry{}, nil
	default:
		return nil, fmt.Errorf("unknown category: %s", cat)
	}
}

// DecodeRecord unmarshals JSON data into a record of the given category.
func DecodeRecord(cat Category, data []byte) (Record, error) {
	r, err := NewRecord(cat)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, fmt.Errorf("decode %s record: %w", cat, err)
	}
	return r, nil
}

// DecodeNewRecord decodes a record submitted for creation. Any id or
// created_at in data is dropped; the store assigns both.
func DecodeNewRecord(cat Category, data []byte) (Record, error) {
	r, err := DecodeRecord(cat, data)
	if err != nil {
		return nil, err
	}
	*r.Meta() = Base{}
	return r, nil
}

// SortKey is the timezone-naive ordering key of a record: its wall-clock
// time in its own location, fixed width so it sorts lexicographically.
func SortKey(r Record) string {
	return r.Timestamp().Format("2006-01-02 15:04:05.000000000")
}

// SortRecords orders records the way the stores return them: by wall-clock
// time, then creation time, then ID.
func SortRecords(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ki, kj := SortKey(records[i]), SortKey(records[j])
		if ki != kj {
			return ki < kj
		}
		ci, cj := records[i].Meta().CreatedAt, records[j].Meta().CreatedAt
		if !ci.Equal(cj) {
			return ci.Before(cj)
		}
		return records[i].Meta().ID.String() < records[j].Meta().ID.String()
	})
}

type stamper interface {
	stamp(now time.Time)
}

func (t *Timed) stamp(now time.Time) {
	if t.RecordedAt.IsZero() {
		t.RecordedAt = now
	}
}

func (d *Dated) stamp(now time.Time) {
	if d.Date.IsZero() {
		d.Date = DayOf(now)
	}
}

// FillTime sets a missing RecordedAt to now, or a missing Date to now's day.
func FillTime(r Record, now time.Time) {
	if s, ok := r.(stamper); ok {
		s.stamp(now)
	}
}
