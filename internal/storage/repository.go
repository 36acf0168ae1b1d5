// ABOUTME: Repository interface for health record storage.
// ABOUTME: Defines record CRUD, definition CRUD, range queries and consistent snapshots.
package storage

import (
	"errors"
	"fmt"

	"github.com/harperreed/healthlog/internal/models"
)

var (
	// ErrNotFound is returned when no record matches an ID or prefix.
	ErrNotFound = errors.New("not found")
	// ErrAmbiguousID is returned when an ID prefix matches several records.
	ErrAmbiguousID = errors.New("ambiguous prefix: matches multiple records")
	// ErrUnknownMedication is returned when a medication entry references
	// a medication definition that does not exist.
	ErrUnknownMedication = errors.New("unknown medication")
	// ErrMedicationInUse is returned when deleting a definition that still
	// has logged entries.
	ErrMedicationInUse = errors.New("medication has logged entries")
	// ErrDuplicateName is returned when a definition name is already taken.
	ErrDuplicateName = errors.New("name already exists")
	// ErrDuplicateID is returned when creating a record whose ID is
	// already stored.
	ErrDuplicateID = errors.New("record id already exists")
	// ErrDayTaken is returned when an update would move a once-per-day
	// record onto a day that already has one.
	ErrDayTaken = errors.New("a record already exists for that day")
	// ErrReadOnly is returned by writes when another process holds the
	// store's lock.
	ErrReadOnly = errors.New("store is read-only: locked by another process")
)

// RecordFilter bounds record queries. The zero value selects everything.
// From and To are inclusive day bounds; From == To selects a single day.
type RecordFilter struct {
	From       *models.Day
	To         *models.Day
	Limit      int
	Descending bool
}

// OnDay returns a filter selecting exactly one day.
func OnDay(day models.Day) RecordFilter {
	return RecordFilter{From: &day, To: &day}
}

// Between returns a filter selecting the inclusive range [from, to].
func Between(from, to models.Day) RecordFilter {
	return RecordFilter{From: &from, To: &to}
}

// Match reports whether day falls inside the filter's bounds.
func (f RecordFilter) Match(day models.Day) bool {
	if f.From != nil && day.Before(*f.From) {
		return false
	}
	if f.To != nil && day.After(*f.To) {
		return false
	}
	return true
}

// ParseRange builds a filter from optional YYYY-MM-DD bounds. Empty strings
// leave that side open.
func ParseRange(from, to string) (RecordFilter, error) {
	var f RecordFilter
	if from != "" {
		d, err := models.ParseDay(from)
		if err != nil {
			return f, fmt.Errorf("from: %w", err)
		}
		f.From = &d
	}
	if to != "" {
		d, err := models.ParseDay(to)
		if err != nil {
			return f, fmt.Errorf("to: %w", err)
		}
		f.To = &d
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return f, fmt.Errorf("from %s is after to %s", f.From, f.To)
	}
	return f, nil
}

// Repository defines the storage interface for health data.
// List results are in store order: ascending wall-clock time, then creation
// order. Descending reverses that order.
type Repository interface {
	// Record operations
	CreateRecord(r models.Record) error
	UpdateRecord(r models.Record) error
	GetRecord(cat models.Category, idOrPrefix string) (models.Record, error)
	ListRecords(cat models.Category, filter RecordFilter) ([]models.Record, error)
	DeleteRecord(cat models.Category, idOrPrefix string) error
	DeleteRecordsOnDay(cat models.Category, day models.Day) (int, error)

	// Medication definitions
	CreateMedication(m *models.Medication) error
	GetMedication(idPrefixOrName string) (*models.Medication, error)
	ListMedications() ([]*models.Medication, error)
	DeleteMedication(idOrPrefix string) error

	// Lab marker definitions
	CreateMarker(m *models.Marker) error
	GetMarker(idPrefixOrName string) (*models.Marker, error)
	ListMarkers() ([]*models.Marker, error)
	DeleteMarker(idOrPrefix string) error

	// Profile; GetProfile returns ErrNotFound until one is saved
	GetProfile() (*models.Profile, error)
	SaveProfile(p *models.Profile) error

	// Snapshot reads every category and all definitions in one consistent
	// read, restricted to records matching filter (Limit is ignored).
	Snapshot(filter RecordFilter) (*models.Snapshot, error)

	// Export/Import
	GetAllData() (*ExportData, error)
	ImportData(data *ExportData) error

	// Lifecycle
	Close() error
}
