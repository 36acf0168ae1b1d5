// ABOUTME: Data migration between health storage backends.
// ABOUTME: Copies definitions and every record category from source to destination.

package storage

import (
	"errors"
	"fmt"

	"github.com/harperreed/healthlog/internal/models"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Profile     bool
	Medications int
	Markers     int
	Records     map[models.Category]int
}

// Total returns the number of records migrated across all categories.
func (s *MigrateSummary) Total() int {
	n := 0
	for _, c := range s.Records {
		n += c
	}
	return n
}

// MigrateData copies all data from src to dst storage.
// Definitions are copied first so medication entries resolve in the
// destination. The destination should be empty before calling this function.
func MigrateData(src, dst Repository) (*MigrateSummary, error) {
	summary := &MigrateSummary{Records: make(map[models.Category]int)}

	profile, err := src.GetProfile()
	switch {
	case err == nil:
		if err := dst.SaveProfile(profile); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
		summary.Profile = true
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("read source profile: %w", err)
	}

	meds, err := src.ListMedications()
	if err != nil {
		return nil, fmt.Errorf("list source medications: %w", err)
	}
	for _, m := range meds {
		if err := dst.CreateMedication(m); err != nil {
			return nil, fmt.Errorf("create medication %s: %w", m.ID, err)
		}
		summary.Medications++
	}

	markers, err := src.ListMarkers()
	if err != nil {
		return nil, fmt.Errorf("list source markers: %w", err)
	}
	for _, m := range markers {
		if err := dst.CreateMarker(m); err != nil {
			return nil, fmt.Errorf("create marker %s: %w", m.ID, err)
		}
		summary.Markers++
	}

	for _, cat := range models.AllCategories {
		records, err := src.ListRecords(cat, RecordFilter{})
		if err != nil {
			return nil, fmt.Errorf("list source %s: %w", cat, err)
		}
		for _, r := range records {
			if err := dst.CreateRecord(r); err != nil {
				return nil, fmt.Errorf("create %s %s: %w", cat, r.Meta().ID, err)
			}
			summary.Records[cat]++
		}
	}

	return summary, nil
}
