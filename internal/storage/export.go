// ABOUTME: Export and import functionality for health data.
// ABOUTME: Serializes a full store snapshot as JSON or YAML and loads it back into any backend.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/harperreed/healthlog/internal/models"
	"gopkg.in/yaml.v3"
)

// ExportVersion is the current export format version.
const ExportVersion = "2.0"

// ExportData represents the full export format for health data.
type ExportData struct {
	Version         string    `json:"version" yaml:"version"`
	ExportedAt      time.Time `json:"exported_at" yaml:"exported_at"`
	Tool            string          `json:"tool" yaml:"tool"`
	Profile         *models.Profile `json:"profile,omitempty" yaml:"profile,omitempty"`
	models.Snapshot `yaml:",inline"`
}

// Count returns the number of records, definitions and profiles in the export.
func (e *ExportData) Count() int {
	n := e.Len() + len(e.Medications) + len(e.Markers)
	if e.Profile != nil {
		n++
	}
	return n
}

// exportAll builds ExportData from a full snapshot of repo.
func exportAll(repo Repository) (*ExportData, error) {
	snap, err := repo.Snapshot(RecordFilter{})
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	profile, err := repo.GetProfile()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("export: %w", err)
	}
	return &ExportData{
		Version:    ExportVersion,
		ExportedAt: time.Now(),
		Tool:       "healthlog",
		Profile:    profile,
		Snapshot:   *snap,
	}, nil
}

// importAll writes definitions first so medication entries resolve, then
// every record category in canonical order. IDs are preserved.
func importAll(repo Repository, data *ExportData) error {
	if data.Profile != nil {
		if err := repo.SaveProfile(data.Profile); err != nil {
			return fmt.Errorf("import profile: %w", err)
		}
	}
	for _, m := range data.Medications {
		if err := repo.CreateMedication(m); err != nil {
			return fmt.Errorf("import medication %s: %w", m.Name, err)
		}
	}
	for _, m := range data.Markers {
		if err := repo.CreateMarker(m); err != nil {
			return fmt.Errorf("import marker %s: %w", m.Name, err)
		}
	}
	for _, cat := range models.AllCategories {
		for _, r := range data.Records(cat) {
			if err := repo.CreateRecord(r); err != nil {
				return fmt.Errorf("import %s %s: %w", cat, r.Meta().ID, err)
			}
		}
	}
	return nil
}

// GetAllData retrieves all data for export.
func (d *DB) GetAllData() (*ExportData, error) {
	return exportAll(d)
}

// ImportData imports data from an export file.
func (d *DB) ImportData(data *ExportData) error {
	return importAll(d, data)
}

// ExportJSON exports all data from repo as indented JSON.
func ExportJSON(repo Repository) ([]byte, error) {
	data, err := repo.GetAllData()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(data, "", "  ")
}

// ExportYAML exports all data from repo as YAML.
func ExportYAML(repo Repository) ([]byte, error) {
	data, err := repo.GetAllData()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(data)
}

// ImportJSON imports data from JSON bytes.
func ImportJSON(repo Repository, data []byte) (int, error) {
	var exportData ExportData
	if err := json.Unmarshal(data, &exportData); err != nil {
		return 0, fmt.Errorf("unmarshal JSON: %w", err)
	}
	if err := repo.ImportData(&exportData); err != nil {
		return 0, err
	}
	return exportData.Count(), nil
}

// ImportYAML imports data from YAML bytes.
func ImportYAML(repo Repository, data []byte) (int, error) {
	var exportData ExportData
	if err := yaml.Unmarshal(data, &exportData); err != nil {
		return 0, fmt.Errorf("unmarshal YAML: %w", err)
	}
	if err := repo.ImportData(&exportData); err != nil {
		return 0, err
	}
	return exportData.Count(), nil
}
