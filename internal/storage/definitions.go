// ABOUTME: Medication and lab marker definition operations for SQLite storage.
// ABOUTME: Definitions are looked up by exact name or by ID prefix.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthlog/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Query(query string, args ...interface{}) (*sql.Rows, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

// CreateMedication stores a new medication definition.
func (d *DB) CreateMedication(m *models.Medication) error {
	if err := models.ValidateDefinition(m); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	if taken, err := nameTaken(d.db, "medications", m.Name); err != nil {
		return fmt.Errorf("create medication: %w", err)
	} else if taken {
		return fmt.Errorf("create medication: %w: %s", ErrDuplicateName, m.Name)
	}

	_, err := d.db.Exec(`
		INSERT INTO medications (id, name, unit, common_doses, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, m.ID.String(), m.Name, m.Unit, m.CommonDoses, formatCreated(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("create medication: %w", err)
	}
	return nil
}

// GetMedication finds a medication by name (case-insensitive) or ID prefix.
func (d *DB) GetMedication(idPrefixOrName string) (*models.Medication, error) {
	row := d.db.QueryRow(`
		SELECT id, name, unit, common_doses, created_at FROM medications
		WHERE name = ? COLLATE NOCASE
	`, idPrefixOrName)
	m, err := scanMedication(row)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get medication: %w", err)
	}

	id, err := d.resolveID(`SELECT id FROM medications WHERE id LIKE ? || '%'`, idPrefixOrName)
	if err != nil {
		return nil, fmt.Errorf("get medication: %w", err)
	}
	row = d.db.QueryRow(`SELECT id, name, unit, common_doses, created_at FROM medications WHERE id = ?`, id)
	m, err = scanMedication(row)
	if err != nil {
		return nil, fmt.Errorf("get medication: %w", err)
	}
	return m, nil
}

// ListMedications returns every medication definition sorted by name.
func (d *DB) ListMedications() ([]*models.Medication, error) {
	meds, err := listMedications(d.db)
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	return meds, nil
}

func listMedications(q querier) ([]*models.Medication, error) {
	rows, err := q.Query(`SELECT id, name, unit, common_doses, created_at FROM medications ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var meds []*models.Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, err
		}
		meds = append(meds, m)
	}
	return meds, rows.Err()
}

// DeleteMedication removes a definition that has no logged entries.
func (d *DB) DeleteMedication(idOrPrefix string) error {
	m, err := d.GetMedication(idOrPrefix)
	if err != nil {
		return err
	}

	var n int
	if err := d.db.QueryRow(`SELECT COUNT(*) FROM records WHERE medication_id = ?`, m.ID.String()).Scan(&n); err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("delete medication %s: %w (%d)", m.Name, ErrMedicationInUse, n)
	}

	if _, err := d.db.Exec(`DELETE FROM medications WHERE id = ?`, m.ID.String()); err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	return nil
}

// CreateMarker stores a new lab marker definition.
func (d *DB) CreateMarker(m *models.Marker) error {
	if err := models.ValidateDefinition(m); err != nil {
		return err
	}
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}

	if taken, err := nameTaken(d.db, "markers", m.Name); err != nil {
		return fmt.Errorf("create marker: %w", err)
	} else if taken {
		return fmt.Errorf("create marker: %w: %s", ErrDuplicateName, m.Name)
	}

	_, err := d.db.Exec(`
		INSERT INTO markers (id, name, unit, min_norm, max_norm, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID.String(), m.Name, m.Unit, m.MinNorm, m.MaxNorm, formatCreated(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("create marker: %w", err)
	}
	return nil
}

// GetMarker finds a marker by name (case-insensitive) or ID prefix.
func (d *DB) GetMarker(idPrefixOrName string) (*models.Marker, error) {
	row := d.db.QueryRow(`
		SELECT id, name, unit, min_norm, max_norm, created_at FROM markers
		WHERE name = ? COLLATE NOCASE
	`, idPrefixOrName)
	m, err := scanMarker(row)
	if err == nil {
		return m, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get marker: %w", err)
	}

	id, err := d.resolveID(`SELECT id FROM markers WHERE id LIKE ? || '%'`, idPrefixOrName)
	if err != nil {
		return nil, fmt.Errorf("get marker: %w", err)
	}
	row = d.db.QueryRow(`SELECT id, name, unit, min_norm, max_norm, created_at FROM markers WHERE id = ?`, id)
	m, err = scanMarker(row)
	if err != nil {
		return nil, fmt.Errorf("get marker: %w", err)
	}
	return m, nil
}

// ListMarkers returns every marker definition sorted by name.
func (d *DB) ListMarkers() ([]*models.Marker, error) {
	markers, err := listMarkers(d.db)
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	return markers, nil
}

func listMarkers(q querier) ([]*models.Marker, error) {
	rows, err := q.Query(`SELECT id, name, unit, min_norm, max_norm, created_at FROM markers ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var markers []*models.Marker
	for rows.Next() {
		m, err := scanMarker(rows)
		if err != nil {
			return nil, err
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

// DeleteMarker removes a marker definition. Lab values keep their own name
// and unit, so they are unaffected.
func (d *DB) DeleteMarker(idOrPrefix string) error {
	m, err := d.GetMarker(idOrPrefix)
	if err != nil {
		return err
	}
	if _, err := d.db.Exec(`DELETE FROM markers WHERE id = ?`, m.ID.String()); err != nil {
		return fmt.Errorf("delete marker: %w", err)
	}
	return nil
}

func nameTaken(q querier, table, name string) (bool, error) {
	var n int
	err := q.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE name = ? COLLATE NOCASE`, strings.TrimSpace(name)).Scan(&n)
	return n > 0, err
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanMedication(s scanner) (*models.Medication, error) {
	var m models.Medication
	var id, createdAt string
	var unit, doses sql.NullString
	if err := s.Scan(&id, &m.Name, &unit, &doses, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("medication id %q: %w", id, err)
	}
	m.Unit = unit.String
	m.CommonDoses = doses.String
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("medication %s created_at %q: %w", id, createdAt, err)
	}
	return &m, nil
}

func scanMarker(s scanner) (*models.Marker, error) {
	var m models.Marker
	var id, createdAt string
	var unit sql.NullString
	var minNorm, maxNorm sql.NullFloat64
	if err := s.Scan(&id, &m.Name, &unit, &minNorm, &maxNorm, &createdAt); err != nil {
		return nil, err
	}
	var err error
	if m.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("marker id %q: %w", id, err)
	}
	m.Unit = unit.String
	if minNorm.Valid {
		m.MinNorm = &minNorm.Float64
	}
	if maxNorm.Valid {
		m.MaxNorm = &maxNorm.Float64
	}
	if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, fmt.Errorf("marker %s created_at %q: %w", id, createdAt, err)
	}
	return &m, nil
}
