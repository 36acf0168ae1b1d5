// ABOUTME: Record CRUD operations for SQLite storage.
// ABOUTME: Stores records as JSON payloads indexed by category, day and wall-clock order.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthlog/internal/models"
)

// createdLayout is fixed width so created_at sorts as text.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatCreated(t time.Time) string {
	return t.UTC().Format(createdLayout)
}

// medicationRef returns the referenced medication ID for medication entries.
func medicationRef(r models.Record) *string {
	if e, ok := r.(*models.MedicationEntry); ok {
		id := e.MedicationID.String()
		return &id
	}
	return nil
}

// CreateRecord stores a new record. Steps and sleep records replace the
// existing record for their day in place, keeping its ID.
func (d *DB) CreateRecord(r models.Record) error {
	models.ApplyDefaults(r)
	if err := models.Validate(r); err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkMedicationRef(tx, r); err != nil {
		return err
	}

	meta := r.Meta()
	if r.Category().UniquePerDay() {
		var existingID, createdAt string
		err := tx.QueryRow(`SELECT id, created_at FROM records WHERE category = ? AND day = ?`,
			string(r.Category()), r.DayKey().String()).Scan(&existingID, &createdAt)
		switch {
		case err == nil:
			if meta.ID, err = uuid.Parse(existingID); err != nil {
				return fmt.Errorf("create record: stored id %q: %w", existingID, err)
			}
			if meta.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
				return fmt.Errorf("create record: stored created_at %q: %w", createdAt, err)
			}
			if err := updateRecordTx(tx, r); err != nil {
				return err
			}
			return tx.Commit()
		case !errors.Is(err, sql.ErrNoRows):
			return fmt.Errorf("create record: %w", err)
		}
	}

	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	} else {
		var n int
		if err := tx.QueryRow(`SELECT COUNT(*) FROM records WHERE id = ?`, meta.ID.String()).Scan(&n); err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("create %s: %w: %s", r.Category(), ErrDuplicateID, meta.ID)
		}
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	payload, err := encodeRecord(r)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO records (id, category, day, sort_key, created_at, medication_id, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		meta.ID.String(),
		string(r.Category()),
		r.DayKey().String(),
		models.SortKey(r),
		formatCreated(meta.CreatedAt),
		medicationRef(r),
		payload,
	)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	return tx.Commit()
}

// UpdateRecord replaces the stored fields of an existing record.
func (d *DB) UpdateRecord(r models.Record) error {
	models.ApplyDefaults(r)
	if err := models.Validate(r); err != nil {
		return err
	}

	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := checkMedicationRef(tx, r); err != nil {
		return err
	}

	if r.Category().UniquePerDay() {
		var n int
		err := tx.QueryRow(`SELECT COUNT(*) FROM records WHERE category = ? AND day = ? AND id != ?`,
			string(r.Category()), r.DayKey().String(), r.Meta().ID.String()).Scan(&n)
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if n > 0 {
			return fmt.Errorf("update %s: %w: %s", r.Category(), ErrDayTaken, r.DayKey())
		}
	}

	if err := updateRecordTx(tx, r); err != nil {
		return err
	}
	return tx.Commit()
}

func updateRecordTx(tx *sql.Tx, r models.Record) error {
	payload, err := encodeRecord(r)
	if err != nil {
		return err
	}
	result, err := tx.Exec(`
		UPDATE records SET day = ?, sort_key = ?, medication_id = ?, payload = ?
		WHERE id = ? AND category = ?
	`,
		r.DayKey().String(),
		models.SortKey(r),
		medicationRef(r),
		payload,
		r.Meta().ID.String(),
		string(r.Category()),
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update record: %w: %s", ErrNotFound, r.Meta().ID)
	}
	return nil
}

// checkMedicationRef rejects medication entries without a definition.
func checkMedicationRef(tx *sql.Tx, r models.Record) error {
	ref := medicationRef(r)
	if ref == nil {
		return nil
	}
	var n int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM medications WHERE id = ?`, *ref).Scan(&n); err != nil {
		return fmt.Errorf("check medication: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrUnknownMedication, *ref)
	}
	return nil
}

// GetRecord retrieves a record by ID or ID prefix.
func (d *DB) GetRecord(cat models.Category, idOrPrefix string) (models.Record, error) {
	id, err := d.resolveID(`SELECT id FROM records WHERE category = ? AND id LIKE ? || '%'`, string(cat), idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", cat, err)
	}

	var payload string
	err = d.db.QueryRow(`SELECT payload FROM records WHERE id = ? AND category = ?`, id, string(cat)).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get %s: %w: %s", cat, ErrNotFound, idOrPrefix)
		}
		return nil, fmt.Errorf("get %s: %w", cat, err)
	}
	return models.DecodeRecord(cat, []byte(payload))
}

// ListRecords retrieves records of one category matching filter.
func (d *DB) ListRecords(cat models.Category, filter RecordFilter) ([]models.Record, error) {
	where, args := filterClause(filter)
	where = append([]string{"category = ?"}, where...)
	args = append([]interface{}{string(cat)}, args...)

	query := "SELECT category, payload FROM records WHERE " + strings.Join(where, " AND ") + orderClause(filter.Descending)
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", cat, err)
	}
	defer rows.Close()

	var records []models.Record
	err = scanRecords(rows, func(r models.Record) {
		records = append(records, r)
	})
	return records, err
}

// DeleteRecord removes a record by ID or prefix.
func (d *DB) DeleteRecord(cat models.Category, idOrPrefix string) error {
	id, err := d.resolveID(`SELECT id FROM records WHERE category = ? AND id LIKE ? || '%'`, string(cat), idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete %s: %w", cat, err)
	}

	result, err := d.db.Exec("DELETE FROM records WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", cat, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete %s: %w", cat, err)
	}
	if affected == 0 {
		return fmt.Errorf("delete %s: %w: %s", cat, ErrNotFound, idOrPrefix)
	}
	return nil
}

// DeleteRecordsOnDay removes every record of a category on one day.
func (d *DB) DeleteRecordsOnDay(cat models.Category, day models.Day) (int, error) {
	result, err := d.db.Exec("DELETE FROM records WHERE category = ? AND day = ?", string(cat), day.String())
	if err != nil {
		return 0, fmt.Errorf("delete %s on %s: %w", cat, day, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete %s on %s: %w", cat, day, err)
	}
	return int(affected), nil
}

// Snapshot reads all records matching filter and every definition inside
// one transaction, so the result reflects a single point in time.
func (d *DB) Snapshot(filter RecordFilter) (*models.Snapshot, error) {
	tx, err := d.db.BeginTx(context.Background(), &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	snap := &models.Snapshot{}

	where, args := filterClause(filter)
	query := "SELECT category, payload FROM records"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += orderClause(filter.Descending)

	rows, err := tx.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("snapshot records: %w", err)
	}
	err = scanRecords(rows, snap.Add)
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("snapshot records: %w", err)
	}

	if snap.Medications, err = listMedications(tx); err != nil {
		return nil, fmt.Errorf("snapshot medications: %w", err)
	}
	if snap.Markers, err = listMarkers(tx); err != nil {
		return nil, fmt.Errorf("snapshot markers: %w", err)
	}

	return snap, nil
}

func filterClause(filter RecordFilter) ([]string, []interface{}) {
	var where []string
	var args []interface{}
	if filter.From != nil {
		where = append(where, "day >= ?")
		args = append(args, filter.From.String())
	}
	if filter.To != nil {
		where = append(where, "day <= ?")
		args = append(args, filter.To.String())
	}
	return where, args
}

func orderClause(desc bool) string {
	if desc {
		return " ORDER BY sort_key DESC, created_at DESC, rowid DESC"
	}
	return " ORDER BY sort_key ASC, created_at ASC, rowid ASC"
}

// resolveID finds the full ID from a prefix using query, which must select
// a single id column and take the extra args followed by the prefix.
func (d *DB) resolveID(query string, args ...string) (string, error) {
	idOrPrefix := args[len(args)-1]
	if idOrPrefix == "" {
		return "", fmt.Errorf("%w: empty id", ErrNotFound)
	}

	qargs := make([]interface{}, len(args))
	for i, a := range args {
		qargs[i] = a
	}
	rows, err := d.db.Query(query, qargs...)
	if err != nil {
		return "", fmt.Errorf("resolve ID: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return "", fmt.Errorf("scan ID: %w", err)
		}
		matches = append(matches, id)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("resolve ID: %w", err)
	}

	if len(matches) == 0 {
		return "", fmt.Errorf("%w: %s", ErrNotFound, idOrPrefix)
	}
	if len(matches) > 1 {
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, idOrPrefix)
	}
	return matches[0], nil
}

func encodeRecord(r models.Record) (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", r.Category(), err)
	}
	return string(data), nil
}

// scanRecords decodes (category, payload) rows and passes each record to fn.
func scanRecords(rows *sql.Rows, fn func(models.Record)) error {
	for rows.Next() {
		var cat, payload string
		if err := rows.Scan(&cat, &payload); err != nil {
			return fmt.Errorf("scan record: %w", err)
		}
		r, err := models.DecodeRecord(models.Category(cat), []byte(payload))
		if err != nil {
			return err
		}
		fn(r)
	}
	return rows.Err()
}
