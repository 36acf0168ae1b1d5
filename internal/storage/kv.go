// ABOUTME: Repository implementation over an ordered key-value backend.
// ABOUTME: Uses type-prefixed keys with JSON values and client-side filtering and sorting.
package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthlog/internal/models"
)

// Key prefixes. Records are keyed rec:<category>:<uuid>.
const (
	RecordPrefix     = "rec:"
	MedicationPrefix = "med:"
	MarkerPrefix     = "marker:"
	ProfileKey       = "profile"
)

// KVBackend is a byte-oriented key-value store. Get returns ErrNotFound for
// missing keys. Scan visits keys with the given prefix in key order; a
// backend that can should run the whole scan against one consistent view.
type KVBackend interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Delete(key []byte) error
	Scan(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}

// KVStore implements Repository on top of a KVBackend.
type KVStore struct {
	kv KVBackend
	mu sync.Mutex
}

// Compile-time check that KVStore implements Repository.
var _ Repository = (*KVStore)(nil)

// NewKVStore wraps a backend.
func NewKVStore(kv KVBackend) *KVStore {
	return &KVStore{kv: kv}
}

// Backend returns the underlying key-value backend.
func (s *KVStore) Backend() KVBackend {
	return s.kv
}

func recordPrefix(cat models.Category) string {
	return RecordPrefix + string(cat) + ":"
}

func recordKey(r models.Record) []byte {
	return []byte(recordPrefix(r.Category()) + r.Meta().ID.String())
}

// CreateRecord stores a new record. Steps and sleep records replace the
// existing record for their day, keeping its ID.
func (s *KVStore) CreateRecord(r models.Record) error {
	models.ApplyDefaults(r)
	if err := models.Validate(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkMedicationRef(r); err != nil {
		return err
	}

	meta := r.Meta()
	replacing := false
	if r.Category().UniquePerDay() {
		existing, err := s.recordsOnDay(r.Category(), r.DayKey())
		if err != nil {
			return fmt.Errorf("create record: %w", err)
		}
		if len(existing) > 0 {
			meta.ID = existing[0].Meta().ID
			meta.CreatedAt = existing[0].Meta().CreatedAt
			replacing = true
		}
	}

	if meta.ID == uuid.Nil {
		meta.ID = uuid.New()
	} else if !replacing {
		if err := s.checkFreeID(meta.ID); err != nil {
			return fmt.Errorf("create %s: %w", r.Category(), err)
		}
	}
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}

	return s.putRecord(r)
}

// UpdateRecord replaces the stored fields of an existing record.
func (s *KVStore) UpdateRecord(r models.Record) error {
	models.ApplyDefaults(r)
	if err := models.Validate(r); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.kv.Get(recordKey(r)); err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if err := s.checkMedicationRef(r); err != nil {
		return err
	}

	if r.Category().UniquePerDay() {
		existing, err := s.recordsOnDay(r.Category(), r.DayKey())
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		for _, e := range existing {
			if e.Meta().ID != r.Meta().ID {
				return fmt.Errorf("update %s: %w: %s", r.Category(), ErrDayTaken, r.DayKey())
			}
		}
	}

	return s.putRecord(r)
}

// checkFreeID fails if any category already stores a record with id,
// matching the SQLite primary key.
func (s *KVStore) checkFreeID(id uuid.UUID) error {
	for _, cat := range models.AllCategories {
		key := []byte(recordPrefix(cat) + id.String())
		if _, err := s.kv.Get(key); err == nil {
			return fmt.Errorf("%w: %s", ErrDuplicateID, id)
		} else if !isNotFound(err) {
			return err
		}
	}
	return nil
}

func (s *KVStore) putRecord(r models.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", r.Category(), err)
	}
	if err := s.kv.Set(recordKey(r), data); err != nil {
		return fmt.Errorf("store %s: %w", r.Category(), err)
	}
	return nil
}

func (s *KVStore) checkMedicationRef(r models.Record) error {
	e, ok := r.(*models.MedicationEntry)
	if !ok {
		return nil
	}
	if _, err := s.kv.Get([]byte(MedicationPrefix + e.MedicationID.String())); err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: %s", ErrUnknownMedication, e.MedicationID)
		}
		return fmt.Errorf("check medication: %w", err)
	}
	return nil
}

func (s *KVStore) recordsOnDay(cat models.Category, day models.Day) ([]models.Record, error) {
	all, err := s.scanRecords(cat)
	if err != nil {
		return nil, err
	}
	var out []models.Record
	for _, r := range all {
		if r.DayKey() == day {
			out = append(out, r)
		}
	}
	models.SortRecords(out)
	return out, nil
}

// scanRecords decodes every record of one category, in key order.
func (s *KVStore) scanRecords(cat models.Category) ([]models.Record, error) {
	var records []models.Record
	err := s.kv.Scan([]byte(recordPrefix(cat)), func(_, value []byte) error {
		r, err := models.DecodeRecord(cat, value)
		if err != nil {
			return err
		}
		records = append(records, r)
		return nil
	})
	return records, err
}

// GetRecord retrieves a record by ID or ID prefix.
func (s *KVStore) GetRecord(cat models.Category, idOrPrefix string) (models.Record, error) {
	_, value, err := s.resolve(recordPrefix(cat), idOrPrefix)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", cat, err)
	}
	return models.DecodeRecord(cat, value)
}

// ListRecords retrieves records of one category matching filter.
func (s *KVStore) ListRecords(cat models.Category, filter RecordFilter) ([]models.Record, error) {
	all, err := s.scanRecords(cat)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", cat, err)
	}

	var records []models.Record
	for _, r := range all {
		if filter.Match(r.DayKey()) {
			records = append(records, r)
		}
	}
	models.SortRecords(records)
	if filter.Descending {
		reverse(records)
	}
	if filter.Limit > 0 && len(records) > filter.Limit {
		records = records[:filter.Limit]
	}
	return records, nil
}

// DeleteRecord removes a record by ID or prefix.
func (s *KVStore) DeleteRecord(cat models.Category, idOrPrefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, _, err := s.resolve(recordPrefix(cat), idOrPrefix)
	if err != nil {
		return fmt.Errorf("delete %s: %w", cat, err)
	}
	if err := s.kv.Delete(key); err != nil {
		return fmt.Errorf("delete %s: %w", cat, err)
	}
	return nil
}

// DeleteRecordsOnDay removes every record of a category on one day.
func (s *KVStore) DeleteRecordsOnDay(cat models.Category, day models.Day) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.recordsOnDay(cat, day)
	if err != nil {
		return 0, fmt.Errorf("delete %s on %s: %w", cat, day, err)
	}
	for i, r := range records {
		if err := s.kv.Delete(recordKey(r)); err != nil {
			return i, fmt.Errorf("delete %s on %s: %w", cat, day, err)
		}
	}
	return len(records), nil
}

// CreateMedication stores a new medication definition.
func (s *KVStore) CreateMedication(m *models.Medication) error {
	if err := models.ValidateDefinition(m); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	meds, err := s.listMedications()
	if err != nil {
		return fmt.Errorf("create medication: %w", err)
	}
	for _, existing := range meds {
		if strings.EqualFold(existing.Name, strings.TrimSpace(m.Name)) {
			return fmt.Errorf("create medication: %w: %s", ErrDuplicateName, m.Name)
		}
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return s.putJSON(MedicationPrefix+m.ID.String(), m)
}

// GetMedication finds a medication by name (case-insensitive) or ID prefix.
func (s *KVStore) GetMedication(idPrefixOrName string) (*models.Medication, error) {
	meds, err := s.listMedications()
	if err != nil {
		return nil, fmt.Errorf("get medication: %w", err)
	}
	for _, m := range meds {
		if strings.EqualFold(m.Name, idPrefixOrName) {
			return m, nil
		}
	}

	_, value, err := s.resolve(MedicationPrefix, idPrefixOrName)
	if err != nil {
		return nil, fmt.Errorf("get medication: %w", err)
	}
	var m models.Medication
	if err := json.Unmarshal(value, &m); err != nil {
		return nil, fmt.Errorf("unmarshal medication: %w", err)
	}
	return &m, nil
}

// ListMedications returns every medication definition sorted by name.
func (s *KVStore) ListMedications() ([]*models.Medication, error) {
	meds, err := s.listMedications()
	if err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	return meds, nil
}

func (s *KVStore) listMedications() ([]*models.Medication, error) {
	var meds []*models.Medication
	err := s.kv.Scan([]byte(MedicationPrefix), func(_, value []byte) error {
		var m models.Medication
		if err := json.Unmarshal(value, &m); err != nil {
			return err
		}
		meds = append(meds, &m)
		return nil
	})
	sortByName(meds, func(m *models.Medication) string { return m.Name })
	return meds, err
}

// DeleteMedication removes a definition that has no logged entries.
func (s *KVStore) DeleteMedication(idOrPrefix string) error {
	m, err := s.GetMedication(idOrPrefix)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.scanRecords(models.CategoryMedication)
	if err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	n := 0
	for _, r := range entries {
		if r.(*models.MedicationEntry).MedicationID == m.ID {
			n++
		}
	}
	if n > 0 {
		return fmt.Errorf("delete medication %s: %w (%d)", m.Name, ErrMedicationInUse, n)
	}

	if err := s.kv.Delete([]byte(MedicationPrefix + m.ID.String())); err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	return nil
}

// CreateMarker stores a new lab marker definition.
func (s *KVStore) CreateMarker(m *models.Marker) error {
	if err := models.ValidateDefinition(m); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	markers, err := s.listMarkers()
	if err != nil {
		return fmt.Errorf("create marker: %w", err)
	}
	for _, existing := range markers {
		if strings.EqualFold(existing.Name, strings.TrimSpace(m.Name)) {
			return fmt.Errorf("create marker: %w: %s", ErrDuplicateName, m.Name)
		}
	}

	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	return s.putJSON(MarkerPrefix+m.ID.String(), m)
}

// GetMarker finds a marker by name (case-insensitive) or ID prefix.
func (s *KVStore) GetMarker(idPrefixOrName string) (*models.Marker, error) {
	markers, err := s.listMarkers()
	if err != nil {
		return nil, fmt.Errorf("get marker: %w", err)
	}
	for _, m := range markers {
		if strings.EqualFold(m.Name, idPrefixOrName) {
			return m, nil
		}
	}

	_, value, err := s.resolve(MarkerPrefix, idPrefixOrName)
	if err != nil {
		return nil, fmt.Errorf("get marker: %w", err)
	}
	var m models.Marker
	if err := json.Unmarshal(value, &m); err != nil {
		return nil, fmt.Errorf("unmarshal marker: %w", err)
	}
	return &m, nil
}

// ListMarkers returns every marker definition sorted by name.
func (s *KVStore) ListMarkers() ([]*models.Marker, error) {
	markers, err := s.listMarkers()
	if err != nil {
		return nil, fmt.Errorf("list markers: %w", err)
	}
	return markers, nil
}

func (s *KVStore) listMarkers() ([]*models.Marker, error) {
	var markers []*models.Marker
	err := s.kv.Scan([]byte(MarkerPrefix), func(_, value []byte) error {
		var m models.Marker
		if err := json.Unmarshal(value, &m); err != nil {
			return err
		}
		markers = append(markers, &m)
		return nil
	})
	sortByName(markers, func(m *models.Marker) string { return m.Name })
	return markers, err
}

// DeleteMarker removes a marker definition.
func (s *KVStore) DeleteMarker(idOrPrefix string) error {
	m, err := s.GetMarker(idOrPrefix)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Delete([]byte(MarkerPrefix + m.ID.String())); err != nil {
		return fmt.Errorf("delete marker: %w", err)
	}
	return nil
}

// Snapshot reads every key in a single scan, so backends with consistent
// views return a point-in-time result.
func (s *KVStore) Snapshot(filter RecordFilter) (*models.Snapshot, error) {
	var records []models.Record
	snap := &models.Snapshot{}

	err := s.kv.Scan(nil, func(key, value []byte) error {
		switch {
		case bytes.HasPrefix(key, []byte(RecordPrefix)):
			rest := bytes.TrimPrefix(key, []byte(RecordPrefix))
			i := bytes.IndexByte(rest, ':')
			if i < 0 {
				return nil
			}
			r, err := models.DecodeRecord(models.Category(rest[:i]), value)
			if err != nil {
				return err
			}
			if filter.Match(r.DayKey()) {
				records = append(records, r)
			}
		case bytes.HasPrefix(key, []byte(MedicationPrefix)):
			var m models.Medication
			if err := json.Unmarshal(value, &m); err != nil {
				return err
			}
			snap.Medications = append(snap.Medications, &m)
		case bytes.HasPrefix(key, []byte(MarkerPrefix)):
			var m models.Marker
			if err := json.Unmarshal(value, &m); err != nil {
				return err
			}
			snap.Markers = append(snap.Markers, &m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	models.SortRecords(records)
	if filter.Descending {
		reverse(records)
	}
	for _, r := range records {
		snap.Add(r)
	}
	sortByName(snap.Medications, func(m *models.Medication) string { return m.Name })
	sortByName(snap.Markers, func(m *models.Marker) string { return m.Name })

	return snap, nil
}

// GetProfile returns the stored profile.
func (s *KVStore) GetProfile() (*models.Profile, error) {
	value, err := s.kv.Get([]byte(ProfileKey))
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	var p models.Profile
	if err := json.Unmarshal(value, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &p, nil
}

// SaveProfile replaces the stored profile.
func (s *KVStore) SaveProfile(p *models.Profile) error {
	if err := models.ValidateDefinition(p); err != nil {
		return err
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.putJSON(ProfileKey, p); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// GetAllData retrieves all data for export.
func (s *KVStore) GetAllData() (*ExportData, error) {
	return exportAll(s)
}

// ImportData imports data from an export file.
func (s *KVStore) ImportData(data *ExportData) error {
	return importAll(s, data)
}

// Close closes the backend.
func (s *KVStore) Close() error {
	return s.kv.Close()
}

func (s *KVStore) putJSON(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.kv.Set([]byte(key), data)
}

// resolve finds the single key under typePrefix whose ID starts with idPrefix.
func (s *KVStore) resolve(typePrefix, idPrefix string) ([]byte, []byte, error) {
	if idPrefix == "" {
		return nil, nil, fmt.Errorf("%w: empty id", ErrNotFound)
	}

	var keys, values [][]byte
	err := s.kv.Scan([]byte(typePrefix+idPrefix), func(key, value []byte) error {
		keys = append(keys, key)
		values = append(values, value)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	if len(keys) == 0 {
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, idPrefix)
	}
	if len(keys) > 1 {
		return nil, nil, fmt.Errorf("%w: %s", ErrAmbiguousID, idPrefix)
	}
	return keys[0], values[0], nil
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func reverse(records []models.Record) {
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
}

func sortByName[T any](items []T, name func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		return strings.ToLower(name(items[i])) < strings.ToLower(name(items[j]))
	})
}
