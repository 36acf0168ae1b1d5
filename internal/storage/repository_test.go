// ABOUTME: Tests for Repository interface implementations.
// ABOUTME: Runs the same CRUD, upsert and snapshot checks against SQLite and Badger.
package storage

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/healthlog/internal/models"
)

// backends returns one fresh store per implementation.
func backends(t *testing.T) map[string]Repository {
	t.Helper()
	return map[string]Repository{
		"sqlite": setupTestDB(t),
		"badger": setupTestKV(t),
	}
}

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "healthlog.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func setupTestKV(t *testing.T) *KVStore {
	t.Helper()

	store, err := OpenBadgerStore(filepath.Join(t.TempDir(), "badger"), nil)
	if err != nil {
		t.Fatalf("Failed to open badger store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 3, day, hour, minute, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func TestCreateAndGetRecord(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			w := models.NewWeightEntry(72.4)
			w.RecordedAt = at(5, 8, 0)
			w.BMI = floatPtr(23.1)

			if err := repo.CreateRecord(w); err != nil {
				t.Fatalf("CreateRecord failed: %v", err)
			}

			got, err := repo.GetRecord(models.CategoryWeight, w.ID.String())
			if err != nil {
				t.Fatalf("GetRecord failed: %v", err)
			}
			gw, ok := got.(*models.WeightEntry)
			if !ok {
				t.Fatalf("Expected *WeightEntry, got %T", got)
			}
			if gw.Weight != 72.4 {
				t.Errorf("Weight mismatch: got %v, want 72.4", gw.Weight)
			}
			if gw.BMI == nil || *gw.BMI != 23.1 {
				t.Errorf("BMI mismatch: got %v, want 23.1", gw.BMI)
			}
			if gw.FatPercentage != nil {
				t.Errorf("FatPercentage should stay absent, got %v", *gw.FatPercentage)
			}
			if !gw.RecordedAt.Equal(w.RecordedAt) {
				t.Errorf("RecordedAt mismatch: got %v, want %v", gw.RecordedAt, w.RecordedAt)
			}

			// Retrieve by 8-char prefix
			got, err = repo.GetRecord(models.CategoryWeight, w.ID.String()[:8])
			if err != nil {
				t.Fatalf("GetRecord by prefix failed: %v", err)
			}
			if got.Meta().ID != w.ID {
				t.Errorf("ID mismatch: got %v, want %v", got.Meta().ID, w.ID)
			}
		})
	}
}

func TestGetRecordNotFound(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.GetRecord(models.CategoryMood, uuid.New().String())
			if !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestCreateRecordValidation(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			tests := []struct {
				name   string
				record models.Record
			}{
				{"zero water", models.NewWaterEntry(models.NewDay(2024, 3, 1), 0)},
				{"mood out of range", models.NewMoodEntry(intPtr(11), nil)},
				{"activity without type", models.NewActivity("")},
				{"sleep without date", &models.SleepEntry{Base: models.NewBase(), DurationHours: 7}},
			}
			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					err := repo.CreateRecord(tt.record)
					if !errors.Is(err, models.ErrInvalidRecord) {
						t.Errorf("Expected ErrInvalidRecord, got %v", err)
					}
				})
			}
		})
	}
}

func TestCreateRecordDuplicateID(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			w := models.NewWeightEntry(80)
			w.RecordedAt = at(2, 7, 0)
			if err := repo.CreateRecord(w); err != nil {
				t.Fatalf("CreateRecord failed: %v", err)
			}

			body := `{"id":"` + w.ID.String() + `","recorded_at":"2024-03-05T09:00:00Z","weight":55}`
			clash, err := models.DecodeRecord(models.CategoryWeight, []byte(body))
			if err != nil {
				t.Fatalf("DecodeRecord failed: %v", err)
			}
			if err := repo.CreateRecord(clash); !errors.Is(err, ErrDuplicateID) {
				t.Errorf("Expected ErrDuplicateID, got %v", err)
			}

			water := models.NewWaterEntry(models.NewDay(2024, 3, 2), 250)
			water.ID = w.ID
			if err := repo.CreateRecord(water); !errors.Is(err, ErrDuplicateID) {
				t.Errorf("Expected ErrDuplicateID across categories, got %v", err)
			}

			weights, err := repo.ListRecords(models.CategoryWeight, RecordFilter{})
			if err != nil {
				t.Fatalf("ListRecords failed: %v", err)
			}
			if len(weights) != 1 {
				t.Fatalf("Expected 1 weight record, got %d", len(weights))
			}
			got := weights[0].(*models.WeightEntry)
			if got.Weight != 80 || got.DayKey() != models.NewDay(2024, 3, 2) {
				t.Errorf("Original record changed: weight %v on %s", got.Weight, got.DayKey())
			}

			fresh, err := models.DecodeNewRecord(models.CategoryWeight, []byte(body))
			if err != nil {
				t.Fatalf("DecodeNewRecord failed: %v", err)
			}
			if err := repo.CreateRecord(fresh); err != nil {
				t.Fatalf("CreateRecord of decoded new record failed: %v", err)
			}
			if fresh.Meta().ID == w.ID {
				t.Error("Expected a new ID for the decoded record")
			}
		})
	}
}

func TestCorruptDefinitionRowsFail(t *testing.T) {
	db := setupTestDB(t)

	if _, err := db.db.Exec(`INSERT INTO medications (id, name, unit, common_doses, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), "Vitamin D", "IU", "", "yesterday"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := db.ListMedications(); err == nil {
		t.Error("Expected error for malformed medication created_at")
	}

	if _, err := db.db.Exec(`INSERT INTO markers (id, name, unit, created_at) VALUES (?, ?, ?, ?)`,
		"not-a-uuid", "LDL", "mg/dL", "2024-03-01T00:00:00Z"); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if _, err := db.ListMarkers(); err == nil {
		t.Error("Expected error for malformed marker id")
	}
}

func TestCorruptStepsRowFailsReplace(t *testing.T) {
	db := setupTestDB(t)
	day := models.NewDay(2024, 3, 4)
	if err := db.CreateRecord(models.NewSteps(day, 5000)); err != nil {
		t.Fatalf("CreateRecord failed: %v", err)
	}
	if _, err := db.db.Exec(`UPDATE records SET created_at = 'garbage' WHERE category = 'steps'`); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if err := db.CreateRecord(models.NewSteps(day, 9000)); err == nil {
		t.Error("Expected error replacing a steps row with a malformed created_at")
	}
}

func TestStepsAndSleepReplaceSameDay(t *testing.T) {
	day := models.NewDay(2024, 3, 10)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			first := models.NewSteps(day, 4000)
			if err := repo.CreateRecord(first); err != nil {
				t.Fatalf("CreateRecord failed: %v", err)
			}
			second := models.NewSteps(day, 9000)
			if err := repo.CreateRecord(second); err != nil {
				t.Fatalf("CreateRecord failed: %v", err)
			}

			steps, err := repo.ListRecords(models.CategorySteps, OnDay(day))
			if err != nil {
				t.Fatalf("ListRecords failed: %v", err)
			}
			if len(steps) != 1 {
				t.Fatalf("Expected 1 steps record, got %d", len(steps))
			}
			if got := steps[0].(*models.Steps).Count; got != 9000 {
				t.Errorf("Expected count 9000, got %d", got)
			}
			if steps[0].Meta().ID != first.ID {
				t.Errorf("Expected replaced record to keep ID %v, got %v", first.ID, steps[0].Meta().ID)
			}

			for _, hours := range []float64{6, 7.5} {
				if err := repo.CreateRecord(models.NewSleepEntry(day, hours)); err != nil {
					t.Fatalf("CreateRecord sleep failed: %v", err)
				}
			}
			sleeps, err := repo.ListRecords(models.CategorySleep, RecordFilter{})
			if err != nil {
				t.Fatalf("ListRecords failed: %v", err)
			}
			if len(sleeps) != 1 || sleeps[0].(*models.SleepEntry).DurationHours != 7.5 {
				t.Errorf("Expected a single 7.5h sleep record, got %v", sleeps)
			}
		})
	}
}

func TestWaterAccumulates(t *testing.T) {
	day := models.NewDay(2024, 3, 10)

	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, ml := range []int{300, 250, 450} {
				if err := repo.CreateRecord(models.NewWaterEntry(day, ml)); err != nil {
					t.Fatalf("CreateRecord failed: %v", err)
				}
			}

			water, err := repo.ListRecords(models.CategoryWater, OnDay(day))
			if err != nil {
				t.Fatalf("ListRecords failed: %v", err)
			}
			if len(water) != 3 {
				t.Fatalf("Expected 3 water entries, got %d", len(water))
			}

			n, err := repo.DeleteRecordsOnDay(models.CategoryWater, day)
			if err != nil {
				t.Fatalf("DeleteRecordsOnDay failed: %v", err)
			}
			if n != 3 {
				t.Errorf("Expected 3 deleted, got %d", n)
			}
			water, _ = repo.ListRecords(models.CategoryWater, OnDay(day))
			if len(water) != 0 {
				t.Errorf("Expected no water after reset, got %d", len(water))
			}
		})
	}
}

func TestListRecordsOrderAndFilter(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			times := []time.Time{at(3, 18, 0), at(1, 9, 0), at(3, 7, 30), at(2, 12, 0)}
			for i, ts := range times {
				m := models.NewMoodEntry(intPtr(i+1), nil)
				m.RecordedAt = ts
				if err := repo.CreateRecord(m); err != nil {
					t.Fatalf("CreateRecord failed: %v", err)
				}
			}

			all, err := repo.ListRecords(models.CategoryMood, RecordFilter{})
			if err != nil {
				t.Fatalf("ListRecords failed: %v", err)
			}
			if len(all) != 4 {
				t.Fatalf("Expected 4 records, got %d", len(all))
			}
			for i := 1; i < len(all); i++ {
				if all[i].Timestamp().Before(all[i-1].Timestamp()) {
					t.Errorf("Records not ascending at %d: %v before %v", i, all[i].Timestamp(), all[i-1].Timestamp())
				}
			}

			desc, _ := repo.ListRecords(models.CategoryMood, RecordFilter{Descending: true, Limit: 2})
			if len(desc) != 2 {
				t.Fatalf("Expected 2 records with limit, got %d", len(desc))
			}
			if !desc[0].Timestamp().Equal(at(3, 18, 0)) {
				t.Errorf("Expected latest first, got %v", desc[0].Timestamp())
			}

			day3, _ := repo.ListRecords(models.CategoryMood, OnDay(models.NewDay(2024, 3, 3)))
			if len(day3) != 2 {
				t.Errorf("Expected 2 records on day 3, got %d", len(day3))
			}

			rng, _ := repo.ListRecords(models.CategoryMood, Between(models.NewDay(2024, 3, 1), models.NewDay(2024, 3, 2)))
			if len(rng) != 2 {
				t.Errorf("Expected 2 records in range, got %d", len(rng))
			}
		})
	}
}

func TestUpdateAndDeleteRecord(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			f := models.NewFoodEntry("oatmeal")
			f.RecordedAt = at(4, 8, 0)
			if err := repo.CreateRecord(f); err != nil {
				t.Fatalf("CreateRecord failed: %v", err)
			}

			f.Calories = intPtr(350)
			if err := repo.UpdateRecord(f); err != nil {
				t.Fatalf("UpdateRecord failed: %v", err)
			}
			got, err := repo.GetRecord(models.CategoryFood, f.ID.String())
			if err != nil {
				t.Fatalf("GetRecord failed: %v", err)
			}
			if c := got.(*models.FoodEntry).Calories; c == nil || *c != 350 {
				t.Errorf("Expected calories 350, got %v", c)
			}

			if err := repo.DeleteRecord(models.CategoryFood, f.ID.String()[:8]); err != nil {
				t.Fatalf("DeleteRecord failed: %v", err)
			}
			if _, err := repo.GetRecord(models.CategoryFood, f.ID.String()); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound after delete, got %v", err)
			}

			missing := models.NewFoodEntry("ghost")
			if err := repo.UpdateRecord(missing); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound updating missing record, got %v", err)
			}
		})
	}
}

func TestUpdateStepsOntoTakenDay(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			a := models.NewSteps(models.NewDay(2024, 3, 1), 100)
			b := models.NewSteps(models.NewDay(2024, 3, 2), 200)
			if err := repo.CreateRecord(a); err != nil {
				t.Fatalf("CreateRecord failed: %v", err)
			}
			if err := repo.CreateRecord(b); err != nil {
				t.Fatalf("CreateRecord failed: %v", err)
			}

			b.Date = a.Date
			if err := repo.UpdateRecord(b); !errors.Is(err, ErrDayTaken) {
				t.Errorf("Expected ErrDayTaken, got %v", err)
			}
		})
	}
}

func TestMedicationDefinitions(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			med := models.NewMedication("Ibuprofen", "mg", "200, 400")
			if err := repo.CreateMedication(med); err != nil {
				t.Fatalf("CreateMedication failed: %v", err)
			}
			if err := repo.CreateMedication(models.NewMedication("ibuprofen", "", "")); !errors.Is(err, ErrDuplicateName) {
				t.Errorf("Expected ErrDuplicateName, got %v", err)
			}

			byName, err := repo.GetMedication("IBUPROFEN")
			if err != nil {
				t.Fatalf("GetMedication by name failed: %v", err)
			}
			if byName.ID != med.ID {
				t.Errorf("Expected %v, got %v", med.ID, byName.ID)
			}
			byPrefix, err := repo.GetMedication(med.ID.String()[:8])
			if err != nil {
				t.Fatalf("GetMedication by prefix failed: %v", err)
			}
			if byPrefix.Unit != "mg" || byPrefix.CommonDoses != "200, 400" {
				t.Errorf("Unexpected medication fields: %+v", byPrefix)
			}

			orphan := models.NewMedicationEntry(uuid.New(), "1 tablet")
			if err := repo.CreateRecord(orphan); !errors.Is(err, ErrUnknownMedication) {
				t.Errorf("Expected ErrUnknownMedication, got %v", err)
			}

			entry := models.NewMedicationEntry(med.ID, "400mg")
			if err := repo.CreateRecord(entry); err != nil {
				t.Fatalf("CreateRecord medication failed: %v", err)
			}
			if err := repo.DeleteMedication(med.ID.String()); !errors.Is(err, ErrMedicationInUse) {
				t.Errorf("Expected ErrMedicationInUse, got %v", err)
			}

			if err := repo.DeleteRecord(models.CategoryMedication, entry.ID.String()); err != nil {
				t.Fatalf("DeleteRecord failed: %v", err)
			}
			if err := repo.DeleteMedication("Ibuprofen"); err != nil {
				t.Fatalf("DeleteMedication failed: %v", err)
			}
			meds, _ := repo.ListMedications()
			if len(meds) != 0 {
				t.Errorf("Expected no medications, got %d", len(meds))
			}
		})
	}
}

func TestMarkerDefinitions(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, n := range []string{"LDL", "Glucose", "hba1c"} {
				if err := repo.CreateMarker(models.NewMarker(n, "mg/dL", floatPtr(0), nil)); err != nil {
					t.Fatalf("CreateMarker failed: %v", err)
				}
			}

			markers, err := repo.ListMarkers()
			if err != nil {
				t.Fatalf("ListMarkers failed: %v", err)
			}
			want := []string{"Glucose", "hba1c", "LDL"}
			if len(markers) != len(want) {
				t.Fatalf("Expected %d markers, got %d", len(want), len(markers))
			}
			for i, m := range markers {
				if m.Name != want[i] {
					t.Errorf("Marker %d: expected %s, got %s", i, want[i], m.Name)
				}
			}
			if markers[0].MinNorm == nil || *markers[0].MinNorm != 0 {
				t.Errorf("Expected MinNorm 0, got %v", markers[0].MinNorm)
			}
			if markers[0].MaxNorm != nil {
				t.Errorf("Expected MaxNorm absent, got %v", *markers[0].MaxNorm)
			}

			if err := repo.DeleteMarker("ldl"); err != nil {
				t.Fatalf("DeleteMarker failed: %v", err)
			}
			if _, err := repo.GetMarker("LDL"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Expected ErrNotFound, got %v", err)
			}
		})
	}
}

func TestSnapshot(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			med := models.NewMedication("Metformin", "mg", "")
			if err := repo.CreateMedication(med); err != nil {
				t.Fatalf("CreateMedication failed: %v", err)
			}

			late := models.NewWeightEntry(71)
			late.RecordedAt = at(6, 20, 0)
			early := models.NewWeightEntry(72)
			early.RecordedAt = at(6, 7, 0)
			old := models.NewVitalValue(intPtr(120), intPtr(80), nil)
			old.RecordedAt = at(1, 9, 0)
			entry := models.NewMedicationEntry(med.ID, "500")
			entry.RecordedAt = at(6, 8, 0)

			for _, r := range []models.Record{late, early, old, entry, models.NewWaterEntry(models.NewDay(2024, 3, 6), 250)} {
				if err := repo.CreateRecord(r); err != nil {
					t.Fatalf("CreateRecord failed: %v", err)
				}
			}

			snap, err := repo.Snapshot(RecordFilter{})
			if err != nil {
				t.Fatalf("Snapshot failed: %v", err)
			}
			if snap.Len() != 5 {
				t.Errorf("Expected 5 records, got %d", snap.Len())
			}
			if len(snap.Weights) != 2 || snap.Weights[0].Weight != 72 {
				t.Errorf("Expected weights in wall-clock order, got %v", snap.Weights)
			}
			if len(snap.Medications) != 1 || snap.Medication(med.ID) == nil {
				t.Errorf("Expected medication definition in snapshot")
			}

			day6 := models.NewDay(2024, 3, 6)
			bounded, err := repo.Snapshot(OnDay(day6))
			if err != nil {
				t.Fatalf("Snapshot failed: %v", err)
			}
			if len(bounded.Vitals) != 0 {
				t.Errorf("Expected vitals outside range to be excluded, got %d", len(bounded.Vitals))
			}
			if bounded.Len() != 4 {
				t.Errorf("Expected 4 records on day 6, got %d", bounded.Len())
			}
		})
	}
}

func TestProfile(t *testing.T) {
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			if _, err := repo.GetProfile(); !errors.Is(err, ErrNotFound) {
				t.Fatalf("Expected ErrNotFound before save, got %v", err)
			}

			birth := models.NewDay(1985, 4, 12)
			p := &models.Profile{HeightCm: floatPtr(182), Birthdate: &birth, TargetWeight: floatPtr(78)}
			if err := repo.SaveProfile(p); err != nil {
				t.Fatalf("SaveProfile failed: %v", err)
			}
			got, err := repo.GetProfile()
			if err != nil {
				t.Fatalf("GetProfile failed: %v", err)
			}
			if got.HeightCm == nil || *got.HeightCm != 182 {
				t.Errorf("HeightCm = %v, want 182", got.HeightCm)
			}
			if got.Birthdate == nil || *got.Birthdate != birth {
				t.Errorf("Birthdate = %v, want %s", got.Birthdate, birth)
			}
			if got.UpdatedAt.IsZero() {
				t.Error("Expected UpdatedAt to be set")
			}

			if err := repo.SaveProfile(&models.Profile{HeightCm: floatPtr(-1)}); !errors.Is(err, models.ErrInvalidRecord) {
				t.Errorf("Expected ErrInvalidRecord for negative height, got %v", err)
			}

			if err := repo.SaveProfile(&models.Profile{HeightCm: floatPtr(180)}); err != nil {
				t.Fatalf("SaveProfile failed: %v", err)
			}
			got, err = repo.GetProfile()
			if err != nil {
				t.Fatalf("GetProfile failed: %v", err)
			}
			if *got.HeightCm != 180 || got.Birthdate != nil || got.TargetWeight != nil {
				t.Errorf("Expected second save to replace the profile, got %+v", got)
			}
		})
	}
}

func TestRecordFilterMatch(t *testing.T) {
	from := models.NewDay(2024, 3, 2)
	to := models.NewDay(2024, 3, 4)

	tests := []struct {
		name   string
		filter RecordFilter
		day    models.Day
		want   bool
	}{
		{"zero filter", RecordFilter{}, models.NewDay(1999, 1, 1), true},
		{"before range", Between(from, to), models.NewDay(2024, 3, 1), false},
		{"range start", Between(from, to), from, true},
		{"range end", Between(from, to), to, true},
		{"after range", Between(from, to), models.NewDay(2024, 3, 5), false},
		{"single day", OnDay(from), from, true},
		{"open end", RecordFilter{From: &from}, models.NewDay(2030, 1, 1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Match(tt.day); got != tt.want {
				t.Errorf("Match(%s) = %v, want %v", tt.day, got, tt.want)
			}
		})
	}
}

func floatPtr(v float64) *float64 { return &v }

func TestParseRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		wantErr  bool
		open     bool
	}{
		{"both open", "", "", false, true},
		{"bounded", "2024-03-01", "2024-03-05", false, false},
		{"same day", "2024-03-01", "2024-03-01", false, false},
		{"bad from", "03/01/2024", "", true, false},
		{"bad to", "", "2024-13-01", true, false},
		{"inverted", "2024-03-05", "2024-03-01", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseRange(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRange(%q, %q) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
			if tt.open && (f.From != nil || f.To != nil) {
				t.Errorf("Expected open filter, got %+v", f)
			}
		})
	}
}
