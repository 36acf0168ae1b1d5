// ABOUTME: Tests for data migration between storage backends.
// ABOUTME: Covers sqlite-to-badger and badger-to-sqlite copies with IDs preserved.
package storage

import (
	"testing"

	"github.com/harperreed/healthlog/internal/models"
)

func TestMigrateDataSQLiteToBadger(t *testing.T) {
	src := setupTestDB(t)
	seedStore(t, src)
	dst := setupTestKV(t)

	summary, err := MigrateData(src, dst)
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}

	if summary.Medications != 1 {
		t.Errorf("Expected 1 medication migrated, got %d", summary.Medications)
	}
	if summary.Markers != 1 {
		t.Errorf("Expected 1 marker migrated, got %d", summary.Markers)
	}
	if summary.Total() != 4 {
		t.Errorf("Expected 4 records migrated, got %d", summary.Total())
	}
	if summary.Records[models.CategorySteps] != 1 {
		t.Errorf("Expected 1 steps record migrated, got %d", summary.Records[models.CategorySteps])
	}

	weights, err := dst.ListRecords(models.CategoryWeight, RecordFilter{})
	if err != nil {
		t.Fatalf("ListRecords failed: %v", err)
	}
	if len(weights) != 1 || weights[0].(*models.WeightEntry).Weight != 80.2 {
		t.Errorf("Expected migrated weight 80.2, got %v", weights)
	}
}

func TestMigrateDataBadgerToSQLite(t *testing.T) {
	src := setupTestKV(t)
	seedStore(t, src)
	dst := setupTestDB(t)

	summary, err := MigrateData(src, dst)
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}
	if summary.Total() != 4 {
		t.Errorf("Expected 4 records migrated, got %d", summary.Total())
	}

	srcSnap, _ := src.Snapshot(RecordFilter{})
	dstSnap, _ := dst.Snapshot(RecordFilter{})
	if srcSnap.Len() != dstSnap.Len() {
		t.Errorf("Record count mismatch: src %d, dst %d", srcSnap.Len(), dstSnap.Len())
	}
	if dstSnap.MedicationEntries[0].ID != srcSnap.MedicationEntries[0].ID {
		t.Error("Expected IDs to survive migration")
	}
}

func TestMigrateDataCopiesProfile(t *testing.T) {
	src := setupTestKV(t)
	if err := src.SaveProfile(&models.Profile{HeightCm: floatPtr(170)}); err != nil {
		t.Fatalf("SaveProfile failed: %v", err)
	}
	dst := setupTestDB(t)

	summary, err := MigrateData(src, dst)
	if err != nil {
		t.Fatalf("MigrateData failed: %v", err)
	}
	if !summary.Profile {
		t.Error("Expected summary to report the profile")
	}
	p, err := dst.GetProfile()
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if p.HeightCm == nil || *p.HeightCm != 170 {
		t.Errorf("HeightCm = %v, want 170", p.HeightCm)
	}

	empty, err := MigrateData(setupTestDB(t), setupTestKV(t))
	if err != nil {
		t.Fatalf("MigrateData without profile failed: %v", err)
	}
	if empty.Profile {
		t.Error("Expected no profile copied from an empty store")
	}
}
