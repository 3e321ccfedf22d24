package store

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/lox/solarforecast/internal/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := New(db)
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrate_Idempotent(t *testing.T) {
	store := setupTestStore(t)

	if err := store.Migrate(); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	version, err := store.MigrationVersion()
	if err != nil {
		t.Fatalf("MigrationVersion: %v", err)
	}
	if version != len(migrations) {
		t.Errorf("version = %d, want %d", version, len(migrations))
	}
}

func TestSaveAndGetSource(t *testing.T) {
	store := setupTestStore(t)

	src, err := store.SaveSource(models.EnergySource{
		Name:            "Rooftop",
		Location:        "Cachoeiro de Itapemirim - ES",
		NominalCapacity: "6.5",
		Brand:           "Growatt",
		Model:           "MIN 5000TL-X",
		InstallDate:     "2023-05-10",
	})
	if err != nil {
		t.Fatalf("SaveSource: %v", err)
	}
	if src.ID == 0 {
		t.Fatal("SaveSource did not assign an ID")
	}

	got, err := store.GetSource(src.ID)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got == nil {
		t.Fatal("GetSource returned nil")
	}
	if got.Name != "Rooftop" {
		t.Errorf("Name = %q, want Rooftop", got.Name)
	}
	if got.NominalCapacity != "6.5" {
		t.Errorf("NominalCapacity = %q, want 6.5", got.NominalCapacity)
	}
	if got.Location != "Cachoeiro de Itapemirim - ES" {
		t.Errorf("Location = %q", got.Location)
	}
}

func TestSaveSource_Update(t *testing.T) {
	store := setupTestStore(t)

	src, err := store.SaveSource(models.EnergySource{Name: "Original"})
	if err != nil {
		t.Fatal(err)
	}
	src.Name = "Updated"
	if _, err := store.SaveSource(src); err != nil {
		t.Fatalf("SaveSource update: %v", err)
	}

	sources, err := store.ListSources()
	if err != nil {
		t.Fatalf("ListSources: %v", err)
	}
	if len(sources) != 1 {
		t.Fatalf("len(sources) = %d, want 1", len(sources))
	}
	if sources[0].Name != "Updated" {
		t.Errorf("Name = %q, want Updated", sources[0].Name)
	}
}

func TestSaveSource_UpdateMissing(t *testing.T) {
	store := setupTestStore(t)

	if _, err := store.SaveSource(models.EnergySource{ID: 42, Name: "Ghost"}); err == nil {
		t.Error("expected error updating a missing source")
	}
}

func TestGetSource_NotFound(t *testing.T) {
	store := setupTestStore(t)

	got, err := store.GetSource(999)
	if err != nil {
		t.Fatalf("GetSource: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestDeleteSource(t *testing.T) {
	store := setupTestStore(t)

	src, err := store.SaveSource(models.EnergySource{Name: "Doomed"})
	if err != nil {
		t.Fatal(err)
	}

	deleted, err := store.DeleteSource(src.ID)
	if err != nil {
		t.Fatalf("DeleteSource: %v", err)
	}
	if !deleted {
		t.Error("expected deleted = true")
	}

	deleted, err = store.DeleteSource(src.ID)
	if err != nil {
		t.Fatalf("DeleteSource again: %v", err)
	}
	if deleted {
		t.Error("expected deleted = false for missing source")
	}
}

func TestIngestRunLifecycle(t *testing.T) {
	store := setupTestStore(t)

	origin := "/upload/growatt_2024-01.csv"
	run, err := store.StartIngestRun("batch-1", 7, "ftp", &origin)
	if err != nil {
		t.Fatalf("StartIngestRun: %v", err)
	}

	imported, err := store.HasSuccessfulImport(7, "ftp", origin)
	if err != nil {
		t.Fatal(err)
	}
	if imported {
		t.Error("incomplete run should not count as imported")
	}

	run.Success = true
	run.RecordsTotal = sql.NullInt64{Int64: 10, Valid: true}
	run.RecordsAccepted = sql.NullInt64{Int64: 8, Valid: true}
	if err := store.CompleteIngestRun(run); err != nil {
		t.Fatalf("CompleteIngestRun: %v", err)
	}

	imported, err = store.HasSuccessfulImport(7, "ftp", origin)
	if err != nil {
		t.Fatal(err)
	}
	if !imported {
		t.Error("expected origin to be recorded as imported")
	}

	runs, err := store.GetIngestRuns(7, 10)
	if err != nil {
		t.Fatalf("GetIngestRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("len(runs) = %d, want 1", len(runs))
	}
	if runs[0].BatchID != "batch-1" {
		t.Errorf("BatchID = %q, want batch-1", runs[0].BatchID)
	}
	if runs[0].RecordsAccepted.Int64 != 8 {
		t.Errorf("RecordsAccepted = %d, want 8", runs[0].RecordsAccepted.Int64)
	}
	if !runs[0].FinishedAt.Valid {
		t.Error("expected FinishedAt to be set")
	}
}

func TestRawPayloadRoundTripAndDedup(t *testing.T) {
	store := setupTestStore(t)

	payload := []byte(`{"daily":[{"dt":1704103200,"uvi":9.5}]}`)
	id, err := store.StoreRawPayload("openweather", "onecall", 3, "-20.8477,-41.1150", payload)
	if err != nil {
		t.Fatalf("StoreRawPayload: %v", err)
	}
	if id == 0 {
		t.Fatal("expected a payload id")
	}

	dupID, err := store.StoreRawPayload("openweather", "onecall", 3, "-20.8477,-41.1150", payload)
	if err != nil {
		t.Fatalf("StoreRawPayload duplicate: %v", err)
	}
	if dupID != 0 {
		t.Errorf("duplicate id = %d, want 0", dupID)
	}

	got, err := store.getRawPayload(id)
	if err != nil {
		t.Fatalf("getRawPayload: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload = %s, want %s", got, payload)
	}

	n, err := store.CountRawPayloads("openweather")
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}
