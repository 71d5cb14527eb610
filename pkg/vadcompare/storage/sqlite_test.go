package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/himanishpuri/vadcompare/pkg/models"
)

// Helper function to create a temporary test database
func setupTestDB(t *testing.T) (*DBClient, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.sqlite3")
	client, err := NewDBClientWithPath(dbPath)
	if err != nil {
		t.Fatalf("Failed to create test DB client: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
	})

	return client, dbPath
}

func sampleRun(audio string, created time.Time) models.Run {
	return models.Run{
		AudioPath:   audio,
		SourceA:     "go_output.txt",
		SourceB:     "python_output.txt",
		FrameSize:   0.01,
		Frames:      1000,
		BothVoice:   600,
		BothSilence: 300,
		AOnly:       80,
		BOnly:       20,
		PaddedB:     12,
		CreatedAt:   created,
	}
}

func TestNewDBClientWithPath(t *testing.T) {
	client, dbPath := setupTestDB(t)

	if client.DB == nil || client.db == nil {
		t.Fatal("Expected non-nil database handles")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("Database file was not created at %s", dbPath)
	}
}

func TestNewDBClientCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "runs.db")
	client, err := NewDBClientWithPath(path)
	if err != nil {
		t.Fatalf("Failed to create client in nested dir: %v", err)
	}
	defer client.Close()

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected database at %s: %v", path, err)
	}
}

func TestNewDBClientEmptyPath(t *testing.T) {
	if _, err := NewDBClientWithPath(""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestRecordAndListRuns(t *testing.T) {
	client, _ := setupTestDB(t)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	firstID, err := client.RecordRun(sampleRun("first.wav", base))
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}
	if len(firstID) != 36 {
		t.Errorf("Expected UUID, got %q", firstID)
	}
	if _, err := client.RecordRun(sampleRun("second.wav", base.Add(time.Minute))); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	runs, err := client.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}
	if runs[0].AudioPath != "second.wav" {
		t.Errorf("Expected newest run first, got %s", runs[0].AudioPath)
	}
	if runs[1].AOnly != 80 || runs[1].PaddedB != 12 || runs[1].FrameSize != 0.01 {
		t.Errorf("Run fields not preserved: %+v", runs[1])
	}

	limited, err := client.ListRuns(1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Expected 1 run with limit, got %d (%v)", len(limited), err)
	}
}

func TestGetAndDeleteRun(t *testing.T) {
	client, _ := setupTestDB(t)

	id, err := client.RecordRun(sampleRun("clip.wav", time.Now()))
	if err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	run, err := client.GetRun(id)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if run.ID != id || run.SourceA != "go_output.txt" {
		t.Errorf("Unexpected run %+v", run)
	}

	if err := client.DeleteRun(id); err != nil {
		t.Fatalf("DeleteRun failed: %v", err)
	}
	if _, err := client.GetRun(id); err == nil {
		t.Error("Expected error after deletion")
	}
}

func TestNilClient(t *testing.T) {
	var client *DBClient
	if _, err := client.RecordRun(models.Run{}); err == nil {
		t.Error("Expected error from nil client")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close on nil client should be a no-op, got %v", err)
	}
}
