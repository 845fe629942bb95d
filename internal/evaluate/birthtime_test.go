package evaluate

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileCreationTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run_00001.bin")
	if err := os.WriteFile(path, []byte{1}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	created, err := FileCreationTime(path)
	if err != nil {
		t.Fatalf("FileCreationTime: %v", err)
	}
	if since := time.Since(created); since < -time.Minute || since > time.Minute {
		t.Fatalf("creation time %v is not recent", created)
	}
	if _, err := FileCreationTime(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
