package daemonrun

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"labwatch/internal/logging"
	"labwatch/internal/testsupport"
)

func TestCleanupOldLogsKeepsNewest(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"labwatch-20260101T000000.000Z.log",
		"labwatch-20260102T000000.000Z.log",
		"labwatch-20260103T000000.000Z.log",
		"labwatch-20260104T000000.000Z.log",
		"labwatch.log",
	}
	for _, name := range names {
		testsupport.WriteFile(t, filepath.Join(dir, name), []byte("x"))
	}
	active := filepath.Join(dir, names[0])

	cleanupOldLogs(logging.NewNop(), dir, active, 2)

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name())
	}
	sort.Strings(got)
	want := []string{names[0], names[2], names[3], names[4]}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("remaining logs mismatch (-want +got):\n%s", diff)
	}
}

func TestCleanupOldLogsZeroKeepsAll(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"labwatch-a.log", "labwatch-b.log"} {
		testsupport.WriteFile(t, filepath.Join(dir, name), []byte("x"))
	}
	cleanupOldLogs(logging.NewNop(), dir, "", 0)
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both logs kept, got %d", len(entries))
	}
}

func TestPIDFileRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := writePIDFile(filepath.Join(cfg.Paths.StateDir, "labwatch.pid")); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	pid, err := ReadPID(cfg)
	if err != nil {
		t.Fatalf("ReadPID: %v", err)
	}
	if pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestEnsureCurrentLogPointer(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "labwatch-1.log")
	testsupport.WriteFile(t, target, []byte("run one"))
	if err := ensureCurrentLogPointer(dir, target); err != nil {
		t.Fatalf("ensureCurrentLogPointer: %v", err)
	}
	second := filepath.Join(dir, "labwatch-2.log")
	testsupport.WriteFile(t, second, []byte("run two"))
	if err := ensureCurrentLogPointer(dir, second); err != nil {
		t.Fatalf("ensureCurrentLogPointer: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "labwatch.log"))
	if err != nil {
		t.Fatalf("read pointer: %v", err)
	}
	if string(data) != "run two" {
		t.Fatalf("pointer resolves to %q", data)
	}
}
