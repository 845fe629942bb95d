package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"labwatch/internal/config"
	"labwatch/internal/ipc"
	"labwatch/internal/testsupport"
)

func TestStatusCommandReportsRunningDaemon(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"status"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "== Daemon ==")
	requireContains(t, out, "running (pid")
	requireContains(t, out, env.cfg.Paths.WatchDir)
	requireContains(t, out, "Total processed:")
}

func TestStatusCommandWithoutDaemon(t *testing.T) {
	_, configPath := setupCLIConfig(t)
	socket := filepath.Join(t.TempDir(), "missing.sock")

	_, _, err := runCLI(t, []string{"status"}, socket, configPath)
	if err == nil {
		t.Fatal("expected dial error")
	}
	requireContains(t, err.Error(), "labwatch run")
}

func TestAddCommandQueuesAndScores(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(env.baseDir, "manual", "scan_00001.npz")
	testsupport.WriteTimestampsNPZ(t, path, testsupport.UniformTimestamps(16, 0.25))

	out, _, err := runCLI(t, []string{"add", path}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	requireContains(t, out, "Queued scan_00001.npz as Artifact")

	waitFor(t, 5*time.Second, func() bool {
		return env.daemon.Status().Pipeline.Score.TotalProcessed == 1
	})

	out, _, err = runCLI(t, []string{"status", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("status --json: %v", err)
	}
	var status ipc.StatusResponse
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if status.TotalProcessed != 1 || status.Streak != 1 {
		t.Fatalf("unexpected score in status: %+v", status)
	}
	if status.LastFile == nil || !status.LastFile.Accepted {
		t.Fatalf("expected accepted last file, got %+v", status.LastFile)
	}
}

func TestAddCommandRejectsDirectory(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"add", env.cfg.Paths.WatchDir}, env.socketPath, env.configPath)
	if err == nil {
		t.Fatal("expected error for directory")
	}
	requireContains(t, err.Error(), "is a directory")
}

func TestHistoryCommandListsRecordedResults(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(env.baseDir, "manual", "scan_00004.npz")
	testsupport.WriteTimestampsNPZ(t, path, testsupport.UniformTimestamps(16, 0.25))
	if _, err := env.daemon.AddFile(context.Background(), path); err != nil {
		t.Fatalf("AddFile: %v", err)
	}

	store := testsupport.MustOpenResults(t, env.cfg)
	waitFor(t, 5*time.Second, func() bool {
		totals, err := store.Totals(context.Background(), "")
		return err == nil && totals.Total == 1
	})

	out, _, err := runCLI(t, []string{"history"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "scan_00004.npz")
	requireContains(t, out, "Artifact")
	requireContains(t, out, "1 recorded, 1 accepted")

	out, _, err = runCLI(t, []string{"history", "--rejected"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history --rejected: %v", err)
	}
	requireContains(t, out, "No matching results")

	out, _, err = runCLI(t, []string{"history", "--json"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	var rows []historyRow
	if err := json.Unmarshal([]byte(out), &rows); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(rows) != 1 || rows[0].ExperimentNumber != 1 || rows[0].ProcessorType != config.ProducerNPZ {
		t.Fatalf("unexpected history rows: %+v", rows)
	}
}

func TestInspectCommandEvaluatesOffline(t *testing.T) {
	_, configPath := setupCLIConfig(t)
	path := filepath.Join(t.TempDir(), "probe_00003.npz")
	testsupport.WriteTimestampsNPZ(t, path, testsupport.UniformTimestamps(32, 0.5))

	out, _, err := runCLI(t, []string{"inspect", path}, "", configPath)
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	requireContains(t, out, "probe_00003.npz")
	requireContains(t, out, "accepted")
	requireContains(t, out, "Space Correct")

	out, _, err = runCLI(t, []string{"inspect", "--json", path}, "", configPath)
	if err != nil {
		t.Fatalf("inspect --json: %v", err)
	}
	var report inspectOutput
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode inspect: %v", err)
	}
	if !report.Accepted || report.Policy != config.PolicySpacing || report.Category != "artifact" {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Arrays["timestamps"] != 32 {
		t.Fatalf("expected 32 timestamps, got %v", report.Arrays)
	}
}

func TestInspectCommandRejectsUnknownExtension(t *testing.T) {
	_, configPath := setupCLIConfig(t)
	path := filepath.Join(t.TempDir(), "notes.md")
	testsupport.WriteFile(t, path, []byte("hello"))

	if _, _, err := runCLI(t, []string{"inspect", path}, "", configPath); err == nil {
		t.Fatal("expected error for unregistered extension")
	}
}

func TestRenderStatusWithoutColor(t *testing.T) {
	status := &ipc.StatusResponse{
		Running:        true,
		PID:            42,
		Watching:       true,
		WatchDir:       "/data/in",
		Extensions:     []string{".bin", ".npz"},
		TotalProcessed: 7,
		Streak:         3,
		Dropped:        1,
		LastFile: &ipc.LastFile{
			Path:     "/data/in/shot_00012.h5",
			Artifact: "processed_shot_00012.npz",
			Category: "gagescope",
			Accepted: false,
		},
		LastError: "/data/in/bad.bin: truncated",
	}
	out := strings.Join(renderStatus(status, false), "\n")
	for _, want := range []string{
		"[OK] running (pid 42)",
		"Cumulative value:  3",
		"[WARN] 1",
		"Gagescope:",
		"shot_00012.h5 rejected",
		"[ERROR] /data/in/bad.bin: truncated",
	} {
		requireContains(t, out, want)
	}
	if strings.Contains(out, ansiReset) {
		t.Fatal("expected no ANSI codes without colour")
	}
}

func TestConfigInitShowAndValidate(t *testing.T) {
	_, configPath := setupCLIConfig(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, "", configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "gagescope")

	out, _, err = runCLI(t, []string{"config", "show"}, "", configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "watch_dir")
	requireContains(t, out, "debounce_ms = 20")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting")
	}
}

func TestAddCommandCopyIntoWatchDir(t *testing.T) {
	env := setupCLITestEnv(t)

	path := filepath.Join(env.baseDir, "manual", "copy_00009.npz")
	testsupport.WriteTimestampsNPZ(t, path, testsupport.UniformTimestamps(16, 0.25))

	out, _, err := runCLI(t, []string{"add", "--copy", path}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("add --copy: %v", err)
	}
	requireContains(t, out, "Copied copy_00009.npz")
	if _, err := os.Stat(filepath.Join(env.cfg.Paths.WatchDir, "copy_00009.npz")); err != nil {
		t.Fatalf("expected copy in watch dir: %v", err)
	}

	waitFor(t, 5*time.Second, func() bool {
		return env.daemon.Status().Pipeline.Score.TotalProcessed == 1
	})
}

func TestCheckCommand(t *testing.T) {
	cfg, configPath := setupCLIConfig(t)

	out, _, err := runCLI(t, []string{"check"}, "", configPath)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	requireContains(t, out, "== Preflight ==")
	requireContains(t, out, "Watch directory:")
	requireContains(t, out, cfg.Paths.WatchDir)

	missing := filepath.Join(t.TempDir(), "counts.npy")
	content := fmt.Sprintf("[paths]\nwatch_dir = %q\nstate_dir = %q\n\n[reference]\ncounts_path = %q\nframes_path = %q\n",
		cfg.Paths.WatchDir, cfg.Paths.StateDir, missing, missing)
	badConfig := filepath.Join(t.TempDir(), "bad.toml")
	testsupport.WriteFile(t, badConfig, []byte(content))

	out, _, err = runCLI(t, []string{"check"}, "", badConfig)
	if err == nil {
		t.Fatal("expected failing check to return an error")
	}
	requireContains(t, out, "[ERROR]")
	requireContains(t, err.Error(), "checks failed")
}

func TestLogsCommandPrintsTail(t *testing.T) {
	cfg, configPath := setupCLIConfig(t)

	out, _, err := runCLI(t, []string{"logs"}, "", configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "No log at")

	testsupport.WriteFile(t, filepath.Join(cfg.LogDir(), "labwatch.log"), []byte("one\ntwo\nthree\n"))
	out, _, err = runCLI(t, []string{"logs", "-n", "2"}, "", configPath)
	if err != nil {
		t.Fatalf("logs -n 2: %v", err)
	}
	if out != "two\nthree\n" {
		t.Fatalf("unexpected logs output %q", out)
	}
}

func TestNotifyTestCommand(t *testing.T) {
	cfg, configPath := setupCLIConfig(t)

	out, _, err := runCLI(t, []string{"notify-test"}, "", configPath)
	if err != nil {
		t.Fatalf("notify-test without topic: %v", err)
	}
	requireContains(t, out, "disabled")

	titles := make(chan string, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		titles <- r.Header.Get("Title")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	content := fmt.Sprintf("[paths]\nwatch_dir = %q\nstate_dir = %q\n\n[notifications]\nntfy_topic = %q\n",
		cfg.Paths.WatchDir, cfg.Paths.StateDir, server.URL)
	withTopic := filepath.Join(t.TempDir(), "ntfy.toml")
	testsupport.WriteFile(t, withTopic, []byte(content))

	out, _, err = runCLI(t, []string{"notify-test"}, "", withTopic)
	if err != nil {
		t.Fatalf("notify-test: %v", err)
	}
	requireContains(t, out, "Test notification sent")
	if len(titles) != 1 {
		t.Fatalf("expected one request, got %d", len(titles))
	}
	if got := <-titles; got != "labwatch - Test" {
		t.Fatalf("unexpected title %q", got)
	}
}
