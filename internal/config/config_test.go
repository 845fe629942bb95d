package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"labwatch/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("LABWATCH_WATCH_DIR", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantWatch := filepath.Join(tempHome, "labwatch", "input_files")
	if cfg.Paths.WatchDir != wantWatch {
		t.Fatalf("unexpected watch dir: got %q want %q", cfg.Paths.WatchDir, wantWatch)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "labwatch") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.DebounceDelay().Milliseconds() != 500 {
		t.Fatalf("unexpected debounce delay: %v", cfg.DebounceDelay())
	}
	if cfg.PollTimeout().Milliseconds() != 1000 {
		t.Fatalf("unexpected poll timeout: %v", cfg.PollTimeout())
	}
	if cfg.Evaluation.DefaultPolicy != config.PolicySpacing {
		t.Fatalf("unexpected default policy: %q", cfg.Evaluation.DefaultPolicy)
	}
	if len(cfg.Categories) != 4 {
		t.Fatalf("expected 4 default categories, got %d", len(cfg.Categories))
	}
	if cfg.Notifications.NtfyTopic != "" || !cfg.Notifications.NotifyRejections {
		t.Fatalf("unexpected notification defaults: %+v", cfg.Notifications)
	}
	if cfg.NotificationTimeout().Seconds() != 10 {
		t.Fatalf("unexpected notification timeout: %v", cfg.NotificationTimeout())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.WatchDir, cfg.Paths.StateDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPathReplacesCategories(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "labwatch.toml")
	content := `
[paths]
watch_dir = "` + filepath.Join(tempDir, "in") + `"
state_dir = "` + filepath.Join(tempDir, "state") + `"

[evaluation]
default_policy = "Creation"

[[categories]]
name = "scope"
extensions = ["H5", ".npz"]
producer = "npz"
policy = "shot"
spectrum = true
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected custom config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Evaluation.DefaultPolicy != config.PolicyCreation {
		t.Fatalf("expected normalized default policy, got %q", cfg.Evaluation.DefaultPolicy)
	}
	want := []config.Category{{
		Name:       "scope",
		Extensions: []string{".h5", ".npz"},
		Producer:   config.ProducerNPZ,
		Policy:     config.PolicyShot,
		Spectrum:   true,
	}}
	if diff := cmp.Diff(want, cfg.Categories); diff != "" {
		t.Fatalf("categories mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.PolicyFor("scope"); got != config.PolicyShot {
		t.Fatalf("PolicyFor(scope) = %q", got)
	}
	if got := cfg.PolicyFor("other"); got != config.PolicyCreation {
		t.Fatalf("PolicyFor(other) = %q", got)
	}
}

func TestWatchDirEnvironmentOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	override := filepath.Join(t.TempDir(), "drop")
	t.Setenv("LABWATCH_WATCH_DIR", override)

	cfg, _, _, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.WatchDir != override {
		t.Fatalf("expected env override %q, got %q", override, cfg.Paths.WatchDir)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "unknown policy",
			mutate: func(c *config.Config) { c.Evaluation.DefaultPolicy = "vibes" },
			want:   "default_policy",
		},
		{
			name:   "acceptance out of range",
			mutate: func(c *config.Config) { c.Evaluation.AcceptancePercent = 120 },
			want:   "acceptance_percent",
		},
		{
			name: "duplicate extension",
			mutate: func(c *config.Config) {
				c.Categories = append(c.Categories, config.Category{Name: "dup", Extensions: []string{".bin"}, Producer: config.ProducerPhoton})
			},
			want: "registered by both",
		},
		{
			name:   "unknown producer",
			mutate: func(c *config.Config) { c.Categories[0].Producer = "scipy" },
			want:   "producer",
		},
		{
			name:   "counts without frames",
			mutate: func(c *config.Config) { c.Reference.CountsPath = "/tmp/counts.npy" },
			want:   "must be set together",
		},
		{
			name:   "ntfy topic without scheme",
			mutate: func(c *config.Config) { c.Notifications.NtfyTopic = "ntfy.sh/lab" },
			want:   "ntfy_topic",
		},
		{
			name:   "negative streak milestone",
			mutate: func(c *config.Config) { c.Notifications.StreakMilestone = -1 },
			want:   "streak_milestone",
		},
		{
			name:   "bad log format",
			mutate: func(c *config.Config) { c.Logging.Format = "xml" },
			want:   "logging.format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	t.Setenv("LABWATCH_WATCH_DIR", "")
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists {
		t.Fatal("expected sample config to exist")
	}
	if len(cfg.Categories) != 4 {
		t.Fatalf("expected sample to declare 4 categories, got %d", len(cfg.Categories))
	}
}
