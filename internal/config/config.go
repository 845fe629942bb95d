package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir string `toml:"watch_dir"`
	StateDir string `toml:"state_dir"`
}

// Watcher contains file-system watcher settings.
type Watcher struct {
	DebounceMillis int `toml:"debounce_ms"`
}

// Dispatcher contains worker loop timing.
type Dispatcher struct {
	PollTimeoutMillis int `toml:"poll_timeout_ms"`
	SinkBuffer        int `toml:"sink_buffer"`
}

// Evaluation contains acceptance policy selection and thresholds.
type Evaluation struct {
	DefaultPolicy     string  `toml:"default_policy"`
	DeviationRatio    float64 `toml:"deviation_ratio"`
	AcceptancePercent float64 `toml:"acceptance_percent"`
	CreationTolerance float64 `toml:"creation_tolerance"`
}

// Category binds file extensions to a producer and acceptance policy.
// An empty Policy falls back to Evaluation.DefaultPolicy.
type Category struct {
	Name       string   `toml:"name"`
	Extensions []string `toml:"extensions"`
	Producer   string   `toml:"producer"`
	Policy     string   `toml:"policy"`
	Spectrum   bool     `toml:"spectrum"`
}

// Reference locates the optional reference dataset used by the shot policy.
type Reference struct {
	CountsPath     string `toml:"counts_path"`
	FramesPath     string `toml:"frames_path"`
	TimestampsPath string `toml:"timestamps_path"`
}

// Results controls the SQLite result history.
type Results struct {
	Enabled bool `toml:"enabled"`
}

// Notifications configures ntfy push messages for rejected files and streak
// milestones. An empty NtfyTopic disables them.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic"`
	RequestTimeoutSecs int    `toml:"request_timeout"`
	NotifyRejections   bool   `toml:"notify_rejections"`
	// StreakMilestone sends a message every time the streak reaches a
	// multiple of this value; zero disables it.
	StreakMilestone int `toml:"streak_milestone"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	// RetentionRuns is the number of per-run daemon logs kept; zero keeps all.
	RetentionRuns int `toml:"retention_runs"`
}

// Config encapsulates all configuration values for labwatch.
//
// Configuration sections by subsystem:
//   - Paths: watched directory and daemon state directory
//   - Watcher: debounce delay before a created file is queued
//   - Dispatcher: worker poll bound and sink buffer size
//   - Evaluation: default acceptance policy and its thresholds
//   - Categories: extension registry, producer and policy per category
//   - Reference: reference dataset files for shot correlation
//   - Results: SQLite result history
//   - Notifications: ntfy push messages
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Watcher    Watcher    `toml:"watcher"`
	Dispatcher Dispatcher `toml:"dispatcher"`
	Evaluation Evaluation `toml:"evaluation"`
	Categories []Category `toml:"categories"`
	Reference  Reference  `toml:"reference"`
	Results       Results       `toml:"results"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/labwatch/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// A file that declares [[categories]] replaces the default registry.
		cfg.Categories = nil
		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
		if len(cfg.Categories) == 0 {
			cfg.Categories = defaultCategories()
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("labwatch.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the watched directory and the daemon state directory.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.WatchDir, c.Paths.StateDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// DebounceDelay returns the watcher's enqueue delay.
func (c *Config) DebounceDelay() time.Duration {
	return time.Duration(c.Watcher.DebounceMillis) * time.Millisecond
}

// PollTimeout returns the dispatcher's bounded pop wait.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Dispatcher.PollTimeoutMillis) * time.Millisecond
}

// PolicyFor returns the effective acceptance policy name for a category.
func (c *Config) PolicyFor(category string) string {
	for _, cat := range c.Categories {
		if cat.Name == category && cat.Policy != "" {
			return cat.Policy
		}
	}
	return c.Evaluation.DefaultPolicy
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "labwatch.lock")
}

// SocketPath returns the daemon IPC socket.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.StateDir, "labwatch.sock")
}

// ResultsPath returns the SQLite result history database.
func (c *Config) ResultsPath() string {
	return filepath.Join(c.Paths.StateDir, "results.db")
}

// NotificationTimeout returns the per-request ntfy timeout.
func (c *Config) NotificationTimeout() time.Duration {
	return time.Duration(c.Notifications.RequestTimeoutSecs) * time.Second
}

// LogDir returns the directory holding per-run daemon logs.
func (c *Config) LogDir() string {
	return filepath.Join(c.Paths.StateDir, "logs")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}
