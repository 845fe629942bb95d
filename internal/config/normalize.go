package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeReference(); err != nil {
		return err
	}
	c.normalizeTiming()
	c.normalizeEvaluation()
	c.normalizeCategories()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("LABWATCH_WATCH_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.WatchDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		c.Paths.WatchDir = defaultWatchDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	var err error
	if c.Paths.WatchDir, err = expandPath(strings.TrimSpace(c.Paths.WatchDir)); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeReference() error {
	var err error
	if c.Reference.CountsPath, err = expandPath(strings.TrimSpace(c.Reference.CountsPath)); err != nil {
		return fmt.Errorf("reference.counts_path: %w", err)
	}
	if c.Reference.FramesPath, err = expandPath(strings.TrimSpace(c.Reference.FramesPath)); err != nil {
		return fmt.Errorf("reference.frames_path: %w", err)
	}
	if c.Reference.TimestampsPath, err = expandPath(strings.TrimSpace(c.Reference.TimestampsPath)); err != nil {
		return fmt.Errorf("reference.timestamps_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeTiming() {
	if c.Watcher.DebounceMillis <= 0 {
		c.Watcher.DebounceMillis = defaultDebounceMillis
	}
	if c.Dispatcher.PollTimeoutMillis <= 0 {
		c.Dispatcher.PollTimeoutMillis = defaultPollTimeoutMillis
	}
	if c.Dispatcher.SinkBuffer <= 0 {
		c.Dispatcher.SinkBuffer = defaultSinkBuffer
	}
}

func (c *Config) normalizeEvaluation() {
	c.Evaluation.DefaultPolicy = strings.ToLower(strings.TrimSpace(c.Evaluation.DefaultPolicy))
	if c.Evaluation.DefaultPolicy == "" {
		c.Evaluation.DefaultPolicy = PolicySpacing
	}
	if c.Evaluation.DeviationRatio == 0 {
		c.Evaluation.DeviationRatio = defaultDeviationRatio
	}
	if c.Evaluation.AcceptancePercent == 0 {
		c.Evaluation.AcceptancePercent = defaultAcceptancePercent
	}
	if c.Evaluation.CreationTolerance == 0 {
		c.Evaluation.CreationTolerance = defaultCreationTolerance
	}
}

func (c *Config) normalizeCategories() {
	for i := range c.Categories {
		cat := &c.Categories[i]
		cat.Name = strings.TrimSpace(cat.Name)
		cat.Producer = strings.ToLower(strings.TrimSpace(cat.Producer))
		cat.Policy = strings.ToLower(strings.TrimSpace(cat.Policy))
		exts := make([]string, 0, len(cat.Extensions))
		for _, ext := range cat.Extensions {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			exts = append(exts, ext)
		}
		cat.Extensions = exts
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSecs <= 0 {
		c.Notifications.RequestTimeoutSecs = defaultNtfyTimeoutSecs
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
