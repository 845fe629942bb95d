package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateEvaluation(); err != nil {
		return err
	}
	if err := c.validateCategories(); err != nil {
		return err
	}
	if err := c.validateReference(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func validPolicy(name string) bool {
	switch name {
	case PolicySpacing, PolicyCreation, PolicyShot:
		return true
	}
	return false
}

func validProducer(name string) bool {
	switch name {
	case ProducerPhoton, ProducerFPGA, ProducerNPZ, ProducerGagescope:
		return true
	}
	return false
}

func (c *Config) validateEvaluation() error {
	if !validPolicy(c.Evaluation.DefaultPolicy) {
		return fmt.Errorf("evaluation.default_policy: unsupported value %q", c.Evaluation.DefaultPolicy)
	}
	if c.Evaluation.DeviationRatio < 0 {
		return errors.New("evaluation.deviation_ratio must not be negative")
	}
	if c.Evaluation.AcceptancePercent < 0 || c.Evaluation.AcceptancePercent > 100 {
		return errors.New("evaluation.acceptance_percent must be between 0 and 100")
	}
	if c.Evaluation.CreationTolerance < 0 {
		return errors.New("evaluation.creation_tolerance must not be negative")
	}
	return nil
}

func (c *Config) validateCategories() error {
	if len(c.Categories) == 0 {
		return errors.New("at least one [[categories]] entry is required")
	}
	names := make(map[string]struct{}, len(c.Categories))
	owners := make(map[string]string)
	for i, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("categories[%d].name must be set", i)
		}
		if _, dup := names[cat.Name]; dup {
			return fmt.Errorf("categories[%d]: duplicate category %q", i, cat.Name)
		}
		names[cat.Name] = struct{}{}
		if !validProducer(cat.Producer) {
			return fmt.Errorf("categories.%s.producer: unsupported value %q", cat.Name, cat.Producer)
		}
		if cat.Policy != "" && !validPolicy(cat.Policy) {
			return fmt.Errorf("categories.%s.policy: unsupported value %q", cat.Name, cat.Policy)
		}
		if len(cat.Extensions) == 0 {
			return fmt.Errorf("categories.%s.extensions must list at least one extension", cat.Name)
		}
		for _, ext := range cat.Extensions {
			if owner, taken := owners[ext]; taken {
				return fmt.Errorf("extension %s registered by both %q and %q", ext, owner, cat.Name)
			}
			owners[ext] = cat.Name
		}
	}
	return nil
}

func (c *Config) validateReference() error {
	counts := c.Reference.CountsPath != ""
	frames := c.Reference.FramesPath != ""
	if counts != frames {
		return errors.New("reference.counts_path and reference.frames_path must be set together")
	}
	if c.Reference.TimestampsPath != "" && !counts {
		return errors.New("reference.timestamps_path requires counts_path and frames_path")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "http://") && !strings.HasPrefix(topic, "https://") {
		return fmt.Errorf("notifications.ntfy_topic must be an http(s) URL, got %q", topic)
	}
	if c.Notifications.StreakMilestone < 0 {
		return fmt.Errorf("notifications.streak_milestone must be >= 0, got %d", c.Notifications.StreakMilestone)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	if c.Logging.RetentionRuns < 0 {
		return fmt.Errorf("logging.retention_runs must be >= 0, got %d", c.Logging.RetentionRuns)
	}
	return nil
}
