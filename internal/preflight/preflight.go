package preflight

import (
	"context"

	"labwatch/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Watch directory", cfg.Paths.WatchDir),
		CheckDirectoryAccess("State directory", cfg.Paths.StateDir),
	}

	ref := cfg.Reference
	if ref.CountsPath != "" {
		results = append(results, CheckReadableFile("Reference counts", ref.CountsPath))
	}
	if ref.FramesPath != "" {
		results = append(results, CheckReadableFile("Reference frames", ref.FramesPath))
	}
	if ref.TimestampsPath != "" {
		results = append(results, CheckReadableFile("Reference timestamps", ref.TimestampsPath))
	}

	if cfg.Results.Enabled {
		results = append(results, CheckResultsStore(ctx, cfg))
	}
	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}
