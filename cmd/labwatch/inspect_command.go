package main

import (
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"labwatch/internal/evaluate"
	"labwatch/internal/logging"
	"labwatch/internal/pipeline"
	"labwatch/internal/reference"
)

// inspectOutput is the JSON form of an offline evaluation.
type inspectOutput struct {
	Path     string         `json:"path"`
	Category string         `json:"category"`
	Policy   string         `json:"policy"`
	Artifact string         `json:"artifact"`
	Arrays   map[string]int `json:"arrays"`
	Accepted bool           `json:"accepted"`
	Summary  string         `json:"summary"`
	Stats    evaluate.Stats `json:"stats"`
	Spectrum *spectrumPeak  `json:"spectrum,omitempty"`
}

type spectrumPeak struct {
	Bins      int     `json:"bins"`
	PeakHz    float64 `json:"peak_hz"`
	Magnitude float64 `json:"peak_magnitude"`
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <path>",
		Short: "Evaluate one file offline with a fresh score",
		Long: "Produces, evaluates and estimates the spectrum of a single file without a daemon.\n" +
			"History-dependent policies start empty, so the creation-time policy always accepts.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolve path: %w", err)
			}
			logger, err := logging.New(logging.Options{
				Level:   "warn",
				Format:  cfg.Logging.Format,
				Writers: []io.Writer{cmd.ErrOrStderr()},
			})
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			ref := reference.Load(reference.PathsFromConfig(cfg.Reference), logger)

			report, err := pipeline.Inspect(cmd.Context(), cfg, ref, path, logger)
			if err != nil {
				return err
			}
			out := toInspectOutput(report)
			if asJSON {
				return writeJSON(cmd, out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderInspect(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}

func toInspectOutput(report pipeline.Report) inspectOutput {
	out := inspectOutput{
		Path:     report.Path,
		Category: report.Category,
		Policy:   report.Policy,
		Artifact: report.Artifact.Name(),
		Arrays:   make(map[string]int),
		Accepted: report.Result.Accepted,
		Summary:  evaluate.Summary(report.Result.Stats),
		Stats:    report.Result.Stats,
	}
	for _, key := range report.Artifact.Keys() {
		out.Arrays[key] = report.Artifact.Len(key)
	}
	if report.Spectrum != nil {
		peak := &spectrumPeak{Bins: report.Spectrum.Len()}
		if freq, mag, ok := report.Spectrum.Peak(); ok {
			peak.PeakHz = freq
			peak.Magnitude = mag
		}
		out.Spectrum = peak
	}
	return out
}

func renderInspect(out inspectOutput) string {
	rows := [][]string{
		{"File", filepath.Base(out.Path)},
		{"Category", categoryLabel(out.Category)},
		{"Policy", out.Policy},
		{"Artifact", out.Artifact},
		{"Verdict", verdict(out.Accepted)},
		{"Summary", out.Summary},
	}
	for _, e := range out.Stats.Entries() {
		rows = append(rows, []string{e.Key, formatStat(e.Value)})
	}
	var arrays []string
	for key, n := range out.Arrays {
		arrays = append(arrays, fmt.Sprintf("%s[%d]", key, n))
	}
	slices.Sort(arrays)
	rows = append(rows, []string{"Arrays", strings.Join(arrays, " ")})
	if out.Spectrum != nil {
		rows = append(rows,
			[]string{"Spectrum bins", fmt.Sprintf("%d", out.Spectrum.Bins)},
			[]string{"Peak", fmt.Sprintf("%.4g Hz (%.4g)", out.Spectrum.PeakHz, out.Spectrum.Magnitude)},
		)
	}
	return renderTable("Inspect", []string{"Field", "Value"}, rows, nil)
}

func formatStat(value any) string {
	switch v := value.(type) {
	case float64:
		return fmt.Sprintf("%.4g", v)
	case float32:
		return fmt.Sprintf("%.4g", v)
	case nil:
		return "-"
	default:
		return fmt.Sprint(v)
	}
}
