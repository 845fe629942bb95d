package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"labwatch/internal/results"
)

type historyRow struct {
	ID               int64     `json:"id"`
	RunID            string    `json:"run_id"`
	ExperimentNumber int       `json:"experiment_number"`
	FileName         string    `json:"file_name"`
	Category         string    `json:"category"`
	Accepted         bool      `json:"accepted"`
	CumulativeValue  int       `json:"cumulative_value"`
	ProcessorType    string    `json:"processor_type"`
	Summary          string    `json:"summary_statistics"`
	RecordedAt       time.Time `json:"recorded_at"`
}

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		limit    int
		runID    string
		rejected bool
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded results, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.ResultsPath()); errors.Is(err, os.ErrNotExist) {
				fmt.Fprintln(cmd.OutOrStdout(), "No results recorded yet")
				return nil
			}
			store, err := results.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			rows, err := store.List(cmd.Context(), results.ListOptions{Limit: limit, RunID: runID, RejectedOnly: rejected})
			if err != nil {
				return err
			}
			if asJSON {
				out := make([]historyRow, 0, len(rows))
				for _, r := range rows {
					out = append(out, historyRow{
						ID:               r.ID,
						RunID:            r.RunID,
						ExperimentNumber: r.ExperimentNumber,
						FileName:         r.FileName,
						Category:         r.Category,
						Accepted:         r.Accepted,
						CumulativeValue:  r.CumulativeValue,
						ProcessorType:    r.ProcessorType,
						Summary:          r.Summary,
						RecordedAt:       r.RecordedAt,
					})
				}
				return writeJSON(cmd, out)
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No matching results")
				return nil
			}
			totals, err := store.Totals(cmd.Context(), runID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderHistory(rows))
			fmt.Fprintf(cmd.OutOrStdout(), "%d recorded, %d accepted\n", totals.Total, totals.Accepted)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum rows to show (0 for all)")
	cmd.Flags().StringVar(&runID, "run", "", "Only show results from this daemon run")
	cmd.Flags().BoolVar(&rejected, "rejected", false, "Only show rejected files")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print rows as JSON")
	return cmd
}

func renderHistory(rows []results.Row) string {
	headers := []string{"#", "Recorded", "File", "Category", "Verdict", "Cumulative", "Summary"}
	aligns := []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft}
	body := make([][]string, 0, len(rows))
	for _, r := range rows {
		body = append(body, []string{
			fmt.Sprintf("%d", r.ExperimentNumber),
			r.RecordedAt.Local().Format(time.DateTime),
			r.FileName,
			categoryLabel(r.Category),
			verdict(r.Accepted),
			fmt.Sprintf("%d", r.CumulativeValue),
			r.Summary,
		})
	}
	return renderTable("", headers, body, aligns)
}
