package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapsheet/internal/cli/output"
	"github.com/leapstack-labs/leapsheet/internal/state"
)

// NewRunsCommand creates the runs command.
func NewRunsCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Show compile run history",
		Long:  `List recent compilations recorded in the run-history database.`,
		Example: `  # Show the last 20 runs
  leapsheet runs --state .leapsheet/state.db

  # Show more history as JSON
  leapsheet runs --state .leapsheet/state.db --limit 100 --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRuns(cmd, limit)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	return cmd
}

func runRuns(cmd *cobra.Command, limit int) error {
	cfg := GetConfig(cmd.Context())
	if cfg.StatePath == "" {
		return fmt.Errorf("no state database configured; pass --state or set state_path")
	}

	store, err := state.Open(cfg.StatePath, GetLogger(cmd.Context()))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}

	r := GetRenderer(cmd.Context())
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runs)
	}

	var rows [][]string
	for _, run := range runs {
		detail := fmt.Sprintf("%d cells, %d rules, %d warnings", run.Cells, run.Rules, run.Warnings)
		if run.Status == state.StatusFailed {
			detail = run.Error
		}
		rows = append(rows, []string{
			run.StartedAt.Local().Format(time.DateTime),
			run.Workbook,
			run.Status,
			run.Duration.Round(time.Millisecond).String(),
			detail,
		})
	}
	r.Table([]string{"Started", "Workbook", "Status", "Duration", "Detail"}, rows)
	return nil
}
