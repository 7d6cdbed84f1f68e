package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"tempsweep/internal/config"
	"tempsweep/internal/database"
	"tempsweep/internal/disk"
)

var errNoHistoryDB = errors.New("no history database: pass --history-db or set history_db in --config")

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded run summaries",
		Example: `  tempsweep history --history-db ~/.local/state/tempsweep.db
  tempsweep history --history-db runs.db --stats 30
  tempsweep history --history-db runs.db --purge-days 90`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}
	cmd.Flags().Int("limit", 20, "Show the N most recent runs")
	cmd.Flags().Int("stats", 0, "Show totals over the last N days instead of individual runs")
	cmd.Flags().Int("purge-days", 0, "Delete runs older than N days, then exit")
	cmd.Flags().Bool("json", false, "Output in JSON format")
	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	dbPath, err := historyPath(cmd)
	if err != nil {
		return err
	}

	db, err := database.NewHistoryDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	out := cmd.OutOrStdout()
	asJSON, _ := cmd.Flags().GetBool("json")

	if days, _ := cmd.Flags().GetInt("purge-days"); days > 0 {
		n, err := db.DeleteOldRuns(days)
		if err != nil {
			return fmt.Errorf("purge history: %w", err)
		}
		fmt.Fprintf(out, "Deleted %d runs older than %d days\n", n, days) //nolint:errcheck // best-effort stdout write
		return nil
	}

	if days, _ := cmd.Flags().GetInt("stats"); days > 0 {
		stats, err := db.GetRunStats(days)
		if err != nil {
			return fmt.Errorf("get statistics: %w", err)
		}
		if asJSON {
			return writeJSON(out, stats)
		}
		printStats(out, days, stats)
		return nil
	}

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := db.GetRecentRuns(limit)
	if err != nil {
		return fmt.Errorf("get recent runs: %w", err)
	}
	if asJSON {
		return writeJSON(out, runs)
	}
	printRuns(out, runs)
	return nil
}

// historyPath takes --history-db, else history_db from --config.
func historyPath(cmd *cobra.Command) (string, error) {
	if p, _ := cmd.Flags().GetString("history-db"); p != "" {
		return p, nil
	}
	if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return "", fmt.Errorf("load config %s: %w", cfgPath, err)
		}
		if cfg.HistoryDB != "" {
			return cfg.HistoryDB, nil
		}
	}
	return "", errNoHistoryDB
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printStats(w io.Writer, days int, s *database.RunStats) {
	fmt.Fprintf(w, "Run Statistics (Last %d days)\n", days)                                                  //nolint:errcheck
	fmt.Fprintf(w, "Period: %s to %s\n\n", s.StartDate.Format("2006-01-02"), s.EndDate.Format("2006-01-02")) //nolint:errcheck
	fmt.Fprintf(w, "Runs:           %d (%d dry, %d aborted)\n", s.Runs, s.DryRuns, s.Aborted)                //nolint:errcheck
	fmt.Fprintf(w, "Files Deleted:  %d\n", s.FilesDeleted)                                                   //nolint:errcheck
	fmt.Fprintf(w, "Dirs Deleted:   %d\n", s.DirsDeleted)                                                    //nolint:errcheck
	fmt.Fprintf(w, "Failures:       %d\n", s.Failures)                                                       //nolint:errcheck
	fmt.Fprintf(w, "Space Freed:    %s\n", disk.FormatBytes(s.TotalSpaceFreed))                              //nolint:errcheck
}

func printRuns(w io.Writer, runs []database.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded") //nolint:errcheck
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tStarted\tMode\tFiles\tDirs\tFailed\tFreed\tDuration\tRoot")
	_, _ = fmt.Fprintln(tw, "--\t-------\t----\t-----\t----\t------\t-----\t--------\t----")

	for _, r := range runs {
		mode := r.Mode
		if r.DryRun {
			mode += " (dry)"
		}
		if r.Aborted {
			mode += " (aborted)"
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%d\t%d\t%s\t%dms\t%s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04:05"), mode,
			r.FilesDeleted, r.DirsDeleted, r.FailedTransient+r.FailedFatal,
			disk.FormatBytes(r.BytesFreed), r.DurationMs, r.Root)
	}
	_ = tw.Flush()
}
