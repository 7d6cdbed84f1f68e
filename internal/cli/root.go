// Package cli defines the Cobra command tree for tempsweep.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"regexp"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"

	"tempsweep/internal/config"
	"tempsweep/internal/database"
	"tempsweep/internal/exitcodes"
	"tempsweep/internal/logging"
	"tempsweep/internal/metrics"
	"tempsweep/internal/scheduler"
)

// Execute runs the root command and returns the exit code.
func Execute(ctx context.Context, version string) int {
	return execute(ctx, version, os.Args[1:], os.Stdout, os.Stderr)
}

func execute(ctx context.Context, version string, args []string, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd(version)
	rootCmd.SetArgs(normalizeArgs(args))
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "tempsweep: %s\n", err) //nolint:errcheck // best-effort stderr write
		return exitcodes.Aborted
	}
	return exitcodes.Success
}

// newRootCmd creates the root command, which performs one cleanup run.
func newRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tempsweep",
		Short: "Remove stale files from a temp directory",
		Long: `Walk a temp directory, delete files older than a cutoff and prune the
directories left empty. Runs as a dry run unless --run is given.

With --delete-all every entry directly under the root is removed regardless
of age; the root itself is kept.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE:          runCleanup,
	}

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "YAML config file; flags given on the command line override it")
	pf.String("history-db", "", "SQLite file recording a summary of every run")

	f := rootCmd.Flags()
	f.StringP("path", "p", "", "Root directory to clean (default: system temp dir)")
	f.IntP("days", "d", 7, "Delete files last modified more than N days ago")
	f.BoolP("delete-all", "a", false, "Delete every entry under the root regardless of age")
	f.BoolP("run", "r", false, "Actually delete (default is a dry run)")
	f.IntP("parallel", "P", 1, "Delete with N workers; bare -P uses one per CPU")
	f.Lookup("parallel").NoOptDefVal = strconv.Itoa(runtime.NumCPU())
	f.Bool("no-auto-detect", false, "Do not benchmark the filesystem to pick parallelism")
	f.Int64P("throttle", "t", 0, "Limit deletion to N bytes per second")
	f.StringP("log", "l", "", "Mirror log lines to this file")
	f.BoolP("verbose", "v", false, "Trace every entry")
	f.StringArray("exclude", nil, "Wildcard pattern (path or base name) never deleted; repeatable")
	f.String("metrics-file", "", "Write Prometheus metrics to this file after the run")

	rootCmd.AddCommand(newHistoryCmd())
	return rootCmd
}

func runCleanup(cmd *cobra.Command, _ []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	logger := logging.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Verbose)
	defer logger.Close()

	if cfg.LogFile != "" {
		sink, err := logging.OpenFileSink(cfg.LogFile, logging.Rotation{
			MaxSizeMB:  cfg.LogRotation.MaxSizeMB,
			MaxBackups: cfg.LogRotation.MaxBackups,
			MaxAgeDays: cfg.LogRotation.MaxAgeDays,
			Compress:   cfg.LogRotation.Compress,
		})
		if err != nil {
			logger.Error("Log file disabled: %v", err)
		} else {
			logger.AttachFile(sink)
		}
	}

	runner := scheduler.NewRunner(logger)
	runner.Metrics = metrics.New()

	if cfg.HistoryDB != "" {
		db, err := database.NewHistoryDB(cfg.HistoryDB)
		if err != nil {
			logger.Error("Run history disabled: %v", err)
		} else {
			defer func() {
				if err := db.Close(); err != nil {
					logger.Error("Failed to close history database: %v", err)
				}
			}()
			runner.History = db
		}
	}

	_, err = runner.RunOnce(cmd.Context(), cfg)
	return err
}

// buildConfig layers defaults, the optional config file and the flags the
// user actually set, in that order.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("path") {
		cfg.Path, _ = f.GetString("path")
	}
	if f.Changed("days") {
		days, _ := f.GetInt("days")
		cfg.Days = max(0, days)
	}
	if f.Changed("delete-all") {
		cfg.DeleteAll, _ = f.GetBool("delete-all")
	}
	if f.Changed("run") {
		cfg.Run, _ = f.GetBool("run")
	}
	if f.Changed("parallel") {
		p, _ := f.GetInt("parallel")
		cfg.Parallel = max(1, p)
	}
	if f.Changed("no-auto-detect") {
		off, _ := f.GetBool("no-auto-detect")
		cfg.AutoDetect = !off
	}
	if f.Changed("throttle") {
		t, _ := f.GetInt64("throttle")
		cfg.ThrottleBytes = max(0, t)
	}
	if f.Changed("log") {
		cfg.LogFile, _ = f.GetString("log")
	}
	if f.Changed("verbose") {
		cfg.Verbose, _ = f.GetBool("verbose")
	}
	if f.Changed("exclude") {
		cfg.Exclude, _ = f.GetStringArray("exclude")
	}
	if f.Changed("history-db") {
		cfg.HistoryDB, _ = f.GetString("history-db")
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile, _ = f.GetString("metrics-file")
	}

	if err := cfg.ValidateAndDefault(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

var intArg = regexp.MustCompile(`^-?\d+$`)

// normalizeArgs lets "-P 4" mean "-P=4". pflag only binds an optional value
// written with "=", so a separate number would otherwise be a stray argument.
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			out = append(out, args[i:]...)
			break
		}
		if (a == "-P" || a == "--parallel") && i+1 < len(args) && intArg.MatchString(args[i+1]) {
			out = append(out, a+"="+args[i+1])
			i++
			continue
		}
		out = append(out, a)
	}
	return out
}
