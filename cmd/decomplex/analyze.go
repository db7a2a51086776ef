package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/decomplex/internal/fileproc"
	"github.com/panbanda/decomplex/internal/output"
	"github.com/panbanda/decomplex/internal/progress"
	"github.com/panbanda/decomplex/internal/scanner"
	"github.com/panbanda/decomplex/pkg/models"
	"github.com/panbanda/decomplex/pkg/recorder"
	"github.com/panbanda/decomplex/pkg/report"
	"github.com/panbanda/decomplex/pkg/store"
	"github.com/urfave/cli/v2"
)

func analyzeCmd() *cli.Command {
	flags := append(outputFlags(),
		&cli.BoolFlag{
			Name:  "continuous",
			Usage: "Show the change of every function against the previous run",
		},
		&cli.BoolFlag{
			Name:  "no-persist",
			Usage: "Report this run only and leave the store untouched",
		},
		&cli.IntFlag{
			Name:    "workers",
			Aliases: []string{"j"},
			Usage:   "Number of files analyzed in parallel (default 1, 0 = 2x CPUs)",
		},
	)
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"a"},
		Usage:     "Score complexity, record the run and report it",
		ArgsUsage: "[path...]",
		Description: `Scans the given files and directories, scores every function, and adds
the run to the score store. The report shows the latest stored run of each
analyzed file; with --continuous every function also shows its change since
the run before.`,
		Flags:  flags,
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	cfg := getConfig(c)
	if c.IsSet("workers") {
		cfg.Analysis.Workers = c.Int("workers")
	}
	verbose := c.Bool("verbose")

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	files, err := scanner.NewScanner(cfg).Expand(getPaths(c))
	if err != nil {
		return fmt.Errorf("failed to scan: %w", err)
	}
	files, skipped := scanner.FilterBySize(files, cfg.Analysis.MaxFileSize)
	if skipped > 0 {
		formatter.Warning("Skipped %d files larger than %d bytes", skipped, cfg.Analysis.MaxFileSize)
	}
	if len(files) == 0 {
		color.Yellow("No source files found")
		return nil
	}
	if verbose {
		formatter.Info("Analyzing %d files", len(files))
	}

	opts := []recorder.Option{
		recorder.WithFiles(files...),
		recorder.WithWorkers(cfg.Analysis.Workers),
		recorder.WithMaxFileSize(cfg.Analysis.MaxFileSize),
	}
	persist := !c.Bool("no-persist")
	var st store.Store
	if persist {
		st, err = openStore(cfg)
		if err != nil {
			return err
		}
		defer st.Close()
		opts = append(opts, recorder.WithStore(st))
	}

	tracker := progress.NewTracker("Analyzing complexity...", len(files))
	rec := recorder.New(append(opts, recorder.WithProgress(tracker.ProgressFunc()))...)

	err = rec.Analyze(c.Context, "")
	var perrs *fileproc.ProcessingErrors
	switch {
	case err == nil:
		tracker.FinishSuccess()
	case errors.As(err, &perrs) && rec.HasData():
		tracker.FinishSuccess()
		for _, pe := range perrs.Errors {
			formatter.Warning("%s: %v", pe.Path, pe.Err)
		}
	default:
		tracker.FinishError(err)
		return err
	}

	scores := rec.Summary()
	if persist {
		if err := rec.Persist(c.Context); err != nil {
			return fmt.Errorf("failed to persist scores: %w", err)
		}
		if verbose {
			formatter.Info("Recorded %d files in %s", len(scores), cfg.StorePath())
		}
		// Reload so the report sees the previous runs too.
		scores, err = store.LoadAll(c.Context, st, scores.Paths())
		if err != nil {
			return err
		}
	}

	return outputReport(c, formatter, scores)
}

func outputReport(c *cli.Context, formatter *output.Formatter, scores models.Scores) error {
	cfg := getConfig(c)
	continuous := cfg.Report.Continuous || c.Bool("continuous")
	return formatter.Output(report.New(scores).Document(continuous, cfg.Thresholds()))
}

func reportCmd() *cli.Command {
	flags := append(outputFlags(),
		&cli.BoolFlag{
			Name:  "continuous",
			Usage: "Show the change of every function against the previous run",
		},
	)
	return &cli.Command{
		Name:      "report",
		Aliases:   []string{"r"},
		Usage:     "Report the latest stored run of each file",
		ArgsUsage: "[path...]",
		Flags:     flags,
		Action:    runReportCmd,
	}
}

func runReportCmd(c *cli.Context) error {
	scores, err := loadHistory(c)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return outputReport(c, formatter, scores)
}

func trendCmd() *cli.Command {
	return &cli.Command{
		Name:      "trend",
		Aliases:   []string{"tr"},
		Usage:     "Show how file complexity evolved across stored runs",
		ArgsUsage: "[path...]",
		Flags:     outputFlags(),
		Action:    runTrendCmd,
	}
}

func runTrendCmd(c *cli.Context) error {
	scores, err := loadHistory(c)
	if err != nil {
		return err
	}

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	return formatter.Output(report.Trends(scores))
}

// loadHistory reads the stored histories selected by the positional args.
// Without args every stored file is selected.
func loadHistory(c *cli.Context) (models.Scores, error) {
	st, err := openStore(getConfig(c))
	if err != nil {
		return nil, err
	}
	defer st.Close()

	scores, err := store.Select(c.Context, st, c.Args().Slice())
	if err != nil {
		return nil, fmt.Errorf("failed to load scores: %w", err)
	}
	if len(scores) == 0 {
		return nil, errNoHistory
	}
	return scores, nil
}
