package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/panbanda/decomplex/internal/fileproc"
	"github.com/panbanda/decomplex/internal/output"
	"github.com/panbanda/decomplex/internal/scanner"
	"github.com/panbanda/decomplex/pkg/config"
	"github.com/panbanda/decomplex/pkg/recorder"
	"github.com/panbanda/decomplex/pkg/report"
	"github.com/panbanda/decomplex/pkg/store"
	"github.com/panbanda/decomplex/pkg/watch"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Record and report every change to source files",
		ArgsUsage: "[path]",
		Description: `Watches a directory and, whenever source files settle after a change,
records a new run for them and prints how each function changed since the
previous run.`,
		Flags: append(outputFlags(),
			&cli.DurationFlag{
				Name:  "debounce",
				Value: watch.DefaultDebounce,
				Usage: "How long a file must stay unchanged before it is analyzed",
			},
		),
		Action: runWatchCmd,
	}
}

func runWatchCmd(c *cli.Context) error {
	cfg := getConfig(c)
	root := getPaths(c)[0]

	include, err := scanner.NewScanner(cfg).Filter(root)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", root, err)
	}

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	formatter, err := newFormatter(c)
	if err != nil {
		return err
	}
	defer formatter.Close()

	w, err := watch.New(root, include, c.Duration("debounce"))
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer w.Stop()

	w.OnChange(func(ctx context.Context, paths []string) {
		if err := recordChanges(ctx, cfg, st, formatter, paths); err != nil {
			formatter.Error("%v", err)
		}
	})
	w.OnError(func(err error) {
		formatter.Error("watch: %v", err)
	})

	color.Cyan("Watching for changes in %s...", root)
	color.Cyan("Press Ctrl+C to stop")

	if err := w.Start(c.Context); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// recordChanges analyzes paths as a new run, persists it and prints the
// continuous report of the files that were recorded.
func recordChanges(ctx context.Context, cfg *config.Config, st store.Store, formatter *output.Formatter, paths []string) error {
	paths, skipped := scanner.FilterBySize(paths, cfg.Analysis.MaxFileSize)
	if skipped > 0 {
		formatter.Warning("Skipped %d files larger than %d bytes", skipped, cfg.Analysis.MaxFileSize)
	}
	if len(paths) == 0 {
		return nil
	}

	rec := recorder.New(
		recorder.WithFiles(paths...),
		recorder.WithStore(st),
		recorder.WithWorkers(cfg.Analysis.Workers),
		recorder.WithMaxFileSize(cfg.Analysis.MaxFileSize),
	)

	err := rec.Analyze(ctx, "")
	var perrs *fileproc.ProcessingErrors
	switch {
	case err == nil:
	case errors.As(err, &perrs):
		for _, pe := range perrs.Errors {
			formatter.Warning("%s: %v", pe.Path, pe.Err)
		}
	case len(paths) == 1:
		formatter.Warning("%s: %v", paths[0], err)
	default:
		return err
	}
	if !rec.HasData() {
		return nil
	}

	if err := rec.Persist(ctx); err != nil {
		return fmt.Errorf("failed to persist scores: %w", err)
	}
	scores, err := store.LoadAll(ctx, st, rec.Summary().Paths())
	if err != nil {
		return err
	}
	return formatter.Output(report.New(scores).Document(true, cfg.Thresholds()))
}
