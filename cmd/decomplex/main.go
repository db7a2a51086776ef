package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/panbanda/decomplex/internal/output"
	"github.com/panbanda/decomplex/pkg/config"
	"github.com/panbanda/decomplex/pkg/store"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
	commit  = "none"    //nolint:unused // set via ldflags at build time
	date    = "unknown" //nolint:unused // set via ldflags at build time
)

const configKey = "config"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		color.Red("Error: %v", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:     "decomplex",
		Usage:    "Track cyclomatic and cognitive complexity across runs",
		Version:  version,
		Metadata: make(map[string]interface{}),
		Description: `decomplex scores every function, method and closure for cyclomatic and
cognitive complexity, records the scores per run, and reports how they
changed since the previous run.

Supports: Python, Go, JavaScript, TypeScript`,
		Flags: append([]cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file (TOML, YAML, or JSON)",
				EnvVars: []string{"DECOMPLEX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "store",
				Usage:   "Score store location",
				EnvVars: []string{"DECOMPLEX_STORE"},
			},
			&cli.StringFlag{
				Name:  "store-backend",
				Usage: "Score store backend: json, dir, sqlite",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable colored output",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Enable verbose output",
			},
		}, outputFlags()...),
		Before: loadConfig,
		Commands: []*cli.Command{
			analyzeCmd(),
			reportCmd(),
			trendCmd(),
			watchCmd(),
			initCmd(),
			configCmd(),
			mcpCmd(),
		},
	}
}

// outputFlags are accepted both before and after the command name.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   "Output format: text, table, json, yaml, toon, markdown",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Write output to file",
		},
	}
}

// loadConfig resolves the configuration once for every command and applies
// the global flag overrides.
func loadConfig(c *cli.Context) error {
	if c.Bool("no-color") {
		color.NoColor = true
	}

	var opts []config.LoadOption
	if path := c.String("config"); path != "" {
		opts = append(opts, config.WithPath(path))
	}
	result, err := config.LoadConfig(opts...)
	if err != nil {
		return err
	}
	cfg := result.Config

	if c.IsSet("store") {
		cfg.Store.Path = c.String("store")
	}
	if c.IsSet("store-backend") {
		cfg.Store.Backend = c.String("store-backend")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if c.Bool("verbose") && result.Source != "" {
		fmt.Fprintf(os.Stderr, "Using config %s\n", result.Source)
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

// getConfig returns the configuration resolved by loadConfig.
func getConfig(c *cli.Context) *config.Config {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg
	}
	return config.DefaultConfig()
}

// getPaths returns paths from positional args, defaulting to ["."]
func getPaths(c *cli.Context) []string {
	if c.Args().Len() > 0 {
		return c.Args().Slice()
	}
	return []string{"."}
}

// lookupFlag returns the value of the innermost context that explicitly set
// name, so a flag after the command wins over one before it.
func lookupFlag(c *cli.Context, name string) (string, bool) {
	for _, ctx := range c.Lineage() {
		if ctx.IsSet(name) {
			return ctx.String(name), true
		}
	}
	return "", false
}

func getFormat(c *cli.Context) output.Format {
	if f, ok := lookupFlag(c, "format"); ok {
		return output.ParseFormat(f)
	}
	return output.ParseFormat(getConfig(c).Report.Format)
}

func getOutputFile(c *cli.Context) string {
	path, _ := lookupFlag(c, "output")
	return path
}

func newFormatter(c *cli.Context) (*output.Formatter, error) {
	colored := getConfig(c).Report.Color && !c.Bool("no-color")
	return output.NewFormatter(getFormat(c), getOutputFile(c), colored)
}

func openStore(cfg *config.Config) (store.Store, error) {
	s, err := store.Open(store.Backend(cfg.Store.Backend), cfg.StorePath())
	if err != nil {
		return nil, fmt.Errorf("open %s store %s: %w", cfg.Store.Backend, cfg.StorePath(), err)
	}
	return s, nil
}

var errNoHistory = errors.New("no stored scores found; run decomplex analyze first")
