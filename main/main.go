package main

import (
	"fmt"
	stdio "io"
	"log/slog"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/phil-mansfield/gosinter"
	"github.com/phil-mansfield/gosinter/hub"
	"github.com/phil-mansfield/gosinter/io"
	"github.com/phil-mansfield/gosinter/metrics"
	"github.com/phil-mansfield/gosinter/render"
)

const (
	defaultInput  = "input.json"
	defaultOutput = "output.parquet"
)

var (
	logFile, logLevel, plotDir string

	red   = color.New(color.FgRed, color.Bold)
	green = color.New(color.FgGreen)
)

var rootCmd = &cobra.Command{
	Use:   "gosinter [input output]",
	Short: "gosinter - Multi-stage sintering simulation of 2D particle systems",
	Long: `gosinter compacts a configured system of particles, checks that enough
contacts formed, optionally remeshes the contours and sinters the system for
the configured duration. Every solver step is written to the output file:
.db, .sqlite and .sqlite3 files are SQLite databases, everything else is
written as Parquet.

Without arguments the configuration is read from ` + defaultInput + ` and the
states are written to ` + defaultOutput + `. Run "gosinter example-config" for
a documented configuration file.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected an input and an output file or no "+
				"arguments, but got %d arguments", len(args))
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		input, output := defaultInput, defaultOutput
		if len(args) == 2 {
			input, output = args[0], args[1]
		}
		return run(cmd, input, output)
	},
}

var exampleCmd = &cobra.Command{
	Use:   "example-config [ini|yaml]",
	Short: "Prints a documented example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format := "ini"
		if len(args) == 1 {
			format = strings.ToLower(args[0])
		}
		switch format {
		case "ini":
			fmt.Fprintln(cmd.OutOrStdout(), io.ExampleConfigFile)
		case "yaml":
			fmt.Fprint(cmd.OutOrStdout(), io.ExampleYAMLFile)
		default:
			return fmt.Errorf("unknown configuration format '%s', accepted "+
				"formats are 'ini' and 'yaml'", format)
		}
		return nil
	},
}

func init() {
	rootCmd.Flags().StringVar(
		&logFile, "log-file", "",
		"File the run log is written to. Overrides [output] log-file, "+
			"which defaults to run.log.",
	)
	rootCmd.Flags().StringVar(
		&logLevel, "log-level", "",
		"One of [debug | info | warn | error]. Overrides [output] log-level.",
	)
	rootCmd.Flags().StringVar(
		&plotDir, "plot-dir", "",
		"Directory plots of every checkpoint are written to. Overrides "+
			"[output] plot-dir. No plots are made if neither is set.",
	)
	rootCmd.AddCommand(exampleCmd)
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	if err := rootCmd.Execute(); err != nil {
		red.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, input, output string) error {
	cfg, err := io.ReadConfig(input)
	if err != nil {
		return err
	}
	if err := applyFlags(cmd, &cfg.Output); err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cfg.Output)
	if err != nil {
		return err
	}
	defer closeLog()
	logger.Info("configuration read", "input", input, "output", output,
		"particles", len(cfg.Particle)+len(cfg.Packed),
		"materials", len(cfg.Material))

	graph, initial, err := gosinter.Setup(cfg)
	if err != nil {
		logger.Error("setup failed", "error", err)
		return err
	}

	h := hub.New(logger)
	p, err := gosinter.Build(cfg, graph, h, logger)
	if err != nil {
		logger.Error("setup failed", "error", err)
		return err
	}
	policy := hub.Policy(cfg.Output.Tolerant())

	if cfg.Output.ValidPlotDir() {
		if err := os.MkdirAll(cfg.Output.PlotDir, 0755); err != nil {
			return err
		}
		plotter := render.New(cfg.Output.PlotDir, cfg.Output.StepPlots, logger)
		plotter.Attach(h, policy)
		defer func() {
			plotter.Detach()
			plotter.Flush()
		}()
	}

	if cfg.Output.ValidMetricsFile() {
		m := metrics.New()
		m.Attach(h, policy)
		defer func() {
			m.Detach()
			if werr := m.WriteFile(cfg.Output.MetricsFile); werr != nil {
				logger.Warn("writing metrics failed", "error", werr)
			}
		}()
	}

	storage, err := io.OpenStorage(output)
	if err != nil {
		logger.Error("opening storage failed", "output", output, "error", err)
		return err
	}
	p.Storage = storage

	final, err := p.Run(initial)
	if err != nil {
		return err
	}

	green.Fprintf(cmd.OutOrStdout(), "Sintered %d particles to t = %.4g s, "+
		"%d contacts.\n", final.ParticleCount(), final.Time(),
		final.GrainBoundaryPairs())
	return nil
}

// applyFlags copies explicitly given flags into con and revalidates it.
func applyFlags(cmd *cobra.Command, con *io.OutputConfig) error {
	flags := cmd.Flags()
	if flags.Changed("log-file") {
		con.LogFile = logFile
	}
	if flags.Changed("log-level") {
		con.LogLevel = logLevel
	}
	if flags.Changed("plot-dir") {
		con.PlotDir = plotDir
	}
	if err := con.CheckInit(); err != nil {
		return fmt.Errorf("%w: %w", io.ErrConfig, err)
	}
	return nil
}

// newLogger returns a text logger writing to the log file and stderr.
func newLogger(con io.OutputConfig) (*slog.Logger, func(), error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(con.LogLevel)); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", io.ErrConfig, err)
	}

	f, err := os.Create(con.LogFile)
	if err != nil {
		return nil, nil, err
	}
	w := stdio.MultiWriter(f, os.Stderr)
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	return logger, func() { f.Close() }, nil
}
