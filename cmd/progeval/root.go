package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"digital.vasic.progeval/pkg/assertion"
	"digital.vasic.progeval/pkg/config"
	"digital.vasic.progeval/pkg/env"
	"digital.vasic.progeval/pkg/logging"
	"digital.vasic.progeval/pkg/metrics"
	"digital.vasic.progeval/pkg/monitor"
)

// rootOptions holds the persistent flags. Flags override both
// the configuration file and the environment.
type rootOptions struct {
	configPath    string
	envFile       string
	outputDir     string
	formats       []string
	historyFile   string
	interpreter   string
	keepArtifacts bool
	verbose       bool
	metricsAddr   string
	monitorAddr   string
}

type cli struct {
	opts   rootOptions
	stdout io.Writer
	stderr io.Writer

	cfg       *config.Config
	logger    logging.Logger
	prom      *metrics.PrometheusMetrics
	engine    *assertion.DefaultEngine
	collector *monitor.EventCollector
}

func newCLI(stdout, stderr io.Writer) *cli {
	return &cli{
		stdout: stdout,
		stderr: stderr,
		logger: logging.NullLogger{},
	}
}

// run executes the command line and returns the process exit
// code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c := newCLI(stdout, stderr)
	root := c.rootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := c.logger.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		fmt.Fprintf(stderr, "progeval: %v\n", err)
		return 1
	}
	return 0
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "progeval",
		Short: "Grade program submissions against a test specification",
		Long: `progeval builds a submitted source file, runs it against the
testbeds of a specification, checks every run's output with
assertions and writes a scored report.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.setup(cmd.Flags()) },
	}

	f := root.PersistentFlags()
	f.StringVarP(&c.opts.configPath, "config", "c", "", "configuration file (YAML)")
	f.StringVar(&c.opts.envFile, "env-file", "", "file of PROGEVAL_* variables to load")
	f.StringVar(&c.opts.outputDir, "output-dir", "", "directory receiving report files")
	f.StringSliceVarP(&c.opts.formats, "format", "f", nil, "report formats: console, markdown, html, json")
	f.StringVar(&c.opts.historyFile, "history", "", "JSON Lines file receiving one entry per evaluation")
	f.StringVar(&c.opts.interpreter, "interpreter", "", "interpreter for interpreted languages")
	f.BoolVar(&c.opts.keepArtifacts, "keep-artifacts", false, "keep built executables")
	f.BoolVarP(&c.opts.verbose, "verbose", "v", false, "log debug messages")
	f.StringVar(&c.opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	f.StringVar(&c.opts.monitorAddr, "monitor-addr", "", "serve the live monitor on this address")

	root.AddCommand(
		c.evaluateCommand(),
		c.validateCommand(),
		c.batchCommand(),
		c.watchCommand(),
	)
	return root
}

// setup loads the configuration and builds the shared
// collaborators of every command.
func (c *cli) setup(flags *pflag.FlagSet) error {
	loader := env.NewLoader()
	if c.opts.envFile != "" {
		if err := loader.Load(c.opts.envFile); err != nil {
			return err
		}
	}

	cfg, err := config.Load(c.opts.configPath, loader)
	if err != nil {
		return err
	}
	c.applyFlags(flags, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	logger, err := logging.New(cfg.Log, c.stderr)
	if err != nil {
		return err
	}
	c.logger = logger
	c.prom = metrics.NewPrometheusMetrics()

	var engineOpts []assertion.EngineOption
	if cfg.NegatedDifferent {
		engineOpts = append(engineOpts, assertion.WithNegatedDifferent())
	}
	c.engine = assertion.NewEngine(engineOpts...)
	return nil
}

func (c *cli) applyFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("output-dir") {
		cfg.Report.OutputDir = c.opts.outputDir
	}
	if flags.Changed("format") {
		cfg.Report.Formats = c.opts.formats
	}
	if flags.Changed("history") {
		cfg.Report.HistoryFile = c.opts.historyFile
	}
	if flags.Changed("interpreter") {
		cfg.Interpreter = c.opts.interpreter
	}
	if flags.Changed("keep-artifacts") {
		cfg.KeepArtifacts = c.opts.keepArtifacts
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = c.opts.metricsAddr
	}
	if flags.Changed("monitor-addr") {
		cfg.Monitor.Addr = c.opts.monitorAddr
	}
	if c.opts.verbose {
		cfg.Log.Level = "debug"
	}
}
