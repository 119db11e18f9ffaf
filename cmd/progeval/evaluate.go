package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"digital.vasic.progeval/pkg/compiler"
	"digital.vasic.progeval/pkg/config"
	"digital.vasic.progeval/pkg/evaluator"
	"digital.vasic.progeval/pkg/launcher"
	"digital.vasic.progeval/pkg/logging"
	"digital.vasic.progeval/pkg/report"
	"digital.vasic.progeval/pkg/spec"
	"digital.vasic.progeval/pkg/summary"
)

func (c *cli) evaluateCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "evaluate <spec> <source>",
		Short: "Evaluate one source file and write its report",
		Long: `Evaluate builds and runs one source file against a
specification. The command succeeds whenever a report was
produced, including for sources that fail to build.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if _, err := formatForPath(output); err != nil {
					return err
				}
			}
			s, err := c.loadSpec(args[0])
			if err != nil {
				return err
			}
			stop := c.startServers(cmd.Context())
			defer stop()

			ev := c.newEvaluator(c.sinkFactory(cmd.OutOrStdout(), output))
			_, err = c.evaluate(cmd.Context(), ev, s, args[1], output)
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "also write the report to this file (.md, .html or .json)")
	return cmd
}

func (c *cli) loadSpec(path string) (*spec.Specification, error) {
	s, err := spec.LoadFile(
		path,
		spec.WithEngine(c.engine),
		spec.WithDefaultTimeout(c.cfg.DefaultTimeout),
	)
	if err != nil {
		return nil, err
	}
	for _, name := range s.Dropped {
		c.logger.Warn("testbed dropped",
			logging.StringField("spec", path),
			logging.StringField("testbed", name),
			logging.IntField("min_runs", spec.MinRunsPerTestbed),
		)
	}
	return s, nil
}

func (c *cli) newEvaluator(sinks evaluator.SinkFactory) *evaluator.Evaluator {
	compilerOpts := []compiler.Option{compiler.WithTimeout(c.cfg.BuildTimeout)}
	if c.cfg.WorkDir != "" {
		compilerOpts = append(compilerOpts, compiler.WithOutputDir(c.cfg.WorkDir))
	}
	if c.collector != nil {
		sinks = c.collector.SinkFactory(sinks)
	}
	return evaluator.New(
		evaluator.WithCompiler(compiler.NewToolchain(compilerOpts...)),
		evaluator.WithLauncher(launcher.NewProcess()),
		evaluator.WithEngine(c.engine),
		evaluator.WithLogger(c.logger),
		evaluator.WithMetrics(c.prom),
		evaluator.WithInterpreter(c.cfg.Interpreter),
		evaluator.WithKeepArtifacts(c.cfg.KeepArtifacts),
		evaluator.WithSinkFactory(sinks),
	)
}

// evaluate grades one source and writes the outputs that are
// produced after the evaluation: JSON documents, history and the
// monitor's final event.
func (c *cli) evaluate(
	ctx context.Context,
	ev *evaluator.Evaluator,
	s *spec.Specification,
	source string,
	output string,
) (*evaluator.Result, error) {
	result, err := ev.Evaluate(ctx, s, source)
	if err != nil {
		return nil, err
	}
	if c.collector != nil {
		c.collector.EmitFinished(result)
	}

	files := c.reportFiles(source, output)
	jr := summary.NewJSONReporter(true, true)
	for _, path := range files {
		if f, _ := formatForPath(path); f == config.FormatJSON {
			if err := jr.WriteFile(path, result); err != nil {
				return result, err
			}
		}
	}

	if h := c.cfg.Report.HistoryFile; h != "" {
		reportPath := ""
		if len(files) > 0 {
			reportPath = files[0]
		}
		if err := summary.AppendToHistory(h, result, reportPath); err != nil {
			return result, err
		}
	}

	c.logger.Info("evaluation finished",
		logging.StringField("source", source),
		logging.StringField("status", string(result.Status)),
		logging.Float64Field("score", result.TotalScore),
		logging.Float64Field("max_score", result.MaxScore),
	)
	return result, nil
}

// sinkFactory opens the report sinks of the configured formats.
// Console reports go to out; file reports are named after the
// source in the output directory. output, when set, is written
// in the format its extension names.
func (c *cli) sinkFactory(out io.Writer, output string) evaluator.SinkFactory {
	return func(r *evaluator.Result) (report.Sink, error) {
		multi := report.NewMultiSink()
		if c.cfg.HasFormat(config.FormatConsole) {
			multi.Add(report.NewConsoleSink(out))
		}
		for _, path := range c.reportFiles(r.Source, output) {
			f, _ := formatForPath(path)
			if f == config.FormatJSON {
				continue
			}
			s, err := openFileSink(path, f, filepath.Base(r.Source))
			if err != nil {
				multi.Close()
				return nil, err
			}
			multi.Add(s)
		}
		return multi, nil
	}
}

// reportFiles lists the report files of one evaluation.
func (c *cli) reportFiles(source, output string) []string {
	var files []string
	if output != "" {
		files = append(files, output)
	}
	stem := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	for _, f := range c.cfg.Report.Formats {
		ext, ok := formatExtensions[f]
		if !ok {
			continue
		}
		files = append(files, filepath.Join(c.cfg.Report.OutputDir, stem+ext))
	}
	return files
}

var formatExtensions = map[string]string{
	config.FormatMarkdown: ".md",
	config.FormatHTML:     ".html",
	config.FormatJSON:     ".json",
}

func formatForPath(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return config.FormatMarkdown, nil
	case ".html", ".htm":
		return config.FormatHTML, nil
	case ".json":
		return config.FormatJSON, nil
	}
	return "", fmt.Errorf("unsupported report file %s: use .md, .html or .json", path)
}

// openFileSink creates the report file at path. The document is
// titled after the evaluated source; the report title itself is
// part of the event stream.
func openFileSink(path, format, title string) (report.Sink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if format == config.FormatHTML {
		return report.NewHTMLSink(f, title), nil
	}
	return report.NewMarkdownSink(f, title), nil
}
