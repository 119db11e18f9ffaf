package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"digital.vasic.progeval/pkg/evaluator"
	"digital.vasic.progeval/pkg/logging"
	"digital.vasic.progeval/pkg/spec"
	"digital.vasic.progeval/pkg/summary"
)

func (c *cli) batchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <spec> <dir>",
		Short: "Evaluate every source file in a directory",
		Long: `Batch evaluates, one after the other, every file in dir whose
extension matches the specification's language, then writes a
class summary in JSON and Markdown to the output directory.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.loadSpec(args[0])
			if err != nil {
				return err
			}
			stop := c.startServers(cmd.Context())
			defer stop()

			sum, err := c.batch(cmd.Context(), cmd.OutOrStdout(), args[0], s, args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"\nEvaluated %d submissions: %d with full score, %d failed to build, %d errors\n",
				sum.Total, sum.FullScore, sum.BuildFailed, sum.Errors)
			return nil
		},
	}
}

func (c *cli) batch(
	ctx context.Context,
	out io.Writer,
	specPath string,
	s *spec.Specification,
	dir string,
) (*summary.ClassSummary, error) {
	sources, err := findSources(dir, s.Language)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("no %s sources in %s", s.Language, dir)
	}

	ev := c.newEvaluator(c.sinkFactory(out, ""))
	results := make([]*evaluator.Result, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			c.logger.Warn("batch interrupted",
				logging.IntField("evaluated", len(results)),
				logging.IntField("total", len(sources)),
			)
			break
		}
		result, err := c.evaluate(ctx, ev, s, src, "")
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	sum := summary.BuildClassSummary(specPath, results)
	outDir := c.cfg.Report.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := summary.SaveClassSummary(sum, outDir); err != nil {
		return nil, err
	}
	c.logger.Info("class summary saved",
		logging.StringField("dir", outDir),
		logging.IntField("submissions", sum.Total),
	)
	return sum, nil
}

// findSources lists the files of dir written in lang, sorted by
// name.
func findSources(dir string, lang spec.Language) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var sources []string
	for _, e := range entries {
		if !e.Type().IsRegular() || !lang.HasSourceExt(e.Name()) {
			continue
		}
		sources = append(sources, filepath.Join(dir, e.Name()))
	}
	return sources, nil
}
