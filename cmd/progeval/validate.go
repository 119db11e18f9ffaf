package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"digital.vasic.progeval/pkg/spec"
)

func (c *cli) validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <spec>",
		Short: "Check a specification and print its testbeds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := c.loadSpec(args[0])
			if err != nil {
				return err
			}
			printSpec(cmd, args[0], s)
			return nil
		},
	}
}

func printSpec(cmd *cobra.Command, path string, s *spec.Specification) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Specification: %s\n", path)
	fmt.Fprintf(out, "Language: %s\n", s.Language)
	if s.Language.Compiled() {
		build := strings.TrimSpace(s.BuildTool + " " + strings.Join(s.BuildFlags, " "))
		fmt.Fprintf(out, "Build: %s (score %s)\n", build, formatScore(s.BuildScore))
	}
	for _, tb := range s.Testbeds {
		fmt.Fprintf(out, "Testbed %q: %d runs, %s, on error %s, score %s\n",
			tb.Name, len(tb.Runs), tb.Scoring, tb.OnError, formatScore(tb.MaxScore))
	}
	for _, name := range s.Dropped {
		fmt.Fprintf(out, "Dropped testbed %q: fewer than %d runs\n", name, spec.MinRunsPerTestbed)
	}
	fmt.Fprintf(out, "Maximum score: %s\n", formatScore(s.MaxScore()))
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
