package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"digital.vasic.progeval/pkg/logging"
)

const watchDebounce = 200 * time.Millisecond

func (c *cli) watchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <spec> <source>",
		Short: "Re-evaluate a source file whenever it or the specification changes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			stop := c.startServers(cmd.Context())
			defer stop()
			return c.watch(cmd.Context(), cmd.OutOrStdout(), args[0], args[1])
		},
	}
}

// watch evaluates source once, then again after every change to
// source or the specification, until ctx is cancelled. Changes
// within watchDebounce of each other trigger one evaluation.
func (c *cli) watch(ctx context.Context, out io.Writer, specPath, source string) error {
	specAbs, err := filepath.Abs(specPath)
	if err != nil {
		return err
	}
	sourceAbs, err := filepath.Abs(source)
	if err != nil {
		return err
	}

	s, err := c.loadSpec(specPath)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	for _, dir := range uniqueDirs(specAbs, sourceAbs) {
		if err := w.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	ev := c.newEvaluator(c.sinkFactory(out, ""))
	if _, err := c.evaluate(ctx, ev, s, source, ""); err != nil {
		return err
	}

	fire := make(chan struct{}, 1)
	var timer *time.Timer
	specChanged := false
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(event.Name)
			if name != sourceAbs && name != specAbs {
				continue
			}
			if name == specAbs {
				specChanged = true
			}
			c.logger.Debug("file changed",
				logging.StringField("path", name),
				logging.StringField("op", event.Op.String()),
			)
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(watchDebounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watch error", logging.ErrorField(err))

		case <-fire:
			if specChanged {
				specChanged = false
				reloaded, err := c.loadSpec(specPath)
				if err != nil {
					c.logger.Error("specification reload failed", logging.ErrorField(err))
					fmt.Fprintf(out, "\nSpecification not reloaded: %v\n", err)
					continue
				}
				s = reloaded
			}
			if _, err := c.evaluate(ctx, ev, s, source, ""); err != nil {
				return err
			}
		}
	}
}

func uniqueDirs(paths ...string) []string {
	seen := make(map[string]bool)
	var dirs []string
	for _, p := range paths {
		d := filepath.Dir(p)
		if !seen[d] {
			seen[d] = true
			dirs = append(dirs, d)
		}
	}
	return dirs
}
