// Command stackmesh validates, plans, runs and propagates change through
// declarative agent stacks.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/stackmesh"
	"github.com/hupe1980/stackmesh/eventlog"
	"github.com/hupe1980/stackmesh/logging"
	"github.com/hupe1980/stackmesh/source"
)

type rootOptions struct {
	logLevel   string
	format     string
	contextDir string
	runLogPath string
	noColor    bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{
		logLevel: "info",
		format:   "text",
	}

	cmd := &cobra.Command{
		Use:   "stackmesh",
		Short: "Dependency-aware runner for declarative agent stacks",
		Long: `stackmesh reads a YAML stack declaration, derives the dependency graph
from the declared input sources, and validates, plans, runs or
re-plans the stack from there.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.CompletionOptions.DisableDefaultCmd = true

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", opts.logLevel, "Log level for output (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.format, "log-format", opts.format, "Log format (text, json)")
	cmd.PersistentFlags().StringVar(&opts.contextDir, "context-dir", "", "Directory resolving external:<id> sources from <id>.yaml files")
	cmd.PersistentFlags().StringVar(&opts.runLogPath, "run-log", "", "Append run records to this JSONL file")
	cmd.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "Disable colored output")

	cmd.AddCommand(
		newValidateCommand(opts),
		newPlanCommand(opts),
		newRunCommand(opts),
		newPropagateCommand(opts),
	)

	return cmd
}

// newMesh builds a StackMesh from the root flags and loads the stack file.
func newMesh(opts *rootOptions, path string) (*stackmesh.StackMesh, error) {
	if opts.noColor {
		color.NoColor = true
	}

	logger := logging.NewSlogLogger(logging.ParseLevel(opts.logLevel), opts.format, false)

	var runLog *eventlog.FileLog

	if opts.runLogPath != "" {
		log, err := eventlog.OpenFileLog(opts.runLogPath)
		if err != nil {
			return nil, fmt.Errorf("open run log %q: %w", opts.runLogPath, err)
		}

		runLog = log
	}

	mesh := stackmesh.New(func(o *stackmesh.Options) {
		o.Logger = logger

		if opts.contextDir != "" {
			o.Resolver = source.Chain{source.Dir{Root: opts.contextDir}, source.Env{}}
		} else {
			o.Resolver = source.Env{}
		}

		if runLog != nil {
			o.RunLog = runLog
		}
	})

	if err := mesh.LoadStack(path); err != nil {
		return nil, err
	}

	for _, w := range mesh.Warnings() {
		fmt.Fprintln(os.Stderr, color.YellowString("warning: %s", w))
	}

	return mesh, nil
}
