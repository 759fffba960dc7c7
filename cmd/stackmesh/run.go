package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/stackmesh/core"
)

func newRunCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <stack.yaml>",
		Short: "Execute a stack tier by tier and report per-agent outcomes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mesh, err := newMesh(opts, args[0])
			if err != nil {
				return err
			}

			rep, err := mesh.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "run %s\n", rep.RunID)

			for _, o := range rep.Outcomes {
				status := string(o.Status)

				switch {
				case o.Skipped:
					status = color.YellowString("failed (skipped)")
				case o.Status == core.StatusFailed:
					status = color.RedString(status)
				case o.Status == core.StatusSucceeded:
					status = color.GreenString(status)
				}

				fmt.Fprintf(cmd.OutOrStdout(), "  %-24s %s attempts=%d\n", o.Agent, status, o.Attempts)
			}

			if !rep.Succeeded {
				return fmt.Errorf("stack run finished with failures")
			}

			return nil
		},
	}
}
