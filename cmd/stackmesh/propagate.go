package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPropagateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "propagate <stack.yaml> <agent>...",
		Short: "Show which agents must re-run after the named agents change",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mesh, err := newMesh(opts, args[0])
			if err != nil {
				return err
			}

			dirty, err := mesh.Propagate(args[1:]...)
			if err != nil {
				return err
			}

			if len(dirty) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "nothing depends on %s\n", strings.Join(args[1:], ", "))
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "dirty after changing %s:\n", color.CyanString(strings.Join(args[1:], ", ")))

			for _, name := range dirty {
				fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", name)
			}

			return nil
		},
	}
}
