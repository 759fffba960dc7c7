package main

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/hupe1980/stackmesh/core"
)

func newValidateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <stack.yaml>",
		Short: "Check a stack declaration for name, reference, type and cycle errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mesh, err := newMesh(opts, args[0])
			if err != nil {
				return err
			}

			if err := mesh.Validate(); err != nil {
				var verrs core.ValidationErrors
				if errors.As(err, &verrs) {
					for _, v := range verrs {
						fmt.Fprintln(cmd.OutOrStdout(), color.RedString("invalid: %s", v))
					}

					return fmt.Errorf("%d validation error(s)", len(verrs))
				}

				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), color.GreenString("stack %q is valid", args[0]))

			return nil
		},
	}
}
