package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

func newPlanCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "plan <stack.yaml>",
		Short: "Print the tiered execution plan for a stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mesh, err := newMesh(opts, args[0])
			if err != nil {
				return err
			}

			p, err := mesh.Plan()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")

				return enc.Encode(struct {
					Stack       string     `json:"stack"`
					Fingerprint string     `json:"fingerprint"`
					Tiers       [][]string `json:"tiers"`
				}{p.Stack(), p.Fingerprint(), p.Tiers()})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stack %s (fingerprint %s)\n", color.CyanString(p.Stack()), p.Fingerprint()[:12])

			for i, tier := range p.Tiers() {
				fmt.Fprintf(cmd.OutOrStdout(), "  tier %d: %s\n", i, strings.Join(tier, ", "))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the plan as JSON")

	return cmd
}
