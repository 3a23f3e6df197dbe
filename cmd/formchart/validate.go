package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comalice/formchart"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <definition>",
		Short: "Check a definition for consistency",
		Long:  `Decodes the definition and compiles it, reporting unknown guards, actions, unresolved targets and task mistakes.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chart, err := loadChart(cmd, args[0])
			if err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
			def := chart.Definition()
			states := 0
			_ = def.Walk(func(path string, _ *formchart.StateConfig) error {
				if path != "" {
					states++
				}
				return nil
			})
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid: %d states, tasks [%s]\n", def.ID, states, strings.Join(chart.Tasks(), ", "))
			return nil
		},
	}
}
