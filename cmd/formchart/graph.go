package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/comalice/formchart/internal/production"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <definition>",
		Short: "Export the statechart as Graphviz DOT or JSON",
		Long:  `Renders the definition as a DOT digraph with compound and parallel states as clusters. Active states given with --active are highlighted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			active, _ := cmd.Flags().GetStringSlice("active")

			chart, err := loadChart(cmd, args[0])
			if err != nil {
				return err
			}
			switch format {
			case "dot":
				dot, err := chart.DOT(active)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), dot)
			case "json":
				data, err := production.ExportJSON(chart.Definition().MachineConfig)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			default:
				return fmt.Errorf("unknown format %q (want dot or json)", format)
			}
			return nil
		},
	}
	cmd.Flags().StringP("format", "f", "dot", "Output format: dot or json")
	cmd.Flags().StringSlice("active", nil, "Active state paths to highlight, e.g. about.q1")
	return cmd
}
