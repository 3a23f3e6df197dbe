package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/comalice/formchart"
	"github.com/comalice/formchart/internal/extensibility"
	"github.com/comalice/formchart/internal/primitives"
)

// step is one line of run output.
type step struct {
	Event   string     `json:"event,omitempty"`
	Active  []string   `json:"active"`
	Changed bool       `json:"changed"`
	Tasks   []taskLine `json:"tasks"`
}

type taskLine struct {
	ID       string           `json:"id"`
	Status   formchart.Status `json:"status"`
	Progress []string         `json:"progress"`
	Answered int              `json:"answered"`
}

func newStep(event string, s formchart.Snapshot[formchart.Context]) step {
	ctx := s.Context()
	tasks := make([]taskLine, len(ctx.Tasks))
	for i, t := range ctx.Tasks {
		answered := 0
		for _, section := range t.Answers {
			answered += section.Count()
		}
		tasks[i] = taskLine{ID: t.ID, Status: t.Status, Progress: t.Progress, Answered: answered}
	}
	return step{Event: event, Active: s.ActiveStatePaths(), Changed: s.Changed(), Tasks: tasks}
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <definition> [script]",
		Short: "Replay an event script against a new session",
		Long: `Starts a session and sends each {event, payload} item of the script (YAML or JSON list; stdin when omitted or "-").
One JSON line is printed for the start snapshot and for every event.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			chart, err := loadChart(cmd, args[0])
			if err != nil {
				return err
			}

			var in io.Reader = cmd.InOrStdin()
			if len(args) == 2 && args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			events, err := extensibility.LoadScript(in)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			e := chart.NewEngine()
			if err := enc.Encode(newStep("", e.Snapshot())); err != nil {
				return err
			}
			var encErr error
			err = extensibility.Drive(cmd.Context(), e, extensibility.NewScriptEventSource(events),
				func(ev primitives.Event, s formchart.Snapshot[formchart.Context]) {
					if encErr == nil {
						encErr = enc.Encode(newStep(ev.Type, s))
					}
				})
			if err != nil {
				return err
			}
			if encErr != nil {
				return fmt.Errorf("write output: %w", encErr)
			}
			if final, _ := cmd.Flags().GetBool("record"); final {
				rec, err := e.Record()
				if err != nil {
					return err
				}
				return enc.Encode(rec)
			}
			return nil
		},
	}
	cmd.Flags().Bool("record", false, "Print the final snapshot record after the steps")
	return cmd
}
