package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/comalice/formchart"
	"github.com/comalice/formchart/internal/core"
	"github.com/comalice/formchart/internal/logging"
	"github.com/comalice/formchart/internal/production"
	"github.com/comalice/formchart/internal/progress"
)

type step struct {
	event   string
	payload any
}

func answer(q string, v any) map[string]any {
	return map[string]any{q: map[string]any{"value": v}}
}

func main() {
	mb := formchart.NewMachineBuilder("eligibility", "applicant")
	for _, t := range progress.NextTransitions("applicant", "household") {
		mb.On(formchart.NextEvent, t.Target, t)
	}
	applicant := mb.Compound("applicant", "dob")
	applicant.Atomic("dob").
		Transition("ANSWER", "guardian", formchart.TransitionConfig{Guard: "isMinor", Actions: []string{"addToProgress", "updateAnswers"}}).
		Transition("ANSWER", "student", formchart.TransitionConfig{Actions: []string{"addToProgress", "updateAnswers"}})
	applicant.Atomic("guardian").
		Transition("ANSWER", "student", formchart.TransitionConfig{Actions: []string{"addToProgress", "updateAnswers"}}).
		Transition("BACK", "dob", formchart.TransitionConfig{Actions: []string{"removeFromProgress"}})
	applicant.Atomic("student").
		Transition("ANSWER", "summary", formchart.TransitionConfig{Actions: []string{"addToProgress", "updateAnswers"}})
	applicant.Atomic("summary").Entry("updateStatus")

	household := mb.Compound("household", "member")
	household.Atomic("member").
		Transition("ANSWER", "member", formchart.TransitionConfig{Cond: "AnsweredLessThan member 2", Actions: []string{"appendAnswer", "addToProgress"}}).
		Transition("ANSWER", "summary", formchart.TransitionConfig{Actions: []string{"appendAnswer", "addToProgress"}})
	household.Atomic("summary").Entry("updateStatus")

	chart, err := formchart.Compile(formchart.Definition{
		MachineConfig: mb.MustBuild(),
		Guards:        map[string]string{"isMinor": "DateLessThanEighteenYearsAgo dob"},
	}, formchart.WithPublisher(production.NewChannelPublisher(published)), formchart.WithLogger(logging.New(slog.LevelWarn)))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	dir, err := os.MkdirTemp("", "formchart-demo")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer os.RemoveAll(dir)
	store, err := production.NewJSONPersister[formchart.Context](dir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	script := []step{
		{"ANSWER", answer("dob", time.Now().AddDate(-12, 0, 0).Format(time.DateOnly))},
		{"BACK", nil},
		{"ANSWER", answer("dob", "1990-06-21")},
		{"ANSWER", answer("school", "Open University")},
		{formchart.NextEvent, nil},
		{"ANSWER", answer("name", "Ada")},
		{"ANSWER", answer("name", "Brian")},
		{"ANSWER", answer("name", "Cleo")},
	}

	e := chart.NewEngine()
	fmt.Println("Start:", e.Snapshot().ActiveStatePaths())
	for i, s := range script {
		if ctx.Err() != nil {
			fmt.Println("\nShutting down gracefully...")
			return
		}
		// Every step goes through the store, as a request handler would.
		rec, err := e.Record()
		if err == nil {
			err = store.Save(ctx, "demo", rec)
		}
		if err == nil {
			rec, err = store.Load(ctx, "demo")
		}
		if err == nil {
			e, err = chart.Resume(rec)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}

		snap, err := e.Send(s.event, s.payload)
		if err != nil {
			fmt.Printf("Send error: %v\n", err)
			continue
		}
		fmt.Printf("\n--- Step %d: %s ---\n", i+1, s.event)
		fmt.Println("Current states:", snap.ActiveStatePaths())
		drain()
		for _, t := range snap.Context().Tasks {
			fmt.Printf("  %-10s %-12s %v\n", t.ID, t.Status, t.Progress)
		}
	}

	dot, err := chart.DOT(e.Snapshot().ActiveStatePaths())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println("\nDOT:\n" + dot)
}

var published = make(chan core.TransitionInfo, 16)

func drain() {
	for {
		select {
		case info := <-published:
			if info.Fired {
				fmt.Printf("Published: %s -> %s (%s)\n", info.From, info.Target, info.Event.Type)
			} else {
				fmt.Printf("Published: %s ignored\n", info.Event.Type)
			}
		default:
			return
		}
	}
}
