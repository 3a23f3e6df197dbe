package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/comalice/formchart"
	"github.com/comalice/formchart/internal/logging"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "formchart",
		Short:         "Formchart drives questionnaires defined as statecharts",
		Long:          `Formchart loads a questionnaire definition (YAML or JSON) and validates it, renders it as a graph, replays event scripts against it or serves sessions over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error); overrides FORMCHART_LOG_LEVEL")

	root.AddCommand(newValidateCmd(), newGraphCmd(), newRunCmd(), newServeCmd())
	return root
}

// loggerFor builds a stderr logger from --log-level, falling back to def.
func loggerFor(cmd *cobra.Command, def slog.Level) (*slog.Logger, error) {
	level := def
	if s, _ := cmd.Flags().GetString("log-level"); s != "" {
		l, err := logging.ParseLevel(s)
		if err != nil {
			return nil, err
		}
		level = l
	}
	return logging.NewWithWriter(cmd.ErrOrStderr(), level, false), nil
}

func loadChart(cmd *cobra.Command, path string, opts ...formchart.Option) (*formchart.Chart, error) {
	logger, err := loggerFor(cmd, slog.LevelWarn)
	if err != nil {
		return nil, err
	}
	return formchart.Load(path, append([]formchart.Option{formchart.WithLogger(logger)}, opts...)...)
}
