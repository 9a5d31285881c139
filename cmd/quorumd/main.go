package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"quorum/internal/app/bootstrap"
)

const programName = "quorumd"

var globalFlags = struct {
	configFile string
	debug      bool
}{}

func commonRun() *slog.Logger {
	logLevel := slog.LevelInfo
	addSource := false
	if globalFlags.debug {
		logLevel = slog.LevelDebug
		addSource = true
	}
	logger := slog.New(
		slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			AddSource: addSource,
			Level:     logLevel,
		}),
	)
	slog.SetDefault(logger)
	return logger
}

func apiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "api",
		Short: "Run the HTTP API process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := commonRun()
			app, err := bootstrap.BuildAPI(globalFlags.configFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("api shutdown close failed",
						"component", programName,
						"error", err.Error(),
					)
				}
			}()
			return app.Run(cmd.Context())
		},
	}
}

func workerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the outbox relay worker process",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := commonRun()
			app, err := bootstrap.BuildWorker(globalFlags.configFile)
			if err != nil {
				return err
			}
			defer func() {
				if err := app.Close(); err != nil {
					logger.Error("worker shutdown close failed",
						"component", programName,
						"error", err.Error(),
					)
				}
			}()
			return app.Run(cmd.Context())
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           programName,
		Short:         "Weighted-stake superposition measurement service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(
		&globalFlags.configFile,
		"config",
		"c",
		"",
		"config file path (optional)",
	)
	rootCmd.PersistentFlags().BoolVarP(
		&globalFlags.debug,
		"debug",
		"D",
		false,
		"enable debug logging",
	)
	rootCmd.AddCommand(
		apiCommand(),
		workerCommand(),
	)

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		slog.Error(err.Error(), "component", programName)
		os.Exit(1)
	}
}
