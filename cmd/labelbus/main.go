package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"labelbus/internal/config"
	"labelbus/internal/logger"
	"labelbus/pkg/logging"
)

var (
	configFile string
	inputFile  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "labelbus",
		Short:         "Label-routed message bus",
		Long:          "labelbus reads JSON messages and routes them through filter trees declared in a config file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (or CONFIG_FILE)")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveConfigFile(earlyLog *logging.EarlyLog) (string, error) {
	if configFile != "" {
		return configFile, nil
	}
	if env := os.Getenv("CONFIG_FILE"); env != "" {
		return env, nil
	}
	earlyLog.Error("Config file is required. Use --config flag or CONFIG_FILE environment variable")
	return "", fmt.Errorf("config file is required")
}

func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Route messages read from stdin or --input",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			path, err := resolveConfigFile(earlyLog)
			if err != nil {
				return err
			}

			cfg, err := config.Load(path)
			if err != nil {
				earlyLog.Error("Failed to load config: %v", err)
				return err
			}

			log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				earlyLog.Error("Failed to init logger: %v", err)
				return err
			}
			defer log.Sync()

			var input io.Reader = cmd.InOrStdin()
			if inputFile != "" && inputFile != "-" {
				f, err := os.Open(inputFile)
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				input = f
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			app := NewApp(cfg, log, input)
			if err := app.Initialize(ctx); err != nil {
				log.ErrorwCtx(ctx, "Failed to initialize application", "error", err)
				return err
			}

			log.InfowCtx(ctx, "labelbus running", "routes", len(cfg.Routes))
			runErr := app.Run(ctx)
			if err := app.Shutdown(context.Background()); err != nil {
				log.ErrorwCtx(ctx, "Shutdown failed", "error", err)
			}
			if runErr != nil && runErr != context.Canceled {
				log.ErrorwCtx(ctx, "labelbus stopped with error", "error", runErr)
				return runErr
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputFile, "input", "", "NDJSON file to read instead of stdin")
	return cmd
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file and build its routes without routing anything",
		RunE: func(cmd *cobra.Command, args []string) error {
			earlyLog := logging.NewEarlyLog()

			path, err := resolveConfigFile(earlyLog)
			if err != nil {
				return err
			}

			cfg, err := config.Load(path)
			if err != nil {
				earlyLog.Error("Invalid config: %v", err)
				return err
			}

			app := NewApp(cfg, logger.NopLogger(), nil)
			app.InitHub()
			if err := app.InitRoutes(); err != nil {
				earlyLog.Error("Invalid routes: %v", err)
				return err
			}
			defer app.Router.Close()

			for _, r := range app.Router.Routes() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-24s %s\n", r.Name, r.Filter)
			}
			earlyLog.Info("Config %s is valid (%d routes)", path, len(cfg.Routes))
			return nil
		},
	}
}
