package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/makey/solar-forecast/internal/config"
	"github.com/makey/solar-forecast/internal/dashboard"
	"github.com/makey/solar-forecast/internal/logging"
	"github.com/makey/solar-forecast/internal/projection"
	"github.com/makey/solar-forecast/pkg/constants"
	"github.com/makey/solar-forecast/pkg/output"
	"github.com/makey/solar-forecast/pkg/validation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var version = "dev"

type projectOptions struct {
	configPath   string
	monthlyCost  float64
	inflation    float64
	systemCost   float64
	outputFormat string
	logLevel     string
}

type serveOptions struct {
	serverConfigPath string
	configPath       string
	maxBodySize      string
	logLevel         string
}

func newRootCommand(stdout io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "solar-forecast",
		Short:         "Ten-year savings projection for subsidised solar installations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)

	root.AddCommand(newProjectCommand(), newServeCommand(), newVersionCommand())
	return root
}

func newProjectCommand() *cobra.Command {
	opts := &projectOptions{}
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Compute the projection and print it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProject(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	flags.Float64Var(&opts.monthlyCost, "monthly-cost", 0, "current monthly energy spend override")
	flags.Float64Var(&opts.inflation, "inflation", 0, "annual energy inflation percentage override")
	flags.Float64Var(&opts.systemCost, "system-cost", 0, "total system cost override")
	flags.StringVar(&opts.outputFormat, "output-format", "", "type of output override: pretty, csv, json")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	return cmd
}

func newServeCommand() *cobra.Command {
	opts := &serveOptions{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.serverConfigPath, "server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	flags.StringVar(&opts.configPath, "config", constants.DefaultConfigFile, "path to configuration file")
	flags.StringVar(&opts.maxBodySize, "max-body-size", "", "maximum request body size override (e.g. 64K, 1M)")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	return cmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

// loadConfiguration reads path when it was given explicitly or exists, and
// falls back to the built-in defaults otherwise.
func loadConfiguration(path string, explicit bool) (*config.Configuration, error) {
	if !explicit {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	conf, err := config.LoadConfiguration(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration at %s (see %s for the format): %w", path, constants.ExampleConfigFile, err)
	}
	return conf, nil
}

func runProject(cmd *cobra.Command, opts *projectOptions) error {
	flags := cmd.Flags()

	conf, err := loadConfiguration(opts.configPath, flags.Changed("config"))
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(conf.Logging, opts.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI flags take precedence over the config file.
	if flags.Changed("monthly-cost") {
		conf.Inputs.MonthlyCostNow = opts.monthlyCost
	}
	if flags.Changed("inflation") {
		conf.Inputs.AnnualInflationPercent = opts.inflation
	}
	if flags.Changed("system-cost") {
		conf.Inputs.TotalSystemCost = opts.systemCost
	}
	if err := validation.ValidateInputs(conf.Inputs); err != nil {
		return err
	}

	outputFormat := conf.Output.Format
	if opts.outputFormat != "" {
		outputFormat = opts.outputFormat
	}
	if outputFormat == "" {
		outputFormat = constants.OutputFormatPretty
	}
	if err := validation.ValidateOutputFormat(outputFormat); err != nil {
		return err
	}

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.project"),
		)
	}

	p, err := projection.CalculateWith(conf.Inputs, conf.Program)
	if err != nil {
		return fmt.Errorf("failed to compute projection: %w", err)
	}
	logger.Debug("projection computed",
		zap.String("op", "main.project"),
		zap.Float64("ownerInvestment", p.Split.OwnerInvestment),
		zap.Float64("firstYearSavings", p.FirstYearSavings),
		zap.Int("breakEvenYear", p.BreakEvenYear),
	)

	return output.Write(cmd.OutOrStdout(), p, outputFormat)
}

func runServe(cmd *cobra.Command, opts *serveOptions) error {
	flags := cmd.Flags()

	conf, err := loadConfiguration(opts.configPath, flags.Changed("config"))
	if err != nil {
		return err
	}

	srvCfg, err := dashboard.LoadConfig(opts.serverConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load server configuration at %s: %w", opts.serverConfigPath, err)
	}
	if opts.maxBodySize != "" {
		size, err := dashboard.ParseSize(opts.maxBodySize)
		if err != nil {
			return fmt.Errorf("invalid --max-body-size: %w", err)
		}
		srvCfg.SetBodySizeBytes(size)
	}

	loggingConfig := srvCfg.Logging
	if loggingConfig == (config.LoggingConfig{}) {
		loggingConfig = conf.Logging
	}
	logger, err := logging.NewLogger(loggingConfig, opts.logLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	for _, warning := range conf.ValidateConfiguration() {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main.serve"),
		)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return dashboard.Run(ctx, logger, srvCfg, conf, version)
}

func main() {
	if err := newRootCommand(os.Stdout).ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "{\"op\": \"main\", \"level\": \"fatal\", \"error\": %q}\n", err.Error())
		os.Exit(1)
	}
}
