package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/agilira/orpheus/pkg/orpheus"
	"go.uber.org/zap"

	"watchf/internal/config"
	"watchf/internal/logging"
	"watchf/internal/supervisor"
)

var version = "dev"

// cli keeps the error of the command that ran so that main can turn it
// into an exit code.
type cli struct {
	stdout io.Writer
	stderr io.Writer
	err    error
}

func main() {
	c := &cli{stdout: os.Stdout, stderr: os.Stderr}
	app := c.app()

	if err := app.Run(os.Args[1:]); err != nil && c.err == nil {
		c.err = err
	}
	os.Exit(RaiseException(c.stderr, c.err))
}

func (c *cli) app() *orpheus.App {
	app := orpheus.New("watchf").
		SetDescription("Rebuild on change and restart the built program").
		SetVersion(version)

	buildCmd := orpheus.NewCommand("build", "Build now and again whenever a watched file changes").
		SetHandler(c.buildCommand).
		AddFlag("config", "c", config.DefaultPath, "Configuration file").
		AddBoolFlag("verbose", "v", false, "Enable debug logging").
		AddBoolFlag("once", "", false, "Run the initial build only and exit")

	runCmd := orpheus.NewCommand("run", "Build, start run_cmd, and rebuild and restart on change").
		SetHandler(c.runCommand).
		AddFlag("config", "c", config.DefaultPath, "Configuration file").
		AddBoolFlag("verbose", "v", false, "Enable debug logging")

	validateCmd := orpheus.NewCommand("validate", "Load the configuration and print it resolved").
		SetHandler(c.validateCommand).
		AddFlag("config", "c", config.DefaultPath, "Configuration file").
		AddFlag("format", "f", "table", "Output format (table, json, yaml)")

	app.AddCommand(buildCmd)
	app.AddCommand(runCmd)
	app.AddCommand(validateCmd)
	return app
}

func (c *cli) buildCommand(ctx *orpheus.Context) error {
	c.err = c.start(ctx.GetFlagString("config"), ctx.GetFlagBool("verbose"), false, ctx.GetFlagBool("once"))
	return nil
}

func (c *cli) runCommand(ctx *orpheus.Context) error {
	c.err = c.start(ctx.GetFlagString("config"), ctx.GetFlagBool("verbose"), true, false)
	return nil
}

func (c *cli) validateCommand(ctx *orpheus.Context) error {
	c.err = c.validate(ctx.GetFlagString("config"), ctx.GetFlagString("format"))
	return nil
}

// loadConfig reads path and marks every failure as a configuration error.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errConfig, err)
	}
	return cfg, nil
}

func (c *cli) start(path string, verbose, supervise, once bool) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	logger := logging.New(logging.Config{
		Writer:  c.stderr,
		Format:  logging.FormatFromEnv(),
		Verbose: verbose,
	})
	defer func() { _ = logger.Sync() }()
	for _, warning := range cfg.Warnings {
		logger.Warn(warning, zap.String("config", cfg.Path))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s := &session{
		cfg:       cfg,
		logger:    logger,
		supervise: supervise,
		once:      once,
		stdout:    c.stdout,
		stderr:    c.stderr,
	}
	err = s.run(ctx)
	if ctx.Err() != nil && err == nil {
		logger.Info("shutting down")
	}
	return err
}

func (c *cli) validate(path, format string) error {
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}
	if _, err := supervisor.ParseSignal(cfg.StopSignal); err != nil {
		return fmt.Errorf("%w: stop_signal: %w", errConfig, err)
	}
	return printConfig(c.stdout, cfg, format)
}
