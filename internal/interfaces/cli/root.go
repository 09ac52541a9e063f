// Package cli implements the operalab command line.
package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/turtacn/OperaLab/internal/app"
	"github.com/turtacn/OperaLab/internal/config"
	"github.com/turtacn/OperaLab/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/OperaLab/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Output formats.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputCSV  = "csv"
)

// cliContextKey is the context key for CLIContext.
type cliContextKey struct{}

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath   string
	LogLevel     string
	OutputFormat string
	CatalogPath  string
	Verbose      bool
}

// CLIContext carries initialized dependencies through the command tree.
type CLIContext struct {
	Config       *config.Config
	Logger       logging.Logger
	OutputFormat string
	Verbose      bool

	configPath  string
	catalogPath string
	app         *app.App
}

// App wires the application on first use.  Call Close when the command is
// done.
func (c *CLIContext) App(ctx context.Context) (*app.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	var opts []app.Option
	if c.catalogPath != "" {
		opts = append(opts, app.WithCatalogPath(c.catalogPath))
	}
	a, err := app.New(ctx, c.Config, c.Logger, opts...)
	if err != nil {
		return nil, err
	}
	c.app = a
	return a, nil
}

// Close releases the application, if one was built.
func (c *CLIContext) Close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}

// ExitError carries a process exit status other than the default 1.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps err to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return 1
}

// NewRootCommand creates the root command with its global flags and every
// subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "operalab",
		Short: "OperaLab validates laboratory analysis batches",
		Long: "OperaLab checks a batch of laboratory results for internal consistency\n" +
			"(dissolved vs total, QC recovery, duplicate precision) and, optionally,\n" +
			"for conformity with a regulatory limit set.",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return persistentPreRun(cmd, opts)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: ./operalab.yaml when present)")
	pf.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	pf.StringVarP(&opts.OutputFormat, "output", "o", OutputText, "output format (text, json, csv)")
	pf.StringVar(&opts.CatalogPath, "catalog", "", "regulatory catalog file (overrides catalog.path)")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "print every result table and debug logs")

	cmd.AddCommand(
		NewEvaluateCmd(),
		NewDuplicatesCmd(),
		NewLegislationCmd(),
		NewSamplesCmd(),
		NewCatalogCmd(),
		NewServeCmd(),
		NewWatchCmd(),
	)
	return cmd
}

// persistentPreRun initializes config and logger, then stores CLIContext.
func persistentPreRun(cmd *cobra.Command, opts *RootOptions) error {
	switch strings.ToLower(opts.OutputFormat) {
	case OutputText, OutputJSON, OutputCSV:
	default:
		return errors.InvalidParam("output must be text, json or csv").WithDetail(opts.OutputFormat)
	}

	cfg, configPath, err := initConfig(opts)
	if err != nil {
		return err
	}
	logger, err := initLogger(opts)
	if err != nil {
		return err
	}
	logging.SetDefault(logger)

	cliCtx := &CLIContext{
		Config:       cfg,
		Logger:       logger,
		OutputFormat: strings.ToLower(opts.OutputFormat),
		Verbose:      opts.Verbose,
		configPath:   configPath,
		catalogPath:  opts.CatalogPath,
	}
	cmd.SetContext(context.WithValue(cmd.Context(), cliContextKey{}, cliCtx))
	return nil
}

// initConfig loads configuration with priority: env > file > defaults.  It
// also returns the file it read, empty when none.
func initConfig(opts *RootOptions) (*config.Config, string, error) {
	path := opts.ConfigPath
	if path == "" {
		if _, err := os.Stat("operalab.yaml"); err == nil {
			path = "operalab.yaml"
		}
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}

// initLogger creates a console logger on stderr so stdout carries results
// only.
func initLogger(opts *RootOptions) (logging.Logger, error) {
	level := opts.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	return logging.NewLogger(logging.LogConfig{
		Level:            level,
		Format:           "console",
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	})
}

// GetCLIContext extracts CLIContext from a cobra command's context.
func GetCLIContext(cmd *cobra.Command) (*CLIContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, errors.Internal("command context is nil")
	}
	cliCtx, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok || cliCtx == nil {
		return nil, errors.Internal("CLIContext not found in command context")
	}
	return cliCtx, nil
}

// withApp runs fn with the wired application and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(cc *CLIContext, a *app.App) error) error {
	cc, err := GetCLIContext(cmd)
	if err != nil {
		return err
	}
	a, err := cc.App(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := cc.Close(); cerr != nil {
			cc.Logger.Warn("failed to close application", logging.Err(cerr))
		}
	}()
	return fn(cc, a)
}

// Execute runs the command line and returns the process exit status.
func Execute() int {
	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		PrintError(rootCmd, err)
		return ExitCode(err)
	}
	return 0
}
