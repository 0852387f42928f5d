package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/factdb/internal/config"
	"github.com/roach88/factdb/internal/logging"
)

// RootOptions holds global flags for all commands. After the persistent
// pre-run, Database, Model and MetricsListen hold the resolved config
// (flag > env > factdb.yaml > default).
type RootOptions struct {
	Verbose       bool
	Format        string // "json" | "text"
	ConfigDir     string
	Database      string
	Model         string
	LogFormat     string
	MetricsListen string

	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// configFlags are the root flags bound to config keys.
var configFlags = []string{config.FlagDatabase, config.FlagModel, config.FlagLogFormat, config.FlagMetrics}

// NewRootCommand creates the root command for the factdb CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "factdb",
		Short: "factdb - an immutable fact store with a specification query language",
		Long: `factdb stores immutable, content-addressed facts and answers
specifications written against a fact type model.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.resolve(cmd)
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigDir, "config", "", "directory holding factdb.yaml (default: working directory)")
	config.AddStringFlag(cmd, config.Flags, config.FlagDatabase, &opts.Database)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &opts.Model)
	config.AddStringFlag(cmd, config.Flags, config.FlagLogFormat, &opts.LogFormat)
	config.AddStringFlag(cmd, config.Flags, config.FlagMetrics, &opts.MetricsListen)

	cmd.AddCommand(NewDescribeCommand(opts))
	cmd.AddCommand(NewSaveCommand(opts))
	cmd.AddCommand(NewLoadCommand(opts))
	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))

	return cmd
}

// resolve reads the config chain and builds the process logger.
func (o *RootOptions) resolve(cmd *cobra.Command) error {
	v, err := config.InitViper(o.ConfigDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "config", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, configFlags)
	cfg, err := config.Load(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "config", err)
	}

	o.Database = cfg.Database
	o.Model = cfg.Model
	o.LogFormat = cfg.Log.Format
	o.MetricsListen = cfg.Metrics.Listen
	o.Logger = logging.New(
		logging.WithWriter(cmd.ErrOrStderr()),
		logging.WithDebug(o.Verbose || cfg.Log.Debug),
		logging.WithPretty(cfg.Log.Format == "pretty"),
		logging.WithJSON(cfg.Log.Format == "json"),
	)
	slog.SetDefault(o.Logger)
	return nil
}

// logger returns the resolved logger, or a silent one when the command
// runs without the root pre-run (as in tests).
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logging.Discard()
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}
