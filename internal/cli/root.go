package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/roach88/cty/cty"
	"github.com/roach88/cty/internal/config"
	"github.com/roach88/cty/internal/metrics"
)

// RootOptions holds global flags for all commands and the state derived
// from them.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string

	config    *config.Config
	logger    *slog.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the cty CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cty",
		Short: "cty - structural types and values",
		Long: `Validate, infer, encode and store values described by type descriptors
or CUE schemas.

Type descriptors are JSON: "string", "number", "bool", "dynamic",
["list", T], ["set", T], ["map", T], ["tuple", [T...]] and
["object", {"name": T}].`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.prepare(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.writeMetrics(cmd.ErrOrStderr())
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to YAML configuration file")

	// Add subcommands
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewInferCommand(opts))
	cmd.AddCommand(NewEncodeCommand(opts))
	cmd.AddCommand(NewDecodeCommand(opts))
	cmd.AddCommand(NewSchemaCommand(opts))
	cmd.AddCommand(NewStoreCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	return slices.Contains(ValidFormats, format)
}

// prepare loads configuration and builds the logger and metrics collector.
// It runs once per RootOptions; commands call it so they also work when
// executed without the root command.
func (o *RootOptions) prepare(cmd *cobra.Command) error {
	if o.config != nil {
		return nil
	}

	var (
		cfg *config.Config
		err error
	)
	if o.ConfigPath != "" {
		cfg, err = config.Load(o.ConfigPath)
	} else {
		// Defaults plus CTY_* environment overrides.
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	if o.Verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := cfg.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to configure logging", err)
	}

	o.config = cfg
	o.logger = logger
	if cfg.Metrics.Enabled {
		o.registry = prometheus.NewRegistry()
		o.collector = metrics.NewWithRegistry(cfg.Metrics.Namespace, o.registry)
	}
	return nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   o.Verbose,
	}
}

// validator returns a validator configured from the loaded configuration.
func (o *RootOptions) validator() *cty.Validator {
	vopts := []cty.ValidatorOption{
		cty.WithLimits(o.config.Limits()),
		cty.WithLogger(o.logger),
	}
	if o.collector != nil {
		vopts = append(vopts, cty.WithObserver(o.collector))
	}
	return cty.NewValidator(vopts...)
}

// writeMetrics prints the collected metrics in the Prometheus text format
// when metrics are enabled.
func (o *RootOptions) writeMetrics(w io.Writer) error {
	if o.registry == nil {
		return nil
	}
	families, err := o.registry.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, f := range families {
		if _, err := expfmt.MetricFamilyToText(w, f); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
