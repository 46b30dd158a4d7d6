package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cty/cty"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	types typeFlags
	Input string
}

// ValidationResult is the JSON payload of a successful validation.
type ValidationResult struct {
	valueOutput
	Steps      int    `json:"steps"`
	MaxDepth   int    `json:"max_depth"`
	Stopped    bool   `json:"stopped"`
	StopReason string `json:"stop_reason,omitempty"`
	StopPath   string `json:"stop_path,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate --type T --input FILE",
		Short: "Validate data against a type",
		Long: `Validate JSON or YAML data against a type descriptor or CUE schema.

Containment limits from the configuration apply: data nested beyond
validation.max_depth, or revisited more than validation.max_revisits
times, is replaced by unknown values and reported as stopped.

Examples:
  cty validate --type '["list","number"]' --input data.json
  cty validate --schema person.cue --expr '#Person' --input alice.yaml
  echo '{"a": 1}' | cty validate --type '["map","number"]' --input -`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, cmd)
		},
	}

	opts.types.register(cmd)
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "input file (JSON or YAML, - for stdin)")

	return cmd
}

func runValidate(opts *ValidateOptions, cmd *cobra.Command) error {
	if err := opts.prepare(cmd); err != nil {
		return err
	}
	f := opts.formatter(cmd)

	t, err := opts.types.resolve()
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeType, "invalid type", err, nil)
	}
	raw, err := readInput(opts.Input, cmd.InOrStdin())
	if err != nil {
		return f.Fail(ExitCommandError, ErrCodeInput, "failed to read input", err, nil)
	}

	f.VerboseLog("Validating %s against %s", opts.Input, cty.TypeString(t))
	val, stats, err := opts.validator().ValidateWithStats(t, raw)
	if err != nil {
		return f.Fail(ExitFailure, ErrCodeValidation, "validation failed", err, validationDetails(err))
	}

	result := ValidationResult{
		valueOutput: describeValue(val),
		Steps:       stats.Steps,
		MaxDepth:    stats.MaxDepth,
		Stopped:     stats.Stopped,
	}
	lines := []string{val.String()}
	if stats.Stopped {
		result.StopReason = string(stats.StopReason)
		result.StopPath = stats.StopPath.String()
		lines = append(lines, fmt.Sprintf("contained: %s limit reached at %q", stats.StopReason, result.StopPath))
	}
	return f.Success(result, lines...)
}

// validationDetails exposes the code and path of a validation error.
func validationDetails(err error) map[string]string {
	var ve *cty.ValidationError
	if !errors.As(err, &ve) {
		return nil
	}
	return map[string]string{"code": string(ve.Code), "path": ve.Path.String()}
}
