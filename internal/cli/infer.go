package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/cty/cty"
)

// NewInferCommand creates the infer command.
func NewInferCommand(rootOpts *RootOptions) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "infer --input FILE",
		Short: "Infer the type of data",
		Long: `Infer the most specific type of JSON or YAML data.

Mappings become objects, uniform sequences become lists and mixed or
empty sequences become lists of dynamic.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			f := rootOpts.formatter(cmd)

			raw, err := readInput(input, cmd.InOrStdin())
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "failed to read input", err, nil)
			}
			val, err := rootOpts.validator().Infer(raw)
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeValidation, "inference failed", err, validationDetails(err))
			}
			out := describeValue(val)
			return f.Success(out, cty.TypeString(val.Type()))
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "input file (JSON or YAML, - for stdin)")
	return cmd
}
