package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/roach88/cty/cty"
	"github.com/roach88/cty/internal/schema"
)

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	var expr string

	cmd := &cobra.Command{
		Use:   "schema FILE.cue --expr PATH",
		Short: "Compile a CUE schema to a type descriptor",
		Long: `Compile the CUE value at PATH to a type descriptor.

The printed descriptor can be passed to --type of the other commands.

Examples:
  cty schema person.cue --expr '#Person'`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rootOpts.prepare(cmd); err != nil {
				return err
			}
			f := rootOpts.formatter(cmd)

			t, err := schema.LoadFile(args[0], expr)
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeType, "failed to compile schema", err, nil)
			}
			desc, err := cty.MarshalTypeJSON(t)
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeType, "type has no descriptor", err, nil)
			}
			return f.Success(map[string]json.RawMessage{"type": desc}, string(desc))
		},
	}

	cmd.Flags().StringVar(&expr, "expr", "", "CUE path of the type, e.g. #Person")
	_ = cmd.MarkFlagRequired("expr")
	return cmd
}
