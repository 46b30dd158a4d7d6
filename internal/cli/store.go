package cli

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/cty/cty"
	"github.com/roach88/cty/internal/store"
)

// StoreOptions holds flags shared by the store subcommands.
type StoreOptions struct {
	*RootOptions
	DB string
}

// SnapshotOutput is the JSON shape of a stored snapshot.
type SnapshotOutput struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	TypeHash string `json:"type_hash"`
	Version  int64  `json:"version"`
	valueOutput
}

// EntryOutput is the JSON shape of a listed snapshot.
type EntryOutput struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     json.RawMessage `json:"type"`
	TypeHash string          `json:"type_hash"`
	Version  int64           `json:"version"`
	Size     int             `json:"size"`
}

// NewStoreCommand creates the store command and its subcommands.
func NewStoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Manage value snapshots",
		Long: `Store, load and list named value snapshots in a SQLite database.

The database is taken from --db, or from store.path in the configuration.

Examples:
  cty store --db values.db put alice --type '["object",{"name":"string"}]' --input alice.json
  cty store --db values.db get alice
  cty store --db values.db list --type '["object",{"name":"string"}]'
  cty store --db values.db delete alice`,
	}
	cmd.PersistentFlags().StringVar(&opts.DB, "db", "", "path to the snapshot database")

	cmd.AddCommand(newStorePutCommand(opts))
	cmd.AddCommand(newStoreGetCommand(opts))
	cmd.AddCommand(newStoreListCommand(opts))
	cmd.AddCommand(newStoreDeleteCommand(opts))
	return cmd
}

// open prepares the root options and opens the database.
func (o *StoreOptions) open(cmd *cobra.Command) (*store.Store, *OutputFormatter, error) {
	if err := o.prepare(cmd); err != nil {
		return nil, nil, err
	}
	f := o.formatter(cmd)

	path := o.DB
	if path == "" {
		path = o.config.Store.Path
	}
	if path == "" {
		return nil, f, f.Fail(ExitCommandError, ErrCodeConfig, "no database: pass --db or set store.path", nil, nil)
	}
	st, err := store.Open(path, store.WithLogger(o.logger))
	if err != nil {
		return nil, f, f.Fail(ExitCommandError, ErrCodeStore, "failed to open database", err, nil)
	}
	f.VerboseLog("Opened %s", path)
	return st, f, nil
}

func newStorePutCommand(opts *StoreOptions) *cobra.Command {
	var (
		types typeFlags
		input string
	)

	cmd := &cobra.Command{
		Use:           "put NAME --type T --input FILE",
		Short:         "Validate data and store it under NAME",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, f, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			t, err := types.resolve()
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeType, "invalid type", err, nil)
			}
			raw, err := readInput(input, cmd.InOrStdin())
			if err != nil {
				return f.Fail(ExitCommandError, ErrCodeInput, "failed to read input", err, nil)
			}
			val, err := opts.validator().Validate(t, raw)
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeValidation, "validation failed", err, validationDetails(err))
			}
			snap, err := st.Put(cmd.Context(), args[0], val)
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeStore, "failed to store snapshot", err, codecDetails(err))
			}
			return f.Success(snapshotOutput(snap), fmt.Sprintf("stored %s version %d", snap.Name, snap.Version))
		},
	}

	types.register(cmd)
	cmd.Flags().StringVarP(&input, "input", "i", "", "input file (JSON or YAML, - for stdin)")
	return cmd
}

func newStoreGetCommand(opts *StoreOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "get NAME",
		Short:         "Load the snapshot stored under NAME",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, f, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return storeFailure(f, err)
			}
			return f.Success(snapshotOutput(snap), snap.Value.String())
		},
	}
}

func newStoreListCommand(opts *StoreOptions) *cobra.Command {
	var types typeFlags

	cmd := &cobra.Command{
		Use:           "list [--type T]",
		Short:         "List snapshots, optionally only those of one type",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, f, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var entries []store.Entry
			if types.Type == "" && types.Schema == "" {
				entries, err = st.List(cmd.Context())
			} else {
				var t cty.Type
				if t, err = types.resolve(); err != nil {
					return f.Fail(ExitCommandError, ErrCodeType, "invalid type", err, nil)
				}
				entries, err = st.FindByType(cmd.Context(), t)
			}
			if err != nil {
				return f.Fail(ExitFailure, ErrCodeStore, "failed to list snapshots", err, nil)
			}

			out := make([]EntryOutput, 0, len(entries))
			lines := make([]string, 0, len(entries))
			for _, e := range entries {
				out = append(out, EntryOutput{
					ID:       e.ID,
					Name:     e.Name,
					Type:     json.RawMessage(e.TypeJSON),
					TypeHash: e.TypeHash,
					Version:  e.Version,
					Size:     e.Size,
				})
				lines = append(lines, fmt.Sprintf("%s\tv%d\t%s\t%d bytes", e.Name, e.Version, e.TypeJSON, e.Size))
			}
			if len(lines) == 0 {
				lines = append(lines, "No snapshots found.")
			}
			return f.Success(out, lines...)
		},
	}

	types.register(cmd)
	return cmd
}

func newStoreDeleteCommand(opts *StoreOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "delete NAME",
		Short:         "Delete the snapshot stored under NAME",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, f, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.Delete(cmd.Context(), args[0]); err != nil {
				return storeFailure(f, err)
			}
			return f.Success(map[string]string{"deleted": args[0]}, "deleted "+args[0])
		},
	}
}

func storeFailure(f *OutputFormatter, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return f.Fail(ExitFailure, ErrCodeNotFound, "snapshot not found", err, nil)
	case errors.Is(err, store.ErrCorrupt):
		return f.Fail(ExitFailure, ErrCodeStore, "snapshot is corrupt", err, nil)
	}
	return f.Fail(ExitFailure, ErrCodeStore, "store operation failed", err, nil)
}

func snapshotOutput(s store.Snapshot) SnapshotOutput {
	return SnapshotOutput{
		ID:          s.ID,
		Name:        s.Name,
		TypeHash:    s.TypeHash,
		Version:     s.Version,
		valueOutput: describeValue(s.Value),
	}
}
