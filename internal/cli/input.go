package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cty/cty"
	"github.com/roach88/cty/internal/schema"
)

// typeFlags selects a type either as a descriptor or from a CUE schema.
type typeFlags struct {
	Type   string
	Schema string
	Expr   string
}

func (f *typeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.Type, "type", "t", "", `type descriptor, e.g. '["list","string"]' or number`)
	cmd.Flags().StringVar(&f.Schema, "schema", "", "CUE file holding the type")
	cmd.Flags().StringVar(&f.Expr, "expr", "", "CUE path of the type inside --schema, e.g. #Person")
}

// resolve returns the selected type.
func (f *typeFlags) resolve() (cty.Type, error) {
	switch {
	case f.Type != "" && f.Schema != "":
		return nil, errors.New("use either --type or --schema, not both")
	case f.Type != "":
		return parseTypeFlag(f.Type)
	case f.Schema != "":
		if f.Expr == "" {
			return nil, errors.New("--expr is required with --schema")
		}
		return schema.LoadFile(f.Schema, f.Expr)
	}
	return nil, errors.New("a type is required: pass --type or --schema")
}

// parseTypeFlag accepts a JSON descriptor; a bare primitive name such as
// number needs no quotes.
func parseTypeFlag(s string) (cty.Type, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, `"`) && !strings.HasPrefix(s, "[") {
		s = `"` + s + `"`
	}
	return cty.ParseTypeJSON([]byte(s))
}

// readFile reads path, or stdin when path is "-".
func readFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// readInput reads raw data for validation. JSON is tried first so numbers
// keep their exact decimal text; anything else is parsed as YAML.
func readInput(path string, stdin io.Reader) (any, error) {
	if path == "" {
		return nil, errors.New("--input is required")
	}
	data, err := readFile(path, stdin)
	if err != nil {
		return nil, err
	}
	return decodeData(data)
}

func decodeData(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err == nil {
		if _, err := dec.Token(); errors.Is(err, io.EOF) {
			return v, nil
		}
	}

	v = nil
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("input is neither JSON nor YAML: %w", err)
	}
	return v, nil
}

// valueOutput is the JSON shape of a value in command output.
type valueOutput struct {
	Type   json.RawMessage `json:"type"`
	Value  string          `json:"value"`
	Native any             `json:"native,omitempty"`
	Marks  []string        `json:"marks,omitempty"`
}

func describeValue(v cty.Value) valueOutput {
	out := valueOutput{Value: v.String()}
	if b, err := cty.MarshalTypeJSON(v.Type()); err == nil {
		out.Type = b
	} else {
		out.Type, _ = json.Marshal(v.Type().FriendlyName())
	}
	plain, marks := v.UnmarkDeep()
	for _, m := range marks.Sorted() {
		out.Marks = append(out.Marks, fmt.Sprint(m))
	}
	if plain.IsWhollyKnown() {
		if native, err := plain.Native(); err == nil {
			out.Native = native
		}
	}
	return out
}
