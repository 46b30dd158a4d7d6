package harness

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"

	"github.com/roach88/cty/cty"
)

// Scenario is a named list of conformance cases sharing one validator
// configuration.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description"`

	// Limits overrides the default containment limits. When present, a
	// zero field disables that check.
	Limits *LimitsSpec `yaml:"limits,omitempty"`

	// ClockStep is how far the validator clock advances per reading. Zero
	// freezes time, so time budgets never expire.
	ClockStep time.Duration `yaml:"clock_step,omitempty"`

	Cases []Case `yaml:"cases"`
}

// LimitsSpec mirrors cty.Limits in YAML.
type LimitsSpec struct {
	MaxDepth    int           `yaml:"max_depth"`
	MaxRevisits int           `yaml:"max_revisits"`
	TimeBudget  time.Duration `yaml:"time_budget"`
}

// Case is a single check.
type Case struct {
	Name string `yaml:"name"`

	// Op selects what the case does; see the Op* constants. Defaults to
	// validate.
	Op string `yaml:"op,omitempty"`

	// Type is a type descriptor written as YAML, for example
	// ["list", "string"] or ["object", {name: string}].
	Type any `yaml:"type,omitempty"`

	// Input is the raw data for validate, roundtrip and infer.
	Input any `yaml:"input,omitempty"`

	// Wire is hex-encoded wire bytes. For decode it is the input; for
	// roundtrip it is the expected encoding.
	Wire string `yaml:"wire,omitempty"`

	// Function and Args drive arith cases.
	Function string    `yaml:"function,omitempty"`
	Args     []Operand `yaml:"args,omitempty"`

	// Expect is the expected outcome; see the Expect* constants. Defaults
	// to valid.
	Expect string `yaml:"expect,omitempty"`

	// ErrorContains is a substring the error message must contain.
	ErrorContains string `yaml:"error_contains,omitempty"`

	// Path is the expected error path, or the stop path of a contained
	// validation.
	Path string `yaml:"path,omitempty"`

	// Render is the expected diagnostic rendering of the result.
	Render string `yaml:"render,omitempty"`

	// Result is the expected number produced by an arith case.
	Result *Operand `yaml:"result,omitempty"`

	// InferredType is the descriptor an infer case must produce.
	InferredType any `yaml:"inferred_type,omitempty"`
}

// Case operations.
const (
	OpValidate  = "validate"
	OpRoundTrip = "roundtrip"
	OpDecode    = "decode"
	OpInfer     = "infer"
	OpArith     = "arith"
)

// Expected outcomes.
const (
	ExpectValid     = "valid"
	ExpectError     = "error"
	ExpectContained = "contained"
)

// arity lists the supported arith functions.
var arity = map[string]int{
	"add":      2,
	"subtract": 2,
	"multiply": 2,
	"divide":   2,
	"negate":   1,
	"absolute": 1,
}

func (c *Case) op() string {
	if c.Op == "" {
		return OpValidate
	}
	return c.Op
}

func (c *Case) expect() string {
	if c.Expect == "" {
		return ExpectValid
	}
	return c.Expect
}

// Operand describes a number, known or not, for arith cases.
type Operand struct {
	// Value is a number, or a string holding a decimal literal.
	Value   any        `yaml:"value,omitempty"`
	Null    bool       `yaml:"null,omitempty"`
	Unknown bool       `yaml:"unknown,omitempty"`
	NotNull bool       `yaml:"not_null,omitempty"`
	Lower   *BoundSpec `yaml:"lower,omitempty"`
	Upper   *BoundSpec `yaml:"upper,omitempty"`
	Marks   []string   `yaml:"marks,omitempty"`
}

// BoundSpec is one end of a numeric range.
type BoundSpec struct {
	Value     string `yaml:"value"`
	Inclusive bool   `yaml:"inclusive,omitempty"`
}

// Build returns the number value the operand describes.
func (o *Operand) Build() (cty.Value, error) {
	var v cty.Value
	switch {
	case o.Null:
		v = cty.NullVal(cty.Number)
	case o.Unknown:
		lo, err := o.Lower.bound()
		if err != nil {
			return cty.NilVal, fmt.Errorf("lower: %w", err)
		}
		hi, err := o.Upper.bound()
		if err != nil {
			return cty.NilVal, fmt.Errorf("upper: %w", err)
		}
		v, err = cty.RefinedUnknownVal(cty.Number, cty.Refinement{NotNull: o.NotNull, Lower: lo, Upper: hi})
		if err != nil {
			return cty.NilVal, err
		}
	case o.Value == nil:
		return cty.NilVal, fmt.Errorf("operand needs a value, null or unknown")
	default:
		var err error
		if s, ok := o.Value.(string); ok {
			v, err = cty.ParseNumberVal(s)
		} else {
			v, err = cty.Validate(cty.Number, o.Value)
		}
		if err != nil {
			return cty.NilVal, err
		}
	}
	for _, m := range o.Marks {
		v = v.Mark(m)
	}
	return v, nil
}

func (b *BoundSpec) bound() (*cty.Bound, error) {
	if b == nil {
		return nil, nil
	}
	d, _, err := apd.NewFromString(b.Value)
	if err != nil {
		return nil, fmt.Errorf("bound %q: %w", b.Value, err)
	}
	return cty.NewBound(d, b.Inclusive), nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Cases) == 0 {
		return fmt.Errorf("cases list is required and must be non-empty")
	}
	if s.Limits != nil && (s.Limits.MaxDepth < 0 || s.Limits.MaxRevisits < 0 || s.Limits.TimeBudget < 0) {
		return fmt.Errorf("limits must not be negative")
	}

	seen := make(map[string]bool, len(s.Cases))
	for i := range s.Cases {
		c := &s.Cases[i]
		if c.Name == "" {
			return fmt.Errorf("cases[%d]: name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("cases[%d]: duplicate name %q", i, c.Name)
		}
		seen[c.Name] = true
		if err := validateCase(c); err != nil {
			return fmt.Errorf("cases[%d] (%s): %w", i, c.Name, err)
		}
	}
	return nil
}

func validateCase(c *Case) error {
	switch c.expect() {
	case ExpectValid, ExpectError, ExpectContained:
	default:
		return fmt.Errorf("unknown expect %q", c.Expect)
	}
	if c.ErrorContains != "" && c.expect() != ExpectError {
		return fmt.Errorf("error_contains requires expect: error")
	}

	switch c.op() {
	case OpValidate, OpRoundTrip:
		if c.Type == nil {
			return fmt.Errorf("type is required for %s", c.op())
		}
	case OpDecode:
		if c.Type == nil || c.Wire == "" {
			return fmt.Errorf("type and wire are required for decode")
		}
		if _, err := hex.DecodeString(c.Wire); err != nil {
			return fmt.Errorf("wire: %w", err)
		}
	case OpInfer:
	case OpArith:
		n, ok := arity[c.Function]
		if !ok {
			return fmt.Errorf("unknown function %q", c.Function)
		}
		if len(c.Args) != n {
			return fmt.Errorf("%s takes %d args, got %d", c.Function, n, len(c.Args))
		}
	default:
		return fmt.Errorf("unknown op %q", c.Op)
	}

	if c.expect() == ExpectContained && c.op() != OpValidate {
		return fmt.Errorf("expect: contained only applies to validate")
	}
	if c.Type != nil {
		if _, err := cty.TypeFromDescriptor(c.Type); err != nil {
			return fmt.Errorf("type: %w", err)
		}
	}
	if c.InferredType != nil {
		if _, err := cty.TypeFromDescriptor(c.InferredType); err != nil {
			return fmt.Errorf("inferred_type: %w", err)
		}
	}
	return nil
}
