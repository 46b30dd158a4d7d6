package harness

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/cty/cty"
	"github.com/roach88/cty/cty/arith"
	"github.com/roach88/cty/cty/wire"
	"github.com/roach88/cty/internal/store"
	"github.com/roach88/cty/internal/testutil"
)

// Harness runs the cases of one scenario.
type Harness struct {
	validator *cty.Validator
	store     *store.Store
	logger    *slog.Logger
}

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	observer cty.Observer
}

// WithLogger sets the logger for the run. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithObserver attaches an observer to the scenario's validator.
func WithObserver(obs cty.Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

var unary = map[string]func(cty.Value) (cty.Value, error){
	"negate":   arith.Negate,
	"absolute": arith.Absolute,
}

var binary = map[string]func(a, b cty.Value) (cty.Value, error){
	"add":      arith.Add,
	"subtract": arith.Subtract,
	"multiply": arith.Multiply,
	"divide":   arith.Divide,
}

// Run executes a scenario and returns the per-case results.
//
// Each scenario runs against a fresh in-memory snapshot store and a fake
// clock, so results are reproducible. The returned error reports harness
// failures only; case failures are recorded in the result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	st, err := store.Open(":memory:",
		store.WithIDGenerator(testutil.NewSequentialIDs()),
		store.WithLogger(o.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	limits := cty.DefaultLimits()
	if l := scenario.Limits; l != nil {
		limits = cty.Limits{MaxDepth: l.MaxDepth, MaxRevisits: l.MaxRevisits, TimeBudget: l.TimeBudget}
	}
	vopts := []cty.ValidatorOption{
		cty.WithLimits(limits),
		cty.WithClock(testutil.NewFakeClock(scenario.ClockStep)),
		cty.WithLogger(o.logger),
	}
	if o.observer != nil {
		vopts = append(vopts, cty.WithObserver(o.observer))
	}

	h := &Harness{
		validator: cty.NewValidator(vopts...),
		store:     st,
		logger:    o.logger,
	}

	ctx := context.Background()
	result := NewResult(scenario.Name)
	for i := range scenario.Cases {
		c := &scenario.Cases[i]
		cr := h.runCase(ctx, c)
		h.logger.Debug("case finished",
			"scenario", scenario.Name,
			"case", c.Name,
			"op", cr.Op,
			"outcome", cr.Outcome,
			"pass", cr.Pass(),
			"event", "case_finished",
		)
		result.Add(cr)
	}
	return result, nil
}

// outcome is what executing a case produced, before expectations are
// checked.
type outcome struct {
	value cty.Value
	stats cty.Stats
	err   error
}

func (h *Harness) runCase(ctx context.Context, c *Case) CaseResult {
	cr := CaseResult{Name: c.Name, Op: c.op()}

	var out outcome
	switch c.op() {
	case OpValidate:
		out = h.validate(c)
	case OpRoundTrip:
		out = h.roundTrip(ctx, c, &cr)
	case OpDecode:
		out = h.decode(c)
	case OpInfer:
		out.value, out.err = h.validator.Infer(c.Input)
	case OpArith:
		out = h.arith(c)
	}

	switch {
	case out.err != nil:
		cr.Outcome = ExpectError
		cr.Error = out.err.Error()
	case out.stats.Stopped:
		cr.Outcome = ExpectContained
		cr.StopReason = string(out.stats.StopReason)
	default:
		cr.Outcome = ExpectValid
	}
	if out.err == nil {
		cr.Value = out.value.String()
	}

	checkCase(c, out, &cr)
	return cr
}

func (h *Harness) validate(c *Case) outcome {
	t, err := cty.TypeFromDescriptor(c.Type)
	if err != nil {
		return outcome{err: err}
	}
	v, stats, err := h.validator.ValidateWithStats(t, c.Input)
	return outcome{value: v, stats: stats, err: err}
}

// roundTrip validates the input, encodes it, decodes it again and stores it
// in the snapshot store. Every leg must give back an equal value.
func (h *Harness) roundTrip(ctx context.Context, c *Case, cr *CaseResult) outcome {
	out := h.validate(c)
	if out.err != nil {
		return out
	}
	t, _ := cty.TypeFromDescriptor(c.Type)

	data, err := wire.Marshal(out.value, t)
	if err != nil {
		return outcome{err: err}
	}
	cr.Wire = hex.EncodeToString(data)

	decoded, err := wire.Unmarshal(data, t)
	if err != nil {
		return outcome{err: fmt.Errorf("decode: %w", err)}
	}
	if !decoded.Equal(out.value) {
		cr.fail("decoded value %s differs from %s", decoded, out.value)
	}

	if _, err := h.store.Put(ctx, c.Name, out.value); err != nil {
		return outcome{err: fmt.Errorf("store: %w", err)}
	}
	snap, err := h.store.Get(ctx, c.Name)
	if err != nil {
		return outcome{err: fmt.Errorf("store: %w", err)}
	}
	if !snap.Type.Equals(t) {
		cr.fail("stored type %s differs from %s", cty.TypeString(snap.Type), cty.TypeString(t))
	}
	if !snap.Value.Equal(out.value) {
		cr.fail("stored value %s differs from %s", snap.Value, out.value)
	}
	return out
}

func (h *Harness) decode(c *Case) outcome {
	t, err := cty.TypeFromDescriptor(c.Type)
	if err != nil {
		return outcome{err: err}
	}
	data, err := hex.DecodeString(c.Wire)
	if err != nil {
		return outcome{err: err}
	}
	v, err := wire.Unmarshal(data, t)
	return outcome{value: v, err: err}
}

func (h *Harness) arith(c *Case) outcome {
	args := make([]cty.Value, len(c.Args))
	for i := range c.Args {
		v, err := c.Args[i].Build()
		if err != nil {
			return outcome{err: fmt.Errorf("args[%d]: %w", i, err)}
		}
		args[i] = v
	}

	var v cty.Value
	var err error
	if fn, ok := unary[c.Function]; ok {
		v, err = fn(args[0])
	} else if fn, ok := binary[c.Function]; ok {
		v, err = fn(args[0], args[1])
	} else {
		err = fmt.Errorf("unknown function %q", c.Function)
	}
	return outcome{value: v, err: err}
}

// errorPath returns the path carried by a validation or codec error.
func errorPath(err error) (cty.Path, bool) {
	var ve *cty.ValidationError
	if errors.As(err, &ve) {
		return ve.Path, true
	}
	var ce *wire.CodecError
	if errors.As(err, &ce) {
		return ce.Path, true
	}
	return nil, false
}
