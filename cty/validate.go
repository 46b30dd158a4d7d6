package cty

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/unicode/norm"
)

// Default containment limits. Legitimate data nests well past a thousand
// levels, so the depth limit is generous; genuine cycles are caught by the
// revisit allowance long before it is reached.
const (
	DefaultMaxDepth    = 2000
	DefaultMaxRevisits = 100
	DefaultTimeBudget  = 30 * time.Second
)

// Limits bounds a single validation call. A zero field disables that check,
// except that disabling both MaxDepth and MaxRevisits leaves DefaultMaxDepth
// in force: without either a cyclic input would recurse without bound.
type Limits struct {
	MaxDepth    int
	MaxRevisits int
	TimeBudget  time.Duration
}

func (l Limits) depthLimit() int {
	if l.MaxDepth <= 0 && l.MaxRevisits <= 0 {
		return DefaultMaxDepth
	}
	return l.MaxDepth
}

// DefaultLimits returns the default containment limits.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:    DefaultMaxDepth,
		MaxRevisits: DefaultMaxRevisits,
		TimeBudget:  DefaultTimeBudget,
	}
}

// Clock supplies the time used for the validation time budget.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Observer receives the statistics of every validation call. err is the
// validation error, if any. Implementations must be safe for concurrent use
// when the validator is shared.
type Observer interface {
	ObserveValidation(t Type, stats Stats, err error)
}

// Validator converts raw Go data into Values, guarding every nested step
// against runaway depth, cycles and slow inputs. A Validator holds only
// configuration and is safe for concurrent use: each call opens its own
// recursion scope.
type Validator struct {
	limits   Limits
	logger   *slog.Logger
	observer Observer
	clock    Clock
}

// ValidatorOption configures a Validator.
type ValidatorOption func(*Validator)

// WithLimits replaces all containment limits.
func WithLimits(l Limits) ValidatorOption {
	return func(v *Validator) {
		v.limits = l
	}
}

// WithMaxDepth sets the maximum nesting depth.
func WithMaxDepth(n int) ValidatorOption {
	return func(v *Validator) {
		v.limits.MaxDepth = n
	}
}

// WithMaxRevisits sets how often one container may be revisited before it
// is treated as a cycle.
func WithMaxRevisits(n int) ValidatorOption {
	return func(v *Validator) {
		v.limits.MaxRevisits = n
	}
}

// WithTimeBudget sets the wall-time budget of one call.
func WithTimeBudget(d time.Duration) ValidatorOption {
	return func(v *Validator) {
		v.limits.TimeBudget = d
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) ValidatorOption {
	return func(v *Validator) {
		v.logger = l
	}
}

// WithObserver registers an observer notified after every call.
func WithObserver(o Observer) ValidatorOption {
	return func(v *Validator) {
		v.observer = o
	}
}

// WithClock replaces the clock used for the time budget.
func WithClock(c Clock) ValidatorOption {
	return func(v *Validator) {
		v.clock = c
	}
}

// NewValidator returns a validator with the default limits, adjusted by opts.
func NewValidator(opts ...ValidatorOption) *Validator {
	v := &Validator{
		limits: DefaultLimits(),
		clock:  systemClock{},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Limits returns the configured limits.
func (v *Validator) Limits() Limits {
	return v.limits
}

var defaultValidator = NewValidator()

// Validate validates raw against t with the default validator.
func Validate(t Type, raw any) (Value, error) {
	return defaultValidator.Validate(t, raw)
}

// Infer infers a value for raw with the default validator.
func Infer(raw any) (Value, error) {
	return defaultValidator.Infer(raw)
}

// Validate converts raw into a Value of type t.
//
// Accepted raw data: nil, strings, booleans, Go integers and floats,
// json.Number, *apd.Decimal, slices and arrays, maps, pointers to any of
// those, host values for capsule types, and Values (which are converted to
// t where possible). Non-conforming data fails with a *ValidationError.
//
// Containment never fails the call: sub-values beyond a configured limit
// become unknown. Use ValidateWithStats to see whether that happened.
func (v *Validator) Validate(t Type, raw any) (Value, error) {
	val, _, err := v.ValidateWithStats(t, raw)
	return val, err
}

// ValidateWithStats is Validate, also returning the call statistics.
func (v *Validator) ValidateWithStats(t Type, raw any) (Value, Stats, error) {
	mustType(t, "Validate")
	return v.run(t, func(s *scope) (Value, error) {
		return s.validate(t, raw, nil)
	})
}

// Infer returns the value of raw under its most specific inferred type.
// Unlike validating against DynamicPseudoType the result is not wrapped.
func (v *Validator) Infer(raw any) (Value, error) {
	val, _, err := v.run(DynamicPseudoType, func(s *scope) (Value, error) {
		return s.infer(raw, nil)
	})
	return val, err
}

// run opens a scope, runs fn and reports the result. The scope is dropped
// on return, so every call starts from zeroed counters.
func (v *Validator) run(t Type, fn func(*scope) (Value, error)) (Value, Stats, error) {
	s := newScope(v.limits, v.clock)
	val, err := fn(s)
	stats := s.stats()

	logger := v.logger
	if logger == nil {
		logger = slog.Default()
	}
	if stats.Stopped {
		logger.Warn("validation contained",
			"type", TypeString(t),
			"reason", string(stats.StopReason),
			"path", stats.StopPath.String(),
			"scope", strings.Join(stats.StopScope, " > "),
			"steps", stats.Steps,
			"max_depth", stats.MaxDepth,
			"elapsed", stats.Elapsed,
			"event", "validation_stopped",
		)
	} else {
		logger.Debug("validation complete",
			"type", TypeString(t),
			"steps", stats.Steps,
			"max_depth", stats.MaxDepth,
			"tracked", stats.Tracked,
			"elapsed", stats.Elapsed,
			"error", err != nil,
		)
	}
	if v.observer != nil {
		v.observer.ObserveValidation(t, stats, err)
	}

	if err != nil {
		return NilVal, stats, err
	}
	return val, stats, nil
}

func (s *scope) validate(t Type, raw any, path Path) (Value, error) {
	return s.guard(t, raw, path, func() (Value, error) {
		return s.validateKind(t, raw, path)
	})
}

// validateKind holds the per-kind rules. It is only called through guard.
func (s *scope) validateKind(t Type, raw any, path Path) (Value, error) {
	if isDynamic(t) {
		val, err := s.inferKind(raw, path)
		if err != nil {
			return NilVal, err
		}
		return DynamicVal(val), nil
	}
	if val, ok := raw.(Value); ok {
		return s.conform(t, val, path)
	}
	if isNil(raw) {
		return NullVal(t), nil
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Pointer && t.Kind() != KindCapsule && !isDecimal(raw) {
		return s.validateKind(t, rv.Elem().Interface(), path)
	}

	switch tt := t.(type) {
	case primitiveType:
		return validatePrimitive(tt, raw, rv, path)
	case ListType:
		elems, err := s.validateSequence(tt, raw, rv, path, func(int) Type { return tt.elem })
		if err != nil {
			return NilVal, err
		}
		return Value{ty: t, v: elems}, nil
	case SetType:
		elems, err := s.validateSequence(tt, raw, rv, path, func(int) Type { return tt.elem })
		if err != nil {
			return NilVal, err
		}
		return Value{ty: t, v: canonicalSet(elems)}, nil
	case TupleType:
		if k := rv.Kind(); (k == reflect.Slice || k == reflect.Array) && rv.Len() != len(tt.elems) {
			return NilVal, validationErrorf(ErrCodeArityMismatch, path,
				"tuple requires %d elements, got %d", len(tt.elems), rv.Len())
		}
		elems, err := s.validateSequence(tt, raw, rv, path, func(i int) Type { return tt.elems[i] })
		if err != nil {
			return NilVal, err
		}
		return Value{ty: t, v: elems}, nil
	case MapType:
		return s.validateMap(tt, raw, rv, path)
	case ObjectType:
		return s.validateObject(tt, raw, rv, path)
	case CapsuleType:
		if reflect.TypeOf(raw) != tt.native {
			return NilVal, validationErrorf(ErrCodeCapsuleMismatch, path,
				"%s requires a %s, got %T", tt.name, tt.native, raw)
		}
		return Value{ty: t, v: raw}, nil
	}
	return NilVal, validationErrorf(ErrCodeTypeMismatch, path, "unsupported type %s", t.FriendlyName())
}

func validatePrimitive(t primitiveType, raw any, rv reflect.Value, path Path) (Value, error) {
	switch t.kind {
	case KindString:
		if s, ok := stringFromRaw(raw, rv); ok {
			return checkedString(s, path)
		}
	case KindBool:
		if rv.Kind() == reflect.Bool {
			return BoolVal(rv.Bool()), nil
		}
	case KindNumber:
		if val, ok, err := numberFromRaw(raw, rv); ok {
			if err != nil {
				return NilVal, validationErrorf(ErrCodeInvalidNumber, path, "%s", err)
			}
			return val, nil
		}
	}
	return NilVal, mismatch(t, raw, path)
}

// stringFromRaw extracts Go string data. Byte slices are taken as UTF-8
// text; json.Number is numeric and never a string.
func stringFromRaw(raw any, rv reflect.Value) (string, bool) {
	if _, isNumber := raw.(json.Number); isNumber {
		return "", false
	}
	switch {
	case rv.Kind() == reflect.String:
		return rv.String(), true
	case rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8:
		return string(rv.Bytes()), true
	}
	return "", false
}

func checkedString(s string, path Path) (Value, error) {
	if !utf8.ValidString(s) {
		return NilVal, validationErrorf(ErrCodeInvalidString, path, "string is not valid UTF-8")
	}
	return StringVal(s), nil
}

// numberFromRaw converts Go numeric data. ok is false when raw is not numeric.
func numberFromRaw(raw any, rv reflect.Value) (Value, bool, error) {
	switch n := raw.(type) {
	case json.Number:
		d, _, err := apd.NewFromString(string(n))
		if err != nil || d.Form != apd.Finite {
			return NilVal, true, fmt.Errorf("%q is not a finite decimal number", string(n))
		}
		return Value{ty: Number, v: d}, true, nil
	case *apd.Decimal:
		if n.Form != apd.Finite {
			return NilVal, true, fmt.Errorf("%s is not a finite number", n)
		}
		return NumberVal(n), true, nil
	case apd.Decimal:
		if n.Form != apd.Finite {
			return NilVal, true, fmt.Errorf("%s is not a finite number", &n)
		}
		return NumberVal(&n), true, nil
	}
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return NumberIntVal(rv.Int()), true, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		d, _, err := apd.NewFromString(strconv.FormatUint(rv.Uint(), 10))
		return Value{ty: Number, v: d}, true, err
	case reflect.Float32, reflect.Float64:
		bits := 64
		if rv.Kind() == reflect.Float32 {
			bits = 32
		}
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return NilVal, true, fmt.Errorf("%v is not a finite number", f)
		}
		d, _, err := apd.NewFromString(strconv.FormatFloat(f, 'g', -1, bits))
		return Value{ty: Number, v: d}, true, err
	}
	return NilVal, false, nil
}

func (s *scope) validateSequence(t Type, raw any, rv reflect.Value, path Path, elemType func(int) Type) ([]Value, error) {
	if k := rv.Kind(); k != reflect.Slice && k != reflect.Array {
		return nil, mismatch(t, raw, path)
	}
	out := make([]Value, rv.Len())
	for i := range out {
		ev, err := s.validate(elemType(i), rv.Index(i).Interface(), path.Index(i))
		if err != nil {
			return nil, err
		}
		out[i] = ev
	}
	return out, nil
}

// mapEntry is one raw map entry with its canonical key.
type mapEntry struct {
	key      string
	original any
	raw      any
}

// canonicalEntries reads a raw map, keyed by canonical key and ordered
// canonically. stringKeys restricts keys to strings.
func canonicalEntries(t Type, raw any, rv reflect.Value, path Path, stringKeys bool) ([]mapEntry, error) {
	if rv.Kind() != reflect.Map {
		return nil, mismatch(t, raw, path)
	}
	if stringKeys && rv.Type().Key().Kind() != reflect.String && rv.Type().Key().Kind() != reflect.Interface {
		return nil, validationErrorf(ErrCodeTypeMismatch, path, "%s requires string attribute names, got %s keys", t.FriendlyName(), rv.Type().Key())
	}

	entries := make([]mapEntry, 0, rv.Len())
	seen := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		k := iter.Key().Interface()
		var key string
		switch kk := iter.Key(); {
		case kk.Kind() == reflect.String:
			key = kk.String()
		case kk.Kind() == reflect.Interface && !kk.IsNil() && kk.Elem().Kind() == reflect.String:
			key = kk.Elem().String()
		case stringKeys:
			return nil, validationErrorf(ErrCodeTypeMismatch, path, "attribute name %v is not a string", k)
		default:
			key = fmt.Sprint(k)
		}
		canonical := norm.NFC.String(key)
		if prev, dup := seen[canonical]; dup {
			return nil, validationErrorf(ErrCodeDuplicateKey, path,
				"keys %v and %v both normalise to %q", prev, k, canonical)
		}
		seen[canonical] = k
		entries = append(entries, mapEntry{key: canonical, original: k, raw: iter.Value().Interface()})
	}
	slices.SortFunc(entries, func(a, b mapEntry) int { return compareKeysUTF16(a.key, b.key) })
	return entries, nil
}

// keyMapOf records the entries whose original key is not their canonical key.
func keyMapOf(entries []mapEntry) KeyMap {
	var keys KeyMap
	for _, e := range entries {
		if s, ok := e.original.(string); !ok || s != e.key {
			keys = keys.with(e.key, e.original)
		}
	}
	return keys
}

func (s *scope) validateMap(t MapType, raw any, rv reflect.Value, path Path) (Value, error) {
	entries, err := canonicalEntries(t, raw, rv, path, false)
	if err != nil {
		return NilVal, err
	}
	out := make(map[string]Value, len(entries))
	for _, e := range entries {
		ev, err := s.validate(t.elem, e.raw, path.Key(e.key))
		if err != nil {
			return NilVal, err
		}
		out[e.key] = ev
	}
	return Value{ty: t, v: out, keys: keyMapOf(entries)}, nil
}

func (s *scope) validateObject(t ObjectType, raw any, rv reflect.Value, path Path) (Value, error) {
	entries, err := canonicalEntries(t, raw, rv, path, true)
	if err != nil {
		return NilVal, err
	}
	byKey := make(map[string]mapEntry, len(entries))
	for _, e := range entries {
		if !t.HasAttribute(e.key) {
			return NilVal, validationErrorf(ErrCodeUnexpectedAttribute, path.GetAttr(e.key),
				"attribute %q is not expected", e.key)
		}
		byKey[e.key] = e
	}
	for _, name := range t.names {
		if _, ok := byKey[name]; !ok {
			return NilVal, validationErrorf(ErrCodeMissingAttribute, path.GetAttr(name),
				"attribute %q is required", name)
		}
	}

	out := make(map[string]Value, len(t.names))
	for _, name := range t.names {
		av, err := s.validate(t.attrs[name], byKey[name].raw, path.GetAttr(name))
		if err != nil {
			return NilVal, err
		}
		out[name] = av
	}
	return Value{ty: t, v: out, keys: keyMapOf(entries)}, nil
}

// conform converts an existing Value to t. Equal types pass through; null
// and unknown values are retyped when their type is usable as t; anything
// else is re-validated one level deep with its marks carried over.
func (s *scope) conform(t Type, val Value, path Path) (Value, error) {
	if val.ty == nil {
		return NilVal, validationErrorf(ErrCodeTypeMismatch, path, "NilVal is not a valid %s", t.FriendlyName())
	}
	if val.isDynamicWrapper() {
		return s.conform(t, val.Inner(), path)
	}
	if val.ty.Equals(t) {
		return val, nil
	}
	if val.null || val.unknown {
		if !isDynamic(val.ty) && !val.ty.UsableAs(t) {
			return NilVal, validationErrorf(ErrCodeTypeMismatch, path,
				"%s value cannot be used as %s", val.ty.FriendlyName(), t.FriendlyName())
		}
		out := Value{ty: t, null: val.null, unknown: val.unknown, marks: val.marks}
		if r := val.refinement(); r != nil {
			if rr := r.restrict(t); !rr.IsEmpty() {
				out.v = &rr
			}
		}
		return out, nil
	}

	var payload any
	switch val.ty.Kind() {
	case KindList, KindTuple, KindSet:
		payload = val.v.([]Value)
	case KindMap, KindObject:
		payload = val.v.(map[string]Value)
	default:
		payload = val.v
	}
	out, err := s.validateKind(t, payload, path)
	if err != nil {
		return NilVal, err
	}
	if len(val.keys) > 0 && (t.Kind() == KindMap || t.Kind() == KindObject) {
		out.keys = val.keys
	}
	return out.WithMarks(val.marks), nil
}

func mismatch(t Type, raw any, path Path) *ValidationError {
	return validationErrorf(ErrCodeTypeMismatch, path, "%s required, got %s", t.FriendlyName(), describeRaw(raw))
}

func describeRaw(raw any) string {
	switch raw.(type) {
	case json.Number:
		return "number"
	case string:
		return "string"
	case bool:
		return "bool"
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		return "sequence"
	case reflect.Map:
		return "mapping"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return "number"
	}
	return fmt.Sprintf("%T", raw)
}

func isNil(raw any) bool {
	if raw == nil {
		return true
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func isDecimal(raw any) bool {
	_, ok := raw.(*apd.Decimal)
	return ok
}
