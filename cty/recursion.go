package cty

import (
	"encoding/json"
	"reflect"
	"slices"
	"time"
)

// StopReason explains why a validation call stopped descending.
type StopReason string

const (
	StopNone       StopReason = ""
	StopDepth      StopReason = "depth"
	StopRevisits   StopReason = "revisits"
	StopTimeBudget StopReason = "time_budget"
)

// Stats describes one validation call.
type Stats struct {
	// Steps counts guarded entries that passed the checks.
	Steps int

	// MaxDepth is the deepest nesting reached.
	MaxDepth int

	// Elapsed is the wall time of the call as measured by the validator clock.
	Elapsed time.Duration

	// Tracked counts distinct container identities recorded for cycle detection.
	Tracked int

	// Stopped reports whether containment replaced part of the result with
	// unknown values. A stop holds for the rest of the call, so every entry
	// visited after StopPath is unknown, siblings included. StopReason,
	// StopPath and StopScope describe the stop; StopScope lists the types
	// being validated, outermost first.
	Stopped    bool
	StopReason StopReason
	StopPath   Path
	StopScope  []string
}

// visit is the record kept for one container identity.
type visit struct {
	kind      Kind
	depth     int
	count     int
	firstSeen time.Time
}

// identity distinguishes containers by address. Slices also carry their
// length since two slices may share a backing array.
type identity struct {
	ptr uintptr
	len int
	typ reflect.Type
}

// scope is the recursion context of a single validation call. It is created
// when the call begins and dropped when it returns, so concurrent calls never
// share one.
type scope struct {
	limits Limits
	clock  Clock

	visits map[identity]*visit
	labels []string

	steps    int
	depth    int
	maxDepth int
	start    time.Time

	stopped   bool
	reason    StopReason
	stopPath  Path
	stopScope []string
}

func newScope(limits Limits, clock Clock) *scope {
	return &scope{
		limits: limits,
		clock:  clock,
		visits: make(map[identity]*visit),
		start:  clock.Now(),
	}
}

// stats snapshots the scope counters.
func (s *scope) stats() Stats {
	return Stats{
		Steps:      s.steps,
		MaxDepth:   s.maxDepth,
		Elapsed:    s.clock.Now().Sub(s.start),
		Tracked:    len(s.visits),
		Stopped:    s.stopped,
		StopReason: s.reason,
		StopPath:   s.stopPath.Copy(),
		StopScope:  slices.Clone(s.stopScope),
	}
}

func (s *scope) stop(reason StopReason, path Path) {
	if s.stopped {
		return
	}
	s.stopped = true
	s.reason = reason
	s.stopPath = path.Copy()
	s.stopScope = slices.Clone(s.labels)
}

// guard is the single entry point every nested validation goes through.
// It performs the recursion bookkeeping and only then runs body, the
// per-kind logic. Once the scope is stopped every later entry returns an
// unknown of the attempted type; a stop is never resumed within a call.
func (s *scope) guard(t Type, raw any, path Path, body func() (Value, error)) (Value, error) {
	s.labels = append(s.labels, t.FriendlyName())
	defer func() { s.labels = s.labels[:len(s.labels)-1] }()

	if s.stopped {
		return UnknownVal(t), nil
	}

	now := s.clock.Now()
	if s.limits.TimeBudget > 0 && now.Sub(s.start) > s.limits.TimeBudget {
		s.stop(StopTimeBudget, path)
		return UnknownVal(t), nil
	}

	s.steps++
	s.depth++
	defer func() { s.depth-- }()
	if s.depth > s.maxDepth {
		s.maxDepth = s.depth
	}
	if limit := s.limits.depthLimit(); limit > 0 && s.depth > limit {
		s.stop(StopDepth, path)
		return UnknownVal(t), nil
	}

	if id, ok := identityOf(t, raw); ok {
		rec, seen := s.visits[id]
		if !seen {
			s.visits[id] = &visit{kind: t.Kind(), depth: s.depth, count: 1, firstSeen: now}
		} else {
			rec.count++
			if s.limits.MaxRevisits > 0 && rec.count > s.limits.MaxRevisits {
				s.stop(StopRevisits, path)
				return UnknownVal(t), nil
			}
		}
	}

	return body()
}

// identityOf returns the identity used for cycle bookkeeping, or false when
// raw cannot take part in a cycle: primitive and capsule targets, Values
// (immutable, so acyclic), scalars and slices holding only primitives.
func identityOf(t Type, raw any) (identity, bool) {
	switch t.Kind() {
	case KindString, KindNumber, KindBool, KindCapsule:
		return identity{}, false
	}
	switch raw.(type) {
	case nil, Value, string, bool, json.Number:
		return identity{}, false
	}

	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Map:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), typ: rv.Type()}, true
	case reflect.Slice:
		if rv.IsNil() || rv.Len() == 0 || allPrimitive(rv) {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), len: rv.Len(), typ: rv.Type()}, true
	case reflect.Pointer:
		if rv.IsNil() {
			return identity{}, false
		}
		return identity{ptr: rv.Pointer(), typ: rv.Type()}, true
	}
	return identity{}, false
}

// allPrimitive reports whether a slice can hold only primitive data.
func allPrimitive(rv reflect.Value) bool {
	if isPrimitiveKind(rv.Type().Elem().Kind()) {
		return true
	}
	if rv.Type().Elem().Kind() != reflect.Interface {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		e := rv.Index(i)
		if e.IsNil() {
			continue
		}
		if !isPrimitiveKind(e.Elem().Kind()) {
			return false
		}
	}
	return true
}

func isPrimitiveKind(k reflect.Kind) bool {
	switch k {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
