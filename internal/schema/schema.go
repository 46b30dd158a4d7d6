// Package schema compiles CUE schemas into cty type descriptors.
//
// The mapping follows CUE's kinds:
//
//	string                  -> string
//	number, int, float      -> number
//	bool                    -> bool
//	[...T]                  -> list of T
//	[A, B, C]               -> tuple
//	{[string]: T}           -> map of T
//	{a: A, b?: B}           -> object (optional fields become attributes)
//	_ or a mix of kinds     -> dynamic
//
// A "| null" alternative is ignored: every cty type admits null.
package schema

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/cty/cty"
)

// MaxNesting bounds how deep CompileType descends. Recursive definitions
// such as #Node: {next?: #Node} hit this limit instead of looping.
const MaxNesting = 64

// SchemaError reports a CUE construct with no type descriptor equivalent.
type SchemaError struct {
	Path    string // CUE path of the offending value
	Message string
	Pos     token.Pos
}

func (e *SchemaError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<root>"
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), loc, e.Message)
	}
	return fmt.Sprintf("%s: %s", loc, e.Message)
}

// CompileType converts a CUE value into a type descriptor.
//
// The value is usually a definition or a field holding a schema:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`#Person: {name: string, age?: int}`)
//	t, err := CompileType(v.LookupPath(cue.ParsePath("#Person")))
func CompileType(v cue.Value) (cty.Type, error) {
	if !v.Exists() {
		return nil, &SchemaError{Message: "value does not exist"}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return compile(v, 0)
}

// LoadFile compiles the CUE file at path and returns the type of the value
// at expr, a CUE path such as "#Person" or "schemas.user".
func LoadFile(path, expr string) (cty.Type, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return LoadBytes(data, path, expr)
}

// LoadBytes is LoadFile for in-memory source. filename is used in positions.
func LoadBytes(src []byte, filename, expr string) (cty.Type, error) {
	ctx := cuecontext.New()
	root := ctx.CompileBytes(src, cue.Filename(filename))
	if err := root.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	p := cue.ParsePath(expr)
	if err := p.Err(); err != nil {
		return nil, fmt.Errorf("parse expression %q: %w", expr, err)
	}
	v := root.LookupPath(p)
	if !v.Exists() {
		return nil, &SchemaError{Path: expr, Message: "not found"}
	}
	return CompileType(v)
}

func compile(v cue.Value, depth int) (cty.Type, error) {
	if depth > MaxNesting {
		return nil, errorAt(v, fmt.Sprintf("nesting exceeds %d levels (recursive definition?)", MaxNesting))
	}

	kind := v.IncompleteKind()
	if kind == cue.TopKind {
		return cty.DynamicPseudoType, nil
	}
	kind &^= cue.NullKind

	switch kind {
	case cue.StringKind:
		return cty.String, nil
	case cue.BoolKind:
		return cty.Bool, nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		return cty.Number, nil
	case cue.ListKind:
		return compileList(v, depth)
	case cue.StructKind:
		return compileStruct(v, depth)
	case cue.BottomKind:
		return nil, errorAt(v, "value can only be null")
	case cue.BytesKind:
		return nil, errorAt(v, "bytes have no type descriptor")
	}
	return cty.DynamicPseudoType, nil
}

func compileList(v cue.Value, depth int) (cty.Type, error) {
	iter, err := v.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var elems []cty.Type
	for iter.Next() {
		et, err := compile(iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		elems = append(elems, et)
	}

	if !v.Allows(cue.AnyIndex) {
		return cty.Tuple(elems...), nil
	}
	if len(elems) > 0 {
		return nil, errorAt(v, "list with fixed prefix and open tail has no type descriptor")
	}
	et, err := compile(v.LookupPath(cue.MakePath(cue.AnyIndex)), depth+1)
	if err != nil {
		return nil, err
	}
	return cty.List(et), nil
}

func compileStruct(v cue.Value, depth int) (cty.Type, error) {
	iter, err := v.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}
	attrs := make(map[string]cty.Type)
	for iter.Next() {
		at, err := compile(iter.Value(), depth+1)
		if err != nil {
			return nil, err
		}
		attrs[iter.Selector().Unquoted()] = at
	}
	if len(attrs) > 0 {
		return cty.Object(attrs), nil
	}

	pattern := v.LookupPath(cue.MakePath(cue.AnyString))
	if pattern.Exists() && pattern.IncompleteKind() != cue.TopKind {
		et, err := compile(pattern, depth+1)
		if err != nil {
			return nil, err
		}
		return cty.Map(et), nil
	}
	return cty.EmptyObject, nil
}

func errorAt(v cue.Value, msg string) *SchemaError {
	return &SchemaError{Path: v.Path().String(), Message: msg, Pos: v.Pos()}
}

// formatCUEError returns the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	if positions := errors.Positions(first); len(positions) > 0 {
		return &SchemaError{Message: first.Error(), Pos: positions[0]}
	}
	return err
}
