package schema

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cty/cty"
)

func compileField(t *testing.T, src, field string) (cty.Type, error) {
	t.Helper()
	v := cuecontext.New().CompileString(src)
	require.NoError(t, v.Err())
	return CompileType(v.LookupPath(cue.ParsePath(field)))
}

func TestCompileType(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want cty.Type
	}{
		{"string", `x: string`, cty.String},
		{"int", `x: int`, cty.Number},
		{"float", `x: float`, cty.Number},
		{"number", `x: number`, cty.Number},
		{"bounded int", `x: int & >=0 & <10`, cty.Number},
		{"bool", `x: bool`, cty.Bool},
		{"concrete string", `x: "hello"`, cty.String},
		{"nullable", `x: string | null`, cty.String},
		{"top", `x: _`, cty.DynamicPseudoType},
		{"mixed kinds", `x: string | int`, cty.DynamicPseudoType},
		{"open list", `x: [...string]`, cty.List(cty.String)},
		{"list of lists", `x: [...[...int]]`, cty.List(cty.List(cty.Number))},
		{"closed list", `x: [string, int, bool]`, cty.Tuple(cty.String, cty.Number, cty.Bool)},
		{"empty closed list", `x: []`, cty.EmptyTuple},
		{"map", `x: [string]: bool`, cty.Map(cty.Bool)},
		{"empty struct", `x: {}`, cty.EmptyObject},
		{
			"object",
			`x: {name: string, tags: [...string], meta?: [string]: string}`,
			cty.Object(map[string]cty.Type{
				"name": cty.String,
				"tags": cty.List(cty.String),
				"meta": cty.Map(cty.String),
			}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := compileField(t, tt.src, "x")
			require.NoError(t, err)
			assert.True(t, tt.want.Equals(got), "want %s, got %s", cty.TypeString(tt.want), cty.TypeString(got))
		})
	}
}

func TestCompileDefinition(t *testing.T) {
	src := `
#Address: {
	street: string
	zip:    string
}
#Person: {
	name:    string
	age?:    int
	address: #Address
	emails:  [...string]
}
`
	got, err := compileField(t, src, "#Person")
	require.NoError(t, err)

	want := cty.Object(map[string]cty.Type{
		"name": cty.String,
		"age":  cty.Number,
		"address": cty.Object(map[string]cty.Type{
			"street": cty.String,
			"zip":    cty.String,
		}),
		"emails": cty.List(cty.String),
	})
	assert.True(t, want.Equals(got), "got %s", cty.TypeString(got))
}

func TestCompiledTypeValidates(t *testing.T) {
	typ, err := compileField(t, `#Point: {x: number, y: number}`, "#Point")
	require.NoError(t, err)

	v, err := cty.Validate(typ, map[string]any{"x": 1, "y": 2.5})
	require.NoError(t, err)
	y, err := v.GetAttr("y")
	require.NoError(t, err)
	assert.Equal(t, "2.5", y.AsDecimal().String())
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"bytes", `x: bytes`, "bytes"},
		{"prefix with open tail", `x: [string, ...int]`, "open tail"},
		{"only null", `x: null`, "null"},
		{"recursive", "#Node: {value: int, next?: #Node}\nx: #Node", "nesting exceeds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileField(t, tt.src, "x")
			require.Error(t, err)
			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompileMissingValue(t *testing.T) {
	_, err := compileField(t, `x: string`, "y")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.cue")
	src := "package demo\n\n#Tags: [string]: string\n"
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))

	got, err := LoadFile(path, "#Tags")
	require.NoError(t, err)
	assert.True(t, cty.Map(cty.String).Equals(got))

	_, err = LoadFile(path, "#Missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "#Missing: not found")
}

func TestLoadFileSyntaxError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.cue")
	require.NoError(t, os.WriteFile(path, []byte("x: {\n"), 0o644))

	_, err := LoadFile(path, "x")
	require.Error(t, err)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.True(t, se.Pos.IsValid())
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.cue"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read schema")
}
