package store

import (
	"context"
	"database/sql"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/cty/cty"
	"github.com/roach88/cty/cty/wire"
	"github.com/roach88/cty/internal/testutil"
)

var personType = cty.Object(map[string]cty.Type{"name": cty.String, "age": cty.Number})

func person(name string, age int64) cty.Value {
	return cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal(name), "age": cty.NumberIntVal(age)})
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(testutil.NewSequentialIDs()))

	v := person("Alice", 30)
	put, err := s.Put(ctx, "alice", v)
	require.NoError(t, err)
	assert.Equal(t, "00000000-0000-7000-8000-000000000001", put.ID)
	assert.Equal(t, int64(1), put.Version)
	assert.Equal(t, MustTypeFingerprint(personType), put.TypeHash)

	got, err := s.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, put.ID, got.ID)
	assert.True(t, got.Type.Equals(personType))
	assert.True(t, got.Value.Equal(v), "got %s", got.Value)
}

func TestPutOverwriteKeepsIDAndBumpsVersion(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(testutil.NewSequentialIDs()))

	first, err := s.Put(ctx, "x", cty.StringVal("one"))
	require.NoError(t, err)
	second, err := s.Put(ctx, "x", cty.ListVal([]cty.Value{cty.NumberIntVal(2)}))
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(2), second.Version)

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	assert.True(t, got.Type.Equals(cty.List(cty.Number)), "type follows the latest value")
}

func TestPutRejectsUnrepresentable(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Put(ctx, "u", cty.UnknownVal(cty.String))
	require.Error(t, err)
	assert.True(t, wire.IsCodecError(err))

	capsule := cty.Capsule("int", reflect.TypeOf(0))
	_, err = s.Put(ctx, "c", cty.CapsuleVal(capsule, 1))
	require.Error(t, err)

	_, err = s.Put(ctx, "", cty.StringVal("x"))
	require.Error(t, err)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStoresMarksAndRefinements(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	refined, err := cty.RefinedUnknownVal(cty.Number, cty.Refinement{Lower: cty.IntBound(1, true)})
	require.NoError(t, err)
	v := cty.ObjectVal(map[string]cty.Value{
		"secret": cty.StringVal("hunter2").Mark("sensitive"),
		"count":  refined,
	})

	_, err = s.Put(ctx, "mixed", v)
	require.NoError(t, err)
	got, err := s.Get(ctx, "mixed")
	require.NoError(t, err)
	assert.True(t, got.Value.Equal(v))
}

func TestGetMissing(t *testing.T) {
	_, err := createTestStore(t).Get(context.Background(), "nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows), "got %v", err)
}

func TestGetDetectsCorruption(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Put(ctx, "n", cty.NumberIntVal(5))
	require.NoError(t, err)
	_, err = s.db.Exec(`UPDATE snapshots SET payload = ? WHERE name = 'n'`, []byte{0x06})
	require.NoError(t, err)

	_, err = s.Get(ctx, "n")
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestListAndFindByType(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t, WithIDGenerator(testutil.NewSequentialIDs()))

	for name, v := range map[string]cty.Value{
		"carol": person("Carol", 41),
		"alice": person("Alice", 30),
		"label": cty.StringVal("x"),
		"Bob":   person("Bob", 25),
	} {
		_, err := s.Put(ctx, name, v)
		require.NoError(t, err)
	}

	entries, err := s.List(ctx)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
		assert.Positive(t, e.Size)
	}
	assert.Equal(t, []string{"Bob", "alice", "carol", "label"}, names, "binary collation puts upper case first")

	people, err := s.FindByType(ctx, personType)
	require.NoError(t, err)
	require.Len(t, people, 3)
	assert.Equal(t, `["object",{"age":"number","name":"string"}]`, people[0].TypeJSON)

	none, err := s.FindByType(ctx, cty.Bool)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.Put(ctx, "gone", cty.True)
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, "gone"))

	_, err = s.Get(ctx, "gone")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.ErrorIs(t, s.Delete(ctx, "gone"), sql.ErrNoRows)
}

func TestTypeFingerprint(t *testing.T) {
	a := MustTypeFingerprint(cty.Object(map[string]cty.Type{"b": cty.Bool, "a": cty.List(cty.String)}))
	b := MustTypeFingerprint(cty.Object(map[string]cty.Type{"a": cty.List(cty.String), "b": cty.Bool}))
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
	assert.NotEqual(t, a, MustTypeFingerprint(cty.Object(map[string]cty.Type{"a": cty.List(cty.String)})))

	// Same bytes under different domains must not collide.
	desc, err := cty.MarshalTypeJSON(cty.String)
	require.NoError(t, err)
	assert.NotEqual(t, hashWithDomain(DomainType, desc), hashWithDomain(DomainPayload, desc))

	_, err = TypeFingerprint(cty.Capsule("c", reflect.TypeOf(0)))
	assert.Error(t, err)
}
