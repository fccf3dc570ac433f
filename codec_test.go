package gufe

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDictTagsAndFields(t *testing.T) {
	dct, err := ToDict(&Point{X: 3, Y: 5})
	require.NoError(t, err)

	assert.Equal(t, "github.com/gufe-go/gufe", dct[ModuleField])
	assert.Equal(t, "Point", dct[QualnameField])
	assert.Equal(t, 3, dct["x"])
	assert.Equal(t, 5, dct["y"])
}

func TestToDictWithoutDefaults(t *testing.T) {
	// Point(y=5) with include_defaults off omits the defaulted x.
	dct, err := ToDict(&Point{Y: 5}, WithoutDefaults())
	require.NoError(t, err)
	_, hasX := dct["x"]
	assert.False(t, hasX)
	assert.Equal(t, 5, dct["y"])

	// Explicitly set to the default value is also stripped.
	dct, err = ToDict(&Point{X: 0, Y: 5}, WithoutDefaults())
	require.NoError(t, err)
	_, hasX = dct["x"]
	assert.False(t, hasX)

	// Non-default value is retained.
	dct, err = ToDict(&Point{X: 2, Y: 5}, WithoutDefaults())
	require.NoError(t, err)
	assert.Equal(t, 2, dct["x"])
}

func TestRoundTrip(t *testing.T) {
	resetInstanceRegistry()

	original := &Point{X: 2, Y: 5}
	dct, err := ToDict(original)
	require.NoError(t, err)

	decoded, err := FromDict(dct)
	require.NoError(t, err)

	assert.True(t, Equal(original, decoded))
	assert.Equal(t, mustKey(t, original), mustKey(t, decoded))
}

func TestRoundTripStrippedDefaults(t *testing.T) {
	resetInstanceRegistry()

	dct, err := ToDict(&Point{Y: 5}, WithoutDefaults())
	require.NoError(t, err)

	decoded, err := FromDict(dct)
	require.NoError(t, err)

	point, ok := decoded.(*Point)
	require.True(t, ok)
	assert.Equal(t, 0, point.X)
	assert.Equal(t, 5, point.Y)
	assert.True(t, Equal(decoded, &Point{X: 0, Y: 5}))
	assert.Equal(t, mustKey(t, &Point{X: 0, Y: 5}), mustKey(t, decoded))
}

func TestNestedEncodeDecode(t *testing.T) {
	resetInstanceRegistry()

	inner := &Point{Y: 1}
	box := &Box{Label: "pair", Items: []Tokenizable{inner, &Point{Y: 2}}}

	dct, err := ToDict(box)
	require.NoError(t, err)

	items, ok := dct["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 2)
	for _, item := range items {
		nested, ok := item.(map[string]any)
		require.True(t, ok, "nested entity must be encoded as a tagged mapping")
		assert.Equal(t, "Point", nested[QualnameField])
	}

	decoded, err := FromDict(dct)
	require.NoError(t, err)
	assert.True(t, Equal(box, decoded))
	assert.Equal(t, mustKey(t, box), mustKey(t, decoded))
}

func TestDeeplyNestedDependencies(t *testing.T) {
	resetInstanceRegistry()

	inner := &Box{Label: "inner", Items: []Tokenizable{&Point{Y: 7}}}
	outer := &Box{Label: "outer", Items: []Tokenizable{inner}}

	dct, err := ToDict(outer)
	require.NoError(t, err)

	decoded, err := FromDict(dct)
	require.NoError(t, err)

	got, ok := decoded.(*Box)
	require.True(t, ok)
	require.Len(t, got.Items, 1)
	gotInner, ok := got.Items[0].(*Box)
	require.True(t, ok)
	require.Len(t, gotInner.Items, 1)
	assert.True(t, Equal(outer, decoded))
}

func TestFromDictDoesNotMutateInput(t *testing.T) {
	resetInstanceRegistry()

	dct, err := ToDict(&Box{Label: "b", Items: []Tokenizable{&Point{Y: 3}}})
	require.NoError(t, err)

	_, err = FromDict(dct)
	require.NoError(t, err)

	// Tags are still present and nested items are still plain mappings.
	assert.Equal(t, "Box", dct[QualnameField])
	items := dct["items"].([]any)
	_, stillDict := items[0].(map[string]any)
	assert.True(t, stillDict)
}

func TestDecodeDeduplicatesLiveInstances(t *testing.T) {
	resetInstanceRegistry()

	original := &Point{X: 4, Y: 4}
	dct, err := ToDict(original)
	require.NoError(t, err)

	// Keep original live in the registry.
	mustKey(t, original)

	first, err := FromDict(dct)
	require.NoError(t, err)
	second, err := FromDict(dct)
	require.NoError(t, err)

	assert.Same(t, original, first, "decode must return the live instance")
	assert.Same(t, first, second)
}

func TestDecodeDeadEntryYieldsFreshInstance(t *testing.T) {
	resetInstanceRegistry()

	original := &Point{X: 8, Y: 8}
	key := mustKey(t, original)

	// Simulate the original's owners going away: replace its registry
	// entry with a dead handle.
	instanceRegistry.mu.Lock()
	instanceRegistry.m[key] = func() Tokenizable { return nil }
	instanceRegistry.mu.Unlock()

	dct, err := ToDict(&Point{X: 8, Y: 8})
	require.NoError(t, err)
	decoded, err := FromDict(dct)
	require.NoError(t, err)

	assert.NotSame(t, original, decoded)
	assert.Equal(t, key, mustKey(t, decoded))
}

func TestFromDictMissingTags(t *testing.T) {
	_, err := FromDict(map[string]any{"x": 1, "y": 2})
	assert.ErrorIs(t, err, ErrMalformedRecord)

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "FromDict", derr.Op)
}

func TestFromDictUnresolvableType(t *testing.T) {
	dct := map[string]any{
		ModuleField:   "example.com/nowhere",
		QualnameField: "Ghost",
	}
	_, err := FromDict(dct)
	assert.ErrorIs(t, err, ErrUnresolvableType)

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "example.com/nowhere", derr.Module)
	assert.Equal(t, "Ghost", derr.Qualname)
}

func TestFromDictNestedFailurePropagates(t *testing.T) {
	// A nested record that lost one of its two tags must fail as
	// malformed, not decode as plain data.
	for _, tag := range []string{ModuleField, QualnameField} {
		t.Run("missing "+tag, func(t *testing.T) {
			resetInstanceRegistry()

			dct, err := ToDict(&Box{Label: "b", Items: []Tokenizable{&Point{Y: 3}}})
			require.NoError(t, err)
			nested := dct["items"].([]any)[0].(map[string]any)
			delete(nested, tag)

			_, err = FromDict(dct)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestToKeyedDictShape(t *testing.T) {
	resetInstanceRegistry()

	dep := &Point{Y: 6}
	box := &Box{Label: "keyed", Items: []Tokenizable{dep}}

	dct, err := ToKeyedDict(box)
	require.NoError(t, err)

	// The root keeps its real encoding: tags plus own fields.
	assert.Equal(t, "Box", dct[QualnameField])
	assert.False(t, isKeyRecord(dct), "root must never be key-referenced")

	items := dct["items"].([]any)
	require.Len(t, items, 1)
	record, ok := items[0].(map[string]any)
	require.True(t, ok)
	require.True(t, isKeyRecord(record))
	assert.Equal(t, string(mustKey(t, dep)), record[KeyRecordField])
}

func TestKeyedRoundTrip(t *testing.T) {
	resetInstanceRegistry()

	dep := &Point{Y: 11}
	box := &Box{Label: "kr", Items: []Tokenizable{dep}}
	wantKey := mustKey(t, box)

	dct, err := ToKeyedDict(box)
	require.NoError(t, err)

	// The dependency is live and registered (ToKeyedDict registered it
	// when computing its key), so the keyed form decodes.
	decoded, err := FromKeyedDict(dct)
	require.NoError(t, err)

	assert.True(t, Equal(box, decoded))
	assert.Equal(t, wantKey, mustKey(t, decoded))

	got, ok := decoded.(*Box)
	require.True(t, ok)
	assert.Same(t, dep, got.Items[0], "resolved reference must be the registered instance")
}

func TestFromKeyedDictUnresolvableReference(t *testing.T) {
	resetInstanceRegistry()

	box := &Box{Label: "gone", Items: []Tokenizable{&Point{Y: 12}}}
	dct, err := ToKeyedDict(box)
	require.NoError(t, err)

	// Drop everything: the referenced dependency is no longer resolvable.
	resetInstanceRegistry()

	_, err = FromKeyedDict(dct)
	assert.ErrorIs(t, err, ErrUnresolvableReference)

	var derr *DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "FromKeyedDict", derr.Op)
	assert.NotEmpty(t, derr.Key)
}

func TestRenameTolerance(t *testing.T) {
	resetInstanceRegistry()

	oldName := QualifiedName{Module: "example.com/legacy", Qualname: "OldPoint"}
	RegisterRemap(oldName, QualifiedName{Module: "github.com/gufe-go/gufe", Qualname: "Point"})

	dct := map[string]any{
		ModuleField:   oldName.Module,
		QualnameField: oldName.Qualname,
		"x":           1,
		"y":           2,
	}
	decoded, err := FromDict(dct)
	require.NoError(t, err)

	point, ok := decoded.(*Point)
	require.True(t, ok)
	assert.Equal(t, 1, point.X)
	assert.Equal(t, 2, point.Y)
	assert.True(t, IsRegistered(oldName))
}

func TestResolverSuppliesMissingClass(t *testing.T) {
	resetInstanceRegistry()

	lazy := QualifiedName{Module: "example.com/lazy", Qualname: "LazyPoint"}
	RegisterResolver(func(qn QualifiedName) error {
		if qn != lazy {
			return errors.New("unknown class")
		}
		RegisterAs[Point](lazy, pointFromDict)
		return nil
	})

	dct := map[string]any{
		ModuleField:   lazy.Module,
		QualnameField: lazy.Qualname,
		"y":           3,
	}
	decoded, err := FromDict(dct)
	require.NoError(t, err)
	_, ok := decoded.(*Point)
	assert.True(t, ok)

	// Cached thereafter: a second decode hits the registry directly.
	assert.True(t, IsRegistered(lazy))
}

func TestEncodeUnregisteredTypeDecodeFails(t *testing.T) {
	// Encoding needs no registration; decoding does.
	dct, err := ToDict(&Stray{N: 1})
	require.NoError(t, err)
	assert.Equal(t, "Stray", dct[QualnameField])

	_, err = FromDict(dct)
	assert.ErrorIs(t, err, ErrUnresolvableType)
}

func TestConcurrentDecode(t *testing.T) {
	resetInstanceRegistry()

	dct, err := ToDict(&Box{Label: "c", Items: []Tokenizable{&Point{Y: 20}, &Point{Y: 21}}})
	require.NoError(t, err)
	want := mustKey(t, &Box{Label: "c", Items: []Tokenizable{&Point{Y: 20}, &Point{Y: 21}}})

	var wg sync.WaitGroup
	results := make([]Key, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decoded, err := FromDict(dct)
			if err != nil {
				return
			}
			if k, err := KeyOf(decoded); err == nil {
				results[i] = k
			}
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		assert.Equal(t, want, got, "goroutine %d", i)
	}
}
