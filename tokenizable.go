package gufe

import (
	"hash/fnv"
	"reflect"
	"strings"
	"sync"
)

// Tokenizable is the contract every content-addressed type implements.
//
// Concrete pointer-receiver types should embed KeyMemo so their key is
// computed once and memoized for the object's lifetime. Equality and hashing are not
// implemented per type: use the shared Equal, Compare, and HashOf functions,
// which derive both from the full dictionary form.
type Tokenizable interface {
	// ToShallowDict exports the value's own fields as a mapping. Nested
	// Tokenizables are left as live references, not encoded, and no type
	// tag is attached. Values must be built from map[string]any, []any,
	// scalars, and Tokenizables; Tokenizables must never be used as map
	// keys. The returned map must be freshly allocated on each call.
	ToShallowDict() map[string]any

	// Defaults declares the default value for each field that has one,
	// keyed by the field's shallow-dict name. Defaults are used only to
	// omit default-valued fields from compact encodings; fields absent
	// from the map are always retained.
	Defaults() map[string]any
}

// keyMemoizer is satisfied by any type embedding KeyMemo. The method is
// unexported so the memo can only be provided by embedding.
type keyMemoizer interface {
	memoizedKey(self Tokenizable) (Key, error)
}

// KeyMemo caches a computed Key for the lifetime of the object embedding
// it. Embed it by value in pointer-receiver types:
//
//	type Point struct {
//		gufe.KeyMemo
//		X, Y int
//	}
//
// KeyOf on a type embedding KeyMemo tokenizes the content once; later calls
// return the cached key. Types without the memo are re-tokenized on every
// call. The zero value is ready to use.
type KeyMemo struct {
	mu  sync.Mutex
	key Key
}

func (m *KeyMemo) memoizedKey(self Tokenizable) (Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.key == "" {
		k, err := computeKey(self)
		if err != nil {
			return "", err
		}
		m.key = k
	}
	// Re-register on every access: the instance registry only keeps an
	// entry while the object is live, so a fresh lookup may need to
	// restore it.
	trackLive(m.key, self)
	return m.key, nil
}

// Equal reports whether two Tokenizables have equal content: their full
// (recursively expanded) dictionary forms must be structurally equal,
// ignoring field order. Comparing values of different concrete types is
// well-defined and returns false rather than failing. Nil arguments,
// typed nils included, compare equal only to each other.
func Equal(a, b Tokenizable) bool {
	if isNilEntity(a) || isNilEntity(b) {
		return isNilEntity(a) && isNilEntity(b)
	}
	if a == b {
		return true
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) {
		return false
	}
	da, err := ToDict(a)
	if err != nil {
		return false
	}
	db, err := ToDict(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(da, db)
}

// Compare orders two Tokenizables by their key strings. It returns a
// negative value, zero, or a positive value as a sorts before, equal to, or
// after b. Values whose keys cannot be computed sort first; the result is
// always well-defined and never panics.
func Compare(a, b Tokenizable) int {
	return strings.Compare(keyStringOrEmpty(a), keyStringOrEmpty(b))
}

// HashOf returns a hash derived from the value's key, so equal values hash
// equally. It returns 0 for values whose key cannot be computed.
func HashOf(t Tokenizable) uint64 {
	s := keyStringOrEmpty(t)
	if s == "" {
		return 0
	}
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

func keyStringOrEmpty(t Tokenizable) string {
	if isNilEntity(t) {
		return ""
	}
	k, err := KeyOf(t)
	if err != nil {
		return ""
	}
	return string(k)
}

// ApplyDefaults returns a copy of dct with every missing field filled from
// defaults. Constructors use it to accept compact dictionaries produced
// with default-valued fields stripped.
func ApplyDefaults(dct, defaults map[string]any) map[string]any {
	out := make(map[string]any, len(dct)+len(defaults))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range dct {
		out[k] = v
	}
	return out
}

// isTokenizable reports whether a tree node is a live Tokenizable value.
func isTokenizable(node any) bool {
	_, ok := node.(Tokenizable)
	return ok
}

// isNilEntity reports whether t is nil, including a typed nil pointer
// stored in the interface. Typed nils carry no content and must never
// reach ToShallowDict.
func isNilEntity(t Tokenizable) bool {
	if t == nil {
		return true
	}
	v := reflect.ValueOf(t)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}
