package gufe

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Normalize renders a Tokenizable's content to its canonical string: the
// full dictionary form with default-valued fields stripped, flattened into
// field=value pairs sorted by their textual representation. The result is
// deterministic regardless of field insertion order and is the input to
// Tokenize.
func Normalize(t Tokenizable) (string, error) {
	if isNilEntity(t) {
		return "", fmt.Errorf("%w: nil value", ErrContractViolation)
	}
	dct, err := ToDict(t, WithoutDefaults())
	if err != nil {
		return "", err
	}
	return canonical(dct), nil
}

// Tokenize returns the content fingerprint of a Tokenizable: a stable
// sha256 digest of its canonical string, rendered as lowercase hex. The
// fingerprint is deterministic across processes and over time for identical
// content, and survives a round trip through dictionary export and import.
func Tokenize(t Tokenizable) (string, error) {
	normalized, err := Normalize(t)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256([]byte(normalized))
	token := hex.EncodeToString(sum[:])
	recordTokenize(typeNameOf(t))
	return token, nil
}

// KeyOf returns the canonical "{TypeName}-{fingerprint}" key of a
// Tokenizable. The key is computed on first access and memoized for the
// object's lifetime when the type embeds KeyMemo. Once computed, the object
// is registered (non-owningly) in the instance registry under its key.
func KeyOf(t Tokenizable) (Key, error) {
	if isNilEntity(t) {
		return "", fmt.Errorf("%w: nil value", ErrContractViolation)
	}
	if m, ok := t.(keyMemoizer); ok {
		return m.memoizedKey(t)
	}
	k, err := computeKey(t)
	if err != nil {
		return "", err
	}
	trackLive(k, t)
	return k, nil
}

func computeKey(t Tokenizable) (Key, error) {
	token, err := Tokenize(t)
	if err != nil {
		return "", err
	}
	return Key(typeNameOf(t) + "-" + token), nil
}

// canonical renders a decoded-dictionary tree to a deterministic string.
// Maps render as "{k=v|...}" with pairs sorted by their rendered text,
// sequences in order, scalars in fixed formats. Strings are quoted so
// structural characters in values cannot collide with separators.
func canonical(node any) string {
	switch v := node.(type) {
	case nil:
		return "null"
	case string:
		return strconv.Quote(v)
	case Key:
		return strconv.Quote(string(v))
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.FormatInt(int64(v), 10)
	case int8:
		return strconv.FormatInt(int64(v), 10)
	case int16:
		return strconv.FormatInt(int64(v), 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint8:
		return strconv.FormatUint(uint64(v), 10)
	case uint16:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return canonicalFloat(float64(v), 32)
	case float64:
		return canonicalFloat(v, 64)
	case map[string]any:
		pairs := make([]string, 0, len(v))
		for key, val := range v {
			pairs = append(pairs, key+"="+canonical(val))
		}
		sort.Strings(pairs)
		return "{" + strings.Join(pairs, "|") + "}"
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = canonical(item)
		}
		return "[" + strings.Join(parts, "|") + "]"
	default:
		// Remaining scalar types (typed slices, numbers behind named
		// types) get a stable JSON rendering, the same fallback the
		// deterministic ID generator uses.
		if data, err := json.Marshal(v); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", v)
	}
}

// canonicalFloat renders floats in shortest round-trip form, with a ".0"
// suffix on integral values so they stay distinct from integers.
func canonicalFloat(f float64, bits int) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return strconv.FormatFloat(f, 'g', -1, bits)
	}
	s := strconv.FormatFloat(f, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
