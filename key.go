package gufe

import (
	"fmt"
	"strings"
)

// KeyRecordField is the field name marking a compact reference record in the
// keyed dictionary form. A record has the shape {":gufe-key:": "<key>"}.
const KeyRecordField = ":gufe-key:"

// minTokenLen is the shortest fingerprint a valid key can carry. Tokens are
// hex digests of at least 128 bits.
const minTokenLen = 32

// Key is the canonical identity of a Tokenizable's content, formatted as
// "{TypeName}-{fingerprint}". It is an immutable string value: two keys are
// equal iff their string forms match.
type Key string

// Prefix returns the human-readable type-name portion of the key.
func (k Key) Prefix() string {
	prefix, _, err := splitKey(string(k))
	if err != nil {
		return ""
	}
	return prefix
}

// Token returns the hexadecimal content-fingerprint portion of the key.
func (k Key) Token() string {
	_, token, err := splitKey(string(k))
	if err != nil {
		return ""
	}
	return token
}

// ToDict returns the compact reference record for this key, used by the
// keyed dictionary form in place of a full nested encoding.
func (k Key) ToDict() map[string]any {
	return map[string]any{KeyRecordField: string(k)}
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}

// ParseKey validates and splits a key string into its type prefix and
// fingerprint token. Type names may themselves contain hyphens, so the split
// point is the rightmost hyphen followed by a run of at least 32 hex
// characters, not the leftmost hyphen.
func ParseKey(s string) (prefix, token string, err error) {
	return splitKey(s)
}

func splitKey(s string) (string, string, error) {
	for i := strings.LastIndexByte(s, '-'); i > 0; i = strings.LastIndexByte(s[:i], '-') {
		tail := s[i+1:]
		if len(tail) >= minTokenLen && isHex(tail) {
			return s[:i], tail, nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", ErrInvalidKey, s)
}

func isHex(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return len(s) > 0
}

// isKeyRecord reports whether a tree node is a compact reference record.
func isKeyRecord(node any) bool {
	dct, ok := node.(map[string]any)
	if !ok {
		return false
	}
	_, ok = dct[KeyRecordField]
	return ok
}

// keyFromRecord extracts the key from a reference record.
func keyFromRecord(dct map[string]any) (Key, error) {
	raw, ok := dct[KeyRecordField]
	if !ok {
		return "", fmt.Errorf("%w: missing %q field", ErrMalformedRecord, KeyRecordField)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q field is not a string", ErrMalformedRecord, KeyRecordField)
	}
	return Key(s), nil
}
