package gufe

import (
	"fmt"
	"reflect"
)

// Type tags attached to every encoded Tokenizable in the full dictionary
// form. Together they identify the concrete class to reconstruct.
const (
	ModuleField   = "__module__"
	QualnameField = "__qualname__"
)

// EncodeOption configures ToDict.
type EncodeOption func(*encodeConfig)

type encodeConfig struct {
	stripDefaults bool
}

// WithoutDefaults strips the root entity's fields whose encoded values
// equal their declared defaults, producing the compact form used for
// fingerprinting. An entity constructed with explicit defaults is therefore
// indistinguishable from one constructed with implicit defaults.
func WithoutDefaults() EncodeOption {
	return func(cfg *encodeConfig) {
		cfg.stripDefaults = true
	}
}

// ToDict produces the full dictionary form of t: its shallow dictionary
// with every nested Tokenizable recursively replaced by its own tagged full
// form, and the root tagged with its module and qualified name. The result
// is fully self-describing and maps 1:1 onto JSON.
func ToDict(t Tokenizable, opts ...EncodeOption) (map[string]any, error) {
	var cfg encodeConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	shallow, err := shallowTagged(t)
	if err != nil {
		return nil, err
	}
	walked, err := walkTree(shallow, isTokenizable, encodeNode, walkDown, true)
	if err != nil {
		return nil, err
	}
	dct := walked.(map[string]any)

	if cfg.stripDefaults {
		for field, def := range t.Defaults() {
			if val, ok := dct[field]; ok && reflect.DeepEqual(val, def) {
				delete(dct, field)
			}
		}
	}
	return dct, nil
}

// ToKeyedDict produces the keyed dictionary form of t: its shallow
// dictionary with every nested Tokenizable replaced by a compact
// {":gufe-key:": key} reference record. The root itself is never
// key-referenced; only its dependencies are compacted. Computing each
// dependency's key registers it in the instance registry as a side effect,
// but keeping those dependencies resolvable for a later FromKeyedDict is
// the caller's responsibility.
func ToKeyedDict(t Tokenizable) (map[string]any, error) {
	shallow, err := shallowTagged(t)
	if err != nil {
		return nil, err
	}
	walked, err := walkTree(shallow, isTokenizable, func(node any) (any, error) {
		key, err := KeyOf(node.(Tokenizable))
		if err != nil {
			return nil, err
		}
		return key.ToDict(), nil
	}, walkDown, true)
	if err != nil {
		return nil, err
	}
	return walked.(map[string]any), nil
}

// FromDict reconstructs a Tokenizable from its full dictionary form. Nested
// entities are decoded bottom-up, dependencies before dependents, and each
// reconstructed instance is deduplicated against the instance registry: if
// a structurally identical instance is still live, it is returned in place
// of the fresh copy. The input is never mutated.
func FromDict(dct map[string]any) (Tokenizable, error) {
	return decodeTree("FromDict", dct)
}

// FromKeyedDict reconstructs a Tokenizable from its keyed dictionary form.
// Every reference record is resolved strictly through the instance
// registry; a reference to an instance that was never registered (or is no
// longer live) fails with ErrUnresolvableReference. After substitution the
// decode proceeds exactly like FromDict.
func FromKeyedDict(dct map[string]any) (Tokenizable, error) {
	const op = "FromKeyedDict"
	finish := observeDecode(op)

	walked, err := walkTree(dct, isKeyRecord, func(node any) (any, error) {
		key, err := keyFromRecord(node.(map[string]any))
		if err != nil {
			return nil, &DecodeError{Op: op, Err: err}
		}
		obj, ok := LookupInstance(key)
		if !ok {
			return nil, referenceErr(op, key, ErrUnresolvableReference)
		}
		return obj, nil
	}, walkUp, true)
	if err != nil {
		finish(err)
		return nil, err
	}

	root, ok := walked.(map[string]any)
	if !ok {
		err = &DecodeError{Op: op, Err: fmt.Errorf("%w: root is not a mapping", ErrMalformedRecord)}
		finish(err)
		return nil, err
	}
	obj, err := decodeMapping(op, root)
	finish(err)
	return obj, err
}

// decodeTree deep-decodes a full-form dictionary: nested tagged mappings
// bottom-up, then the root.
func decodeTree(op string, dct map[string]any) (Tokenizable, error) {
	finish := observeDecode(op)

	walked, err := walkTree(dct, isTaggedDict, func(node any) (any, error) {
		return decodeTagged(op, node.(map[string]any))
	}, walkUp, true)
	if err != nil {
		finish(err)
		return nil, err
	}

	root, ok := walked.(map[string]any)
	if !ok {
		err = &DecodeError{Op: op, Err: fmt.Errorf("%w: root is not a mapping", ErrMalformedRecord)}
		finish(err)
		return nil, err
	}
	obj, err := decodeTagged(op, root)
	finish(err)
	return obj, err
}

// decodeMapping decodes a root mapping whose nested entities are already
// live values (the state a keyed decode reaches after reference
// substitution). Any tagged mappings still present decode as in FromDict.
func decodeMapping(op string, dct map[string]any) (Tokenizable, error) {
	walked, err := walkTree(dct, isTaggedDict, func(node any) (any, error) {
		return decodeTagged(op, node.(map[string]any))
	}, walkUp, true)
	if err != nil {
		return nil, err
	}
	return decodeTagged(op, walked.(map[string]any))
}

// decodeTagged reconstructs a single entity from a tagged mapping whose
// nested entities are already decoded, then substitutes an existing live
// instance with the same key if one is registered.
func decodeTagged(op string, dct map[string]any) (Tokenizable, error) {
	qn, fields, err := popTags(dct)
	if err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}

	rec, err := lookupClass(qn)
	if err != nil {
		return nil, decodeErr(op, qn, err)
	}

	obj, err := rec.fromDict(fields)
	if err != nil {
		return nil, decodeErr(op, qn, err)
	}

	key, err := KeyOf(obj)
	if err != nil {
		return nil, decodeErr(op, qn, err)
	}
	if existing, ok := LookupInstance(key); ok {
		recordDedup(existing != obj)
		return existing, nil
	}
	return obj, nil
}

// popTags splits a tagged mapping into its qualified name and remaining
// fields, without mutating the input.
func popTags(dct map[string]any) (QualifiedName, map[string]any, error) {
	module, okModule := dct[ModuleField].(string)
	qualname, okQualname := dct[QualnameField].(string)
	if !okModule || !okQualname {
		return QualifiedName{}, nil, fmt.Errorf(
			"%w: %q or %q tag not found; unable to reconstitute from dict",
			ErrMalformedRecord, ModuleField, QualnameField)
	}

	fields := make(map[string]any, len(dct)-2)
	for k, v := range dct {
		if k == ModuleField || k == QualnameField {
			continue
		}
		fields[k] = v
	}
	return QualifiedName{Module: module, Qualname: qualname}, fields, nil
}

// shallowTagged returns a copy of t's shallow dictionary with the type tags
// attached. This is the starting point of both encode pipelines.
func shallowTagged(t Tokenizable) (map[string]any, error) {
	shallow := t.ToShallowDict()
	if shallow == nil {
		return nil, fmt.Errorf("%w: %s returned a nil shallow dict", ErrContractViolation, typeNameOf(t))
	}
	qn := qualifiedNameOf(t)
	dct := make(map[string]any, len(shallow)+2)
	for k, v := range shallow {
		dct[k] = v
	}
	dct[ModuleField] = qn.Module
	dct[QualnameField] = qn.Qualname
	return dct, nil
}

func encodeNode(node any) (any, error) {
	dct, err := shallowTagged(node.(Tokenizable))
	if err != nil {
		return nil, err
	}
	return dct, nil
}

// isTaggedDict reports whether a tree node is a tagged mapping produced by
// the full encoding. A mapping bearing either tag counts: a record that
// carries one tag but lost the other must fail decoding as malformed
// rather than pass through as plain data.
func isTaggedDict(node any) bool {
	dct, ok := node.(map[string]any)
	if !ok {
		return false
	}
	_, hasModule := dct[ModuleField]
	_, hasQualname := dct[QualnameField]
	return hasModule || hasQualname
}
