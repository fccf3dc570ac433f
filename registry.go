package gufe

import (
	"fmt"
	"reflect"
	"sync"
)

// QualifiedName identifies a registered class by module (Go package path)
// and qualified type name. It matches the "__module__" and "__qualname__"
// tags embedded in the full dictionary form.
type QualifiedName struct {
	Module   string `json:"module" yaml:"module"`
	Qualname string `json:"qualname" yaml:"qualname"`
}

// String returns "module.Qualname".
func (qn QualifiedName) String() string {
	return qn.Module + "." + qn.Qualname
}

// Resolver is a hook consulted when a decode encounters a qualified name
// with no registered class. A resolver performs whatever registration it
// can for the given name (for example, initializing a plugin) and returns
// an error if it cannot. After a resolver returns nil the registry is
// checked again; successful resolutions are served from the registry on
// later lookups.
type Resolver func(QualifiedName) error

// TokenizablePtr constrains PT to be a pointer to T that implements
// Tokenizable. It lets registration capture the concrete type so decoded
// instances can be tracked with true weak references.
type TokenizablePtr[T any] interface {
	*T
	Tokenizable
}

// classRecord holds everything the codec needs to reconstruct and track one
// concrete type.
type classRecord struct {
	name     QualifiedName
	fromDict func(map[string]any) (Tokenizable, error)
	track    func(Key, Tokenizable) bool
}

// classRegistry is the process-wide class registry, remap table, and
// resolver list. Decoding may run from multiple goroutines, so all access
// is lock-guarded.
var classRegistry = struct {
	mu        sync.RWMutex
	byName    map[QualifiedName]*classRecord
	byType    map[reflect.Type]*classRecord
	remaps    map[QualifiedName]QualifiedName
	resolvers []Resolver
}{
	byName: make(map[QualifiedName]*classRecord),
	byType: make(map[reflect.Type]*classRecord),
	remaps: make(map[QualifiedName]QualifiedName),
}

// Register registers a concrete Tokenizable type under its natural
// qualified name (package path and type name), with fromDict as the inverse
// of ToShallowDict. fromDict receives exactly the keys ToShallowDict
// produces, with nested Tokenizables already decoded to live values, and
// must tolerate default-valued fields being absent (see ApplyDefaults).
//
// Call Register from the defining package's init function so the class is
// available before any decode runs:
//
//	func init() {
//		gufe.Register(newPointFromDict)
//	}
func Register[T any, PT TokenizablePtr[T]](fromDict func(map[string]any) (PT, error)) {
	ty := reflect.TypeFor[T]()
	RegisterAs[T, PT](QualifiedName{Module: ty.PkgPath(), Qualname: ty.Name()}, fromDict)
}

// RegisterAs registers a concrete type under an explicit qualified name.
// Use it when the stored name must differ from the natural one, such as
// keeping a legacy alias alive alongside a remap entry. The first
// registration for a given Go type becomes its canonical name, used when
// encoding.
func RegisterAs[T any, PT TokenizablePtr[T]](qn QualifiedName, fromDict func(map[string]any) (PT, error)) {
	rec := &classRecord{
		name: qn,
		fromDict: func(dct map[string]any) (Tokenizable, error) {
			obj, err := fromDict(dct)
			if err != nil {
				return nil, err
			}
			return obj, nil
		},
		track: makeTracker[T, PT](),
	}

	classRegistry.mu.Lock()
	defer classRegistry.mu.Unlock()
	classRegistry.byName[qn] = rec
	goType := reflect.TypeFor[PT]()
	if _, ok := classRegistry.byType[goType]; !ok {
		classRegistry.byType[goType] = rec
	}
}

// RegisterRemap records that dictionaries tagged with old should decode as
// the class registered under new. The remap table is consulted before the
// class registry, so previously stored data keeps resolving across renames
// and relocations. Remaps are single-hop: chains must be registered
// explicitly (old1->new and old2->new, not old1->old2->new).
func RegisterRemap(old, new QualifiedName) {
	classRegistry.mu.Lock()
	defer classRegistry.mu.Unlock()
	classRegistry.remaps[old] = new
}

// LookupRemap returns the remapped name for qn, if one is registered.
func LookupRemap(qn QualifiedName) (QualifiedName, bool) {
	classRegistry.mu.RLock()
	defer classRegistry.mu.RUnlock()
	mapped, ok := classRegistry.remaps[qn]
	return mapped, ok
}

// RegisterResolver adds a resolver consulted, in registration order, when a
// decode misses the class registry.
func RegisterResolver(r Resolver) {
	classRegistry.mu.Lock()
	defer classRegistry.mu.Unlock()
	classRegistry.resolvers = append(classRegistry.resolvers, r)
}

// IsRegistered reports whether a class is registered under qn, after
// applying any remap entry.
func IsRegistered(qn QualifiedName) bool {
	if mapped, ok := LookupRemap(qn); ok {
		qn = mapped
	}
	classRegistry.mu.RLock()
	defer classRegistry.mu.RUnlock()
	_, ok := classRegistry.byName[qn]
	return ok
}

// lookupClass resolves a qualified name to its class record: remap table
// first, then the registry, then each registered resolver.
func lookupClass(qn QualifiedName) (*classRecord, error) {
	if mapped, ok := LookupRemap(qn); ok {
		qn = mapped
	}

	if rec := registeredClass(qn); rec != nil {
		return rec, nil
	}

	classRegistry.mu.RLock()
	resolvers := make([]Resolver, len(classRegistry.resolvers))
	copy(resolvers, classRegistry.resolvers)
	classRegistry.mu.RUnlock()

	var resolveErr error
	for _, resolve := range resolvers {
		if err := resolve(qn); err != nil {
			resolveErr = err
			continue
		}
		if rec := registeredClass(qn); rec != nil {
			return rec, nil
		}
	}

	if resolveErr != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrUnresolvableType, qn, resolveErr)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnresolvableType, qn)
}

func registeredClass(qn QualifiedName) *classRecord {
	classRegistry.mu.RLock()
	defer classRegistry.mu.RUnlock()
	return classRegistry.byName[qn]
}

func recordForType(t Tokenizable) *classRecord {
	classRegistry.mu.RLock()
	defer classRegistry.mu.RUnlock()
	return classRegistry.byType[reflect.TypeOf(t)]
}

// qualifiedNameOf returns the canonical qualified name for a live value:
// the registered name when the type is registered, the reflected package
// path and type name otherwise. Encoding therefore works for unregistered
// types, though decoding them will fail until they register.
func qualifiedNameOf(t Tokenizable) QualifiedName {
	if rec := recordForType(t); rec != nil {
		return rec.name
	}
	ty := derefType(t)
	return QualifiedName{Module: ty.PkgPath(), Qualname: ty.Name()}
}

// typeNameOf returns the concrete type's simple name, used as the key
// prefix.
func typeNameOf(t Tokenizable) string {
	return derefType(t).Name()
}

func derefType(t Tokenizable) reflect.Type {
	ty := reflect.TypeOf(t)
	for ty.Kind() == reflect.Pointer {
		ty = ty.Elem()
	}
	return ty
}
