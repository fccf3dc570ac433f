package gufe

import (
	"runtime"
	"sync"
	"weak"
)

// liveHandle is a non-owning reference to a tracked instance. It returns
// nil once the referent has been collected.
type liveHandle func() Tokenizable

// instanceRegistry is the process-wide key -> live-instance index used to
// deduplicate decoding. Entries hold weak references only: the registry
// never keeps an object alive, and a lookup that finds a dead handle
// behaves exactly as if the key were absent.
var instanceRegistry = struct {
	mu sync.RWMutex
	m  map[Key]liveHandle
}{m: make(map[Key]liveHandle)}

// LookupInstance returns the live instance registered under key, if any.
// Dead entries are pruned as they are encountered.
func LookupInstance(key Key) (Tokenizable, bool) {
	instanceRegistry.mu.RLock()
	handle, ok := instanceRegistry.m[key]
	instanceRegistry.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if obj := handle(); obj != nil {
		return obj, true
	}
	dropDeadInstance(key)
	return nil, false
}

// TrackInstance computes the key of t and registers it (non-owningly) in
// the instance registry, returning the key. Persistence layers call this to
// make dependencies resolvable before decoding a keyed dictionary form. The
// value's type must be registered, since tracking needs the registered
// constructor's concrete type to form a weak reference.
func TrackInstance(t Tokenizable) (Key, error) {
	key, err := KeyOf(t)
	if err != nil {
		return "", err
	}
	if recordForType(t) == nil {
		return "", decodeErr("TrackInstance", qualifiedNameOf(t), ErrUnresolvableType)
	}
	trackLive(key, t)
	return key, nil
}

// trackLive registers t under key if its type is registered and no live
// entry already holds the key. An existing live entry is never displaced,
// preserving "at most one live instance per key".
func trackLive(key Key, t Tokenizable) {
	rec := recordForType(t)
	if rec == nil {
		return
	}
	rec.track(key, t)
}

// makeTracker builds the typed tracking function stored in a class record.
// It is the one place the concrete type is statically known, which a weak
// pointer requires. The stored handle captures only the weak pointer, so
// the registry never extends the referent's lifetime; a cleanup prunes the
// entry once the referent is collected.
func makeTracker[T any, PT TokenizablePtr[T]]() func(Key, Tokenizable) bool {
	return func(key Key, obj Tokenizable) bool {
		p, ok := obj.(PT)
		if !ok {
			return false
		}
		raw := (*T)(p)
		wp := weak.Make(raw)
		stored := storeInstance(key, func() Tokenizable {
			if live := wp.Value(); live != nil {
				return PT(live)
			}
			return nil
		})
		if stored {
			runtime.AddCleanup(raw, dropDeadInstance, key)
		}
		return true
	}
}

// storeInstance inserts a handle for key unless a live one is already
// present. It reports whether the handle was stored.
func storeInstance(key Key, handle liveHandle) bool {
	instanceRegistry.mu.Lock()
	defer instanceRegistry.mu.Unlock()
	if existing, ok := instanceRegistry.m[key]; ok && existing() != nil {
		return false
	}
	instanceRegistry.m[key] = handle
	return true
}

// dropDeadInstance removes the entry for key only if its referent is gone.
func dropDeadInstance(key Key) {
	instanceRegistry.mu.Lock()
	defer instanceRegistry.mu.Unlock()
	if handle, ok := instanceRegistry.m[key]; ok && handle() == nil {
		delete(instanceRegistry.m, key)
	}
}

// resetInstanceRegistry empties the registry. Test use only.
func resetInstanceRegistry() {
	instanceRegistry.mu.Lock()
	defer instanceRegistry.mu.Unlock()
	instanceRegistry.m = make(map[Key]liveHandle)
}
