// Package gufe implements a content-addressable object model.
//
// Every participating value (a Tokenizable) can be exported to a canonical,
// nested-dictionary representation, hashed into a stable identifier derived
// from its content, and reconstructed from that representation. Structurally
// identical instances held in memory are deduplicated on decode.
//
// # Core Concepts
//
//   - Tokenizable: the contract a concrete type implements to participate
//     in content addressing (shallow dictionary export plus declared
//     field defaults).
//   - Key: the stable "{TypeName}-{fingerprint}" identity of a value's
//     content, computed once and memoized for the object's lifetime.
//   - Class registry: maps (module, qualname) tags embedded in encoded
//     dictionaries back to registered constructors, with a remap table so
//     renamed types keep resolving from previously stored data.
//   - Instance registry: a process-wide, non-owning index from key to live
//     instance; decoding a dictionary whose key matches an already-live
//     instance returns that instance rather than a fresh copy.
//
// # Encoding Forms
//
// Three dictionary forms exist for every Tokenizable:
//
//   - Shallow: own fields only, nested Tokenizables left as live references.
//   - Full: nested Tokenizables recursively expanded in place, each tagged
//     with "__module__" and "__qualname__" (see ToDict / FromDict).
//   - Keyed: nested Tokenizables replaced by {":gufe-key:": key} reference
//     records (see ToKeyedDict / FromKeyedDict). Decoding the keyed form
//     requires every referenced instance to already be registered, which is
//     the responsibility of the persistence layer that produced it.
//
// The full form maps 1:1 onto JSON and is self-describing: it decodes with
// no external type hints beyond the class registry.
//
// # Registration
//
// Concrete types register a constructor at package initialization:
//
//	func init() {
//		gufe.Register(func(d map[string]any) (*Point, error) {
//			d = gufe.ApplyDefaults(d, pointDefaults)
//			return &Point{X: d["x"].(int), Y: d["y"].(int)}, nil
//		})
//	}
//
// All registries are safe for concurrent use.
package gufe
