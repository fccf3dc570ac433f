package chem

import (
	"fmt"
	"sort"

	"github.com/gufe-go/gufe"
)

func init() {
	gufe.Register(systemFromDict)
}

// ChemicalSystem is a node of an alchemical network: a set of Components
// under user-defined labels, an optional unit-cell definition, and an
// optional caller-supplied identifier. Systems are immutable; accessors
// return copies.
type ChemicalSystem struct {
	gufe.KeyMemo

	components map[string]Component
	boxVectors []float64
	identifier string
}

var systemDefaults = map[string]any{
	"box_vectors": nil,
	"identifier":  "",
}

// SystemOption configures NewChemicalSystem.
type SystemOption func(*ChemicalSystem)

// WithBoxVectors sets the unit-cell definition, nine values in row-major
// order. A partial definition may leave trailing dimensions unset.
func WithBoxVectors(vectors []float64) SystemOption {
	return func(s *ChemicalSystem) {
		s.boxVectors = append([]float64(nil), vectors...)
	}
}

// WithIdentifier attaches a caller-supplied identifier, included in the
// system's content.
func WithIdentifier(identifier string) SystemOption {
	return func(s *ChemicalSystem) { s.identifier = identifier }
}

// NewChemicalSystem builds a system from labeled components.
func NewChemicalSystem(components map[string]Component, opts ...SystemOption) *ChemicalSystem {
	s := &ChemicalSystem{components: make(map[string]Component, len(components))}
	for label, comp := range components {
		s.components[label] = comp
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Components returns a copy of the labeled component map.
func (s *ChemicalSystem) Components() map[string]Component {
	out := make(map[string]Component, len(s.components))
	for label, comp := range s.components {
		out[label] = comp
	}
	return out
}

// Labels returns the component labels in sorted order.
func (s *ChemicalSystem) Labels() []string {
	labels := make([]string, 0, len(s.components))
	for label := range s.components {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// BoxVectors returns a copy of the unit-cell definition, or nil if unset.
func (s *ChemicalSystem) BoxVectors() []float64 {
	if s.boxVectors == nil {
		return nil
	}
	return append([]float64(nil), s.boxVectors...)
}

// Identifier returns the caller-supplied identifier, if any.
func (s *ChemicalSystem) Identifier() string { return s.identifier }

// TotalCharge sums the formal charges of all components.
func (s *ChemicalSystem) TotalCharge() int {
	total := 0
	for _, comp := range s.components {
		total += comp.Charge()
	}
	return total
}

// ToShallowDict implements gufe.Tokenizable. Components stay live
// references; the codec encodes them.
func (s *ChemicalSystem) ToShallowDict() map[string]any {
	components := make(map[string]any, len(s.components))
	for label, comp := range s.components {
		components[label] = comp
	}
	var vectors any
	if s.boxVectors != nil {
		vs := make([]any, len(s.boxVectors))
		for i, v := range s.boxVectors {
			vs[i] = v
		}
		vectors = vs
	}
	return map[string]any{
		"components":  components,
		"box_vectors": vectors,
		"identifier":  s.identifier,
	}
}

// Defaults implements gufe.Tokenizable.
func (s *ChemicalSystem) Defaults() map[string]any {
	return systemDefaults
}

func systemFromDict(dct map[string]any) (*ChemicalSystem, error) {
	dct = gufe.ApplyDefaults(dct, systemDefaults)

	rawComponents, ok := dct["components"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("chem: field \"components\": expected mapping, got %T", dct["components"])
	}
	components := make(map[string]Component, len(rawComponents))
	for label, raw := range rawComponents {
		comp, ok := raw.(Component)
		if !ok {
			return nil, fmt.Errorf("chem: component %q: %T is not a chem.Component", label, raw)
		}
		components[label] = comp
	}

	var vectors []float64
	if raw := dct["box_vectors"]; raw != nil {
		items, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("chem: field \"box_vectors\": expected sequence, got %T", raw)
		}
		vectors = make([]float64, len(items))
		for i, item := range items {
			f, err := floatValue(item)
			if err != nil {
				return nil, fmt.Errorf("chem: box vector %d: %w", i, err)
			}
			vectors[i] = f
		}
	}

	identifier, err := stringField(dct, "identifier")
	if err != nil {
		return nil, err
	}

	return &ChemicalSystem{
		components: components,
		boxVectors: vectors,
		identifier: identifier,
	}, nil
}

func floatValue(v any) (float64, error) {
	switch f := v.(type) {
	case float64:
		return f, nil
	case float32:
		return float64(f), nil
	case int:
		return float64(f), nil
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}
