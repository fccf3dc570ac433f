package protocols

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/gufe-go/gufe"
)

func init() {
	gufe.Register(unitFromDict)
	gufe.Register(dagFromDict)
}

// ProtocolUnit is a single executable step in a ProtocolDAG. Each unit
// carries a uuid minted at creation, so two otherwise identical units from
// separate Create calls remain distinct entities; a unit round-trips
// through encoding with its uuid and therefore its key intact.
type ProtocolUnit struct {
	gufe.KeyMemo

	name         string
	inputs       map[string]any
	dependencies []*ProtocolUnit
	instance     string
}

// NewProtocolUnit returns a unit with the given name, inputs, and
// dependency units. Inputs may contain nested Tokenizables; the map is
// copied, not retained.
func NewProtocolUnit(name string, inputs map[string]any, dependencies ...*ProtocolUnit) *ProtocolUnit {
	copied := make(map[string]any, len(inputs))
	for k, v := range inputs {
		copied[k] = v
	}
	return &ProtocolUnit{
		name:         name,
		inputs:       copied,
		dependencies: append([]*ProtocolUnit(nil), dependencies...),
		instance:     uuid.NewString(),
	}
}

// Name returns the unit's name.
func (u *ProtocolUnit) Name() string { return u.name }

// Instance returns the uuid distinguishing this unit from structurally
// identical units created separately.
func (u *ProtocolUnit) Instance() string { return u.instance }

// Dependencies returns the units that must complete before this one.
func (u *ProtocolUnit) Dependencies() []*ProtocolUnit {
	return append([]*ProtocolUnit(nil), u.dependencies...)
}

// Inputs returns a copy of the unit's input mapping.
func (u *ProtocolUnit) Inputs() map[string]any {
	out := make(map[string]any, len(u.inputs))
	for k, v := range u.inputs {
		out[k] = v
	}
	return out
}

// ToShallowDict implements gufe.Tokenizable. Dependencies stay live
// references inside a sequence; the codec encodes them.
func (u *ProtocolUnit) ToShallowDict() map[string]any {
	deps := make([]any, len(u.dependencies))
	for i, dep := range u.dependencies {
		deps[i] = dep
	}
	inputs := make(map[string]any, len(u.inputs))
	for k, v := range u.inputs {
		inputs[k] = v
	}
	return map[string]any{
		"name":         u.name,
		"inputs":       inputs,
		"dependencies": deps,
		"instance":     u.instance,
	}
}

// Defaults implements gufe.Tokenizable.
func (u *ProtocolUnit) Defaults() map[string]any {
	return map[string]any{}
}

func unitFromDict(dct map[string]any) (*ProtocolUnit, error) {
	name, ok := dct["name"].(string)
	if !ok {
		return nil, fmt.Errorf("protocols: field \"name\": expected string, got %T", dct["name"])
	}
	instance, ok := dct["instance"].(string)
	if !ok {
		return nil, fmt.Errorf("protocols: field \"instance\": expected string, got %T", dct["instance"])
	}
	inputs, ok := dct["inputs"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("protocols: field \"inputs\": expected mapping, got %T", dct["inputs"])
	}

	rawDeps, ok := dct["dependencies"].([]any)
	if !ok {
		return nil, fmt.Errorf("protocols: field \"dependencies\": expected sequence, got %T", dct["dependencies"])
	}
	deps := make([]*ProtocolUnit, len(rawDeps))
	for i, raw := range rawDeps {
		dep, ok := raw.(*ProtocolUnit)
		if !ok {
			return nil, fmt.Errorf("protocols: dependency %d: %T is not a *ProtocolUnit", i, raw)
		}
		deps[i] = dep
	}

	copied := make(map[string]any, len(inputs))
	for k, v := range inputs {
		copied[k] = v
	}
	return &ProtocolUnit{
		name:         name,
		inputs:       copied,
		dependencies: deps,
		instance:     instance,
	}, nil
}

// ProtocolDAG is the directed acyclic graph of units a Protocol prepares
// for one transformation. Dependencies are encoded per unit, so the DAG
// itself is just the named collection.
type ProtocolDAG struct {
	gufe.KeyMemo

	name  string
	units []*ProtocolUnit
}

// NewProtocolDAG returns a DAG over the given units.
func NewProtocolDAG(name string, units []*ProtocolUnit) *ProtocolDAG {
	return &ProtocolDAG{
		name:  name,
		units: append([]*ProtocolUnit(nil), units...),
	}
}

// Name returns the DAG's name.
func (d *ProtocolDAG) Name() string { return d.name }

// Units returns the DAG's units in creation order.
func (d *ProtocolDAG) Units() []*ProtocolUnit {
	return append([]*ProtocolUnit(nil), d.units...)
}

// ToShallowDict implements gufe.Tokenizable.
func (d *ProtocolDAG) ToShallowDict() map[string]any {
	units := make([]any, len(d.units))
	for i, unit := range d.units {
		units[i] = unit
	}
	return map[string]any{
		"name":  d.name,
		"units": units,
	}
}

// Defaults implements gufe.Tokenizable.
func (d *ProtocolDAG) Defaults() map[string]any {
	return map[string]any{}
}

func dagFromDict(dct map[string]any) (*ProtocolDAG, error) {
	name, ok := dct["name"].(string)
	if !ok {
		return nil, fmt.Errorf("protocols: field \"name\": expected string, got %T", dct["name"])
	}
	rawUnits, ok := dct["units"].([]any)
	if !ok {
		return nil, fmt.Errorf("protocols: field \"units\": expected sequence, got %T", dct["units"])
	}
	units := make([]*ProtocolUnit, len(rawUnits))
	for i, raw := range rawUnits {
		unit, ok := raw.(*ProtocolUnit)
		if !ok {
			return nil, fmt.Errorf("protocols: unit %d: %T is not a *ProtocolUnit", i, raw)
		}
		units[i] = unit
	}
	return &ProtocolDAG{name: name, units: units}, nil
}
