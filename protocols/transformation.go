package protocols

import (
	"fmt"

	"github.com/gufe-go/gufe"
	"github.com/gufe-go/gufe/chem"
)

func init() {
	gufe.Register(transformationFromDict)
	gufe.Register(nonTransformationFromDict)
}

// Transformation is an edge of an alchemical network: two chemical systems
// and the protocol that carries one into the other.
type Transformation struct {
	gufe.KeyMemo

	stateA   *chem.ChemicalSystem
	stateB   *chem.ChemicalSystem
	protocol *Protocol
}

// NewTransformation returns a transformation from stateA to stateB under
// the given protocol.
func NewTransformation(stateA, stateB *chem.ChemicalSystem, protocol *Protocol) *Transformation {
	return &Transformation{stateA: stateA, stateB: stateB, protocol: protocol}
}

// StateA returns the starting system.
func (t *Transformation) StateA() *chem.ChemicalSystem { return t.stateA }

// StateB returns the ending system.
func (t *Transformation) StateB() *chem.ChemicalSystem { return t.stateB }

// Protocol returns the transformation's protocol.
func (t *Transformation) Protocol() *Protocol { return t.protocol }

// Create prepares the ProtocolDAG executing this transformation.
func (t *Transformation) Create() (*ProtocolDAG, error) {
	return t.protocol.Create(t.stateA, t.stateB)
}

// ToShallowDict implements gufe.Tokenizable.
func (t *Transformation) ToShallowDict() map[string]any {
	return map[string]any{
		"stateA":   t.stateA,
		"stateB":   t.stateB,
		"protocol": t.protocol,
	}
}

// Defaults implements gufe.Tokenizable.
func (t *Transformation) Defaults() map[string]any {
	return map[string]any{}
}

func transformationFromDict(dct map[string]any) (*Transformation, error) {
	stateA, err := systemField(dct, "stateA")
	if err != nil {
		return nil, err
	}
	stateB, err := systemField(dct, "stateB")
	if err != nil {
		return nil, err
	}
	protocol, ok := dct["protocol"].(*Protocol)
	if !ok {
		return nil, fmt.Errorf("protocols: field \"protocol\": expected *Protocol, got %T", dct["protocol"])
	}
	return &Transformation{stateA: stateA, stateB: stateB, protocol: protocol}, nil
}

// NonTransformation is the degenerate edge holding a single system at
// equilibrium under a protocol.
type NonTransformation struct {
	gufe.KeyMemo

	system   *chem.ChemicalSystem
	protocol *Protocol
}

// NewNonTransformation returns an equilibrium edge for the given system.
func NewNonTransformation(system *chem.ChemicalSystem, protocol *Protocol) *NonTransformation {
	return &NonTransformation{system: system, protocol: protocol}
}

// System returns the held system.
func (n *NonTransformation) System() *chem.ChemicalSystem { return n.system }

// Protocol returns the edge's protocol.
func (n *NonTransformation) Protocol() *Protocol { return n.protocol }

// Create prepares the ProtocolDAG sampling the held system.
func (n *NonTransformation) Create() (*ProtocolDAG, error) {
	return n.protocol.Create(n.system, n.system)
}

// ToShallowDict implements gufe.Tokenizable.
func (n *NonTransformation) ToShallowDict() map[string]any {
	return map[string]any{
		"system":   n.system,
		"protocol": n.protocol,
	}
}

// Defaults implements gufe.Tokenizable.
func (n *NonTransformation) Defaults() map[string]any {
	return map[string]any{}
}

func nonTransformationFromDict(dct map[string]any) (*NonTransformation, error) {
	system, err := systemField(dct, "system")
	if err != nil {
		return nil, err
	}
	protocol, ok := dct["protocol"].(*Protocol)
	if !ok {
		return nil, fmt.Errorf("protocols: field \"protocol\": expected *Protocol, got %T", dct["protocol"])
	}
	return &NonTransformation{system: system, protocol: protocol}, nil
}

func systemField(dct map[string]any, field string) (*chem.ChemicalSystem, error) {
	system, ok := dct[field].(*chem.ChemicalSystem)
	if !ok {
		return nil, fmt.Errorf("protocols: field %q: expected *chem.ChemicalSystem, got %T", field, dct[field])
	}
	return system, nil
}
