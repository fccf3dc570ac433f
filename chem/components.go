package chem

import (
	"fmt"
	"math"

	"github.com/gufe-go/gufe"
)

// Component is a labeled constituent of a ChemicalSystem.
type Component interface {
	gufe.Tokenizable

	// Name returns the component's human-readable name.
	Name() string

	// Charge returns the component's formal charge.
	Charge() int
}

func init() {
	gufe.Register(solventFromDict)
	gufe.Register(smallMoleculeFromDict)
}

// SolventComponent describes the solvent surrounding the other components.
// The zero-configuration solvent is water with Na+/Cl- counter-ions and
// charge neutralization enabled.
type SolventComponent struct {
	gufe.KeyMemo

	smiles      string
	positiveIon string
	negativeIon string
	neutralize  bool
}

var solventDefaults = map[string]any{
	"smiles":       "O",
	"positive_ion": "Na+",
	"negative_ion": "Cl-",
	"neutralize":   true,
}

// SolventOption configures NewSolventComponent.
type SolventOption func(*SolventComponent)

// WithSmiles sets the solvent's SMILES string.
func WithSmiles(smiles string) SolventOption {
	return func(s *SolventComponent) { s.smiles = smiles }
}

// WithIons sets the positive and negative counter-ions.
func WithIons(positive, negative string) SolventOption {
	return func(s *SolventComponent) {
		s.positiveIon = positive
		s.negativeIon = negative
	}
}

// WithoutNeutralization disables charge neutralization.
func WithoutNeutralization() SolventOption {
	return func(s *SolventComponent) { s.neutralize = false }
}

// NewSolventComponent returns a solvent, water by default.
func NewSolventComponent(opts ...SolventOption) *SolventComponent {
	s := &SolventComponent{
		smiles:      "O",
		positiveIon: "Na+",
		negativeIon: "Cl-",
		neutralize:  true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the solvent's SMILES string.
func (s *SolventComponent) Name() string { return s.smiles }

// Charge returns 0: solvents are neutral by construction.
func (s *SolventComponent) Charge() int { return 0 }

// Neutralize reports whether counter-ions neutralize the system charge.
func (s *SolventComponent) Neutralize() bool { return s.neutralize }

// Ions returns the positive and negative counter-ions.
func (s *SolventComponent) Ions() (positive, negative string) {
	return s.positiveIon, s.negativeIon
}

// ToShallowDict implements gufe.Tokenizable.
func (s *SolventComponent) ToShallowDict() map[string]any {
	return map[string]any{
		"smiles":       s.smiles,
		"positive_ion": s.positiveIon,
		"negative_ion": s.negativeIon,
		"neutralize":   s.neutralize,
	}
}

// Defaults implements gufe.Tokenizable.
func (s *SolventComponent) Defaults() map[string]any {
	return solventDefaults
}

func solventFromDict(dct map[string]any) (*SolventComponent, error) {
	dct = gufe.ApplyDefaults(dct, solventDefaults)
	smiles, err := stringField(dct, "smiles")
	if err != nil {
		return nil, err
	}
	positive, err := stringField(dct, "positive_ion")
	if err != nil {
		return nil, err
	}
	negative, err := stringField(dct, "negative_ion")
	if err != nil {
		return nil, err
	}
	neutralize, err := boolField(dct, "neutralize")
	if err != nil {
		return nil, err
	}
	return &SolventComponent{
		smiles:      smiles,
		positiveIon: positive,
		negativeIon: negative,
		neutralize:  neutralize,
	}, nil
}

// SmallMoleculeComponent is a single small molecule, such as a ligand.
type SmallMoleculeComponent struct {
	gufe.KeyMemo

	name   string
	smiles string
	charge int
}

var smallMoleculeDefaults = map[string]any{
	"name":   "",
	"charge": 0,
}

// NewSmallMoleculeComponent returns a small molecule with the given name,
// SMILES string, and formal charge.
func NewSmallMoleculeComponent(name, smiles string, charge int) *SmallMoleculeComponent {
	return &SmallMoleculeComponent{name: name, smiles: smiles, charge: charge}
}

// Name returns the molecule's name.
func (m *SmallMoleculeComponent) Name() string { return m.name }

// Smiles returns the molecule's SMILES string.
func (m *SmallMoleculeComponent) Smiles() string { return m.smiles }

// Charge returns the molecule's formal charge.
func (m *SmallMoleculeComponent) Charge() int { return m.charge }

// ToShallowDict implements gufe.Tokenizable.
func (m *SmallMoleculeComponent) ToShallowDict() map[string]any {
	return map[string]any{
		"name":   m.name,
		"smiles": m.smiles,
		"charge": m.charge,
	}
}

// Defaults implements gufe.Tokenizable.
func (m *SmallMoleculeComponent) Defaults() map[string]any {
	return smallMoleculeDefaults
}

func smallMoleculeFromDict(dct map[string]any) (*SmallMoleculeComponent, error) {
	dct = gufe.ApplyDefaults(dct, smallMoleculeDefaults)
	name, err := stringField(dct, "name")
	if err != nil {
		return nil, err
	}
	smiles, err := stringField(dct, "smiles")
	if err != nil {
		return nil, err
	}
	charge, err := intField(dct, "charge")
	if err != nil {
		return nil, err
	}
	return &SmallMoleculeComponent{name: name, smiles: smiles, charge: charge}, nil
}

func stringField(dct map[string]any, field string) (string, error) {
	v, ok := dct[field].(string)
	if !ok {
		return "", fmt.Errorf("chem: field %q: expected string, got %T", field, dct[field])
	}
	return v, nil
}

func boolField(dct map[string]any, field string) (bool, error) {
	v, ok := dct[field].(bool)
	if !ok {
		return false, fmt.Errorf("chem: field %q: expected bool, got %T", field, dct[field])
	}
	return v, nil
}

func intField(dct map[string]any, field string) (int, error) {
	switch v := dct[field].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		// JSON decoding surfaces numbers as float64.
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("chem: field %q: expected integer, got %v", field, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("chem: field %q: expected integer, got %T", field, dct[field])
	}
}
