package protocols

import (
	"fmt"
	"math"

	"github.com/gufe-go/gufe"
	"github.com/gufe-go/gufe/chem"
)

func init() {
	gufe.Register(settingsFromDict)
	gufe.Register(protocolFromDict)
}

// Settings configures a Protocol for repeated execution. Numeric values are
// structural configuration only; their scientific meaning is the consuming
// engine's business.
type Settings struct {
	gufe.KeyMemo

	nCycles  int
	timeStep float64
}

var settingsDefaults = map[string]any{
	"n_cycles":  100,
	"time_step": 2.0,
}

// SettingsOption configures NewSettings.
type SettingsOption func(*Settings)

// WithCycles sets the number of sampling cycles.
func WithCycles(n int) SettingsOption {
	return func(s *Settings) { s.nCycles = n }
}

// WithTimeStep sets the integration time step in femtoseconds.
func WithTimeStep(step float64) SettingsOption {
	return func(s *Settings) { s.timeStep = step }
}

// DefaultSettings returns the settings a Protocol uses when given none.
// These can be adjusted through options and passed to NewProtocol.
func DefaultSettings(opts ...SettingsOption) *Settings {
	s := &Settings{nCycles: 100, timeStep: 2.0}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cycles returns the number of sampling cycles.
func (s *Settings) Cycles() int { return s.nCycles }

// TimeStep returns the integration time step.
func (s *Settings) TimeStep() float64 { return s.timeStep }

// ToShallowDict implements gufe.Tokenizable.
func (s *Settings) ToShallowDict() map[string]any {
	return map[string]any{
		"n_cycles":  s.nCycles,
		"time_step": s.timeStep,
	}
}

// Defaults implements gufe.Tokenizable.
func (s *Settings) Defaults() map[string]any {
	return settingsDefaults
}

func settingsFromDict(dct map[string]any) (*Settings, error) {
	dct = gufe.ApplyDefaults(dct, settingsDefaults)
	nCycles, err := intField(dct, "n_cycles")
	if err != nil {
		return nil, err
	}
	timeStep, err := floatField(dct, "time_step")
	if err != nil {
		return nil, err
	}
	return &Settings{nCycles: nCycles, timeStep: timeStep}, nil
}

// Protocol implements an alchemical transformation between two chemical
// systems. It is configured with Settings on construction and prepares
// ProtocolDAGs via Create.
type Protocol struct {
	gufe.KeyMemo

	settings *Settings
}

// NewProtocol returns a protocol with the given settings, or default
// settings when nil.
func NewProtocol(settings *Settings) *Protocol {
	if settings == nil {
		settings = DefaultSettings()
	}
	return &Protocol{settings: settings}
}

// Settings returns the protocol's settings.
func (p *Protocol) Settings() *Settings { return p.settings }

// Create prepares a ProtocolDAG with all information required to execute
// the transformation from initial to final. The DAG's units form a setup ->
// run -> gather chain; a scheduler external to this module executes them
// once their dependencies complete.
func (p *Protocol) Create(initial, final *chem.ChemicalSystem) (*ProtocolDAG, error) {
	if initial == nil || final == nil {
		return nil, fmt.Errorf("protocols: Create requires both initial and final systems")
	}

	setup := NewProtocolUnit("setup", map[string]any{
		"initial": initial,
		"final":   final,
	})
	run := NewProtocolUnit("run", map[string]any{
		"settings": p.settings,
	}, setup)
	gather := NewProtocolUnit("gather", nil, run)

	return NewProtocolDAG("protocol", []*ProtocolUnit{setup, run, gather}), nil
}

// ToShallowDict implements gufe.Tokenizable. The settings stay a live
// reference; the codec encodes them.
func (p *Protocol) ToShallowDict() map[string]any {
	return map[string]any{
		"settings": p.settings,
	}
}

// Defaults implements gufe.Tokenizable.
func (p *Protocol) Defaults() map[string]any {
	return map[string]any{}
}

func protocolFromDict(dct map[string]any) (*Protocol, error) {
	settings, ok := dct["settings"].(*Settings)
	if !ok {
		return nil, fmt.Errorf("protocols: field \"settings\": expected *Settings, got %T", dct["settings"])
	}
	return &Protocol{settings: settings}, nil
}

func intField(dct map[string]any, field string) (int, error) {
	switch v := dct[field].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("protocols: field %q: expected integer, got %v", field, v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("protocols: field %q: expected integer, got %T", field, dct[field])
	}
}

func floatField(dct map[string]any, field string) (float64, error) {
	switch v := dct[field].(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("protocols: field %q: expected number, got %T", field, dct[field])
	}
}
