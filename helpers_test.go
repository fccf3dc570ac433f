package gufe

import "fmt"

// Point is the minimal fixture type: one defaulted field, one required.
type Point struct {
	KeyMemo
	X, Y int
}

var pointDefaults = map[string]any{"x": 0}

func (p *Point) ToShallowDict() map[string]any {
	return map[string]any{"x": p.X, "y": p.Y}
}

func (p *Point) Defaults() map[string]any {
	return pointDefaults
}

func pointFromDict(dct map[string]any) (*Point, error) {
	dct = ApplyDefaults(dct, pointDefaults)
	x, err := testInt(dct, "x")
	if err != nil {
		return nil, err
	}
	y, err := testInt(dct, "y")
	if err != nil {
		return nil, err
	}
	return &Point{X: x, Y: y}, nil
}

// Box nests entities both in a sequence and as a direct field.
type Box struct {
	KeyMemo
	Label string
	Items []Tokenizable
}

func (b *Box) ToShallowDict() map[string]any {
	items := make([]any, len(b.Items))
	for i, item := range b.Items {
		items[i] = item
	}
	return map[string]any{"label": b.Label, "items": items}
}

func (b *Box) Defaults() map[string]any {
	return map[string]any{"label": ""}
}

func boxFromDict(dct map[string]any) (*Box, error) {
	dct = ApplyDefaults(dct, map[string]any{"label": ""})
	label, ok := dct["label"].(string)
	if !ok {
		return nil, fmt.Errorf("field \"label\": got %T", dct["label"])
	}
	rawItems, ok := dct["items"].([]any)
	if !ok {
		return nil, fmt.Errorf("field \"items\": got %T", dct["items"])
	}
	items := make([]Tokenizable, len(rawItems))
	for i, raw := range rawItems {
		item, ok := raw.(Tokenizable)
		if !ok {
			return nil, fmt.Errorf("item %d: got %T", i, raw)
		}
		items[i] = item
	}
	return &Box{Label: label, Items: items}, nil
}

// Bare does not embed KeyMemo, exercising the unmemoized KeyOf path.
type Bare struct {
	V string
}

func (b *Bare) ToShallowDict() map[string]any {
	return map[string]any{"v": b.V}
}

func (b *Bare) Defaults() map[string]any {
	return map[string]any{}
}

func bareFromDict(dct map[string]any) (*Bare, error) {
	v, ok := dct["v"].(string)
	if !ok {
		return nil, fmt.Errorf("field \"v\": got %T", dct["v"])
	}
	return &Bare{V: v}, nil
}

// Stray is deliberately never registered.
type Stray struct {
	KeyMemo
	N int
}

func (s *Stray) ToShallowDict() map[string]any {
	return map[string]any{"n": s.N}
}

func (s *Stray) Defaults() map[string]any {
	return map[string]any{}
}

// Nilly violates the contract by returning a nil shallow dict.
type Nilly struct{}

func (n *Nilly) ToShallowDict() map[string]any { return nil }
func (n *Nilly) Defaults() map[string]any      { return nil }

func init() {
	Register(pointFromDict)
	Register(boxFromDict)
	Register(bareFromDict)
}

func testInt(dct map[string]any, field string) (int, error) {
	switch v := dct[field].(type) {
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("field %q: expected integer, got %T", field, dct[field])
	}
}

func mustKey(t interface{ Fatalf(string, ...any) }, obj Tokenizable) Key {
	k, err := KeyOf(obj)
	if err != nil {
		t.Fatalf("KeyOf: %v", err)
	}
	return k
}
