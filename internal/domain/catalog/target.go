package catalog

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// TargetKind selects which single criterion an effect is matched on.
type TargetKind int

const (
	TargetAll TargetKind = iota
	TargetCategory
	TargetSpecific
)

func (k TargetKind) String() string {
	switch k {
	case TargetAll:
		return "all"
	case TargetCategory:
		return "category"
	case TargetSpecific:
		return "specific"
	}
	return fmt.Sprintf("TargetKind(%d)", int(k))
}

// ParseTargetKind maps the wire names all, category and specific.
func ParseTargetKind(s string) (TargetKind, error) {
	switch s {
	case "all", "":
		return TargetAll, nil
	case "category":
		return TargetCategory, nil
	case "specific":
		return TargetSpecific, nil
	}
	return 0, fmt.Errorf("unknown target type %q", s)
}

// Target is the effect selector: every building, a category, or one building type.
// Value is the category name or building type id and is ignored for TargetAll.
type Target struct {
	Kind  TargetKind
	Value string
}

// AllBuildings matches every building.
func AllBuildings() Target { return Target{Kind: TargetAll} }

// InCategory matches buildings whose type belongs to c.
func InCategory(c Category) Target { return Target{Kind: TargetCategory, Value: string(c)} }

// Specific matches buildings of exactly one type.
func Specific(buildingTypeID string) Target { return Target{Kind: TargetSpecific, Value: buildingTypeID} }

// Matches reports whether the target selects buildings of type bt.
func (t Target) Matches(bt *BuildingType) bool {
	if bt == nil {
		return false
	}
	switch t.Kind {
	case TargetAll:
		return true
	case TargetCategory:
		return t.Value == string(bt.Category)
	case TargetSpecific:
		return t.Value == bt.ID
	}
	return false
}

func (t Target) String() string {
	if t.Kind == TargetAll {
		return "all"
	}
	return t.Kind.String() + ":" + t.Value
}

type effectWire struct {
	TargetType  string  `json:"target_type" yaml:"target_type"`
	Target      string  `json:"target" yaml:"target"`
	Modifier    float64 `json:"modifier" yaml:"modifier"`
	Description string  `json:"description" yaml:"description"`
}

func (e EventEffect) wire() effectWire {
	w := effectWire{
		TargetType:  e.Target.Kind.String(),
		Modifier:    e.Modifier,
		Description: e.Description,
	}
	if e.Target.Kind != TargetAll {
		w.Target = e.Target.Value
	}
	return w
}

func (e *EventEffect) fromWire(w effectWire) error {
	kind, err := ParseTargetKind(w.TargetType)
	if err != nil {
		return err
	}
	e.Target = Target{Kind: kind}
	if kind != TargetAll {
		if w.Target == "" {
			return fmt.Errorf("%s effect without target", kind)
		}
		e.Target.Value = w.Target
	}
	e.Modifier = w.Modifier
	e.Description = w.Description
	return nil
}

func (e EventEffect) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.wire())
}

func (e *EventEffect) UnmarshalJSON(data []byte) error {
	var w effectWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return e.fromWire(w)
}

func (e EventEffect) MarshalYAML() (interface{}, error) {
	return e.wire(), nil
}

func (e *EventEffect) UnmarshalYAML(value *yaml.Node) error {
	var w effectWire
	if err := value.Decode(&w); err != nil {
		return err
	}
	return e.fromWire(w)
}
