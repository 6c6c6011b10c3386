package savedoc

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Event is one entry of a country's history. The set of variants is closed
// inside this package; anything the decoder does not recognise arrives as
// Other so that no history entry is lost.
type Event interface {
	Kind() string
	isEvent()
}

type DatedEvent struct {
	Date  Date
	Event Event
}

type Ruler struct {
	Name string `yaml:"name"`
	Adm  int    `yaml:"adm"`
	Dip  int    `yaml:"dip"`
	Mil  int    `yaml:"mil"`
}

type Monarch struct {
	Ruler `yaml:",inline"`
}

type Heir struct {
	Ruler `yaml:",inline"`
}

type Queen struct {
	Ruler `yaml:",inline"`
}

type Leader struct {
	Name       string `yaml:"name"`
	LeaderKind string `yaml:"kind"`
}

type Capital struct {
	ProvinceID int
}

type ChangedCountryNameFrom struct {
	Name string
}

type ChangedCountryAdjectiveFrom struct {
	Adjective string
}

type ChangedCountryMapColorFrom struct {
	Color [3]uint8
}

type NationalFocus struct {
	Focus string
}

type AddAcceptedCulture struct {
	Culture string
}

type RemoveAcceptedCulture struct {
	Culture string
}

type ChangedTagFrom struct {
	Tag string
}

// Other carries a history entry whose variant has no dedicated type.
type Other struct {
	Name  string
	Value any
}

func (Monarch) Kind() string                     { return "Monarch" }
func (Heir) Kind() string                        { return "Heir" }
func (Queen) Kind() string                       { return "Queen" }
func (Leader) Kind() string                      { return "Leader" }
func (Capital) Kind() string                     { return "Capital" }
func (ChangedCountryNameFrom) Kind() string      { return "ChangedCountryNameFrom" }
func (ChangedCountryAdjectiveFrom) Kind() string { return "ChangedCountryAdjectiveFrom" }
func (ChangedCountryMapColorFrom) Kind() string  { return "ChangedCountryMapColorFrom" }
func (NationalFocus) Kind() string               { return "NationalFocus" }
func (AddAcceptedCulture) Kind() string          { return "AddAcceptedCulture" }
func (RemoveAcceptedCulture) Kind() string       { return "RemoveAcceptedCulture" }
func (ChangedTagFrom) Kind() string              { return "ChangedTagFrom" }

func (o Other) Kind() string {
	if strings.TrimSpace(o.Name) == "" {
		return "Unknown"
	}
	return o.Name
}

func (Monarch) isEvent()                     {}
func (Heir) isEvent()                        {}
func (Queen) isEvent()                       {}
func (Leader) isEvent()                      {}
func (Capital) isEvent()                     {}
func (ChangedCountryNameFrom) isEvent()      {}
func (ChangedCountryAdjectiveFrom) isEvent() {}
func (ChangedCountryMapColorFrom) isEvent()  {}
func (NationalFocus) isEvent()               {}
func (AddAcceptedCulture) isEvent()          {}
func (RemoveAcceptedCulture) isEvent()       {}
func (ChangedTagFrom) isEvent()              {}
func (Other) isEvent()                       {}

func (o Other) String() string {
	return fmt.Sprintf("%s: %s", o.Kind(), renderValue(o.Value))
}

// Describe renders any event as "Kind{field:value ...}" text.
func Describe(e Event) string {
	if e == nil {
		return "Unknown: <nil>"
	}
	if o, ok := e.(Other); ok {
		return o.String()
	}
	return fmt.Sprintf("%s%+v", e.Kind(), e)
}

func renderValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "<nil>"
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+"="+renderValue(t[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			parts = append(parts, renderValue(item))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprint(t)
	}
}

var variantKeys = map[string]func(*yaml.Node) (Event, error){
	"monarch": func(n *yaml.Node) (Event, error) {
		var r Ruler
		err := n.Decode(&r)
		return Monarch{Ruler: r}, err
	},
	"heir": func(n *yaml.Node) (Event, error) {
		var r Ruler
		err := n.Decode(&r)
		return Heir{Ruler: r}, err
	},
	"queen": func(n *yaml.Node) (Event, error) {
		var r Ruler
		err := n.Decode(&r)
		return Queen{Ruler: r}, err
	},
	"leader": func(n *yaml.Node) (Event, error) {
		var l Leader
		err := n.Decode(&l)
		return l, err
	},
	"capital": func(n *yaml.Node) (Event, error) {
		var id int
		err := n.Decode(&id)
		return Capital{ProvinceID: id}, err
	},
	"changed_country_name_from": func(n *yaml.Node) (Event, error) {
		var s string
		err := n.Decode(&s)
		return ChangedCountryNameFrom{Name: s}, err
	},
	"changed_country_adjective_from": func(n *yaml.Node) (Event, error) {
		var s string
		err := n.Decode(&s)
		return ChangedCountryAdjectiveFrom{Adjective: s}, err
	},
	"changed_country_map_color_from": func(n *yaml.Node) (Event, error) {
		var c []int
		if err := n.Decode(&c); err != nil {
			return nil, err
		}
		if len(c) != 3 {
			return nil, fmt.Errorf("savedoc: map color wants 3 components, got %d (line %d)", len(c), n.Line)
		}
		var out ChangedCountryMapColorFrom
		for i, v := range c {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("savedoc: map color component %d out of range (line %d)", v, n.Line)
			}
			out.Color[i] = uint8(v)
		}
		return out, nil
	},
	"national_focus": func(n *yaml.Node) (Event, error) {
		var s string
		err := n.Decode(&s)
		return NationalFocus{Focus: s}, err
	},
	"add_accepted_culture": func(n *yaml.Node) (Event, error) {
		var s string
		err := n.Decode(&s)
		return AddAcceptedCulture{Culture: s}, err
	},
	"remove_accepted_culture": func(n *yaml.Node) (Event, error) {
		var s string
		err := n.Decode(&s)
		return RemoveAcceptedCulture{Culture: s}, err
	},
	"changed_tag_from": func(n *yaml.Node) (Event, error) {
		var s string
		err := n.Decode(&s)
		return ChangedTagFrom{Tag: s}, err
	},
}

func (de *DatedEvent) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("savedoc: history entry must be a mapping (line %d)", node.Line)
	}
	var (
		haveDate bool
		variant  string
		value    *yaml.Node
	)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		val := node.Content[i+1]
		if key == "date" {
			if err := de.Date.UnmarshalYAML(val); err != nil {
				return err
			}
			haveDate = true
			continue
		}
		if variant != "" {
			return fmt.Errorf("savedoc: history entry has more than one variant (%s, %s) at line %d", variant, key, node.Line)
		}
		variant, value = key, val
	}
	if !haveDate {
		return fmt.Errorf("savedoc: history entry missing date (line %d)", node.Line)
	}
	if variant == "" {
		return fmt.Errorf("savedoc: history entry missing variant (line %d)", node.Line)
	}
	if decode, ok := variantKeys[variant]; ok {
		// A known variant with a payload it cannot hold is kept as Other.
		if ev, err := decode(value); err == nil {
			de.Event = ev
			return nil
		}
	}
	var raw any
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("savedoc: decode %s: %w", variant, err)
	}
	de.Event = Other{Name: variant, Value: raw}
	return nil
}
