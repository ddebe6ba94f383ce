// Package pipeline turns descriptor entries into live mission objects and
// collapses them back.
//
// Construction is staged: a Raw entry either resolves immediately or yields
// an Intermediary that names the files it needs. Build drives that loop
// against an archive until an Object comes out.
package pipeline

import (
	"errors"
	"fmt"

	"missionkit/internal/property"
)

var ErrUnknownKind = errors.New("unknown object kind")

type Kind int

const (
	ActiveProp Kind = iota
	Character
	Door
	Location
	Media
	Pickup
	Player
	Prop
	Rule
	SpecialEffect
	Trigger
	UserData
)

// inlineField is a scalar child of a descriptor entry that lives in the
// object's properties once constructed.
type inlineField struct {
	tag string
	key string
	typ property.Type
}

type kindSpec struct {
	name      string
	tag       string
	aliases   []string
	template  string
	datafile  bool
	fields    []inlineField
	resources []string
}

var orientation = inlineField{tag: "ORIENTATION", key: "Orientation", typ: property.TypeString}

var kinds = [...]kindSpec{
	ActiveProp: {
		name:      "ActiveProp",
		tag:       "ACTIVEPROP",
		template:  "Default.aprop",
		datafile:  true,
		fields:    []inlineField{orientation},
		resources: []string{"Object"},
	},
	Character: {
		name:      "Character",
		tag:       "CHARACTER",
		template:  "Default.character",
		datafile:  true,
		fields:    []inlineField{orientation},
		resources: []string{"Head", "Torso Object", "Legs Object"},
	},
	Door: {
		name:      "Door",
		tag:       "DOOR",
		template:  "Default.door",
		datafile:  true,
		fields:    []inlineField{orientation},
		resources: []string{"Object"},
	},
	Location: {
		name:     "Location",
		tag:      "LOCATION",
		template: "Default.Tile",
		datafile: true,
		fields: []inlineField{
			{tag: "BBOX_MIN", key: "BBox Min", typ: property.TypeString},
			{tag: "BBOX_MAX", key: "BBox Max", typ: property.TypeString},
		},
		resources: []string{"Blanking Plate Filename"},
	},
	Media: {
		name: "Media",
		tag:  "MEDIA",
	},
	Pickup: {
		name:      "Pickup",
		tag:       "PICKUP",
		template:  "Default.pickup",
		datafile:  true,
		fields:    []inlineField{orientation},
		resources: []string{"Object"},
	},
	Player: {
		name: "Player",
		tag:  "PLAYER",
		fields: []inlineField{
			orientation,
			{tag: "START_POSITION", key: "Start Position", typ: property.TypeString},
			{tag: "START_ORIENTATION", key: "Start Orientation", typ: property.TypeString},
		},
	},
	Prop: {
		name:      "Prop",
		tag:       "PROP",
		template:  "Default.prop",
		datafile:  true,
		fields:    []inlineField{orientation},
		resources: []string{"Object"},
	},
	Rule: {
		name: "Rule",
		tag:  "RULE",
	},
	SpecialEffect: {
		name:     "SpecialEffect",
		tag:      "SPECIAL_EFFECT",
		aliases:  []string{"SPECIALEFFECT"},
		template: "Default.effect",
		datafile: true,
		fields:   []inlineField{orientation},
	},
	Trigger: {
		name:      "Trigger",
		tag:       "TRIGGER",
		template:  "Default.trigger",
		datafile:  true,
		fields:    []inlineField{orientation},
		resources: []string{"Object"},
	},
	UserData: {
		name: "UserData",
		tag:  "USERDATA",
		fields: []inlineField{
			{tag: "DATA", key: "Data", typ: property.TypeString},
			{tag: "ExpandedSize", key: "Expanded Size", typ: property.TypeInt},
		},
	},
}

// ParseKind maps a descriptor element name to its Kind.
func ParseKind(tag string) (Kind, error) {
	for k, spec := range kinds {
		if spec.tag == tag {
			return Kind(k), nil
		}
		for _, alias := range spec.aliases {
			if alias == tag {
				return Kind(k), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %s", ErrUnknownKind, tag)
}

func Kinds() []Kind {
	out := make([]Kind, len(kinds))
	for i := range kinds {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) spec() kindSpec {
	if k < 0 || int(k) >= len(kinds) {
		return kindSpec{name: fmt.Sprintf("Kind(%d)", int(k))}
	}
	return kinds[k]
}

func (k Kind) String() string { return k.spec().name }

// Tag is the canonical descriptor element name.
func (k Kind) Tag() string { return k.spec().tag }

// Template names the shared default template, if the kind has one.
func (k Kind) Template() (string, bool) {
	t := k.spec().template
	return t, t != ""
}

func (k Kind) HasDatafile() bool { return k.spec().datafile }

// Resources lists the datafile keys naming files the object owns.
func (k Kind) Resources() []string { return k.spec().resources }

// FieldKeys lists the property keys that inline descriptor fields fold into.
func (k Kind) FieldKeys() []string {
	var keys []string
	for _, f := range k.spec().fields {
		keys = append(keys, f.key)
	}
	return keys
}
