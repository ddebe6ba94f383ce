package pipeline

import (
	"fmt"
	"maps"

	"missionkit/internal/descriptor"
	"missionkit/internal/property"
)

// Raw is one descriptor entry in wire shape, tagged with its kind.
type Raw struct {
	Kind Kind
	// Tag is the element name as it appeared in the descriptor.
	Tag        string
	Datafile   string
	Properties *property.Properties
	// Fields maps inline element names to their raw text.
	Fields map[string]string
}

// FromEntry validates a descriptor entry against its kind.
func FromEntry(e descriptor.Entry) (Raw, error) {
	kind, err := ParseKind(e.Tag)
	if err != nil {
		return Raw{}, err
	}
	spec := kind.spec()

	switch {
	case spec.datafile && !e.HasDatafile:
		return Raw{}, fmt.Errorf("%s: %w: <%s>", kind, descriptor.ErrMissingElement, descriptor.DatafileElement)
	case !spec.datafile && e.HasDatafile:
		return Raw{}, fmt.Errorf("%s: %w: <%s>", kind, descriptor.ErrUnexpectedElement, descriptor.DatafileElement)
	}

	fields := make(map[string]string, len(e.Fields))
	for _, f := range e.Fields {
		if !spec.hasField(f.Name) {
			return Raw{}, fmt.Errorf("%s: %w: <%s>", kind, descriptor.ErrUnexpectedElement, f.Name)
		}
		fields[f.Name] = f.Value
	}
	for _, f := range spec.fields {
		if _, ok := fields[f.tag]; !ok {
			return Raw{}, fmt.Errorf("%s: %w: <%s>", kind, descriptor.ErrMissingElement, f.tag)
		}
	}

	props := e.Properties
	if props == nil {
		props = property.New()
	}
	return Raw{
		Kind:       kind,
		Tag:        e.Tag,
		Datafile:   e.Datafile,
		Properties: props,
		Fields:     fields,
	}, nil
}

// Entry renders r as a descriptor entry, with inline fields in kind order.
func (r Raw) Entry() descriptor.Entry {
	spec := r.Kind.spec()
	e := descriptor.Entry{
		Tag:         r.Tag,
		HasDatafile: spec.datafile,
		Datafile:    r.Datafile,
		Properties:  r.Properties,
	}
	if e.Tag == "" {
		e.Tag = spec.tag
	}
	for _, f := range spec.fields {
		if v, ok := r.Fields[f.tag]; ok {
			e.Fields = append(e.Fields, descriptor.Field{Name: f.tag, Value: v})
		}
	}
	return e
}

// Equal compares two records field by field.
func (r Raw) Equal(other Raw) bool {
	if r.Kind != other.Kind || r.Tag != other.Tag || r.Datafile != other.Datafile {
		return false
	}
	if !maps.Equal(r.Fields, other.Fields) {
		return false
	}
	if r.Properties == nil || other.Properties == nil {
		return r.Properties == other.Properties
	}
	return r.Properties.Equal(other.Properties)
}

func (s kindSpec) hasField(tag string) bool {
	for _, f := range s.fields {
		if f.tag == tag {
			return true
		}
	}
	return false
}
