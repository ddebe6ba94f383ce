package pipeline

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"missionkit/internal/archive"
	"missionkit/internal/datafile"
	"missionkit/internal/property"
	"missionkit/internal/textenc"
)

var ErrNoDatafile = errors.New("object has no datafile")

const unnamed = "{unnamed object}"

// Object is a live mission object. Its identifier is fixed at construction.
type Object struct {
	id   uuid.UUID
	kind Kind
	tag  string

	props *property.Properties

	datafileName string
	datafile     *property.Properties
	// own lists the keys written in the object's datafile at load time.
	own      []string
	template *property.Properties
	encoding textenc.Encoding

	files *archive.Archive
}

// Collapsed is an object serialized back down: its descriptor record and
// the files it emits into the archive.
type Collapsed struct {
	Raw   Raw
	Files *archive.Archive
}

func (o *Object) ID() uuid.UUID { return o.id }
func (o *Object) Kind() Kind    { return o.kind }

// Name is the object's display name.
func (o *Object) Name() string {
	for _, props := range []*property.Properties{o.props, o.datafile} {
		if v, ok := props.Value("Name"); ok && v.String() != "" {
			return v.String()
		}
	}
	return unnamed
}

// HasName reports whether Name found a non-empty Name property.
func (o *Object) HasName() bool { return o.Name() != unnamed }

// DatafileName reports the datafile the object was built from.
func (o *Object) DatafileName() (string, bool) {
	return o.datafileName, o.kind.HasDatafile()
}

// Properties returns a copy of the object's properties.
func (o *Object) Properties() *property.Properties { return o.props.Clone() }

// Datafile returns a copy of the merged datafile properties.
func (o *Object) Datafile() *property.Properties { return o.datafile.Clone() }

// Files lists the resource files the object owns.
func (o *Object) Files() []string { return o.files.Names() }

// ResourceNames resolves the files the object would claim if it were built
// again from its collapsed form. Datafile keys removed since load fall back
// to the template, as they would on reload.
func (o *Object) ResourceNames() ([]string, error) {
	merged := o.datafile.Clone()
	for k, p := range o.template.All() {
		if !merged.Has(k) {
			merged.Put(k, p)
		}
	}
	return resolveResources(o.kind, merged, o.props)
}

func (o *Object) File(name string) ([]byte, error) { return o.files.Read(name) }

func (o *Object) HasFile(name string) bool { return o.files.Has(name) }

// SetProperty updates key from raw text, keeping any declared type.
func (o *Object) SetProperty(key, raw string) (property.Value, bool, error) {
	return o.props.ReplaceOrInsert(key, raw)
}

// PutProperty restores a property exactly, type and flags included.
func (o *Object) PutProperty(key string, p property.Property) {
	o.props.Put(key, p)
}

func (o *Object) RemoveProperty(key string) (property.Property, bool) {
	return o.props.Remove(key)
}

func (o *Object) SetDatafile(key, raw string) (property.Value, bool, error) {
	if !o.kind.HasDatafile() {
		return property.Value{}, false, fmt.Errorf("%w: %s", ErrNoDatafile, o.kind)
	}
	return o.datafile.ReplaceOrInsert(key, raw)
}

func (o *Object) PutDatafile(key string, p property.Property) error {
	if !o.kind.HasDatafile() {
		return fmt.Errorf("%w: %s", ErrNoDatafile, o.kind)
	}
	o.datafile.Put(key, p)
	return nil
}

func (o *Object) RemoveDatafile(key string) (property.Property, bool) {
	return o.datafile.Remove(key)
}

// ReplaceProperties swaps in props wholesale and returns the previous set.
func (o *Object) ReplaceProperties(props *property.Properties) *property.Properties {
	old := o.props
	o.props = props
	return old
}

func (o *Object) ReplaceDatafile(props *property.Properties) (*property.Properties, error) {
	if !o.kind.HasDatafile() {
		return nil, fmt.Errorf("%w: %s", ErrNoDatafile, o.kind)
	}
	old := o.datafile
	o.datafile = props
	return old, nil
}

// ReplaceFile swaps the contents of an owned file and returns the previous
// contents.
func (o *Object) ReplaceFile(name string, data []byte) ([]byte, error) {
	if !o.files.Has(name) {
		return nil, fmt.Errorf("%w: %s", archive.ErrMissingFile, name)
	}
	old, _ := o.files.Replace(name, data)
	return old, nil
}

// Collapse serializes the object without modifying it. Inline fields are
// pulled back out of the properties; the datafile keeps the keys the object
// was loaded with and adds any key that no longer matches the template.
func (o *Object) Collapse() (Collapsed, error) {
	spec := o.kind.spec()
	props := o.props.Clone()
	fields := make(map[string]string, len(spec.fields))

	for _, f := range spec.fields {
		prop, ok := props.Get(f.key)
		if !ok {
			return Collapsed{}, fmt.Errorf("%s %s: %w: %s", o.kind, o.id, property.ErrMissingProperty, f.key)
		}
		if prop.Value.Type() != f.typ {
			return Collapsed{}, fmt.Errorf("%s %s: %w: %s is %s, want %s",
				o.kind, o.id, property.ErrWrongTypeFound, f.key, prop.Value.Type(), f.typ)
		}
		fields[f.tag] = prop.Value.String()
		props.Remove(f.key)
	}

	files := o.files.Clone()
	if spec.datafile {
		text, err := datafile.Format(o.emittedDatafile())
		if err != nil {
			return Collapsed{}, fmt.Errorf("%s %s: %w", o.kind, o.id, err)
		}
		data, err := textenc.Encode(text, o.encoding)
		if err != nil {
			return Collapsed{}, fmt.Errorf("%s %s: %w", o.kind, o.id, err)
		}
		if err := files.Add(o.datafileName, data); err != nil {
			return Collapsed{}, fmt.Errorf("%s %s: %w", o.kind, o.id, err)
		}
	}

	return Collapsed{
		Raw: Raw{
			Kind:       o.kind,
			Tag:        o.tag,
			Datafile:   o.datafileName,
			Properties: props,
			Fields:     fields,
		},
		Files: files,
	}, nil
}

func (o *Object) emittedDatafile() *property.Properties {
	out := property.New()
	for _, k := range o.own {
		if p, ok := o.datafile.Get(k); ok {
			out.Put(k, p)
		}
	}
	for k, p := range o.datafile.All() {
		if slices.Contains(o.own, k) {
			continue
		}
		if def, ok := o.template.Get(k); ok && def.Value == p.Value {
			continue
		}
		out.Put(k, p)
	}
	return out
}

// Clone deep-copies the object under a fresh identifier.
func (o *Object) Clone() *Object {
	return &Object{
		id:           uuid.New(),
		kind:         o.kind,
		tag:          o.tag,
		props:        o.props.Clone(),
		datafileName: o.datafileName,
		datafile:     o.datafile.Clone(),
		own:          slices.Clone(o.own),
		template:     o.template,
		encoding:     o.encoding,
		files:        o.files.Clone(),
	}
}
