package pipeline

import (
	"fmt"

	"github.com/google/uuid"

	"missionkit/internal/archive"
	"missionkit/internal/datafile"
	"missionkit/internal/descriptor"
	"missionkit/internal/property"
	"missionkit/internal/textenc"
)

// Prerequisite names a file a construction stage needs. Shared files stay
// in the archive for other objects; the rest are claimed.
type Prerequisite struct {
	Name   string
	Shared bool
}

// Step is the outcome of one construction stage: either a finished Object
// or an Intermediary waiting on more files.
type Step struct {
	Object *Object
	Next   *Intermediary
}

type stage int

const (
	stageDatafile stage = iota
	stageResources
)

// Intermediary is a partially constructed object.
type Intermediary struct {
	kind  Kind
	tag   string
	stage stage

	props *property.Properties

	datafileName string
	datafile     *property.Properties
	own          []string
	template     *property.Properties
	encoding     textenc.Encoding

	files *archive.Archive
}

// Begin folds inline fields into the properties and returns the first
// construction step. Kinds without files finish immediately.
func (r Raw) Begin() (Step, error) {
	spec := r.Kind.spec()
	if spec.tag == "" {
		return Step{}, fmt.Errorf("%w: %s", ErrUnknownKind, r.Kind)
	}

	props := property.New()
	if r.Properties != nil {
		props = r.Properties.Clone()
	}
	for _, f := range spec.fields {
		raw, ok := r.Fields[f.tag]
		if !ok {
			return Step{}, fmt.Errorf("%s: %w: <%s>", r.Kind, descriptor.ErrMissingElement, f.tag)
		}
		v, err := property.Parse(raw, f.typ)
		if err != nil {
			return Step{}, fmt.Errorf("%s <%s>: %w", r.Kind, f.tag, err)
		}
		if err := props.Add(f.key, property.Property{Value: v}); err != nil {
			return Step{}, fmt.Errorf("%s: folding <%s>: %w", r.Kind, f.tag, err)
		}
	}

	im := &Intermediary{
		kind:     r.Kind,
		tag:      r.Tag,
		props:    props,
		datafile: property.New(),
		template: property.New(),
		files:    archive.New(),
	}
	if im.tag == "" {
		im.tag = spec.tag
	}

	switch {
	case spec.datafile:
		im.stage = stageDatafile
		im.datafileName = r.Datafile
		return Step{Next: im}, nil
	case len(spec.resources) > 0:
		im.stage = stageResources
		return Step{Next: im}, nil
	default:
		return Step{Object: im.finish()}, nil
	}
}

func (im *Intermediary) Kind() Kind { return im.kind }

// Prerequisites lists the files the current stage needs, in claim order.
func (im *Intermediary) Prerequisites() ([]Prerequisite, error) {
	switch im.stage {
	case stageDatafile:
		out := []Prerequisite{{Name: im.datafileName}}
		if t, ok := im.kind.Template(); ok {
			out = append(out, Prerequisite{Name: t, Shared: true})
		}
		return out, nil
	case stageResources:
		names, err := im.resourceNames()
		if err != nil {
			return nil, err
		}
		out := make([]Prerequisite, 0, len(names))
		for _, name := range names {
			out = append(out, Prerequisite{Name: name})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s: no pending stage", im.kind)
	}
}

func (im *Intermediary) resourceNames() ([]string, error) {
	return resolveResources(im.kind, im.datafile, im.props)
}

// resolveResources resolves resource keys against the merged datafile, then
// the object's own properties. Empty names are skipped.
func resolveResources(kind Kind, merged, props *property.Properties) ([]string, error) {
	var names []string
	seen := make(map[string]bool)
	for _, key := range kind.Resources() {
		v, ok := merged.Value(key)
		if !ok {
			v, ok = props.Value(key)
		}
		if !ok {
			return nil, fmt.Errorf("%s: resource %w: %s", kind, property.ErrMissingProperty, key)
		}
		name := v.String()
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names, nil
}

// Construct runs the current stage against files, which must hold every
// prerequisite of the stage.
func (im *Intermediary) Construct(files *archive.Archive) (Step, error) {
	switch im.stage {
	case stageDatafile:
		if err := im.resolveDatafile(files); err != nil {
			return Step{}, err
		}
		if len(im.kind.Resources()) == 0 {
			return Step{Object: im.finish()}, nil
		}
		im.stage = stageResources
		return Step{Next: im}, nil
	case stageResources:
		names, err := im.resourceNames()
		if err != nil {
			return Step{}, err
		}
		for _, name := range names {
			data, err := files.Claim(name)
			if err != nil {
				return Step{}, fmt.Errorf("%s: %w", im.kind, err)
			}
			if err := im.files.Add(name, data); err != nil {
				return Step{}, fmt.Errorf("%s: %w", im.kind, err)
			}
		}
		return Step{Object: im.finish()}, nil
	default:
		return Step{}, fmt.Errorf("%s: no pending stage", im.kind)
	}
}

func (im *Intermediary) resolveDatafile(files *archive.Archive) error {
	raw, err := files.Claim(im.datafileName)
	if err != nil {
		return fmt.Errorf("%s datafile: %w", im.kind, err)
	}
	text, enc, err := textenc.Decode(raw)
	if err != nil {
		return fmt.Errorf("%s datafile %s: %w", im.kind, im.datafileName, err)
	}
	own, err := datafile.Parse(text)
	if err != nil {
		return fmt.Errorf("%s datafile %s: %w", im.kind, im.datafileName, err)
	}

	template := property.New()
	if name, ok := im.kind.Template(); ok {
		data, err := files.Read(name)
		if err != nil {
			return fmt.Errorf("%s template: %w", im.kind, err)
		}
		text, _, err := textenc.Decode(data)
		if err != nil {
			return fmt.Errorf("%s template %s: %w", im.kind, name, err)
		}
		if template, err = descriptor.ParseTemplate(text); err != nil {
			return fmt.Errorf("%s template %s: %w", im.kind, name, err)
		}
	}

	merged := template.Clone()
	if err := merged.DefaultFor(own); err != nil {
		return fmt.Errorf("%s datafile %s: %w", im.kind, im.datafileName, err)
	}

	im.datafile = merged
	im.own = own.Keys()
	im.template = template
	im.encoding = enc
	return nil
}

func (im *Intermediary) finish() *Object {
	return &Object{
		id:           uuid.New(),
		kind:         im.kind,
		tag:          im.tag,
		props:        im.props,
		datafile:     im.datafile,
		datafileName: im.datafileName,
		own:          im.own,
		template:     im.template,
		encoding:     im.encoding,
		files:        im.files,
	}
}
