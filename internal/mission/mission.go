package mission

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"missionkit/internal/archive"
	"missionkit/internal/descriptor"
	"missionkit/internal/pipeline"
	"missionkit/internal/textenc"
)

const DefaultDescriptorExt = ".mission"

var (
	ErrMissingDescriptor   = errors.New("archive has no mission descriptor")
	ErrMultipleDescriptors = errors.New("archive has more than one mission descriptor")
)

type Options struct {
	// DescriptorExt is the suffix identifying the descriptor entry.
	DescriptorExt string
	Logger        *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.DescriptorExt == "" {
		o.DescriptorExt = DefaultDescriptorExt
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Mission is a fully loaded archive: objects in descriptor order plus the
// container holding everything else.
type Mission struct {
	Objects   []*pipeline.Object
	Container *Container
}

// Load builds every object of the archive in data. Any failure aborts the
// whole load.
func Load(data []byte, opts Options) (*Mission, error) {
	opts = opts.withDefaults()

	pool, err := archive.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("loading mission: %w", err)
	}

	names := pool.Find(func(name string) bool { return strings.HasSuffix(name, opts.DescriptorExt) })
	switch len(names) {
	case 0:
		return nil, fmt.Errorf("loading mission: %w (*%s)", ErrMissingDescriptor, opts.DescriptorExt)
	case 1:
	default:
		return nil, fmt.Errorf("loading mission: %w: %s", ErrMultipleDescriptors, strings.Join(names, ", "))
	}
	descriptorName := names[0]

	raw, err := pool.Claim(descriptorName)
	if err != nil {
		return nil, fmt.Errorf("loading mission: %w", err)
	}
	text, enc, err := textenc.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("loading mission %s: %w", descriptorName, err)
	}
	doc, err := descriptor.Decode(text)
	if err != nil {
		return nil, fmt.Errorf("loading mission %s: %w", descriptorName, err)
	}

	objects := make([]*pipeline.Object, 0, len(doc.Entries))
	for i, entry := range doc.Entries {
		r, err := pipeline.FromEntry(entry)
		if err != nil {
			return nil, fmt.Errorf("loading mission object %d: %w", i, err)
		}
		obj, err := pipeline.Build(r, pool)
		if err != nil {
			return nil, fmt.Errorf("loading mission object %d: %w", i, err)
		}
		objects = append(objects, obj)
	}

	container, err := FromRemnants(doc.Properties, pool, doc.ExpandedSize, doc.BlankingPlates, doc.Meta)
	if err != nil {
		return nil, fmt.Errorf("loading mission: %w", err)
	}
	container.descriptorName = descriptorName
	container.prolog = doc.Prolog
	container.encoding = enc

	opts.Logger.Debug("mission loaded",
		zap.String("descriptor", descriptorName),
		zap.Stringer("encoding", enc),
		zap.Int("objects", len(objects)),
		zap.Int("leftover_files", container.files.Len()))

	return &Mission{Objects: objects, Container: container}, nil
}

// Save collapses objects and container into a new archive.
func Save(objects []*pipeline.Object, c *Container) ([]byte, error) {
	rem, err := c.IntoRemnants()
	if err != nil {
		return nil, fmt.Errorf("saving mission: %w", err)
	}

	doc := &descriptor.Document{
		Prolog:         c.prolog,
		ExpandedSize:   rem.ExpandedSize,
		BlankingPlates: rem.BlankingPlates,
		Meta:           rem.Meta,
		Properties:     rem.Properties,
	}
	out := archive.New()

	for _, obj := range objects {
		collapsed, err := obj.Collapse()
		if err != nil {
			return nil, fmt.Errorf("saving mission: %w", err)
		}
		doc.Entries = append(doc.Entries, collapsed.Raw.Entry())
		if err := out.Merge(collapsed.Files); err != nil {
			return nil, fmt.Errorf("saving mission: %s %s: %w", obj.Kind(), obj.ID(), err)
		}
	}
	if err := out.Merge(rem.Files); err != nil {
		return nil, fmt.Errorf("saving mission leftovers: %w", err)
	}
	if err := checkClaims(objects, out); err != nil {
		return nil, fmt.Errorf("saving mission: %w", err)
	}

	text, err := descriptor.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("saving mission: %w", err)
	}
	data, err := textenc.Encode(text, c.encoding)
	if err != nil {
		return nil, fmt.Errorf("saving mission: %w", err)
	}
	if err := out.Add(c.descriptorName, data); err != nil {
		return nil, fmt.Errorf("saving mission: %w", err)
	}

	return out.Bytes()
}

// checkClaims replays the claims a later Load would make against files.
func checkClaims(objects []*pipeline.Object, files *archive.Archive) error {
	pool := make(map[string]bool, files.Len())
	for _, name := range files.Names() {
		pool[name] = true
	}
	claim := func(obj *pipeline.Object, name string) error {
		if pool[name] {
			delete(pool, name)
			return nil
		}
		if files.Has(name) {
			return fmt.Errorf("%s %s: %w: %s is claimed by an earlier object", obj.Kind(), obj.ID(), archive.ErrDuplicateFile, name)
		}
		return fmt.Errorf("%s %s: %w: %s", obj.Kind(), obj.ID(), archive.ErrMissingFile, name)
	}

	for _, obj := range objects {
		if name, ok := obj.DatafileName(); ok {
			if err := claim(obj, name); err != nil {
				return err
			}
			if t, ok := obj.Kind().Template(); ok && !pool[t] {
				return fmt.Errorf("%s %s: template %w: %s", obj.Kind(), obj.ID(), archive.ErrMissingFile, t)
			}
		}
		names, err := obj.ResourceNames()
		if err != nil {
			return fmt.Errorf("%s: %w", obj.ID(), err)
		}
		for _, name := range names {
			if err := claim(obj, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Save writes m back to archive bytes.
func (m *Mission) Save() ([]byte, error) {
	return Save(m.Objects, m.Container)
}
