// Package mission loads whole mission archives into live objects and writes
// them back.
package mission

import (
	"fmt"

	"missionkit/internal/archive"
	"missionkit/internal/property"
	"missionkit/internal/textenc"
)

// Reserved mission property keys.
const (
	KeyExpandedSize   = "expanded_size"
	KeyBlankingPlates = "blanking_plates"
	KeyMeta           = "meta"
)

const DefaultDescriptorName = "mission.mission"

// Container holds the mission-scoped properties and every archive file no
// object claimed.
type Container struct {
	props *property.Properties
	files *archive.Archive

	descriptorName string
	prolog         string
	encoding       textenc.Encoding
}

// Remnants is the unfolded form of a Container, ready for serialization.
type Remnants struct {
	Properties     *property.Properties
	Files          *archive.Archive
	ExpandedSize   int64
	BlankingPlates string
	Meta           string
}

// FromRemnants folds the reserved header fields into props.
func FromRemnants(props *property.Properties, leftovers *archive.Archive, expandedSize int64, blankingPlates, meta string) (*Container, error) {
	if props == nil {
		props = property.New()
	}
	if leftovers == nil {
		leftovers = archive.New()
	}

	folded := props.Clone()
	reserved := []struct {
		key   string
		value property.Value
	}{
		{KeyExpandedSize, property.Int(expandedSize)},
		{KeyBlankingPlates, property.String(blankingPlates)},
		{KeyMeta, property.String(meta)},
	}
	for _, r := range reserved {
		if err := folded.Add(r.key, property.Property{Value: r.value}); err != nil {
			return nil, fmt.Errorf("mission properties: %w", err)
		}
	}

	return &Container{
		props:          folded,
		files:          leftovers,
		descriptorName: DefaultDescriptorName,
	}, nil
}

// IntoRemnants extracts the reserved fields without modifying c.
func (c *Container) IntoRemnants() (Remnants, error) {
	props := c.props.Clone()

	size, err := props.TakeInt(KeyExpandedSize)
	if err != nil {
		return Remnants{}, fmt.Errorf("mission properties: %w", err)
	}
	plates, err := props.TakeString(KeyBlankingPlates)
	if err != nil {
		return Remnants{}, fmt.Errorf("mission properties: %w", err)
	}
	meta, err := props.TakeString(KeyMeta)
	if err != nil {
		return Remnants{}, fmt.Errorf("mission properties: %w", err)
	}

	return Remnants{
		Properties:     props,
		Files:          c.files.Clone(),
		ExpandedSize:   size,
		BlankingPlates: plates,
		Meta:           meta,
	}, nil
}

// DescriptorName is the archive entry the descriptor is written to.
func (c *Container) DescriptorName() string { return c.descriptorName }

func (c *Container) Properties() *property.Properties { return c.props.Clone() }

func (c *Container) SetProperty(key, raw string) (property.Value, bool, error) {
	return c.props.ReplaceOrInsert(key, raw)
}

func (c *Container) PutProperty(key string, p property.Property) {
	c.props.Put(key, p)
}

func (c *Container) RemoveProperty(key string) (property.Property, bool) {
	return c.props.Remove(key)
}

// ReplaceProperties swaps in props wholesale and returns the previous set.
func (c *Container) ReplaceProperties(props *property.Properties) *property.Properties {
	old := c.props
	c.props = props
	return old
}

// Files lists the leftover archive files.
func (c *Container) Files() []string { return c.files.Names() }

func (c *Container) File(name string) ([]byte, error) { return c.files.Read(name) }

func (c *Container) HasFile(name string) bool { return c.files.Has(name) }

// ReplaceFile swaps the contents of a leftover file and returns the previous
// contents.
func (c *Container) ReplaceFile(name string, data []byte) ([]byte, error) {
	if !c.files.Has(name) {
		return nil, fmt.Errorf("%w: %s", archive.ErrMissingFile, name)
	}
	old, _ := c.files.Replace(name, data)
	return old, nil
}
