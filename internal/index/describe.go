package index

import (
	"fmt"
	"strings"

	"missionkit/internal/mission"
	"missionkit/internal/property"
	"missionkit/internal/store"
)

type fileSource interface {
	Files() []string
	File(name string) ([]byte, error)
}

// Describe flattens a loaded mission into store rows.
func Describe(path, hash string, m *mission.Mission) (store.MissionInput, error) {
	leftovers, err := fileRefs(m.Container)
	if err != nil {
		return store.MissionInput{}, err
	}
	input := store.MissionInput{
		Path:       path,
		Hash:       hash,
		Descriptor: m.Container.DescriptorName(),
		Properties: m.Container.Properties().Map(),
		Files:      leftovers,
	}

	for i, obj := range m.Objects {
		files, err := fileRefs(obj)
		if err != nil {
			return store.MissionInput{}, fmt.Errorf("%s %d: %w", obj.Kind(), i, err)
		}
		props := obj.Properties()
		datafile := obj.Datafile()
		datafileName, _ := obj.DatafileName()
		name := ""
		if obj.HasName() {
			name = obj.Name()
		}

		input.Objects = append(input.Objects, store.ObjectInput{
			Position:           i,
			Kind:               obj.Kind().String(),
			Name:               name,
			Datafile:           datafileName,
			Properties:         props.Map(),
			DatafileProperties: datafile.Map(),
			Files:              files,
			Body:               body(props, datafile, obj.Files()),
		})
	}
	return input, nil
}

func fileRefs(src fileSource) ([]store.FileRef, error) {
	names := src.Files()
	refs := make([]store.FileRef, 0, len(names))
	for _, name := range names {
		data, err := src.File(name)
		if err != nil {
			return nil, err
		}
		refs = append(refs, store.FileRef{Name: name, Size: int64(len(data)), Digest: digest(data)})
	}
	return refs, nil
}

// body is the searchable text of an object: one "Key = value" line per
// property, then the owned file names.
func body(props, datafile *property.Properties, files []string) string {
	var b strings.Builder
	for _, set := range []*property.Properties{props, datafile} {
		for k, p := range set.All() {
			fmt.Fprintf(&b, "%s = %s\n", k, p.Value)
		}
	}
	for _, name := range files {
		b.WriteString(name)
		b.WriteByte('\n')
	}
	return b.String()
}
