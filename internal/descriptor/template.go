package descriptor

import (
	"fmt"

	"missionkit/internal/normalize"
	"missionkit/internal/property"
)

// ParseTemplate decodes a default template: a lone PROPERTIES element in the
// colon-tag dialect declaring each field's type and default value.
func ParseTemplate(text string) (*property.Properties, error) {
	clean, err := normalize.Clean(text)
	if err != nil {
		return nil, fmt.Errorf("normalizing template: %w", err)
	}
	root, err := parseTree(clean)
	if err != nil {
		return nil, err
	}
	if root.name != PropertiesElement {
		return nil, fmt.Errorf("%w: <%s>, want <%s>", ErrUnexpectedRoot, root.name, PropertiesElement)
	}
	return decodeProperties(root)
}

func FormatTemplate(props *property.Properties) (string, error) {
	w := &writer{}
	encodeProperties(w, props)
	dirty, err := normalize.Dirty(w.b.String())
	if err != nil {
		return "", fmt.Errorf("restoring template dialect: %w", err)
	}
	return dirty, nil
}
