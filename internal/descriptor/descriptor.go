// Package descriptor decodes and encodes the master mission document and the
// per-kind default templates.
package descriptor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"missionkit/internal/normalize"
	"missionkit/internal/property"
)

const (
	RootElement       = "GAME"
	PropertiesElement = "PROPERTIES"
	PropertyElement   = "PROPERTY"
	DatafileElement   = "DATAFILE"

	expandedSizeElement   = "ExpandedSize"
	blankingPlatesElement = "BLANKINGPLATES"
	metaElement           = "Meta"

	nameElement  = "NAME"
	vtypeElement = "VTYPE"
	valueElement = "VALUE"
	flagsElement = "FLAGS"
)

var (
	ErrSyntax            = errors.New("descriptor syntax")
	ErrUnexpectedRoot    = errors.New("unexpected root element")
	ErrUnexpectedElement = errors.New("unexpected element")
	ErrMissingElement    = errors.New("missing element")
	ErrInvalidField      = errors.New("invalid field")
)

// Document is a decoded mission descriptor.
type Document struct {
	// Prolog is the raw text before the root element, such as an XML
	// declaration.
	Prolog         string
	ExpandedSize   int64
	BlankingPlates string
	Meta           string
	Properties     *property.Properties
	Entries        []Entry
}

// Entry is one object element of the descriptor, kept in wire shape.
type Entry struct {
	Tag         string
	HasDatafile bool
	Datafile    string
	Properties  *property.Properties
	// Fields holds the remaining scalar children in document order.
	Fields []Field
}

type Field struct {
	Name  string
	Value string
}

// Field returns the value of the named scalar child.
func (e Entry) Field(name string) (string, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return "", false
}

// Decode parses descriptor text written in the colon-tag dialect.
func Decode(text string) (*Document, error) {
	clean, err := normalize.Clean(text)
	if err != nil {
		return nil, fmt.Errorf("normalizing descriptor: %w", err)
	}
	root, err := parseTree(clean)
	if err != nil {
		return nil, err
	}
	if root.name != RootElement {
		return nil, fmt.Errorf("%w: <%s>, want <%s>", ErrUnexpectedRoot, root.name, RootElement)
	}

	doc := &Document{Prolog: prolog(text), Properties: property.New()}
	seen := make(map[string]bool)

	for _, c := range root.children {
		switch c.name {
		case expandedSizeElement, blankingPlatesElement, metaElement:
			if seen[c.name] {
				return nil, fmt.Errorf("%w: repeated <%s>", ErrUnexpectedElement, c.name)
			}
			seen[c.name] = true
			if err := doc.decodeHeader(c); err != nil {
				return nil, err
			}
		case PropertiesElement:
			if seen[c.name] {
				return nil, fmt.Errorf("%w: repeated <%s>", ErrUnexpectedElement, c.name)
			}
			seen[c.name] = true
			props, err := decodeProperties(c)
			if err != nil {
				return nil, fmt.Errorf("mission properties: %w", err)
			}
			doc.Properties = props
		default:
			entry, err := decodeEntry(c)
			if err != nil {
				return nil, fmt.Errorf("object %d <%s>: %w", len(doc.Entries), c.name, err)
			}
			doc.Entries = append(doc.Entries, entry)
		}
	}

	for _, name := range []string{expandedSizeElement, blankingPlatesElement, metaElement} {
		if !seen[name] {
			return nil, fmt.Errorf("%w: <%s>", ErrMissingElement, name)
		}
	}
	return doc, nil
}

func (doc *Document) decodeHeader(n *node) error {
	text, err := n.leaf()
	if err != nil {
		return err
	}
	switch n.name {
	case expandedSizeElement:
		size, err := strconv.ParseInt(strings.TrimSpace(text), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: <%s> %q", ErrInvalidField, n.name, text)
		}
		doc.ExpandedSize = size
	case blankingPlatesElement:
		doc.BlankingPlates = text
	case metaElement:
		doc.Meta = text
	}
	return nil
}

func decodeEntry(n *node) (Entry, error) {
	entry := Entry{Tag: n.name, Properties: property.New()}
	seen := make(map[string]bool)

	for _, c := range n.children {
		if seen[c.name] {
			return Entry{}, fmt.Errorf("%w: repeated <%s>", ErrUnexpectedElement, c.name)
		}
		seen[c.name] = true

		switch c.name {
		case PropertiesElement:
			props, err := decodeProperties(c)
			if err != nil {
				return Entry{}, err
			}
			entry.Properties = props
		case DatafileElement:
			text, err := c.leaf()
			if err != nil {
				return Entry{}, err
			}
			entry.HasDatafile = true
			entry.Datafile = text
		default:
			text, err := c.leaf()
			if err != nil {
				return Entry{}, err
			}
			entry.Fields = append(entry.Fields, Field{Name: c.name, Value: text})
		}
	}
	return entry, nil
}

func decodeProperties(n *node) (*property.Properties, error) {
	props := property.New()

	for i, c := range n.children {
		if c.name != PropertyElement {
			return nil, fmt.Errorf("%w: <%s> in <%s>", ErrUnexpectedElement, c.name, PropertiesElement)
		}

		fields := make(map[string]string)
		for _, f := range c.children {
			switch f.name {
			case nameElement, vtypeElement, valueElement, flagsElement:
			default:
				return nil, fmt.Errorf("%w: <%s> in <%s>", ErrUnexpectedElement, f.name, PropertyElement)
			}
			text, err := f.leaf()
			if err != nil {
				return nil, err
			}
			fields[f.name] = text
		}

		name, ok := fields[nameElement]
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("%w: <%s> in property %d", ErrMissingElement, nameElement, i)
		}
		flags := property.NoFlags
		if f, ok := fields[flagsElement]; ok {
			flags = property.FlagsOf(f)
		}
		if err := props.InsertTyped(name, fields[valueElement], fields[vtypeElement], flags); err != nil {
			return nil, err
		}
	}
	return props, nil
}

// Encode writes doc back in the colon-tag dialect.
func Encode(doc *Document) (string, error) {
	w := &writer{}
	w.open(RootElement)
	w.leaf(expandedSizeElement, strconv.FormatInt(doc.ExpandedSize, 10))
	w.leaf(blankingPlatesElement, doc.BlankingPlates)
	w.leaf(metaElement, doc.Meta)
	encodeProperties(w, doc.Properties)

	for _, e := range doc.Entries {
		w.open(e.Tag)
		if e.HasDatafile {
			w.leaf(DatafileElement, e.Datafile)
		}
		encodeProperties(w, e.Properties)
		for _, f := range e.Fields {
			w.leaf(f.Name, f.Value)
		}
		w.close(e.Tag)
	}
	w.close(RootElement)

	dirty, err := normalize.Dirty(w.b.String())
	if err != nil {
		return "", fmt.Errorf("restoring descriptor dialect: %w", err)
	}
	return doc.Prolog + dirty, nil
}

func encodeProperties(w *writer, props *property.Properties) {
	w.open(PropertiesElement)
	if props != nil {
		for name, prop := range props.All() {
			w.open(PropertyElement)
			w.leaf(nameElement, name)
			w.leaf(vtypeElement, prop.Value.Type().Tag())
			w.leaf(valueElement, prop.Value.String())
			if flags, ok := prop.Flags.Get(); ok {
				w.leaf(flagsElement, flags)
			}
			w.close(PropertyElement)
		}
	}
	w.close(PropertiesElement)
}

// prolog returns the declarations and comments ahead of the root element.
func prolog(text string) string {
	i := 0
	for {
		rest := text[i:]
		trimmed := strings.TrimLeft(rest, " \t\r\n")
		i += len(rest) - len(trimmed)

		var end string
		switch {
		case strings.HasPrefix(trimmed, "<?"):
			end = "?>"
		case strings.HasPrefix(trimmed, "<!--"):
			end = "-->"
		case strings.HasPrefix(trimmed, "<!"):
			end = ">"
		default:
			return text[:i]
		}
		n := strings.Index(trimmed, end)
		if n < 0 {
			return text[:i]
		}
		i += n + len(end)
	}
}
