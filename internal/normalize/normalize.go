// Package normalize converts mission descriptors between the editor's
// colon-tag dialect and plain XML.
//
// The dialect opens elements as <OBJECT: NAME > or <ATTR: NAME > and closes
// them with </OBJECT> or </ATTR>. Wrappers nest freely, including inside
// wrappers of the same name, so both directions walk the document with an
// explicit stack of open tags.
package normalize

import (
	"errors"
	"fmt"
	"strings"
)

const (
	ObjectWrapper = "OBJECT"
	AttrWrapper   = "ATTR"

	variantAttr = "variant"
)

var (
	ErrUnbalanced   = errors.New("unbalanced tags")
	ErrMalformedTag = errors.New("malformed tag")
)

var objectNames = map[string]struct{}{
	"GAME":           {},
	"PROPERTIES":     {},
	"PROPERTY":       {},
	"ACTIVEPROP":     {},
	"CHARACTER":      {},
	"DOOR":           {},
	"LOCATION":       {},
	"MEDIA":          {},
	"PICKUP":         {},
	"PLAYER":         {},
	"PROP":           {},
	"RULE":           {},
	"SPECIAL_EFFECT": {},
	"SPECIALEFFECT":  {},
	"TRIGGER":        {},
	"USERDATA":       {},
}

// IsObjectName reports whether name is always written with the OBJECT
// wrapper, even when the element has no child elements.
func IsObjectName(name string) bool {
	_, ok := objectNames[name]
	return ok
}

// Clean rewrites dialect text into plain XML. Wrapper tags become elements
// named after their variant; any other colon tag keeps its name and carries
// the variant as an attribute.
func Clean(text string) (string, error) {
	tokens, err := scan(text)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(text))
	var stack []frame

	for _, tok := range tokens {
		switch tok.kind {
		case tokenOpen:
			switch {
			case tok.colon && isWrapper(tok.name):
				b.WriteString("<" + tok.variant + ">")
				stack = append(stack, frame{name: tok.name, close: "</" + tok.variant + ">"})
			case tok.colon:
				fmt.Fprintf(&b, "<%s %s=%q>", tok.name, variantAttr, tok.variant)
				stack = append(stack, frame{name: tok.name, close: "</" + tok.name + ">"})
			default:
				b.WriteString(tok.raw)
				stack = append(stack, frame{name: tok.name, close: "</" + tok.name + ">"})
			}
		case tokenClose:
			if len(stack) == 0 {
				return "", fmt.Errorf("%w: unexpected </%s> at offset %d", ErrUnbalanced, tok.name, tok.offset)
			}
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if top.name != tok.name {
				return "", fmt.Errorf("%w: </%s> closes <%s> at offset %d", ErrUnbalanced, tok.name, top.name, tok.offset)
			}
			b.WriteString(top.close)
		default:
			b.WriteString(tok.raw)
		}
	}

	if len(stack) > 0 {
		return "", fmt.Errorf("%w: <%s> never closed", ErrUnbalanced, stack[len(stack)-1].name)
	}
	return b.String(), nil
}

// Dirty is the inverse of Clean. Elements listed by IsObjectName and
// elements holding child elements get the OBJECT wrapper; other elements
// get the ATTR wrapper. An element whose only attribute is variant is
// written back in colon form under its own name.
func Dirty(text string) (string, error) {
	tokens, err := scan(text)
	if err != nil {
		return "", err
	}

	parents, err := elementParents(tokens)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(len(text) + len(text)/2)
	var closers []string

	for i, tok := range tokens {
		switch tok.kind {
		case tokenOpen:
			switch {
			case tok.colon:
				b.WriteString(tok.raw)
				closers = append(closers, "</"+tok.name+">")
			case tok.variantOnly != "":
				fmt.Fprintf(&b, "<%s: %s >", tok.name, tok.variantOnly)
				closers = append(closers, "</"+tok.name+">")
			case tok.attrs != "":
				b.WriteString(tok.raw)
				closers = append(closers, "</"+tok.name+">")
			default:
				wrapper := wrapperFor(tok.name, parents[i])
				fmt.Fprintf(&b, "<%s: %s >", wrapper, tok.name)
				closers = append(closers, "</"+wrapper+">")
			}
		case tokenClose:
			b.WriteString(closers[len(closers)-1])
			closers = closers[:len(closers)-1]
		case tokenEmpty:
			if tok.attrs != "" {
				b.WriteString(tok.raw)
				continue
			}
			wrapper := wrapperFor(tok.name, false)
			fmt.Fprintf(&b, "<%s: %s ></%s>", wrapper, tok.name, wrapper)
		default:
			b.WriteString(tok.raw)
		}
	}

	return b.String(), nil
}

type frame struct {
	name  string
	close string
}

func isWrapper(name string) bool {
	return name == ObjectWrapper || name == AttrWrapper
}

func wrapperFor(name string, hasChildren bool) string {
	if hasChildren || IsObjectName(name) {
		return ObjectWrapper
	}
	return AttrWrapper
}

// elementParents pairs every close with its open and reports, per open
// token index, whether the element contains child elements.
func elementParents(tokens []token) (map[int]bool, error) {
	parents := make(map[int]bool)
	var stack []int

	for i, tok := range tokens {
		switch tok.kind {
		case tokenOpen:
			if len(stack) > 0 {
				parents[stack[len(stack)-1]] = true
			}
			stack = append(stack, i)
		case tokenEmpty:
			if len(stack) > 0 {
				parents[stack[len(stack)-1]] = true
			}
		case tokenClose:
			if len(stack) == 0 {
				return nil, fmt.Errorf("%w: unexpected </%s> at offset %d", ErrUnbalanced, tok.name, tok.offset)
			}
			open := tokens[stack[len(stack)-1]]
			stack = stack[:len(stack)-1]
			if open.name != tok.name {
				return nil, fmt.Errorf("%w: </%s> closes <%s> at offset %d", ErrUnbalanced, tok.name, open.name, tok.offset)
			}
		}
	}

	if len(stack) > 0 {
		return nil, fmt.Errorf("%w: <%s> never closed", ErrUnbalanced, tokens[stack[len(stack)-1]].name)
	}
	return parents, nil
}
