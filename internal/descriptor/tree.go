package descriptor

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

type node struct {
	name     string
	attrs    []xml.Attr
	children []*node
	text     strings.Builder
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// leaf returns the text of a scalar element, rejecting nested elements.
func (n *node) leaf() (string, error) {
	if len(n.children) > 0 {
		return "", fmt.Errorf("%w: <%s> inside <%s>", ErrUnexpectedElement, n.children[0].name, n.name)
	}
	return n.text.String(), nil
}

// parseTree reads clean XML into a single rooted tree.
func parseTree(text string) (*node, error) {
	d := xml.NewDecoder(strings.NewReader(text))
	d.Strict = false
	d.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }

	var root *node
	var stack []*node

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSyntax, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			n := &node{name: t.Name.Local, attrs: t.Attr}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("%w: second root <%s>", ErrSyntax, n.name)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.children = append(parent.children, n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrSyntax)
	}
	return root, nil
}

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

type writer struct {
	b     strings.Builder
	depth int
}

func (w *writer) indent() {
	w.b.WriteString(strings.Repeat("\t", w.depth))
}

func (w *writer) open(name string) {
	w.indent()
	w.b.WriteString("<" + name + ">\n")
	w.depth++
}

func (w *writer) close(name string) {
	w.depth--
	w.indent()
	w.b.WriteString("</" + name + ">\n")
}

func (w *writer) leaf(name, text string) {
	w.indent()
	w.b.WriteString("<" + name + ">" + textEscaper.Replace(text) + "</" + name + ">\n")
}
