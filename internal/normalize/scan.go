package normalize

import (
	"fmt"
	"strings"
)

type tokenKind int

const (
	tokenText tokenKind = iota
	tokenOpen
	tokenClose
	tokenEmpty
	tokenOther
)

type token struct {
	kind   tokenKind
	raw    string
	offset int
	name   string

	// colon is set for dialect tags such as <ATTR: NAME >.
	colon   bool
	variant string

	// attrs holds everything after the name of a plain tag.
	attrs       string
	variantOnly string
}

var delimited = []struct {
	open, close string
}{
	{"<!--", "-->"},
	{"<![CDATA[", "]]>"},
	{"<?", "?>"},
	{"<!", ">"},
}

func scan(s string) ([]token, error) {
	var tokens []token
	i := 0

	for i < len(s) {
		lt := strings.IndexByte(s[i:], '<')
		if lt < 0 {
			tokens = append(tokens, token{kind: tokenText, raw: s[i:], offset: i})
			break
		}
		if lt > 0 {
			tokens = append(tokens, token{kind: tokenText, raw: s[i : i+lt], offset: i})
			i += lt
		}

		rest := s[i:]
		if tok, n, ok := scanDelimited(rest, i); ok {
			if n < 0 {
				return nil, fmt.Errorf("%w: unterminated markup at offset %d", ErrMalformedTag, i)
			}
			tokens = append(tokens, tok)
			i += n
			continue
		}

		end := strings.IndexByte(rest, '>')
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated tag at offset %d", ErrMalformedTag, i)
		}
		tok, err := parseTag(rest[:end+1], i)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		i += end + 1
	}

	return tokens, nil
}

func scanDelimited(rest string, offset int) (token, int, bool) {
	for _, d := range delimited {
		if !strings.HasPrefix(rest, d.open) {
			continue
		}
		end := strings.Index(rest[len(d.open):], d.close)
		if end < 0 {
			return token{}, -1, true
		}
		n := len(d.open) + end + len(d.close)
		return token{kind: tokenOther, raw: rest[:n], offset: offset}, n, true
	}
	return token{}, 0, false
}

func parseTag(raw string, offset int) (token, error) {
	body := raw[1 : len(raw)-1]
	tok := token{raw: raw, offset: offset}

	if strings.HasPrefix(body, "/") {
		tok.kind = tokenClose
		tok.name = strings.TrimSpace(body[1:])
		if !isName(tok.name) {
			return token{}, fmt.Errorf("%w: %q at offset %d", ErrMalformedTag, raw, offset)
		}
		return tok, nil
	}

	tok.kind = tokenOpen
	if strings.HasSuffix(body, "/") {
		tok.kind = tokenEmpty
		body = body[:len(body)-1]
	}

	n := 0
	for n < len(body) && isNameByte(body[n]) {
		n++
	}
	if n == 0 {
		return token{}, fmt.Errorf("%w: %q at offset %d", ErrMalformedTag, raw, offset)
	}
	tok.name = body[:n]
	rest := strings.TrimSpace(body[n:])

	if after, ok := strings.CutPrefix(rest, ":"); ok {
		if tok.kind == tokenEmpty {
			return token{}, fmt.Errorf("%w: self-closing colon tag %q at offset %d", ErrMalformedTag, raw, offset)
		}
		tok.colon = true
		tok.variant = strings.TrimSpace(after)
		if !isName(tok.variant) {
			return token{}, fmt.Errorf("%w: %q at offset %d", ErrMalformedTag, raw, offset)
		}
		return tok, nil
	}

	tok.attrs = rest
	if v, ok := soleVariant(rest); ok {
		tok.variantOnly = v
	}
	return tok, nil
}

func soleVariant(attrs string) (string, bool) {
	after, ok := strings.CutPrefix(attrs, variantAttr+`="`)
	if !ok {
		return "", false
	}
	v, ok := strings.CutSuffix(after, `"`)
	if !ok || strings.ContainsRune(v, '"') || !isName(v) {
		return "", false
	}
	return v, true
}

func isName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isNameByte(s[i]) {
			return false
		}
	}
	return true
}

func isNameByte(c byte) bool {
	return c == '_' || c == '-' || c == '.' ||
		('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
}
