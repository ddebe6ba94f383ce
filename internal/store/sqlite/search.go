package sqlite

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"missionkit/internal/store"
)

func (c *Client) Search(ctx context.Context, query, kind string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	ftsQuery := convertWebsearchToFTS5(query)

	// bm25 ranks better matches lower.
	sqlQuery := `
	SELECT m.path, o.position, o.kind, o.name,
		   -bm25(objects_fts, 10.0, 4.0, 1.0) AS score,
		   snippet(objects_fts, 2, '**', '**', '...', 24) AS snippet
	FROM objects_fts
	JOIN objects o ON objects_fts.rowid = o.id
	JOIN missions m ON m.id = o.mission_id
	WHERE objects_fts MATCH ?
	  AND (? = '' OR o.kind = ?)
	ORDER BY score DESC, m.path ASC, o.position ASC
	LIMIT 50
	`

	rows, err := c.db.QueryContext(ctx, sqlQuery, ftsQuery, kind, kind)
	if err != nil {
		return nil, fmt.Errorf("searching objects: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		if err := rows.Scan(&r.MissionPath, &r.Position, &r.Kind, &r.Name, &r.Score, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	return results, nil
}

func convertWebsearchToFTS5(query string) string {
	var result strings.Builder
	var inQuote bool
	var current strings.Builder

	flushToken := func() {
		token := current.String()
		current.Reset()
		if token == "" {
			return
		}

		upper := strings.ToUpper(token)
		switch upper {
		case "AND", "OR", "NOT":
			if result.Len() > 0 {
				result.WriteString(" ")
			}
			result.WriteString(upper)
			return
		}

		// FTS5 NOT is binary, so a negated term replaces the implicit AND
		// and a leading one has nothing to subtract from.
		negated := strings.HasPrefix(token, "-") && len(token) > 1
		if negated {
			token = token[1:]
			if result.Len() == 0 {
				return
			}
		}

		if result.Len() > 0 {
			lastWord := lastWord(result.String())
			switch {
			case lastWord == "AND" || lastWord == "OR" || lastWord == "NOT":
				result.WriteString(" ")
			case negated:
				result.WriteString(" NOT ")
			default:
				result.WriteString(" AND ")
			}
		}
		result.WriteString(quoteTerm(token))
	}

	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case ch == '"':
			if inQuote {
				inQuote = false
				token := current.String()
				current.Reset()
				if token != "" {
					if result.Len() > 0 {
						result.WriteString(" AND ")
					}
					result.WriteString(`"`)
					result.WriteString(token)
					result.WriteString(`"`)
				}
			} else {
				flushToken()
				inQuote = true
			}
		case inQuote:
			current.WriteByte(ch)
		case ch == ' ' || ch == '\t':
			flushToken()
		default:
			current.WriteByte(ch)
		}
	}

	flushToken()

	return result.String()
}

// quoteTerm wraps terms holding FTS5 syntax characters in double quotes so
// names like "MG_Bookcase.obj" search literally. A trailing * stays a prefix
// marker.
func quoteTerm(token string) string {
	prefix := strings.HasSuffix(token, "*")
	bare := strings.TrimSuffix(token, "*")
	if bare == "" || strings.IndexFunc(bare, func(r rune) bool {
		return r < utf8.RuneSelf && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) < 0 {
		return token
	}
	quoted := `"` + strings.ReplaceAll(bare, `"`, `""`) + `"`
	if prefix {
		quoted += "*"
	}
	return quoted
}

func lastWord(s string) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}
	return words[len(words)-1]
}
