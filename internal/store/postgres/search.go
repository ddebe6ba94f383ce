package postgres

import (
	"context"
	"fmt"
	"strings"

	"missionkit/internal/store"
)

func (c *Client) Search(ctx context.Context, query, kind string) ([]store.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	sql := `
SELECT m.path, o.position, o.kind, o.name,
    ts_rank(o.search_vector, websearch_to_tsquery('english', $1)) AS score,
    CASE WHEN o.body <> '' THEN
        ts_headline('english', o.body, websearch_to_tsquery('english', $1),
            'MaxFragments=2, MaxWords=24, MinWords=8, StartSel=**, StopSel=**')
    ELSE '' END AS snippet
FROM objects o
JOIN missions m ON m.id = o.mission_id
WHERE o.search_vector @@ websearch_to_tsquery('english', $1)
  AND ($2 = '' OR o.kind = $2)
ORDER BY score DESC, m.path ASC, o.position ASC
LIMIT 50
`

	rows, err := c.pool.Query(ctx, sql, query, kind)
	if err != nil {
		return nil, fmt.Errorf("searching objects: %w", err)
	}
	defer rows.Close()

	results := []store.SearchResult{}
	for rows.Next() {
		var r store.SearchResult
		var position int32
		var score float32
		if err := rows.Scan(&r.MissionPath, &position, &r.Kind, &r.Name, &score, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.Position = int(position)
		r.Score = float64(score)
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}

	return results, nil
}
