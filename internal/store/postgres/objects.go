package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"missionkit/internal/store"
)

func (c *Client) ListObjects(ctx context.Context, filter store.ObjectFilter) ([]store.ObjectSummary, error) {
	query := `
SELECT m.path, o.position, o.kind, o.name, o.datafile
FROM objects o
JOIN missions m ON m.id = o.mission_id
WHERE ($1 = '' OR o.kind = $1)
  AND ($2 = '' OR m.path = $2)
  AND ($3 = '' OR lower(o.name) = lower($3))
ORDER BY m.path, o.position
`

	rows, err := c.pool.Query(ctx, query, filter.Kind, filter.MissionPath, filter.Name)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	results := []store.ObjectSummary{}
	for rows.Next() {
		var o store.ObjectSummary
		var position int32
		if err := rows.Scan(&o.MissionPath, &position, &o.Kind, &o.Name, &o.Datafile); err != nil {
			return nil, fmt.Errorf("scanning object: %w", err)
		}
		o.Position = int(position)
		results = append(results, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating objects: %w", err)
	}

	return results, nil
}

// GetObject returns nil when no object sits at position.
func (c *Client) GetObject(ctx context.Context, missionPath string, position int) (*store.Object, error) {
	query := `
SELECT m.path, o.position, o.kind, o.name, o.datafile, o.properties, o.datafile_properties, o.files
FROM objects o
JOIN missions m ON m.id = o.mission_id
WHERE m.path = $1 AND o.position = $2
`

	var o store.Object
	var pos int32
	err := c.pool.QueryRow(ctx, query, missionPath, position).Scan(
		&o.MissionPath,
		&pos,
		&o.Kind,
		&o.Name,
		&o.Datafile,
		&o.Properties,
		&o.DatafileProperties,
		&o.Files,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting object: %w", err)
	}
	o.Position = int(pos)

	if o.Properties == nil {
		o.Properties = map[string]any{}
	}
	if o.DatafileProperties == nil {
		o.DatafileProperties = map[string]any{}
	}
	if o.Files == nil {
		o.Files = []store.FileRef{}
	}

	return &o, nil
}
