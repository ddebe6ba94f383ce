package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"missionkit/internal/store"
)

func (c *Client) ListObjects(ctx context.Context, filter store.ObjectFilter) ([]store.ObjectSummary, error) {
	query := `
	SELECT m.path, o.position, o.kind, o.name, o.datafile
	FROM objects o
	JOIN missions m ON m.id = o.mission_id
	WHERE (? = '' OR o.kind = ?)
	  AND (? = '' OR m.path = ?)
	  AND (? = '' OR o.name = ? COLLATE NOCASE)
	ORDER BY m.path, o.position
	`

	rows, err := c.db.QueryContext(ctx, query,
		filter.Kind, filter.Kind,
		filter.MissionPath, filter.MissionPath,
		filter.Name, filter.Name,
	)
	if err != nil {
		return nil, fmt.Errorf("listing objects: %w", err)
	}
	defer rows.Close()

	results := []store.ObjectSummary{}
	for rows.Next() {
		var o store.ObjectSummary
		if err := rows.Scan(&o.MissionPath, &o.Position, &o.Kind, &o.Name, &o.Datafile); err != nil {
			return nil, fmt.Errorf("scanning object: %w", err)
		}
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
	WHERE m.path = ? AND o.position = ?
	`

	var o store.Object
	var propsBytes, datafileBytes, filesBytes []byte
	err := c.db.QueryRowContext(ctx, query, missionPath, position).Scan(
		&o.MissionPath,
		&o.Position,
		&o.Kind,
		&o.Name,
		&o.Datafile,
		&propsBytes,
		&datafileBytes,
		&filesBytes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting object: %w", err)
	}

	if err := json.Unmarshal(propsBytes, &o.Properties); err != nil {
		return nil, fmt.Errorf("unmarshaling properties: %w", err)
	}
	if err := json.Unmarshal(datafileBytes, &o.DatafileProperties); err != nil {
		return nil, fmt.Errorf("unmarshaling datafile properties: %w", err)
	}
	if err := json.Unmarshal(filesBytes, &o.Files); err != nil {
		return nil, fmt.Errorf("unmarshaling files: %w", err)
	}
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
