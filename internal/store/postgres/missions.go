package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"missionkit/internal/store"
)

func (c *Client) UpsertMission(ctx context.Context, m store.MissionInput) error {
	propsJSON, err := marshalJSON(m.Properties, "{}")
	if err != nil {
		return fmt.Errorf("marshaling mission properties: %w", err)
	}
	filesJSON, err := marshalJSON(m.Files, "[]")
	if err != nil {
		return fmt.Errorf("marshaling mission files: %w", err)
	}

	return pgx.BeginFunc(ctx, c.pool, func(tx pgx.Tx) error {
		var missionID int64
		err := tx.QueryRow(ctx, `
INSERT INTO missions (path, hash, descriptor, properties, files, last_indexed)
VALUES ($1, $2, $3, $4, $5, now())
ON CONFLICT (path) DO UPDATE SET
    hash = EXCLUDED.hash,
    descriptor = EXCLUDED.descriptor,
    properties = EXCLUDED.properties,
    files = EXCLUDED.files,
    last_indexed = now()
RETURNING id
`, m.Path, m.Hash, m.Descriptor, propsJSON, filesJSON).Scan(&missionID)
		if err != nil {
			return fmt.Errorf("upserting mission: %w", err)
		}

		if _, err := tx.Exec(ctx, "DELETE FROM objects WHERE mission_id = $1", missionID); err != nil {
			return fmt.Errorf("clearing mission objects: %w", err)
		}

		batch := &pgx.Batch{}
		for _, o := range m.Objects {
			props, err := marshalJSON(o.Properties, "{}")
			if err != nil {
				return fmt.Errorf("marshaling object %d properties: %w", o.Position, err)
			}
			datafileProps, err := marshalJSON(o.DatafileProperties, "{}")
			if err != nil {
				return fmt.Errorf("marshaling object %d datafile: %w", o.Position, err)
			}
			files, err := marshalJSON(o.Files, "[]")
			if err != nil {
				return fmt.Errorf("marshaling object %d files: %w", o.Position, err)
			}
			batch.Queue(`
INSERT INTO objects (mission_id, position, kind, name, datafile, properties, datafile_properties, files, body, search_vector)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9,
    setweight(to_tsvector('simple', coalesce($4, '')), 'A') ||
    setweight(to_tsvector('simple', coalesce($3, '')), 'B') ||
    setweight(to_tsvector('english', coalesce($9, '')), 'C')
)
`, missionID, o.Position, o.Kind, o.Name, o.Datafile, props, datafileProps, files, o.Body)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("inserting objects: %w", err)
		}
		return nil
	})
}

func (c *Client) RemoveStaleMissions(ctx context.Context, currentPaths []string) (int64, error) {
	if len(currentPaths) == 0 {
		return 0, nil
	}

	tag, err := c.pool.Exec(ctx, "DELETE FROM missions WHERE NOT (path = ANY($1))", currentPaths)
	if err != nil {
		return 0, fmt.Errorf("removing stale missions: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (c *Client) GetMissionHashes(ctx context.Context) (map[string]string, error) {
	rows, err := c.pool.Query(ctx, "SELECT path, hash FROM missions")
	if err != nil {
		return nil, fmt.Errorf("query mission hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("scanning mission hash: %w", err)
		}
		hashes[path] = hash
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mission hashes: %w", err)
	}

	return hashes, nil
}

func (c *Client) ListMissions(ctx context.Context) ([]store.MissionSummary, error) {
	rows, err := c.pool.Query(ctx, `
SELECT m.path, m.hash, m.descriptor, COUNT(o.id)
FROM missions m
LEFT JOIN objects o ON o.mission_id = m.id
GROUP BY m.id
ORDER BY m.path
`)
	if err != nil {
		return nil, fmt.Errorf("listing missions: %w", err)
	}
	defer rows.Close()

	results := []store.MissionSummary{}
	for rows.Next() {
		var m store.MissionSummary
		var count int64
		if err := rows.Scan(&m.Path, &m.Hash, &m.Descriptor, &count); err != nil {
			return nil, fmt.Errorf("scanning mission: %w", err)
		}
		m.Objects = int(count)
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating missions: %w", err)
	}

	return results, nil
}

func marshalJSON(v any, empty string) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		return []byte(empty), nil
	}
	return data, nil
}
