package sqlite

import (
	"context"
	"fmt"
	"strings"

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

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var missionID int64
	err = tx.QueryRowContext(ctx, `
	INSERT INTO missions (path, hash, descriptor, properties, files, last_indexed)
	VALUES (?, ?, ?, ?, ?, datetime('now'))
	ON CONFLICT (path) DO UPDATE SET
		hash = excluded.hash,
		descriptor = excluded.descriptor,
		properties = excluded.properties,
		files = excluded.files,
		last_indexed = datetime('now')
	RETURNING id
	`, m.Path, m.Hash, m.Descriptor, propsJSON, filesJSON).Scan(&missionID)
	if err != nil {
		return fmt.Errorf("upserting mission: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM objects WHERE mission_id = ?", missionID); err != nil {
		return fmt.Errorf("clearing mission objects: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO objects (mission_id, position, kind, name, datafile, properties, datafile_properties, files, body)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing object insert: %w", err)
	}
	defer stmt.Close()

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
		if _, err := stmt.ExecContext(ctx, missionID, o.Position, o.Kind, o.Name, o.Datafile,
			props, datafileProps, files, o.Body); err != nil {
			return fmt.Errorf("inserting object %d: %w", o.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing mission: %w", err)
	}
	return nil
}

func (c *Client) RemoveStaleMissions(ctx context.Context, currentPaths []string) (int64, error) {
	if len(currentPaths) == 0 {
		return 0, nil
	}

	placeholders := make([]string, len(currentPaths))
	args := make([]any, len(currentPaths))
	for i, p := range currentPaths {
		placeholders[i] = "?"
		args[i] = p
	}

	query := fmt.Sprintf("DELETE FROM missions WHERE path NOT IN (%s)", strings.Join(placeholders, ", "))
	result, err := c.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("removing stale missions: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}

	return affected, nil
}

func (c *Client) GetMissionHashes(ctx context.Context) (map[string]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT path, hash FROM missions")
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
	rows, err := c.db.QueryContext(ctx, `
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
		if err := rows.Scan(&m.Path, &m.Hash, &m.Descriptor, &m.Objects); err != nil {
			return nil, fmt.Errorf("scanning mission: %w", err)
		}
		results = append(results, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating missions: %w", err)
	}

	return results, nil
}
