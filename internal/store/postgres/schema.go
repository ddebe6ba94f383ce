package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	// A single multi-statement Exec runs in one implicit transaction.
	ddl := `
CREATE TABLE IF NOT EXISTS missions (
    id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    path         TEXT NOT NULL UNIQUE,
    hash         TEXT NOT NULL,
    descriptor   TEXT NOT NULL,
    properties   JSONB DEFAULT '{}',
    files        JSONB DEFAULT '[]',
    last_indexed TIMESTAMPTZ DEFAULT now()
);

CREATE TABLE IF NOT EXISTS objects (
    id                  BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
    mission_id          BIGINT NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
    position            INTEGER NOT NULL,
    kind                TEXT NOT NULL,
    name                TEXT NOT NULL,
    datafile            TEXT DEFAULT '',
    properties          JSONB DEFAULT '{}',
    datafile_properties JSONB DEFAULT '{}',
    files               JSONB DEFAULT '[]',
    body                TEXT DEFAULT '',
    search_vector       TSVECTOR,
    CONSTRAINT uq_object_position UNIQUE (mission_id, position)
);

CREATE INDEX IF NOT EXISTS idx_objects_search ON objects USING GIN (search_vector);
CREATE INDEX IF NOT EXISTS idx_objects_mission ON objects (mission_id);
CREATE INDEX IF NOT EXISTS idx_objects_kind ON objects (kind);
CREATE INDEX IF NOT EXISTS idx_objects_name ON objects (lower(name));
CREATE INDEX IF NOT EXISTS idx_objects_properties ON objects USING GIN (properties);
`
	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
