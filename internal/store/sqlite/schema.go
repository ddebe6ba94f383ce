package sqlite

import (
	"context"
	"fmt"
	"strings"
)

const ddl = `
CREATE TABLE IF NOT EXISTS missions (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	path         TEXT NOT NULL UNIQUE,
	hash         TEXT NOT NULL,
	descriptor   TEXT NOT NULL,
	properties   TEXT DEFAULT '{}',
	files        TEXT DEFAULT '[]',
	last_indexed TEXT DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS objects (
	id                  INTEGER PRIMARY KEY AUTOINCREMENT,
	mission_id          INTEGER NOT NULL REFERENCES missions(id) ON DELETE CASCADE,
	position            INTEGER NOT NULL,
	kind                TEXT NOT NULL,
	name                TEXT NOT NULL,
	datafile            TEXT DEFAULT '',
	properties          TEXT DEFAULT '{}',
	datafile_properties TEXT DEFAULT '{}',
	files               TEXT DEFAULT '[]',
	body                TEXT DEFAULT '',
	CONSTRAINT uq_object_position UNIQUE (mission_id, position)
);

CREATE INDEX IF NOT EXISTS idx_objects_mission ON objects (mission_id);
CREATE INDEX IF NOT EXISTS idx_objects_kind ON objects (kind);
CREATE INDEX IF NOT EXISTS idx_objects_name ON objects (name COLLATE NOCASE);

CREATE VIRTUAL TABLE IF NOT EXISTS objects_fts USING fts5(
	name,
	kind,
	body,
	content=objects,
	content_rowid=id
);

CREATE TRIGGER IF NOT EXISTS objects_ai AFTER INSERT ON objects BEGIN
	INSERT INTO objects_fts(rowid, name, kind, body)
	VALUES (new.id, new.name, new.kind, new.body);
END;

CREATE TRIGGER IF NOT EXISTS objects_ad AFTER DELETE ON objects BEGIN
	INSERT INTO objects_fts(objects_fts, rowid, name, kind, body)
	VALUES ('delete', old.id, old.name, old.kind, old.body);
END;

CREATE TRIGGER IF NOT EXISTS objects_au AFTER UPDATE ON objects BEGIN
	INSERT INTO objects_fts(objects_fts, rowid, name, kind, body)
	VALUES ('delete', old.id, old.name, old.kind, old.body);
	INSERT INTO objects_fts(rowid, name, kind, body)
	VALUES (new.id, new.name, new.kind, new.body);
END;
`

func (c *Client) EnsureSchema(ctx context.Context) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(ddl) {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing DDL: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing schema transaction: %w", err)
	}

	return nil
}

// splitStatements cuts ddl at lines ending in ";". Trigger bodies run until
// their closing END;.
func splitStatements(ddl string) []string {
	var statements []string
	var current strings.Builder
	inTrigger := false

	for line := range strings.Lines(ddl) {
		stripped := strings.TrimSpace(line)
		if strings.HasPrefix(stripped, "--") {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(stripped), "CREATE TRIGGER") {
			inTrigger = true
		}
		current.WriteString(line)

		switch {
		case inTrigger && strings.EqualFold(stripped, "END;"):
			inTrigger = false
			statements = append(statements, current.String())
			current.Reset()
		case !inTrigger && strings.HasSuffix(stripped, ";"):
			statements = append(statements, current.String())
			current.Reset()
		}
	}

	if strings.TrimSpace(current.String()) != "" {
		statements = append(statements, current.String())
	}

	return statements
}
