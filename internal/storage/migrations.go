package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/xapikatchu/xapikatchu/pkg/types"
)

const (
	// CurrentSchemaVersion tracks the database schema version
	CurrentSchemaVersion = "1.0.0"
)

// Migration represents a database schema migration
type Migration struct {
	Version string
	Up      string
	Down    string
}

// MigrationsFor returns all migrations in order, with table names expanded
// from the installation prefix.
func MigrationsFor(prefix string) []Migration {
	return []Migration{
		{
			Version: "1.0.0",
			Up:      migrationV1Up(prefix),
			Down:    migrationV1Down(prefix),
		},
	}
}

func migrationV1Up(p string) string {
	return fmt.Sprintf(`
-- Schema version tracking
CREATE TABLE IF NOT EXISTS %[1]sschema_version (
    version TEXT PRIMARY KEY,
    applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Actor dimension
CREATE TABLE IF NOT EXISTS %[1]sactor (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    actor_id TEXT,
    actor_name TEXT,
    actor_members TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]sactor_key ON %[1]sactor(actor_id);

-- Verb dimension
CREATE TABLE IF NOT EXISTS %[1]sverb (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    verb_id TEXT,
    verb_display TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]sverb_key ON %[1]sverb(verb_id);

-- Object dimension; the natural key spans all five payload columns, so the
-- same activity URI with a different interaction definition is a new row
CREATE TABLE IF NOT EXISTS %[1]sobject (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    xobject_id TEXT,
    object_name TEXT,
    object_description TEXT,
    object_choices TEXT,
    object_correct_responses_pattern TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]sobject_key ON %[1]sobject(
    xobject_id, object_name, object_description,
    object_choices, object_correct_responses_pattern
);

-- Result dimension
CREATE TABLE IF NOT EXISTS %[1]sresult (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    result_response TEXT,
    result_score_raw INTEGER,
    result_score_scaled REAL,
    result_completion BOOLEAN,
    result_success BOOLEAN,
    result_duration TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_%[1]sresult_key ON %[1]sresult(
    result_response, result_score_raw, result_score_scaled,
    result_completion, result_success, result_duration
);

-- Statement fact table
CREATE TABLE IF NOT EXISTS %[1]sstatement (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    id_actor INTEGER,
    id_verb INTEGER,
    id_object INTEGER,
    id_result INTEGER,
    time TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    xapi TEXT,
    FOREIGN KEY (id_actor) REFERENCES %[1]sactor(id),
    FOREIGN KEY (id_verb) REFERENCES %[1]sverb(id),
    FOREIGN KEY (id_object) REFERENCES %[1]sobject(id),
    FOREIGN KEY (id_result) REFERENCES %[1]sresult(id)
);

CREATE INDEX IF NOT EXISTS idx_%[1]sstatement_time ON %[1]sstatement(time);

-- Sentinel result row for statements without result data
INSERT OR IGNORE INTO %[1]sresult (
    id, result_response, result_score_raw, result_score_scaled,
    result_completion, result_success, result_duration
) VALUES (1, NULL, NULL, NULL, 0, 0, NULL);
`, p)
}

func migrationV1Down(p string) string {
	return fmt.Sprintf(`
-- Drop all tables in reverse order of dependencies
DROP TABLE IF EXISTS %[1]sstatement;
DROP TABLE IF EXISTS %[1]sresult;
DROP TABLE IF EXISTS %[1]sobject;
DROP TABLE IF EXISTS %[1]sverb;
DROP TABLE IF EXISTS %[1]sactor;
DROP TABLE IF EXISTS %[1]sschema_version;
`, p)
}

// ApplyMigrations runs all pending migrations. It is idempotent: already
// applied versions are skipped.
func ApplyMigrations(ctx context.Context, db *sql.DB, prefix string) error {
	versionTable := prefix + "schema_version"

	// Check if the schema version table exists
	var tableName string
	err := db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?", versionTable,
	).Scan(&tableName)

	// Parse current version (default to 0.0.0 if no migrations applied or table doesn't exist)
	var currentVersion *semver.Version
	if err == sql.ErrNoRows {
		currentVersion = semver.MustParse("0.0.0")
	} else if err != nil {
		return fmt.Errorf("%w: failed to check schema version table: %v", types.ErrSchema, err)
	} else {
		var currentVersionStr string
		err = db.QueryRowContext(ctx,
			"SELECT version FROM "+versionTable+" ORDER BY applied_at DESC LIMIT 1",
		).Scan(&currentVersionStr)
		if err == sql.ErrNoRows || currentVersionStr == "" {
			currentVersion = semver.MustParse("0.0.0")
		} else if err != nil {
			return fmt.Errorf("%w: failed to read schema version: %v", types.ErrSchema, err)
		} else {
			currentVersion, err = semver.NewVersion(currentVersionStr)
			if err != nil {
				return fmt.Errorf("%w: invalid current schema version %s: %v", types.ErrSchema, currentVersionStr, err)
			}
		}
	}

	// Run migrations in order
	for _, migration := range MigrationsFor(prefix) {
		migrationVersion, err := semver.NewVersion(migration.Version)
		if err != nil {
			return fmt.Errorf("%w: invalid migration version %s: %v", types.ErrSchema, migration.Version, err)
		}

		if !currentVersion.LessThan(migrationVersion) {
			continue // Already applied
		}

		if _, err := db.ExecContext(ctx, migration.Up); err != nil {
			return fmt.Errorf("%w: failed to apply migration %s: %v", types.ErrSchema, migration.Version, err)
		}

		if _, err := db.ExecContext(ctx,
			"INSERT INTO "+versionTable+" (version) VALUES (?)", migration.Version,
		); err != nil {
			return fmt.Errorf("%w: failed to record migration %s: %v", types.ErrSchema, migration.Version, err)
		}

		currentVersion = migrationVersion
	}

	return nil
}

// DropSchema removes all tables unconditionally by rolling back every applied
// migration in reverse order. Used on uninstall.
func DropSchema(ctx context.Context, db *sql.DB, prefix string) error {
	migrations := MigrationsFor(prefix)
	for i := len(migrations) - 1; i >= 0; i-- {
		if _, err := db.ExecContext(ctx, migrations[i].Down); err != nil {
			return fmt.Errorf("%w: failed to roll back migration %s: %v", types.ErrSchema, migrations[i].Version, err)
		}
	}
	return nil
}
