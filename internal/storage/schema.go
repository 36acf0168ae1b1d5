// ABOUTME: SQLite schema definition and initialization.
// ABOUTME: Defines tables for records, medication definitions and lab markers.
package storage

// initSchema creates or updates the database schema.
func (d *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS medications (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		unit TEXT,
		common_doses TEXT,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS markers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		unit TEXT,
		min_norm REAL,
		max_norm REAL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS profile (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS records (
		id TEXT PRIMARY KEY,
		category TEXT NOT NULL,
		day TEXT NOT NULL,
		sort_key TEXT NOT NULL,
		created_at TEXT NOT NULL,
		medication_id TEXT REFERENCES medications(id),
		payload TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_records_category_day ON records(category, day, sort_key);
	CREATE INDEX IF NOT EXISTS idx_records_day ON records(day);
	CREATE INDEX IF NOT EXISTS idx_records_medication ON records(medication_id);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_records_unique_day
		ON records(category, day) WHERE category IN ('steps', 'sleep');
	`

	_, err := d.db.Exec(schema)
	return err
}
