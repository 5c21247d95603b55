package storage

// schemaVersion is the highest migration version known to this build.
const schemaVersion = 1

var sqliteMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS recall_schema_version (
			num INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recall_item (
			uuid TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding BLOB,
			meta TEXT NOT NULL DEFAULT '',
			date_created INTEGER NOT NULL DEFAULT 0,
			last_accessed INTEGER NOT NULL DEFAULT 0,
			access_count INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recall_item_last_accessed ON recall_item (last_accessed)`,
		`CREATE INDEX IF NOT EXISTS idx_recall_item_date_created ON recall_item (date_created)`,
	},
}

var postgresMigrations = map[int][]string{
	1: {
		`CREATE TABLE IF NOT EXISTS recall_schema_version (
			num INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS recall_item (
			uuid TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			embedding BYTEA,
			meta TEXT NOT NULL DEFAULT '',
			date_created BIGINT NOT NULL DEFAULT 0,
			last_accessed BIGINT NOT NULL DEFAULT 0,
			access_count BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_recall_item_last_accessed ON recall_item (last_accessed)`,
		`CREATE INDEX IF NOT EXISTS idx_recall_item_date_created ON recall_item (date_created)`,
	},
}
