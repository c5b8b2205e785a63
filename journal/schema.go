package journal

const Schema = `
CREATE TABLE IF NOT EXISTS decisions (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	is_closing INTEGER NOT NULL,
	cost TEXT NOT NULL,
	allowed INTEGER NOT NULL,
	reasons TEXT NOT NULL,
	checks_run TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS losses (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	scope TEXT NOT NULL,
	amount TEXT NOT NULL,
	gain INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS emergencies (
	id TEXT PRIMARY KEY,
	time DATETIME NOT NULL,
	trigger_name TEXT NOT NULL,
	directives TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_time ON decisions(time);
CREATE INDEX IF NOT EXISTS idx_losses_time ON losses(time);
`
