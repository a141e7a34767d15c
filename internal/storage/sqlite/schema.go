package sqlite

// Schema is the embedded DDL for the Continuo core. All statements are
// idempotent (IF NOT EXISTS) so Open can apply them on every start.
const Schema = `
CREATE TABLE IF NOT EXISTS memories (
	id               TEXT PRIMARY KEY,
	memory_type      TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	title            TEXT NOT NULL,
	content          TEXT,
	embedding        BLOB,
	importance_score REAL NOT NULL DEFAULT 0.5,
	tags             TEXT,
	metadata         TEXT,
	created_at       TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL,
	last_accessed    TIMESTAMP,
	accessed_count   INTEGER NOT NULL DEFAULT 0,
	expires_at       TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_memories_type     ON memories(memory_type);
CREATE INDEX IF NOT EXISTS idx_memories_category ON memories(category);
CREATE INDEX IF NOT EXISTS idx_memories_expires  ON memories(expires_at);

CREATE TABLE IF NOT EXISTS projects (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL DEFAULT '',
	priority    REAL NOT NULL DEFAULT 0,
	start_date  TIMESTAMP,
	end_date    TIMESTAMP,
	created_at  TIMESTAMP NOT NULL,
	updated_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tasks (
	id             TEXT PRIMARY KEY,
	project_id     TEXT,
	parent_task_id TEXT,
	title          TEXT NOT NULL,
	description    TEXT NOT NULL DEFAULT '',
	status         TEXT NOT NULL DEFAULT 'pending',
	urgency        REAL NOT NULL DEFAULT 0,
	importance     REAL NOT NULL DEFAULT 0,
	priority       REAL NOT NULL DEFAULT 0,
	dependencies   TEXT,
	due_date       TIMESTAMP,
	completed_at   TIMESTAMP,
	assigned_to    TEXT NOT NULL DEFAULT '',
	created_by     TEXT NOT NULL DEFAULT '',
	tags           TEXT,
	metadata       TEXT,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_tasks_status  ON tasks(status);
CREATE INDEX IF NOT EXISTS idx_tasks_parent  ON tasks(parent_task_id);
CREATE INDEX IF NOT EXISTS idx_tasks_project ON tasks(project_id);

CREATE TABLE IF NOT EXISTS decisions (
	id               TEXT PRIMARY KEY,
	context          TEXT NOT NULL,
	category         TEXT NOT NULL DEFAULT '',
	question         TEXT NOT NULL,
	options          TEXT NOT NULL,
	chosen_option    TEXT NOT NULL,
	reasoning        TEXT NOT NULL DEFAULT '',
	confidence_score REAL NOT NULL DEFAULT 0,
	outcome          TEXT NOT NULL DEFAULT 'unknown',
	outcome_details  TEXT NOT NULL DEFAULT '',
	evaluated_at     TIMESTAMP,
	created_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_decisions_evaluated ON decisions(evaluated_at);
CREATE INDEX IF NOT EXISTS idx_decisions_outcome   ON decisions(outcome);

CREATE TABLE IF NOT EXISTS patterns (
	id            TEXT PRIMARY KEY,
	pattern_type  TEXT NOT NULL,
	pattern_key   TEXT NOT NULL UNIQUE,
	pattern_data  TEXT,
	confidence    REAL NOT NULL DEFAULT 0.5,
	occurrences   INTEGER NOT NULL DEFAULT 1,
	last_observed TIMESTAMP NOT NULL,
	created_at    TIMESTAMP NOT NULL,
	updated_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS automations (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL UNIQUE,
	trigger_type   TEXT NOT NULL,
	trigger_config TEXT,
	action_type    TEXT NOT NULL,
	action_config  TEXT,
	enabled        INTEGER NOT NULL DEFAULT 1,
	trigger_count  INTEGER NOT NULL DEFAULT 0,
	success_count  INTEGER NOT NULL DEFAULT 0,
	failure_count  INTEGER NOT NULL DEFAULT 0,
	last_triggered TIMESTAMP,
	created_at     TIMESTAMP NOT NULL,
	updated_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_automations_enabled ON automations(enabled);

CREATE TABLE IF NOT EXISTS context_snapshots (
	session_id   TEXT NOT NULL,
	context_type TEXT NOT NULL,
	context_data TEXT,
	importance   REAL NOT NULL DEFAULT 0,
	expires_at   TIMESTAMP NOT NULL,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL,
	PRIMARY KEY (session_id, context_type)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_expires ON context_snapshots(expires_at);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`
