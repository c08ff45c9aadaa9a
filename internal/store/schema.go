package store

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS story (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		message   TEXT NOT NULL,
		timestamp TEXT NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS task (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		story_id    INTEGER NOT NULL,
		description TEXT    NOT NULL,
		status      TEXT    NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'in_progress', 'completed')),
		timestamp   TEXT    NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (story_id) REFERENCES story(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_story ON task(story_id)`,
	`CREATE TABLE IF NOT EXISTS defect (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		story_id    INTEGER NOT NULL,
		task_id     INTEGER,
		description TEXT    NOT NULL,
		status      TEXT    NOT NULL DEFAULT 'open' CHECK (status IN ('open', 'in_progress', 'resolved')),
		timestamp   TEXT    NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (story_id) REFERENCES story(id) ON DELETE CASCADE,
		FOREIGN KEY (task_id)  REFERENCES task(id)  ON DELETE SET NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_defect_story ON defect(story_id)`,
	`CREATE TABLE IF NOT EXISTS task_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id      INTEGER NOT NULL,
		log_type     TEXT    NOT NULL CHECK (log_type IN ('run', 'result', 'gold', 'landmine')),
		summary      TEXT    NOT NULL,
		files_edited TEXT,
		timestamp    TEXT    NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (task_id) REFERENCES task(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_log_task ON task_log(task_id)`,
	`CREATE TABLE IF NOT EXISTS defect_log (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		defect_id    INTEGER NOT NULL,
		log_type     TEXT    NOT NULL CHECK (log_type IN ('run', 'result')),
		summary      TEXT    NOT NULL,
		files_edited TEXT,
		timestamp    TEXT    NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (defect_id) REFERENCES defect(id) ON DELETE CASCADE
	)`,
	`CREATE TABLE IF NOT EXISTS history (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT    NOT NULL,
		task_id    INTEGER NOT NULL,
		start_time TEXT    NOT NULL DEFAULT (datetime('now')),
		end_time   TEXT,
		summary    TEXT,
		FOREIGN KEY (task_id) REFERENCES task(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_history_task ON history(task_id, session_id)`,
	`CREATE TABLE IF NOT EXISTS landmines (
		id              INTEGER PRIMARY KEY AUTOINCREMENT,
		task_id         INTEGER NOT NULL,
		session_id      TEXT    NOT NULL,
		error_context   TEXT    NOT NULL,
		attempted_fixes TEXT    NOT NULL,
		timestamp       TEXT    NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (task_id) REFERENCES task(id) ON DELETE CASCADE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_landmines_task ON landmines(task_id)`,
	`CREATE TABLE IF NOT EXISTS risks (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		keyword      TEXT    NOT NULL UNIQUE,
		description  TEXT    NOT NULL,
		landmine_ids TEXT    NOT NULL DEFAULT '[]',
		version      INTEGER NOT NULL DEFAULT 1,
		last_updated TEXT    NOT NULL DEFAULT (datetime('now'))
	)`,
	`CREATE TABLE IF NOT EXISTS general      (key TEXT PRIMARY KEY NOT NULL, value TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS architecture (key TEXT PRIMARY KEY NOT NULL, value TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS operations   (key TEXT PRIMARY KEY NOT NULL, value TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS deployment   (key TEXT PRIMARY KEY NOT NULL, value TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS testing      (key TEXT PRIMARY KEY NOT NULL, value TEXT NOT NULL)`,
	`CREATE TABLE IF NOT EXISTS facts (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		category   TEXT    NOT NULL,
		key        TEXT    NOT NULL,
		value      TEXT    NOT NULL,
		source     TEXT    NOT NULL DEFAULT 'manual',
		confidence INTEGER NOT NULL DEFAULT 100 CHECK (confidence BETWEEN 0 AND 100),
		timestamp  TEXT    NOT NULL DEFAULT (datetime('now')),
		UNIQUE (category, key)
	)`,
	`CREATE TABLE IF NOT EXISTS backlog (
		id                   INTEGER PRIMARY KEY AUTOINCREMENT,
		title                TEXT    NOT NULL,
		description          TEXT    NOT NULL DEFAULT '',
		success_criteria     TEXT    NOT NULL DEFAULT '',
		priority             INTEGER NOT NULL DEFAULT 3,
		business_value       INTEGER NOT NULL DEFAULT 5,
		estimated_complexity TEXT    NOT NULL DEFAULT 'moderate',
		status               TEXT    NOT NULL DEFAULT 'queue' CHECK (status IN ('queue', 'in_development', 'qa', 'done')),
		display_order        INTEGER NOT NULL DEFAULT 0,
		prime_notes          TEXT,
		last_analyzed        TEXT,
		story_id             INTEGER,
		timestamp            TEXT    NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (story_id) REFERENCES story(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prime_notifications (
		id                 INTEGER PRIMARY KEY AUTOINCREMENT,
		notification_type  TEXT    NOT NULL,
		backlog_id         INTEGER,
		change_description TEXT    NOT NULL,
		old_value          TEXT,
		new_value          TEXT,
		user_action        TEXT    NOT NULL,
		timestamp          TEXT    NOT NULL DEFAULT (datetime('now')),
		acknowledged       INTEGER NOT NULL DEFAULT 0,
		FOREIGN KEY (backlog_id) REFERENCES backlog(id) ON DELETE SET NULL
	)`,
	`CREATE TABLE IF NOT EXISTS prime_analysis (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		backlog_id          INTEGER NOT NULL,
		full_report         TEXT    NOT NULL,
		risk_assessment     TEXT    NOT NULL,
		recommendations     TEXT    NOT NULL,
		risk_score          INTEGER NOT NULL,
		recommendation_type TEXT    NOT NULL,
		analysis_timestamp  TEXT    NOT NULL DEFAULT (datetime('now')),
		FOREIGN KEY (backlog_id) REFERENCES backlog(id) ON DELETE CASCADE
	)`,
}
