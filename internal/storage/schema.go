package storage

import "strings"

// schemaTemplate is shared by both dialects. {{ts}}, {{real}} and {{bool}}
// expand to the dialect's column types.
const schemaTemplate = `
CREATE TABLE IF NOT EXISTS snapshots (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	platform TEXT NOT NULL,
	organization TEXT NOT NULL,
	project TEXT NOT NULL,
	repository TEXT NOT NULL,
	window_from {{ts}},
	window_to {{ts}},
	pull_request_count INTEGER NOT NULL,
	created_at {{ts}} NOT NULL
);

CREATE TABLE IF NOT EXISTS snapshot_commits (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	commit_id TEXT NOT NULL,
	author_name TEXT NOT NULL,
	author_email TEXT NOT NULL,
	committed_at {{ts}},
	message TEXT NOT NULL,
	PRIMARY KEY (snapshot_id, seq)
);

CREATE TABLE IF NOT EXISTS snapshot_changes (
	snapshot_id TEXT NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
	seq INTEGER NOT NULL,
	idx INTEGER NOT NULL,
	path TEXT NOT NULL,
	kind TEXT NOT NULL,
	is_folder {{bool}} NOT NULL,
	PRIMARY KEY (snapshot_id, seq, idx)
);

CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	source TEXT NOT NULL,
	snapshot_hash TEXT NOT NULL,
	generated_at {{ts}},
	created_at {{ts}} NOT NULL,
	summary TEXT NOT NULL,
	languages TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS file_risk (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	path TEXT NOT NULL,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	area TEXT NOT NULL,
	total_commits INTEGER NOT NULL,
	recent_commits INTEGER NOT NULL,
	developer_count INTEGER NOT NULL,
	developer_list TEXT NOT NULL,
	size_estimate INTEGER NOT NULL,
	lines_added_estimate INTEGER NOT NULL,
	lines_deleted_estimate INTEGER NOT NULL,
	last_modified {{ts}},
	change_frequency_per_week {{real}} NOT NULL,
	loc INTEGER NOT NULL,
	complexity {{real}} NOT NULL,
	content_method TEXT NOT NULL,
	bus_factor_risk {{real}} NOT NULL,
	hotspot_score {{real}} NOT NULL,
	is_critical {{bool}} NOT NULL,
	critical_component {{bool}} NOT NULL,
	risk_category TEXT NOT NULL,
	PRIMARY KEY (run_id, ordinal)
);

CREATE TABLE IF NOT EXISTS developer_risk (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	ordinal INTEGER NOT NULL,
	identity TEXT NOT NULL,
	display_name TEXT NOT NULL,
	files_owned INTEGER NOT NULL,
	exclusive_files INTEGER NOT NULL,
	exclusive_files_list TEXT NOT NULL,
	total_commits INTEGER NOT NULL,
	total_file_changes INTEGER NOT NULL,
	ownership_percentage {{real}} NOT NULL,
	bus_factor_risk {{real}} NOT NULL,
	risk_level TEXT NOT NULL,
	PRIMARY KEY (run_id, ordinal)
);

CREATE INDEX IF NOT EXISTS idx_snapshots_source ON snapshots(source, created_at);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
`

func schemaFor(ts, real, boolean string) string {
	return strings.NewReplacer("{{ts}}", ts, "{{real}}", real, "{{bool}}", boolean).Replace(schemaTemplate)
}
