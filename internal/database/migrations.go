package database

import "strings"

// Migration represents a single schema migration step. Statements are
// written once with {{id}} and {{now}} markers that expand per dialect.
type Migration struct {
	Version     int
	Description string
	Statements  []string
}

var dialectMarkers = map[Dialect]*strings.Replacer{
	SQLite: strings.NewReplacer(
		"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"{{now}}", "(strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))",
	),
	Postgres: strings.NewReplacer(
		"{{id}}", "BIGSERIAL PRIMARY KEY",
		"{{now}}", `(to_char(now() AT TIME ZONE 'UTC', 'YYYY-MM-DD"T"HH24:MI:SS"Z"'))`,
	),
}

func (m Migration) statements(dialect Dialect) []string {
	r := dialectMarkers[dialect]
	out := make([]string, len(m.Statements))
	for i, s := range m.Statements {
		out[i] = r.Replace(s)
	}
	return out
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Statements: []string{
			`CREATE TABLE IF NOT EXISTS meetings (
    id {{id}},
    issue_id TEXT UNIQUE NOT NULL,
    session INTEGER,
    house TEXT,
    meeting_name TEXT,
    issue_number TEXT,
    date TEXT,
    meeting_url TEXT
)`,
			`CREATE TABLE IF NOT EXISTS legislators (
    id {{id}},
    name TEXT UNIQUE NOT NULL,
    current_party TEXT,
    current_position TEXT,
    house TEXT,
    is_member BOOLEAN NOT NULL DEFAULT FALSE,
    last_seen TEXT
)`,
			`CREATE TABLE IF NOT EXISTS speeches (
    id {{id}},
    speech_id TEXT UNIQUE NOT NULL,
    meeting_id BIGINT NOT NULL REFERENCES meetings(id),
    legislator_id BIGINT REFERENCES legislators(id),
    speech_order INTEGER,
    speaker_name TEXT,
    speaker_group TEXT,
    speaker_position TEXT,
    content TEXT,
    speech_url TEXT,
    date TEXT
)`,
			`CREATE INDEX IF NOT EXISTS idx_speeches_date ON speeches(date)`,
			`CREATE INDEX IF NOT EXISTS idx_speeches_unlinked ON speeches(legislator_id, id)`,
			`CREATE TABLE IF NOT EXISTS bills (
    id {{id}},
    house TEXT NOT NULL,
    submit_session INTEGER NOT NULL DEFAULT 0,
    bill_type TEXT NOT NULL DEFAULT '',
    bill_number INTEGER NOT NULL DEFAULT 0,
    session INTEGER,
    bill_name TEXT NOT NULL,
    caption TEXT,
    status TEXT,
    proposer TEXT,
    proposer_party TEXT,
    committee TEXT,
    date_submitted TEXT,
    date_passed TEXT,
    result TEXT,
    law_number TEXT,
    progress_url TEXT,
    UNIQUE (house, submit_session, bill_type, bill_number)
)`,
			`CREATE TABLE IF NOT EXISTS bill_votes (
    id {{id}},
    bill_id BIGINT NOT NULL REFERENCES bills(id),
    party_name TEXT NOT NULL,
    vote TEXT NOT NULL,
    chamber TEXT NOT NULL,
    UNIQUE (bill_id, party_name, chamber)
)`,
			`CREATE TABLE IF NOT EXISTS news_articles (
    id {{id}},
    url TEXT UNIQUE NOT NULL,
    title TEXT NOT NULL,
    source TEXT,
    published_date TEXT,
    content TEXT,
    content_fetched BOOLEAN NOT NULL DEFAULT FALSE,
    legislator_id BIGINT REFERENCES legislators(id),
    collected_at TEXT DEFAULT {{now}}
)`,
			`CREATE INDEX IF NOT EXISTS idx_news_legislator ON news_articles(legislator_id)`,
			`CREATE TABLE IF NOT EXISTS run_reports (
    id {{id}},
    run_id TEXT UNIQUE NOT NULL,
    kind TEXT NOT NULL,
    period_id TEXT,
    status TEXT NOT NULL,
    fetched INTEGER NOT NULL DEFAULT 0,
    malformed INTEGER NOT NULL DEFAULT 0,
    linked INTEGER NOT NULL DEFAULT 0,
    counts TEXT,
    error_text TEXT,
    started_at TEXT NOT NULL,
    finished_at TEXT DEFAULT {{now}}
)`,
		},
	},
}

// latestVersion returns the highest migration version.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
