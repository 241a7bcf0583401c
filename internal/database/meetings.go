package database

import (
	"context"
	"database/sql"
	"fmt"
)

var meetingColumns = []string{
	"issue_id", "session", "house", "meeting_name", "issue_number", "date", "meeting_url",
}

// InsertMeetings inserts meetings whose issue_id is not stored yet and
// returns the number inserted. Existing meetings are left as they are.
func (db *DB) InsertMeetings(ctx context.Context, meetings []Meeting) (int, error) {
	rows := make([][]any, len(meetings))
	for i, m := range meetings {
		rows[i] = []any{m.IssueID, m.Session, m.House, m.MeetingName, m.IssueNumber, m.Date, m.MeetingURL}
	}
	return db.insertIgnore(ctx, "meetings", meetingColumns, []string{"issue_id"}, rows)
}

// MeetingIDs returns the surrogate ids of the given issue ids. Keys that
// are not stored are absent from the map.
func (db *DB) MeetingIDs(ctx context.Context, issueIDs []string) (map[string]int64, error) {
	ids := make(map[string]int64, len(issueIDs))
	if len(issueIDs) == 0 {
		return ids, nil
	}

	rows, err := db.query(ctx,
		"SELECT id, issue_id FROM meetings WHERE issue_id IN ("+placeholders(len(issueIDs))+")",
		stringArgs(issueIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("resolving meetings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var issueID string
		if err := rows.Scan(&id, &issueID); err != nil {
			return nil, err
		}
		ids[issueID] = id
	}
	return ids, rows.Err()
}

// GetMeeting returns a meeting by issue id, or nil if it is not stored.
func (db *DB) GetMeeting(ctx context.Context, issueID string) (*Meeting, error) {
	var m Meeting
	err := db.queryRow(ctx,
		`SELECT id, issue_id, session, house, meeting_name, issue_number, date, meeting_url
		FROM meetings WHERE issue_id = ?`, issueID,
	).Scan(&m.ID, &m.IssueID, &m.Session, &m.House, &m.MeetingName, &m.IssueNumber, &m.Date, &m.MeetingURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
