package database

import (
	"context"
	"database/sql"
	"fmt"
)

var speechColumns = []string{
	"speech_id", "meeting_id", "legislator_id", "speech_order", "speaker_name",
	"speaker_group", "speaker_position", "content", "speech_url", "date",
}

// InsertSpeeches inserts speeches whose speech_id is not stored yet and
// returns the number inserted. Every MeetingID must already exist.
func (db *DB) InsertSpeeches(ctx context.Context, speeches []Speech) (int, error) {
	rows := make([][]any, len(speeches))
	for i, s := range speeches {
		rows[i] = []any{
			s.SpeechID, s.MeetingID, s.LegislatorID, s.SpeechOrder, s.SpeakerName,
			s.SpeakerGroup, s.SpeakerPosition, s.Content, s.SpeechURL, s.Date,
		}
	}
	return db.insertIgnore(ctx, "speeches", speechColumns, []string{"speech_id"}, rows)
}

// LatestSpeechDate returns the most recent stored speech date, or "" when
// no speeches are stored.
func (db *DB) LatestSpeechDate(ctx context.Context) (string, error) {
	var latest sql.NullString
	if err := db.queryRow(ctx, "SELECT MAX(date) FROM speeches").Scan(&latest); err != nil {
		return "", fmt.Errorf("reading latest speech date: %w", err)
	}
	return latest.String, nil
}

// UnlinkedSpeeches returns up to limit speeches without a legislator,
// ordered by id and starting after afterID.
func (db *DB) UnlinkedSpeeches(ctx context.Context, afterID int64, limit int) ([]Speech, error) {
	rows, err := db.query(ctx,
		`SELECT id, speech_id, speaker_name FROM speeches
		WHERE legislator_id IS NULL AND id > ?
		ORDER BY id LIMIT ?`, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing unlinked speeches: %w", err)
	}
	defer rows.Close()

	var speeches []Speech
	for rows.Next() {
		var s Speech
		if err := rows.Scan(&s.ID, &s.SpeechID, &s.SpeakerName); err != nil {
			return nil, err
		}
		speeches = append(speeches, s)
	}
	return speeches, rows.Err()
}

// LinkSpeech sets the legislator of a speech that has none. It reports
// whether the row changed, so linking twice is a no-op.
func (db *DB) LinkSpeech(ctx context.Context, speechID, legislatorID int64) (bool, error) {
	res, err := db.exec(ctx,
		"UPDATE speeches SET legislator_id = ? WHERE id = ? AND legislator_id IS NULL",
		legislatorID, speechID,
	)
	if err != nil {
		return false, fmt.Errorf("linking speech %d: %w", speechID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetSpeech returns a speech by its natural key, or nil if it is not stored.
func (db *DB) GetSpeech(ctx context.Context, speechID string) (*Speech, error) {
	var s Speech
	err := db.queryRow(ctx,
		`SELECT id, speech_id, meeting_id, legislator_id, speech_order, speaker_name,
		speaker_group, speaker_position, content, speech_url, date
		FROM speeches WHERE speech_id = ?`, speechID,
	).Scan(
		&s.ID, &s.SpeechID, &s.MeetingID, &s.LegislatorID, &s.SpeechOrder, &s.SpeakerName,
		&s.SpeakerGroup, &s.SpeakerPosition, &s.Content, &s.SpeechURL, &s.Date,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountSpeechesForMeeting returns how many speeches reference a meeting.
func (db *DB) CountSpeechesForMeeting(ctx context.Context, meetingID int64) (int, error) {
	var n int
	err := db.queryRow(ctx, "SELECT COUNT(*) FROM speeches WHERE meeting_id = ?", meetingID).Scan(&n)
	return n, err
}
