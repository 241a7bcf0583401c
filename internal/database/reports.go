package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// InsertRunReport records the outcome of a run.
func (db *DB) InsertRunReport(ctx context.Context, r RunReport) error {
	counts, err := json.Marshal(r.Counts)
	if err != nil {
		return fmt.Errorf("encoding run counts: %w", err)
	}
	_, err = db.exec(ctx,
		`INSERT INTO run_reports
		(run_id, kind, period_id, status, fetched, malformed, linked, counts, error_text, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Kind, r.PeriodID, r.Status, r.Fetched, r.Malformed, r.Linked,
		string(counts), r.ErrorText, r.StartedAt, r.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting run report: %w", err)
	}
	return nil
}

// RecentRunReports returns the latest run reports, newest first.
func (db *DB) RecentRunReports(ctx context.Context, limit int) ([]RunReport, error) {
	rows, err := db.query(ctx,
		`SELECT id, run_id, kind, period_id, status, fetched, malformed, linked, counts,
		error_text, started_at, finished_at
		FROM run_reports ORDER BY started_at DESC, id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reports []RunReport
	for rows.Next() {
		var r RunReport
		var periodID, counts sql.NullString
		if err := rows.Scan(&r.ID, &r.RunID, &r.Kind, &periodID, &r.Status, &r.Fetched, &r.Malformed,
			&r.Linked, &counts, &r.ErrorText, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, err
		}
		r.PeriodID = periodID.String
		if counts.Valid && counts.String != "" {
			if err := json.Unmarshal([]byte(counts.String), &r.Counts); err != nil {
				return nil, fmt.Errorf("decoding counts of run %s: %w", r.RunID, err)
			}
		}
		reports = append(reports, r)
	}
	return reports, rows.Err()
}

// GetStats returns table counts for the status command.
func (db *DB) GetStats(ctx context.Context) (*Stats, error) {
	s := &Stats{}
	counts := []struct {
		dest  *int
		query string
	}{
		{&s.Meetings, "SELECT COUNT(*) FROM meetings"},
		{&s.Speeches, "SELECT COUNT(*) FROM speeches"},
		{&s.UnlinkedSpeeches, "SELECT COUNT(*) FROM speeches WHERE legislator_id IS NULL"},
		{&s.Legislators, "SELECT COUNT(*) FROM legislators"},
		{&s.Members, "SELECT COUNT(*) FROM legislators WHERE is_member = TRUE"},
		{&s.Bills, "SELECT COUNT(*) FROM bills"},
		{&s.Votes, "SELECT COUNT(*) FROM bill_votes"},
		{&s.NewsArticles, "SELECT COUNT(*) FROM news_articles"},
		{&s.RunReports, "SELECT COUNT(*) FROM run_reports"},
	}
	for _, c := range counts {
		if err := db.queryRow(ctx, c.query).Scan(c.dest); err != nil {
			return nil, err
		}
	}

	latest, err := db.LatestSpeechDate(ctx)
	if err != nil {
		return nil, err
	}
	s.LatestSpeechDate = latest
	return s, nil
}
