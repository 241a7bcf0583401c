package database

import (
	"context"
	"database/sql"
	"fmt"
)

const legislatorSelect = `SELECT id, name, current_party, current_position, house, is_member, last_seen
	FROM legislators`

// LegislatorsByName returns stored legislators keyed by name.
func (db *DB) LegislatorsByName(ctx context.Context, names []string) (map[string]Legislator, error) {
	out := make(map[string]Legislator, len(names))
	if len(names) == 0 {
		return out, nil
	}

	rows, err := db.query(ctx,
		legislatorSelect+" WHERE name IN ("+placeholders(len(names))+")",
		stringArgs(names)...,
	)
	if err != nil {
		return nil, fmt.Errorf("reading legislators: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		l, err := scanLegislator(rows)
		if err != nil {
			return nil, err
		}
		out[l.Name] = *l
	}
	return out, rows.Err()
}

// InsertLegislators inserts legislators whose name is not stored yet and
// returns the number inserted.
func (db *DB) InsertLegislators(ctx context.Context, legislators []Legislator) (int, error) {
	rows := make([][]any, len(legislators))
	for i, l := range legislators {
		rows[i] = []any{l.Name, l.CurrentParty, l.CurrentPosition, l.House, l.IsMember, nullIfEmpty(l.LastSeen)}
	}
	return db.insertIgnore(ctx, "legislators",
		[]string{"name", "current_party", "current_position", "house", "is_member", "last_seen"},
		[]string{"name"}, rows,
	)
}

// AdvanceLegislator overwrites a stored legislator's attributes only when
// l.LastSeen is strictly newer than the stored last_seen. Absent incoming
// attributes keep their stored values. It reports whether the row changed.
func (db *DB) AdvanceLegislator(ctx context.Context, l Legislator) (bool, error) {
	if l.LastSeen == "" {
		return false, nil
	}
	res, err := db.exec(ctx,
		`UPDATE legislators SET
			last_seen = ?,
			current_party = COALESCE(?, current_party),
			current_position = COALESCE(?, current_position),
			house = COALESCE(?, house),
			is_member = ?
		WHERE name = ? AND (last_seen IS NULL OR last_seen < ?)`,
		l.LastSeen, l.CurrentParty, l.CurrentPosition, l.House, l.IsMember, l.Name, l.LastSeen,
	)
	if err != nil {
		return false, fmt.Errorf("updating legislator %s: %w", l.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// LegislatorIDs returns every stored legislator id keyed by name.
func (db *DB) LegislatorIDs(ctx context.Context) (map[string]int64, error) {
	rows, err := db.query(ctx, "SELECT id, name FROM legislators")
	if err != nil {
		return nil, fmt.Errorf("listing legislators: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]int64)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		ids[name] = id
	}
	return ids, rows.Err()
}

// RecentMembers returns sitting members ordered by most recently seen.
func (db *DB) RecentMembers(ctx context.Context, limit int) ([]Legislator, error) {
	rows, err := db.query(ctx,
		legislatorSelect+" WHERE is_member = TRUE ORDER BY last_seen DESC, id LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	var out []Legislator
	for rows.Next() {
		l, err := scanLegislator(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *l)
	}
	return out, rows.Err()
}

// GetLegislator returns a legislator by name, or nil if it is not stored.
func (db *DB) GetLegislator(ctx context.Context, name string) (*Legislator, error) {
	row := db.queryRow(ctx, legislatorSelect+" WHERE name = ?", name)
	l, err := scanLegislator(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLegislator(s scanner) (*Legislator, error) {
	var l Legislator
	var lastSeen sql.NullString
	if err := s.Scan(&l.ID, &l.Name, &l.CurrentParty, &l.CurrentPosition, &l.House, &l.IsMember, &lastSeen); err != nil {
		return nil, err
	}
	l.LastSeen = lastSeen.String
	return &l, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
