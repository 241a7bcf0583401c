package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

var billColumns = []string{
	"house", "submit_session", "bill_type", "bill_number", "session", "bill_name", "caption",
	"status", "proposer", "proposer_party", "committee", "date_submitted", "date_passed",
	"result", "law_number", "progress_url",
}

var billKeyColumns = []string{"house", "submit_session", "bill_type", "bill_number"}

// InsertBills inserts bills whose natural key is not stored yet and
// returns the number inserted.
func (db *DB) InsertBills(ctx context.Context, bills []Bill) (int, error) {
	rows := make([][]any, len(bills))
	for i, b := range bills {
		rows[i] = []any{
			b.House, b.SubmitSession, b.BillType, b.BillNumber, b.Session, b.BillName, b.Caption,
			b.Status, b.Proposer, b.ProposerParty, b.Committee, b.DateSubmitted, b.DatePassed,
			b.Result, b.LawNumber, b.ProgressURL,
		}
	}
	return db.insertIgnore(ctx, "bills", billColumns, billKeyColumns, rows)
}

// BillIDs returns the surrogate ids of the given bill keys. Keys that are
// not stored are absent from the map.
func (db *DB) BillIDs(ctx context.Context, keys []BillKey) (map[BillKey]int64, error) {
	ids := make(map[BillKey]int64, len(keys))
	if len(keys) == 0 {
		return ids, nil
	}

	conds := make([]string, len(keys))
	args := make([]any, 0, len(keys)*4)
	for i, k := range keys {
		conds[i] = "(house = ? AND submit_session = ? AND bill_type = ? AND bill_number = ?)"
		args = append(args, k.House, k.SubmitSession, k.BillType, k.BillNumber)
	}

	rows, err := db.query(ctx,
		"SELECT id, house, submit_session, bill_type, bill_number FROM bills WHERE "+strings.Join(conds, " OR "),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("resolving bills: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var k BillKey
		if err := rows.Scan(&id, &k.House, &k.SubmitSession, &k.BillType, &k.BillNumber); err != nil {
			return nil, err
		}
		ids[k] = id
	}
	return ids, rows.Err()
}

// InsertVotes inserts votes whose (bill, party, chamber) is not stored yet
// and returns the number inserted. Every BillID must already exist.
func (db *DB) InsertVotes(ctx context.Context, votes []Vote) (int, error) {
	rows := make([][]any, len(votes))
	for i, v := range votes {
		rows[i] = []any{v.BillID, v.PartyName, v.Vote, v.Chamber}
	}
	return db.insertIgnore(ctx, "bill_votes",
		[]string{"bill_id", "party_name", "vote", "chamber"},
		[]string{"bill_id", "party_name", "chamber"}, rows,
	)
}

// GetBill returns a bill by natural key, or nil if it is not stored.
func (db *DB) GetBill(ctx context.Context, key BillKey) (*Bill, error) {
	var b Bill
	err := db.queryRow(ctx,
		`SELECT id, house, submit_session, bill_type, bill_number, session, bill_name, caption,
		status, proposer, proposer_party, committee, date_submitted, date_passed,
		result, law_number, progress_url
		FROM bills WHERE house = ? AND submit_session = ? AND bill_type = ? AND bill_number = ?`,
		key.House, key.SubmitSession, key.BillType, key.BillNumber,
	).Scan(
		&b.ID, &b.House, &b.SubmitSession, &b.BillType, &b.BillNumber, &b.Session, &b.BillName, &b.Caption,
		&b.Status, &b.Proposer, &b.ProposerParty, &b.Committee, &b.DateSubmitted, &b.DatePassed,
		&b.Result, &b.LawNumber, &b.ProgressURL,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// VotesForBill returns the recorded votes of a bill ordered by chamber and party.
func (db *DB) VotesForBill(ctx context.Context, billID int64) ([]Vote, error) {
	rows, err := db.query(ctx,
		`SELECT id, bill_id, party_name, vote, chamber FROM bill_votes
		WHERE bill_id = ? ORDER BY chamber, party_name`, billID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var votes []Vote
	for rows.Next() {
		var v Vote
		if err := rows.Scan(&v.ID, &v.BillID, &v.PartyName, &v.Vote, &v.Chamber); err != nil {
			return nil, err
		}
		votes = append(votes, v)
	}
	return votes, rows.Err()
}
