package dedupe

import (
	"testing"

	"github.com/TobiSchelling/kokkaisync/internal/database"
	"github.com/TobiSchelling/kokkaisync/internal/normalize"
)

func ptr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func TestMeetingsLastWins(t *testing.T) {
	set := Meetings([]database.Meeting{
		{IssueID: "M1", MeetingName: ptr("first")},
		{IssueID: "M2"},
		{IssueID: "M1", MeetingName: ptr("second")},
	})
	if set.Len() != 2 {
		t.Fatalf("expected 2 meetings, got %d", set.Len())
	}
	if keys := set.Keys(); keys[0] != "M1" || keys[1] != "M2" {
		t.Errorf("expected first-seen key order, got %v", keys)
	}
	m, _ := set.Get("M1")
	if *m.MeetingName != "second" {
		t.Errorf("expected last draft to win, got %q", *m.MeetingName)
	}
}

func TestLegislatorsGreaterLastSeenWins(t *testing.T) {
	set := Legislators([]database.Legislator{
		{Name: "山田太郎", CurrentParty: ptr("A党"), LastSeen: "2025-01-10"},
		{Name: "山田太郎", CurrentParty: ptr("B党"), LastSeen: "2025-01-05"},
		{Name: "山田太郎", CurrentParty: ptr("C党"), LastSeen: "2025-01-10"},
	})
	l, _ := set.Get("山田太郎")
	if *l.CurrentParty != "A党" {
		t.Errorf("expected A党 (greatest last_seen, first on tie), got %s", *l.CurrentParty)
	}
}

func TestBillsHigherSessionWins(t *testing.T) {
	key := database.Bill{House: database.HouseOfRepresentatives, SubmitSession: 5, BillType: "衆法", BillNumber: 1}
	a := key
	a.Session = intPtr(5)
	a.BillName = "session five"
	b := key
	b.Session = intPtr(7)
	b.BillName = "session seven"

	for _, order := range [][]normalize.BillDraft{
		{{Bill: a, Line: 1}, {Bill: b, Line: 2}},
		{{Bill: b, Line: 2}, {Bill: a, Line: 1}},
	} {
		set := Bills(order)
		if set.Len() != 1 {
			t.Fatalf("expected 1 bill, got %d", set.Len())
		}
		got, _ := set.Get(key.Key())
		if got.Bill.BillName != "session seven" {
			t.Errorf("expected session 7 row to win, got %q", got.Bill.BillName)
		}
	}
}

func TestBillsTieGoesToLaterRow(t *testing.T) {
	a := database.Bill{House: database.HouseOfCouncillors, BillName: "earlier", Session: intPtr(3)}
	b := database.Bill{House: database.HouseOfCouncillors, BillName: "later", Session: intPtr(3)}
	set := Bills([]normalize.BillDraft{{Bill: a, Line: 1}, {Bill: b, Line: 2}})
	got, _ := set.Get(a.Key())
	if got.Bill.BillName != "later" {
		t.Errorf("expected later row on tie, got %q", got.Bill.BillName)
	}
}

func TestVotesFollowSurvivingBillRow(t *testing.T) {
	key := database.BillKey{House: database.HouseOfRepresentatives, SubmitSession: 5, BillType: "衆法", BillNumber: 1}
	bills := Bills([]normalize.BillDraft{
		{Bill: database.Bill{House: key.House, SubmitSession: 5, BillType: "衆法", BillNumber: 1, Session: intPtr(5)}, Line: 1},
		{Bill: database.Bill{House: key.House, SubmitSession: 5, BillType: "衆法", BillNumber: 1, Session: intPtr(7)}, Line: 2},
	})

	votes := Votes([]normalize.VoteDraft{
		{Bill: key, Line: 1, PartyName: "A党", Vote: database.VoteAgainst, Chamber: key.House},
		{Bill: key, Line: 2, PartyName: "A党", Vote: database.VoteFor, Chamber: key.House},
		{Bill: key, Line: 2, PartyName: "B党", Vote: database.VoteFor, Chamber: key.House},
		{Bill: key, Line: 2, PartyName: "B党", Vote: database.VoteAgainst, Chamber: key.House},
	}, bills)

	if votes.Len() != 2 {
		t.Fatalf("expected 2 votes, got %d", votes.Len())
	}
	a, _ := votes.Get(VoteKey{Bill: key, PartyName: "A党", Chamber: key.House})
	if a.Vote != database.VoteFor {
		t.Errorf("expected vote from surviving row, got %s", a.Vote)
	}
	b, _ := votes.Get(VoteKey{Bill: key, PartyName: "B党", Chamber: key.House})
	if b.Vote != database.VoteAgainst {
		t.Errorf("expected last vote per key, got %s", b.Vote)
	}
}

func TestDedupeIsIdempotent(t *testing.T) {
	drafts := []database.Meeting{{IssueID: "M1"}, {IssueID: "M1", MeetingName: ptr("x")}, {IssueID: "M2"}}
	once := Meetings(drafts).Values()
	twice := Meetings(once).Values()
	if len(once) != len(twice) {
		t.Fatalf("expected same size, got %d and %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].IssueID != twice[i].IssueID || once[i].MeetingName != twice[i].MeetingName {
			t.Errorf("entry %d differs after second pass", i)
		}
	}
}
