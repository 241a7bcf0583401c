package reconcile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/kokkaisync/internal/database"
	"github.com/TobiSchelling/kokkaisync/internal/dedupe"
	"github.com/TobiSchelling/kokkaisync/internal/normalize"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func speech(id, issueID string) normalize.SpeechDraft {
	return normalize.SpeechDraft{
		IssueID: issueID,
		Speech:  database.Speech{SpeechID: id, SpeakerName: ptr("山田太郎"), Date: ptr("2025-01-10")},
	}
}

func TestSpeechesAttachToExistingAndNewMeetings(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	db.InsertMeetings(ctx, []database.Meeting{{IssueID: "M1"}})
	before, _ := db.MeetingIDs(ctx, []string{"M1"})

	r := New(db, BatchSizes{}, zerolog.Nop())
	rep := r.Reconcile(ctx, Input{
		Meetings: []database.Meeting{{IssueID: "M1"}, {IssueID: "M2"}},
		Speeches: []normalize.SpeechDraft{speech("S1", "M1"), speech("S2", "M1"), speech("S3", "M2")},
	})

	if err := rep.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Meetings.Inserted != 1 || rep.Meetings.Unchanged != 1 {
		t.Errorf("expected 1 inserted and 1 unchanged meeting, got %+v", rep.Meetings)
	}
	if rep.Speeches.Inserted != 3 || rep.Speeches.Dropped != 0 {
		t.Errorf("expected 3 speeches inserted, got %+v", rep.Speeches)
	}

	after, _ := db.MeetingIDs(ctx, []string{"M1", "M2"})
	if after["M1"] != before["M1"] {
		t.Errorf("expected pre-existing meeting id %d to be kept, got %d", before["M1"], after["M1"])
	}
	for id, issue := range map[string]string{"S1": "M1", "S2": "M1", "S3": "M2"} {
		s, _ := db.GetSpeech(ctx, id)
		if s == nil || s.MeetingID != after[issue] {
			t.Errorf("expected %s to reference meeting %s", id, issue)
		}
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	in := Input{
		Meetings:    []database.Meeting{{IssueID: "M1"}},
		Speeches:    []normalize.SpeechDraft{speech("S1", "M1")},
		Legislators: []database.Legislator{{Name: "山田太郎", LastSeen: "2025-01-10"}},
		Bills: []normalize.BillDraft{{Bill: database.Bill{
			House: database.HouseOfRepresentatives, SubmitSession: 217, BillType: "閣法", BillNumber: 1, BillName: "法案",
		}, Line: 2}},
		Votes: []normalize.VoteDraft{{
			Bill:      database.BillKey{House: database.HouseOfRepresentatives, SubmitSession: 217, BillType: "閣法", BillNumber: 1},
			Line:      2,
			PartyName: "A党", Vote: database.VoteFor, Chamber: database.HouseOfRepresentatives,
		}},
	}

	r := New(db, BatchSizes{}, zerolog.Nop())
	first := r.Reconcile(ctx, in)
	statsFirst, _ := db.GetStats(ctx)
	second := r.Reconcile(ctx, in)
	statsSecond, _ := db.GetStats(ctx)

	if first.Err() != nil || second.Err() != nil {
		t.Fatalf("unexpected errors: %v %v", first.Err(), second.Err())
	}
	if *statsFirst != *statsSecond {
		t.Errorf("expected identical store after re-run, got %+v then %+v", statsFirst, statsSecond)
	}
	for name, c := range map[string]Counts{
		"meetings": second.Meetings, "speeches": second.Speeches, "legislators": second.Legislators,
		"bills": second.Bills, "votes": second.Votes,
	} {
		if c.Inserted != 0 || c.Updated != 0 {
			t.Errorf("expected no writes for %s on re-run, got %+v", name, c)
		}
	}
}

func TestOrphanSpeechIsDropped(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rep := New(db, BatchSizes{}, zerolog.Nop()).Reconcile(ctx, Input{
		Meetings: []database.Meeting{{IssueID: "M1"}},
		Speeches: []normalize.SpeechDraft{speech("S1", "M1"), speech("S2", "GONE")},
	})

	if rep.Speeches.Dropped != 1 || rep.Speeches.Inserted != 1 {
		t.Errorf("expected 1 dropped and 1 inserted, got %+v", rep.Speeches)
	}
	if s, _ := db.GetSpeech(ctx, "S2"); s != nil {
		t.Error("expected orphan speech not to be written")
	}
}

func TestLegislatorLastSeenNeverRegresses(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	r := New(db, BatchSizes{}, zerolog.Nop())

	r.Reconcile(ctx, Input{Legislators: []database.Legislator{
		{Name: "山田太郎", CurrentParty: ptr("A党"), LastSeen: "2025-01-10"},
	}})
	rep := r.Reconcile(ctx, Input{Legislators: []database.Legislator{
		{Name: "山田太郎", CurrentParty: ptr("B党"), LastSeen: "2025-01-05"},
	}})
	if rep.Legislators.Updated != 0 || rep.Legislators.Unchanged != 1 {
		t.Errorf("expected stale record to be ignored, got %+v", rep.Legislators)
	}
	l, _ := db.GetLegislator(ctx, "山田太郎")
	if l.LastSeen != "2025-01-10" || *l.CurrentParty != "A党" {
		t.Errorf("expected 2025-01-10/A党, got %s/%s", l.LastSeen, *l.CurrentParty)
	}

	rep = r.Reconcile(ctx, Input{Legislators: []database.Legislator{
		{Name: "山田太郎", CurrentParty: ptr("C党"), LastSeen: "2025-02-01"},
		{Name: "鈴木花子", LastSeen: "2025-02-01"},
	}})
	if rep.Legislators.Updated != 1 || rep.Legislators.Inserted != 1 {
		t.Errorf("expected 1 updated and 1 inserted, got %+v", rep.Legislators)
	}
	l, _ = db.GetLegislator(ctx, "山田太郎")
	if l.LastSeen != "2025-02-01" || *l.CurrentParty != "C党" {
		t.Errorf("expected 2025-02-01/C党, got %s/%s", l.LastSeen, *l.CurrentParty)
	}
}

func TestBillFromHighestSessionIsStored(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	base := database.Bill{House: database.HouseOfRepresentatives, SubmitSession: 5, BillType: "衆法", BillNumber: 1}
	five, seven := base, base
	five.Session, five.BillName, five.Status = intPtr(5), "法案", ptr("審議中")
	seven.Session, seven.BillName, seven.Status = intPtr(7), "法案", ptr("成立")

	bills := dedupe.Bills([]normalize.BillDraft{{Bill: seven, Line: 3}, {Bill: five, Line: 2}})
	rep := New(db, BatchSizes{}, zerolog.Nop()).Reconcile(ctx, Input{Bills: bills.Values()})
	if rep.Bills.Inserted != 1 {
		t.Fatalf("expected 1 bill, got %+v", rep.Bills)
	}

	stored, _ := db.GetBill(ctx, base.Key())
	if stored.Session == nil || *stored.Session != 7 || *stored.Status != "成立" {
		t.Errorf("expected the session 7 row, got %+v", stored)
	}
}

// flakyStore fails every insert whose batch contains a poisoned key and
// records batch sizes.
type flakyStore struct {
	*database.DB
	poison       string
	speechCalls  []int
	meetingCalls []int
}

func (f *flakyStore) InsertMeetings(ctx context.Context, meetings []database.Meeting) (int, error) {
	f.meetingCalls = append(f.meetingCalls, len(meetings))
	for _, m := range meetings {
		if m.IssueID == f.poison {
			return 0, errors.New("store unavailable")
		}
	}
	return f.DB.InsertMeetings(ctx, meetings)
}

func (f *flakyStore) InsertSpeeches(ctx context.Context, speeches []database.Speech) (int, error) {
	f.speechCalls = append(f.speechCalls, len(speeches))
	return f.DB.InsertSpeeches(ctx, speeches)
}

func TestFailedChunkIsCountedAndRunContinues(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := &flakyStore{DB: db, poison: "BAD"}

	rep := New(store, BatchSizes{Meetings: 1}, zerolog.Nop()).Reconcile(ctx, Input{
		Meetings: []database.Meeting{{IssueID: "M1"}, {IssueID: "BAD"}, {IssueID: "M2"}},
		Speeches: []normalize.SpeechDraft{speech("S1", "M1"), speech("S2", "BAD"), speech("S3", "M2")},
	})

	if rep.Err() == nil {
		t.Fatal("expected the report to carry the chunk failure")
	}
	if rep.Meetings.Failed != 1 || rep.Meetings.Inserted != 2 {
		t.Errorf("expected 1 failed and 2 inserted meetings, got %+v", rep.Meetings)
	}
	if rep.Speeches.Dropped != 1 || rep.Speeches.Inserted != 2 {
		t.Errorf("expected the failed meeting's speech to be dropped, got %+v", rep.Speeches)
	}
	if len(store.meetingCalls) != 3 {
		t.Errorf("expected 3 meeting chunks, got %v", store.meetingCalls)
	}
}

func TestSpeechesAreChunked(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	store := &flakyStore{DB: db}

	var speeches []normalize.SpeechDraft
	for i := 0; i < 450; i++ {
		speeches = append(speeches, speech(fmt.Sprintf("S%03d", i), "M1"))
	}
	rep := New(store, BatchSizes{}, zerolog.Nop()).Reconcile(ctx, Input{
		Meetings: []database.Meeting{{IssueID: "M1"}},
		Speeches: speeches,
	})

	if rep.Speeches.Inserted != 450 {
		t.Errorf("expected 450 speeches, got %+v", rep.Speeches)
	}
	if len(store.speechCalls) != 3 || store.speechCalls[0] != 200 || store.speechCalls[2] != 50 {
		t.Errorf("expected chunks of 200/200/50, got %v", store.speechCalls)
	}
}

func TestCancelledContextStopsBetweenChunks(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rep := New(db, BatchSizes{}, zerolog.Nop()).Reconcile(ctx, Input{
		Meetings: []database.Meeting{{IssueID: "M1"}},
	})
	if rep.Err() == nil || rep.Meetings.Failed != 1 {
		t.Errorf("expected cancelled run to fail its remaining rows, got %+v", rep.Meetings)
	}
}

func TestReportEntitiesSkipsUntouched(t *testing.T) {
	rep := &Report{Speeches: Counts{Inserted: 2}}
	rep.Merge(&Report{Votes: Counts{Dropped: 1}})
	rows := rep.Entities()
	if len(rows) != 2 || rows[0].Entity != "speeches" || rows[1].Entity != "bill_votes" {
		t.Errorf("unexpected entities %+v", rows)
	}
}

func bill(number int) database.Bill {
	return database.Bill{
		House: database.HouseOfRepresentatives, SubmitSession: 217, BillType: "衆法", BillNumber: number, BillName: "法案",
	}
}

func vote(b database.Bill, party string) normalize.VoteDraft {
	return normalize.VoteDraft{
		Bill: b.Key(), Line: 2, PartyName: party, Vote: database.VoteFor, Chamber: database.HouseOfRepresentatives,
	}
}

func TestVoteForUnresolvedBillIsDropped(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rep := New(db, BatchSizes{}, zerolog.Nop()).Reconcile(ctx, Input{
		Bills: []normalize.BillDraft{{Bill: bill(1), Line: 2}},
		Votes: []normalize.VoteDraft{vote(bill(1), "A党"), vote(bill(99), "B党")},
	})

	if err := rep.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Votes.Dropped != 1 || rep.Votes.Inserted != 1 {
		t.Errorf("expected 1 dropped and 1 inserted vote, got %+v", rep.Votes)
	}
	stats, _ := db.GetStats(ctx)
	if stats.Votes != 1 {
		t.Errorf("expected only the resolved vote to be stored, got %d", stats.Votes)
	}
	if b, _ := db.GetBill(ctx, bill(99).Key()); b != nil {
		t.Error("expected no bill to be created for the unresolved key")
	}
}

// billFailStore fails every bill insert.
type billFailStore struct {
	*database.DB
}

func (billFailStore) InsertBills(context.Context, []database.Bill) (int, error) {
	return 0, errors.New("store unavailable")
}

func TestVotesOfFailedBillChunkAreDropped(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	rep := New(billFailStore{DB: db}, BatchSizes{}, zerolog.Nop()).Reconcile(ctx, Input{
		Bills: []normalize.BillDraft{{Bill: bill(1), Line: 2}},
		Votes: []normalize.VoteDraft{vote(bill(1), "A党"), vote(bill(1), "B党")},
	})

	if rep.Err() == nil {
		t.Fatal("expected the report to carry the bill failure")
	}
	if rep.Bills.Failed != 1 {
		t.Errorf("expected 1 failed bill, got %+v", rep.Bills)
	}
	if rep.Votes.Dropped != 2 || rep.Votes.Inserted != 0 {
		t.Errorf("expected both votes dropped, got %+v", rep.Votes)
	}
	stats, _ := db.GetStats(ctx)
	if stats.Bills != 0 || stats.Votes != 0 {
		t.Errorf("expected nothing written, got %d bills and %d votes", stats.Bills, stats.Votes)
	}
}
