// Package normalize turns raw source records into typed entity drafts.
// It is pure: it never touches the store and never fails a whole batch
// because of one bad row.
package normalize

import (
	"sort"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

// SourceKind identifies the shape of a SourceRecord.
type SourceKind int

const (
	// SpeechAPI records come from the Diet speech search API.
	SpeechAPI SourceKind = iota + 1
	// ShugiinBills records are rows of the House of Representatives bill CSV.
	ShugiinBills
	// SangiinBills records are rows of the House of Councillors bill CSV.
	SangiinBills
	// CouncillorsRoster records are rows of the House of Councillors
	// member list.
	CouncillorsRoster
)

func (k SourceKind) String() string {
	switch k {
	case SpeechAPI:
		return "speech-api"
	case ShugiinBills:
		return "shugiin-bills"
	case SangiinBills:
		return "sangiin-bills"
	case CouncillorsRoster:
		return "councillors-roster"
	}
	return "unknown"
}

// Chamber returns the chamber whose data a CSV kind carries.
func (k SourceKind) Chamber() string {
	if k == SangiinBills || k == CouncillorsRoster {
		return database.HouseOfCouncillors
	}
	return database.HouseOfRepresentatives
}

// SourceRecord is one raw record: an API speech object or a CSV row.
type SourceRecord struct {
	Fields  map[string]any
	Columns []string // header order for CSV rows
	Line    int      // position in the source, for diagnostics
}

// columns returns the record's field names in a deterministic order.
func (r SourceRecord) columns() []string {
	if len(r.Columns) > 0 {
		return r.Columns
	}
	cols := make([]string, 0, len(r.Fields))
	for k := range r.Fields {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func (r SourceRecord) get(field string) string {
	return text(r.Fields[field])
}

// SpeechDraft is a speech whose meeting is still referenced by natural key.
type SpeechDraft struct {
	Speech  database.Speech
	IssueID string
}

// BillDraft is a bill together with the source row it came from.
type BillDraft struct {
	Bill database.Bill
	Line int
}

// VoteDraft is a party vote whose bill is still referenced by natural key.
// Line ties it to the bill row it was read from.
type VoteDraft struct {
	Bill      database.BillKey
	Line      int
	PartyName string
	Vote      string
	Chamber   string
}

// Drafts collects every entity draft produced from a batch of records.
type Drafts struct {
	Meetings    []database.Meeting
	Speeches    []SpeechDraft
	Legislators []database.Legislator
	Bills       []BillDraft
	Votes       []VoteDraft
}

// Add appends o's drafts to d.
func (d *Drafts) Add(o Drafts) {
	d.Meetings = append(d.Meetings, o.Meetings...)
	d.Speeches = append(d.Speeches, o.Speeches...)
	d.Legislators = append(d.Legislators, o.Legislators...)
	d.Bills = append(d.Bills, o.Bills...)
	d.Votes = append(d.Votes, o.Votes...)
}

// Diagnostic explains a skipped row or a field that degraded to absent.
type Diagnostic struct {
	Kind    SourceKind
	Line    int
	Skipped bool
	Reason  string
}

// Normalize converts one record into drafts. Malformed numbers become
// absent and are reported; rows that cannot yield an entity are skipped
// with a Skipped diagnostic.
func Normalize(rec SourceRecord, kind SourceKind) (Drafts, []Diagnostic) {
	switch kind {
	case SpeechAPI:
		return normalizeSpeech(rec)
	case ShugiinBills, SangiinBills:
		return normalizeBill(rec, kind)
	case CouncillorsRoster:
		return Roster{}.Normalize(rec)
	}
	return Drafts{}, []Diagnostic{{Kind: kind, Line: rec.Line, Skipped: true, Reason: "unknown source kind"}}
}

// NormalizeAll normalizes a batch and returns the merged drafts and
// diagnostics, plus the number of skipped rows.
func NormalizeAll(recs []SourceRecord, kind SourceKind) (Drafts, []Diagnostic, int) {
	return normalizeAll(recs, func(rec SourceRecord) (Drafts, []Diagnostic) {
		return Normalize(rec, kind)
	})
}

func normalizeAll(recs []SourceRecord, fn func(SourceRecord) (Drafts, []Diagnostic)) (Drafts, []Diagnostic, int) {
	var all Drafts
	var diags []Diagnostic
	skipped := 0
	for _, rec := range recs {
		d, ds := fn(rec)
		all.Add(d)
		for _, diag := range ds {
			if diag.Skipped {
				skipped++
			}
		}
		diags = append(diags, ds...)
	}
	return all, diags, skipped
}
