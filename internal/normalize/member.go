package normalize

import (
	"github.com/TobiSchelling/kokkaisync/internal/database"
)

// memberSchema lists the roster CSV fields and how to find them.
var memberSchema = struct {
	name, party, position column
}{
	name:     column{exact: []string{"議員氏名", "氏名"}, contains: []string{"氏名"}, exclude: []string{"読み", "よみ"}},
	party:    column{exact: []string{"会派"}, contains: []string{"会派"}, exclude: []string{"会派名"}},
	position: column{exact: []string{"役職等", "役職"}, contains: []string{"役職"}},
}

// partySchema lists the group list CSV fields.
var partySchema = struct {
	abbrev, full column
}{
	abbrev: column{exact: []string{"略称"}, contains: []string{"略称"}},
	full:   column{exact: []string{"会派名"}, contains: []string{"会派名", "正式"}},
}

// Roster converts member roster rows into legislator drafts.
type Roster struct {
	// Parties maps a parliamentary group abbreviation to its full name.
	// Unknown abbreviations are kept as written.
	Parties map[string]string
	// AsOf is the date (YYYY-MM-DD) the roster describes. It becomes the
	// drafts' last_seen.
	AsOf string
}

// PartyNames reads a group list (略称, 会派名) into an abbreviation map.
// Rows missing either value are ignored.
func PartyNames(recs []SourceRecord) map[string]string {
	out := make(map[string]string, len(recs))
	for _, rec := range recs {
		headers := rec.columns()
		abbrevCol, ok1 := partySchema.abbrev.find(headers, "")
		fullCol, ok2 := partySchema.full.find(headers, "")
		if !ok1 || !ok2 {
			continue
		}
		abbrev, full := rec.get(abbrevCol), rec.get(fullCol)
		if abbrev != "" && full != "" {
			out[abbrev] = full
		}
	}
	return out
}

// Normalize converts one roster row. A row without a name is skipped.
func (ro Roster) Normalize(rec SourceRecord) (Drafts, []Diagnostic) {
	headers := rec.columns()
	field := func(c column) string {
		h, ok := c.find(headers, "")
		if !ok {
			return ""
		}
		return rec.get(h)
	}

	name := NormalizeName(field(memberSchema.name))
	if name == "" {
		return Drafts{}, []Diagnostic{{Kind: CouncillorsRoster, Line: rec.Line, Skipped: true, Reason: "missing member name"}}
	}

	party := field(memberSchema.party)
	if full, ok := ro.Parties[party]; ok {
		party = full
	}

	return Drafts{Legislators: []database.Legislator{{
		Name:            name,
		CurrentParty:    optional(party),
		CurrentPosition: optional(field(memberSchema.position)),
		House:           optional(CouncillorsRoster.Chamber()),
		IsMember:        true,
		LastSeen:        ro.AsOf,
	}}}, nil
}

// NormalizeAll normalizes a roster and returns the merged drafts and
// diagnostics, plus the number of skipped rows.
func (ro Roster) NormalizeAll(recs []SourceRecord) (Drafts, []Diagnostic, int) {
	return normalizeAll(recs, ro.Normalize)
}
