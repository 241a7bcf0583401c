package normalize

import (
	"fmt"
	"strings"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

func normalizeBill(rec SourceRecord, kind SourceKind) (Drafts, []Diagnostic) {
	var d Drafts
	var diags []Diagnostic
	headers := rec.columns()
	chamber := kind.Chamber()
	s := billSchema

	field := func(c column) string {
		h, ok := c.find(headers, chamber)
		if !ok {
			return ""
		}
		return rec.get(h)
	}
	number := func(name string, c column) *int {
		raw := field(c)
		n, ok := parseInt(raw)
		if !ok {
			diags = append(diags, Diagnostic{
				Kind: kind, Line: rec.Line,
				Reason: fmt.Sprintf("%s is not a number: %q", name, raw),
			})
		}
		return n
	}
	skip := func(reason string) (Drafts, []Diagnostic) {
		return Drafts{}, append(diags, Diagnostic{Kind: kind, Line: rec.Line, Skipped: true, Reason: reason})
	}

	rawType := fold(field(s.billType))
	if strings.Contains(rawType, "(表)") {
		return skip("tabulation row")
	}
	name := field(s.name)
	if name == "" {
		return skip("missing bill name")
	}

	billType := rawType
	if kind == SangiinBills {
		billType = councillorsBillType(rawType)
	}

	session := number("session", s.session)
	submitSession := number("submit session", s.submitSession)
	billNumber := number("bill number", s.number)

	datePassed, result := resultOf(field(s.dateResult))

	status := field(s.status)
	if status == "" && kind == SangiinBills {
		status = councillorsStatus(field(s.plenaryResult), field(s.otherPlenaryResult), field(s.committeeResult))
	}

	proposer := field(s.proposer)
	if proposer == "" {
		proposer = firstNonEmpty(field(s.initiator), field(s.proposerKind))
	}
	if proposer == "" && billType == "閣法" {
		proposer = "内閣"
	}

	bill := database.Bill{
		House:         chamber,
		SubmitSession: valueOrZero(submitSession),
		BillType:      billType,
		BillNumber:    valueOrZero(billNumber),
		Session:       session,
		BillName:      name,
		Caption:       optional(field(s.caption)),
		Status:        optional(status),
		Proposer:      optional(proposer),
		ProposerParty: optional(fold(field(s.proposerParty))),
		Committee:     optional(committeeOf(field(s.committee))),
		DateSubmitted: optional(fold(field(s.dateSubmitted))),
		DatePassed:    optional(datePassed),
		Result:        optional(result),
		LawNumber:     optional(field(s.lawNumber)),
		ProgressURL:   optional(field(s.progressURL)),
	}
	d.Bills = append(d.Bills, BillDraft{Bill: bill, Line: rec.Line})

	key := bill.Key()
	addVotes := func(c column, direction string) {
		for _, h := range c.findAll(headers) {
			voteChamber := chamberNamedIn(fold(h), chamber)
			for _, party := range splitList(rec.get(h)) {
				d.Votes = append(d.Votes, VoteDraft{
					Bill:      key,
					Line:      rec.Line,
					PartyName: party,
					Vote:      direction,
					Chamber:   voteChamber,
				})
			}
		}
	}
	addVotes(s.votesFor, database.VoteFor)
	addVotes(s.votesAgainst, database.VoteAgainst)

	return d, diags
}

// chamberNamedIn returns the chamber a header refers to, or fallback.
func chamberNamedIn(header, fallback string) string {
	switch {
	case strings.Contains(header, database.HouseOfRepresentatives):
		return database.HouseOfRepresentatives
	case strings.Contains(header, database.HouseOfCouncillors):
		return database.HouseOfCouncillors
	}
	return fallback
}

// councillorsBillType maps the House of Councillors' descriptive kind
// (内閣提出法律案, 衆法, 予算...) onto the short types used for
// Representatives' bills.
func councillorsBillType(kind string) string {
	switch {
	case kind == "":
		return ""
	case strings.Contains(kind, "内閣提出"):
		return "閣法"
	case strings.Contains(kind, "衆法"):
		return "衆法"
	case strings.Contains(kind, "参法"):
		return "参法"
	case strings.HasPrefix(kind, "予算"):
		return "予算"
	case strings.HasPrefix(kind, "条約"):
		return "条約"
	case strings.HasPrefix(kind, "決議案"), strings.Contains(kind, "憲法"):
		return "決議"
	case strings.Contains(kind, "承認"), strings.Contains(kind, "承諾"), strings.Contains(kind, "人事"):
		return "承認"
	case strings.Contains(kind, "決算"), strings.Contains(kind, "計算書"),
		strings.Contains(kind, "国有財産"), strings.Contains(kind, "NHK"):
		return "決算"
	}
	return "その他"
}

// councillorsStatus derives a status from the plenary and committee
// outcomes when the export has no status column.
func councillorsStatus(plenary, otherPlenary, committee string) string {
	switch plenary {
	case "可決", "修正":
		if otherPlenary == "可決" || otherPlenary == "修正" || otherPlenary == "" {
			return "成立"
		}
	case "否決", "不同意", "不承諾", "不承認", "是認しない":
		return "否決"
	case "同意", "承認", "承諾", "是認", "事後承認":
		return "成立"
	}
	switch {
	case strings.Contains(committee, "継続"), strings.Contains(plenary, "継続"):
		return "審議中"
	case plenary == "" && committee == "":
		return "未了"
	}
	return "審議中"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func valueOrZero(n *int) int {
	if n == nil {
		return 0
	}
	return *n
}
