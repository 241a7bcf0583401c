package normalize

import "strings"

// column locates one logical field in a CSV header whose exact wording
// differs between chambers and between yearly exports. Headers are compared
// after width folding.
type column struct {
	exact    []string
	contains []string
	exclude  []string
}

func (c column) excluded(h string) bool {
	for _, x := range c.exclude {
		if strings.Contains(h, x) {
			return true
		}
	}
	return false
}

func (c column) matches(h string) bool {
	if c.excluded(h) {
		return false
	}
	for _, sub := range c.contains {
		if strings.Contains(h, sub) {
			return true
		}
	}
	return false
}

// find returns the header to read the field from. Exact names win over
// substring matches. Among substring matches the first header naming
// chamber wins, then the first match in header order.
func (c column) find(headers []string, chamber string) (string, bool) {
	for _, want := range c.exact {
		for _, h := range headers {
			if fold(h) == want {
				return h, true
			}
		}
	}

	first := ""
	for _, h := range headers {
		f := fold(h)
		if !c.matches(f) {
			continue
		}
		if chamber != "" && strings.Contains(f, chamber) {
			return h, true
		}
		if first == "" {
			first = h
		}
	}
	return first, first != ""
}

// findAll returns every header matching the substring rule, in header order.
func (c column) findAll(headers []string) []string {
	var out []string
	for _, h := range headers {
		if c.matches(fold(h)) {
			out = append(out, h)
		}
	}
	return out
}

// billSchema lists the bill CSV fields and how to find them.
var billSchema = struct {
	session, submitSession, billType, number, name, caption, status column
	proposer, proposerParty, initiator, proposerKind                column
	dateResult, committee, dateSubmitted, lawNumber, progressURL    column
	plenaryResult, otherPlenaryResult, committeeResult              column
	votesFor, votesAgainst                                          column
}{
	session:       column{exact: []string{"掲載回次"}, contains: []string{"審議回次"}},
	submitSession: column{exact: []string{"提出回次"}, contains: []string{"提出回次"}},
	billType:      column{exact: []string{"議案種類", "種類"}, contains: []string{"議案種類"}},
	number:        column{exact: []string{"番号", "議案番号"}, contains: []string{"提出番号"}},
	name:          column{exact: []string{"議案件名", "件名"}, contains: []string{"件名"}},
	caption:       column{exact: []string{"キャプション"}},
	status:        column{exact: []string{"審議状況"}, contains: []string{"審議状況"}},
	proposer: column{
		exact:    []string{"議案提出者"},
		contains: []string{"提出者"},
		exclude:  []string{"会派", "区分"},
	},
	proposerParty: column{exact: []string{"議案提出会派"}, contains: []string{"提出会派"}},
	initiator:     column{contains: []string{"発議者"}},
	proposerKind:  column{contains: []string{"提出者区分"}},
	dateResult:    column{contains: []string{"審議終了", "審議結果"}},
	committee:     column{contains: []string{"付託"}, exclude: []string{"予備"}},
	dateSubmitted: column{contains: []string{"受理年月日", "提出日"}, exclude: []string{"予備"}},
	lawNumber:     column{contains: []string{"法律番号"}},
	progressURL: column{
		exact:    []string{"経過情報URL", "議案URL"},
		contains: []string{"URL"},
		exclude:  []string{"本文"},
	},
	plenaryResult:      column{exact: []string{"参議院本会議経過情報 - 議決"}},
	otherPlenaryResult: column{exact: []string{"衆議院本会議経過情報 - 議決"}},
	committeeResult:    column{contains: []string{"委員会等経過情報 - 議決"}},
	votesFor:           column{contains: []string{"賛成会派"}},
	votesAgainst:       column{contains: []string{"反対会派"}},
}
