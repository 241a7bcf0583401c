// Package dedupe collapses entity drafts that share a natural key into a
// single survivor per key. Each entity has its own survivor rule.
package dedupe

import (
	"github.com/TobiSchelling/kokkaisync/internal/database"
	"github.com/TobiSchelling/kokkaisync/internal/normalize"
)

// Set holds one draft per natural key, in first-seen key order.
type Set[K comparable, T any] struct {
	keys  []K
	items map[K]T
}

// Reduce folds drafts into a Set. replace decides whether candidate
// supersedes the current survivor for the same key.
func Reduce[K comparable, T any](drafts []T, key func(T) K, replace func(current, candidate T) bool) *Set[K, T] {
	s := &Set[K, T]{items: make(map[K]T, len(drafts))}
	for _, d := range drafts {
		k := key(d)
		cur, ok := s.items[k]
		if !ok {
			s.keys = append(s.keys, k)
			s.items[k] = d
			continue
		}
		if replace(cur, d) {
			s.items[k] = d
		}
	}
	return s
}

// Len returns the number of distinct keys.
func (s *Set[K, T]) Len() int { return len(s.keys) }

// Keys returns the natural keys in first-seen order.
func (s *Set[K, T]) Keys() []K { return s.keys }

// Get returns the survivor for a key.
func (s *Set[K, T]) Get(k K) (T, bool) {
	v, ok := s.items[k]
	return v, ok
}

// Values returns the survivors in key order.
func (s *Set[K, T]) Values() []T {
	out := make([]T, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.items[k]
	}
	return out
}

func lastWins[T any](_, _ T) bool { return true }

// Meetings keeps the last meeting seen per issue id.
func Meetings(drafts []database.Meeting) *Set[string, database.Meeting] {
	return Reduce(drafts, func(m database.Meeting) string { return m.IssueID }, lastWins[database.Meeting])
}

// Speeches keeps the last speech seen per speech id.
func Speeches(drafts []normalize.SpeechDraft) *Set[string, normalize.SpeechDraft] {
	return Reduce(drafts, func(s normalize.SpeechDraft) string { return s.Speech.SpeechID }, lastWins[normalize.SpeechDraft])
}

// Legislators keeps the draft with the strictly greater last_seen per name;
// on a tie the first one seen stays.
func Legislators(drafts []database.Legislator) *Set[string, database.Legislator] {
	return Reduce(drafts,
		func(l database.Legislator) string { return l.Name },
		func(cur, cand database.Legislator) bool { return cand.LastSeen > cur.LastSeen },
	)
}

// Bills keeps, per natural key, the row with the highest listed session.
// Ties go to the later row, and a row with an unknown session counts as 0.
func Bills(drafts []normalize.BillDraft) *Set[database.BillKey, normalize.BillDraft] {
	return Reduce(drafts,
		func(b normalize.BillDraft) database.BillKey { return b.Bill.Key() },
		func(cur, cand normalize.BillDraft) bool {
			return sessionOf(cand.Bill) >= sessionOf(cur.Bill)
		},
	)
}

// VoteKey is the natural key of a vote before its bill id is known.
type VoteKey struct {
	Bill      database.BillKey
	PartyName string
	Chamber   string
}

// Votes keeps only votes read from each bill's surviving row, then the
// last vote per (bill, party, chamber).
func Votes(drafts []normalize.VoteDraft, bills *Set[database.BillKey, normalize.BillDraft]) *Set[VoteKey, normalize.VoteDraft] {
	kept := make([]normalize.VoteDraft, 0, len(drafts))
	for _, v := range drafts {
		b, ok := bills.Get(v.Bill)
		if !ok || b.Line != v.Line {
			continue
		}
		kept = append(kept, v)
	}
	return Reduce(kept,
		func(v normalize.VoteDraft) VoteKey {
			return VoteKey{Bill: v.Bill, PartyName: v.PartyName, Chamber: v.Chamber}
		},
		lastWins[normalize.VoteDraft],
	)
}

func sessionOf(b database.Bill) int {
	if b.Session == nil {
		return 0
	}
	return *b.Session
}
