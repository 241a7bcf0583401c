package reconcile

import (
	"context"
	"fmt"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

func (r *Reconciler) reconcileMeetings(ctx context.Context, in Input, rep *Report) {
	insertChunks(ctx, r, "meetings", in.Meetings, r.sizes.Meetings, r.store.InsertMeetings, &rep.Meetings, rep)

	// Children start only after every parent chunk has been attempted.
	keys := make([]string, 0, len(in.Meetings))
	seen := make(map[string]bool, len(in.Meetings))
	for _, m := range in.Meetings {
		if !seen[m.IssueID] {
			seen[m.IssueID] = true
			keys = append(keys, m.IssueID)
		}
	}
	for _, s := range in.Speeches {
		if !seen[s.IssueID] {
			seen[s.IssueID] = true
			keys = append(keys, s.IssueID)
		}
	}
	ids := resolve(ctx, r, "meetings", keys, r.store.MeetingIDs, rep)

	speeches := make([]database.Speech, 0, len(in.Speeches))
	for _, d := range in.Speeches {
		id, ok := ids[d.IssueID]
		if !ok {
			rep.Speeches.Dropped++
			r.log.Warn().Str("speech_id", d.Speech.SpeechID).Str("issue_id", d.IssueID).
				Msg("dropping speech with unresolved meeting")
			continue
		}
		s := d.Speech
		s.MeetingID = id
		speeches = append(speeches, s)
	}
	insertChunks(ctx, r, "speeches", speeches, r.sizes.Speeches, r.store.InsertSpeeches, &rep.Speeches, rep)
}

func (r *Reconciler) reconcileBills(ctx context.Context, in Input, rep *Report) {
	bills := make([]database.Bill, len(in.Bills))
	for i, d := range in.Bills {
		bills[i] = d.Bill
	}
	insertChunks(ctx, r, "bills", bills, r.sizes.Bills, r.store.InsertBills, &rep.Bills, rep)

	keys := make([]database.BillKey, 0, len(bills))
	seen := make(map[database.BillKey]bool, len(bills))
	for _, b := range bills {
		if k := b.Key(); !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for _, v := range in.Votes {
		if !seen[v.Bill] {
			seen[v.Bill] = true
			keys = append(keys, v.Bill)
		}
	}
	ids := resolve(ctx, r, "bills", keys, r.store.BillIDs, rep)

	votes := make([]database.Vote, 0, len(in.Votes))
	for _, d := range in.Votes {
		id, ok := ids[d.Bill]
		if !ok {
			rep.Votes.Dropped++
			r.log.Warn().Str("house", d.Bill.House).Int("submit_session", d.Bill.SubmitSession).
				Str("bill_type", d.Bill.BillType).Int("bill_number", d.Bill.BillNumber).
				Str("party", d.PartyName).Msg("dropping vote with unresolved bill")
			continue
		}
		votes = append(votes, database.Vote{
			BillID:    id,
			PartyName: d.PartyName,
			Vote:      d.Vote,
			Chamber:   d.Chamber,
		})
	}
	insertChunks(ctx, r, "bill_votes", votes, r.sizes.Votes, r.store.InsertVotes, &rep.Votes, rep)
}

// resolve re-reads surrogate ids for keys in chunks. A failed chunk leaves
// its keys unresolved so their children are dropped rather than guessed.
func resolve[K comparable](ctx context.Context, r *Reconciler, entity string, keys []K,
	lookup func(context.Context, []K) (map[K]int64, error), rep *Report,
) map[K]int64 {
	ids := make(map[K]int64, len(keys))
	for _, c := range chunks(len(keys), r.sizes.Resolve) {
		if err := ctx.Err(); err != nil {
			rep.fail(fmt.Errorf("resolving %s: %w", entity, err))
			break
		}
		found, err := lookup(ctx, keys[c[0]:c[1]])
		if err != nil {
			rep.fail(fmt.Errorf("resolving %s keys %d-%d: %w", entity, c[0], c[1]-1, err))
			r.log.Error().Err(err).Str("entity", entity).Msg("identity re-read failed")
			continue
		}
		for k, id := range found {
			ids[k] = id
		}
	}
	return ids
}

func (r *Reconciler) reconcileLegislators(ctx context.Context, legislators []database.Legislator, rep *Report) {
	c := &rep.Legislators
	for _, ch := range chunks(len(legislators), r.sizes.Legislators) {
		batch := legislators[ch[0]:ch[1]]
		if err := ctx.Err(); err != nil {
			c.Failed += len(legislators) - ch[0]
			rep.fail(fmt.Errorf("legislators: %w", err))
			return
		}

		names := make([]string, len(batch))
		for i, l := range batch {
			names[i] = l.Name
		}
		existing, err := r.store.LegislatorsByName(ctx, names)
		if err != nil {
			c.Failed += len(batch)
			rep.fail(fmt.Errorf("legislators rows %d-%d: %w", ch[0], ch[1]-1, err))
			continue
		}

		var fresh []database.Legislator
		for _, l := range batch {
			stored, ok := existing[l.Name]
			if !ok {
				fresh = append(fresh, l)
				continue
			}
			if l.LastSeen <= stored.LastSeen {
				c.Unchanged++
				continue
			}
			changed, err := r.store.AdvanceLegislator(ctx, l)
			if err != nil {
				c.Failed++
				rep.fail(err)
				continue
			}
			if changed {
				c.Updated++
			} else {
				c.Unchanged++
			}
		}

		if len(fresh) == 0 {
			continue
		}
		n, err := r.store.InsertLegislators(ctx, fresh)
		if err != nil {
			c.Failed += len(fresh)
			rep.fail(fmt.Errorf("inserting legislators: %w", err))
			continue
		}
		c.Inserted += n
		c.Unchanged += len(fresh) - n
	}
}
