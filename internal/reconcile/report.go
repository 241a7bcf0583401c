package reconcile

import (
	"errors"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

// Counts tallies one entity's outcome. Unchanged rows already existed
// under their natural key; Dropped children had no resolvable parent.
type Counts struct {
	Inserted  int
	Updated   int
	Unchanged int
	Dropped   int
	Failed    int
}

func (c *Counts) add(o Counts) {
	c.Inserted += o.Inserted
	c.Updated += o.Updated
	c.Unchanged += o.Unchanged
	c.Dropped += o.Dropped
	c.Failed += o.Failed
}

// Report is the per-entity outcome of one reconciliation.
type Report struct {
	Meetings    Counts
	Speeches    Counts
	Legislators Counts
	Bills       Counts
	Votes       Counts
	Errs        []error
}

func (r *Report) fail(err error) {
	r.Errs = append(r.Errs, err)
}

// Err joins every chunk failure, or returns nil.
func (r *Report) Err() error {
	return errors.Join(r.Errs...)
}

// Merge adds o's counts and errors to r.
func (r *Report) Merge(o *Report) {
	if o == nil {
		return
	}
	r.Meetings.add(o.Meetings)
	r.Speeches.add(o.Speeches)
	r.Legislators.add(o.Legislators)
	r.Bills.add(o.Bills)
	r.Votes.add(o.Votes)
	r.Errs = append(r.Errs, o.Errs...)
}

// Entities returns the report as run-report rows, skipping untouched
// entities.
func (r *Report) Entities() []database.EntityCounts {
	var out []database.EntityCounts
	for _, e := range []struct {
		name string
		c    Counts
	}{
		{"meetings", r.Meetings},
		{"speeches", r.Speeches},
		{"legislators", r.Legislators},
		{"bills", r.Bills},
		{"bill_votes", r.Votes},
	} {
		if e.c == (Counts{}) {
			continue
		}
		out = append(out, database.EntityCounts{
			Entity:    e.name,
			Inserted:  e.c.Inserted,
			Updated:   e.c.Updated,
			Unchanged: e.c.Unchanged,
			Dropped:   e.c.Dropped,
			Failed:    e.c.Failed,
		})
	}
	return out
}
