// Package link attaches legislator references to speeches stored without
// one. It only ever fills a missing reference, so repeated runs converge.
package link

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

// Store is what the linker reads and writes.
type Store interface {
	UnlinkedSpeeches(ctx context.Context, afterID int64, limit int) ([]database.Speech, error)
	LegislatorIDs(ctx context.Context) (map[string]int64, error)
	LinkSpeech(ctx context.Context, speechID, legislatorID int64) (bool, error)
}

// Result holds the results of a link pass.
type Result struct {
	Scanned   int
	Linked    int
	Unmatched int
	Ambiguous int
}

// Linker matches unlinked speeches to legislators by speaker name.
type Linker struct {
	store    Store
	pageSize int
	maxPages int
	log      zerolog.Logger
}

// New creates a linker that scans at most maxPages pages of pageSize
// speeches per run.
func New(store Store, pageSize, maxPages int, logger zerolog.Logger) *Linker {
	if pageSize <= 0 {
		pageSize = 1000
	}
	if maxPages <= 0 {
		maxPages = 1
	}
	return &Linker{store: store, pageSize: pageSize, maxPages: maxPages, log: logger}
}

// Run scans unlinked speeches page by page (keyset on id, so unmatched
// rows never starve later ones) and links those whose speaker resolves to
// exactly one legislator.
func (l *Linker) Run(ctx context.Context) (Result, error) {
	var res Result

	ids, err := l.store.LegislatorIDs(ctx)
	if err != nil {
		return res, err
	}
	idx := newNameIndex(ids)

	var after int64
	for page := 0; page < l.maxPages; page++ {
		speeches, err := l.store.UnlinkedSpeeches(ctx, after, l.pageSize)
		if err != nil {
			return res, err
		}
		for _, s := range speeches {
			after = s.ID
			res.Scanned++
			if s.SpeakerName == nil {
				res.Unmatched++
				continue
			}
			id, ok, ambiguous := idx.lookup(*s.SpeakerName)
			if ambiguous {
				res.Ambiguous++
				continue
			}
			if !ok {
				res.Unmatched++
				continue
			}
			changed, err := l.store.LinkSpeech(ctx, s.ID, id)
			if err != nil {
				return res, err
			}
			if changed {
				res.Linked++
			}
		}
		if len(speeches) < l.pageSize {
			break
		}
	}

	l.log.Info().Int("scanned", res.Scanned).Int("linked", res.Linked).
		Int("unmatched", res.Unmatched).Int("ambiguous", res.Ambiguous).Msg("link complete")
	return res, nil
}

// nameIndex resolves a speaker name exactly first, then with all spaces
// removed, since rosters write 「山田 太郎」 where minutes write 「山田太郎」.
type nameIndex struct {
	exact   map[string]int64
	compact map[string][]int64
}

func newNameIndex(ids map[string]int64) *nameIndex {
	idx := &nameIndex{exact: ids, compact: make(map[string][]int64, len(ids))}
	for name, id := range ids {
		k := compactName(name)
		idx.compact[k] = append(idx.compact[k], id)
	}
	return idx
}

func (n *nameIndex) lookup(name string) (id int64, ok, ambiguous bool) {
	if id, ok := n.exact[name]; ok {
		return id, true, false
	}
	matches := n.compact[compactName(name)]
	switch len(matches) {
	case 0:
		return 0, false, false
	case 1:
		return matches[0], true, false
	}
	return 0, false, true
}

func compactName(name string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(name, "　", " ")), "")
}
