// Package news collects press coverage of recently active legislators from
// RSS search feeds and optional static feeds.
package news

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/TobiSchelling/kokkaisync/internal/config"
	"github.com/TobiSchelling/kokkaisync/internal/database"
)

// Store is the persistence the news collector needs.
type Store interface {
	RecentMembers(ctx context.Context, limit int) ([]database.Legislator, error)
	InsertNewsArticle(ctx context.Context, a database.NewsArticle) (bool, error)
}

// Result holds the results of a news collection run.
type Result struct {
	Legislators int
	Found       int
	New         int
	Duplicates  int
	FailedFeeds int
}

// Collector searches news per legislator and stores new articles.
type Collector struct {
	store         Store
	parser        *FeedParser
	searchURL     string
	perLegislator int
	legislators   int
	feeds         []FeedConfig
	limiter       *rate.Limiter
	log           zerolog.Logger
}

// NewCollector creates a news collector from the news config section.
func NewCollector(cfg config.News, store Store, logger zerolog.Logger) *Collector {
	limit := rate.Inf
	if cfg.RequestInterval > 0 {
		limit = rate.Every(cfg.RequestInterval)
	}
	feeds := make([]FeedConfig, len(cfg.Feeds))
	for i, f := range cfg.Feeds {
		feeds[i] = FeedConfig{URL: f.URL, Name: f.Name}
	}
	return &Collector{
		store:         store,
		parser:        NewFeedParser(30 * time.Second),
		searchURL:     cfg.SearchURL,
		perLegislator: cfg.PerLegislator,
		legislators:   cfg.Legislators,
		feeds:         feeds,
		limiter:       rate.NewLimiter(limit, 1),
		log:           logger,
	}
}

// SearchURL builds the feed URL for a legislator name query.
func SearchURL(template, name string) string {
	return fmt.Sprintf(template, url.QueryEscape(name))
}

// Collect searches news for the most recently seen members, then reads
// static feeds. A failing feed is logged and skipped; store errors abort.
func (c *Collector) Collect(ctx context.Context) (*Result, error) {
	r := &Result{}

	if c.searchURL != "" && c.legislators > 0 {
		members, err := c.store.RecentMembers(ctx, c.legislators)
		if err != nil {
			return r, err
		}
		r.Legislators = len(members)
		for _, m := range members {
			id := m.ID
			feedURL := SearchURL(c.searchURL, strings.ReplaceAll(m.Name, " ", ""))
			if err := c.collectFeed(ctx, FeedConfig{URL: feedURL, Name: "Google News"}, c.perLegislator, &id, r); err != nil {
				return r, err
			}
		}
	}

	for _, f := range c.feeds {
		if err := c.collectFeed(ctx, f, maxPerFeed, nil, r); err != nil {
			return r, err
		}
	}

	c.log.Info().
		Int("legislators", r.Legislators).
		Int("found", r.Found).
		Int("new", r.New).
		Int("duplicates", r.Duplicates).
		Int("failed_feeds", r.FailedFeeds).
		Msg("news collection complete")
	return r, nil
}

func (c *Collector) collectFeed(ctx context.Context, f FeedConfig, limit int, legislatorID *int64, r *Result) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	entries, err := c.parser.Parse(ctx, f.URL, f.Name, limit)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.FailedFeeds++
		c.log.Warn().Str("feed", f.URL).Err(err).Msg("failed to parse feed")
		return nil
	}
	r.Found += len(entries)

	for _, e := range entries {
		inserted, err := c.store.InsertNewsArticle(ctx, database.NewsArticle{
			URL:           e.URL,
			Title:         e.Title,
			Source:        optional(e.Source),
			PublishedDate: optional(e.PublishedDate),
			Content:       optional(e.Content),
			LegislatorID:  legislatorID,
		})
		if err != nil {
			return fmt.Errorf("storing news article %s: %w", e.URL, err)
		}
		if inserted {
			r.New++
		} else {
			r.Duplicates++
		}
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
