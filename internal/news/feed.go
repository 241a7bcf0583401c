package news

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 20

// FeedEntry represents a parsed feed entry.
type FeedEntry struct {
	URL           string
	Title         string
	PublishedDate string // YYYY-MM-DD or empty
	Content       string
	Source        string
}

// FeedConfig represents a single static feed.
type FeedConfig struct {
	URL  string
	Name string
}

// FeedParser parses RSS/Atom feeds.
type FeedParser struct {
	parser *gofeed.Parser
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(timeout time.Duration) *FeedParser {
	p := gofeed.NewParser()
	p.UserAgent = "kokkaisync/1.0 (news collector)"
	if timeout > 0 {
		p.Client = newHTTPClient(timeout)
	}
	return &FeedParser{parser: p}
}

// Parse fetches feedURL and returns up to limit entries. Search feeds
// append " - source" to titles; that suffix becomes the entry source.
func (fp *FeedParser) Parse(ctx context.Context, feedURL, sourceName string, limit int) ([]FeedEntry, error) {
	if limit <= 0 || limit > maxPerFeed {
		limit = maxPerFeed
	}
	if sourceName == "" {
		sourceName = extractSourceName(feedURL)
	}

	feed, err := fp.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, err
	}

	var entries []FeedEntry
	for _, item := range feed.Items {
		if len(entries) >= limit {
			break
		}
		if entry := parseItem(item, sourceName); entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func parseItem(item *gofeed.Item, source string) *FeedEntry {
	itemURL := item.Link
	if itemURL == "" {
		itemURL = item.GUID
	}
	if itemURL == "" {
		return nil
	}

	title, suffix := splitTitleSource(strings.TrimSpace(item.Title))
	if title == "" {
		return nil
	}
	if suffix != "" {
		source = suffix
	}

	var publishedDate string
	if item.PublishedParsed != nil {
		publishedDate = item.PublishedParsed.Format("2006-01-02")
	} else if item.UpdatedParsed != nil {
		publishedDate = item.UpdatedParsed.Format("2006-01-02")
	}

	var content string
	if item.Content != "" {
		content = stripHTML(item.Content)
	} else if item.Description != "" {
		content = stripHTML(item.Description)
	}

	return &FeedEntry{
		URL:           itemURL,
		Title:         title,
		PublishedDate: publishedDate,
		Content:       content,
		Source:        source,
	}
}

// splitTitleSource splits "headline - publisher" at the last separator.
func splitTitleSource(title string) (string, string) {
	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), strings.TrimSpace(title[i+3:])
}

func stripHTML(text string) string {
	var result strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
			result.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			result.WriteRune(r)
		}
	}

	s := strings.NewReplacer(
		"&nbsp;", " ", "&amp;", "&", "&lt;", "<", "&gt;", ">", "&quot;", `"`, "&#39;", "'",
	).Replace(result.String())
	return strings.Join(strings.Fields(s), " ")
}

func extractSourceName(feedURL string) string {
	u, err := url.Parse(feedURL)
	if err != nil || u.Hostname() == "" {
		return feedURL
	}
	host := strings.ToLower(u.Hostname())

	for _, prefix := range []string{"www.", "www3.", "news.", "rss.", "feeds."} {
		host = strings.TrimPrefix(host, prefix)
	}

	parts := strings.Split(host, ".")
	name := host
	if len(parts) >= 2 {
		name = parts[0]
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
