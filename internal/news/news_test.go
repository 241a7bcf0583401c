package news

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"

	"github.com/TobiSchelling/kokkaisync/internal/config"
	"github.com/TobiSchelling/kokkaisync/internal/database"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func rssItems(items ...string) string {
	return `<?xml version="1.0" encoding="UTF-8"?><rss version="2.0"><channel><title>検索</title>` +
		strings.Join(items, "") + `</channel></rss>`
}

func rssItem(title, link, pubDate string) string {
	return fmt.Sprintf(`<item><title>%s</title><link>%s</link><pubDate>%s</pubDate><description>&lt;b&gt;概要&lt;/b&gt;</description></item>`,
		title, link, pubDate)
}

func TestParseItemSplitsSourceFromTitle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, rssItems(
			rssItem("山田議員が質問 - 毎日新聞", "https://example.jp/a", "Fri, 10 Jan 2025 09:00:00 GMT"),
			rssItem("見出しのみ", "https://example.jp/b", ""),
			rssItem("", "https://example.jp/c", ""),
		))
	}))
	defer srv.Close()

	entries, err := NewFeedParser(0).Parse(context.Background(), srv.URL, "Feed", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	e := entries[0]
	if e.Title != "山田議員が質問" || e.Source != "毎日新聞" {
		t.Errorf("expected title and source split, got %q / %q", e.Title, e.Source)
	}
	if e.PublishedDate != "2025-01-10" {
		t.Errorf("expected published date, got %q", e.PublishedDate)
	}
	if e.Content != "概要" {
		t.Errorf("expected stripped description, got %q", e.Content)
	}
	if entries[1].Source != "Feed" {
		t.Errorf("expected feed name as fallback source, got %q", entries[1].Source)
	}
}

func TestParseHonorsLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var items []string
		for i := 0; i < 10; i++ {
			items = append(items, rssItem(fmt.Sprintf("記事%d", i), fmt.Sprintf("https://example.jp/%d", i), ""))
		}
		fmt.Fprint(w, rssItems(items...))
	}))
	defer srv.Close()

	entries, err := NewFeedParser(0).Parse(context.Background(), srv.URL, "", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 5 {
		t.Errorf("expected 5 entries, got %d", len(entries))
	}
}

func TestCollectSearchesRecentMembers(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	db.InsertLegislators(ctx, []database.Legislator{
		{Name: "山田 太郎", IsMember: true, LastSeen: "2025-01-10"},
		{Name: "官房 職員", IsMember: false, LastSeen: "2025-01-10"},
	})

	var queries []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.Query().Get("q"))
		fmt.Fprint(w, rssItems(
			rssItem("山田議員が質問 - 毎日新聞", "https://example.jp/a", ""),
			rssItem("予算案を審議 - NHK", "https://example.jp/b", ""),
		))
	}))
	defer srv.Close()

	cfg := config.News{SearchURL: srv.URL + "/rss?q=%s", PerLegislator: 5, Legislators: 10}
	c := NewCollector(cfg, db, zerolog.Nop())

	res, err := c.Collect(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Legislators != 1 || res.New != 2 {
		t.Errorf("expected 1 legislator and 2 new articles, got %+v", res)
	}
	if len(queries) != 1 || queries[0] != "山田太郎" {
		t.Errorf("expected one query for 山田太郎, got %v", queries)
	}

	a, _ := db.GetNewsByURL(ctx, "https://example.jp/a")
	l, _ := db.GetLegislator(ctx, "山田 太郎")
	if a == nil || a.LegislatorID == nil || *a.LegislatorID != l.ID {
		t.Errorf("expected article linked to legislator, got %+v", a)
	}

	again, err := c.Collect(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.New != 0 || again.Duplicates != 2 {
		t.Errorf("expected duplicates on rerun, got %+v", again)
	}
}

func TestCollectSkipsFailingFeed(t *testing.T) {
	db := openTestDB(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, rssItems(rssItem("国会の動き", "https://example.jp/x", "")))
	}))
	defer srv.Close()

	cfg := config.News{Feeds: []config.Feed{{URL: srv.URL + "/broken"}, {URL: srv.URL + "/ok", Name: "Test"}}}
	res, err := NewCollector(cfg, db, zerolog.Nop()).Collect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FailedFeeds != 1 || res.New != 1 {
		t.Errorf("expected 1 failed feed and 1 article, got %+v", res)
	}
}

func TestSearchURL(t *testing.T) {
	got := SearchURL("https://news.example/rss?q=%s&hl=ja", "山田太郎")
	if !strings.Contains(got, "q=%E5%B1%B1") {
		t.Errorf("expected escaped query, got %q", got)
	}
}

const articleHTML = `<html><head><title>記事</title></head><body><article>
<h1>予算委員会で論戦</h1>
<p>衆議院予算委員会は十日、令和七年度予算案の基本的質疑を行い、各党の議員が政府の経済対策や物価高への対応について質問した。</p>
<p>山田太郎議員は、賃上げの実効性を確保するための具体策を求め、担当大臣は中小企業への支援を拡充する考えを示した。</p>
<p>委員会は来週も審議を続ける予定で、与野党は採決の日程をめぐって協議を重ねている。</p>
</article></body></html>`

func TestFetchMissingContent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	var brokenHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articleHTML)
	}))
	defer srv.Close()
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&brokenHits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer broken.Close()

	db.InsertNewsArticle(ctx, database.NewsArticle{URL: srv.URL + "/a", Title: "A"})
	db.InsertNewsArticle(ctx, database.NewsArticle{URL: broken.URL + "/b", Title: "B"})
	db.InsertNewsArticle(ctx, database.NewsArticle{URL: broken.URL + "/c", Title: "C"})
	db.InsertNewsArticle(ctx, database.NewsArticle{URL: srv.URL + "/d", Title: "D", Content: ptr("既に本文あり")})

	res, err := NewContentFetcher(db, 0, zerolog.Nop()).FetchMissingContent(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Fetched != 1 || res.Failed != 2 {
		t.Errorf("expected 1 fetched and 2 failed, got %+v", res)
	}
	if brokenHits != 1 {
		t.Errorf("expected failing domain to be requested once, got %d", brokenHits)
	}

	a, _ := db.GetNewsByURL(ctx, srv.URL+"/a")
	if a.Content == nil || !strings.Contains(*a.Content, "予算案") || !a.ContentFetched {
		t.Errorf("expected extracted content, got %+v", a)
	}

	left, _ := db.GetNewsNeedingFetch(ctx, 10)
	if len(left) != 0 {
		t.Errorf("expected nothing left to fetch, got %d", len(left))
	}
}
