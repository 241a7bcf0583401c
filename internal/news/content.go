package news

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"
	"github.com/rs/zerolog"

	"github.com/TobiSchelling/kokkaisync/internal/database"
)

// minContentLength is the shortest extracted text worth storing.
const minContentLength = 100

// ContentStore is what the content fetcher reads and updates.
type ContentStore interface {
	GetNewsNeedingFetch(ctx context.Context, limit int) ([]database.NewsArticle, error)
	UpdateNewsContent(ctx context.Context, articleID int64, content string) error
	MarkNewsFetchAttempted(ctx context.Context, articleID int64) error
}

// FetchResult holds the results of a content fetch run.
type FetchResult struct {
	Fetched int
	Failed  int
}

// ContentFetcher fetches full article text via HTTP + readability extraction.
type ContentFetcher struct {
	store  ContentStore
	client *http.Client
	log    zerolog.Logger
}

// NewContentFetcher creates a new content fetcher.
func NewContentFetcher(store ContentStore, timeout time.Duration, logger zerolog.Logger) *ContentFetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &ContentFetcher{store: store, client: newHTTPClient(timeout), log: logger}
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
}

// FetchMissingContent fetches text for up to limit articles stored without
// content. After an HTTP error from a domain, its remaining articles are
// marked attempted without a request.
func (f *ContentFetcher) FetchMissingContent(ctx context.Context, limit int) (*FetchResult, error) {
	articles, err := f.store.GetNewsNeedingFetch(ctx, limit)
	if err != nil {
		return nil, err
	}
	result := &FetchResult{}
	if len(articles) == 0 {
		f.log.Debug().Msg("no articles need content fetching")
		return result, nil
	}

	failedDomains := make(map[string]struct{})
	for _, article := range articles {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		domain := ""
		if u, err := url.Parse(article.URL); err == nil {
			domain = strings.ToLower(u.Host)
		}

		if _, failed := failedDomains[domain]; failed {
			f.store.MarkNewsFetchAttempted(ctx, article.ID)
			result.Failed++
			continue
		}

		content, httpErr := f.fetchArticleContent(ctx, article.URL)
		if httpErr != nil {
			f.store.MarkNewsFetchAttempted(ctx, article.ID)
			result.Failed++
			if domain != "" {
				failedDomains[domain] = struct{}{}
			}
			f.log.Warn().Str("url", article.URL).Str("domain", domain).Err(httpErr).Msg("skipping remaining articles from domain")
			continue
		}

		if content == "" {
			f.store.MarkNewsFetchAttempted(ctx, article.ID)
			result.Failed++
			f.log.Debug().Str("url", article.URL).Msg("no extractable content")
			continue
		}
		if err := f.store.UpdateNewsContent(ctx, article.ID, content); err != nil {
			return result, err
		}
		result.Fetched++
	}

	f.log.Info().Int("fetched", result.Fetched).Int("failed", result.Failed).Msg("content fetch complete")
	return result, nil
}

// fetchArticleContent returns extracted text, or "" when the page has none.
// Only HTTP status failures are returned as errors.
func (f *ContentFetcher) fetchArticleContent(ctx context.Context, articleURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, articleURL, nil)
	if err != nil {
		return "", nil
	}
	req.Header.Set("User-Agent", "kokkaisync/1.0 (news collector)")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return "", &httpError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	parsedURL, _ := url.Parse(articleURL)
	article, err := readability.FromReader(bytes.NewReader(body), parsedURL)
	if err != nil {
		return "", nil
	}

	text := strings.TrimSpace(article.TextContent)
	if len([]rune(text)) > minContentLength {
		return text, nil
	}
	return "", nil
}

type httpError struct {
	code int
}

func (e *httpError) Error() string {
	return http.StatusText(e.code)
}
