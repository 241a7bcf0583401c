package database

import (
	"context"
	"database/sql"
)

// InsertNewsArticle inserts an article unless its URL is already stored.
// It reports whether a row was inserted.
func (db *DB) InsertNewsArticle(ctx context.Context, a NewsArticle) (bool, error) {
	n, err := db.insertIgnore(ctx, "news_articles",
		[]string{"url", "title", "source", "published_date", "content", "legislator_id"},
		[]string{"url"},
		[][]any{{a.URL, a.Title, a.Source, a.PublishedDate, a.Content, a.LegislatorID}},
	)
	return n > 0, err
}

// GetNewsNeedingFetch returns articles with empty content that haven't been fetched.
func (db *DB) GetNewsNeedingFetch(ctx context.Context, limit int) ([]NewsArticle, error) {
	rows, err := db.query(ctx,
		`SELECT id, url, title, source, published_date, content, content_fetched, legislator_id, collected_at
		FROM news_articles WHERE (content IS NULL OR content = '') AND content_fetched = FALSE
		ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNewsArticles(rows)
}

// NewsForLegislator returns a legislator's articles, newest first.
func (db *DB) NewsForLegislator(ctx context.Context, legislatorID int64) ([]NewsArticle, error) {
	rows, err := db.query(ctx,
		`SELECT id, url, title, source, published_date, content, content_fetched, legislator_id, collected_at
		FROM news_articles WHERE legislator_id = ? ORDER BY published_date DESC, id DESC`, legislatorID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNewsArticles(rows)
}

// UpdateNewsContent stores fetched article text.
func (db *DB) UpdateNewsContent(ctx context.Context, articleID int64, content string) error {
	_, err := db.exec(ctx,
		"UPDATE news_articles SET content = ?, content_fetched = TRUE WHERE id = ?",
		content, articleID,
	)
	return err
}

// MarkNewsFetchAttempted marks that we tried to fetch content.
func (db *DB) MarkNewsFetchAttempted(ctx context.Context, articleID int64) error {
	_, err := db.exec(ctx, "UPDATE news_articles SET content_fetched = TRUE WHERE id = ?", articleID)
	return err
}

// GetNewsByURL returns an article by URL, or nil if it is not stored.
func (db *DB) GetNewsByURL(ctx context.Context, url string) (*NewsArticle, error) {
	rows, err := db.query(ctx,
		`SELECT id, url, title, source, published_date, content, content_fetched, legislator_id, collected_at
		FROM news_articles WHERE url = ?`, url,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	articles, err := scanNewsArticles(rows)
	if err != nil {
		return nil, err
	}
	if len(articles) == 0 {
		return nil, nil
	}
	return &articles[0], nil
}

func scanNewsArticles(rows *sql.Rows) ([]NewsArticle, error) {
	var articles []NewsArticle
	for rows.Next() {
		var a NewsArticle
		if err := rows.Scan(&a.ID, &a.URL, &a.Title, &a.Source, &a.PublishedDate, &a.Content,
			&a.ContentFetched, &a.LegislatorID, &a.CollectedAt); err != nil {
			return nil, err
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
