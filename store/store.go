// Package store is the durable side of duplicate suppression: a
// SQLite database holding the watched feed list and every item that
// has already been notified. The uniqueness constraint on
// (feed, fingerprint) is the dedup gate; everything else is
// bookkeeping around it.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"

	"rssd/models"
)

// Store handles all database operations with a shared connection pool.
type Store struct {
	db *sql.DB
}

func Open(database string) (*Store, error) {
	db, err := connection(database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertIfAbsent records a (feed, fingerprint) pair and reports
// whether this call performed the insert. This is the only dedup
// decision path: concurrent callers racing on the same pair serialize
// at the primary key and exactly one of them sees true.
func (s *Store) InsertIfAbsent(ctx context.Context, feed, fingerprint string, item models.Item) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := time.Now().UTC().Format(time.RFC3339Nano)

	var published string
	if !item.Published.IsZero() {
		published = item.Published.UTC().Format(time.RFC3339)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO seen_items (feed, fingerprint, title, link, published_at, first_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (feed, fingerprint) DO NOTHING`,
		feed,
		fingerprint,
		item.Title,
		item.Link,
		published,
		now,
	)
	if err != nil {
		return false, fmt.Errorf("insert error: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert error: %w", err)
	}

	return rows == 1, nil
}

// Contains reports whether a pair has been recorded. Diagnostics
// only; the dedup decision always goes through InsertIfAbsent.
func (s *Store) Contains(ctx context.Context, feed, fingerprint string) (bool, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("1").From("seen_items")
	sb.Where(sb.Equal("feed", feed), sb.Equal("fingerprint", fingerprint))
	sb.Limit(1)

	query, args := sb.Build()
	var one int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query error: %w", err)
	}
	return true, nil
}

// MarkNotified stamps a seen item after the dispatcher confirmed the
// notification went out. Best effort: a missed stamp never causes a
// re-notification.
func (s *Store) MarkNotified(ctx context.Context, feed, fingerprint string) error {
	ub := sqlbuilder.NewUpdateBuilder()
	ub.Update("seen_items")
	ub.Set(ub.Assign("notified_at", time.Now().UTC().Format(time.RFC3339)))
	ub.Where(ub.Equal("feed", feed), ub.Equal("fingerprint", fingerprint))

	query, args := ub.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update error: %w", err)
	}
	return nil
}

// AddFeed persists a feed on the watch list so it survives restarts.
// Re-adding an existing URL is a no-op.
func (s *Store) AddFeed(ctx context.Context, url string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (url, added_at)
		VALUES (?, ?)
		ON CONFLICT (url) DO NOTHING`,
		url,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert error: %w", err)
	}
	return nil
}

func (s *Store) RemoveFeed(ctx context.Context, url string) error {
	db := sqlbuilder.NewDeleteBuilder()
	db.DeleteFrom("feeds")
	db.Where(db.Equal("url", url))

	query, args := db.Build()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete error: %w", err)
	}
	return nil
}

// ListFeeds returns the persisted watch list in stable order.
func (s *Store) ListFeeds(ctx context.Context) ([]string, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("url").From("feeds")
	sb.OrderBy("url").Asc()

	query, args := sb.Build()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query error: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("scan error: %w", err)
		}
		urls = append(urls, url)
	}

	return urls, rows.Err()
}

// SeenCount returns the number of recorded items for a feed.
func (s *Store) SeenCount(ctx context.Context, feed string) (int64, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("count(*)").From("seen_items")
	sb.Where(sb.Equal("feed", feed))

	query, args := sb.Build()
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("query error: %w", err)
	}
	return count, nil
}

func logQuery(query string, args []interface{}) {
	log.WithFields(log.Fields{
		"sql":  query,
		"args": args,
	}).Trace("Executing query")
}
