package store

import (
	"context"
	"fmt"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Tidy removes seen items first seen before the cutoff. Pruning
// re-opens the dedup window for very old items, so it is only run
// when retention is explicitly configured.
func Tidy(database string, maxAge time.Duration) (int64, error) {
	s, err := Open(database)
	if err != nil {
		return 0, err
	}
	defer s.Close()

	return s.Tidy(context.Background(), maxAge)
}

func (s *Store) Tidy(ctx context.Context, maxAge time.Duration) (int64, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	cutoff := time.Now().Add(-maxAge).UTC().Format(time.RFC3339Nano)

	db := sqlbuilder.NewDeleteBuilder()
	db.DeleteFrom("seen_items")
	db.Where(db.LessThan("first_seen", cutoff))

	query, args := db.Build()
	logQuery(query, args)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("delete error: %w", err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete error: %w", err)
	}

	if removed > 0 {
		log.WithFields(log.Fields{
			"removed": removed,
			"cutoff":  cutoff,
		}).Info("Tidied seen items")
	}

	return removed, nil
}
