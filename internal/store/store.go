// Package store persists the last successfully fetched feed in Postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/briangreenhill/photofeed/feed"
)

const schema = `
CREATE TABLE IF NOT EXISTS feed_items (
	position      INTEGER PRIMARY KEY,
	id            INTEGER NOT NULL,
	album_id      INTEGER NOT NULL,
	title         TEXT NOT NULL,
	url           TEXT NOT NULL,
	thumbnail_url TEXT NOT NULL,
	raw_json      JSONB NOT NULL,
	fetched_at    TIMESTAMPTZ NOT NULL
)`

// Snapshot is a stored feed and when it was fetched.
type Snapshot struct {
	Items     []feed.Item
	FetchedAt time.Time
}

// Store reads and writes feed snapshots.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to databaseURL and applies the schema.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if databaseURL == "" {
		return nil, errors.New("store: DATABASE_URL is empty")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the feed table if needed.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

// ReplaceFeed swaps the stored feed for items in one transaction. Order is
// kept through the position column.
func (s *Store) ReplaceFeed(ctx context.Context, items []feed.Item, fetchedAt time.Time) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM feed_items`); err != nil {
		return fmt.Errorf("store: clear feed: %w", err)
	}

	at := pgtype.Timestamptz{Time: fetchedAt.UTC(), Valid: true}
	batch := &pgx.Batch{}
	for i, it := range items {
		raw, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("store: encode item %d: %w", it.ID, err)
		}
		batch.Queue(`INSERT INTO feed_items
			(position, id, album_id, title, url, thumbnail_url, raw_json, fetched_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			i, it.ID, it.AlbumID,
			pgtype.Text{String: it.Title, Valid: true},
			pgtype.Text{String: it.PhotoURLString, Valid: true},
			pgtype.Text{String: it.ThumbnailURLString, Valid: true},
			raw, at,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("store: insert feed: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// LatestFeed returns the stored snapshot. ok is false when nothing has
// been stored yet.
func (s *Store) LatestFeed(ctx context.Context) (snap Snapshot, ok bool, err error) {
	rows, err := s.pool.Query(ctx, `SELECT id, album_id, title, url, thumbnail_url, fetched_at
		FROM feed_items ORDER BY position`)
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("store: query feed: %w", err)
	}
	defer rows.Close()

	snap.Items = []feed.Item{}
	for rows.Next() {
		var it feed.Item
		var at pgtype.Timestamptz
		if err := rows.Scan(&it.ID, &it.AlbumID, &it.Title, &it.PhotoURLString, &it.ThumbnailURLString, &at); err != nil {
			return Snapshot{}, false, fmt.Errorf("store: scan feed: %w", err)
		}
		snap.Items = append(snap.Items, it)
		if at.Valid {
			snap.FetchedAt = at.Time
		}
	}
	if err := rows.Err(); err != nil {
		return Snapshot{}, false, fmt.Errorf("store: read feed: %w", err)
	}
	return snap, len(snap.Items) > 0, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}
