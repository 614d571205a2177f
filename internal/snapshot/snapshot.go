// Package snapshot is a best-effort, Postgres-backed songlist snapshot
// store, grounded on the teacher's pgxpool wiring. It exists only to
// accelerate a rejoining replica's RequestFullState — the live decision
// path never reads or writes through it, and a Store with no reachable
// database degrades to "no snapshot available", never a failure.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a connection pool and the one row it keeps: the latest
// songList as of a given commit iteration.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to url and ensures the snapshot table exists.
func Open(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("snapshot: connect: %w", err)
	}
	const ddl = `CREATE TABLE IF NOT EXISTS songlist_snapshot (
		id INTEGER PRIMARY KEY DEFAULT 1 CHECK (id = 1),
		as_of_iter INTEGER NOT NULL,
		song_list JSONB NOT NULL
	)`
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("snapshot: create table: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Save upserts the current songList as the latest snapshot.
func (s *Store) Save(songList map[string]string, asOfIter int) error {
	payload, err := json.Marshal(songList)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	const upsert = `INSERT INTO songlist_snapshot (id, as_of_iter, song_list)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET as_of_iter = $1, song_list = $2`
	_, err = s.pool.Exec(context.Background(), upsert, asOfIter, payload)
	if err != nil {
		return fmt.Errorf("snapshot: upsert: %w", err)
	}
	return nil
}

// Load returns the latest snapshot, or (nil, 0, nil) if none exists yet.
func (s *Store) Load() (map[string]string, int, error) {
	var asOfIter int
	var payload []byte
	err := s.pool.QueryRow(context.Background(),
		`SELECT as_of_iter, song_list FROM songlist_snapshot WHERE id = 1`).
		Scan(&asOfIter, &payload)
	if err != nil {
		return nil, 0, nil
	}
	songList := map[string]string{}
	if err := json.Unmarshal(payload, &songList); err != nil {
		return nil, 0, fmt.Errorf("snapshot: unmarshal: %w", err)
	}
	return songList, asOfIter, nil
}
