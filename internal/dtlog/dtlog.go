// Package dtlog is the replica's local commit-history log: an
// append-only record of Commit/Abort decisions, backed by bbolt. The
// room appends on the decisions that advance commitIter; a
// coordinator's local URL-length abort and a participant's own No vote
// are not recorded. It is the persistent DT-log the songlist protocol's
// spec names as an external collaborator rather than core scope — kept
// here as a genuine collaborator, never on the room actor's decision
// path (see internal/room's persistTerminal).
package dtlog

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("entries")

// Entry is one row of the commit-history log.
type Entry struct {
	Iter     int       `json:"iter"`
	Decision string    `json:"decision"`
	Update   string    `json:"update"`
	At       time.Time `json:"at"`
}

// Log is a handle on the bbolt-backed commit history file.
type Log struct {
	db *bolt.DB
}

// Open creates or opens the log file at path, creating the entries
// bucket if this is a fresh file.
func Open(path string) (*Log, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("dtlog: open %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("dtlog: init bucket: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error { return l.db.Close() }

// Append writes one entry, keyed by the bucket's auto-incrementing
// sequence so replay preserves insertion order.
func (l *Log) Append(e Entry) error {
	e.At = time.Now()
	return l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		payload, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put(itob(seq), payload)
	})
}

// Replay calls fn for every entry in insertion order; used by
// cmd/dtlog-dump and never by the room actor itself.
func (l *Log) Replay(fn func(Entry) error) error {
	return l.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		return b.ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			return fn(e)
		})
	})
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
