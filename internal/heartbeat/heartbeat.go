// Package heartbeat implements the failure detector described in the
// songlist protocol: a beatmap of per-peer last-seen times, a liveness
// predicate over that map, and the periodic self-announce schedule
// that restarts whenever the owning replica's announced role changes.
//
// The detector's state (beatmap, outstanding send schedules) is owned
// exclusively by the room actor that calls it; like internal/room
// itself this package holds no mutex, grounded on the single-owner
// Hub idiom from the teacher project.
package heartbeat

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sumanthd032/songlist/internal/protocol"
	"github.com/sumanthd032/songlist/internal/transport"
)

// Entry is one peer's last known role and liveness timestamp, keyed by
// peer id in a Detector's beatmap.
type Entry struct {
	Role       protocol.Role
	LastSeenMs int64
}

// Clock supplies monotonic milliseconds; production code uses
// MonotonicClock, tests can substitute a fake to drive liveness
// deterministically without sleeping.
type Clock interface {
	NowMs() int64
}

type MonotonicClock struct{ start time.Time }

func NewMonotonicClock() *MonotonicClock { return &MonotonicClock{start: time.Now()} }
func (c *MonotonicClock) NowMs() int64   { return time.Since(c.start).Milliseconds() }

// Detector tracks peer liveness. beatmap entries are never evicted;
// liveness is purely now - lastSeenMs < aliveThreshold, matching
// invariant 6.
type Detector struct {
	clock           Clock
	aliveThresholdMs int64
	beatmap         map[string]Entry
}

func NewDetector(clock Clock, aliveThreshold time.Duration) *Detector {
	return &Detector{
		clock:            clock,
		aliveThresholdMs: aliveThreshold.Milliseconds(),
		beatmap:          make(map[string]Entry),
	}
}

// Observe records a heartbeat from id, updating its role and
// last-seen time. Call this from the room actor on every received
// heartbeat line.
func (d *Detector) Observe(id string, role protocol.Role) {
	d.beatmap[id] = Entry{Role: role, LastSeenMs: d.clock.NowMs()}
}

// Alive returns the ids considered up (now - lastSeenMs < threshold),
// optionally filtered to a single role. This is the only definition of
// "up" used anywhere in the protocol.
func (d *Detector) Alive(role *protocol.Role) []string {
	now := d.clock.NowMs()
	var out []string
	for id, e := range d.beatmap {
		if now-e.LastSeenMs >= d.aliveThresholdMs {
			continue
		}
		if role != nil && e.Role != *role {
			continue
		}
		out = append(out, id)
	}
	return out
}

// IsAlive reports whether a specific peer is currently live, used by
// the participant's PreCommitTimeout/StateReqTimeout handlers to check
// whether the coordinator died.
func (d *Detector) IsAlive(id string) bool {
	e, ok := d.beatmap[id]
	if !ok {
		return false
	}
	return d.clock.NowMs()-e.LastSeenMs < d.aliveThresholdMs
}

// RoleOf returns the last-announced role of a peer, if any.
func (d *Detector) RoleOf(id string) (protocol.Role, bool) {
	e, ok := d.beatmap[id]
	return e.Role, ok
}

// Sender periodically broadcasts this replica's own heartbeat to every
// peer in actors. Whenever the replica's role changes, the owning room
// actor calls Restart, which cancels the outstanding schedule (the
// "beatCancels" of the spec) and starts a fresh one.
type Sender struct {
	selfID string
	tr     transport.Transport
	rate   time.Duration

	generation int64 // incremented on every Restart; old goroutines self-cancel
}

func NewSender(selfID string, tr transport.Transport, rate time.Duration) *Sender {
	return &Sender{selfID: selfID, tr: tr, rate: rate}
}

// Restart cancels any outstanding heartbeat schedule and starts a new
// one announcing role to every id in actors, every rate.
func (s *Sender) Restart(ctx context.Context, role protocol.Role, actors []string) {
	gen := atomic.AddInt64(&s.generation, 1)
	go s.loop(ctx, gen, role, actors)
}

func (s *Sender) loop(ctx context.Context, gen int64, role protocol.Role, actors []string) {
	ticker := time.NewTicker(s.rate)
	defer ticker.Stop()
	line, _ := protocol.DecodeLine(protocol.EncodeHeartbeat(role, s.selfID))
	for {
		select {
		case <-ticker.C:
			if atomic.LoadInt64(&s.generation) != gen {
				return // superseded by a later Restart
			}
			s.tr.Broadcast(ctx, actors, line)
		case <-ctx.Done():
			return
		}
	}
}

// Stop cancels the current schedule without starting a new one.
func (s *Sender) Stop() { atomic.AddInt64(&s.generation, 1) }
