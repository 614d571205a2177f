// Package room implements the songlist protocol's replica state
// machine: the 3PC coordinator/participant roles, the election and
// termination protocol, and the songlist mutation rules. A Room is a
// single-threaded cooperative actor — all of RoomState is owned
// exclusively by its run loop and mutated nowhere else, grounded on
// the Hub.run() idiom (register/unregister/broadcast channels feeding
// one goroutine) from the songlist protocol's teacher project.
package room

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/sumanthd032/songlist/internal/dtlog"
	"github.com/sumanthd032/songlist/internal/heartbeat"
	"github.com/sumanthd032/songlist/internal/protocol"
	"github.com/sumanthd032/songlist/internal/snapshot"
	"github.com/sumanthd032/songlist/internal/timeout"
	"github.com/sumanthd032/songlist/internal/transport"
)

// state is the RoomState of the spec: owned exclusively by the actor
// goroutine, never shared or locked.
type state struct {
	actors      map[string]struct{}
	coordinator string // peer id; "" means unknown
	role        protocol.Role
	master      MasterSink

	phase      Phase
	commitIter int
	songList   map[string]string
}

// Room is one replica's actor. Construct with New, then run it with Run.
type Room struct {
	selfID string

	tr       transport.Transport
	det      *heartbeat.Detector
	sender   *heartbeat.Sender
	sched    *timeout.Scheduler
	toChan   chan timeout.Msg
	cmdChan  chan event
	aliveFor time.Duration

	dtlog *dtlog.Log           // nil disables commit-history persistence
	snaps *snapshot.Store      // nil disables snapshot-assisted rejoin

	st state
}

// Config bundles a Room's collaborators, all of which are optional
// except SelfID and Transport: a nil Clock falls back to a monotonic
// clock, a zero BeatRate/AliveThreshold to 500ms/3000ms, and a nil
// DTLog/Snapshots disables that feature rather than panicking, matching
// "best-effort, never on the hot path" for every [FULL] addition.
type Config struct {
	SelfID         string
	Transport      transport.Transport
	Clock          heartbeat.Clock
	BeatRate       time.Duration
	AliveThreshold time.Duration
	DTLog          *dtlog.Log
	Snapshots      *snapshot.Store
}

func New(cfg Config) *Room {
	if cfg.Clock == nil {
		cfg.Clock = heartbeat.NewMonotonicClock()
	}
	if cfg.BeatRate == 0 {
		cfg.BeatRate = 500 * time.Millisecond
	}
	if cfg.AliveThreshold == 0 {
		cfg.AliveThreshold = 3000 * time.Millisecond
	}

	toChan := make(chan timeout.Msg, 64)
	r := &Room{
		selfID:   cfg.SelfID,
		tr:       cfg.Transport,
		det:      heartbeat.NewDetector(cfg.Clock, cfg.AliveThreshold),
		sched:    timeout.NewScheduler(toChan),
		toChan:   toChan,
		cmdChan:  make(chan event, 64),
		aliveFor: cfg.AliveThreshold,
		dtlog:    cfg.DTLog,
		snaps:    cfg.Snapshots,
		st: state{
			actors:   make(map[string]struct{}),
			role:     protocol.RoleParticipant,
			phase:    PhaseStart{},
			songList: make(map[string]string),
		},
	}
	r.sender = heartbeat.NewSender(cfg.SelfID, cfg.Transport, cfg.BeatRate)
	return r
}

// Join seeds the replica's known peer set before Run starts. Equivalent
// to the spec's "actors" set being populated by the (out-of-scope)
// transport wiring; cmd/replica calls this with the peers found by
// internal/discovery's mDNS sweep.
func (r *Room) Join(peerIDs ...string) {
	for _, id := range peerIDs {
		r.st.actors[id] = struct{}{}
	}
}

// Run starts the actor's mailbox loop, its peer-receive pump, and its
// bootstrap timer. It blocks until ctx is cancelled.
func (r *Room) Run(ctx context.Context) {
	go r.recvLoop(ctx)
	r.sched.Schedule(ctx, 3000*time.Millisecond, bootstrapTimeout{})
	for {
		select {
		case ev := <-r.cmdChan:
			r.dispatch(ctx, ev)
		case to := <-r.toChan:
			r.dispatchTimeout(ctx, to)
		case <-ctx.Done():
			return
		}
	}
}

// recvLoop pumps transport.Recv into the actor's mailbox, translating
// wire lines into typed events. Besides Run, only this loop and the
// exported methods in api.go touch r.cmdChan (by sending to it), and
// none of them touches RoomState.
func (r *Room) recvLoop(ctx context.Context) {
	for {
		m, err := r.tr.Recv(ctx)
		if err != nil {
			return
		}
		ev, err := decodeEvent(m)
		if err != nil {
			log.Printf("room[%s]: %v", r.selfID, err)
			continue
		}
		select {
		case r.cmdChan <- ev:
		case <-ctx.Done():
			return
		}
	}
}

// bootstrapTimeout is the §6 DetermineCoordinator self-message; it
// carries no iteration because it fires at most once, before any 3PC
// round can exist.
type bootstrapTimeout struct{}

func (bootstrapTimeout) SourceIter() int { return -1 }

// selfIDInt parses selfID as the non-negative integer the election and
// application-vote rules order and compare by.
func (r *Room) selfIDInt() int {
	n, err := strconv.Atoi(r.selfID)
	if err != nil {
		log.Fatalf("room[%s]: selfID must be a non-negative integer: %v", r.selfID, err)
	}
	return n
}
