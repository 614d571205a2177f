package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sumanthd032/songlist/internal/heartbeat"
	"github.com/sumanthd032/songlist/internal/protocol"
	"github.com/sumanthd032/songlist/internal/timeout"
	"github.com/sumanthd032/songlist/internal/transport"
)

// fakeTransport records every Send/Broadcast call instead of moving
// bytes anywhere, so coordinator/participant/election handlers can be
// driven directly without a real network.
type fakeTransport struct {
	mu         sync.Mutex
	sent       []sentCall
	broadcasts []broadcastCall
	recvCh     chan transport.Message
}

type sentCall struct {
	to   string
	line protocol.Line
}

type broadcastCall struct {
	to   []string
	line protocol.Line
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{recvCh: make(chan transport.Message)}
}

func (f *fakeTransport) Send(ctx context.Context, id string, l protocol.Line) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentCall{to: id, line: l})
	return nil
}

func (f *fakeTransport) Broadcast(ctx context.Context, ids []string, l protocol.Line) {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := append([]string(nil), ids...)
	f.broadcasts = append(f.broadcasts, broadcastCall{to: cp, line: l})
}

func (f *fakeTransport) Recv(ctx context.Context) (transport.Message, error) {
	select {
	case m := <-f.recvCh:
		return m, nil
	case <-ctx.Done():
		return transport.Message{}, ctx.Err()
	}
}

func (f *fakeTransport) Close() error { return nil }

var _ transport.Transport = (*fakeTransport)(nil)

// fakeSink records every line the room actor would have sent back to
// the master driver.
type fakeSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *fakeSink) Send(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, line)
}

// newTestRoom builds a Room with a fake transport, no persistence, and
// a real detector/scheduler — the handlers under test are called
// directly, never through Run, so no scheduled timeout is ever
// dispatched.
func newTestRoom(t *testing.T, selfID string) (*Room, *fakeTransport) {
	t.Helper()
	ft := newFakeTransport()
	toChan := make(chan timeout.Msg, 16)
	r := &Room{
		selfID:  selfID,
		tr:      ft,
		det:     heartbeat.NewDetector(heartbeat.NewMonotonicClock(), 3*time.Second),
		sched:   timeout.NewScheduler(toChan),
		toChan:  toChan,
		cmdChan: make(chan event, 16),
		st: state{
			actors:   make(map[string]struct{}),
			role:     protocol.RoleCoordinator,
			phase:    PhaseCoordWaiting{},
			songList: make(map[string]string),
		},
	}
	r.sender = heartbeat.NewSender(selfID, ft, 500*time.Millisecond)
	return r, ft
}

func lastBroadcast(ft *fakeTransport) (broadcastCall, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.broadcasts) == 0 {
		return broadcastCall{}, false
	}
	return ft.broadcasts[len(ft.broadcasts)-1], true
}

func lastSent(ft *fakeTransport) (sentCall, bool) {
	ft.mu.Lock()
	defer ft.mu.Unlock()
	if len(ft.sent) == 0 {
		return sentCall{}, false
	}
	return ft.sent[len(ft.sent)-1], true
}
