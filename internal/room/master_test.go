package room

import (
	"context"
	"testing"

	"github.com/sumanthd032/songlist/internal/protocol"
)

func TestHandleGetSong(t *testing.T) {
	r, _ := newTestRoom(t, "1")
	r.st.songList["x"] = "http://example.com/x"

	reply := make(chan string, 1)
	r.handleGetSong(cmdGetSong{Name: "x", Reply: reply})
	if got := <-reply; got != "http://example.com/x" {
		t.Fatalf("got %q, want the stored url", got)
	}

	reply2 := make(chan string, 1)
	r.handleGetSong(cmdGetSong{Name: "missing", Reply: reply2})
	if got := <-reply2; got != "" {
		t.Fatalf("got %q, want empty string for a miss", got)
	}
}

func TestHandleFullStateRequest_RepliesWithSongList(t *testing.T) {
	r, ft := newTestRoom(t, "1")
	r.st.songList["x"] = "u"
	ctx := context.Background()

	r.handleFullStateRequest(ctx, evFullStateRequest{From: "2"})

	sent, ok := lastSent(ft)
	if !ok || sent.to != "2" || sent.line.Verb != "songlist" {
		t.Fatalf("expected a songlist reply to the requester, got %v", ft.sent)
	}
}

func TestHandleSongList_SeedsLocalStateAndPromotesObserver(t *testing.T) {
	r, _ := newTestRoom(t, "1")
	r.st.role = protocol.RoleObserver

	r.handleSongList(context.Background(), evSongList{From: "2", SongList: map[string]string{"x": "u"}})

	if r.st.songList["x"] != "u" {
		t.Fatalf("songList not seeded from peer reply")
	}
	if r.st.role != protocol.RoleParticipant {
		t.Fatalf("role = %s, want participant once the join flow's songList arrives", r.st.role)
	}
}

func TestHandleDetermineCoordinator_FirstUpBecomesCoordinator(t *testing.T) {
	r, _ := newTestRoom(t, "1")
	r.st.phase = PhaseStart{}
	r.st.coordinator = ""

	r.handleDetermineCoordinator(context.Background())

	if r.st.role != protocol.RoleCoordinator {
		t.Fatalf("role = %s, want coordinator when bootstrapping alone", r.st.role)
	}
	if _, ok := r.st.phase.(PhaseCoordWaiting); !ok {
		t.Fatalf("phase = %T, want PhaseCoordWaiting", r.st.phase)
	}
}

// A replica whose actors map already lists a peer, but has never
// actually heard a live heartbeat from anyone (e.g. mDNS discovery
// populated actors before any heartbeat exchange happened), must still
// become Coordinator: the bootstrap rule is about observed liveness,
// not the static known-peers set.
func TestHandleDetermineCoordinator_KnownButUnheardPeerStillBootstraps(t *testing.T) {
	r, _ := newTestRoom(t, "2")
	r.st.phase = PhaseStart{}
	r.st.actors["1"] = struct{}{}

	r.handleDetermineCoordinator(context.Background())

	if r.st.role != protocol.RoleCoordinator {
		t.Fatalf("role = %s, want coordinator when no heartbeat has actually been observed", r.st.role)
	}
}

func TestHandleDetermineCoordinator_LateJoinerBecomesObserverAndRequestsFullState(t *testing.T) {
	r, ft := newTestRoom(t, "2")
	r.st.phase = PhaseStart{}
	r.st.actors["1"] = struct{}{}
	r.det.Observe("1", protocol.RoleParticipant)

	r.handleDetermineCoordinator(context.Background())

	if r.st.role != protocol.RoleObserver {
		t.Fatalf("role = %s, want observer while awaiting the join flow's songList", r.st.role)
	}
	sent, ok := lastSent(ft)
	if !ok || sent.to != "1" || sent.line.Verb != "fullstaterequest" {
		t.Fatalf("expected a fullstaterequest to the live peer, got %v", ft.sent)
	}
}
