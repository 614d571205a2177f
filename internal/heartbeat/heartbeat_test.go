package heartbeat

import (
	"testing"
	"time"

	"github.com/sumanthd032/songlist/internal/protocol"
)

// fakeClock lets liveness be driven deterministically instead of sleeping.
type fakeClock struct{ ms int64 }

func (c *fakeClock) NowMs() int64 { return c.ms }

func TestDetector_AliveByThreshold(t *testing.T) {
	clock := &fakeClock{ms: 0}
	d := NewDetector(clock, 1000*time.Millisecond)

	d.Observe("1", protocol.RoleParticipant)
	if !d.IsAlive("1") {
		t.Fatalf("peer should be alive immediately after a heartbeat")
	}

	clock.ms = 999
	if !d.IsAlive("1") {
		t.Fatalf("peer should still be alive just under the threshold")
	}

	clock.ms = 1000
	if d.IsAlive("1") {
		t.Fatalf("peer should be dead once the gap reaches the threshold")
	}
}

func TestDetector_AliveFiltersByRole(t *testing.T) {
	clock := &fakeClock{ms: 0}
	d := NewDetector(clock, 1000*time.Millisecond)
	d.Observe("1", protocol.RoleParticipant)
	d.Observe("2", protocol.RoleCoordinator)

	participant := protocol.RoleParticipant
	alive := d.Alive(&participant)
	if len(alive) != 1 || alive[0] != "1" {
		t.Fatalf("got %v, want only the participant peer", alive)
	}

	all := d.Alive(nil)
	if len(all) != 2 {
		t.Fatalf("got %v, want both peers with no role filter", all)
	}
}

func TestDetector_NeverEvictsStaleEntries(t *testing.T) {
	clock := &fakeClock{ms: 0}
	d := NewDetector(clock, 1000*time.Millisecond)
	d.Observe("1", protocol.RoleParticipant)

	clock.ms = 5000
	if d.IsAlive("1") {
		t.Fatalf("peer should read as dead long after the threshold")
	}
	if _, ok := d.RoleOf("1"); !ok {
		t.Fatalf("a dead peer's last-known role must still be retrievable: beatmap entries are never evicted")
	}
}
