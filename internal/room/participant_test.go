package room

import (
	"context"
	"testing"

	"github.com/sumanthd032/songlist/internal/protocol"
)

func TestHandleVoteReq_YesEntersInitCommit(t *testing.T) {
	r, ft := newTestRoom(t, "2") // selfIDInt() == 2, threshold len = 2+5 = 7
	r.st.role = protocol.RoleParticipant
	r.st.phase = PhaseStart{}
	r.st.coordinator = "1"
	ctx := context.Background()

	r.handleVoteReq(ctx, evVoteReq{From: "1", Update: protocol.Add("x", "short")})

	sent, ok := lastSent(ft)
	if !ok || sent.to != "1" || sent.line.Verb != "votereply" {
		t.Fatalf("expected a votereply to the coordinator, got %v", ft.sent)
	}
	if len(sent.line.Args) != 1 || sent.line.Args[0] != "yes" {
		t.Fatalf("vote = %v, want yes", sent.line.Args)
	}
	if _, ok := r.st.phase.(PhaseParticipantInitCommit); !ok {
		t.Fatalf("phase = %T, want PhaseParticipantInitCommit", r.st.phase)
	}
}

func TestHandleVoteReq_NoAborts(t *testing.T) {
	r, ft := newTestRoom(t, "2")
	r.st.role = protocol.RoleParticipant
	r.st.coordinator = "1"
	ctx := context.Background()

	// len("12345678") == 8 > selfIDInt()+5 == 7
	r.handleVoteReq(ctx, evVoteReq{From: "1", Update: protocol.Add("x", "12345678")})

	sent, ok := lastSent(ft)
	if !ok || sent.line.Verb != "votereply" || sent.line.Args[0] != "no" {
		t.Fatalf("expected votereply no, got %v", ft.sent)
	}
	if _, ok := r.st.phase.(PhaseParticipantAborted); !ok {
		t.Fatalf("phase = %T, want PhaseParticipantAborted", r.st.phase)
	}
}

func TestHandlePreCommit_SchedulesCommitTimeout(t *testing.T) {
	r, ft := newTestRoom(t, "2")
	r.st.coordinator = "1"
	r.st.phase = PhaseParticipantInitCommit{Update: protocol.Add("x", "u"), UpSet: []string{"1"}}
	ctx := context.Background()

	r.handlePreCommit(ctx, evPreCommit{From: "1"})

	sent, ok := lastSent(ft)
	if !ok || sent.to != "1" || sent.line.Verb != "ackprecommit" {
		t.Fatalf("expected ackprecommit to coordinator, got %v", ft.sent)
	}
	if _, ok := r.st.phase.(PhaseParticipantCommitable); !ok {
		t.Fatalf("phase = %T, want PhaseParticipantCommitable", r.st.phase)
	}
}

func TestHandleDecision_CommitAppliesUpdate(t *testing.T) {
	r, _ := newTestRoom(t, "2")
	r.st.coordinator = "1"
	r.st.phase = PhaseParticipantCommitable{Update: protocol.Add("x", "u"), UpSet: []string{"1"}}

	r.handleDecision(context.Background(), protocol.DecisionCommit)

	if r.st.songList["x"] != "u" {
		t.Fatalf("songList[x] = %q, want %q", r.st.songList["x"], "u")
	}
	if _, ok := r.st.phase.(PhaseParticipantCommitted); !ok {
		t.Fatalf("phase = %T, want PhaseParticipantCommitted", r.st.phase)
	}
	if r.st.role != protocol.RoleObserver {
		t.Fatalf("role = %s, want observer", r.st.role)
	}
}

func TestHandleDecision_AbortFromAnyPhase(t *testing.T) {
	r, _ := newTestRoom(t, "2")
	r.st.phase = PhaseParticipantInitCommit{Update: protocol.Add("x", "u"), UpSet: []string{"1"}}

	r.handleDecision(context.Background(), protocol.DecisionAbort)

	if _, ok := r.st.phase.(PhaseParticipantAborted); !ok {
		t.Fatalf("phase = %T, want PhaseParticipantAborted", r.st.phase)
	}
	if _, present := r.st.songList["x"]; present {
		t.Fatalf("an aborted round must not mutate songList")
	}
}

// TestHandlePreCommitTimeout_RunsElectionWhenCoordinatorDead is §4.4's
// PreCommitTimeout rule: coordinator "1" was never Observe()'d, so
// det.IsAlive("1") is false and the election must run. Among alive
// participants ("3") plus self ("2"), self has the lower id and wins.
func TestHandlePreCommitTimeout_RunsElectionWhenCoordinatorDead(t *testing.T) {
	r, ft := newTestRoom(t, "2")
	r.st.role = protocol.RoleParticipant
	r.st.coordinator = "1"
	r.st.phase = PhaseParticipantInitCommit{Update: protocol.Add("x", "u"), UpSet: []string{"3"}}
	r.det.Observe("3", protocol.RoleParticipant)

	r.handlePreCommitTimeout(context.Background(), toPreCommit{Iter: 0})

	if r.st.coordinator != "2" {
		t.Fatalf("coordinator = %q, want self (lowest id among alive participants + self)", r.st.coordinator)
	}
	bc, ok := lastBroadcast(ft)
	if !ok || bc.line.Verb != "statereq" {
		t.Fatalf("expected a statereq broadcast from the election winner, got %v", ft.broadcasts)
	}
}
