package room

import (
	"context"
	"testing"

	"github.com/sumanthd032/songlist/internal/protocol"
)

func TestRunElection_NonWinnerAdoptsCoordinator(t *testing.T) {
	r, ft := newTestRoom(t, "3")
	r.st.role = protocol.RoleParticipant
	r.st.phase = PhaseParticipantCommitable{Update: protocol.Add("x", "u"), UpSet: []string{"1", "2"}}
	r.det.Observe("1", protocol.RoleParticipant)
	r.det.Observe("2", protocol.RoleParticipant)

	r.runElection(context.Background())

	if r.st.coordinator != "1" {
		t.Fatalf("coordinator = %q, want lowest id 1", r.st.coordinator)
	}
	if len(ft.broadcasts) != 0 {
		t.Fatalf("a non-winner must not broadcast statereq, got %v", ft.broadcasts)
	}
	if _, ok := r.st.phase.(PhaseParticipantCommitable); !ok {
		t.Fatalf("a non-winner must keep its current phase, got %T", r.st.phase)
	}
}

func TestRunElection_WinnerGathersState(t *testing.T) {
	r, ft := newTestRoom(t, "1")
	r.st.role = protocol.RoleParticipant
	r.st.phase = PhaseParticipantCommitable{Update: protocol.Add("x", "u"), UpSet: []string{"2", "3"}}
	r.det.Observe("2", protocol.RoleParticipant)
	r.det.Observe("3", protocol.RoleParticipant)

	r.runElection(context.Background())

	if r.st.coordinator != "1" {
		t.Fatalf("coordinator = %q, want self", r.st.coordinator)
	}
	bc, ok := lastBroadcast(ft)
	if !ok || bc.line.Verb != "statereq" {
		t.Fatalf("expected a statereq broadcast, got %v", ft.broadcasts)
	}
	ph, ok := r.st.phase.(PhaseCoordGatheringState)
	if !ok {
		t.Fatalf("phase = %T, want PhaseCoordGatheringState", r.st.phase)
	}
	if ph.Responses["1"] != protocol.StateCommittable {
		t.Fatalf("self response = %s, want committable (from prior ParticipantCommitable phase)", ph.Responses["1"])
	}
	if r.st.role != protocol.RoleCoordinator {
		t.Fatalf("role = %s, want coordinator", r.st.role)
	}
}

// TestDecideTermination_AnyCommittedWins is the termination decision
// rule's first clause: one Committed response is decisive regardless
// of what anyone else reports.
func TestDecideTermination_AnyCommittedWins(t *testing.T) {
	r, ft := newTestRoom(t, "1")
	ph := PhaseCoordGatheringState{
		UpSet: []string{"2", "3"},
		Responses: map[string]protocol.CommitState{
			"1": protocol.StateUncertain,
			"2": protocol.StateCommitted,
			"3": protocol.StateUncertain,
		},
		SelfUpdate: protocol.Add("x", "u"),
	}
	r.st.phase = ph
	r.st.songList["x"] = ""

	r.decideTermination(context.Background(), ph)

	if _, ok := r.st.phase.(PhaseCoordCommitted); !ok {
		t.Fatalf("phase = %T, want PhaseCoordCommitted", r.st.phase)
	}
	if r.st.songList["x"] != "u" {
		t.Fatalf("songList[x] = %q, want applied update", r.st.songList["x"])
	}
	bc, ok := lastBroadcast(ft)
	if !ok || bc.line.Verb != "commit" {
		t.Fatalf("expected a commit broadcast, got %v", ft.broadcasts)
	}
}

func TestDecideTermination_AnyAbortedWinsOverUncertain(t *testing.T) {
	r, ft := newTestRoom(t, "1")
	ph := PhaseCoordGatheringState{
		UpSet: []string{"2", "3"},
		Responses: map[string]protocol.CommitState{
			"1": protocol.StateUncertain,
			"2": protocol.StateAborted,
			"3": protocol.StateUncertain,
		},
		SelfUpdate: protocol.Add("x", "u"),
	}
	r.st.phase = ph

	r.decideTermination(context.Background(), ph)

	if _, ok := r.st.phase.(PhaseCoordAborted); !ok {
		t.Fatalf("phase = %T, want PhaseCoordAborted", r.st.phase)
	}
	bc, ok := lastBroadcast(ft)
	if !ok || bc.line.Verb != "abort" {
		t.Fatalf("expected an abort broadcast, got %v", ft.broadcasts)
	}
}

func TestDecideTermination_AllCommittableCommitsDirectly(t *testing.T) {
	r, ft := newTestRoom(t, "1")
	ph := PhaseCoordGatheringState{
		UpSet: []string{"2", "3"},
		Responses: map[string]protocol.CommitState{
			"1": protocol.StateCommittable,
			"2": protocol.StateCommittable,
			"3": protocol.StateCommittable,
		},
		SelfUpdate: protocol.Add("x", "u"),
	}
	r.st.phase = ph

	r.decideTermination(context.Background(), ph)

	if _, ok := r.st.phase.(PhaseCoordCommitted); !ok {
		t.Fatalf("phase = %T, want PhaseCoordCommitted", r.st.phase)
	}
	bc, ok := lastBroadcast(ft)
	if !ok || bc.line.Verb != "commit" {
		t.Fatalf("expected a commit broadcast, got %v", ft.broadcasts)
	}
}

// TestDecideTermination_SomeUncertainReruns is the termination rule's
// last clause: with neither a Committed nor an Aborted response and at
// least one Uncertain, the coordinator reruns PreCommit rather than
// deciding outright.
func TestDecideTermination_SomeUncertainReruns(t *testing.T) {
	r, ft := newTestRoom(t, "1")
	ph := PhaseCoordGatheringState{
		UpSet: []string{"2", "3"},
		Responses: map[string]protocol.CommitState{
			"1": protocol.StateCommittable,
			"2": protocol.StateUncertain,
			"3": protocol.StateCommittable,
		},
		SelfUpdate: protocol.Add("x", "u"),
	}
	r.st.phase = ph

	r.decideTermination(context.Background(), ph)

	bc, ok := lastBroadcast(ft)
	if !ok || bc.line.Verb != "precommit" {
		t.Fatalf("expected a precommit re-broadcast, got %v", ft.broadcasts)
	}
	if _, ok := r.st.phase.(PhaseCoordCommitable); !ok {
		t.Fatalf("phase = %T, want PhaseCoordCommitable (rerunning precommit)", r.st.phase)
	}
}

func TestHandleStateReq_RepliesWithLocalState(t *testing.T) {
	r, ft := newTestRoom(t, "2")
	r.st.phase = PhaseParticipantCommitable{Update: protocol.Add("x", "u"), UpSet: []string{"1"}}

	r.handleStateReq(context.Background(), evStateReq{From: "1"})

	sent, ok := lastSent(ft)
	if !ok || sent.to != "1" || sent.line.Verb != "state" {
		t.Fatalf("expected a state reply to the requester, got %v", ft.sent)
	}
	if sent.line.Args[0] != "committable" {
		t.Fatalf("state = %v, want committable", sent.line.Args)
	}
}
