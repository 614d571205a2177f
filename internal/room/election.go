package room

import (
	"context"
	"errors"

	"github.com/sumanthd032/songlist/internal/protocol"
)

var errNotInt = errors.New("room: peer id is not a non-negative integer")

// runElection is §4.5: among alive(Participant) plus self, the lowest
// selfID (compared as integer) becomes the new coordinator.
func (r *Room) runElection(ctx context.Context) {
	peers := r.upSet()
	winner := r.selfIDInt()
	for _, id := range peers {
		if n, err := idInt(id); err == nil && n < winner {
			winner = n
		}
	}

	if winner != r.selfIDInt() {
		winnerID := r.selfID
		for _, id := range peers {
			if n, err := idInt(id); err == nil && n == winner {
				winnerID = id
				break
			}
		}
		r.st.coordinator = winnerID
		r.sched.Schedule(ctx, preCommitGraceMs, toStateReq{Iter: r.st.commitIter})
		return
	}

	// We won. Capture what we knew as a participant before taking over,
	// since the termination decision needs this replica's own state too.
	selfState := localCommitState(r.st.phase)
	selfUpdate := updateFromPhase(r.st.phase)

	responses := map[string]protocol.CommitState{r.selfID: selfState}
	r.tr.Broadcast(ctx, peers, line("statereq"))
	r.st.coordinator = r.selfID
	r.st.phase = PhaseCoordGatheringState{UpSet: peers, Responses: responses, SelfUpdate: selfUpdate}
	r.sched.Schedule(ctx, preCommitGraceMs, toStateReqReply{Iter: r.st.commitIter})
	r.announceRole(ctx, protocol.RoleCoordinator)
}

// handleStateReq is §4.5's termination StateReq handling: reply with the
// local CommitState for whatever phase this replica is currently in.
func (r *Room) handleStateReq(ctx context.Context, e evStateReq) {
	r.tr.Send(ctx, e.From, line(protocol.EncodeStateReply(localCommitState(r.st.phase))))
}

// handleStateReply accumulates a StateReq response; if every queried
// peer plus self has answered, the decision is made immediately rather
// than waiting out StateReqReplyTimeout.
func (r *Room) handleStateReply(ctx context.Context, e evStateReply) {
	ph, ok := r.st.phase.(PhaseCoordGatheringState)
	if !ok {
		return
	}
	ph.Responses[e.From] = e.State
	r.st.phase = ph
	if len(ph.Responses) == len(ph.UpSet)+1 {
		r.decideTermination(ctx, ph)
	}
}

// handleStateReqTimeout is the non-winner's StateReqTimeout: if the
// elected coordinator hasn't been heard from, the election is rerun.
func (r *Room) handleStateReqTimeout(ctx context.Context, t toStateReq) {
	if r.st.coordinator != "" && r.det.IsAlive(r.st.coordinator) {
		return
	}
	r.runElection(ctx)
}

// handleStateReqReplyTimeout forces the termination decision with
// whatever responses arrived before the deadline.
func (r *Room) handleStateReqReplyTimeout(ctx context.Context, t toStateReqReply) {
	ph, ok := r.st.phase.(PhaseCoordGatheringState)
	if !ok {
		return
	}
	r.decideTermination(ctx, ph)
}

// decideTermination applies §4.5's termination decision rule: any
// Committed response wins outright; else any Aborted wins; else all
// Committable commits directly; else (some Uncertain) the last two
// phases — PreCommit then Commit — are rerun.
func (r *Room) decideTermination(ctx context.Context, ph PhaseCoordGatheringState) {
	anyCommitted, anyAborted, allCommittable := false, false, true
	for _, s := range ph.Responses {
		switch s {
		case protocol.StateCommitted:
			anyCommitted = true
		case protocol.StateAborted:
			anyAborted = true
			allCommittable = false
		case protocol.StateUncertain:
			allCommittable = false
		}
	}

	switch {
	case anyCommitted:
		ph.SelfUpdate.Apply(r.st.songList)
		r.tr.Broadcast(ctx, ph.UpSet, line("commit"))
		r.ackMaster(protocol.LineAckCommit)
		r.persistTerminal(protocol.DecisionCommit, ph.SelfUpdate)
		r.st.commitIter++
		r.st.phase = PhaseCoordCommitted{}
	case anyAborted:
		r.tr.Broadcast(ctx, ph.UpSet, line("abort"))
		r.ackMaster(protocol.LineAckAbort)
		r.persistTerminal(protocol.DecisionAbort, protocol.Update{})
		r.st.commitIter++
		r.st.phase = PhaseCoordAborted{}
		r.announceRole(ctx, protocol.RoleObserver)
	case allCommittable:
		ph.SelfUpdate.Apply(r.st.songList)
		r.tr.Broadcast(ctx, ph.UpSet, line("commit"))
		r.ackMaster(protocol.LineAckCommit)
		r.persistTerminal(protocol.DecisionCommit, ph.SelfUpdate)
		r.st.commitIter++
		r.st.phase = PhaseCoordCommitted{}
	default:
		// Some Uncertain: rerun PreCommit/Commit over the queried set,
		// reusing the ordinary coordinator machinery.
		r.tr.Broadcast(ctx, ph.UpSet, line("precommit"))
		r.sched.Schedule(ctx, preCommitGraceMs, toAckPreCommit{Iter: r.st.commitIter})
		r.st.phase = PhaseCoordCommitable{Update: ph.SelfUpdate, UpSet: ph.UpSet, AckSet: map[string]struct{}{}}
	}
}

// updateFromPhase recovers the in-flight Update a participant phase was
// carrying, for the new coordinator to finish the round with.
func updateFromPhase(p Phase) protocol.Update {
	switch ph := p.(type) {
	case PhaseParticipantInitCommit:
		return ph.Update
	case PhaseParticipantCommitable:
		return ph.Update
	case PhaseCoordInitCommit:
		return ph.Update
	case PhaseCoordCommitable:
		return ph.Update
	default:
		return protocol.Update{}
	}
}

func idInt(id string) (int, error) {
	n := 0
	for _, c := range id {
		if c < '0' || c > '9' {
			return 0, errNotInt
		}
		n = n*10 + int(c-'0')
	}
	return n, nil
}
