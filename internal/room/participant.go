package room

import (
	"context"
	"log"

	"github.com/sumanthd032/songlist/internal/protocol"
)

// handleVoteReq is §4.4's "Receiving VoteReq(upd) (any non-coordinator
// state)". A VoteReq with no known coordinator is the fatal assertion
// §7 calls for: the replica cannot meaningfully proceed without
// knowing who to reply to.
func (r *Room) handleVoteReq(ctx context.Context, e evVoteReq) {
	if r.st.coordinator == "" {
		log.Fatalf("room[%s]: votereq received with no known coordinator", r.selfID)
	}

	vote := protocol.VoteYes
	if e.Update.IsAdd() && len(e.Update.URL) > r.selfIDInt()+5 {
		vote = protocol.VoteNo
	}
	r.tr.Send(ctx, r.st.coordinator, line(protocol.EncodeVoteReply(vote)))

	if vote == protocol.VoteNo {
		r.st.phase = PhaseParticipantAborted{}
		r.announceRole(ctx, protocol.RoleObserver)
		return
	}
	r.sched.Schedule(ctx, preCommitGraceMs, toPreCommit{Iter: r.st.commitIter})
	r.st.phase = PhaseParticipantInitCommit{Update: e.Update, UpSet: r.upSet()}
}

// handlePreCommit is §4.4's PreCommit handling in ParticipantInitCommit.
func (r *Room) handlePreCommit(ctx context.Context, e evPreCommit) {
	ph, ok := r.st.phase.(PhaseParticipantInitCommit)
	if !ok {
		log.Printf("room[%s]: precommit from %s while in %s, ignoring", r.selfID, e.From, r.st.phase)
		return
	}
	r.tr.Send(ctx, r.st.coordinator, line("ackprecommit"))
	r.sched.Schedule(ctx, preCommitGraceMs, toCommit{Iter: r.st.commitIter})
	r.st.phase = PhaseParticipantCommitable{Update: ph.Update, UpSet: ph.UpSet}
}

// handlePreCommitTimeout is §4.4's PreCommitTimeout handling: if the
// coordinator is no longer alive, run the election.
func (r *Room) handlePreCommitTimeout(ctx context.Context, t toPreCommit) {
	if r.st.coordinator != "" && r.det.IsAlive(r.st.coordinator) {
		return
	}
	r.runElection(ctx)
}

// handleDecision is §4.4's Decision(Commit)/Decision(Abort) handling.
// Abort applies in any phase; Commit applies only in
// ParticipantCommitable and is logged and ignored in any other phase.
func (r *Room) handleDecision(ctx context.Context, d protocol.Decision) {
	switch d {
	case protocol.DecisionCommit:
		ph, ok := r.st.phase.(PhaseParticipantCommitable)
		if !ok {
			log.Printf("room[%s]: commit decision while in %s, ignoring", r.selfID, r.st.phase)
			return
		}
		ph.Update.Apply(r.st.songList)
		r.persistTerminal(protocol.DecisionCommit, ph.Update)
		r.st.commitIter++
		r.st.phase = PhaseParticipantCommitted{}
		r.announceRole(ctx, protocol.RoleObserver)
	case protocol.DecisionAbort:
		r.persistTerminal(protocol.DecisionAbort, protocol.Update{})
		r.st.commitIter++
		r.st.phase = PhaseParticipantAborted{}
		r.announceRole(ctx, protocol.RoleObserver)
	}
}

// handleCommitTimeout is §4.4's CommitTimeout handling: the termination
// protocol (§4.5), identical to the election path the spec asks for.
func (r *Room) handleCommitTimeout(ctx context.Context, t toCommit) {
	r.runElection(ctx)
}
