package room

import (
	"context"
	"log"
	"time"

	"github.com/sumanthd032/songlist/internal/protocol"
)

const preCommitGraceMs = 3000 * time.Millisecond

// handleAddSong is §4.3's "Receiving AddSong(name, url) (externally, in
// CoordWaiting)". Per open question 1 (§9), the local abort rule sends
// neither ack nor abort broadcast — this is a deliberate preservation
// of the source's behavior, not an omission; see DESIGN.md and S2.
func (r *Room) handleAddSong(ctx context.Context, e cmdAddSong) {
	if !r.requireCoordWaiting("AddSong") {
		return
	}
	if len(e.URL) > r.selfIDInt()+5 {
		r.st.phase = PhaseCoordAborted{}
		return
	}
	r.startRound(ctx, protocol.Add(e.Name, e.URL))
}

// handleDeleteSong is the Delete variant: identical to AddSong but with
// no local abort rule.
func (r *Room) handleDeleteSong(ctx context.Context, e cmdDeleteSong) {
	if !r.requireCoordWaiting("DeleteSong") {
		return
	}
	r.startRound(ctx, protocol.Delete(e.Name))
}

func (r *Room) requireCoordWaiting(op string) bool {
	if r.st.role != protocol.RoleCoordinator {
		log.Printf("room[%s]: %s received while not coordinator, ignoring", r.selfID, op)
		return false
	}
	if _, ok := r.st.phase.(PhaseCoordWaiting); !ok {
		log.Printf("room[%s]: %s received while busy in %s, ignoring", r.selfID, op, r.st.phase)
		return false
	}
	return true
}

func (r *Room) startRound(ctx context.Context, upd protocol.Update) {
	up := r.upSet()
	r.tr.Broadcast(ctx, up, line(protocol.EncodeVoteReq(upd)))
	r.sched.Schedule(ctx, preCommitGraceMs, toVoteReply{Iter: r.st.commitIter})
	r.st.phase = PhaseCoordInitCommit{Update: upd, UpSet: up, VoteSet: map[string]struct{}{}}
}

// handleVoteReply is §4.3's VoteReply handling in CoordInitCommit.
func (r *Room) handleVoteReply(ctx context.Context, e evVoteReply) {
	ph, ok := r.st.phase.(PhaseCoordInitCommit)
	if !ok {
		log.Printf("room[%s]: votereply from %s while in %s, ignoring", r.selfID, e.From, r.st.phase)
		return
	}
	if e.Vote == protocol.VoteNo {
		others := excluding(ph.UpSet, e.From)
		r.tr.Broadcast(ctx, others, line("abort"))
		r.ackMaster(protocol.LineAckAbort)
		r.persistTerminal(protocol.DecisionAbort, ph.Update)
		r.st.commitIter++
		r.st.phase = PhaseCoordAborted{}
		r.announceRole(ctx, protocol.RoleObserver)
		return
	}

	voteSet := cloneSet(ph.VoteSet)
	voteSet[e.From] = struct{}{}
	if len(voteSet) == len(ph.UpSet) {
		r.tr.Broadcast(ctx, ph.UpSet, line("precommit"))
		r.sched.Schedule(ctx, preCommitGraceMs, toAckPreCommit{Iter: r.st.commitIter})
		r.st.phase = PhaseCoordCommitable{Update: ph.Update, UpSet: ph.UpSet, AckSet: map[string]struct{}{}}
		return
	}
	r.st.phase = PhaseCoordInitCommit{Update: ph.Update, UpSet: ph.UpSet, VoteSet: voteSet}
}

// handleVoteReplyTimeout is §4.3's VoteReplyTimeout handling.
func (r *Room) handleVoteReplyTimeout(ctx context.Context, t toVoteReply) {
	ph, ok := r.st.phase.(PhaseCoordInitCommit)
	if !ok {
		return
	}
	if len(ph.VoteSet) == len(ph.UpSet) {
		if len(ph.UpSet) == 0 {
			// Coordinator is the only live replica: commit locally.
			ph.Update.Apply(r.st.songList)
			r.ackMaster(protocol.LineAckCommit)
			r.persistTerminal(protocol.DecisionCommit, ph.Update)
			r.st.commitIter++
			r.st.phase = PhaseCoordCommitted{}
		}
		// len(upSet) > 0: votes arrived concurrently, no-op.
		return
	}
	r.tr.Broadcast(ctx, ph.UpSet, line("abort"))
	r.ackMaster(protocol.LineAckAbort)
	r.persistTerminal(protocol.DecisionAbort, ph.Update)
	r.st.commitIter++
	r.st.phase = PhaseCoordAborted{}
	r.announceRole(ctx, protocol.RoleObserver)
}

// handleAckPreCommit is §4.3's AckPreCommit handling in CoordCommitable.
// The completion check compares len(ackSet) against len(upSet) BEFORE
// inserting the new ack (§9 open question 2) — matches scenario S3.
func (r *Room) handleAckPreCommit(ctx context.Context, e evAckPreCommit) {
	ph, ok := r.st.phase.(PhaseCoordCommitable)
	if !ok {
		log.Printf("room[%s]: ackprecommit from %s while in %s, ignoring", r.selfID, e.From, r.st.phase)
		return
	}
	if len(ph.AckSet) == len(ph.UpSet) {
		r.tr.Broadcast(ctx, toIDs(ph.AckSet), line("commit"))
		r.ackMaster(protocol.LineAckCommit)
		ph.Update.Apply(r.st.songList)
		r.persistTerminal(protocol.DecisionCommit, ph.Update)
		r.st.commitIter++
		r.st.phase = PhaseCoordCommitted{}
		return
	}
	ackSet := cloneSet(ph.AckSet)
	ackSet[e.From] = struct{}{}
	r.st.phase = PhaseCoordCommitable{Update: ph.Update, UpSet: ph.UpSet, AckSet: ackSet}
}

// handleAckPreCommitTimeout is §4.3's AckPreCommitTimeout handling. The
// pre-insert completion check in handleAckPreCommit above (§9 open
// question 2) means the natural last ackprecommit never itself closes
// the round — the count it compares against is always one ack behind.
// This timeout is therefore the path that actually finishes a round:
// it commits with whoever has acked so far, full set or not.
func (r *Room) handleAckPreCommitTimeout(ctx context.Context, t toAckPreCommit) {
	ph, ok := r.st.phase.(PhaseCoordCommitable)
	if !ok {
		return
	}
	r.tr.Broadcast(ctx, toIDs(ph.AckSet), line("commit"))
	r.ackMaster(protocol.LineAckCommit)
	ph.Update.Apply(r.st.songList)
	r.persistTerminal(protocol.DecisionCommit, ph.Update)
	r.st.commitIter++
	r.st.phase = PhaseCoordCommitted{}
}

func (r *Room) ackMaster(line string) {
	if r.st.master != nil {
		r.st.master.Send(line)
	}
}

func excluding(ids []string, skip string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != skip {
			out = append(out, id)
		}
	}
	return out
}

func cloneSet(s map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{}, len(s)+1)
	for k := range s {
		out[k] = struct{}{}
	}
	return out
}

func toIDs(s map[string]struct{}) []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	return out
}
