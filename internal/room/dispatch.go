package room

import (
	"context"
	"log"

	"github.com/sumanthd032/songlist/internal/protocol"
	"github.com/sumanthd032/songlist/internal/timeout"
)

// dispatch routes one mailbox event to its handler. Heartbeats and the
// bootstrap flow are handled regardless of phase; everything else is a
// (message, phase) pair per §9's guidance ("each handler pattern-matches
// on (msg, commitPhase) jointly").
func (r *Room) dispatch(ctx context.Context, ev event) {
	switch e := ev.(type) {
	case evHeartbeat:
		r.handleHeartbeat(e)
	case cmdDetermineCoordinator:
		r.handleDetermineCoordinator(ctx)
	case cmdAddSong:
		r.handleAddSong(ctx, e)
	case cmdDeleteSong:
		r.handleDeleteSong(ctx, e)
	case cmdGetSong:
		r.handleGetSong(e)
	case cmdJoinMaster:
		r.st.master = e.Sink
	case cmdRequestFullState:
		r.handleRequestFullState(ctx)
	case evVoteReq:
		r.handleVoteReq(ctx, e)
	case evVoteReply:
		r.handleVoteReply(ctx, e)
	case evPreCommit:
		r.handlePreCommit(ctx, e)
	case evAckPreCommit:
		r.handleAckPreCommit(ctx, e)
	case evCommit:
		r.handleDecision(ctx, protocol.DecisionCommit)
	case evAbort:
		r.handleDecision(ctx, protocol.DecisionAbort)
	case evStateReq:
		r.handleStateReq(ctx, e)
	case evStateReply:
		r.handleStateReply(ctx, e)
	case evFullStateRequest:
		r.handleFullStateRequest(ctx, e)
	case evSongList:
		r.handleSongList(ctx, e)
	default:
		log.Printf("room[%s]: unhandled event %T", r.selfID, ev)
	}
}

func (r *Room) dispatchTimeout(ctx context.Context, to interface{ SourceIter() int }) {
	switch t := to.(type) {
	case bootstrapTimeout:
		r.handleDetermineCoordinator(ctx)
	case toVoteReply:
		if timeout.Current(t, r.st.commitIter) {
			r.handleVoteReplyTimeout(ctx, t)
		}
	case toAckPreCommit:
		if timeout.Current(t, r.st.commitIter) {
			r.handleAckPreCommitTimeout(ctx, t)
		}
	case toPreCommit:
		if timeout.Current(t, r.st.commitIter) {
			r.handlePreCommitTimeout(ctx, t)
		}
	case toCommit:
		if timeout.Current(t, r.st.commitIter) {
			r.handleCommitTimeout(ctx, t)
		}
	case toStateReq:
		if timeout.Current(t, r.st.commitIter) {
			r.handleStateReqTimeout(ctx, t)
		}
	case toStateReqReply:
		if timeout.Current(t, r.st.commitIter) {
			r.handleStateReqReplyTimeout(ctx, t)
		}
	default:
		log.Printf("room[%s]: unhandled timeout %T", r.selfID, to)
	}
}

// announceRole restarts the heartbeat schedule under the new role,
// cancelling any outstanding one first (§4.1: "all outstanding
// heartbeat schedules are cancelled and a fresh schedule is started").
// Taking the Coordinator role is also announced to the master as
// "coordinator <id>".
func (r *Room) announceRole(ctx context.Context, role protocol.Role) {
	r.st.role = role
	if role == protocol.RoleCoordinator {
		r.ackMaster(protocol.EncodeCoordinatorAnnounce(r.selfID))
	}
	ids := make([]string, 0, len(r.st.actors))
	for id := range r.st.actors {
		ids = append(ids, id)
	}
	r.sender.Restart(ctx, role, ids)
}

// upSet snapshots the currently alive participants, per the spec's
// definition of the up-set fixed at VoteReq time.
func (r *Room) upSet() []string {
	p := protocol.RoleParticipant
	return r.det.Alive(&p)
}
