package room

import (
	"context"
	"log"

	"github.com/sumanthd032/songlist/internal/protocol"
)

// handleDetermineCoordinator is §6's bootstrap rule, fired once by
// bootstrapTimeout: a replica that has observed no coordinator
// heartbeat and no live participant heartbeat by then assumes it is
// first up and takes the Coordinator role. Any replica that has heard
// a live peer instead joins as an Observer and requests the current
// songList before it is trusted to vote, per §4.4's join flow.
func (r *Room) handleDetermineCoordinator(ctx context.Context) {
	if _, ok := r.st.phase.(PhaseStart); !ok {
		return
	}
	participant := protocol.RoleParticipant
	if len(r.det.Alive(&participant)) == 0 && r.st.coordinator == "" {
		r.st.phase = PhaseCoordWaiting{}
		r.announceRole(ctx, protocol.RoleCoordinator)
		return
	}
	r.st.phase = PhaseCoordWaiting{}
	r.announceRole(ctx, protocol.RoleObserver)
	r.handleRequestFullState(ctx)
}

// handleGetSong is §4.6's GetSong(name) lookup.
func (r *Room) handleGetSong(e cmdGetSong) {
	select {
	case e.Reply <- r.st.songList[e.Name]:
	default:
	}
}

// handleRequestFullState is the join/rejoin flow: a best-effort
// snapshot load is tried first (no coordination needed, just faster
// recovery), falling back to asking any known peer directly. Either
// path, once the songList is seeded, promotes an Observer to a voting
// Participant (§4.4).
func (r *Room) handleRequestFullState(ctx context.Context) {
	if r.snaps != nil {
		if sl, iter, err := r.snaps.Load(); err == nil && sl != nil {
			r.st.songList = sl
			r.st.commitIter = iter
			r.becomeParticipant(ctx)
			return
		}
	}
	for id := range r.st.actors {
		r.tr.Send(ctx, id, line("fullstaterequest"))
		return
	}
	log.Printf("room[%s]: RequestFullState has no peer to ask and no snapshot available", r.selfID)
}

// handleFullStateRequest answers a peer's join-time full-state request
// with the current songList.
func (r *Room) handleFullStateRequest(ctx context.Context, e evFullStateRequest) {
	r.tr.Send(ctx, e.From, line(protocol.EncodeSongList(r.st.songList)))
}

// handleSongList seeds this replica's songList from a peer's reply to
// RequestFullState and, if this replica joined as an Observer, admits
// it to voting now that it has caught up.
func (r *Room) handleSongList(ctx context.Context, e evSongList) {
	r.st.songList = e.SongList
	r.becomeParticipant(ctx)
}

// becomeParticipant is the Observer -> Participant transition at the
// end of the join flow; it's a no-op for anything already voting or
// coordinating.
func (r *Room) becomeParticipant(ctx context.Context) {
	if r.st.role == protocol.RoleObserver {
		r.announceRole(ctx, protocol.RoleParticipant)
	}
}
